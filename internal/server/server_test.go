package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"airstrip/internal/domain"
	"airstrip/internal/engine"
	"airstrip/internal/kv"
	"airstrip/internal/metrics"
	airstripsdk "airstrip/sdk/go"
)

type testServer struct {
	URL    string
	Engine *engine.Engine
	SDK    *airstripsdk.Client
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	e := engine.New(kv.NewMemoryStore())
	clock := time.Unix(0, 5000)
	e.Now = func() time.Time { return clock }
	m := metrics.NewPrometheus()
	e.Metrics = m
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v1",
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:  m.Handler(),
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	url := "http://" + ln.Addr().String()
	testSrv := &testServer{
		URL:    url,
		Engine: e,
		SDK:    airstripsdk.New(url),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func expectAPIError(t *testing.T, err error, status int, code, msg string) {
	t.Helper()
	var apiErr *airstripsdk.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected api error, got %v", err)
	}
	if apiErr.StatusCode != status || apiErr.Code != code {
		t.Fatalf("expected %d %s, got %d %s (%s)", status, code, apiErr.StatusCode, apiErr.Code, apiErr.Body)
	}
	if msg != "" && apiErr.Message != msg {
		t.Fatalf("expected message %q, got %q", msg, apiErr.Message)
	}
}

func TestAirstripAndFlightLifecycle(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()
	c := srv.SDK

	a, err := c.CreateAirstrip(ctx, engine.CreateAirstripPayload{Name: "Lewa Downs", Contact: "ops", Email: "ops@lewa", Capacity: 3})
	if err != nil {
		t.Fatalf("create airstrip: %v", err)
	}
	if a.ID != 0 || a.CreatedAt != 5000 {
		t.Fatalf("unexpected airstrip %+v", a)
	}
	got, err := c.GetAirstrip(ctx, a.ID)
	if err != nil || got != a {
		t.Fatalf("get airstrip: %+v %v", got, err)
	}
	list, err := c.ListAirstrips(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("list airstrips: %v %v", list, err)
	}

	f, err := c.ScheduleFlight(ctx, engine.ScheduleFlightPayload{AirstripID: a.ID, FlightNumber: "5Y-KQA", Destination: "Wilson", DepartureTime: 6000, ArrivalTime: 9000})
	if err != nil {
		t.Fatalf("schedule flight: %v", err)
	}
	if f.ID != 1 || f.Status != domain.FlightScheduled {
		t.Fatalf("unexpected flight %+v", f)
	}
	st, err := c.CapacityStatus(ctx, a.ID)
	if err != nil {
		t.Fatalf("capacity: %v", err)
	}
	want := domain.CapacityStatus{TotalCapacity: 3, ScheduledArrivals: 1, ScheduledDepartures: 1, AvailableSlots: 3}
	if st != want {
		t.Fatalf("capacity %+v, want %+v", st, want)
	}
	scheduled, err := c.ScheduledFlights(ctx, a.ID)
	if err != nil || len(scheduled) != 1 {
		t.Fatalf("scheduled flights: %v %v", scheduled, err)
	}

	msg, err := c.CancelFlight(ctx, f.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if msg.Kind != domain.MessageSuccess || msg.Message != "Flight successfully cancelled" {
		t.Fatalf("unexpected cancel message %+v", msg)
	}
	_, err = c.CancelFlight(ctx, f.ID)
	expectAPIError(t, err, http.StatusConflict, "conflict", "Flight is already cancelled")

	_, err = c.UpdateFlightStatus(ctx, f.ID, "boarding")
	expectAPIError(t, err, http.StatusBadRequest, "invalid_payload", "")

	msg, err = c.UpdateAirstripCapacity(ctx, a.ID, 10)
	if err != nil || msg.Message != "Airstrip capacity updated successfully" {
		t.Fatalf("set capacity: %+v %v", msg, err)
	}
	st, _ = c.CapacityStatus(ctx, a.ID)
	if st.TotalCapacity != 10 || st.AvailableSlots != 10 {
		t.Fatalf("capacity after cancel %+v", st)
	}
}

func TestNotFoundAndInvalidPayload(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()
	c := srv.SDK

	_, err := c.GetAirstrip(ctx, 42)
	expectAPIError(t, err, http.StatusNotFound, "not_found", "Airstrip not found")
	_, err = c.CapacityStatus(ctx, 42)
	expectAPIError(t, err, http.StatusNotFound, "not_found", "Airstrip not found")
	_, err = c.ScheduleFlight(ctx, engine.ScheduleFlightPayload{AirstripID: 42, FlightNumber: "X1", Destination: "Y"})
	expectAPIError(t, err, http.StatusNotFound, "not_found", "Airstrip not found")

	_, err = c.CreateAirstrip(ctx, engine.CreateAirstripPayload{Name: "  ", Contact: "c", Email: "e"})
	expectAPIError(t, err, http.StatusBadRequest, "invalid_payload", "Airstrip name cannot be empty")

	// missing fields reach the engine rather than failing schema checks
	res, body := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/pilots", map[string]any{"name": "Amina"})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d %s", res.StatusCode, body)
	}
	if !strings.Contains(string(body), "License number cannot be empty") {
		t.Fatalf("unexpected body %s", body)
	}

	// schema violations use the same envelope
	res, body = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/airstrips", map[string]any{"name": "x", "unknown": 1})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d %s", res.StatusCode, body)
	}
	var envelope struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Code != "invalid_payload" {
		t.Fatalf("unexpected envelope %s", body)
	}

	all, err := c.ListAirstrips(ctx)
	if err != nil || len(all) != 0 {
		t.Fatalf("failed writes left records: %v %v", all, err)
	}
}

func TestPilotScheduling(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()
	c := srv.SDK

	a, _ := c.CreateAirstrip(ctx, engine.CreateAirstripPayload{Name: "A", Contact: "c", Email: "e"})
	f, _ := c.ScheduleFlight(ctx, engine.ScheduleFlightPayload{AirstripID: a.ID, FlightNumber: "F1", Destination: "D"})
	p, err := c.RegisterPilot(ctx, engine.RegisterPilotPayload{Name: "Amina", LicenseNumber: "KE-1", Contact: "c", Email: "e", ExperienceYears: 7})
	if err != nil {
		t.Fatalf("register pilot: %v", err)
	}

	first, err := c.SchedulePilot(ctx, engine.SchedulePilotPayload{PilotID: p.ID, FlightID: f.ID, StartTime: 1000, EndTime: 2000})
	if err != nil {
		t.Fatalf("first slot: %v", err)
	}
	_, err = c.SchedulePilot(ctx, engine.SchedulePilotPayload{PilotID: p.ID, FlightID: f.ID, StartTime: 1500, EndTime: 2500})
	expectAPIError(t, err, http.StatusConflict, "conflict", "Pilot is not available for this time slot")
	if _, err := c.SchedulePilot(ctx, engine.SchedulePilotPayload{PilotID: p.ID, FlightID: f.ID, StartTime: 2000, EndTime: 3000}); err != nil {
		t.Fatalf("touching slot: %v", err)
	}
	_, err = c.SchedulePilot(ctx, engine.SchedulePilotPayload{PilotID: p.ID, FlightID: f.ID, StartTime: 5, EndTime: 5})
	expectAPIError(t, err, http.StatusBadRequest, "invalid_payload", "")
	_, err = c.SchedulePilot(ctx, engine.SchedulePilotPayload{PilotID: 999, FlightID: f.ID, StartTime: 1, EndTime: 2})
	expectAPIError(t, err, http.StatusNotFound, "not_found", "Pilot not found")

	cancelled, err := c.CancelPilotSchedule(ctx, first.ID)
	if err != nil || cancelled.Status != domain.ScheduleCancelled {
		t.Fatalf("cancel schedule: %+v %v", cancelled, err)
	}
	if _, err := c.SchedulePilot(ctx, engine.SchedulePilotPayload{PilotID: p.ID, FlightID: f.ID, StartTime: 1500, EndTime: 1800}); err != nil {
		t.Fatalf("slot freed by cancel: %v", err)
	}
	_, err = c.CompletePilotSchedule(ctx, first.ID)
	expectAPIError(t, err, http.StatusConflict, "conflict", "")

	items, err := c.PilotSchedules(ctx, p.ID)
	if err != nil || len(items) != 3 {
		t.Fatalf("pilot schedules: %v %v", items, err)
	}
}

func TestOperationsRecords(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()
	c := srv.SDK

	a, _ := c.CreateAirstrip(ctx, engine.CreateAirstripPayload{Name: "A", Contact: "c", Email: "e"})

	m, err := c.ScheduleMaintenance(ctx, engine.ScheduleMaintenancePayload{AirstripID: a.ID, Date: 9, Description: "Grade runway"})
	if err != nil {
		t.Fatalf("schedule maintenance: %v", err)
	}
	done, err := c.CompleteMaintenance(ctx, m.ID)
	if err != nil || done.Status != domain.MaintenanceCompleted {
		t.Fatalf("complete maintenance: %+v %v", done, err)
	}
	ms, _ := c.MaintenanceSchedules(ctx, a.ID)
	if len(ms) != 1 {
		t.Fatalf("maintenance list %v", ms)
	}

	ep, err := c.CreateEmergencyProtocol(ctx, engine.CreateEmergencyProtocolPayload{AirstripID: a.ID, ProtocolType: "medical", Description: "Casevac"})
	if err != nil {
		t.Fatalf("create protocol: %v", err)
	}
	if ep.ContactNumbers == nil || len(ep.ContactNumbers) != 0 {
		t.Fatalf("expected empty contact list, got %#v", ep.ContactNumbers)
	}
	eps, _ := c.EmergencyProtocols(ctx, a.ID)
	if len(eps) != 1 {
		t.Fatalf("protocol list %v", eps)
	}

	_, err = c.UpdateFuelInventory(ctx, engine.UpdateFuelInventoryPayload{AirstripID: a.ID, FuelType: "Jet A-1", Quantity: -1, UnitPrice: 2})
	expectAPIError(t, err, http.StatusBadRequest, "invalid_payload", "Quantity cannot be negative")
	if _, err := c.UpdateFuelInventory(ctx, engine.UpdateFuelInventoryPayload{AirstripID: a.ID, FuelType: "Jet A-1", Quantity: 1200, UnitPrice: 1.9}); err != nil {
		t.Fatalf("fuel: %v", err)
	}
	fuel, _ := c.FuelInventory(ctx, a.ID)
	if len(fuel) != 1 || fuel[0].LastUpdated != 5000 {
		t.Fatalf("fuel list %v", fuel)
	}

	// an unknown airstrip lists as empty, not as an error
	none, err := c.FuelInventory(ctx, 777)
	if err != nil || none == nil || len(none) != 0 {
		t.Fatalf("unknown airstrip fuel: %#v %v", none, err)
	}
}

func TestRevenueAnalysisKeepsOrder(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()
	c := srv.SDK

	a, _ := c.CreateAirstrip(ctx, engine.CreateAirstripPayload{Name: "A", Contact: "c", Email: "e"})
	for _, r := range []engine.RecordRevenuePayload{
		{AirstripID: a.ID, Source: "parking", Amount: 10, Description: "night"},
		{AirstripID: a.ID, Source: "landing_fees", Amount: 50.5, Description: "5Y-KQA"},
		{AirstripID: a.ID, Source: "parking", Amount: 5, Description: "day"},
	} {
		if _, err := c.RecordRevenue(ctx, r); err != nil {
			t.Fatalf("record revenue: %v", err)
		}
	}
	_, err := c.RecordRevenue(ctx, engine.RecordRevenuePayload{AirstripID: a.ID, Source: "total", Amount: 1, Description: "x"})
	expectAPIError(t, err, http.StatusBadRequest, "invalid_payload", "")

	res, body := doJSON(t, srv.Client(), http.MethodGet, fmt.Sprintf("%s/v1/airstrips/%d/revenue-analysis?start=0&end=10000", srv.URL, a.ID), nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("analysis status %d: %s", res.StatusCode, body)
	}
	if got := strings.TrimSpace(string(body)); got != `{"parking":15,"landing_fees":50.5,"total":65.5}` {
		t.Fatalf("unexpected analysis %s", got)
	}

	outside, err := c.RevenueAnalysis(ctx, a.ID, 6000, 7000)
	if err != nil {
		t.Fatalf("analysis: %v", err)
	}
	if len(outside) != 1 || outside[0].Source != "total" || outside[0].Amount != 0 {
		t.Fatalf("expected only total, got %v", outside)
	}
	_, err = c.RevenueAnalysis(ctx, a.ID, 10, 1)
	expectAPIError(t, err, http.StatusBadRequest, "invalid_payload", "")
}

func TestEventsHealthAndMetrics(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()
	c := srv.SDK

	if _, err := c.CreateAirstrip(ctx, engine.CreateAirstripPayload{Name: "A", Contact: "c", Email: "e"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := c.RegisterPilot(ctx, engine.RegisterPilotPayload{Name: "P", LicenseNumber: "L", Contact: "c", Email: "e"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	evts, err := c.Events(ctx, 1)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(evts) != 1 || evts[0].EntityKind != "pilot" {
		t.Fatalf("expected latest pilot event, got %+v", evts)
	}

	res, body := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/health", nil)
	if res.StatusCode != http.StatusOK || !strings.Contains(string(body), `"ok"`) {
		t.Fatalf("health %d %s", res.StatusCode, body)
	}
	res, body = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/metrics", nil)
	if res.StatusCode != http.StatusOK || !strings.Contains(string(body), `airstrip_operations_total{operation="create_airstrip",result="success"} 1`) {
		t.Fatalf("metrics %d %s", res.StatusCode, body)
	}
	res, body = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/openapi.json", nil)
	if res.StatusCode != http.StatusOK || !strings.Contains(string(body), "/v1/airstrips/{id}/revenue-analysis") {
		t.Fatalf("openapi %d", res.StatusCode)
	}
}

func TestOpenAPIConcurrentRequests(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	const n = 8
	bodies := make([][]byte, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := srv.Client().Get(srv.URL + "/v1/openapi.json")
			if err != nil {
				errs[i] = err
				return
			}
			defer res.Body.Close()
			bodies[i], errs[i] = io.ReadAll(res.Body)
		}()
	}
	wg.Wait()
	for i := range n {
		if errs[i] != nil {
			t.Fatalf("request %d: %v", i, errs[i])
		}
		if len(bodies[i]) == 0 || !bytes.Equal(bodies[i], bodies[0]) {
			t.Fatalf("request %d returned a different document", i)
		}
	}
}
