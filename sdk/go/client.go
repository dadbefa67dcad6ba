package airstripsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"airstrip/internal/domain"
	"airstrip/internal/engine"
)

// Client is a typed client for the airstrip HTTP API.
type Client struct {
	BaseURL    string
	BasePath   string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v1",
		Timeout:  10 * time.Second,
	}
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error: status=%d code=%s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

func (c *Client) CreateAirstrip(ctx context.Context, p engine.CreateAirstripPayload) (domain.Airstrip, error) {
	var resp domain.Airstrip
	err := c.do(ctx, http.MethodPost, "airstrips", p, &resp)
	return resp, err
}

func (c *Client) ListAirstrips(ctx context.Context) ([]domain.Airstrip, error) {
	var resp []domain.Airstrip
	err := c.do(ctx, http.MethodGet, "airstrips", nil, &resp)
	return resp, err
}

func (c *Client) GetAirstrip(ctx context.Context, id uint64) (domain.Airstrip, error) {
	var resp domain.Airstrip
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("airstrips/%d", id), nil, &resp)
	return resp, err
}

func (c *Client) CapacityStatus(ctx context.Context, id uint64) (domain.CapacityStatus, error) {
	var resp domain.CapacityStatus
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("airstrips/%d/capacity", id), nil, &resp)
	return resp, err
}

func (c *Client) UpdateAirstripCapacity(ctx context.Context, id, capacity uint64) (domain.Message, error) {
	var resp domain.Message
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("airstrips/%d/capacity", id), map[string]any{"capacity": capacity}, &resp)
	return resp, err
}

func (c *Client) ScheduleFlight(ctx context.Context, p engine.ScheduleFlightPayload) (domain.Flight, error) {
	var resp domain.Flight
	err := c.do(ctx, http.MethodPost, "flights", p, &resp)
	return resp, err
}

func (c *Client) GetFlight(ctx context.Context, id uint64) (domain.Flight, error) {
	var resp domain.Flight
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("flights/%d", id), nil, &resp)
	return resp, err
}

// ScheduledFlights returns the flights of an airstrip still in scheduled state.
func (c *Client) ScheduledFlights(ctx context.Context, airstripID uint64) ([]domain.Flight, error) {
	var resp []domain.Flight
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("airstrips/%d/flights/scheduled", airstripID), nil, &resp)
	return resp, err
}

func (c *Client) CancelFlight(ctx context.Context, id uint64) (domain.Message, error) {
	var resp domain.Message
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("flights/%d/cancel", id), nil, &resp)
	return resp, err
}

func (c *Client) UpdateFlightStatus(ctx context.Context, id uint64, status domain.FlightStatus) (domain.Flight, error) {
	var resp domain.Flight
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("flights/%d/status", id), map[string]any{"status": status}, &resp)
	return resp, err
}

func (c *Client) RegisterPilot(ctx context.Context, p engine.RegisterPilotPayload) (domain.Pilot, error) {
	var resp domain.Pilot
	err := c.do(ctx, http.MethodPost, "pilots", p, &resp)
	return resp, err
}

func (c *Client) ListPilots(ctx context.Context) ([]domain.Pilot, error) {
	var resp []domain.Pilot
	err := c.do(ctx, http.MethodGet, "pilots", nil, &resp)
	return resp, err
}

func (c *Client) GetPilot(ctx context.Context, id uint64) (domain.Pilot, error) {
	var resp domain.Pilot
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("pilots/%d", id), nil, &resp)
	return resp, err
}

func (c *Client) SchedulePilot(ctx context.Context, p engine.SchedulePilotPayload) (domain.PilotSchedule, error) {
	var resp domain.PilotSchedule
	err := c.do(ctx, http.MethodPost, "pilot-schedules", p, &resp)
	return resp, err
}

func (c *Client) PilotSchedules(ctx context.Context, pilotID uint64) ([]domain.PilotSchedule, error) {
	var resp []domain.PilotSchedule
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("pilots/%d/schedule", pilotID), nil, &resp)
	return resp, err
}

func (c *Client) CancelPilotSchedule(ctx context.Context, id uint64) (domain.PilotSchedule, error) {
	var resp domain.PilotSchedule
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("pilot-schedules/%d/cancel", id), nil, &resp)
	return resp, err
}

func (c *Client) CompletePilotSchedule(ctx context.Context, id uint64) (domain.PilotSchedule, error) {
	var resp domain.PilotSchedule
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("pilot-schedules/%d/complete", id), nil, &resp)
	return resp, err
}

func (c *Client) ScheduleMaintenance(ctx context.Context, p engine.ScheduleMaintenancePayload) (domain.MaintenanceSchedule, error) {
	var resp domain.MaintenanceSchedule
	err := c.do(ctx, http.MethodPost, "maintenance", p, &resp)
	return resp, err
}

func (c *Client) MaintenanceSchedules(ctx context.Context, airstripID uint64) ([]domain.MaintenanceSchedule, error) {
	var resp []domain.MaintenanceSchedule
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("airstrips/%d/maintenance", airstripID), nil, &resp)
	return resp, err
}

func (c *Client) CompleteMaintenance(ctx context.Context, id uint64) (domain.MaintenanceSchedule, error) {
	var resp domain.MaintenanceSchedule
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("maintenance/%d/complete", id), nil, &resp)
	return resp, err
}

func (c *Client) CreateEmergencyProtocol(ctx context.Context, p engine.CreateEmergencyProtocolPayload) (domain.EmergencyProtocol, error) {
	// the API rejects null arrays
	if p.ContactNumbers == nil {
		p.ContactNumbers = []string{}
	}
	if p.EvacuationRoutes == nil {
		p.EvacuationRoutes = []string{}
	}
	var resp domain.EmergencyProtocol
	err := c.do(ctx, http.MethodPost, "emergency-protocols", p, &resp)
	return resp, err
}

func (c *Client) EmergencyProtocols(ctx context.Context, airstripID uint64) ([]domain.EmergencyProtocol, error) {
	var resp []domain.EmergencyProtocol
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("airstrips/%d/emergency-protocols", airstripID), nil, &resp)
	return resp, err
}

func (c *Client) UpdateFuelInventory(ctx context.Context, p engine.UpdateFuelInventoryPayload) (domain.FuelInventory, error) {
	var resp domain.FuelInventory
	err := c.do(ctx, http.MethodPost, "fuel-inventory", p, &resp)
	return resp, err
}

func (c *Client) FuelInventory(ctx context.Context, airstripID uint64) ([]domain.FuelInventory, error) {
	var resp []domain.FuelInventory
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("airstrips/%d/fuel-inventory", airstripID), nil, &resp)
	return resp, err
}

func (c *Client) RecordRevenue(ctx context.Context, p engine.RecordRevenuePayload) (domain.Revenue, error) {
	var resp domain.Revenue
	err := c.do(ctx, http.MethodPost, "revenue", p, &resp)
	return resp, err
}

// RevenueAnalysis sums revenue per source over [start, end], both inclusive.
func (c *Client) RevenueAnalysis(ctx context.Context, airstripID, start, end uint64) (domain.RevenueBreakdown, error) {
	q := url.Values{}
	q.Set("start", fmt.Sprint(start))
	q.Set("end", fmt.Sprint(end))
	var resp domain.RevenueBreakdown
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("airstrips/%d/revenue-analysis?%s", airstripID, q.Encode()), nil, &resp)
	return resp, err
}

// Events returns the most recent change events, oldest first.
func (c *Client) Events(ctx context.Context, limit int) ([]domain.Event, error) {
	endpoint := "events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []domain.Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &envelope) == nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.Trim(c.BasePath, "/")
}
