package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"airstrip/internal/domain"
	"airstrip/internal/engine"
)

func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })
	return &buf
}

func TestParseTime(t *testing.T) {
	got, err := parseTime("1500")
	if err != nil || got != 1500 {
		t.Fatalf("unix nanos: %d %v", got, err)
	}
	got, err = parseTime("2026-03-01T12:00:00Z")
	if err != nil {
		t.Fatal(err)
	}
	if want := uint64(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).UnixNano()); got != want {
		t.Fatalf("rfc3339: got %d want %d", got, want)
	}
	if got, err := parseTime(" "); err != nil || got != 0 {
		t.Fatalf("blank: %d %v", got, err)
	}
	if _, err := parseTime("1969-12-31T00:00:00Z"); err == nil {
		t.Fatal("expected pre-epoch time to be rejected")
	}
	if _, err := parseTime("tomorrow"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestParseID(t *testing.T) {
	if id, err := parseID("42"); err != nil || id != 42 {
		t.Fatalf("got %d %v", id, err)
	}
	if _, err := parseID("-1"); err == nil {
		t.Fatal("expected error for negative id")
	}
}

func TestTableSpecJSON(t *testing.T) {
	viper.Set("json", true)
	t.Cleanup(func() { viper.Set("json", false) })
	out := captureStdout(t)

	if err := flightTable.list(nil); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(out.String()); got != "[]" {
		t.Fatalf("empty list should print [], got %q", got)
	}
	out.Reset()
	if err := pilotTable.one(domain.Pilot{ID: 3, Name: "Amina"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `"name": "Amina"`) {
		t.Fatalf("unexpected output %s", out.String())
	}
}

func TestTableSpecTable(t *testing.T) {
	out := captureStdout(t)
	if err := airstripTable.list([]domain.Airstrip{{ID: 0, Name: "Wilson", Capacity: 4}}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Wilson") {
		t.Fatalf("table missing row: %s", out.String())
	}
}

func TestReportErrorJSON(t *testing.T) {
	viper.Set("json", true)
	t.Cleanup(func() { viper.Set("json", false) })
	out := captureStdout(t)

	e := engine.New(nil)
	_, err := e.UpdateFlightStatus(t.Context(), 1, "landed")
	if err == nil {
		t.Fatal("expected invalid status")
	}
	reportError(err)
	if !strings.Contains(out.String(), `"kind": "invalid_payload"`) {
		t.Fatalf("unexpected output %s", out.String())
	}
}
