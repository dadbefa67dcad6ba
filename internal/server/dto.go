package server

import (
	"github.com/danielgtaylor/huma/v2"

	"airstrip/internal/domain"
	"airstrip/internal/engine"
)

// response wraps a body for huma outputs.
type response[T any] struct {
	Body T `json:"body"`
}

func ok[T any](v T) *response[T] {
	return &response[T]{Body: v}
}

type idPath struct {
	ID uint64 `path:"id" doc:"Record identifier"`
}

// Request payloads. Every field is optional at the schema level so that
// blank or missing values reach the engine and get its field messages.

type CreateAirstripRequest struct {
	Name         string `json:"name,omitempty"`
	Location     string `json:"location,omitempty"`
	Contact      string `json:"contact,omitempty"`
	Email        string `json:"email,omitempty"`
	RunwayLength uint64 `json:"runway_length,omitempty" doc:"Runway length in meters"`
	Capacity     uint64 `json:"capacity,omitempty"`
}

func (r CreateAirstripRequest) payload() engine.CreateAirstripPayload {
	return engine.CreateAirstripPayload(r)
}

type SetCapacityRequest struct {
	Capacity uint64 `json:"capacity"`
}

type ScheduleFlightRequest struct {
	AirstripID    uint64 `json:"airstrip_id,omitempty"`
	FlightNumber  string `json:"flight_number,omitempty"`
	Destination   string `json:"destination,omitempty"`
	DepartureTime uint64 `json:"departure_time,omitempty" doc:"Unix nanoseconds"`
	ArrivalTime   uint64 `json:"arrival_time,omitempty" doc:"Unix nanoseconds"`
}

func (r ScheduleFlightRequest) payload() engine.ScheduleFlightPayload {
	return engine.ScheduleFlightPayload(r)
}

type FlightStatusRequest struct {
	Status string `json:"status" doc:"scheduled, delayed, arrived, completed or cancelled"`
}

type RegisterPilotRequest struct {
	Name            string `json:"name,omitempty"`
	LicenseNumber   string `json:"license_number,omitempty"`
	ExperienceYears uint64 `json:"experience_years,omitempty"`
	Contact         string `json:"contact,omitempty"`
	Email           string `json:"email,omitempty"`
}

func (r RegisterPilotRequest) payload() engine.RegisterPilotPayload {
	return engine.RegisterPilotPayload(r)
}

type SchedulePilotRequest struct {
	PilotID   uint64 `json:"pilot_id,omitempty"`
	FlightID  uint64 `json:"flight_id,omitempty"`
	StartTime uint64 `json:"start_time,omitempty" doc:"Unix nanoseconds, inclusive"`
	EndTime   uint64 `json:"end_time,omitempty" doc:"Unix nanoseconds, exclusive"`
}

func (r SchedulePilotRequest) payload() engine.SchedulePilotPayload {
	return engine.SchedulePilotPayload(r)
}

type ScheduleMaintenanceRequest struct {
	AirstripID  uint64 `json:"airstrip_id,omitempty"`
	Date        uint64 `json:"date,omitempty" doc:"Unix nanoseconds"`
	Description string `json:"description,omitempty"`
}

func (r ScheduleMaintenanceRequest) payload() engine.ScheduleMaintenancePayload {
	return engine.ScheduleMaintenancePayload(r)
}

type CreateEmergencyProtocolRequest struct {
	AirstripID       uint64   `json:"airstrip_id,omitempty"`
	ProtocolType     string   `json:"protocol_type,omitempty"`
	Description      string   `json:"description,omitempty"`
	ContactNumbers   []string `json:"contact_numbers,omitempty"`
	EvacuationRoutes []string `json:"evacuation_routes,omitempty"`
}

func (r CreateEmergencyProtocolRequest) payload() engine.CreateEmergencyProtocolPayload {
	return engine.CreateEmergencyProtocolPayload(r)
}

type UpdateFuelInventoryRequest struct {
	AirstripID uint64  `json:"airstrip_id,omitempty"`
	FuelType   string  `json:"fuel_type,omitempty"`
	Quantity   float64 `json:"quantity,omitempty"`
	UnitPrice  float64 `json:"unit_price,omitempty"`
}

func (r UpdateFuelInventoryRequest) payload() engine.UpdateFuelInventoryPayload {
	return engine.UpdateFuelInventoryPayload(r)
}

type RecordRevenueRequest struct {
	AirstripID  uint64  `json:"airstrip_id,omitempty"`
	Source      string  `json:"source,omitempty"`
	Amount      float64 `json:"amount,omitempty"`
	Description string  `json:"description,omitempty"`
}

func (r RecordRevenueRequest) payload() engine.RecordRevenuePayload {
	return engine.RecordRevenuePayload(r)
}

// Response payloads

// RevenueAnalysisResponse encodes as an object of source to amount with the
// "total" key last.
type RevenueAnalysisResponse struct {
	domain.RevenueBreakdown
}

func (RevenueAnalysisResponse) Schema(huma.Registry) *huma.Schema {
	return &huma.Schema{
		Type:        huma.TypeObject,
		Description: "Sum of amounts per source, plus the total",
		AdditionalProperties: &huma.Schema{
			Type: huma.TypeNumber,
		},
	}
}
