package engine

// Payloads accepted by the create operations. Field rules are checked before
// any read or write happens.

type CreateAirstripPayload struct {
	Name         string `json:"name" validate:"notblank" label:"Airstrip name"`
	Location     string `json:"location"`
	Contact      string `json:"contact" validate:"notblank" label:"Contact"`
	Email        string `json:"email" validate:"notblank" label:"Email"`
	RunwayLength uint64 `json:"runway_length"`
	Capacity     uint64 `json:"capacity"`
}

type ScheduleFlightPayload struct {
	AirstripID    uint64 `json:"airstrip_id"`
	FlightNumber  string `json:"flight_number" validate:"notblank" label:"Flight number"`
	Destination   string `json:"destination" validate:"notblank" label:"Destination"`
	DepartureTime uint64 `json:"departure_time"`
	ArrivalTime   uint64 `json:"arrival_time"`
}

type RegisterPilotPayload struct {
	Name            string `json:"name" validate:"notblank" label:"Pilot name"`
	LicenseNumber   string `json:"license_number" validate:"notblank" label:"License number"`
	ExperienceYears uint64 `json:"experience_years"`
	Contact         string `json:"contact" validate:"notblank" label:"Contact"`
	Email           string `json:"email" validate:"notblank" label:"Email"`
}

type SchedulePilotPayload struct {
	PilotID   uint64 `json:"pilot_id"`
	FlightID  uint64 `json:"flight_id"`
	StartTime uint64 `json:"start_time"`
	EndTime   uint64 `json:"end_time"`
}

type ScheduleMaintenancePayload struct {
	AirstripID  uint64 `json:"airstrip_id"`
	Date        uint64 `json:"date"`
	Description string `json:"description" validate:"notblank" label:"Maintenance description"`
}

type CreateEmergencyProtocolPayload struct {
	AirstripID       uint64   `json:"airstrip_id"`
	ProtocolType     string   `json:"protocol_type" validate:"notblank" label:"Protocol type"`
	Description      string   `json:"description" validate:"notblank" label:"Description"`
	ContactNumbers   []string `json:"contact_numbers" validate:"dive,notblank" label:"Contact number"`
	EvacuationRoutes []string `json:"evacuation_routes" validate:"dive,notblank" label:"Evacuation route"`
}

type UpdateFuelInventoryPayload struct {
	AirstripID uint64  `json:"airstrip_id"`
	FuelType   string  `json:"fuel_type" validate:"notblank" label:"Fuel type"`
	Quantity   float64 `json:"quantity" validate:"finite,gte=0" label:"Quantity"`
	UnitPrice  float64 `json:"unit_price" validate:"finite,gte=0" label:"Unit price"`
}

type RecordRevenuePayload struct {
	AirstripID  uint64  `json:"airstrip_id"`
	Source      string  `json:"source" validate:"notblank,ne=total" label:"Revenue source"`
	Amount      float64 `json:"amount" validate:"finite" label:"Amount"`
	Description string  `json:"description" validate:"notblank" label:"Revenue description"`
}
