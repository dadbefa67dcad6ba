package domain

type Airstrip struct {
	ID           uint64 `json:"id"`
	Name         string `json:"name"`
	Location     string `json:"location"`
	Contact      string `json:"contact"`
	Email        string `json:"email"`
	RunwayLength uint64 `json:"runway_length" doc:"Runway length in meters"`
	Capacity     uint64 `json:"capacity" doc:"Maximum number of planes on the ground at once"`
	CreatedAt    uint64 `json:"created_at" doc:"Unix nanoseconds"`
}

type Flight struct {
	ID            uint64       `json:"id"`
	AirstripID    uint64       `json:"airstrip_id"`
	FlightNumber  string       `json:"flight_number"`
	Destination   string       `json:"destination"`
	DepartureTime uint64       `json:"departure_time"`
	ArrivalTime   uint64       `json:"arrival_time"`
	Status        FlightStatus `json:"status" enum:"scheduled,delayed,completed,cancelled,arrived"`
}

type Pilot struct {
	ID              uint64 `json:"id"`
	Name            string `json:"name"`
	LicenseNumber   string `json:"license_number"`
	ExperienceYears uint64 `json:"experience_years"`
	Contact         string `json:"contact"`
	Email           string `json:"email"`
}

type PilotSchedule struct {
	ID        uint64         `json:"id"`
	PilotID   uint64         `json:"pilot_id"`
	FlightID  uint64         `json:"flight_id"`
	StartTime uint64         `json:"start_time"`
	EndTime   uint64         `json:"end_time"`
	Status    ScheduleStatus `json:"status" enum:"scheduled,completed,cancelled"`
}

// Overlaps reports whether s and the half-open interval [start, end)
// intersect. Touching endpoints do not overlap.
func (s PilotSchedule) Overlaps(start, end uint64) bool {
	return Overlap(s.StartTime, s.EndTime, start, end)
}

// Overlap is the half-open interval test: [s1,e1) and [s2,e2) intersect iff
// s1 < e2 && e1 > s2.
func Overlap(s1, e1, s2, e2 uint64) bool {
	return s1 < e2 && e1 > s2
}

type EmergencyProtocol struct {
	ID               uint64   `json:"id"`
	AirstripID       uint64   `json:"airstrip_id"`
	ProtocolType     string   `json:"protocol_type" doc:"weather, technical, security, medical or a site specific kind"`
	Description      string   `json:"description"`
	ContactNumbers   []string `json:"contact_numbers"`
	EvacuationRoutes []string `json:"evacuation_routes"`
	CreatedAt        uint64   `json:"created_at"`
}

// Known protocol kinds. Other non-blank kinds are accepted.
var ProtocolTypes = []string{"weather", "technical", "security", "medical"}

type FuelInventory struct {
	ID          uint64  `json:"id"`
	AirstripID  uint64  `json:"airstrip_id"`
	FuelType    string  `json:"fuel_type"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	LastUpdated uint64  `json:"last_updated"`
}

type Revenue struct {
	ID              uint64  `json:"id"`
	AirstripID      uint64  `json:"airstrip_id"`
	Source          string  `json:"source" doc:"Category such as landing_fees, fuel_sales, parking, maintenance"`
	Amount          float64 `json:"amount"`
	TransactionDate uint64  `json:"transaction_date"`
	Description     string  `json:"description"`
}

type MaintenanceSchedule struct {
	ID          uint64            `json:"id"`
	AirstripID  uint64            `json:"airstrip_id"`
	Date        uint64            `json:"date"`
	Description string            `json:"description"`
	Status      MaintenanceStatus `json:"status" enum:"scheduled,completed"`
}

// CapacityStatus is computed on demand from live flight state.
type CapacityStatus struct {
	TotalCapacity       uint64 `json:"total_capacity"`
	CurrentOccupancy    uint64 `json:"current_occupancy"`
	ScheduledArrivals   uint64 `json:"scheduled_arrivals"`
	ScheduledDepartures uint64 `json:"scheduled_departures"`
	AvailableSlots      uint64 `json:"available_slots"`
}

type Event struct {
	Seq        uint64 `json:"seq"`
	ID         string `json:"id"`
	TS         uint64 `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   uint64 `json:"entity_id"`
	Payload    string `json:"payload_json"`
}
