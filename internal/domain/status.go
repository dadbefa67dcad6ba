package domain

import "fmt"

type FlightStatus string

const (
	FlightScheduled FlightStatus = "scheduled"
	FlightDelayed   FlightStatus = "delayed"
	FlightCompleted FlightStatus = "completed"
	FlightCancelled FlightStatus = "cancelled"
	FlightArrived   FlightStatus = "arrived"
)

var flightTransitions = map[FlightStatus][]FlightStatus{
	FlightScheduled: {FlightDelayed, FlightArrived, FlightCancelled, FlightCompleted},
	FlightDelayed:   {FlightScheduled, FlightArrived, FlightCancelled},
	FlightArrived:   {FlightCompleted},
}

func (s FlightStatus) Valid() bool {
	switch s {
	case FlightScheduled, FlightDelayed, FlightCompleted, FlightCancelled, FlightArrived:
		return true
	}
	return false
}

// Terminal statuses admit no further transition.
func (s FlightStatus) Terminal() bool {
	return s == FlightCompleted || s == FlightCancelled
}

// CanTransition reports whether a flight may move from s to next.
func (s FlightStatus) CanTransition(next FlightStatus) bool {
	for _, allowed := range flightTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s *FlightStatus) UnmarshalText(b []byte) error {
	v := FlightStatus(b)
	if !v.Valid() {
		return fmt.Errorf("invalid flight status %q", string(b))
	}
	*s = v
	return nil
}

type ScheduleStatus string

const (
	ScheduleScheduled ScheduleStatus = "scheduled"
	ScheduleCompleted ScheduleStatus = "completed"
	ScheduleCancelled ScheduleStatus = "cancelled"
)

func (s ScheduleStatus) Valid() bool {
	switch s {
	case ScheduleScheduled, ScheduleCompleted, ScheduleCancelled:
		return true
	}
	return false
}

// Committed schedules block the pilot's time; cancelled ones do not.
func (s ScheduleStatus) Committed() bool {
	return s == ScheduleScheduled || s == ScheduleCompleted
}

func (s *ScheduleStatus) UnmarshalText(b []byte) error {
	v := ScheduleStatus(b)
	if !v.Valid() {
		return fmt.Errorf("invalid schedule status %q", string(b))
	}
	*s = v
	return nil
}

type MaintenanceStatus string

const (
	MaintenanceScheduled MaintenanceStatus = "scheduled"
	MaintenanceCompleted MaintenanceStatus = "completed"
)

func (s MaintenanceStatus) Valid() bool {
	return s == MaintenanceScheduled || s == MaintenanceCompleted
}

func (s *MaintenanceStatus) UnmarshalText(b []byte) error {
	v := MaintenanceStatus(b)
	if !v.Valid() {
		return fmt.Errorf("invalid maintenance status %q", string(b))
	}
	*s = v
	return nil
}
