package engine

import (
	"context"

	"airstrip/internal/domain"
	"airstrip/internal/events"
	"airstrip/internal/kv"
)

// ScheduleFlight records a flight against an existing airstrip. New flights
// start out scheduled.
func (e *Engine) ScheduleFlight(ctx context.Context, p ScheduleFlightPayload) (domain.Flight, error) {
	if err := checkPayload(p); err != nil {
		return domain.Flight{}, err
	}
	var out domain.Flight
	err := e.mutate(ctx, "schedule_flight", func(c *change) error {
		if err := e.requireAirstrip(ctx, c, p.AirstripID); err != nil {
			return err
		}
		id, err := e.Repo.IDs.Next(ctx, c)
		if err != nil {
			return err
		}
		out = domain.Flight{
			ID:            id,
			AirstripID:    p.AirstripID,
			FlightNumber:  p.FlightNumber,
			Destination:   p.Destination,
			DepartureTime: p.DepartureTime,
			ArrivalTime:   p.ArrivalTime,
			Status:        domain.FlightScheduled,
		}
		if err := e.Repo.Flights.Insert(ctx, c, id, out); err != nil {
			return err
		}
		return c.emit("flight.schedule", "flight", id, events.EventPayload{
			"airstrip_id":   out.AirstripID,
			"flight_number": out.FlightNumber,
		})
	})
	if err != nil {
		return domain.Flight{}, err
	}
	return out, nil
}

func (e *Engine) GetFlight(ctx context.Context, id uint64) (domain.Flight, error) {
	var out domain.Flight
	err := e.read(ctx, "get_flight", func(r kv.Reader) error {
		var err error
		out, err = e.Repo.Flights.Get(ctx, r, id)
		return orNotFound(err, "Flight")
	})
	return out, err
}

// ListScheduledFlights returns the airstrip's flights still in the scheduled
// state, in id order. An unknown airstrip yields an empty list.
func (e *Engine) ListScheduledFlights(ctx context.Context, airstripID uint64) ([]domain.Flight, error) {
	var out []domain.Flight
	err := e.read(ctx, "list_scheduled_flights", func(r kv.Reader) error {
		var err error
		out, err = e.Repo.Flights.Filter(ctx, r, func(f domain.Flight) bool {
			return f.AirstripID == airstripID && f.Status == domain.FlightScheduled
		})
		return err
	})
	return out, err
}

func (e *Engine) CancelFlight(ctx context.Context, id uint64) (domain.Message, error) {
	err := e.mutate(ctx, "cancel_flight", func(c *change) error {
		_, err := e.setFlightStatus(ctx, c, id, domain.FlightCancelled)
		return err
	})
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Success("Flight successfully cancelled"), nil
}

// UpdateFlightStatus moves a flight along its lifecycle.
func (e *Engine) UpdateFlightStatus(ctx context.Context, id uint64, status domain.FlightStatus) (domain.Flight, error) {
	if err := checkText(string(status), "Status"); err != nil {
		return domain.Flight{}, err
	}
	if !status.Valid() {
		return domain.Flight{}, invalid("unknown flight status %q", status)
	}
	var out domain.Flight
	err := e.mutate(ctx, "update_flight_status", func(c *change) error {
		var err error
		out, err = e.setFlightStatus(ctx, c, id, status)
		return err
	})
	if err != nil {
		return domain.Flight{}, err
	}
	return out, nil
}

func (e *Engine) setFlightStatus(ctx context.Context, c *change, id uint64, next domain.FlightStatus) (domain.Flight, error) {
	var from domain.FlightStatus
	f, err := e.Repo.Flights.Update(ctx, c, id, func(f *domain.Flight) error {
		from = f.Status
		if !f.Status.CanTransition(next) {
			if f.Status.Terminal() {
				return conflict("Flight is already %s", f.Status)
			}
			return conflict("Flight cannot move from %s to %s", f.Status, next)
		}
		f.Status = next
		return nil
	})
	if err != nil {
		return domain.Flight{}, orNotFound(err, "Flight")
	}
	evtType := "flight.status"
	if next == domain.FlightCancelled {
		evtType = "flight.cancel"
	}
	if err := c.emit(evtType, "flight", id, events.EventPayload{"from": from, "to": next}); err != nil {
		return domain.Flight{}, err
	}
	return f, nil
}
