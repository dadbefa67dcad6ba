package engine

import (
	"context"
	"math"

	"airstrip/internal/domain"
	"airstrip/internal/events"
	"airstrip/internal/kv"
)

func (e *Engine) CreateAirstrip(ctx context.Context, p CreateAirstripPayload) (domain.Airstrip, error) {
	if err := checkPayload(p); err != nil {
		return domain.Airstrip{}, err
	}
	var out domain.Airstrip
	err := e.mutate(ctx, "create_airstrip", func(c *change) error {
		id, err := e.Repo.IDs.Next(ctx, c)
		if err != nil {
			return err
		}
		out = domain.Airstrip{
			ID:           id,
			Name:         p.Name,
			Location:     p.Location,
			Contact:      p.Contact,
			Email:        p.Email,
			RunwayLength: p.RunwayLength,
			Capacity:     p.Capacity,
			CreatedAt:    e.nowNanos(),
		}
		if err := e.Repo.Airstrips.Insert(ctx, c, id, out); err != nil {
			return err
		}
		return c.emit("airstrip.create", "airstrip", id, events.EventPayload{"name": out.Name, "capacity": out.Capacity})
	})
	if err != nil {
		return domain.Airstrip{}, err
	}
	return out, nil
}

func (e *Engine) GetAirstrip(ctx context.Context, id uint64) (domain.Airstrip, error) {
	var out domain.Airstrip
	err := e.read(ctx, "get_airstrip", func(r kv.Reader) error {
		var err error
		out, err = e.Repo.Airstrips.Get(ctx, r, id)
		return orNotFound(err, "Airstrip")
	})
	return out, err
}

func (e *Engine) ListAirstrips(ctx context.Context) ([]domain.Airstrip, error) {
	var out []domain.Airstrip
	err := e.read(ctx, "list_airstrips", func(r kv.Reader) error {
		var err error
		out, err = e.Repo.Airstrips.Filter(ctx, r, func(domain.Airstrip) bool { return true })
		return err
	})
	return out, err
}

// UpdateAirstripCapacity replaces the capacity of an existing airstrip.
func (e *Engine) UpdateAirstripCapacity(ctx context.Context, id, capacity uint64) (domain.Message, error) {
	err := e.mutate(ctx, "update_airstrip_capacity", func(c *change) error {
		var old uint64
		_, err := e.Repo.Airstrips.Update(ctx, c, id, func(a *domain.Airstrip) error {
			old = a.Capacity
			a.Capacity = capacity
			return nil
		})
		if err != nil {
			return orNotFound(err, "Airstrip")
		}
		return c.emit("airstrip.capacity", "airstrip", id, events.EventPayload{"from": old, "to": capacity})
	})
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Success("Airstrip capacity updated successfully"), nil
}

// CapacityStatus derives ground occupancy for an airstrip from its flights.
// Scheduled flights count toward arrivals and departures still in the
// future; arrived flights count as occupying the ground.
func (e *Engine) CapacityStatus(ctx context.Context, airstripID uint64) (domain.CapacityStatus, error) {
	var out domain.CapacityStatus
	err := e.read(ctx, "capacity_status", func(r kv.Reader) error {
		a, err := e.Repo.Airstrips.Get(ctx, r, airstripID)
		if err != nil {
			return orNotFound(err, "Airstrip")
		}
		now := e.nowNanos()
		var arrivals, departures, occupancy uint64
		err = e.Repo.Flights.Scan(ctx, r, func(_ uint64, f domain.Flight) error {
			if f.AirstripID != airstripID {
				return nil
			}
			switch f.Status {
			case domain.FlightScheduled:
				if f.ArrivalTime > now {
					arrivals++
				}
				if f.DepartureTime > now {
					departures++
				}
			case domain.FlightArrived:
				occupancy++
			}
			return nil
		})
		if err != nil {
			return err
		}
		out = capacityStatus(a.Capacity, occupancy, arrivals, departures)
		return nil
	})
	return out, err
}

func capacityStatus(capacity, occupancy, arrivals, departures uint64) domain.CapacityStatus {
	net := satSub(satAdd(occupancy, arrivals), departures)
	return domain.CapacityStatus{
		TotalCapacity:       capacity,
		CurrentOccupancy:    occupancy,
		ScheduledArrivals:   arrivals,
		ScheduledDepartures: departures,
		AvailableSlots:      satSub(capacity, net),
	}
}

func satAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

func satSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}
