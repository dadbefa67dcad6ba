package engine

import (
	"context"

	"airstrip/internal/domain"
	"airstrip/internal/events"
	"airstrip/internal/kv"
	"airstrip/internal/repo"
)

func (e *Engine) RegisterPilot(ctx context.Context, p RegisterPilotPayload) (domain.Pilot, error) {
	if err := checkPayload(p); err != nil {
		return domain.Pilot{}, err
	}
	var out domain.Pilot
	err := e.mutate(ctx, "register_pilot", func(c *change) error {
		id, err := e.Repo.IDs.Next(ctx, c)
		if err != nil {
			return err
		}
		out = domain.Pilot{
			ID:              id,
			Name:            p.Name,
			LicenseNumber:   p.LicenseNumber,
			ExperienceYears: p.ExperienceYears,
			Contact:         p.Contact,
			Email:           p.Email,
		}
		if err := e.Repo.Pilots.Insert(ctx, c, id, out); err != nil {
			return err
		}
		return c.emit("pilot.register", "pilot", id, events.EventPayload{"license_number": out.LicenseNumber})
	})
	if err != nil {
		return domain.Pilot{}, err
	}
	return out, nil
}

func (e *Engine) GetPilot(ctx context.Context, id uint64) (domain.Pilot, error) {
	var out domain.Pilot
	err := e.read(ctx, "get_pilot", func(r kv.Reader) error {
		var err error
		out, err = e.Repo.Pilots.Get(ctx, r, id)
		return orNotFound(err, "Pilot")
	})
	return out, err
}

func (e *Engine) ListPilots(ctx context.Context) ([]domain.Pilot, error) {
	var out []domain.Pilot
	err := e.read(ctx, "list_pilots", func(r kv.Reader) error {
		var err error
		out, err = e.Repo.Pilots.Filter(ctx, r, func(domain.Pilot) bool { return true })
		return err
	})
	return out, err
}

// SchedulePilot assigns a pilot to a flight for [start, end). The assignment
// is refused when it overlaps any of the pilot's committed schedules.
// Touching intervals do not overlap.
func (e *Engine) SchedulePilot(ctx context.Context, p SchedulePilotPayload) (domain.PilotSchedule, error) {
	if p.StartTime >= p.EndTime {
		return domain.PilotSchedule{}, invalid("start_time must be before end_time")
	}
	var out domain.PilotSchedule
	err := e.mutate(ctx, "schedule_pilot", func(c *change) error {
		ok, err := e.Repo.Pilots.Contains(ctx, c, p.PilotID)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("Pilot")
		}
		ok, err = e.Repo.Flights.Contains(ctx, c, p.FlightID)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("Flight")
		}
		if err := e.checkPilotAvailable(ctx, c, p.PilotID, p.StartTime, p.EndTime); err != nil {
			return err
		}
		id, err := e.Repo.IDs.Next(ctx, c)
		if err != nil {
			return err
		}
		out = domain.PilotSchedule{
			ID:        id,
			PilotID:   p.PilotID,
			FlightID:  p.FlightID,
			StartTime: p.StartTime,
			EndTime:   p.EndTime,
			Status:    domain.ScheduleScheduled,
		}
		if err := e.Repo.PilotSchedules.Insert(ctx, c, id, out); err != nil {
			return err
		}
		return c.emit("pilot.schedule", "pilot_schedule", id, events.EventPayload{
			"pilot_id":   out.PilotID,
			"flight_id":  out.FlightID,
			"start_time": out.StartTime,
			"end_time":   out.EndTime,
		})
	})
	if err != nil {
		return domain.PilotSchedule{}, err
	}
	return out, nil
}

func (e *Engine) checkPilotAvailable(ctx context.Context, r kv.Reader, pilotID, start, end uint64) error {
	var clash *domain.PilotSchedule
	err := e.Repo.PilotSchedules.Scan(ctx, r, func(_ uint64, s domain.PilotSchedule) error {
		if s.PilotID == pilotID && s.Status.Committed() && s.Overlaps(start, end) {
			clash = &s
			return repo.ErrStopScan
		}
		return nil
	})
	if err != nil {
		return err
	}
	if clash != nil {
		return conflict("Pilot is not available for this time slot")
	}
	return nil
}

// PilotSchedules lists every schedule of the pilot in id order, whatever its
// status.
func (e *Engine) PilotSchedules(ctx context.Context, pilotID uint64) ([]domain.PilotSchedule, error) {
	var out []domain.PilotSchedule
	err := e.read(ctx, "pilot_schedules", func(r kv.Reader) error {
		var err error
		out, err = e.Repo.PilotSchedules.Filter(ctx, r, func(s domain.PilotSchedule) bool {
			return s.PilotID == pilotID
		})
		return err
	})
	return out, err
}

func (e *Engine) CancelPilotSchedule(ctx context.Context, id uint64) (domain.PilotSchedule, error) {
	return e.finishPilotSchedule(ctx, "cancel_pilot_schedule", id, domain.ScheduleCancelled)
}

func (e *Engine) CompletePilotSchedule(ctx context.Context, id uint64) (domain.PilotSchedule, error) {
	return e.finishPilotSchedule(ctx, "complete_pilot_schedule", id, domain.ScheduleCompleted)
}

// finishPilotSchedule moves a scheduled assignment to a final status.
func (e *Engine) finishPilotSchedule(ctx context.Context, op string, id uint64, next domain.ScheduleStatus) (domain.PilotSchedule, error) {
	var out domain.PilotSchedule
	err := e.mutate(ctx, op, func(c *change) error {
		var err error
		out, err = e.Repo.PilotSchedules.Update(ctx, c, id, func(s *domain.PilotSchedule) error {
			if s.Status != domain.ScheduleScheduled {
				return conflict("Pilot schedule is already %s", s.Status)
			}
			s.Status = next
			return nil
		})
		if err != nil {
			return orNotFound(err, "Pilot schedule")
		}
		return c.emit("pilot_schedule."+string(next), "pilot_schedule", id, events.EventPayload{"pilot_id": out.PilotID})
	})
	if err != nil {
		return domain.PilotSchedule{}, err
	}
	return out, nil
}
