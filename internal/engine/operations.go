package engine

import (
	"context"

	"airstrip/internal/domain"
	"airstrip/internal/events"
	"airstrip/internal/kv"
)

func (e *Engine) ScheduleMaintenance(ctx context.Context, p ScheduleMaintenancePayload) (domain.MaintenanceSchedule, error) {
	if err := checkPayload(p); err != nil {
		return domain.MaintenanceSchedule{}, err
	}
	var out domain.MaintenanceSchedule
	err := e.mutate(ctx, "schedule_maintenance", func(c *change) error {
		if err := e.requireAirstrip(ctx, c, p.AirstripID); err != nil {
			return err
		}
		id, err := e.Repo.IDs.Next(ctx, c)
		if err != nil {
			return err
		}
		out = domain.MaintenanceSchedule{
			ID:          id,
			AirstripID:  p.AirstripID,
			Date:        p.Date,
			Description: p.Description,
			Status:      domain.MaintenanceScheduled,
		}
		if err := e.Repo.MaintenanceSchedules.Insert(ctx, c, id, out); err != nil {
			return err
		}
		return c.emit("maintenance.schedule", "maintenance", id, events.EventPayload{"airstrip_id": out.AirstripID, "date": out.Date})
	})
	if err != nil {
		return domain.MaintenanceSchedule{}, err
	}
	return out, nil
}

func (e *Engine) MaintenanceSchedules(ctx context.Context, airstripID uint64) ([]domain.MaintenanceSchedule, error) {
	var out []domain.MaintenanceSchedule
	err := e.read(ctx, "maintenance_schedules", func(r kv.Reader) error {
		var err error
		out, err = e.Repo.MaintenanceSchedules.Filter(ctx, r, func(m domain.MaintenanceSchedule) bool {
			return m.AirstripID == airstripID
		})
		return err
	})
	return out, err
}

func (e *Engine) CompleteMaintenance(ctx context.Context, id uint64) (domain.MaintenanceSchedule, error) {
	var out domain.MaintenanceSchedule
	err := e.mutate(ctx, "complete_maintenance", func(c *change) error {
		var err error
		out, err = e.Repo.MaintenanceSchedules.Update(ctx, c, id, func(m *domain.MaintenanceSchedule) error {
			if m.Status == domain.MaintenanceCompleted {
				return conflict("Maintenance is already completed")
			}
			m.Status = domain.MaintenanceCompleted
			return nil
		})
		if err != nil {
			return orNotFound(err, "Maintenance schedule")
		}
		return c.emit("maintenance.complete", "maintenance", id, nil)
	})
	if err != nil {
		return domain.MaintenanceSchedule{}, err
	}
	return out, nil
}

func (e *Engine) CreateEmergencyProtocol(ctx context.Context, p CreateEmergencyProtocolPayload) (domain.EmergencyProtocol, error) {
	if err := checkPayload(p); err != nil {
		return domain.EmergencyProtocol{}, err
	}
	var out domain.EmergencyProtocol
	err := e.mutate(ctx, "create_emergency_protocol", func(c *change) error {
		if err := e.requireAirstrip(ctx, c, p.AirstripID); err != nil {
			return err
		}
		id, err := e.Repo.IDs.Next(ctx, c)
		if err != nil {
			return err
		}
		out = domain.EmergencyProtocol{
			ID:               id,
			AirstripID:       p.AirstripID,
			ProtocolType:     p.ProtocolType,
			Description:      p.Description,
			ContactNumbers:   nonNil(p.ContactNumbers),
			EvacuationRoutes: nonNil(p.EvacuationRoutes),
			CreatedAt:        e.nowNanos(),
		}
		if err := e.Repo.EmergencyProtocols.Insert(ctx, c, id, out); err != nil {
			return err
		}
		return c.emit("emergency.create", "emergency_protocol", id, events.EventPayload{"protocol_type": out.ProtocolType})
	})
	if err != nil {
		return domain.EmergencyProtocol{}, err
	}
	return out, nil
}

func (e *Engine) EmergencyProtocols(ctx context.Context, airstripID uint64) ([]domain.EmergencyProtocol, error) {
	var out []domain.EmergencyProtocol
	err := e.read(ctx, "emergency_protocols", func(r kv.Reader) error {
		var err error
		out, err = e.Repo.EmergencyProtocols.Filter(ctx, r, func(p domain.EmergencyProtocol) bool {
			return p.AirstripID == airstripID
		})
		return err
	})
	return out, err
}

// UpdateFuelInventory records a new stock reading. Earlier readings are kept.
func (e *Engine) UpdateFuelInventory(ctx context.Context, p UpdateFuelInventoryPayload) (domain.FuelInventory, error) {
	if err := checkPayload(p); err != nil {
		return domain.FuelInventory{}, err
	}
	var out domain.FuelInventory
	err := e.mutate(ctx, "update_fuel_inventory", func(c *change) error {
		if err := e.requireAirstrip(ctx, c, p.AirstripID); err != nil {
			return err
		}
		id, err := e.Repo.IDs.Next(ctx, c)
		if err != nil {
			return err
		}
		out = domain.FuelInventory{
			ID:          id,
			AirstripID:  p.AirstripID,
			FuelType:    p.FuelType,
			Quantity:    p.Quantity,
			UnitPrice:   p.UnitPrice,
			LastUpdated: e.nowNanos(),
		}
		if err := e.Repo.FuelInventories.Insert(ctx, c, id, out); err != nil {
			return err
		}
		return c.emit("fuel.update", "fuel_inventory", id, events.EventPayload{"fuel_type": out.FuelType, "quantity": out.Quantity})
	})
	if err != nil {
		return domain.FuelInventory{}, err
	}
	return out, nil
}

func (e *Engine) FuelInventory(ctx context.Context, airstripID uint64) ([]domain.FuelInventory, error) {
	var out []domain.FuelInventory
	err := e.read(ctx, "fuel_inventory", func(r kv.Reader) error {
		var err error
		out, err = e.Repo.FuelInventories.Filter(ctx, r, func(f domain.FuelInventory) bool {
			return f.AirstripID == airstripID
		})
		return err
	})
	return out, err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
