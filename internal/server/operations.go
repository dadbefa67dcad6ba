package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"airstrip/internal/domain"
	"airstrip/internal/engine"
)

func registerMaintenance(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "schedule-maintenance",
		Method:      http.MethodPost,
		Path:        "/maintenance",
		Summary:     "Schedule maintenance",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body ScheduleMaintenanceRequest `json:"body"`
	}) (*response[domain.MaintenanceSchedule], error) {
		m, err := e.ScheduleMaintenance(ctx, input.Body.payload())
		if err != nil {
			return nil, handleError(err)
		}
		return ok(m), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-maintenance",
		Method:      http.MethodPost,
		Path:        "/maintenance/{id}/complete",
		Summary:     "Mark maintenance completed",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *idPath) (*response[domain.MaintenanceSchedule], error) {
		m, err := e.CompleteMaintenance(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(m), nil
	})
}

func registerEmergency(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "create-emergency-protocol",
		Method:      http.MethodPost,
		Path:        "/emergency-protocols",
		Summary:     "Create emergency protocol",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateEmergencyProtocolRequest `json:"body"`
	}) (*response[domain.EmergencyProtocol], error) {
		p, err := e.CreateEmergencyProtocol(ctx, input.Body.payload())
		if err != nil {
			return nil, handleError(err)
		}
		return ok(p), nil
	})
}

func registerFuel(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "update-fuel-inventory",
		Method:      http.MethodPost,
		Path:        "/fuel-inventory",
		Summary:     "Record fuel inventory",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body UpdateFuelInventoryRequest `json:"body"`
	}) (*response[domain.FuelInventory], error) {
		f, err := e.UpdateFuelInventory(ctx, input.Body.payload())
		if err != nil {
			return nil, handleError(err)
		}
		return ok(f), nil
	})
}

func registerRevenue(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "record-revenue",
		Method:      http.MethodPost,
		Path:        "/revenue",
		Summary:     "Record revenue",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body RecordRevenueRequest `json:"body"`
	}) (*response[domain.Revenue], error) {
		r, err := e.RecordRevenue(ctx, input.Body.payload())
		if err != nil {
			return nil, handleError(err)
		}
		return ok(r), nil
	})
}

func registerEvents(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Recent change events, oldest first",
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" default:"50"`
	}) (*response[[]domain.Event], error) {
		items, err := e.RecentEvents(ctx, normalizeLimit(input.Limit))
		if err != nil {
			return nil, handleError(err)
		}
		return ok(items), nil
	})
}
