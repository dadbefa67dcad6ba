package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"airstrip/internal/domain"
	"airstrip/internal/engine"
)

func registerPilots(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "register-pilot",
		Method:      http.MethodPost,
		Path:        "/pilots",
		Summary:     "Register pilot",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body RegisterPilotRequest `json:"body"`
	}) (*response[domain.Pilot], error) {
		p, err := e.RegisterPilot(ctx, input.Body.payload())
		if err != nil {
			return nil, handleError(err)
		}
		return ok(p), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-pilots",
		Method:      http.MethodGet,
		Path:        "/pilots",
		Summary:     "List pilots",
	}, func(ctx context.Context, _ *struct{}) (*response[[]domain.Pilot], error) {
		items, err := e.ListPilots(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(items), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-pilot",
		Method:      http.MethodGet,
		Path:        "/pilots/{id}",
		Summary:     "Get pilot",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*response[domain.Pilot], error) {
		p, err := e.GetPilot(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(p), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "pilot-schedule",
		Method:      http.MethodGet,
		Path:        "/pilots/{id}/schedule",
		Summary:     "Assignments of a pilot",
	}, func(ctx context.Context, input *idPath) (*response[[]domain.PilotSchedule], error) {
		items, err := e.PilotSchedules(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(items), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "schedule-pilot",
		Method:      http.MethodPost,
		Path:        "/pilot-schedules",
		Summary:     "Assign pilot to a flight",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body SchedulePilotRequest `json:"body"`
	}) (*response[domain.PilotSchedule], error) {
		s, err := e.SchedulePilot(ctx, input.Body.payload())
		if err != nil {
			return nil, handleError(err)
		}
		return ok(s), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "cancel-pilot-schedule",
		Method:      http.MethodPost,
		Path:        "/pilot-schedules/{id}/cancel",
		Summary:     "Cancel pilot assignment",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *idPath) (*response[domain.PilotSchedule], error) {
		s, err := e.CancelPilotSchedule(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(s), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-pilot-schedule",
		Method:      http.MethodPost,
		Path:        "/pilot-schedules/{id}/complete",
		Summary:     "Complete pilot assignment",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *idPath) (*response[domain.PilotSchedule], error) {
		s, err := e.CompletePilotSchedule(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(s), nil
	})
}
