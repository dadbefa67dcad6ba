package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"airstrip/internal/domain"
	"airstrip/internal/engine"
)

func registerFlights(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "schedule-flight",
		Method:      http.MethodPost,
		Path:        "/flights",
		Summary:     "Schedule flight",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body ScheduleFlightRequest `json:"body"`
	}) (*response[domain.Flight], error) {
		f, err := e.ScheduleFlight(ctx, input.Body.payload())
		if err != nil {
			return nil, handleError(err)
		}
		return ok(f), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-flight",
		Method:      http.MethodGet,
		Path:        "/flights/{id}",
		Summary:     "Get flight",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*response[domain.Flight], error) {
		f, err := e.GetFlight(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(f), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "cancel-flight",
		Method:      http.MethodPost,
		Path:        "/flights/{id}/cancel",
		Summary:     "Cancel flight",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *idPath) (*response[domain.Message], error) {
		msg, err := e.CancelFlight(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(msg), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-flight-status",
		Method:      http.MethodPost,
		Path:        "/flights/{id}/status",
		Summary:     "Move flight to a new status",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID   uint64              `path:"id"`
		Body FlightStatusRequest `json:"body"`
	}) (*response[domain.Flight], error) {
		f, err := e.UpdateFlightStatus(ctx, input.ID, domain.FlightStatus(input.Body.Status))
		if err != nil {
			return nil, handleError(err)
		}
		return ok(f), nil
	})
}
