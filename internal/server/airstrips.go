package server

import (
	"context"
	"math"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"airstrip/internal/domain"
	"airstrip/internal/engine"
)

func registerAirstrips(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "create-airstrip",
		Method:      http.MethodPost,
		Path:        "/airstrips",
		Summary:     "Create airstrip",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateAirstripRequest `json:"body"`
	}) (*response[domain.Airstrip], error) {
		a, err := e.CreateAirstrip(ctx, input.Body.payload())
		if err != nil {
			return nil, handleError(err)
		}
		return ok(a), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-airstrips",
		Method:      http.MethodGet,
		Path:        "/airstrips",
		Summary:     "List airstrips",
	}, func(ctx context.Context, _ *struct{}) (*response[[]domain.Airstrip], error) {
		items, err := e.ListAirstrips(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(items), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-airstrip",
		Method:      http.MethodGet,
		Path:        "/airstrips/{id}",
		Summary:     "Get airstrip",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*response[domain.Airstrip], error) {
		a, err := e.GetAirstrip(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(a), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "airstrip-capacity",
		Method:      http.MethodGet,
		Path:        "/airstrips/{id}/capacity",
		Summary:     "Current capacity status",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*response[domain.CapacityStatus], error) {
		st, err := e.CapacityStatus(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(st), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-airstrip-capacity",
		Method:      http.MethodPost,
		Path:        "/airstrips/{id}/capacity",
		Summary:     "Change airstrip capacity",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   uint64             `path:"id"`
		Body SetCapacityRequest `json:"body"`
	}) (*response[domain.Message], error) {
		msg, err := e.UpdateAirstripCapacity(ctx, input.ID, input.Body.Capacity)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(msg), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-scheduled-flights",
		Method:      http.MethodGet,
		Path:        "/airstrips/{id}/flights/scheduled",
		Summary:     "Flights still scheduled at an airstrip",
	}, func(ctx context.Context, input *idPath) (*response[[]domain.Flight], error) {
		items, err := e.ListScheduledFlights(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(items), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-emergency-protocols",
		Method:      http.MethodGet,
		Path:        "/airstrips/{id}/emergency-protocols",
		Summary:     "Emergency protocols of an airstrip",
	}, func(ctx context.Context, input *idPath) (*response[[]domain.EmergencyProtocol], error) {
		items, err := e.EmergencyProtocols(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(items), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-fuel-inventory",
		Method:      http.MethodGet,
		Path:        "/airstrips/{id}/fuel-inventory",
		Summary:     "Fuel inventory records of an airstrip",
	}, func(ctx context.Context, input *idPath) (*response[[]domain.FuelInventory], error) {
		items, err := e.FuelInventory(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(items), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-maintenance",
		Method:      http.MethodGet,
		Path:        "/airstrips/{id}/maintenance",
		Summary:     "Maintenance schedules of an airstrip",
	}, func(ctx context.Context, input *idPath) (*response[[]domain.MaintenanceSchedule], error) {
		items, err := e.MaintenanceSchedules(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(items), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "revenue-analysis",
		Method:      http.MethodGet,
		Path:        "/airstrips/{id}/revenue-analysis",
		Summary:     "Revenue per source within a time window",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		ID    uint64 `path:"id"`
		Start uint64 `query:"start" doc:"Unix nanoseconds, inclusive"`
		End   string `query:"end" doc:"Unix nanoseconds, inclusive. Open ended when omitted"`
	}) (*response[RevenueAnalysisResponse], error) {
		end := uint64(math.MaxUint64)
		if input.End != "" {
			v, err := strconv.ParseUint(input.End, 10, 64)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "invalid_payload", "end must be an unsigned integer", nil)
			}
			end = v
		}
		b, err := e.RevenueAnalysis(ctx, input.ID, input.Start, end)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(RevenueAnalysisResponse{b}), nil
	})
}
