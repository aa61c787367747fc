package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"dayplanner/internal/domain"
	"dayplanner/internal/search"
)

type dayPath struct {
	Date string `path:"date" doc:"YYYY-MM-DD or today" example:"2024-06-01"`
}

type activityPath struct {
	Date string `path:"date" doc:"YYYY-MM-DD or today" example:"2024-06-01"`
	ID   string `path:"id"`
}

type dayOutput struct {
	Body DayResponse `json:"body"`
}

type activityOutput struct {
	Body domain.Activity `json:"body"`
}

var mutationErrors = []int{
	http.StatusBadRequest,
	http.StatusNotFound,
	http.StatusInternalServerError,
}

func (h handlers) registerDays(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-day",
		Method:      http.MethodGet,
		Path:        "/days/{date}",
		Summary:     "Activities filed under a date",
		Description: "Loading today's empty date seeds the example activities when seeding is enabled.",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		dayPath
		Query    string `query:"q" doc:"case-insensitive name filter"`
		Category string `query:"category" enum:"All,Work,Leisure,Event" default:"All"`
	}) (*dayOutput, error) {
		date, apiErr := h.parseDate(input.Date)
		if apiErr != nil {
			return nil, apiErr
		}
		day, err := h.app.Store.Open(ctx, date)
		if err != nil {
			return nil, h.handleError(err)
		}
		resp := dayResponse(day)
		if input.Query != "" || (input.Category != "" && input.Category != search.All) {
			f := search.Filter{Query: input.Query, Category: input.Category}
			resp.Activities = nonNilSlice(search.Apply(resp.Activities, f))
			resp.Timeline = nonNilSlice(search.Apply(resp.Timeline, f))
			resp.Todos = nonNilSlice(search.Apply(resp.Todos, f))
		}
		return &dayOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-activity",
		Method:        http.MethodPost,
		Path:          "/days/{date}/activities",
		Summary:       "Add activity",
		Description:   "An endDate after the selected date files a copy under every day of the range.",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		dayPath
		Body domain.Draft `json:"body"`
	}) (*activityOutput, error) {
		date, apiErr := h.parseDate(input.Date)
		if apiErr != nil {
			return nil, apiErr
		}
		a, err := h.app.Store.Add(ctx, date, input.Body)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &activityOutput{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-activity",
		Method:      http.MethodPatch,
		Path:        "/days/{date}/activities/{id}",
		Summary:     "Update activity",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		activityPath
		Body domain.Patch `json:"body"`
	}) (*activityOutput, error) {
		date, apiErr := h.parseDate(input.Date)
		if apiErr != nil {
			return nil, apiErr
		}
		if input.Body.Empty() {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "no fields to update", nil)
		}
		a, found, err := h.app.Store.Update(ctx, date, input.ID, input.Body)
		if err != nil {
			return nil, h.handleError(err)
		}
		if !found {
			return nil, notFound(date, input.ID)
		}
		return &activityOutput{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-activity",
		Method:      http.MethodDelete,
		Path:        "/days/{date}/activities/{id}",
		Summary:     "Delete activity",
		Description: "Deleting a multi-day activity removes it from every day of its range.",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *activityPath) (*struct {
		Body DeleteResponse `json:"body"`
	}, error) {
		date, apiErr := h.parseDate(input.Date)
		if apiErr != nil {
			return nil, apiErr
		}
		found, err := h.app.Store.Delete(ctx, date, input.ID)
		if err != nil {
			return nil, h.handleError(err)
		}
		if !found {
			return nil, notFound(date, input.ID)
		}
		return &struct {
			Body DeleteResponse `json:"body"`
		}{Body: DeleteResponse{ID: input.ID, Date: date, Deleted: true}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggle-activity",
		Method:      http.MethodPost,
		Path:        "/days/{date}/activities/{id}/toggle",
		Summary:     "Toggle completion of a to-do",
		Description: "Timed activities are returned unchanged.",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *activityPath) (*activityOutput, error) {
		date, apiErr := h.parseDate(input.Date)
		if apiErr != nil {
			return nil, apiErr
		}
		a, found, err := h.app.Store.ToggleCompletion(ctx, date, input.ID)
		if err != nil {
			return nil, h.handleError(err)
		}
		if !found {
			return nil, notFound(date, input.ID)
		}
		return &activityOutput{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reorder-todos",
		Method:      http.MethodPut,
		Path:        "/days/{date}/todos/order",
		Summary:     "Reorder to-dos",
		Description: "Timed activities keep their order. Unknown ids are ignored; unlisted to-dos follow the listed ones.",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		dayPath
		Body ReorderTodosRequest `json:"body"`
	}) (*dayOutput, error) {
		date, apiErr := h.parseDate(input.Date)
		if apiErr != nil {
			return nil, apiErr
		}
		day, err := h.app.Store.ReorderTodos(ctx, date, input.Body.IDs)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &dayOutput{Body: dayResponse(day)}, nil
	})
}
