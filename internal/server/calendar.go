package server

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"dayplanner/internal/domain"
	"dayplanner/internal/events"
	"dayplanner/internal/ics"
	"dayplanner/internal/search"
)

func (h handlers) registerCalendar(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-month",
		Method:      http.MethodGet,
		Path:        "/calendar/{year}/{month}",
		Summary:     "Month grid",
		Description: "Six weeks starting on the configured week start, including days of the neighbouring months.",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Year  int `path:"year" minimum:"1" maximum:"9999"`
		Month int `path:"month" minimum:"1" maximum:"12"`
	}) (*struct {
		Body MonthResponse `json:"body"`
	}, error) {
		resp := monthResponse(input.Year, time.Month(input.Month), h.app.WeekStart, h.app.Store.Today(), h.app.Reader.ForDate)
		return &struct {
			Body MonthResponse `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-year",
		Method:      http.MethodGet,
		Path:        "/calendar/{year}",
		Summary:     "Year summary",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Year int `path:"year" minimum:"1" maximum:"9999"`
	}) (*struct {
		Body YearResponse `json:"body"`
	}, error) {
		return &struct {
			Body YearResponse `json:"body"`
		}{Body: yearResponse(input.Year, h.app.Reader.ForYear(input.Year))}, nil
	})
}

func (h handlers) registerSearch(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "search",
		Method:      http.MethodGet,
		Path:        "/search",
		Summary:     "Search activities by name",
		Description: "Multi-day activities are returned once. A blank query returns no items.",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Query    string `query:"q"`
		Category string `query:"category" enum:"All,Work,Leisure,Event" default:"All"`
		Limit    int    `query:"limit" default:"10" minimum:"0" maximum:"100"`
	}) (*struct {
		Body SearchResponse `json:"body"`
	}, error) {
		f := search.Filter{Query: input.Query, Category: input.Category, Limit: input.Limit}
		if err := f.Validate(); err != nil {
			return nil, h.handleError(err)
		}
		items := search.Search(h.app.Reader.Snapshot().Activities(), f)
		return &struct {
			Body SearchResponse `json:"body"`
		}{Body: SearchResponse{Items: nonNilSlice(items)}}, nil
	})
}

func (h handlers) registerEvents(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List recent changes",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Type       string `query:"type" enum:"seeded,added,updated,deleted,toggled,reordered"`
		Date       string `query:"date"`
		ActivityID string `query:"activity_id"`
		Limit      int    `query:"limit" default:"50"`
		Cursor     string `query:"cursor"`
	}) (*struct {
		Body paginatedEvents `json:"body"`
	}, error) {
		limit := normalizeLimit(input.Limit, 50, 200)
		f := events.Filter{Type: input.Type, ActivityID: input.ActivityID}
		if input.Date != "" {
			d, apiErr := h.parseDate(input.Date)
			if apiErr != nil {
				return nil, apiErr
			}
			f.Date = d.String()
		}
		if input.Cursor != "" {
			parsed, err := strconv.ParseInt(input.Cursor, 10, 64)
			if err != nil || parsed <= 0 {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
			}
			f.MaxID = parsed
		}
		items, err := h.app.Events.Latest(ctx, limit+1, f)
		if err != nil {
			return nil, h.handleError(err)
		}
		resp := paginatedEvents{Items: []domain.Event{}}
		if len(items) > limit {
			resp.NextCursor = fmt.Sprintf("%d", items[limit].ID)
			items = items[:limit]
		}
		resp.Items = append(resp.Items, items...)
		return &struct {
			Body paginatedEvents `json:"body"`
		}{Body: resp}, nil
	})
}

// registerExport serves the iCalendar feed outside huma since the body is
// not JSON.
func (h handlers) registerExport(r chi.Router, basePath string) {
	r.Get(path.Join(basePath, "export.ics"), func(w http.ResponseWriter, req *http.Request) {
		snap := h.app.Reader.Snapshot()
		if y := req.URL.Query().Get("year"); y != "" {
			year, err := strconv.Atoi(y)
			if err != nil {
				respondStatusError(w, newAPIError(http.StatusBadRequest, "bad_request", "year must be a number", map[string]any{"year": y}))
				return
			}
			snap = snap.Year(year)
		}
		body := ics.Export(snap, ics.Options{Name: "Day Planner", Location: h.app.Location})
		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="planner.ics"`)
		_, _ = w.Write([]byte(body))
	})
}
