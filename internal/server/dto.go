package server

import (
	"time"

	"dayplanner/internal/aggregate"
	"dayplanner/internal/calendar"
	"dayplanner/internal/domain"
	"dayplanner/internal/planner"
)

type DayResponse struct {
	Date       calendar.Date     `json:"date"`
	Activities []domain.Activity `json:"activities"`
	Timeline   []domain.Activity `json:"timeline"`
	Todos      []domain.Activity `json:"todos"`
}

type ReorderTodosRequest struct {
	IDs []string `json:"ids"`
}

type DeleteResponse struct {
	ID      string        `json:"id"`
	Date    calendar.Date `json:"date"`
	Deleted bool          `json:"deleted"`
}

type MonthDay struct {
	Date       calendar.Date     `json:"date"`
	InMonth    bool              `json:"in_month"`
	Today      bool              `json:"today,omitempty"`
	Activities []domain.Activity `json:"activities"`
}

type MonthResponse struct {
	Year      int        `json:"year"`
	Month     int        `json:"month"`
	WeekStart string     `json:"week_start"`
	Days      []MonthDay `json:"days"`
}

type YearDay struct {
	Date  calendar.Date `json:"date"`
	Count int           `json:"count"`
}

type YearMonth struct {
	Month int       `json:"month"`
	Name  string    `json:"name"`
	Count int       `json:"count"`
	Days  []YearDay `json:"days"`
}

type YearResponse struct {
	Year   int         `json:"year"`
	Count  int         `json:"count"`
	Months []YearMonth `json:"months"`
}

type SearchResponse struct {
	Items []domain.Activity `json:"items"`
}

type paginatedEvents struct {
	Items      []domain.Event `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func dayResponse(d *planner.Day) DayResponse {
	return DayResponse{
		Date:       d.Date(),
		Activities: nonNilSlice(d.Activities()),
		Timeline:   nonNilSlice(d.Timeline()),
		Todos:      nonNilSlice(d.Todos()),
	}
}

func monthResponse(year int, month time.Month, weekStart time.Weekday, today calendar.Date, lookup func(calendar.Date) []domain.Activity) MonthResponse {
	grid := calendar.MonthGrid(year, month, weekStart)
	resp := MonthResponse{
		Year:      year,
		Month:     int(month),
		WeekStart: weekStart.String(),
		Days:      make([]MonthDay, 0, len(grid)),
	}
	for _, d := range grid {
		resp.Days = append(resp.Days, MonthDay{
			Date:       d,
			InMonth:    d.Month() == month,
			Today:      d == today,
			Activities: nonNilSlice(lookup(d)),
		})
	}
	return resp
}

func yearResponse(year int, snap aggregate.Snapshot) YearResponse {
	resp := YearResponse{Year: year, Months: make([]YearMonth, 0, 12)}
	for m := time.January; m <= time.December; m++ {
		month := snap.Month(year, m)
		ym := YearMonth{Month: int(m), Name: m.String(), Days: []YearDay{}}
		for _, d := range month.Dates() {
			if n := len(month[d]); n > 0 {
				ym.Days = append(ym.Days, YearDay{Date: d, Count: n})
				ym.Count += n
			}
		}
		resp.Count += ym.Count
		resp.Months = append(resp.Months, ym)
	}
	return resp
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
