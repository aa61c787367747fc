package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"dayplanner/internal/calendar"
)

// ErrInvalid marks caller input that cannot be applied.
var ErrInvalid = errors.New("invalid input")

type Category string

const (
	CategoryWork    Category = "Work"
	CategoryLeisure Category = "Leisure"
	CategoryEvent   Category = "Event"
)

// Categories lists the closed set in display order.
var Categories = []Category{CategoryWork, CategoryLeisure, CategoryEvent}

func (c Category) Valid() bool {
	switch c {
	case CategoryWork, CategoryLeisure, CategoryEvent:
		return true
	}
	return false
}

// ParseCategory accepts a category name in any letter case.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: category %q must be one of Work, Leisure, Event", ErrInvalid, s)
}

// Activity is one stored copy of a planner item. Copies of a multi-day
// activity share ID and differ only in Date.
type Activity struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Category    Category       `json:"category" enum:"Work,Leisure,Event"`
	Date        calendar.Date  `json:"date"`
	StartDate   *calendar.Date `json:"startDate,omitempty"`
	Time        string         `json:"time,omitempty"`
	EndTime     string         `json:"endTime,omitempty"`
	EndDate     *calendar.Date `json:"endDate,omitempty"`
	Completed   *bool          `json:"completed,omitempty"`
	Description string         `json:"description,omitempty"`
}

// IsTodo reports whether a is an untimed to-do item.
func (a Activity) IsTodo() bool { return a.Time == "" }

// IsCompleted is false for timed items and unset flags.
func (a Activity) IsCompleted() bool {
	return a.IsTodo() && a.Completed != nil && *a.Completed
}

// Span returns the days a covers. A missing startDate falls back to the
// copy's own date; a missing or earlier endDate collapses to one day.
func (a Activity) Span() calendar.Range {
	start := a.Date
	if a.StartDate != nil {
		start = *a.StartDate
	}
	if a.EndDate == nil || !a.EndDate.After(start) {
		return calendar.Single(start)
	}
	return calendar.Range{Start: start, End: *a.EndDate}
}

// At returns a copy of a filed under d.
func (a Activity) At(d calendar.Date) Activity {
	c := a
	c.Date = d
	c.StartDate = datePtr(a.StartDate)
	c.EndDate = datePtr(a.EndDate)
	if a.Completed != nil {
		v := *a.Completed
		c.Completed = &v
	}
	return c
}

// normalize re-establishes the to-do invariant.
func (a *Activity) normalize() {
	if a.Time != "" {
		a.Completed = nil
		return
	}
	if a.Completed == nil {
		f := false
		a.Completed = &f
	}
}

// Draft is the input for creating an activity.
type Draft struct {
	Name        string         `json:"name"`
	Category    Category       `json:"category" enum:"Work,Leisure,Event"`
	Time        string         `json:"time,omitempty"`
	EndTime     string         `json:"endTime,omitempty"`
	EndDate     *calendar.Date `json:"endDate,omitempty"`
	Completed   *bool          `json:"completed,omitempty"`
	Description string         `json:"description,omitempty"`
}

// Validate checks a draft against the day it will be filed under.
func (d Draft) Validate(selected calendar.Date) error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if !d.Category.Valid() {
		return fmt.Errorf("%w: category %q must be one of Work, Leisure, Event", ErrInvalid, d.Category)
	}
	if err := validClock("time", d.Time); err != nil {
		return err
	}
	if err := validClock("endTime", d.EndTime); err != nil {
		return err
	}
	if d.EndDate != nil && d.EndDate.Before(selected) {
		return fmt.Errorf("%w: endDate %s is before %s", ErrInvalid, d.EndDate, selected)
	}
	return nil
}

// Build turns d into the first copy of a new activity.
func (d Draft) Build(id string, selected calendar.Date) Activity {
	a := Activity{
		ID:          id,
		Name:        strings.TrimSpace(d.Name),
		Category:    d.Category,
		Date:        selected,
		StartDate:   datePtr(&selected),
		Time:        d.Time,
		EndTime:     d.EndTime,
		Description: d.Description,
	}
	if d.EndDate != nil && *d.EndDate != selected {
		a.EndDate = datePtr(d.EndDate)
	}
	if d.Completed != nil {
		v := *d.Completed
		a.Completed = &v
	}
	a.normalize()
	return a
}

// Patch is a field-level partial update. Nil fields are left alone.
type Patch struct {
	Name         *string        `json:"name,omitempty"`
	Category     *Category      `json:"category,omitempty" enum:"Work,Leisure,Event"`
	Time         *string        `json:"time,omitempty"`
	EndTime      *string        `json:"endTime,omitempty"`
	StartDate    *calendar.Date `json:"startDate,omitempty"`
	EndDate      *calendar.Date `json:"endDate,omitempty"`
	ClearEndDate bool           `json:"clearEndDate,omitempty"`
	Completed    *bool          `json:"completed,omitempty"`
	Description  *string        `json:"description,omitempty"`
}

func (p Patch) Empty() bool {
	return p.Name == nil && p.Category == nil && p.Time == nil && p.EndTime == nil &&
		p.StartDate == nil && p.EndDate == nil && !p.ClearEndDate && p.Completed == nil && p.Description == nil
}

func (p Patch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalid)
	}
	if p.Category != nil && !p.Category.Valid() {
		return fmt.Errorf("%w: category %q must be one of Work, Leisure, Event", ErrInvalid, *p.Category)
	}
	if p.Time != nil {
		if err := validClock("time", *p.Time); err != nil {
			return err
		}
	}
	if p.EndTime != nil {
		if err := validClock("endTime", *p.EndTime); err != nil {
			return err
		}
	}
	if p.ClearEndDate && p.EndDate != nil {
		return fmt.Errorf("%w: endDate and clearEndDate are exclusive", ErrInvalid)
	}
	return nil
}

// Apply merges p into a. ID and Date are never touched.
func (p Patch) Apply(a Activity) Activity {
	out := a.At(a.Date)
	if p.Name != nil {
		out.Name = strings.TrimSpace(*p.Name)
	}
	if p.Category != nil {
		out.Category = *p.Category
	}
	if p.Time != nil {
		out.Time = *p.Time
	}
	if p.EndTime != nil {
		out.EndTime = *p.EndTime
	}
	if p.StartDate != nil {
		out.StartDate = datePtr(p.StartDate)
	}
	if p.EndDate != nil {
		out.EndDate = datePtr(p.EndDate)
	}
	if p.ClearEndDate {
		out.EndDate = nil
	}
	if p.Completed != nil {
		v := *p.Completed
		out.Completed = &v
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	out.normalize()
	return out
}

// Event is a persisted change-log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	Date       string `json:"date"`
	ActivityID string `json:"activity_id,omitempty"`
}

func validClock(field, v string) error {
	if v == "" {
		return nil
	}
	if _, err := time.Parse("15:04", v); err != nil || len(v) != 5 {
		return fmt.Errorf("%w: %s %q must be HH:MM", ErrInvalid, field, v)
	}
	return nil
}

func datePtr(d *calendar.Date) *calendar.Date {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}
