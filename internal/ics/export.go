// Package ics renders stored activities as an iCalendar feed.
package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"dayplanner/internal/aggregate"
	"dayplanner/internal/calendar"
	"dayplanner/internal/domain"
)

const ProductID = "-//dayplanner//planner export//EN"

type Options struct {
	// Name is written as X-WR-CALNAME when set.
	Name     string
	Location *time.Location
	Now      func() time.Time
}

// Export writes one VEVENT per activity id. Copies of a multi-day activity
// collapse into a single event spanning its range. Untimed activities are
// all-day events; timed ones run from date+time to endDate+endTime in
// opts.Location.
func Export(snap aggregate.Snapshot, opts Options) string {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	stamp := opts.Now().UTC()

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}

	seen := map[string]bool{}
	for _, a := range snap.Activities() {
		if seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		addEvent(cal, a, opts.Location, stamp)
	}
	return cal.Serialize()
}

func addEvent(cal *ical.Calendar, a domain.Activity, loc *time.Location, stamp time.Time) {
	span := a.Span()
	ev := cal.AddEvent(a.ID + "@dayplanner")
	ev.SetDtStampTime(stamp)
	ev.SetSummary(a.Name)
	if a.Description != "" {
		ev.SetDescription(a.Description)
	}
	ev.SetProperty(ical.ComponentPropertyCategories, string(a.Category))

	if a.IsTodo() {
		ev.SetAllDayStartAt(span.Start.Time(loc))
		// DTEND is exclusive for all-day events.
		ev.SetAllDayEndAt(span.End.AddDays(1).Time(loc))
		return
	}
	start := at(span.Start, a.Time, loc)
	endClock := a.EndTime
	if endClock == "" {
		endClock = a.Time
	}
	end := at(span.End, endClock, loc)
	if !end.After(start) {
		end = start.Add(time.Hour)
	}
	ev.SetStartAt(start)
	ev.SetEndAt(end)
}

// at combines a date with an HH:MM clock. Invalid clocks fall back to
// midnight.
func at(d calendar.Date, clock string, loc *time.Location) time.Time {
	base := d.Time(loc)
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return base
	}
	y, m, day := base.Date()
	return time.Date(y, m, day, t.Hour(), t.Minute(), 0, 0, loc)
}
