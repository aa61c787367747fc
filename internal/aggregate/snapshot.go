package aggregate

import (
	"sort"
	"time"

	"dayplanner/internal/calendar"
	"dayplanner/internal/domain"
)

// Snapshot maps each stored date to its collection.
type Snapshot map[calendar.Date][]domain.Activity

// Month returns the entries whose date falls in year/month.
func (s Snapshot) Month(year int, month time.Month) Snapshot {
	out := Snapshot{}
	for d, items := range s {
		if d.Year() == year && d.Month() == month {
			out[d] = items
		}
	}
	return out
}

// Year returns the entries whose date falls in year.
func (s Snapshot) Year(year int) Snapshot {
	out := Snapshot{}
	for d, items := range s {
		if d.Year() == year {
			out[d] = items
		}
	}
	return out
}

// Dates returns the snapshot's dates in ascending order.
func (s Snapshot) Dates() []calendar.Date {
	out := make([]calendar.Date, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Activities flattens the snapshot by date, keeping each date's stored order.
func (s Snapshot) Activities() []domain.Activity {
	var out []domain.Activity
	for _, d := range s.Dates() {
		out = append(out, s[d]...)
	}
	return out
}

// Count is the number of stored copies.
func (s Snapshot) Count() int {
	n := 0
	for _, items := range s {
		n += len(items)
	}
	return n
}

func (s Snapshot) clone() Snapshot {
	out := make(Snapshot, len(s))
	for d, items := range s {
		out[d] = items
	}
	return out
}
