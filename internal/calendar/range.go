package calendar

import "fmt"

// Range is an inclusive span of calendar days.
type Range struct {
	Start Date
	End   Date
}

// NewRange returns [start, end]. It fails when end is before start.
func NewRange(start, end Date) (Range, error) {
	if end.Before(start) {
		return Range{}, fmt.Errorf("range end %s is before start %s", end, start)
	}
	return Range{Start: start, End: end}, nil
}

// Single returns the one-day range [d, d].
func Single(d Date) Range {
	return Range{Start: d, End: d}
}

// Len is the number of days covered.
func (r Range) Len() int {
	return r.Start.DaysUntil(r.End) + 1
}

// MultiDay reports whether r covers more than one day.
func (r Range) MultiDay() bool {
	return r.End.After(r.Start)
}

func (r Range) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Days lists every day in r in ascending order.
func (r Range) Days() []Date {
	if r.End.Before(r.Start) {
		return nil
	}
	out := make([]Date, 0, r.Len())
	for d := r.Start; !d.After(r.End); d++ {
		out = append(out, d)
	}
	return out
}

// Minus returns the days of r not covered by o, ascending.
func (r Range) Minus(o Range) []Date {
	var out []Date
	for _, d := range r.Days() {
		if !o.Contains(d) {
			out = append(out, d)
		}
	}
	return out
}

func (r Range) String() string {
	if !r.MultiDay() {
		return r.Start.String()
	}
	return r.Start.String() + ".." + r.End.String()
}
