// Package calendar implements calendar-day arithmetic on a date-only value.
//
// A Date is the number of days since 1970-01-01 in the proleptic Gregorian
// calendar. It carries no time of day and no location, so stepping through a
// range is integer addition and never crosses a DST or zone boundary.
package calendar

import (
	"fmt"
	"time"
)

// Layout is the ISO calendar-day format used for keys and JSON.
const Layout = "2006-01-02"

// Date is a calendar day counted from the Unix epoch.
type Date int32

// FromCivil returns the Date for year, month and day. Out-of-range months
// and days are normalized the way time.Date normalizes them.
func FromCivil(year int, month time.Month, day int) Date {
	if month < time.January || month > time.December || day < 1 || day > DaysIn(year, month) {
		t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		year, month, day = t.Date()
	}
	y := int64(year)
	m := int64(month)
	if m <= 2 {
		y--
	}
	era := floorDiv(y, 400)
	yoe := y - era*400
	mp := (m + 9) % 12
	doy := (153*mp+2)/5 + int64(day) - 1
	doe := yoe*365 + yoe/4 - yoe/100 + doy
	return Date(era*146097 + doe - 719468)
}

// FromTime returns the calendar day of t in t's own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return FromCivil(y, m, d)
}

// Today returns the current calendar day in loc. A nil loc means time.Local.
func Today(now time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	return FromTime(now.In(loc))
}

// Parse reads a YYYY-MM-DD string.
func Parse(s string) (Date, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return FromTime(t), nil
}

// MustParse is Parse for literals; it panics on bad input.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Civil returns the year, month and day of d.
func (d Date) Civil() (int, time.Month, int) {
	z := int64(d) + 719468
	era := floorDiv(z, 146097)
	doe := z - era*146097
	yoe := (doe - doe/1460 + doe/36524 - doe/146096) / 365
	y := yoe + era*400
	doy := doe - (365*yoe + yoe/4 - yoe/100)
	mp := (5*doy + 2) / 153
	day := doy - (153*mp+2)/5 + 1
	month := mp + 3
	if month > 12 {
		month -= 12
	}
	if month <= 2 {
		y++
	}
	return int(y), time.Month(month), int(day)
}

func (d Date) Year() int {
	y, _, _ := d.Civil()
	return y
}

func (d Date) Month() time.Month {
	_, m, _ := d.Civil()
	return m
}

func (d Date) Day() int {
	_, _, day := d.Civil()
	return day
}

// Weekday returns the day of the week; 1970-01-01 was a Thursday.
func (d Date) Weekday() time.Weekday {
	return time.Weekday(floorMod(int64(d)+4, 7))
}

func (d Date) AddDays(n int) Date { return d + Date(n) }

func (d Date) Before(o Date) bool { return d < o }

func (d Date) After(o Date) bool { return d > o }

// DaysUntil returns o - d in days.
func (d Date) DaysUntil(o Date) int { return int(o - d) }

// Time returns midnight of d in loc.
func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, day := d.Civil()
	return time.Date(y, m, day, 0, 0, 0, 0, loc)
}

func (d Date) String() string {
	y, m, day := d.Civil()
	return fmt.Sprintf("%04d-%02d-%02d", y, int(m), day)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// DaysIn returns the number of days in month of year.
func DaysIn(year int, month time.Month) int {
	switch month {
	case time.February:
		if IsLeap(year) {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}

func IsLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// MonthGrid returns the 42 days (six weeks) shown for month, starting on the
// last weekStart on or before the first of the month.
func MonthGrid(year int, month time.Month, weekStart time.Weekday) []Date {
	first := FromCivil(year, month, 1)
	offset := floorMod(int64(first.Weekday())-int64(weekStart), 7)
	start := first.AddDays(-int(offset))
	grid := make([]Date, 42)
	for i := range grid {
		grid[i] = start.AddDays(i)
	}
	return grid
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	return a - floorDiv(a, b)*b
}
