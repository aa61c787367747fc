package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dayplanner/internal/calendar"
)

func ptr[T any](v T) *T { return &v }

func TestDraftValidate(t *testing.T) {
	day := calendar.MustParse("2024-06-02")
	cases := []struct {
		name  string
		draft Draft
		ok    bool
	}{
		{"minimal todo", Draft{Name: "Read", Category: CategoryLeisure}, true},
		{"timed", Draft{Name: "Standup", Category: CategoryWork, Time: "08:30", EndTime: "09:00"}, true},
		{"blank name", Draft{Name: "  ", Category: CategoryWork}, false},
		{"bad category", Draft{Name: "x", Category: "Chores"}, false},
		{"bad time", Draft{Name: "x", Category: CategoryWork, Time: "8:30"}, false},
		{"bad end time", Draft{Name: "x", Category: CategoryWork, EndTime: "25:00"}, false},
		{"end before start", Draft{Name: "x", Category: CategoryWork, EndDate: ptr(calendar.MustParse("2024-06-01"))}, false},
		{"end equals start", Draft{Name: "x", Category: CategoryWork, EndDate: ptr(day)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.draft.Validate(day)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalid)
			}
		})
	}
}

func TestDraftBuild(t *testing.T) {
	day := calendar.MustParse("2024-06-01")

	todo := Draft{Name: " Call Mom ", Category: CategoryEvent}.Build("a1", day)
	assert.Equal(t, "Call Mom", todo.Name)
	assert.True(t, todo.IsTodo())
	require.NotNil(t, todo.Completed)
	assert.False(t, *todo.Completed)
	require.NotNil(t, todo.StartDate)
	assert.Equal(t, day, *todo.StartDate)
	assert.Nil(t, todo.EndDate)

	timed := Draft{Name: "Gym", Category: CategoryLeisure, Time: "15:00", Completed: ptr(true)}.Build("a2", day)
	assert.False(t, timed.IsTodo())
	assert.Nil(t, timed.Completed)
	assert.False(t, timed.IsCompleted())

	same := Draft{Name: "x", Category: CategoryWork, EndDate: ptr(day)}.Build("a3", day)
	assert.Nil(t, same.EndDate, "an endDate equal to the start is a single-day activity")

	trip := Draft{Name: "Trip", Category: CategoryEvent, EndDate: ptr(calendar.MustParse("2024-06-03"))}.Build("a4", day)
	assert.Equal(t, 3, trip.Span().Len())
}

func TestSpanFallbacks(t *testing.T) {
	d := calendar.MustParse("2024-06-02")
	legacy := Activity{ID: "1", Date: d}
	assert.Equal(t, calendar.Single(d), legacy.Span())

	legacy.EndDate = ptr(calendar.MustParse("2024-06-04"))
	assert.Equal(t, calendar.Range{Start: d, End: calendar.MustParse("2024-06-04")}, legacy.Span())

	backwards := Activity{ID: "2", Date: d, EndDate: ptr(calendar.MustParse("2024-05-01"))}
	assert.False(t, backwards.Span().MultiDay())
}

func TestPatchApply(t *testing.T) {
	d := calendar.MustParse("2024-06-01")
	a := Draft{Name: "Trip", Category: CategoryEvent, EndDate: ptr(calendar.MustParse("2024-06-03"))}.Build("id", d)
	copyAt := a.At(calendar.MustParse("2024-06-02"))

	out := Patch{Name: ptr("Trip v2")}.Apply(copyAt)
	assert.Equal(t, "Trip v2", out.Name)
	assert.Equal(t, "id", out.ID)
	assert.Equal(t, calendar.MustParse("2024-06-02"), out.Date)
	assert.Equal(t, "Trip", copyAt.Name, "apply must not mutate its input")

	cleared := Patch{ClearEndDate: true}.Apply(a)
	assert.Nil(t, cleared.EndDate)
	require.NotNil(t, a.EndDate)

	timed := Patch{Time: ptr("09:00")}.Apply(a)
	assert.Nil(t, timed.Completed)

	back := Patch{Time: ptr("")}.Apply(timed)
	require.NotNil(t, back.Completed)
	assert.False(t, *back.Completed)

	assert.True(t, Patch{}.Empty())
	assert.ErrorIs(t, Patch{Name: ptr(" ")}.Validate(), ErrInvalid)
	assert.ErrorIs(t, Patch{ClearEndDate: true, EndDate: &d}.Validate(), ErrInvalid)
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("leisure")
	require.NoError(t, err)
	assert.Equal(t, CategoryLeisure, c)
	_, err = ParseCategory("All")
	assert.ErrorIs(t, err, ErrInvalid)
}
