package planner

import (
	"dayplanner/internal/calendar"
	"dayplanner/internal/domain"
)

// exampleActivities is the demo content a first visit sees on today.
func exampleActivities(d calendar.Date, newID func() string) []domain.Activity {
	drafts := []domain.Draft{
		{Name: "Team Standup Meeting", Category: domain.CategoryWork, Time: "08:30"},
		{Name: "Doctor Appointment", Category: domain.CategoryEvent, Time: "11:00"},
		{Name: "Gym Session", Category: domain.CategoryLeisure, Time: "15:00"},
		{Name: "Finish CS Assignment", Category: domain.CategoryWork},
		{Name: "Call Mom", Category: domain.CategoryEvent},
		{Name: "Read 10 pages of a book", Category: domain.CategoryLeisure},
	}
	out := make([]domain.Activity, 0, len(drafts))
	for _, dr := range drafts {
		out = append(out, dr.Build(newID(), d))
	}
	return out
}
