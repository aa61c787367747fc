package main

import (
	"testing"
	"time"

	"dayplanner/internal/calendar"
	"dayplanner/internal/domain"
)

func TestIsLoopback(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:8080": true,
		"localhost:80":   true,
		"[::1]:8080":     true,
		"0.0.0.0:8080":   false,
		":8080":          false,
	}
	for addr, want := range cases {
		if got := isLoopback(addr); got != want {
			t.Fatalf("isLoopback(%q) = %v, want %v", addr, got, want)
		}
	}
}

func TestMonthCell(t *testing.T) {
	today := calendar.MustParse("2024-06-10")
	if got := monthCell(calendar.MustParse("2024-05-31"), time.June, today, 3); got != "" {
		t.Fatalf("out of month cell = %q", got)
	}
	if got := monthCell(today, time.June, today, 2); got != "[10] (2)" {
		t.Fatalf("today cell = %q", got)
	}
	if got := monthCell(calendar.MustParse("2024-06-03"), time.June, today, 0); got != "3" {
		t.Fatalf("empty cell = %q", got)
	}
}

func TestLabels(t *testing.T) {
	end := calendar.MustParse("2024-06-03")
	done := true
	todo := domain.Activity{Date: calendar.MustParse("2024-06-01"), EndDate: &end, Completed: &done}
	if timeLabel(todo) != "-" || checkbox(todo) != "[x]" {
		t.Fatalf("unexpected todo labels %q %q", timeLabel(todo), checkbox(todo))
	}
	if got := rangeLabel(todo); got != "2024-06-01..2024-06-03" {
		t.Fatalf("rangeLabel = %q", got)
	}
	timed := domain.Activity{Date: end, Time: "09:00", EndTime: "10:30"}
	if timeLabel(timed) != "09:00-10:30" || rangeLabel(timed) != "" || checkbox(timed) != "[ ]" {
		t.Fatalf("unexpected timed labels")
	}
}
