package service

import (
	"testing"
	"time"
)

func TestSameWeek(t *testing.T) {
	// Weeks start on Sunday: 2025-03-09 opens the week containing 2025-03-10.
	tests := []struct {
		a, b string
		want bool
	}{
		{"2025-03-09", "2025-03-15", true},
		{"2025-03-10", "2025-03-11", true},
		{"2025-03-15", "2025-03-16", false},
		{"2025-03-08", "2025-03-09", false},
	}
	for _, tc := range tests {
		a, _ := parseDate(tc.a)
		b, _ := parseDate(tc.b)
		if got := sameWeek(a, b); got != tc.want {
			t.Errorf("sameWeek(%s, %s) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestSameMonth(t *testing.T) {
	a := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	b := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	c := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	if !sameMonth(a, b) {
		t.Error("same month reported as different")
	}
	if sameMonth(a, c) {
		t.Error("same month of a different year reported as equal")
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	if _, ok := parseDate("not-a-date"); ok {
		t.Error("garbage date parsed")
	}
	if _, ok := parseDate(""); ok {
		t.Error("empty date parsed")
	}
}

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "0s"},
		{45, "45s"},
		{90, "1m 30s"},
		{300, "5m 0s"},
		{3600, "1h 0m"},
		{3725, "1h 2m"},
		{-90, "1m 30s"},
	}
	for _, tc := range tests {
		if got := FormatSeconds(tc.seconds); got != tc.want {
			t.Errorf("FormatSeconds(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}
