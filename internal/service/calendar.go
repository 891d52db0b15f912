package service

import (
	"fmt"
	"time"

	"github.com/brainbites/brainbites-server/internal/domain/entities"
)

func dateString(t time.Time) string {
	return t.Format(entities.DateLayout)
}

func parseDate(s string) (time.Time, bool) {
	t, err := time.Parse(entities.DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// weekStart truncates t to the start of its week. Weeks start on Sunday.
func weekStart(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return day.AddDate(0, 0, -int(day.Weekday()))
}

func sameWeek(a, b time.Time) bool {
	return weekStart(a).Equal(weekStart(b))
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// FormatSeconds renders a second count the way the mobile UI displays time.
func FormatSeconds(seconds int) string {
	if seconds < 0 {
		seconds = -seconds
	}

	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, secs)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}
