package entities

import "time"

const (
	// StartingTimeGrant is the balance a fresh or fully reset timer starts with.
	StartingTimeGrant = 300

	// OvertimeFloor bounds how far background usage may drive the balance
	// below zero.
	OvertimeFloor = -300
)

// TimerData is the TimeLedger persisted blob. AvailableTime may be negative,
// representing overtime debt accumulated while the app was backgrounded.
type TimerData struct {
	AvailableTime     int    `json:"availableTime"`  // seconds
	LastUpdateTime    string `json:"lastUpdateTime"` // RFC 3339
	DailyTimeEarned   int    `json:"dailyTimeEarned"`
	WeeklyTimeEarned  int    `json:"weeklyTimeEarned"`
	MonthlyTimeEarned int    `json:"monthlyTimeEarned"`
	NegativeTime      int    `json:"negativeTime"` // overtime seconds awaiting a score penalty
	LastResetDate     string `json:"lastResetDate"` // YYYY-MM-DD
}

// NewTimerData creates timer state for a device seen for the first time.
func NewTimerData(now time.Time) *TimerData {
	return &TimerData{
		AvailableTime:  StartingTimeGrant,
		LastUpdateTime: now.Format(time.RFC3339),
		LastResetDate:  now.Format(DateLayout),
	}
}

// TimeStats is the earned-counter snapshot exposed to the UI.
type TimeStats struct {
	Daily   int `json:"daily"`
	Weekly  int `json:"weekly"`
	Monthly int `json:"monthly"`
}
