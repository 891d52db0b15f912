package entities

import "time"

// DateLayout is the calendar-date format used inside persisted blobs.
const DateLayout = "2006-01-02"

// ScoreData is the ScoreLedger persisted blob.
type ScoreData struct {
	TotalScore        int      `json:"totalScore"`
	DailyScore        int      `json:"dailyScore"`
	CurrentStreak     int      `json:"currentStreak"`
	HighestStreak     int      `json:"highestStreak"`
	QuestionsAnswered int      `json:"questionsAnswered"`
	CorrectAnswers    int      `json:"correctAnswers"`
	WrongAnswers      int      `json:"wrongAnswers"`
	Accuracy          int      `json:"accuracy"` // rounded percentage
	Achievements      []string `json:"achievements"`
	LastPlayDate      string   `json:"lastPlayDate"` // YYYY-MM-DD, drives the login streak
	DailyStreak       int      `json:"dailyStreak"`  // consecutive days with a login
	LastResetDate     string   `json:"lastResetDate"`
}

// NewScoreData creates zeroed score state for a device seen for the first time.
func NewScoreData(now time.Time) *ScoreData {
	return &ScoreData{
		Achievements:  []string{},
		LastResetDate: now.Format(DateLayout),
	}
}

// HasAchievement reports whether the given achievement id is already unlocked.
func (s *ScoreData) HasAchievement(id string) bool {
	for _, a := range s.Achievements {
		if a == id {
			return true
		}
	}
	return false
}
