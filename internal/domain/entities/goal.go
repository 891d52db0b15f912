package entities

// GoalType routes progress updates to matching goals.
type GoalType string

const (
	GoalQuestions  GoalType = "questions"
	GoalStreak     GoalType = "streak"
	GoalAccuracy   GoalType = "accuracy"
	GoalTime       GoalType = "time"
	GoalCategories GoalType = "categories"
)

// DailyGoal is one concrete goal instance for the current calendar day.
// Instances are sampled from a fixed template pool and discarded wholesale
// when the date changes.
type DailyGoal struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Target      int      `json:"target"`
	Current     int      `json:"current"`
	Completed   bool     `json:"completed"`
	Claimed     bool     `json:"claimed"`
	Reward      int      `json:"reward"` // time reward in seconds
	Icon        string   `json:"icon"`
	Type        GoalType `json:"type"`
}

// DailyGoalsData is the GoalTracker persisted blob, scoped to a single day.
type DailyGoalsData struct {
	Date               string       `json:"date"` // YYYY-MM-DD
	Goals              []*DailyGoal `json:"goals"`
	CompletedGoals     int          `json:"completedGoals"`
	TotalRewardsEarned int          `json:"totalRewardsEarned"`
}

// GoalsSummary is the completion overview exposed to the UI.
type GoalsSummary struct {
	Completed  int `json:"completed"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}
