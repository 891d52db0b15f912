package service

import "github.com/brainbites/brainbites-server/internal/domain/entities"

// Achievement is a static definition: an id plus the unlock predicate over
// the score state. Once unlocked an achievement is only removed by a full
// reset.
type Achievement struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`

	Unlocked func(*entities.ScoreData) bool `json:"-"`
}

var defaultAchievements = []Achievement{
	{
		ID:          "first_correct",
		Title:       "First Steps",
		Description: "Answer your first question correctly",
		Icon:        "star",
		Unlocked: func(s *entities.ScoreData) bool {
			return s.CorrectAnswers >= 1
		},
	},
	{
		ID:          "streak_5",
		Title:       "On a Roll",
		Description: "Reach a streak of 5",
		Icon:        "fire",
		Unlocked: func(s *entities.ScoreData) bool {
			return s.HighestStreak >= 5
		},
	},
	{
		ID:          "streak_10",
		Title:       "Unstoppable",
		Description: "Reach a streak of 10",
		Icon:        "rocket",
		Unlocked: func(s *entities.ScoreData) bool {
			return s.HighestStreak >= 10
		},
	},
	{
		ID:          "streak_25",
		Title:       "Quiz Master",
		Description: "Reach a streak of 25",
		Icon:        "crown",
		Unlocked: func(s *entities.ScoreData) bool {
			return s.HighestStreak >= 25
		},
	},
	{
		ID:          "score_100",
		Title:       "Century",
		Description: "Earn 100 points in total",
		Icon:        "medal",
		Unlocked: func(s *entities.ScoreData) bool {
			return s.TotalScore >= 100
		},
	},
	{
		ID:          "score_1000",
		Title:       "Point Collector",
		Description: "Earn 1000 points in total",
		Icon:        "trophy",
		Unlocked: func(s *entities.ScoreData) bool {
			return s.TotalScore >= 1000
		},
	},
	{
		ID:          "questions_50",
		Title:       "Curious Mind",
		Description: "Answer 50 questions",
		Icon:        "head-question",
		Unlocked: func(s *entities.ScoreData) bool {
			return s.QuestionsAnswered >= 50
		},
	},
	{
		ID:          "accuracy_90",
		Title:       "Sharpshooter",
		Description: "Hold 90% accuracy over at least 20 questions",
		Icon:        "target",
		Unlocked: func(s *entities.ScoreData) bool {
			return s.QuestionsAnswered >= 20 && s.Accuracy >= 90
		},
	},
	{
		ID:          "login_7",
		Title:       "Regular",
		Description: "Play 7 days in a row",
		Icon:        "calendar-check",
		Unlocked: func(s *entities.ScoreData) bool {
			return s.DailyStreak >= 7
		},
	},
}

// Achievements returns the static achievement catalog.
func Achievements() []Achievement {
	return defaultAchievements
}
