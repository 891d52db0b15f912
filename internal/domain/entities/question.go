package entities

// Category and difficulty wildcards accepted by question selection.
// A question itself always carries a concrete category and level.
const (
	CategoryAll     = "All"
	DifficultyMixed = "Mixed"
)

// Difficulty levels a corpus question can carry.
const (
	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

// Question is an immutable corpus entry. The corpus is loaded once at startup
// and never mutated.
type Question struct {
	ID            int               `json:"id"`
	Category      string            `json:"category"`
	Question      string            `json:"question"`
	Options       map[string]string `json:"options"`       // four options keyed by label "A".."D"
	CorrectAnswer string            `json:"correctAnswer"` // label of the correct option
	Explanation   string            `json:"explanation"`
	Level         string            `json:"level"`
}

// UsedQuestions is the persisted record of question ids already issued to a
// device in the current non-repeating cycle.
type UsedQuestions struct {
	UsedIDs     []int `json:"usedIds"`
	LastUpdated int64 `json:"lastUpdated"` // unix milliseconds of the last mutation
}
