package service

import (
	"time"

	"github.com/brainbites/brainbites-server/internal/domain/entities"
	"github.com/brainbites/brainbites-server/internal/repository"
)

// stubCorpus is a fixed in-memory corpus for tests.
type stubCorpus struct {
	questions []*entities.Question
}

func (c *stubCorpus) GetByID(id int) (*entities.Question, error) {
	for _, q := range c.questions {
		if q.ID == id {
			return q, nil
		}
	}
	return nil, repository.ErrQuestionNotFound
}

func (c *stubCorpus) All() []*entities.Question {
	return c.questions
}

func (c *stubCorpus) Categories() []string {
	seen := map[string]bool{}
	var out []string
	for _, q := range c.questions {
		if !seen[q.Category] {
			seen[q.Category] = true
			out = append(out, q.Category)
		}
	}
	return out
}

func testQuestion(id int, category, level string) *entities.Question {
	return &entities.Question{
		ID:       id,
		Category: category,
		Question: "test question",
		Options: map[string]string{
			"A": "right", "B": "wrong", "C": "wrong", "D": "wrong",
		},
		CorrectAnswer: "A",
		Explanation:   "because",
		Level:         level,
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
