package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/brainbites/brainbites-server/internal/domain/entities"
)

var ErrQuestionNotFound = errors.New("question not found")

// CorpusRepository provides access to the static question corpus.
// The corpus is read once from a bundled JSON file and never mutated.
type CorpusRepository struct {
	questions  []*entities.Question
	byID       map[int]*entities.Question
	categories []string
}

// NewCorpusRepository loads the question corpus from the given JSON file.
func NewCorpusRepository(path string) (*CorpusRepository, error) {
	questions, err := loadQuestions(path)
	if err != nil {
		return nil, err
	}

	byID := make(map[int]*entities.Question, len(questions))
	categorySet := make(map[string]bool)
	for _, q := range questions {
		if _, dup := byID[q.ID]; dup {
			return nil, fmt.Errorf("duplicate question id %d", q.ID)
		}
		byID[q.ID] = q
		categorySet[q.Category] = true
	}

	categories := make([]string, 0, len(categorySet))
	for c := range categorySet {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	return &CorpusRepository{
		questions:  questions,
		byID:       byID,
		categories: categories,
	}, nil
}

// GetByID retrieves a question by its id.
func (r *CorpusRepository) GetByID(id int) (*entities.Question, error) {
	q, ok := r.byID[id]
	if !ok {
		return nil, ErrQuestionNotFound
	}

	return q, nil
}

// All retrieves every question in the corpus.
func (r *CorpusRepository) All() []*entities.Question {
	return r.questions
}

// Categories retrieves the distinct categories present in the corpus, sorted.
func (r *CorpusRepository) Categories() []string {
	return r.categories
}

func loadQuestions(path string) ([]*entities.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var wrapper struct {
		Questions []*entities.Question `json:"questions"`
	}
	if err = json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("failed to unmarshal questions JSON: %w", err)
	}

	if len(wrapper.Questions) == 0 {
		return nil, fmt.Errorf("question corpus at %s is empty", path)
	}

	return wrapper.Questions, nil
}
