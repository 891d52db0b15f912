package service

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/brainbites/brainbites-server/internal/domain/entities"
	"github.com/brainbites/brainbites-server/internal/storage"
)

// ErrNoQuestionsAvailable means no corpus question matches the requested
// filter at all, even after a fresh used-set cycle. Callers should present
// this as "no content", not as a transient failure.
var ErrNoQuestionsAvailable = errors.New("no questions available")

// Corpus is the read-only question source the bank selects from.
type Corpus interface {
	GetByID(id int) (*entities.Question, error)
	All() []*entities.Question
	Categories() []string
}

// UsedQuestionsRepo persists the per-device used-id record.
type UsedQuestionsRepo interface {
	Load(ctx context.Context, deviceID string) (*entities.UsedQuestions, error)
	Save(ctx context.Context, deviceID string, data *entities.UsedQuestions) error
	Delete(ctx context.Context, deviceID string) error
}

// CorpusStats summarizes the corpus for a device.
type CorpusStats struct {
	Total        int            `json:"total"`
	Used         int            `json:"used"`
	Remaining    int            `json:"remaining"`
	ByCategory   map[string]int `json:"byCategory"`
	ByDifficulty map[string]int `json:"byDifficulty"`
}

// QuestionBank issues non-repeating random questions per device. A question
// id is never re-issued while an unseen question matches the active filter;
// once the filtered pool is exhausted the whole used set is cleared and a new
// cycle begins.
type QuestionBank struct {
	corpus   Corpus
	usedRepo UsedQuestionsRepo
	logger   *zap.Logger

	mu   sync.Mutex
	used map[string]map[int]bool // deviceID -> used question ids
	rng  *rand.Rand
	now  func() time.Time
}

// QuestionBankOption configures a QuestionBank.
type QuestionBankOption func(*QuestionBank)

// WithBankRand overrides the random source. Intended for tests.
func WithBankRand(rng *rand.Rand) QuestionBankOption {
	return func(b *QuestionBank) { b.rng = rng }
}

// WithBankClock overrides the wall clock. Intended for tests.
func WithBankClock(now func() time.Time) QuestionBankOption {
	return func(b *QuestionBank) { b.now = now }
}

func NewQuestionBank(corpus Corpus, usedRepo UsedQuestionsRepo, logger *zap.Logger, opts ...QuestionBankOption) *QuestionBank {
	b := &QuestionBank{
		corpus:   corpus,
		usedRepo: usedRepo,
		logger:   logger,
		used:     make(map[string]map[int]bool),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Select picks a random unused question matching the category and difficulty
// filter for the device. CategoryAll and DifficultyMixed act as wildcards.
// When the filtered pool is exhausted the entire used set is cleared, not just
// the entries matching the filter, and selection restarts from the full
// filtered corpus.
func (b *QuestionBank) Select(ctx context.Context, deviceID, category, difficulty string) (*entities.Question, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	used := b.loadUsedLocked(ctx, deviceID)

	candidates := b.filter(category, difficulty, used)
	if len(candidates) == 0 {
		// Exhausted: start a fresh cycle across the whole corpus.
		for id := range used {
			delete(used, id)
		}
		candidates = b.filter(category, difficulty, used)
	}

	if len(candidates) == 0 {
		return nil, ErrNoQuestionsAvailable
	}

	q := candidates[b.rng.Intn(len(candidates))]
	used[q.ID] = true
	b.persistUsedLocked(ctx, deviceID, used)

	return q, nil
}

// ResetUsed clears the device's used set and its persisted record.
func (b *QuestionBank) ResetUsed(ctx context.Context, deviceID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.used[deviceID] = make(map[int]bool)
	if err := b.usedRepo.Delete(ctx, deviceID); err != nil {
		b.logger.Warn("failed to delete used questions",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
	}
}

// Categories lists the distinct categories in the corpus.
func (b *QuestionBank) Categories() []string {
	return b.corpus.Categories()
}

// Stats summarizes corpus usage for the device.
func (b *QuestionBank) Stats(ctx context.Context, deviceID string) CorpusStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	used := b.loadUsedLocked(ctx, deviceID)
	all := b.corpus.All()

	stats := CorpusStats{
		Total:        len(all),
		Used:         len(used),
		Remaining:    len(all) - len(used),
		ByCategory:   make(map[string]int),
		ByDifficulty: make(map[string]int),
	}
	for _, q := range all {
		stats.ByCategory[q.Category]++
		stats.ByDifficulty[q.Level]++
	}

	return stats
}

func (b *QuestionBank) filter(category, difficulty string, used map[int]bool) []*entities.Question {
	var candidates []*entities.Question
	for _, q := range b.corpus.All() {
		if used[q.ID] {
			continue
		}
		if category != "" && category != entities.CategoryAll && q.Category != category {
			continue
		}
		if difficulty != "" && difficulty != entities.DifficultyMixed && q.Level != difficulty {
			continue
		}
		candidates = append(candidates, q)
	}

	return candidates
}

// loadUsedLocked returns the cached used set for the device, reading the
// persisted record on first access. A failed read degrades to an empty set.
func (b *QuestionBank) loadUsedLocked(ctx context.Context, deviceID string) map[int]bool {
	if used, ok := b.used[deviceID]; ok {
		return used
	}

	used := make(map[int]bool)
	record, err := b.usedRepo.Load(ctx, deviceID)
	switch {
	case err == nil:
		for _, id := range record.UsedIDs {
			used[id] = true
		}
	case !errors.Is(err, storage.ErrNotFound):
		b.logger.Warn("failed to load used questions",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
	}

	b.used[deviceID] = used
	return used
}

// persistUsedLocked writes the used set best-effort; the in-memory set stays
// authoritative for the session on failure.
func (b *QuestionBank) persistUsedLocked(ctx context.Context, deviceID string, used map[int]bool) {
	ids := make([]int, 0, len(used))
	for id := range used {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	record := &entities.UsedQuestions{
		UsedIDs:     ids,
		LastUpdated: b.now().UnixMilli(),
	}
	if err := b.usedRepo.Save(ctx, deviceID, record); err != nil {
		b.logger.Warn("failed to save used questions",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
	}
}
