package service

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/brainbites/brainbites-server/internal/domain/entities"
	"github.com/brainbites/brainbites-server/internal/storage"
)

// accuracyGoalMinQuestions gates accuracy goals until enough answers exist
// for the percentage to mean anything.
const accuracyGoalMinQuestions = 5

// GoalsRepo persists the per-device daily goals blob.
type GoalsRepo interface {
	Load(ctx context.Context, deviceID string) (*entities.DailyGoalsData, error)
	Save(ctx context.Context, deviceID string, data *entities.DailyGoalsData) error
	Delete(ctx context.Context, deviceID string) error
}

// goalTemplates is the fixed pool a day's goals are sampled from.
var goalTemplates = []entities.DailyGoal{
	{
		ID:          "daily_questions_5",
		Title:       "Quiz Starter",
		Description: "Answer 5 questions",
		Target:      5,
		Reward:      60,
		Icon:        "help-circle",
		Type:        entities.GoalQuestions,
	},
	{
		ID:          "daily_questions_10",
		Title:       "Knowledge Seeker",
		Description: "Answer 10 questions",
		Target:      10,
		Reward:      120,
		Icon:        "help-circle-outline",
		Type:        entities.GoalQuestions,
	},
	{
		ID:          "daily_streak_3",
		Title:       "Streak Builder",
		Description: "Get 3 correct answers in a row",
		Target:      3,
		Reward:      90,
		Icon:        "fire",
		Type:        entities.GoalStreak,
	},
	{
		ID:          "daily_accuracy_80",
		Title:       "Sharp Mind",
		Description: "Achieve 80% accuracy (min 5 questions)",
		Target:      80,
		Reward:      150,
		Icon:        "target",
		Type:        entities.GoalAccuracy,
	},
	{
		ID:          "daily_time_5",
		Title:       "Time Investor",
		Description: "Earn 5 minutes of screen time",
		Target:      300,
		Reward:      120,
		Icon:        "clock-outline",
		Type:        entities.GoalTime,
	},
	{
		ID:          "daily_categories_2",
		Title:       "Category Explorer",
		Description: "Play in 2 different categories",
		Target:      2,
		Reward:      100,
		Icon:        "shape-outline",
		Type:        entities.GoalCategories,
	},
}

// ProgressContext carries the extra facts some goal types need when routing
// a progress update.
type ProgressContext struct {
	TotalQuestions int // answered so far, gates accuracy goals
	CorrectAnswers int
	Categories     int // distinct categories seen this session
}

// GoalTracker owns the day-scoped goal set for one device. A new calendar day
// discards yesterday's instances entirely; there is no carry-over.
type GoalTracker struct {
	deviceID string
	repo     GoalsRepo
	logger   *zap.Logger
	now      func() time.Time
	rng      *rand.Rand

	data *entities.DailyGoalsData
}

// GoalTrackerOption configures a GoalTracker.
type GoalTrackerOption func(*GoalTracker)

// WithGoalsClock overrides the wall clock. Intended for tests.
func WithGoalsClock(now func() time.Time) GoalTrackerOption {
	return func(t *GoalTracker) { t.now = now }
}

// WithGoalsRand overrides the random source. Intended for tests.
func WithGoalsRand(rng *rand.Rand) GoalTrackerOption {
	return func(t *GoalTracker) { t.rng = rng }
}

func NewGoalTracker(deviceID string, repo GoalsRepo, logger *zap.Logger, opts ...GoalTrackerOption) *GoalTracker {
	t := &GoalTracker{
		deviceID: deviceID,
		repo:     repo,
		logger:   logger,
		now:      time.Now,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// LoadOrGenerate reuses the persisted goal set when it is dated today,
// otherwise discards it and samples a fresh set.
func (t *GoalTracker) LoadOrGenerate(ctx context.Context) {
	today := dateString(t.now())

	data, err := t.repo.Load(ctx, t.deviceID)
	if err == nil && data.Date == today {
		t.data = data
		return
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		t.logger.Warn("failed to load daily goals",
			zap.String("device_id", t.deviceID),
			zap.Error(err),
		)
	}

	t.generate(ctx, today)
}

// generate samples 3 or 4 templates without replacement and persists the new
// day's set.
func (t *GoalTracker) generate(ctx context.Context, today string) {
	count := 3
	if t.rng.Intn(2) == 1 {
		count = 4
	}

	shuffled := make([]entities.DailyGoal, len(goalTemplates))
	copy(shuffled, goalTemplates)
	t.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	goals := make([]*entities.DailyGoal, 0, count)
	for i := 0; i < count && i < len(shuffled); i++ {
		goal := shuffled[i]
		goal.Current = 0
		goal.Completed = false
		goal.Claimed = false
		goals = append(goals, &goal)
	}

	t.data = &entities.DailyGoalsData{
		Date:  today,
		Goals: goals,
	}
	t.save(ctx)
}

// Goals returns the current day's goal instances.
func (t *GoalTracker) Goals() []*entities.DailyGoal {
	if t.data == nil {
		return nil
	}
	return t.data.Goals
}

// UpdateProgress routes a progress update to goals of the matching type and
// returns the goals that completed on this call. A goal completes exactly
// once; already-completed goals are never reported again.
func (t *GoalTracker) UpdateProgress(ctx context.Context, goalType entities.GoalType, value int, pctx ProgressContext) []*entities.DailyGoal {
	if t.data == nil {
		return nil
	}

	var completed []*entities.DailyGoal
	changed := false

	for _, goal := range t.data.Goals {
		if goal.Completed || goal.Type != goalType {
			continue
		}

		switch goal.Type {
		case entities.GoalQuestions, entities.GoalTime:
			goal.Current += value
		case entities.GoalStreak:
			if value <= goal.Current {
				continue
			}
			goal.Current = value
		case entities.GoalAccuracy:
			if pctx.TotalQuestions < accuracyGoalMinQuestions {
				continue
			}
			ratio := float64(pctx.CorrectAnswers) / float64(pctx.TotalQuestions)
			goal.Current = int(math.Round(ratio * 100))
		case entities.GoalCategories:
			goal.Current = pctx.Categories
		default:
			continue
		}
		changed = true

		if goal.Current >= goal.Target {
			goal.Completed = true
			t.data.CompletedGoals++
			t.data.TotalRewardsEarned += goal.Reward
			completed = append(completed, goal)

			t.logger.Info("daily goal completed",
				zap.String("device_id", t.deviceID),
				zap.String("goal", goal.ID),
			)
		}
	}

	if changed {
		t.save(ctx)
	}

	return completed
}

// ClaimReward hands out a completed goal's reward seconds exactly once.
// Unknown, incomplete or already-claimed goals yield 0.
func (t *GoalTracker) ClaimReward(ctx context.Context, goalID string) int {
	if t.data == nil {
		return 0
	}

	for _, goal := range t.data.Goals {
		if goal.ID != goalID {
			continue
		}
		if !goal.Completed || goal.Claimed {
			return 0
		}

		goal.Claimed = true
		t.save(ctx)
		return goal.Reward
	}

	return 0
}

// Summary returns the day's completion overview.
func (t *GoalTracker) Summary() entities.GoalsSummary {
	if t.data == nil {
		return entities.GoalsSummary{}
	}

	total := len(t.data.Goals)
	s := entities.GoalsSummary{
		Completed: t.data.CompletedGoals,
		Total:     total,
	}
	if total > 0 {
		s.Percentage = int(math.Round(float64(s.Completed) / float64(total) * 100))
	}

	return s
}

// TotalRewardsEarned returns the reward seconds accumulated by completions
// today.
func (t *GoalTracker) TotalRewardsEarned() int {
	if t.data == nil {
		return 0
	}
	return t.data.TotalRewardsEarned
}

// Reset discards the current set and generates a fresh one for today.
func (t *GoalTracker) Reset(ctx context.Context) {
	if err := t.repo.Delete(ctx, t.deviceID); err != nil {
		t.logger.Warn("failed to delete daily goals",
			zap.String("device_id", t.deviceID),
			zap.Error(err),
		)
	}
	t.generate(ctx, dateString(t.now()))
}

// save persists best effort: failures are logged and the in-memory state
// remains authoritative for the session.
func (t *GoalTracker) save(ctx context.Context) {
	if err := t.repo.Save(ctx, t.deviceID, t.data); err != nil {
		t.logger.Warn("failed to save daily goals",
			zap.String("device_id", t.deviceID),
			zap.Error(err),
		)
	}
}
