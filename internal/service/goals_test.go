package service

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/brainbites/brainbites-server/internal/domain/entities"
	"github.com/brainbites/brainbites-server/internal/repository"
	"github.com/brainbites/brainbites-server/internal/storage"
)

func newTestGoalTracker(opts ...GoalTrackerOption) (*GoalTracker, *repository.GoalsRepository) {
	repo := repository.NewGoalsRepository(storage.NewMemory())
	opts = append([]GoalTrackerOption{WithGoalsRand(rand.New(rand.NewSource(1)))}, opts...)
	tracker := NewGoalTracker("dev-1", repo, zap.NewNop(), opts...)
	return tracker, repo
}

// seedGoals persists a handpicked goal set dated today so LoadOrGenerate
// reuses it instead of sampling.
func seedGoals(t *testing.T, repo *repository.GoalsRepository, clock func() time.Time, goals ...*entities.DailyGoal) {
	t.Helper()
	err := repo.Save(context.Background(), "dev-1", &entities.DailyGoalsData{
		Date:  clock().Format(entities.DateLayout),
		Goals: goals,
	})
	if err != nil {
		t.Fatalf("seed goals: %v", err)
	}
}

func TestGenerateSamplesThreeOrFourGoals(t *testing.T) {
	tracker, _ := newTestGoalTracker()
	tracker.LoadOrGenerate(context.Background())

	goals := tracker.Goals()
	if len(goals) < 3 || len(goals) > 4 {
		t.Fatalf("generated %d goals, want 3 or 4", len(goals))
	}

	seen := map[string]bool{}
	for _, g := range goals {
		if seen[g.ID] {
			t.Fatalf("goal %s sampled twice", g.ID)
		}
		seen[g.ID] = true
		if g.Current != 0 || g.Completed || g.Claimed {
			t.Fatalf("goal %s not fresh: %+v", g.ID, g)
		}
	}
}

func TestLoadReusesSameDayGoals(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	tracker, repo := newTestGoalTracker(WithGoalsClock(clock))

	seedGoals(t, repo, clock, &entities.DailyGoal{
		ID: "daily_questions_5", Target: 5, Reward: 60, Type: entities.GoalQuestions, Current: 3,
	})

	tracker.LoadOrGenerate(context.Background())

	goals := tracker.Goals()
	if len(goals) != 1 || goals[0].ID != "daily_questions_5" || goals[0].Current != 3 {
		t.Fatalf("goals = %+v, want the persisted same-day set", goals)
	}
}

func TestLoadRegeneratesOnNewDay(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	tracker, repo := newTestGoalTracker(WithGoalsClock(clock))
	ctx := context.Background()

	err := repo.Save(ctx, "dev-1", &entities.DailyGoalsData{
		Date: "2025-03-09",
		Goals: []*entities.DailyGoal{
			{ID: "daily_questions_5", Target: 5, Type: entities.GoalQuestions, Current: 4},
		},
		CompletedGoals: 1,
	})
	if err != nil {
		t.Fatalf("save stale goals: %v", err)
	}

	tracker.LoadOrGenerate(ctx)

	// Yesterday's progress is gone; a fresh set is persisted under today.
	saved, err := repo.Load(ctx, "dev-1")
	if err != nil {
		t.Fatalf("load regenerated goals: %v", err)
	}
	if saved.Date != "2025-03-10" {
		t.Fatalf("regenerated date = %q, want 2025-03-10", saved.Date)
	}
	if saved.CompletedGoals != 0 {
		t.Fatalf("completed = %d carried over, want 0", saved.CompletedGoals)
	}
}

func TestProgressRouting(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	tracker, repo := newTestGoalTracker(WithGoalsClock(clock))
	ctx := context.Background()

	seedGoals(t, repo, clock,
		&entities.DailyGoal{ID: "q", Target: 10, Type: entities.GoalQuestions},
		&entities.DailyGoal{ID: "s", Target: 5, Type: entities.GoalStreak},
		&entities.DailyGoal{ID: "a", Target: 80, Type: entities.GoalAccuracy},
		&entities.DailyGoal{ID: "t", Target: 300, Type: entities.GoalTime},
		&entities.DailyGoal{ID: "c", Target: 3, Type: entities.GoalCategories},
	)
	tracker.LoadOrGenerate(ctx)

	byID := func(id string) *entities.DailyGoal {
		for _, g := range tracker.Goals() {
			if g.ID == id {
				return g
			}
		}
		t.Fatalf("goal %s missing", id)
		return nil
	}

	// Questions and time accumulate.
	tracker.UpdateProgress(ctx, entities.GoalQuestions, 1, ProgressContext{})
	tracker.UpdateProgress(ctx, entities.GoalQuestions, 1, ProgressContext{})
	if got := byID("q").Current; got != 2 {
		t.Fatalf("questions current = %d, want 2", got)
	}
	tracker.UpdateProgress(ctx, entities.GoalTime, 30, ProgressContext{})
	tracker.UpdateProgress(ctx, entities.GoalTime, 120, ProgressContext{})
	if got := byID("t").Current; got != 150 {
		t.Fatalf("time current = %d, want 150", got)
	}

	// Streak keeps the day's best, never regresses.
	tracker.UpdateProgress(ctx, entities.GoalStreak, 3, ProgressContext{})
	tracker.UpdateProgress(ctx, entities.GoalStreak, 1, ProgressContext{})
	if got := byID("s").Current; got != 3 {
		t.Fatalf("streak current = %d, want 3", got)
	}

	// Accuracy is gated until enough questions are answered.
	tracker.UpdateProgress(ctx, entities.GoalAccuracy, 0, ProgressContext{TotalQuestions: 3, CorrectAnswers: 3})
	if got := byID("a").Current; got != 0 {
		t.Fatalf("accuracy current = %d before gate, want 0", got)
	}
	tracker.UpdateProgress(ctx, entities.GoalAccuracy, 0, ProgressContext{TotalQuestions: 6, CorrectAnswers: 3})
	if got := byID("a").Current; got != 50 {
		t.Fatalf("accuracy current = %d, want 50", got)
	}

	// Categories tracks the distinct count directly.
	tracker.UpdateProgress(ctx, entities.GoalCategories, 0, ProgressContext{Categories: 2})
	if got := byID("c").Current; got != 2 {
		t.Fatalf("categories current = %d, want 2", got)
	}
}

func TestGoalCompletesExactlyOnce(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	tracker, repo := newTestGoalTracker(WithGoalsClock(clock))
	ctx := context.Background()

	seedGoals(t, repo, clock,
		&entities.DailyGoal{ID: "q", Target: 2, Reward: 60, Type: entities.GoalQuestions},
	)
	tracker.LoadOrGenerate(ctx)

	if completed := tracker.UpdateProgress(ctx, entities.GoalQuestions, 1, ProgressContext{}); len(completed) != 0 {
		t.Fatalf("completed = %v below target, want none", completed)
	}
	completed := tracker.UpdateProgress(ctx, entities.GoalQuestions, 1, ProgressContext{})
	if len(completed) != 1 || completed[0].ID != "q" {
		t.Fatalf("completed = %v at target, want [q]", completed)
	}
	if completed := tracker.UpdateProgress(ctx, entities.GoalQuestions, 1, ProgressContext{}); len(completed) != 0 {
		t.Fatalf("completed = %v after completion, want none", completed)
	}

	if got := tracker.TotalRewardsEarned(); got != 60 {
		t.Fatalf("rewards earned = %d, want 60", got)
	}

	summary := tracker.Summary()
	if summary.Completed != 1 || summary.Total != 1 || summary.Percentage != 100 {
		t.Fatalf("summary = %+v, want 1/1 at 100%%", summary)
	}
}

func TestClaimRewardOnce(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	tracker, repo := newTestGoalTracker(WithGoalsClock(clock))
	ctx := context.Background()

	seedGoals(t, repo, clock,
		&entities.DailyGoal{ID: "q", Target: 1, Reward: 90, Type: entities.GoalQuestions},
	)
	tracker.LoadOrGenerate(ctx)

	// Not claimable before completion.
	if got := tracker.ClaimReward(ctx, "q"); got != 0 {
		t.Fatalf("claim before completion = %d, want 0", got)
	}

	tracker.UpdateProgress(ctx, entities.GoalQuestions, 1, ProgressContext{})

	if got := tracker.ClaimReward(ctx, "q"); got != 90 {
		t.Fatalf("claim = %d, want 90", got)
	}
	if got := tracker.ClaimReward(ctx, "q"); got != 0 {
		t.Fatalf("second claim = %d, want 0", got)
	}
	if got := tracker.ClaimReward(ctx, "unknown"); got != 0 {
		t.Fatalf("unknown goal claim = %d, want 0", got)
	}
}

func TestGoalsResetGeneratesFreshSet(t *testing.T) {
	tracker, _ := newTestGoalTracker()
	ctx := context.Background()

	tracker.LoadOrGenerate(ctx)
	tracker.UpdateProgress(ctx, entities.GoalQuestions, 1, ProgressContext{})
	tracker.Reset(ctx)

	for _, g := range tracker.Goals() {
		if g.Current != 0 || g.Completed || g.Claimed {
			t.Fatalf("goal %s not fresh after reset: %+v", g.ID, g)
		}
	}
}
