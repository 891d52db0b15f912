package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/brainbites/brainbites-server/internal/domain/entities"
)

// Base reward values for a single answer.
const (
	basePoints        = 10
	baseTimeReward    = 30  // seconds for a correct answer
	milestoneTimeward = 120 // seconds when the new streak hits a milestone
)

var ErrInvalidOption = errors.New("selected option is not one of the question's labels")

// AnswerResult is the full per-answer outcome handed back to the UI layer.
type AnswerResult struct {
	Correct         bool                  `json:"correct"`
	CorrectAnswer   string                `json:"correctAnswer"`
	Explanation     string                `json:"explanation"`
	PointsEarned    int                   `json:"pointsEarned"`
	CurrentStreak   int                   `json:"currentStreak"`
	IsNewHighStreak bool                  `json:"isNewHighStreak"`
	StreakLost      int                   `json:"streakLost"`
	Milestone       bool                  `json:"milestone"`
	TimeAwarded     int                   `json:"timeAwarded"` // seconds
	Unlocked        []string              `json:"unlockedAchievements"`
	CompletedGoals  []*entities.DailyGoal `json:"completedGoals"`
	OvertimePenalty int                   `json:"overtimePenalty"` // points deducted
}

// RewardCoordinator is the policy layer invoked once per answer event. It
// fans the outcome out to the score ledger, the time ledger and the goal
// tracker, and holds no persisted state of its own.
type RewardCoordinator struct {
	corpus Corpus
	timer  *TimeLedger
	score  *ScoreLedger
	goals  *GoalTracker
	logger *zap.Logger

	// categories seen since this session started, for the categories goal
	categoriesSeen map[string]bool
}

func NewRewardCoordinator(
	corpus Corpus,
	timer *TimeLedger,
	score *ScoreLedger,
	goals *GoalTracker,
	logger *zap.Logger,
) *RewardCoordinator {
	return &RewardCoordinator{
		corpus:         corpus,
		timer:          timer,
		score:          score,
		goals:          goals,
		logger:         logger,
		categoriesSeen: make(map[string]bool),
	}
}

// SubmitAnswer grades the selected option against the issued question and
// drives every ledger consistently. The score mutation completes first so the
// milestone check and the time credit see the new streak, not the pre-answer
// one.
func (c *RewardCoordinator) SubmitAnswer(ctx context.Context, questionID int, selected string) (*AnswerResult, error) {
	q, err := c.corpus.GetByID(questionID)
	if err != nil {
		return nil, fmt.Errorf("look up question %d: %w", questionID, err)
	}
	if _, ok := q.Options[selected]; !ok {
		return nil, ErrInvalidOption
	}

	res := &AnswerResult{
		Correct:       selected == q.CorrectAnswer,
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
	}

	// Overtime accrued since the last answer is penalized once, when observed.
	if minutes := c.timer.CollectOvertime(ctx); minutes > 0 {
		res.OvertimePenalty = c.score.ApplyOvertimePenalty(ctx, minutes)
	}

	c.categoriesSeen[q.Category] = true

	if res.Correct {
		c.applyCorrect(ctx, res)
	} else {
		c.applyWrong(ctx, res)
	}

	return res, nil
}

func (c *RewardCoordinator) applyCorrect(ctx context.Context, res *AnswerResult) {
	correct := c.score.RecordCorrect(ctx, basePoints)
	res.PointsEarned = correct.PointsEarned
	res.CurrentStreak = correct.CurrentStreak
	res.IsNewHighStreak = correct.IsNewHighStreak
	res.Unlocked = correct.Unlocked

	res.Milestone = c.score.IsStreakMilestone(correct.CurrentStreak)
	res.TimeAwarded = baseTimeReward
	if res.Milestone {
		res.TimeAwarded = milestoneTimeward
	}
	c.timer.AddTime(ctx, res.TimeAwarded)

	info := c.score.Info()
	pctx := ProgressContext{
		TotalQuestions: info.QuestionsAnswered,
		CorrectAnswers: info.CorrectAnswers,
		Categories:     len(c.categoriesSeen),
	}

	res.CompletedGoals = append(res.CompletedGoals, c.goals.UpdateProgress(ctx, entities.GoalQuestions, 1, pctx)...)
	res.CompletedGoals = append(res.CompletedGoals, c.goals.UpdateProgress(ctx, entities.GoalStreak, correct.CurrentStreak, pctx)...)
	res.CompletedGoals = append(res.CompletedGoals, c.goals.UpdateProgress(ctx, entities.GoalAccuracy, 0, pctx)...)
	res.CompletedGoals = append(res.CompletedGoals, c.goals.UpdateProgress(ctx, entities.GoalTime, res.TimeAwarded, pctx)...)
	res.CompletedGoals = append(res.CompletedGoals, c.goals.UpdateProgress(ctx, entities.GoalCategories, 0, pctx)...)
}

func (c *RewardCoordinator) applyWrong(ctx context.Context, res *AnswerResult) {
	wrong := c.score.RecordWrong(ctx)
	res.StreakLost = wrong.StreakLost
	res.Unlocked = wrong.Unlocked

	info := c.score.Info()
	pctx := ProgressContext{
		TotalQuestions: info.QuestionsAnswered,
		CorrectAnswers: info.CorrectAnswers,
		Categories:     len(c.categoriesSeen),
	}
	res.CompletedGoals = c.goals.UpdateProgress(ctx, entities.GoalQuestions, 1, pctx)
}

// ClaimGoalReward converts a completed goal's reward into screen time.
func (c *RewardCoordinator) ClaimGoalReward(ctx context.Context, goalID string) int {
	seconds := c.goals.ClaimReward(ctx, goalID)
	if seconds > 0 {
		c.timer.AddTime(ctx, seconds)
	}
	return seconds
}
