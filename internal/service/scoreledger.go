package service

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/brainbites/brainbites-server/internal/domain/entities"
	"github.com/brainbites/brainbites-server/internal/storage"
)

const (
	// maxStreakBonusSteps caps how many streak steps count toward the per-answer
	// point bonus.
	maxStreakBonusSteps = 10

	// overtimePenaltyPerMinute is deducted from the total score for every full
	// minute of overtime observed.
	overtimePenaltyPerMinute = 10
)

// streakMilestones are the streak lengths that trigger a bonus time award.
// This table is the single source of truth for milestone checks.
var streakMilestones = map[int]bool{
	5: true, 10: true, 15: true, 20: true, 25: true, 30: true, 50: true, 100: true,
}

// ScoreRepo persists the per-device score blob.
type ScoreRepo interface {
	Load(ctx context.Context, deviceID string) (*entities.ScoreData, error)
	Save(ctx context.Context, deviceID string, data *entities.ScoreData) error
	Delete(ctx context.Context, deviceID string) error
}

// CorrectResult reports the outcome of recording a correct answer.
type CorrectResult struct {
	PointsEarned    int
	CurrentStreak   int
	IsNewHighStreak bool
	Unlocked        []string // achievement ids unlocked by this answer
}

// WrongResult reports the outcome of recording a wrong answer.
type WrongResult struct {
	StreakLost int // streak value before the reset
	Unlocked   []string
}

// DailyRolloverHook is notified when a new calendar day discards the daily
// score, with the score that was accumulated yesterday.
type DailyRolloverHook func(yesterdayScore int, newDate string)

// ScoreLedger owns points, streaks, accuracy counters, unlocked achievements
// and the daily login streak for one device. In-memory state is authoritative;
// persistence is best effort.
type ScoreLedger struct {
	deviceID string
	repo     ScoreRepo
	logger   *zap.Logger
	now      func() time.Time

	data         *entities.ScoreData
	achievements []Achievement
	rollover     DailyRolloverHook
}

// ScoreLedgerOption configures a ScoreLedger.
type ScoreLedgerOption func(*ScoreLedger)

// WithScoreClock overrides the wall clock. Intended for tests.
func WithScoreClock(now func() time.Time) ScoreLedgerOption {
	return func(l *ScoreLedger) { l.now = now }
}

// WithDailyRolloverHook registers a callback for daily score rollovers.
func WithDailyRolloverHook(hook DailyRolloverHook) ScoreLedgerOption {
	return func(l *ScoreLedger) { l.rollover = hook }
}

func NewScoreLedger(deviceID string, repo ScoreRepo, logger *zap.Logger, opts ...ScoreLedgerOption) *ScoreLedger {
	l := &ScoreLedger{
		deviceID:     deviceID,
		repo:         repo,
		logger:       logger,
		now:          time.Now,
		achievements: defaultAchievements,
	}

	for _, opt := range opts {
		opt(l)
	}

	l.data = entities.NewScoreData(l.now())
	return l
}

// Load reads persisted state and rolls the daily score over if the calendar
// day changed. A failed or missing read falls back to zeroed state.
func (l *ScoreLedger) Load(ctx context.Context) {
	data, err := l.repo.Load(ctx, l.deviceID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			l.logger.Warn("failed to load score data",
				zap.String("device_id", l.deviceID),
				zap.Error(err),
			)
		}
		l.data = entities.NewScoreData(l.now())
		l.save(ctx)
		return
	}

	l.data = data
	l.checkDailyReset(ctx)
}

func (l *ScoreLedger) checkDailyReset(ctx context.Context) {
	today := dateString(l.now())
	if l.data.LastResetDate == today {
		return
	}

	yesterdayScore := l.data.DailyScore
	l.data.DailyScore = 0
	l.data.LastResetDate = today
	l.save(ctx)

	if l.rollover != nil {
		l.rollover(yesterdayScore, today)
	}
}

// RecordCorrect registers a correct answer: counters, streak, streak-bonused
// points, accuracy and achievements.
func (l *ScoreLedger) RecordCorrect(ctx context.Context, basePoints int) CorrectResult {
	l.data.QuestionsAnswered++
	l.data.CorrectAnswers++
	l.data.CurrentStreak++

	points := basePoints
	if l.data.CurrentStreak > 1 {
		steps := l.data.CurrentStreak - 1
		if steps > maxStreakBonusSteps {
			steps = maxStreakBonusSteps
		}
		points += steps * 2
	}

	l.data.TotalScore += points
	l.data.DailyScore += points

	isNewHigh := l.data.CurrentStreak > l.data.HighestStreak
	if isNewHigh {
		l.data.HighestStreak = l.data.CurrentStreak
	}

	l.updateAccuracy()
	unlocked := l.evaluateAchievements()
	l.save(ctx)

	return CorrectResult{
		PointsEarned:    points,
		CurrentStreak:   l.data.CurrentStreak,
		IsNewHighStreak: isNewHigh,
		Unlocked:        unlocked,
	}
}

// RecordWrong registers a wrong answer and resets the streak, returning the
// streak value that was lost.
func (l *ScoreLedger) RecordWrong(ctx context.Context) WrongResult {
	l.data.QuestionsAnswered++
	l.data.WrongAnswers++

	previousStreak := l.data.CurrentStreak
	l.data.CurrentStreak = 0

	l.updateAccuracy()
	unlocked := l.evaluateAchievements()
	l.save(ctx)

	return WrongResult{StreakLost: previousStreak, Unlocked: unlocked}
}

// IsStreakMilestone reports whether the streak length triggers a bonus award.
func (l *ScoreLedger) IsStreakMilestone(streak int) bool {
	return streakMilestones[streak]
}

// ApplyOvertimePenalty deducts points for the given whole minutes of overtime.
// The total score never goes below zero. Returns the points deducted.
func (l *ScoreLedger) ApplyOvertimePenalty(ctx context.Context, minutes int) int {
	if minutes <= 0 {
		return 0
	}

	penalty := minutes * overtimePenaltyPerMinute
	if penalty > l.data.TotalScore {
		penalty = l.data.TotalScore
	}
	if penalty == 0 {
		return 0
	}

	l.data.TotalScore -= penalty
	l.save(ctx)

	l.logger.Info("overtime penalty applied",
		zap.String("device_id", l.deviceID),
		zap.Int("minutes", minutes),
		zap.Int("points", penalty),
	)

	return penalty
}

// UpdateDailyLoginStreak advances the login streak. Called once per app
// foreground transition: same day is a no-op, a consecutive day increments,
// anything else restarts at 1.
func (l *ScoreLedger) UpdateDailyLoginStreak(ctx context.Context) int {
	today := dateString(l.now())
	if l.data.LastPlayDate == today {
		return l.data.DailyStreak
	}

	yesterday := dateString(l.now().AddDate(0, 0, -1))
	if l.data.LastPlayDate == yesterday {
		l.data.DailyStreak++
	} else {
		l.data.DailyStreak = 1
	}
	l.data.LastPlayDate = today

	l.evaluateAchievementsInto(nil)
	l.save(ctx)

	return l.data.DailyStreak
}

// Info returns a copy of the current score state.
func (l *ScoreLedger) Info() entities.ScoreData {
	cp := *l.data
	cp.Achievements = append([]string(nil), l.data.Achievements...)
	return cp
}

// ResetAll zeroes every counter and clears achievements.
func (l *ScoreLedger) ResetAll(ctx context.Context) {
	l.data = entities.NewScoreData(l.now())
	l.data.LastPlayDate = dateString(l.now())
	l.save(ctx)
}

func (l *ScoreLedger) updateAccuracy() {
	if l.data.QuestionsAnswered == 0 {
		return
	}
	ratio := float64(l.data.CorrectAnswers) / float64(l.data.QuestionsAnswered)
	l.data.Accuracy = int(math.Round(ratio * 100))
}

// evaluateAchievements scans the static predicate table and unlocks any newly
// satisfied achievements. Already-unlocked ids are never re-added.
func (l *ScoreLedger) evaluateAchievements() []string {
	var unlocked []string
	l.evaluateAchievementsInto(&unlocked)
	return unlocked
}

func (l *ScoreLedger) evaluateAchievementsInto(out *[]string) {
	for _, a := range l.achievements {
		if l.data.HasAchievement(a.ID) || !a.Unlocked(l.data) {
			continue
		}
		l.data.Achievements = append(l.data.Achievements, a.ID)
		if out != nil {
			*out = append(*out, a.ID)
		}
		l.logger.Info("achievement unlocked",
			zap.String("device_id", l.deviceID),
			zap.String("achievement", a.ID),
		)
	}
}

// save persists best effort: failures are logged and the in-memory state
// remains authoritative for the session.
func (l *ScoreLedger) save(ctx context.Context) {
	if err := l.repo.Save(ctx, l.deviceID, l.data); err != nil {
		l.logger.Warn("failed to save score data",
			zap.String("device_id", l.deviceID),
			zap.Error(err),
		)
	}
}
