package service

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Session bundles one device's ledgers behind a single mutex. Ledger methods
// are not safe for concurrent use on their own; callers must hold the session
// lock around every operation so calls against one device stay serialized.
type Session struct {
	sync.Mutex

	DeviceID string
	Timer    *TimeLedger
	Score    *ScoreLedger
	Goals    *GoalTracker
	Rewards  *RewardCoordinator
}

// TimeBroadcast receives balance changes for fan-out to connected clients.
type TimeBroadcast func(deviceID string, available int)

// Registry builds and caches per-device sessions. Each device gets exactly
// one session for the process lifetime, so ledger state is never duplicated.
type Registry struct {
	corpus    Corpus
	bank      *QuestionBank
	timerRepo TimerRepo
	scoreRepo ScoreRepo
	goalsRepo GoalsRepo
	logger    *zap.Logger

	onTime    TimeBroadcast
	timerOpts []TimeLedgerOption
	scoreOpts []ScoreLedgerOption
	goalOpts  []GoalTrackerOption

	mu       sync.Mutex
	sessions map[string]*Session
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithTimeBroadcast wires balance-change notifications to a fan-out sink.
func WithTimeBroadcast(fn TimeBroadcast) RegistryOption {
	return func(r *Registry) { r.onTime = fn }
}

// WithTimerOptions forwards options to every constructed TimeLedger.
func WithTimerOptions(opts ...TimeLedgerOption) RegistryOption {
	return func(r *Registry) { r.timerOpts = opts }
}

// WithScoreOptions forwards options to every constructed ScoreLedger.
func WithScoreOptions(opts ...ScoreLedgerOption) RegistryOption {
	return func(r *Registry) { r.scoreOpts = opts }
}

// WithGoalOptions forwards options to every constructed GoalTracker.
func WithGoalOptions(opts ...GoalTrackerOption) RegistryOption {
	return func(r *Registry) { r.goalOpts = opts }
}

func NewRegistry(
	corpus Corpus,
	bank *QuestionBank,
	timerRepo TimerRepo,
	scoreRepo ScoreRepo,
	goalsRepo GoalsRepo,
	logger *zap.Logger,
	opts ...RegistryOption,
) *Registry {
	r := &Registry{
		corpus:    corpus,
		bank:      bank,
		timerRepo: timerRepo,
		scoreRepo: scoreRepo,
		goalsRepo: goalsRepo,
		logger:    logger,
		sessions:  make(map[string]*Session),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Session returns the device's session, creating and loading it on first use.
func (r *Registry) Session(ctx context.Context, deviceID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[deviceID]; ok {
		return sess
	}

	timer := NewTimeLedger(deviceID, r.timerRepo, r.logger, r.timerOpts...)
	score := NewScoreLedger(deviceID, r.scoreRepo, r.logger, r.scoreOpts...)
	goals := NewGoalTracker(deviceID, r.goalsRepo, r.logger, r.goalOpts...)

	timer.Load(ctx)
	score.Load(ctx)
	goals.LoadOrGenerate(ctx)

	if r.onTime != nil {
		timer.Subscribe(func(available int) {
			r.onTime(deviceID, available)
		})
	}

	sess := &Session{
		DeviceID: deviceID,
		Timer:    timer,
		Score:    score,
		Goals:    goals,
		Rewards:  NewRewardCoordinator(r.corpus, timer, score, goals, r.logger),
	}
	r.sessions[deviceID] = sess

	r.logger.Debug("session created", zap.String("device_id", deviceID))
	return sess
}

// Bank returns the shared question bank.
func (r *Registry) Bank() *QuestionBank {
	return r.bank
}

// Reset wipes every ledger for the device and drops its cached session so
// the next access starts from fresh state.
func (r *Registry) Reset(ctx context.Context, deviceID string) {
	sess := r.Session(ctx, deviceID)

	sess.Lock()
	sess.Timer.Reset(ctx)
	sess.Score.ResetAll(ctx)
	sess.Goals.Reset(ctx)
	sess.Unlock()

	r.bank.ResetUsed(ctx, deviceID)

	r.mu.Lock()
	delete(r.sessions, deviceID)
	r.mu.Unlock()
}
