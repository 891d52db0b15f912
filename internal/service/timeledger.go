package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/brainbites/brainbites-server/internal/domain/entities"
	"github.com/brainbites/brainbites-server/internal/storage"
)

// driftTolerance is the smallest disagreement with an external time source
// worth reconciling, in seconds.
const driftTolerance = 60

// TimerRepo persists the per-device timer blob.
type TimerRepo interface {
	Load(ctx context.Context, deviceID string) (*entities.TimerData, error)
	Save(ctx context.Context, deviceID string, data *entities.TimerData) error
	Delete(ctx context.Context, deviceID string) error
}

// TimeSource is an optional external time tracker (the OS-level background
// service on the device). The ledger stays agnostic of whether one exists.
type TimeSource interface {
	Available(ctx context.Context) (int, error)
	AddBonus(ctx context.Context, seconds int) error
}

// TimeListener receives the new available balance after every successful
// mutation. Listeners run synchronously on the mutating call, so they must
// not block.
type TimeListener func(available int)

// TimeLedger owns the screen-time balance for one device: the available
// seconds (negative means overtime debt), the daily/weekly/monthly earned
// counters, and their lazy calendar resets. In-memory state is authoritative;
// persistence is best effort.
type TimeLedger struct {
	deviceID string
	repo     TimerRepo
	source   TimeSource
	logger   *zap.Logger
	now      func() time.Time

	data         *entities.TimerData
	listeners    map[int]TimeListener
	nextListener int
}

// TimeLedgerOption configures a TimeLedger.
type TimeLedgerOption func(*TimeLedger)

// WithTimeSource attaches an external tracker to reconcile against.
func WithTimeSource(source TimeSource) TimeLedgerOption {
	return func(l *TimeLedger) { l.source = source }
}

// WithTimeClock overrides the wall clock. Intended for tests.
func WithTimeClock(now func() time.Time) TimeLedgerOption {
	return func(l *TimeLedger) { l.now = now }
}

func NewTimeLedger(deviceID string, repo TimerRepo, logger *zap.Logger, opts ...TimeLedgerOption) *TimeLedger {
	l := &TimeLedger{
		deviceID:  deviceID,
		repo:      repo,
		logger:    logger,
		now:       time.Now,
		listeners: make(map[int]TimeListener),
	}

	for _, opt := range opts {
		opt(l)
	}

	l.data = entities.NewTimerData(l.now())
	return l
}

// Load reads persisted state and applies any pending calendar reset.
// A failed or missing read falls back to fresh default state; the ledger is
// usable either way.
func (l *TimeLedger) Load(ctx context.Context) {
	data, err := l.repo.Load(ctx, l.deviceID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			l.logger.Warn("failed to load timer data",
				zap.String("device_id", l.deviceID),
				zap.Error(err),
			)
		}
		l.data = entities.NewTimerData(l.now())
		l.save(ctx)
		return
	}

	l.data = data
	if l.applyCalendarReset() {
		l.save(ctx)
	}
}

// applyCalendarReset zeroes earned counters when the date moved past a
// day/week/month boundary since lastResetDate. The weekly and monthly checks
// only run when the day changed. Reports whether anything was adjusted.
func (l *TimeLedger) applyCalendarReset() bool {
	now := l.now()
	lastReset, ok := parseDate(l.data.LastResetDate)
	if !ok {
		// Corrupt or missing date: adopt today without touching counters.
		l.data.LastResetDate = dateString(now)
		return true
	}

	if dateString(now) == dateString(lastReset) {
		return false
	}

	l.data.DailyTimeEarned = 0
	if !sameWeek(now, lastReset) {
		l.data.WeeklyTimeEarned = 0
	}
	if !sameMonth(now, lastReset) {
		l.data.MonthlyTimeEarned = 0
	}
	l.data.LastResetDate = dateString(now)

	return true
}

// AddTime credits the balance and all three earned counters. Negative amounts
// are ignored. The bonus is forwarded to the external source when one exists.
func (l *TimeLedger) AddTime(ctx context.Context, seconds int) {
	if seconds <= 0 {
		return
	}

	l.data.AvailableTime += seconds
	l.data.DailyTimeEarned += seconds
	l.data.WeeklyTimeEarned += seconds
	l.data.MonthlyTimeEarned += seconds

	l.save(ctx)
	l.notify()

	if l.source != nil {
		if err := l.source.AddBonus(ctx, seconds); err != nil {
			l.logger.Debug("external time source unavailable",
				zap.String("device_id", l.deviceID),
				zap.Error(err),
			)
		}
	}
}

// ConsumeTime debits the balance. It succeeds only when the full amount is
// covered; otherwise nothing changes and false is returned.
func (l *TimeLedger) ConsumeTime(ctx context.Context, seconds int) bool {
	if seconds < 0 || l.data.AvailableTime < seconds {
		return false
	}

	l.data.AvailableTime -= seconds
	l.save(ctx)
	l.notify()

	return true
}

// RecordBackgroundUsage debits time consumed while the app was not in the
// foreground. The balance may drift below zero down to the overtime floor;
// the overdrawn part accrues on the negativeTime counter until collected.
func (l *TimeLedger) RecordBackgroundUsage(ctx context.Context, elapsed int) {
	if elapsed <= 0 {
		return
	}

	balance := l.data.AvailableTime - elapsed
	if balance < entities.OvertimeFloor {
		balance = entities.OvertimeFloor
	}
	if balance < 0 {
		overdrawn := -balance
		if l.data.AvailableTime < 0 {
			overdrawn = l.data.AvailableTime - balance
		}
		if overdrawn > 0 {
			l.data.NegativeTime += overdrawn
		}
	}
	l.data.AvailableTime = balance

	l.save(ctx)
	l.notify()
}

// CollectOvertime returns the accrued overtime in whole minutes and clears
// the counter. The leftover sub-minute remainder keeps accruing.
func (l *TimeLedger) CollectOvertime(ctx context.Context) int {
	minutes := l.data.NegativeTime / 60
	if minutes == 0 {
		return 0
	}

	l.data.NegativeTime -= minutes * 60
	l.save(ctx)

	return minutes
}

// Sync reconciles the balance with the external source, taking the larger
// value when they disagree by more than the tolerance so earned time is never
// lost to a race with the background tracker.
func (l *TimeLedger) Sync(ctx context.Context) {
	if l.source == nil {
		return
	}

	external, err := l.source.Available(ctx)
	if err != nil {
		l.logger.Debug("external time source sync failed",
			zap.String("device_id", l.deviceID),
			zap.Error(err),
		)
		return
	}

	diff := external - l.data.AvailableTime
	if diff < -driftTolerance || diff > driftTolerance {
		if external > l.data.AvailableTime {
			l.data.AvailableTime = external
		}
		l.save(ctx)
		l.notify()
	}
}

// Available returns the current balance in seconds.
func (l *TimeLedger) Available() int {
	return l.data.AvailableTime
}

// Stats returns the earned-counter snapshot.
func (l *TimeLedger) Stats() entities.TimeStats {
	return entities.TimeStats{
		Daily:   l.data.DailyTimeEarned,
		Weekly:  l.data.WeeklyTimeEarned,
		Monthly: l.data.MonthlyTimeEarned,
	}
}

// Reset restores the starting grant and zeroes every counter.
func (l *TimeLedger) Reset(ctx context.Context) {
	l.data = entities.NewTimerData(l.now())
	l.save(ctx)
	l.notify()
}

// Subscribe registers a balance-change listener and returns its unsubscribe
// function. Listeners fire synchronously after every successful mutation, in
// registration order.
func (l *TimeLedger) Subscribe(fn TimeListener) func() {
	id := l.nextListener
	l.nextListener++
	l.listeners[id] = fn

	return func() {
		delete(l.listeners, id)
	}
}

func (l *TimeLedger) notify() {
	for i := 0; i < l.nextListener; i++ {
		if fn, ok := l.listeners[i]; ok {
			fn(l.data.AvailableTime)
		}
	}
}

// save persists best effort: failures are logged and the in-memory state
// remains authoritative for the session.
func (l *TimeLedger) save(ctx context.Context) {
	l.data.LastUpdateTime = l.now().Format(time.RFC3339)
	if err := l.repo.Save(ctx, l.deviceID, l.data); err != nil {
		l.logger.Warn("failed to save timer data",
			zap.String("device_id", l.deviceID),
			zap.Error(err),
		)
	}
}
