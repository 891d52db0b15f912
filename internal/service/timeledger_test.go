package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/brainbites/brainbites-server/internal/domain/entities"
	"github.com/brainbites/brainbites-server/internal/repository"
	"github.com/brainbites/brainbites-server/internal/storage"
)

type fakeTimeSource struct {
	available int
	err       error
	bonuses   []int
}

func (s *fakeTimeSource) Available(context.Context) (int, error) {
	return s.available, s.err
}

func (s *fakeTimeSource) AddBonus(_ context.Context, seconds int) error {
	s.bonuses = append(s.bonuses, seconds)
	return s.err
}

func newTestTimeLedger(opts ...TimeLedgerOption) (*TimeLedger, *repository.TimerRepository) {
	repo := repository.NewTimerRepository(storage.NewMemory())
	ledger := NewTimeLedger("dev-1", repo, zap.NewNop(), opts...)
	return ledger, repo
}

func TestNewLedgerStartsWithGrant(t *testing.T) {
	ledger, _ := newTestTimeLedger()
	if got := ledger.Available(); got != entities.StartingTimeGrant {
		t.Fatalf("available = %d, want %d", got, entities.StartingTimeGrant)
	}
}

func TestAddTimeCreditsBalanceAndCounters(t *testing.T) {
	ledger, _ := newTestTimeLedger()
	ctx := context.Background()

	ledger.AddTime(ctx, 120)

	if got := ledger.Available(); got != entities.StartingTimeGrant+120 {
		t.Fatalf("available = %d, want %d", got, entities.StartingTimeGrant+120)
	}
	stats := ledger.Stats()
	if stats.Daily != 120 || stats.Weekly != 120 || stats.Monthly != 120 {
		t.Fatalf("stats = %+v, want 120 everywhere", stats)
	}
}

func TestAddTimeIgnoresNonPositive(t *testing.T) {
	ledger, _ := newTestTimeLedger()
	ctx := context.Background()

	ledger.AddTime(ctx, 0)
	ledger.AddTime(ctx, -30)

	if got := ledger.Available(); got != entities.StartingTimeGrant {
		t.Fatalf("available = %d, want unchanged %d", got, entities.StartingTimeGrant)
	}
}

func TestAddTimeForwardsBonusToSource(t *testing.T) {
	source := &fakeTimeSource{}
	ledger, _ := newTestTimeLedger(WithTimeSource(source))

	ledger.AddTime(context.Background(), 60)

	if len(source.bonuses) != 1 || source.bonuses[0] != 60 {
		t.Fatalf("bonuses = %v, want [60]", source.bonuses)
	}
}

func TestConsumeTime(t *testing.T) {
	ledger, _ := newTestTimeLedger()
	ctx := context.Background()

	if !ledger.ConsumeTime(ctx, 100) {
		t.Fatal("consume within balance failed")
	}
	if got := ledger.Available(); got != entities.StartingTimeGrant-100 {
		t.Fatalf("available = %d, want %d", got, entities.StartingTimeGrant-100)
	}

	if ledger.ConsumeTime(ctx, 10000) {
		t.Fatal("consume beyond balance succeeded")
	}
	if got := ledger.Available(); got != entities.StartingTimeGrant-100 {
		t.Fatalf("failed consume changed balance to %d", got)
	}
}

func TestBackgroundUsageAccruesOvertime(t *testing.T) {
	ledger, _ := newTestTimeLedger()
	ctx := context.Background()

	// 300 available, 400 elapsed: 100 seconds overdrawn.
	ledger.RecordBackgroundUsage(ctx, 400)

	if got := ledger.Available(); got != -100 {
		t.Fatalf("available = %d, want -100", got)
	}

	// Only whole minutes are collected; the 40s remainder keeps accruing.
	if minutes := ledger.CollectOvertime(ctx); minutes != 1 {
		t.Fatalf("collected %d minutes, want 1", minutes)
	}
	if minutes := ledger.CollectOvertime(ctx); minutes != 0 {
		t.Fatalf("second collect returned %d minutes, want 0", minutes)
	}

	// 20 more overdrawn seconds push the remainder past a full minute.
	ledger.RecordBackgroundUsage(ctx, 20)
	if minutes := ledger.CollectOvertime(ctx); minutes != 1 {
		t.Fatalf("collected %d minutes after remainder grew, want 1", minutes)
	}
}

func TestBackgroundUsageClampsAtFloor(t *testing.T) {
	ledger, _ := newTestTimeLedger()
	ctx := context.Background()

	ledger.RecordBackgroundUsage(ctx, 10000)

	if got := ledger.Available(); got != entities.OvertimeFloor {
		t.Fatalf("available = %d, want floor %d", got, entities.OvertimeFloor)
	}
	// Overdraw beyond the floor does not keep accruing.
	if minutes := ledger.CollectOvertime(ctx); minutes != 5 {
		t.Fatalf("collected %d minutes, want 5", minutes)
	}
}

func TestSyncTakesLargerExternalBalance(t *testing.T) {
	source := &fakeTimeSource{available: 900}
	ledger, _ := newTestTimeLedger(WithTimeSource(source))

	ledger.Sync(context.Background())

	if got := ledger.Available(); got != 900 {
		t.Fatalf("available = %d after sync, want 900", got)
	}
}

func TestSyncNeverLowersBalance(t *testing.T) {
	source := &fakeTimeSource{available: 10}
	ledger, _ := newTestTimeLedger(WithTimeSource(source))

	ledger.Sync(context.Background())

	if got := ledger.Available(); got != entities.StartingTimeGrant {
		t.Fatalf("available = %d, want unchanged %d", got, entities.StartingTimeGrant)
	}
}

func TestSyncIgnoresSmallDrift(t *testing.T) {
	source := &fakeTimeSource{available: entities.StartingTimeGrant + 30}
	ledger, _ := newTestTimeLedger(WithTimeSource(source))

	ledger.Sync(context.Background())

	if got := ledger.Available(); got != entities.StartingTimeGrant {
		t.Fatalf("available = %d, want unchanged within tolerance", got)
	}
}

func TestSyncSourceFailureLeavesBalance(t *testing.T) {
	source := &fakeTimeSource{err: errors.New("unavailable")}
	ledger, _ := newTestTimeLedger(WithTimeSource(source))

	ledger.Sync(context.Background())

	if got := ledger.Available(); got != entities.StartingTimeGrant {
		t.Fatalf("available = %d after failed sync, want %d", got, entities.StartingTimeGrant)
	}
}

func TestCalendarResets(t *testing.T) {
	// Monday 2025-03-10. Weeks start on Sunday.
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	repo := repository.NewTimerRepository(storage.NewMemory())
	ctx := context.Background()

	ledger := NewTimeLedger("dev-1", repo, zap.NewNop(), WithTimeClock(clock))
	ledger.Load(ctx)
	ledger.AddTime(ctx, 100)

	// Next day, same week and month: only the daily counter resets.
	now = time.Date(2025, 3, 11, 12, 0, 0, 0, time.UTC)
	ledger = NewTimeLedger("dev-1", repo, zap.NewNop(), WithTimeClock(clock))
	ledger.Load(ctx)
	stats := ledger.Stats()
	if stats.Daily != 0 || stats.Weekly != 100 || stats.Monthly != 100 {
		t.Fatalf("after day boundary: %+v, want daily reset only", stats)
	}
	ledger.AddTime(ctx, 50)

	// Following Sunday starts a new week; the month is unchanged.
	now = time.Date(2025, 3, 16, 12, 0, 0, 0, time.UTC)
	ledger = NewTimeLedger("dev-1", repo, zap.NewNop(), WithTimeClock(clock))
	ledger.Load(ctx)
	stats = ledger.Stats()
	if stats.Daily != 0 || stats.Weekly != 0 || stats.Monthly != 150 {
		t.Fatalf("after week boundary: %+v, want weekly reset", stats)
	}
	ledger.AddTime(ctx, 25)

	// New month resets everything.
	now = time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	ledger = NewTimeLedger("dev-1", repo, zap.NewNop(), WithTimeClock(clock))
	ledger.Load(ctx)
	stats = ledger.Stats()
	if stats.Daily != 0 || stats.Weekly != 0 || stats.Monthly != 0 {
		t.Fatalf("after month boundary: %+v, want all counters reset", stats)
	}
}

func TestCalendarResetKeepsBalance(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	repo := repository.NewTimerRepository(storage.NewMemory())
	ctx := context.Background()

	ledger := NewTimeLedger("dev-1", repo, zap.NewNop(), WithTimeClock(clock))
	ledger.Load(ctx)
	ledger.AddTime(ctx, 100)
	balance := ledger.Available()

	now = now.AddDate(0, 0, 1)
	ledger = NewTimeLedger("dev-1", repo, zap.NewNop(), WithTimeClock(clock))
	ledger.Load(ctx)

	if got := ledger.Available(); got != balance {
		t.Fatalf("balance = %d after calendar reset, want %d", got, balance)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	repo := repository.NewTimerRepository(storage.NewMemory())
	ctx := context.Background()

	ledger := NewTimeLedger("dev-1", repo, zap.NewNop())
	ledger.Load(ctx)
	ledger.AddTime(ctx, 77)

	reloaded := NewTimeLedger("dev-1", repo, zap.NewNop())
	reloaded.Load(ctx)

	if got := reloaded.Available(); got != entities.StartingTimeGrant+77 {
		t.Fatalf("available = %d after reload, want %d", got, entities.StartingTimeGrant+77)
	}
}

func TestSubscribe(t *testing.T) {
	ledger, _ := newTestTimeLedger()
	ctx := context.Background()

	var got []int
	unsubscribe := ledger.Subscribe(func(available int) {
		got = append(got, available)
	})

	ledger.AddTime(ctx, 10)
	ledger.ConsumeTime(ctx, 5)
	unsubscribe()
	ledger.AddTime(ctx, 10)

	want := []int{entities.StartingTimeGrant + 10, entities.StartingTimeGrant + 5}
	if len(got) != len(want) {
		t.Fatalf("listener fired %d times, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("notification %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestReset(t *testing.T) {
	ledger, _ := newTestTimeLedger()
	ctx := context.Background()

	ledger.AddTime(ctx, 500)
	ledger.RecordBackgroundUsage(ctx, 1200)
	ledger.Reset(ctx)

	if got := ledger.Available(); got != entities.StartingTimeGrant {
		t.Fatalf("available = %d after reset, want %d", got, entities.StartingTimeGrant)
	}
	stats := ledger.Stats()
	if stats.Daily != 0 || stats.Weekly != 0 || stats.Monthly != 0 {
		t.Fatalf("stats = %+v after reset, want zeroes", stats)
	}
	if minutes := ledger.CollectOvertime(ctx); minutes != 0 {
		t.Fatalf("overtime = %d minutes after reset, want 0", minutes)
	}
}
