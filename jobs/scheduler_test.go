package jobs_test

import (
	"context"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/worklog/absence"
	"github.com/warp/worklog/generic"
	"github.com/warp/worklog/jobs"
	"github.com/warp/worklog/store/memory"
	"github.com/warp/worklog/timelog"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fixture struct {
	store     *memory.Memory
	clock     *generic.ManualClock
	service   *timelog.Service
	scheduler *jobs.Scheduler
}

func newFixture(t *testing.T, now time.Time, cfg jobs.Config) *fixture {
	ctx := context.Background()
	store := memory.New()
	clock := generic.NewManualClock(now)
	logger, _ := logtest.NewNullLogger()

	require.NoError(t, store.CreateUser(ctx, generic.User{ID: "admin", Username: "admin", IsAdmin: true, MaxSession: time.Hour, CreatedAt: now}))
	require.NoError(t, store.CreateProject(ctx, generic.Project{ID: "p-1", Name: "p", CreatedAt: now}))
	require.NoError(t, store.CreateActivity(ctx, generic.Activity{ID: "a-1", Name: "a", CreatedAt: now}))
	require.NoError(t, store.SaveSettings(ctx, generic.Settings{SickLeavePerMonth: 1, CasualLeavePerMonth: 2}))

	service := timelog.NewService(store, clock, logger)
	scheduler := jobs.NewScheduler(cfg,
		absence.NewAccrualJob(store, clock, time.UTC, logger),
		timelog.NewSweeper(store, clock, logger),
		timelog.NewWatcher(service, store, clock, timelog.DefaultWatchLead, logger),
		store, clock, logger)
	t.Cleanup(scheduler.Stop)

	return &fixture{store: store, clock: clock, service: service, scheduler: scheduler}
}

func waitForWaiters(t *testing.T, clock *generic.ManualClock, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return clock.Waiters() == n }, time.Second, time.Millisecond)
}

// =============================================================================
// TESTS
// =============================================================================

func TestScheduler_MonthlyAccrualFiresOnFirst(t *testing.T) {
	// GIVEN: It is 2024-01-31 23:59 and accrual is enabled
	// WHEN: The clock crosses midnight into February
	// THEN: The accrual runs once and credits 1 + 2

	f := newFixture(t, time.Date(2024, time.January, 31, 23, 59, 0, 0, time.UTC), jobs.Config{AccrualEnabled: true})
	require.NoError(t, f.scheduler.Start(context.Background()))
	waitForWaiters(t, f.clock, 1)

	f.clock.Advance(30 * time.Second)
	assert.Equal(t, 1, f.clock.Waiters(), "not yet")

	f.clock.Advance(30 * time.Second)
	require.Eventually(t, func() bool {
		b, _ := f.store.Balance(context.Background(), "admin")
		return b == 3
	}, time.Second, time.Millisecond)

	// re-armed for March 1st
	waitForWaiters(t, f.clock, 1)
}

func TestScheduler_SweepLoop(t *testing.T) {
	f := newFixture(t, time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC), jobs.Config{SweepInterval: jobs.DefaultSweepInterval})
	ctx := context.Background()

	started, err := f.service.Start(ctx, generic.Actor{UserID: "admin"}, "p-1", "a-1")
	require.NoError(t, err)

	require.NoError(t, f.scheduler.Start(ctx))
	waitForWaiters(t, f.clock, 1)

	f.clock.Advance(2 * time.Hour)
	require.Eventually(t, func() bool {
		l, _ := f.store.GetTimeLog(ctx, started.ID)
		return l != nil && !l.IsOpen()
	}, time.Second, time.Millisecond)
}

func TestScheduler_WatchClosesAndIsForgotten(t *testing.T) {
	now := time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, now, jobs.Config{})
	ctx := context.Background()
	require.NoError(t, f.scheduler.Start(ctx))

	started, err := f.service.StartWithAutoClose(ctx, generic.Actor{UserID: "admin"}, "p-1", "a-1", 30*time.Second)
	require.NoError(t, err)
	f.scheduler.Arm(started.ID, 30*time.Second)
	waitForWaiters(t, f.clock, 1)

	f.clock.Advance(30 * time.Second)
	require.Eventually(t, func() bool {
		ws, _ := f.store.ListWatches(ctx)
		return len(ws) == 0
	}, time.Second, time.Millisecond)

	l, err := f.store.GetTimeLog(ctx, started.ID)
	require.NoError(t, err)
	require.NotNil(t, l.End)
	assert.Equal(t, now.Add(30*time.Second), *l.End)
}

func TestScheduler_RearmsPersistedWatchesOnStart(t *testing.T) {
	// GIVEN: A watch persisted by a previous process whose planned end passed
	// WHEN: The scheduler starts
	// THEN: The session is closed at its planned end right away

	now := time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, now, jobs.Config{})
	ctx := context.Background()

	started, err := f.service.StartWithAutoClose(ctx, generic.Actor{UserID: "admin"}, "p-1", "a-1", time.Minute)
	require.NoError(t, err)
	f.clock.Advance(time.Hour)

	require.NoError(t, f.scheduler.Start(ctx))

	require.Eventually(t, func() bool {
		l, _ := f.store.GetTimeLog(ctx, started.ID)
		return l != nil && !l.IsOpen()
	}, time.Second, time.Millisecond)

	l, err := f.store.GetTimeLog(ctx, started.ID)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Minute), *l.End)
}

func TestScheduler_StopLeavesPendingWatches(t *testing.T) {
	f := newFixture(t, time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC), jobs.Config{})
	ctx := context.Background()
	require.NoError(t, f.scheduler.Start(ctx))

	started, err := f.service.StartWithAutoClose(ctx, generic.Actor{UserID: "admin"}, "p-1", "a-1", time.Hour)
	require.NoError(t, err)
	f.scheduler.Arm(started.ID, time.Hour)
	waitForWaiters(t, f.clock, 1)

	f.scheduler.Stop()

	ws, err := f.store.ListWatches(ctx)
	require.NoError(t, err)
	assert.Len(t, ws, 1)
}

func TestScheduler_ArmWhileStoppedWaitsForStart(t *testing.T) {
	// GIVEN: A persisted watch armed before the scheduler runs
	// WHEN: The scheduler starts later
	// THEN: Only the re-armed watcher waits on the clock

	f := newFixture(t, time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC), jobs.Config{})
	ctx := context.Background()

	started, err := f.service.StartWithAutoClose(ctx, generic.Actor{UserID: "admin"}, "p-1", "a-1", time.Hour)
	require.NoError(t, err)
	f.scheduler.Arm(started.ID, time.Hour)
	assert.Equal(t, 0, f.clock.Waiters())

	require.NoError(t, f.scheduler.Start(ctx))
	waitForWaiters(t, f.clock, 1)
}

func TestScheduler_ManualRuns(t *testing.T) {
	f := newFixture(t, time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC), jobs.Config{})
	ctx := context.Background()

	res, err := f.scheduler.RunAccrualNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-03", res.Period)
	assert.Equal(t, 2, res.Entries)

	sweep, err := f.scheduler.RunSweepNow(ctx)
	require.NoError(t, err)
	assert.Empty(t, sweep.Closed)
}
