/*
scheduler.go - Background triggers for accrual, sweep and auto-close watchers

PURPOSE:
  Drives the three background entry points:
    - monthly accrual at 00:00 on the 1st, in the service location
    - session sweep on a fixed interval (default 5 minutes)
    - one deferred watcher per session started with a planned duration

DESIGN:
  - Each trigger is a goroutine waiting on the injected Clock, so tests
    drive the schedule with generic.ManualClock.
  - Watchers are persisted in the WatchStore together with their session
    (same transaction) before they are armed, and deleted once they ran. Start re-arms whatever is left over from a
    previous process; a watcher past its planned end fires immediately.
  - Accrual and sweep are idempotent, so a duplicated trigger (two
    replicas, a manual run racing the schedule) is harmless.
  - Stop cancels every wait and blocks until the goroutines exit.

USAGE:
  scheduler := jobs.NewScheduler(cfg, accrual, sweeper, watcher, store, clock, log)
  scheduler.Start(ctx)
  defer scheduler.Stop()

SEE ALSO:
  - absence/accrual.go, timelog/sweeper.go, timelog/watcher.go
*/
package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/worklog/absence"
	"github.com/warp/worklog/generic"
	"github.com/warp/worklog/timelog"
)

// DefaultSweepInterval is how often overrun sessions are swept.
const DefaultSweepInterval = 5 * time.Minute

// Config controls which triggers run.
type Config struct {
	SweepInterval  time.Duration // <= 0 disables the sweep loop
	AccrualEnabled bool
	Location       *time.Location
}

// Scheduler owns the background goroutines.
type Scheduler struct {
	cfg     Config
	accrual *absence.AccrualJob
	sweeper *timelog.Sweeper
	watcher *timelog.Watcher
	watches generic.WatchStore
	clock   generic.Clock
	log     logrus.FieldLogger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewScheduler creates a scheduler. Nothing runs until Start.
func NewScheduler(
	cfg Config,
	accrual *absence.AccrualJob,
	sweeper *timelog.Sweeper,
	watcher *timelog.Watcher,
	watches generic.WatchStore,
	clock generic.Clock,
	log logrus.FieldLogger,
) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Scheduler{
		cfg:     cfg,
		accrual: accrual,
		sweeper: sweeper,
		watcher: watcher,
		watches: watches,
		clock:   clock,
		log:     log.WithField("component", "scheduler"),
	}
}

// Start launches the triggers and re-arms persisted watchers.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	pending, err := s.watches.ListWatches(ctx)
	if err != nil {
		return err
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.running = true

	if s.cfg.AccrualEnabled {
		s.wg.Add(1)
		go s.monthlyLoop()
	}
	if s.cfg.SweepInterval > 0 {
		s.wg.Add(1)
		go s.sweepLoop()
	}
	for _, w := range pending {
		s.armLocked(w.TimeLogID, w.Duration)
	}

	s.log.WithFields(logrus.Fields{
		"sweep_interval":  s.cfg.SweepInterval.String(),
		"accrual_enabled": s.cfg.AccrualEnabled,
		"rearmed_watches": len(pending),
	}).Info("scheduler started")
	return nil
}

// Stop cancels all waits and blocks until every goroutine returned.
// Pending watchers stay persisted for the next Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

// Arm starts the watcher for a session whose watch is already persisted
// (timelog.Service.StartWithAutoClose). It is a no-op while the scheduler is
// stopped; Start picks the watch up from the WatchStore.
func (s *Scheduler) Arm(id generic.TimeLogID, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.armLocked(id, duration)
	}
}

// RunAccrualNow runs the accrual job outside the schedule.
func (s *Scheduler) RunAccrualNow(ctx context.Context) (absence.AccrualResult, error) {
	return s.accrual.Run(ctx)
}

// RunSweepNow runs the sweeper outside the schedule.
func (s *Scheduler) RunSweepNow(ctx context.Context) (timelog.SweepResult, error) {
	return s.sweeper.Sweep(ctx)
}

func (s *Scheduler) monthlyLoop() {
	defer s.wg.Done()
	for {
		now := s.clock.Now()
		next := generic.StartOfNextMonth(now, s.cfg.Location)
		s.log.WithField("next_run", next.Format(time.RFC3339)).Debug("accrual scheduled")

		select {
		case <-s.clock.After(next.Sub(now)):
		case <-s.ctx.Done():
			return
		}
		// errors are logged by the job; the next month tries again
		_, _ = s.accrual.Run(s.ctx)
	}
}

func (s *Scheduler) sweepLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.clock.After(s.cfg.SweepInterval):
		case <-s.ctx.Done():
			return
		}
		_, _ = s.sweeper.Sweep(s.ctx)
	}
}

// armLocked starts the watcher goroutine. s.mu must be held.
func (s *Scheduler) armLocked(id generic.TimeLogID, duration time.Duration) {
	ctx := s.ctx
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		closed, err := s.watcher.Watch(ctx, id, duration)
		if errors.Is(err, context.Canceled) {
			return
		}
		if err != nil && !errors.Is(err, generic.ErrNotFound) {
			s.log.WithField("time_log_id", id).WithError(err).Error("watcher failed")
		}
		if err := s.watches.DeleteWatch(context.Background(), id); err != nil {
			s.log.WithField("time_log_id", id).WithError(err).Warn("failed to delete watch")
		}
		s.log.WithFields(logrus.Fields{"time_log_id": id, "closed": closed}).Debug("watcher done")
	}()
}
