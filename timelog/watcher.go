package timelog

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/worklog/generic"
)

// DefaultWatchLead is how early the watcher wakes before the planned end.
const DefaultWatchLead = 5 * time.Second

// Watcher closes a single session at its planned end if nobody else did.
type Watcher struct {
	service *Service
	store   generic.Store
	clock   generic.Clock
	lead    time.Duration
	log     logrus.FieldLogger
}

func NewWatcher(service *Service, store generic.Store, clock generic.Clock, lead time.Duration, log logrus.FieldLogger) *Watcher {
	if lead < 0 {
		lead = 0
	}
	return &Watcher{service: service, store: store, clock: clock, lead: lead, log: log}
}

// Watch blocks until start+duration-lead, then closes the session at
// start+duration if it is still open. It holds no lock while waiting.
// Cancelling ctx abandons the wait.
func (w *Watcher) Watch(ctx context.Context, id generic.TimeLogID, duration time.Duration) (bool, error) {
	if duration <= 0 {
		return false, fmt.Errorf("watch %s: duration must be positive: %w", id, generic.ErrInvalidPeriod)
	}

	session, err := w.store.GetTimeLog(ctx, id)
	if err != nil {
		return false, fmt.Errorf("watch %s: %w", id, err)
	}
	if session == nil {
		return false, generic.ErrNotFound
	}
	if !session.IsOpen() {
		return false, nil
	}

	plannedEnd := session.Start.Add(duration)
	wait := plannedEnd.Add(-w.lead).Sub(w.clock.Now())
	if wait < 0 {
		wait = 0
	}

	w.log.WithFields(logrus.Fields{
		"time_log_id": id,
		"planned_end": plannedEnd.UTC().Format(time.RFC3339),
		"wait":        wait.String(),
	}).Debug("watcher armed")

	select {
	case <-w.clock.After(wait):
	case <-ctx.Done():
		return false, ctx.Err()
	}

	closed, err := w.service.ForceClose(ctx, id, plannedEnd)
	if err != nil {
		return false, err
	}
	if !closed {
		w.log.WithField("time_log_id", id).Debug("watcher found session already closed")
	}
	return closed, nil
}
