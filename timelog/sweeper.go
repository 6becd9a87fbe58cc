package timelog

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/worklog/generic"
)

// SweepResult summarizes one sweep run.
type SweepResult struct {
	At      time.Time
	Checked int
	Closed  []generic.TimeLogID
}

// Sweeper closes open sessions that outlived their owner's MaxSession.
// A second run right after the first finds nothing: closed sessions drop out
// of the open-session listing.
type Sweeper struct {
	store generic.Store
	clock generic.Clock
	log   logrus.FieldLogger
}

func NewSweeper(store generic.Store, clock generic.Clock, log logrus.FieldLogger) *Sweeper {
	return &Sweeper{store: store, clock: clock, log: log}
}

// Sweep sets End = now on every overrun session.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	now := storedNow(s.clock)
	result := SweepResult{At: now, Closed: []generic.TimeLogID{}}

	err := s.store.WithTx(ctx, func(tx generic.Tx) error {
		open, err := tx.ListOpenSessions(ctx)
		if err != nil {
			return err
		}
		result.Checked = len(open)

		for _, session := range open {
			if !session.Overrun(now) {
				continue
			}
			closed, err := tx.CloseTimeLog(ctx, session.Log.ID, now)
			if err != nil {
				return err
			}
			if closed {
				result.Closed = append(result.Closed, session.Log.ID)
			}
		}
		return nil
	})
	if err != nil {
		s.log.WithError(err).Error("session sweep failed")
		return SweepResult{}, fmt.Errorf("sweep sessions: %w", err)
	}

	if len(result.Closed) > 0 {
		s.log.WithFields(logrus.Fields{
			"checked": result.Checked,
			"closed":  len(result.Closed),
		}).Info("session sweep closed overrun sessions")
	}
	return result, nil
}
