/*
service.go - Work sessions with at most one open session per user

PURPOSE:
  Owns the lifecycle of a TimeLog: start, end, force-close. Every write on a
  user's open-session slot runs inside Store.WithUserLock, so the
  check-then-write below is atomic against concurrent requests and jobs,
  including ones running in other processes.

STATE MACHINE:
  (none) --Start--> open (End == nil) --End / ForceClose--> closed

  A closed log is never reopened or deleted. Closing goes through the guarded
  CloseTimeLog (only if End IS NULL), so a manual End, the sweeper and the
  watcher can race and the first writer wins.

OPERATIONS:
  Start(actor, project, activity)  -> ErrActiveSessionExists, ErrInvalidReference
  StartWithAutoClose(..., d)       -> Start + persisted watch, in one transaction
  End(actor)                       -> no-op when nothing is open
  Current(actor)                   -> ErrNotFound when nothing is open
  ForceClose(id, end)              -> false when already closed

SEE ALSO:
  - sweeper.go: bulk close of overrun sessions
  - watcher.go: deferred close at the planned end
*/
package timelog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/warp/worklog/generic"
)

// Service manages time logs on top of a generic.Store.
type Service struct {
	store generic.Store
	clock generic.Clock
	log   logrus.FieldLogger
}

// NewService creates a time log service.
func NewService(store generic.Store, clock generic.Clock, log logrus.FieldLogger) *Service {
	return &Service{store: store, clock: clock, log: log}
}

// Start opens a new session for the actor.
func (s *Service) Start(ctx context.Context, actor generic.Actor, projectID generic.ProjectID, activityID generic.ActivityID) (*generic.TimeLog, error) {
	return s.StartWithAutoClose(ctx, actor, projectID, activityID, 0)
}

// StartWithAutoClose opens a new session and, when autoClose is positive,
// records a watch that closes it at start + autoClose. The session and the
// watch commit together or not at all; arming the watch is up to the caller.
func (s *Service) StartWithAutoClose(ctx context.Context, actor generic.Actor, projectID generic.ProjectID, activityID generic.ActivityID, autoClose time.Duration) (*generic.TimeLog, error) {
	var created generic.TimeLog

	err := s.store.WithUserLock(ctx, actor.UserID, func(tx generic.Tx) error {
		ok, err := tx.ProjectExists(ctx, projectID)
		if err != nil {
			return err
		}
		if !ok {
			return &generic.InvalidReferenceError{Kind: "project", ID: string(projectID)}
		}
		ok, err = tx.ActivityExists(ctx, activityID)
		if err != nil {
			return err
		}
		if !ok {
			return &generic.InvalidReferenceError{Kind: "activity", ID: string(activityID)}
		}

		open, err := tx.OpenSession(ctx, actor.UserID)
		if err != nil {
			return err
		}
		if open != nil {
			return generic.ErrActiveSessionExists
		}

		created = generic.TimeLog{
			ID:         generic.TimeLogID(uuid.NewString()),
			UserID:     actor.UserID,
			Start:      storedNow(s.clock),
			ProjectID:  projectID,
			ActivityID: activityID,
		}
		if err := tx.InsertTimeLog(ctx, created); err != nil {
			return err
		}
		if autoClose <= 0 {
			return nil
		}
		return tx.SaveWatch(ctx, generic.Watch{
			TimeLogID: created.ID,
			Duration:  autoClose,
			CreatedAt: created.Start,
		})
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"user_id":     actor.UserID,
			"project_id":  projectID,
			"activity_id": activityID,
		}).WithError(err).Warn("start session rejected")
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":     actor.UserID,
		"time_log_id": created.ID,
		"auto_close":  autoClose.String(),
	}).Info("session started")
	return &created, nil
}

// End closes the actor's open session at now. It returns nil, nil when
// nothing was open.
func (s *Service) End(ctx context.Context, actor generic.Actor) (*generic.TimeLog, error) {
	var closed *generic.TimeLog

	err := s.store.WithUserLock(ctx, actor.UserID, func(tx generic.Tx) error {
		open, err := tx.OpenSession(ctx, actor.UserID)
		if err != nil || open == nil {
			return err
		}
		end := storedNow(s.clock)
		if end.Before(open.Start) {
			end = open.Start
		}
		ok, err := tx.CloseTimeLog(ctx, open.ID, end)
		if err != nil {
			return err
		}
		if ok {
			open.End = &end
			closed = open
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("end session: %w", err)
	}

	if closed != nil {
		s.log.WithFields(logrus.Fields{
			"user_id":     actor.UserID,
			"time_log_id": closed.ID,
			"duration":    closed.Duration().String(),
		}).Info("session ended")
	}
	return closed, nil
}

// Current returns the actor's open session or ErrNotFound.
func (s *Service) Current(ctx context.Context, actor generic.Actor) (*generic.TimeLog, error) {
	var open *generic.TimeLog
	err := s.store.WithTx(ctx, func(tx generic.Tx) error {
		var err error
		open, err = tx.OpenSession(ctx, actor.UserID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("current session: %w", err)
	}
	if open == nil {
		return nil, generic.ErrNotFound
	}
	return open, nil
}

// ForceClose sets End on the log only if it is still open. It reports whether
// this call closed it.
func (s *Service) ForceClose(ctx context.Context, id generic.TimeLogID, end time.Time) (bool, error) {
	existing, err := s.store.GetTimeLog(ctx, id)
	if err != nil {
		return false, fmt.Errorf("force close %s: %w", id, err)
	}
	if existing == nil {
		return false, generic.ErrNotFound
	}
	if end.Before(existing.Start) {
		return false, generic.ErrInvalidPeriod
	}

	var closed bool
	err = s.store.WithUserLock(ctx, existing.UserID, func(tx generic.Tx) error {
		var err error
		closed, err = tx.CloseTimeLog(ctx, id, end.UTC())
		return err
	})
	if err != nil {
		return false, fmt.Errorf("force close %s: %w", id, err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id":     existing.UserID,
		"time_log_id": id,
		"end":         end.UTC().Format(time.RFC3339),
		"closed":      closed,
	}).Info("force close")
	return closed, nil
}

// List returns the actor's logs, newest first. Elevated actors see everyone's.
func (s *Service) List(ctx context.Context, actor generic.Actor, page generic.Page) ([]generic.TimeLog, error) {
	var userID *generic.UserID
	if !actor.Elevated {
		userID = &actor.UserID
	}
	logs, err := s.store.ListTimeLogs(ctx, userID, page)
	if err != nil {
		return nil, fmt.Errorf("list time logs: %w", err)
	}
	return logs, nil
}

// storedNow is the clock reading at the precision the stores keep (TIMESTAMPTZ
// holds microseconds), so a returned log matches what a later read sees.
func storedNow(clock generic.Clock) time.Time {
	return clock.Now().UTC().Truncate(time.Microsecond)
}
