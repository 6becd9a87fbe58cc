package absence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/warp/worklog/generic"
)

const (
	SickLeaveDescription   = "Sick leave credit"
	CasualLeaveDescription = "Casual leave credit"
)

// errAlreadyAccrued rolls back the transaction when the period is done.
var errAlreadyAccrued = errors.New("period already accrued")

// AccrualResult describes one accrual run.
type AccrualResult struct {
	Period         string
	Users          int
	Entries        int
	AlreadyAccrued bool
}

// AccrualJob credits every user's sick and casual leave once per month.
//
// A run is one transaction: either every user gets both credits and the
// period is recorded, or nothing is written. A missing admin or settings row
// aborts the run with ConfigurationMissingError. Running twice for the same
// period is a no-op; each credit also carries an idempotency key, so even a
// run that slips past the period check cannot double-credit.
type AccrualJob struct {
	store generic.Store
	clock generic.Clock
	loc   *time.Location
	log   logrus.FieldLogger
}

func NewAccrualJob(store generic.Store, clock generic.Clock, loc *time.Location, log logrus.FieldLogger) *AccrualJob {
	if loc == nil {
		loc = time.UTC
	}
	return &AccrualJob{store: store, clock: clock, loc: loc, log: log}
}

// Run accrues the period containing now.
func (j *AccrualJob) Run(ctx context.Context) (AccrualResult, error) {
	now := j.clock.Now()
	today := generic.DateOf(now, j.loc)
	result := AccrualResult{Period: today.Period()}

	err := j.store.WithTx(ctx, func(tx generic.Tx) error {
		admin, err := tx.FirstAdmin(ctx)
		if err != nil {
			return err
		}
		if admin == nil {
			return &generic.ConfigurationMissingError{What: "administrative user"}
		}
		settings, err := tx.Settings(ctx)
		if err != nil {
			return err
		}
		if settings == nil {
			return &generic.ConfigurationMissingError{What: "leave settings"}
		}

		done, err := tx.AccrualRecorded(ctx, result.Period)
		if err != nil {
			return err
		}
		if done {
			return errAlreadyAccrued
		}

		users, err := tx.ListUsers(ctx)
		if err != nil {
			return err
		}

		entries := make([]generic.LedgerEntry, 0, 2*len(users))
		for _, u := range users {
			entries = append(entries,
				j.credit(u.ID, today, now, "sick", SickLeaveDescription, settings.SickLeavePerMonth, admin.ID, result.Period),
				j.credit(u.ID, today, now, "casual", CasualLeaveDescription, settings.CasualLeavePerMonth, admin.ID, result.Period),
			)
		}
		if err := tx.AppendEntries(ctx, entries); err != nil {
			return err
		}
		result.Users = len(users)
		result.Entries = len(entries)
		return tx.RecordAccrual(ctx, result.Period, now.UTC(), len(users))
	})

	switch {
	case errors.Is(err, errAlreadyAccrued), errors.Is(err, generic.ErrDuplicateIdempotencyKey):
		j.log.WithField("period", result.Period).Info("accrual already applied for period")
		return AccrualResult{Period: result.Period, AlreadyAccrued: true}, nil
	case err != nil:
		j.log.WithField("period", result.Period).WithError(err).Error("accrual run failed")
		return AccrualResult{Period: result.Period}, fmt.Errorf("accrual %s: %w", result.Period, err)
	}

	j.log.WithFields(logrus.Fields{
		"period":  result.Period,
		"users":   result.Users,
		"entries": result.Entries,
	}).Info("accrual applied")
	return result, nil
}

func (j *AccrualJob) credit(userID generic.UserID, date generic.Date, now time.Time, kind, description string, amount int64, admin generic.UserID, period string) generic.LedgerEntry {
	return generic.LedgerEntry{
		ID:             generic.EntryID(uuid.NewString()),
		UserID:         userID,
		Date:           date,
		Description:    description,
		Delta:          amount,
		CreatedBy:      admin,
		CreatedAt:      now.UTC(),
		IdempotencyKey: fmt.Sprintf("accrual:%s:%s:%s", period, userID, kind),
	}
}
