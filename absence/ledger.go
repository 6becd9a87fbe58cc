/*
ledger.go - Absence balance as an append-only ledger of signed deltas

PURPOSE:
  A user's absence balance is the sum of their entries. Nothing is ever
  stored as a running total, so there is no cached value to go stale.

INVARIANT:
  Balance immediately before a debit must be >= 1.

  Debit reads the balance and appends -1 inside Store.WithUserLock. Two
  concurrent debits on a balance of 1 are serialized there: the second one
  sees 0 and is rejected with InsufficientBalanceError, writing nothing.

  Credits have no precondition.

SEE ALSO:
  - accrual.go: monthly credits
  - generic/store.go: WithUserLock semantics per backend
*/
package absence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/warp/worklog/generic"
)

// DebitUnit is the only debit size: absences are whole days.
const DebitUnit int64 = 1

// Ledger reads and appends absence entries.
type Ledger struct {
	store generic.Store
	clock generic.Clock
	loc   *time.Location
	log   logrus.FieldLogger
}

// NewLedger creates a ledger. loc decides what "today" means for entries
// without an explicit date.
func NewLedger(store generic.Store, clock generic.Clock, loc *time.Location, log logrus.FieldLogger) *Ledger {
	if loc == nil {
		loc = time.UTC
	}
	return &Ledger{store: store, clock: clock, loc: loc, log: log}
}

// Balance returns the sum of userID's deltas; 0 with no entries.
func (l *Ledger) Balance(ctx context.Context, actor generic.Actor, userID generic.UserID) (int64, error) {
	if err := actor.Authorize(userID); err != nil {
		return 0, err
	}
	balance, err := l.store.Balance(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("balance for %s: %w", userID, err)
	}
	return balance, nil
}

// Credit appends a positive or negative adjustment without any check.
// Only jobs and elevated actors call it.
func (l *Ledger) Credit(ctx context.Context, userID generic.UserID, date generic.Date, description string, delta int64, createdBy generic.UserID) (*generic.LedgerEntry, error) {
	entry := l.newEntry(userID, date, description, delta, createdBy)

	err := l.store.WithUserLock(ctx, userID, func(tx generic.Tx) error {
		return tx.AppendEntries(ctx, []generic.LedgerEntry{entry})
	})
	if err != nil {
		return nil, fmt.Errorf("credit %s: %w", userID, err)
	}

	l.log.WithFields(logrus.Fields{
		"user_id":    userID,
		"delta":      delta,
		"created_by": createdBy,
	}).Info("absence credited")
	return &entry, nil
}

// Debit takes one unit from userID's balance. It fails with
// InsufficientBalanceError, writing nothing, when the balance is below one.
func (l *Ledger) Debit(ctx context.Context, actor generic.Actor, userID generic.UserID, date generic.Date, description string) (*generic.LedgerEntry, error) {
	if err := actor.Authorize(userID); err != nil {
		return nil, err
	}
	entry := l.newEntry(userID, date, description, -DebitUnit, actor.UserID)

	err := l.store.WithUserLock(ctx, userID, func(tx generic.Tx) error {
		balance, err := tx.Balance(ctx, userID)
		if err != nil {
			return err
		}
		if balance < DebitUnit {
			return &generic.InsufficientBalanceError{UserID: userID, Available: balance}
		}
		return tx.AppendEntries(ctx, []generic.LedgerEntry{entry})
	})
	if err != nil {
		l.log.WithFields(logrus.Fields{
			"user_id": userID,
			"actor":   actor.UserID,
		}).WithError(err).Warn("absence debit rejected")
		return nil, err
	}

	l.log.WithFields(logrus.Fields{
		"user_id": userID,
		"actor":   actor.UserID,
		"date":    entry.Date.String(),
	}).Info("absence debited")
	return &entry, nil
}

// Entries lists ledger rows, newest first. Standard actors see their own only.
func (l *Ledger) Entries(ctx context.Context, actor generic.Actor, page generic.Page) ([]generic.LedgerEntry, error) {
	var userID *generic.UserID
	if !actor.Elevated {
		userID = &actor.UserID
	}
	entries, err := l.store.ListEntries(ctx, userID, page)
	if err != nil {
		return nil, fmt.Errorf("list absence entries: %w", err)
	}
	return entries, nil
}

func (l *Ledger) newEntry(userID generic.UserID, date generic.Date, description string, delta int64, createdBy generic.UserID) generic.LedgerEntry {
	now := l.clock.Now()
	if date.IsZero() {
		date = generic.DateOf(now, l.loc)
	}
	return generic.LedgerEntry{
		ID:          generic.EntryID(uuid.NewString()),
		UserID:      userID,
		Date:        date,
		Description: description,
		Delta:       delta,
		CreatedBy:   createdBy,
		CreatedAt:   now.UTC(),
	}
}
