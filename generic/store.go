/*
store.go - Persistence contracts for the worklog core

PURPOSE:
  The core never talks to a database directly. It needs three things:
  reads, one transaction at a time, and a per-user exclusive section that
  holds across processes (requests and jobs may run in separate binaries).

KEY INTERFACES:
  Tx:     operations available inside a transaction
  Store:  reads + WithTx + WithUserLock
  Watches: persistence for deferred auto-close watchers

SERIALIZATION:
  WithUserLock(user, fn) runs fn in one transaction that is serialized
  against every other WithUserLock for the same user:
    - postgres: pg_advisory_xact_lock(hash(user))
    - sqlite:   BEGIN IMMEDIATE (one writer per database file)
    - memory:   store-wide mutex
  Check-then-write sequences (one open session, non-negative balance) are
  only correct inside it.

GUARDED CLOSE:
  CloseTimeLog only sets End when it is still NULL, and reports whether it
  did. Manual end, the sweeper and the watcher all go through it, so the
  first writer wins and later ones are no-ops.

IMPLEMENTATIONS:
  - store/memory:   tests and dev
  - store/sqlite:   single-node deployments
  - store/postgres: multi-process deployments
*/
package generic

import (
	"context"
	"time"
)

// Tx is the view of the store inside a transaction.
type Tx interface {
	// Time logs
	OpenSession(ctx context.Context, userID UserID) (*TimeLog, error) // nil, nil when none
	InsertTimeLog(ctx context.Context, log TimeLog) error
	CloseTimeLog(ctx context.Context, id TimeLogID, end time.Time) (bool, error)
	GetTimeLog(ctx context.Context, id TimeLogID) (*TimeLog, error) // nil, nil when missing
	ListOpenSessions(ctx context.Context) ([]OpenSession, error)
	SaveWatch(ctx context.Context, w Watch) error

	// References
	ProjectExists(ctx context.Context, id ProjectID) (bool, error)
	ActivityExists(ctx context.Context, id ActivityID) (bool, error)

	// Ledger
	Balance(ctx context.Context, userID UserID) (int64, error)
	AppendEntries(ctx context.Context, entries []LedgerEntry) error

	// Accrual bookkeeping
	ListUsers(ctx context.Context) ([]User, error)
	FirstAdmin(ctx context.Context) (*User, error) // nil, nil when none
	Settings(ctx context.Context) (*Settings, error) // nil, nil when missing
	AccrualRecorded(ctx context.Context, period string) (bool, error)
	RecordAccrual(ctx context.Context, period string, at time.Time, users int) error
}

// Store is the full persistence contract.
type Store interface {
	WithTx(ctx context.Context, fn func(Tx) error) error
	WithUserLock(ctx context.Context, userID UserID, fn func(Tx) error) error

	// Users
	CreateUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, id UserID) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context, page Page) ([]User, error)
	UpdatePassword(ctx context.Context, id UserID, hash string) error

	// Reference data
	CreateProject(ctx context.Context, p Project) error
	ListProjects(ctx context.Context, page Page) ([]Project, error)
	CreateActivity(ctx context.Context, a Activity) error
	ListActivities(ctx context.Context, page Page) ([]Activity, error)
	SaveHoliday(ctx context.Context, h Holiday) error
	ListHolidays(ctx context.Context, from, to Date) ([]Holiday, error)
	SaveSettings(ctx context.Context, s Settings) error

	// Reads
	GetTimeLog(ctx context.Context, id TimeLogID) (*TimeLog, error)
	ListTimeLogs(ctx context.Context, userID *UserID, page Page) ([]TimeLog, error)
	// ListClosedTimeLogs returns closed logs whose Start is in [from, to).
	ListClosedTimeLogs(ctx context.Context, userIDs []UserID, from, to time.Time) ([]TimeLog, error)
	ListEntries(ctx context.Context, userID *UserID, page Page) ([]LedgerEntry, error)
	Balance(ctx context.Context, userID UserID) (int64, error)

	Close() error
}

// Watch is a persisted deferred auto-close request.
type Watch struct {
	TimeLogID TimeLogID
	Duration  time.Duration
	CreatedAt time.Time
}

// WatchStore keeps pending watchers so they can be re-armed after a restart.
type WatchStore interface {
	SaveWatch(ctx context.Context, w Watch) error
	DeleteWatch(ctx context.Context, id TimeLogID) error
	ListWatches(ctx context.Context) ([]Watch, error)
}
