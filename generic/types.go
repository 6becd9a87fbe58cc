/*
Package generic holds the vocabulary shared by every worklog package.

KEY CONCEPTS IN THIS FILE (types.go):
  - User: identity plus the weekly expected-hours schedule and session cap
  - TimeLog: one work session; End == nil means the session is open
  - LedgerEntry: an immutable signed delta on a user's absence balance
  - Holiday, Settings, Project, Activity: reference data
  - Actor: the acting identity resolved by the auth layer

DESIGN PRINCIPLES:
  1. Balances are derived, never stored. LedgerEntry rows are only appended.
  2. Hours use decimal.Decimal so daily sums do not drift.
  3. IDs are typed strings so a UserID can't be passed where a TimeLogID is expected.

SEE ALSO:
  - store.go: persistence contracts
  - errors.go: failure taxonomy
  - time.go: calendar dates and clocks
*/
package generic

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type TimeLogID string
type EntryID string
type ProjectID string
type ActivityID string

// =============================================================================
// USER
// =============================================================================

// User is owned by the auth collaborator. The core only reads the schedule
// fields; the rest exists so the adapters can log people in.
type User struct {
	ID           UserID
	Username     string
	PasswordHash string
	IsAdmin      bool

	// ExpectedHours is indexed Monday=0 .. Sunday=6.
	ExpectedHours [7]decimal.Decimal

	// MaxSession caps a single session. Zero means unlimited.
	MaxSession time.Duration

	CreatedAt time.Time
}

// ExpectedOn returns the scheduled hours for a weekday index (Monday=0).
func (u User) ExpectedOn(weekday int) decimal.Decimal {
	if weekday < 0 || weekday > 6 {
		return decimal.Zero
	}
	return u.ExpectedHours[weekday]
}

// HasSessionCap reports whether the sweeper should police this user's sessions.
func (u User) HasSessionCap() bool { return u.MaxSession > 0 }

// =============================================================================
// TIME LOG - one work session
// =============================================================================

type TimeLog struct {
	ID         TimeLogID
	UserID     UserID
	Start      time.Time
	End        *time.Time
	ProjectID  ProjectID
	ActivityID ActivityID
}

// IsOpen reports whether the session has not been closed yet.
func (t TimeLog) IsOpen() bool { return t.End == nil }

// Duration is zero for open sessions: they contribute nothing until closed.
func (t TimeLog) Duration() time.Duration {
	if t.End == nil {
		return 0
	}
	return t.End.Sub(t.Start)
}

// OpenSession pairs an open log with its owner's session cap, as read by the sweeper.
type OpenSession struct {
	Log        TimeLog
	MaxSession time.Duration
}

// Overrun reports whether the session has outlived its owner's cap at now.
func (o OpenSession) Overrun(now time.Time) bool {
	return o.MaxSession > 0 && o.Log.Start.Add(o.MaxSession).Before(now)
}

// =============================================================================
// ABSENCE LEDGER
// =============================================================================

// LedgerEntry is one immutable signed delta on an absence balance.
// Corrections are new entries, never edits.
type LedgerEntry struct {
	ID             EntryID
	UserID         UserID
	Date           Date
	Description    string
	Delta          int64
	CreatedBy      UserID
	CreatedAt      time.Time
	IdempotencyKey string
}

// Settings is the externally configured accrual singleton.
type Settings struct {
	SickLeavePerMonth   int64
	CasualLeavePerMonth int64
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

type Holiday struct {
	Date Date
	Name string
}

type Project struct {
	ID        ProjectID
	Name      string
	CreatedAt time.Time
}

type Activity struct {
	ID        ActivityID
	Name      string
	CreatedAt time.Time
}

// =============================================================================
// ACTOR - resolved by the auth layer for every operation
// =============================================================================

type Actor struct {
	UserID   UserID
	Elevated bool
}

// Authorize checks that the actor may read or write target's data.
func (a Actor) Authorize(target UserID) error {
	if a.Elevated || a.UserID == target {
		return nil
	}
	return ErrForbidden
}

// Page bounds list queries.
type Page struct {
	Limit  int
	Offset int
}
