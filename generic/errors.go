/*
errors.go - Failure taxonomy for the worklog core

ERROR CATEGORIES:
  1. Domain errors - recoverable, surfaced to the caller as a named kind
  2. Configuration errors - abort a whole job run, nothing is applied
  3. Store errors - not owned by the core, wrapped with context and propagated

USAGE:
  if errors.Is(err, generic.ErrInsufficientBalance) {
      // nothing was written
  }
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrActiveSessionExists is returned when a user starts a session while one is open.
	ErrActiveSessionExists = errors.New("an active session already exists")

	// ErrInvalidReference is returned when a project or activity does not exist.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrInsufficientBalance is returned when a debit would take the balance below zero.
	ErrInsufficientBalance = errors.New("insufficient absence balance")

	// ErrConfigurationMissing aborts an accrual run: no admin actor or no settings row.
	ErrConfigurationMissing = errors.New("configuration missing")

	// ErrNotFound is returned for optional lookups with no result.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when a standard actor touches someone else's data.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidPeriod is returned when an end precedes its start.
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrDuplicateIdempotencyKey is returned when an entry with the same key exists.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrDuplicateName is returned when a unique name (username, project) is taken.
	ErrDuplicateName = errors.New("name already exists")

	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("validation failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidReferenceError names the reference that failed to resolve.
type InvalidReferenceError struct {
	Kind string // "project" or "activity"
	ID   string
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("%s %q does not exist", e.Kind, e.ID)
}

func (e *InvalidReferenceError) Unwrap() error { return ErrInvalidReference }

// InsufficientBalanceError reports the balance observed at debit time.
type InsufficientBalanceError struct {
	UserID    UserID
	Available int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient absence balance: available %d", e.Available)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// ConfigurationMissingError names the missing piece of configuration.
type ConfigurationMissingError struct {
	What string
}

func (e *ConfigurationMissingError) Error() string {
	return fmt.Sprintf("configuration missing: %s", e.What)
}

func (e *ConfigurationMissingError) Unwrap() error { return ErrConfigurationMissing }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the caller can fix the request.
func IsClientError(err error) bool {
	return errors.Is(err, ErrActiveSessionExists) ||
		errors.Is(err, ErrInvalidReference) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrDuplicateIdempotencyKey) ||
		errors.Is(err, ErrDuplicateName) ||
		errors.Is(err, ErrValidation)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
