/*
errors.go - Centralized error types for the streak engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers branch with errors.Is / errors.As.

ERROR CATEGORIES:
  1. Ledger errors - Ordering and uniqueness violations
  2. Freeze errors - Expected user-facing refusals, returned as results
  3. Lookup errors - Missing users or records

FATAL VS RECOVERABLE:
  Out-of-order ledger writes indicate a client-clock or integration bug
  and are classified fatal (IsFatal). Freeze refusals are expected states
  and are classified client errors (IsClientError).

SEE ALSO:
  - ledger.go: Uses ordering/uniqueness errors
  - engine.go: Returns freeze errors inside FreezeResult
*/
package streak

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrOutOfOrderWrite is returned when a ledger append targets a date
	// earlier than the latest recorded date for the user. The ledger is
	// append-only in calendar-time order; this must never be silently
	// reordered.
	ErrOutOfOrderWrite = errors.New("out-of-order ledger write")

	// ErrAlreadyActiveToday is returned when a freeze is requested for a
	// day that is already completed. The freeze would be redundant.
	ErrAlreadyActiveToday = errors.New("already active today")

	// ErrQuotaExhausted is returned when a freeze is requested with none
	// left in the current Monday-aligned week.
	ErrQuotaExhausted = errors.New("freeze quota exhausted for this week")

	// ErrUserNotFound is returned when a referenced user doesn't exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidActivityType is returned for unknown activity types.
	ErrInvalidActivityType = errors.New("invalid activity type")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// OutOfOrderWriteError reports the conflicting dates of a rejected append.
type OutOfOrderWriteError struct {
	UserID     UserID
	Attempted  Day
	LatestDate Day
}

func (e *OutOfOrderWriteError) Error() string {
	return fmt.Sprintf("out-of-order ledger write for %s: %s is before latest recorded day %s",
		e.UserID, e.Attempted, e.LatestDate)
}

func (e *OutOfOrderWriteError) Unwrap() error { return ErrOutOfOrderWrite }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error represents an expected
// user-facing refusal rather than a defect.
func IsClientError(err error) bool {
	return errors.Is(err, ErrAlreadyActiveToday) ||
		errors.Is(err, ErrQuotaExhausted) ||
		errors.Is(err, ErrInvalidActivityType)
}

// IsFatal returns true if the error indicates an integration bug that
// should not be retried or swallowed.
func IsFatal(err error) bool {
	return errors.Is(err, ErrOutOfOrderWrite)
}

// IsNotFound returns true if the error indicates a missing user.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}
