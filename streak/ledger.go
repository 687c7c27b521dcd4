/*
ledger.go - Append-only activity ledger with streak-specific invariants

PURPOSE:
  The ledger is the source of truth for every other computation in the
  engine. Counters, timelines, stats and notifications are all derived
  by replaying it.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete. EVER.
  2. ONE RECORD PER DAY: A day is binary "had activity". A second append
     for the same (user, day) is detected before writing so callers can
     take the idempotent no-op path.
  3. CALENDAR ORDER: Appends for a date earlier than the latest recorded
     date are rejected with ErrOutOfOrderWrite. That situation indicates
     a client-clock or integration bug, never a valid state.

WHY APPEND-ONLY?
  - The calendar view must be re-derivable identically from the ledger
    alone, with no hidden state.
  - "Why is my streak N?" is always answerable by reading history.

SEE ALSO:
  - store.go: Low-level persistence interface
  - engine.go: Read-modify-write of counters around Append
*/
package streak

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// =============================================================================
// LEDGER - Invariant-enforcing wrapper over Store
// =============================================================================

// Ledger wraps a Store with the streak-specific ledger rules: one record
// per day, appends in calendar order.
type Ledger struct {
	store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Append writes a record for (userID, day) with the given activity type.
// Returns (record, true, nil) on a fresh write, (existing, false, nil)
// when the day already has a record, and an error on ordering violations.
func (l *Ledger) Append(ctx context.Context, userID UserID, day Day, activityType ActivityType) (*ActivityRecord, bool, error) {
	if !ValidActivityType(activityType) {
		return nil, false, fmt.Errorf("%w: %q", ErrInvalidActivityType, activityType)
	}

	existing, err := l.store.RecordOn(ctx, userID, day)
	if err != nil {
		return nil, false, fmt.Errorf("check day: %w", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	latest, err := l.store.LatestRecordDay(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("check ordering: %w", err)
	}
	if latest != nil && day.Before(*latest) {
		return nil, false, &OutOfOrderWriteError{
			UserID:     userID,
			Attempted:  day,
			LatestDate: *latest,
		}
	}

	rec := ActivityRecord{
		ID:        RecordID(uuid.NewString()),
		UserID:    userID,
		Date:      day,
		Type:      activityType,
		CreatedAt: day,
	}
	if err := l.store.AppendRecord(ctx, rec); err != nil {
		return nil, false, fmt.Errorf("append record: %w", err)
	}
	return &rec, true, nil
}

// =============================================================================
// READ-SIDE QUERIES
// =============================================================================

// Records returns the full chronological ledger for a user.
func (l *Ledger) Records(ctx context.Context, userID UserID) ([]ActivityRecord, error) {
	return l.store.LoadRecords(ctx, userID)
}

// RecordsInRange returns records with date in [from, to].
func (l *Ledger) RecordsInRange(ctx context.Context, userID UserID, from, to Day) ([]ActivityRecord, error) {
	return l.store.LoadRecordsInRange(ctx, userID, from, to)
}

// RecordOn returns the record for a specific day, or nil.
func (l *Ledger) RecordOn(ctx context.Context, userID UserID, day Day) (*ActivityRecord, error) {
	return l.store.RecordOn(ctx, userID, day)
}

// HasActivityOn reports whether a day carries any record (freeze included).
func (l *Ledger) HasActivityOn(ctx context.Context, userID UserID, day Day) (bool, error) {
	rec, err := l.store.RecordOn(ctx, userID, day)
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}
