/*
store.go - Persistence interface for the streak engine

PURPOSE:
  Defines the interface between the engine and the record store. The
  engine is storage-agnostic: implementations exist for SQLite
  (store/sqlite) and in-memory (streak/store).

APPEND-ONLY CONTRACT:
  Activity records are append-only. There is no update or delete; a day
  either has its single record or it does not. Counters, freeze state and
  settings are small mutable rows keyed by user id, rewritten whole.

KEY INTERFACES:
  Store:       Activity records + counters + freeze + settings + users
  NotifyStore: Deduplication state owned by the trigger evaluator

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - streak/store/memory.go: In-memory for testing

SEE ALSO:
  - ledger.go: Invariant-enforcing wrapper over Store
  - notify.go: Uses NotifyStore for at-most-once semantics
*/
package streak

import "context"

// =============================================================================
// STORE - Activity records and per-user state
// =============================================================================

// Store handles persistence for the streak engine.
// IMPORTANT: Activity records are APPEND-ONLY. No Update, No Delete.
type Store interface {
	// AppendRecord persists an activity record.
	// This is the ONLY write operation on the ledger.
	AppendRecord(ctx context.Context, rec ActivityRecord) error

	// LoadRecords returns all records for a user, ordered by date.
	LoadRecords(ctx context.Context, userID UserID) ([]ActivityRecord, error)

	// LoadRecordsInRange returns records with date in [from, to], ordered.
	LoadRecordsInRange(ctx context.Context, userID UserID, from, to Day) ([]ActivityRecord, error)

	// RecordOn returns the record for a specific day, or nil.
	RecordOn(ctx context.Context, userID UserID, day Day) (*ActivityRecord, error)

	// LatestRecordDay returns the most recent recorded day, or nil if the
	// ledger is empty for this user.
	LatestRecordDay(ctx context.Context, userID UserID) (*Day, error)

	// GetCounters returns the stored counters, or nil if none exist yet.
	GetCounters(ctx context.Context, userID UserID) (*StreakCounters, error)

	// SaveCounters upserts the counters row.
	SaveCounters(ctx context.Context, c StreakCounters) error

	// GetFreezeState returns the stored freeze state, or nil.
	GetFreezeState(ctx context.Context, userID UserID) (*FreezeState, error)

	// SaveFreezeState upserts the freeze state row.
	SaveFreezeState(ctx context.Context, f FreezeState) error

	// GetSettings returns the stored settings, or nil if never written.
	// Callers recover locally with DefaultSettings.
	GetSettings(ctx context.Context, userID UserID) (*StreakSettings, error)

	// SaveSettings upserts the settings row.
	SaveSettings(ctx context.Context, s StreakSettings) error

	// GetUser returns the user, or nil.
	GetUser(ctx context.Context, userID UserID) (*User, error)

	// SaveUser upserts the user row.
	SaveUser(ctx context.Context, u User) error
}

// =============================================================================
// NOTIFY STORE - Deduplication boundary for the trigger evaluator
// =============================================================================

// NotifyState is the per-user dedup state the evaluator compares against.
// It replaces ambient "already shown today" flags with an explicit,
// persisted record.
type NotifyState struct {
	UserID              UserID
	LastState           State // last observed classification, "" if none
	WarningDay          *Day  // day a warning was last emitted
	LastFreezeResetWeek *Day  // Monday of the week a reset notice fired
}

// NotifyStore persists the evaluator's deduplication state. Milestones are
// a separate grow-only set keyed by (user, milestone value) because a
// milestone must fire at most once EVER, not once per state entry.
type NotifyStore interface {
	// GetNotifyState returns the stored state, or nil if none.
	GetNotifyState(ctx context.Context, userID UserID) (*NotifyState, error)

	// SaveNotifyState upserts the state row.
	SaveNotifyState(ctx context.Context, s NotifyState) error

	// WasMilestoneShown checks the (user, milestone) shown set.
	WasMilestoneShown(ctx context.Context, userID UserID, milestone int) (bool, error)

	// MarkMilestoneShown adds to the (user, milestone) shown set.
	MarkMilestoneShown(ctx context.Context, userID UserID, milestone int) error
}
