/*
engine.go - Streak calculator and freeze arbiter

PURPOSE:
  Implements the two write paths of the engine:
  - RecordActivity: Append a day to the ledger and advance the counters
  - UseFreeze: Spend the weekly grace token to cover today

GAP RULES (RecordActivity):
  gap is measured in whole calendar days from the last recorded day.
  - gap == 1 (or first-ever record): streak continues or starts
  - gap == 0: unreachable; same-day duplicates take the idempotent path
  - gap > 1: broken, unless every missed day is covered by a ledger
    record (freeze) or excluded as a weekend day under weekend mode

FREEZE SEMANTICS:
  A freeze record satisfies continuity exactly like any other activity
  type but preserves the streak count instead of incrementing it. The
  quota is 1 per Monday-aligned week, reset implicitly by computing the
  week from "today" at call time.

CONCURRENCY:
  RecordActivity and UseFreeze for the same user are serialized with a
  per-user mutex, so concurrent calls for the same (user, day) collapse
  to the idempotent no-op path instead of double-incrementing. Cross-user
  operations run in parallel.

SEE ALSO:
  - ledger.go: Ordering and uniqueness enforcement
  - classify.go: Derived status from the counters written here
*/
package streak

import (
	"context"
	"fmt"
	"sync"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine is the entry point for all streak operations. It owns the
// read-modify-write of StreakCounters and FreezeState around ledger
// appends.
type Engine struct {
	store  Store
	ledger *Ledger

	mu    sync.Mutex
	locks map[UserID]*sync.Mutex
}

func NewEngine(store Store) *Engine {
	return &Engine{
		store:  store,
		ledger: NewLedger(store),
		locks:  make(map[UserID]*sync.Mutex),
	}
}

// Ledger exposes the read-side of the activity ledger.
func (e *Engine) Ledger() *Ledger { return e.ledger }

// userLock returns the mutex serializing writes for one user.
func (e *Engine) userLock(userID UserID) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[userID] = l
	}
	return l
}

// =============================================================================
// STREAK CALCULATOR - RecordActivity
// =============================================================================

// RecordActivity appends an activity record for today and updates the
// counters. Idempotent: if today already has a record, the current
// counters are returned unchanged.
//
// Freeze records are refused here: they carry quota accounting and may
// only be appended by UseFreeze. Accepting them on this path would let
// callers mint unlimited freezes.
func (e *Engine) RecordActivity(ctx context.Context, userID UserID, activityType ActivityType, today Day) (*StreakCounters, error) {
	if activityType == ActivityFreeze {
		return nil, fmt.Errorf("%w: freeze records are appended by UseFreeze", ErrInvalidActivityType)
	}

	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	return e.recordLocked(ctx, userID, activityType, today)
}

// recordLocked is the body of RecordActivity; the caller must hold the
// user lock. UseFreeze shares this path so a freeze and a real activity
// for the same day cannot both be accepted.
func (e *Engine) recordLocked(ctx context.Context, userID UserID, activityType ActivityType, today Day) (*StreakCounters, error) {
	if err := e.ensureUser(ctx, userID, today); err != nil {
		return nil, err
	}

	counters, err := e.countersOrZero(ctx, userID)
	if err != nil {
		return nil, err
	}

	_, fresh, err := e.ledger.Append(ctx, userID, today, activityType)
	if err != nil {
		return nil, err
	}
	if !fresh {
		// Day already completed. No-op.
		return counters, nil
	}

	settings, err := e.Settings(ctx, userID)
	if err != nil {
		return nil, err
	}

	continuous, err := e.isContinuous(ctx, userID, counters.LastActivityDate, today, settings.WeekendMode)
	if err != nil {
		return nil, err
	}

	switch {
	case activityType == ActivityFreeze:
		// Freeze preserves the count; it never increments and never
		// starts a new streak.
		if !continuous {
			counters.StreakDays = 0
		}
	case continuous:
		counters.StreakDays++
	default:
		counters.StreakDays = 1
	}

	if counters.StreakDays > counters.BestStreak {
		counters.BestStreak = counters.StreakDays
	}
	counters.LastActivityDate = &today

	if err := e.store.SaveCounters(ctx, *counters); err != nil {
		return nil, fmt.Errorf("save counters: %w", err)
	}
	return counters, nil
}

// isContinuous reports whether today extends the streak ending at last.
// A nil last means a fresh start: the first-ever record begins a streak
// but has nothing to continue.
func (e *Engine) isContinuous(ctx context.Context, userID UserID, last *Day, today Day, weekendMode bool) (bool, error) {
	if last == nil {
		return false, nil
	}
	gap := DaysBetween(*last, today)
	if gap <= 1 {
		return gap == 1, nil
	}

	// Every missed day must be covered by a record (a freeze applied on
	// that day) or excluded as a weekend day under weekend mode.
	for d := last.AddDays(1); d.Before(today); d = d.AddDays(1) {
		if weekendMode && d.IsWeekend() {
			continue
		}
		covered, err := e.ledger.HasActivityOn(ctx, userID, d)
		if err != nil {
			return false, err
		}
		if !covered {
			return false, nil
		}
	}
	return true, nil
}

// =============================================================================
// FREEZE ARBITER - UseFreeze
// =============================================================================

// FreezeResult is the typed outcome of a freeze request. Refusals are
// expected user-facing states, carried in Err rather than raised: check
// Success, then errors.Is(result.Err, ...) for the reason.
type FreezeResult struct {
	Success     bool
	FreezesLeft int
	Err         error
}

// UseFreeze spends the weekly grace token to mark today completed.
// The returned error is reserved for storage failures; business refusals
// (already active, quota exhausted) come back inside the result.
func (e *Engine) UseFreeze(ctx context.Context, userID UserID, today Day) (FreezeResult, error) {
	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	week := today.WeekStart()
	state, err := e.store.GetFreezeState(ctx, userID)
	if err != nil {
		return FreezeResult{}, fmt.Errorf("load freeze state: %w", err)
	}
	if state == nil || !state.WeekStartDate.Equal(week) {
		// New week (or first use ever): fresh quota.
		state = &FreezeState{UserID: userID, WeekStartDate: week}
	}
	left := FreezesPerWeek - state.FreezesUsedThisWeek
	if left < 0 {
		left = 0
	}

	completed, err := e.ledger.HasActivityOn(ctx, userID, today)
	if err != nil {
		return FreezeResult{}, err
	}
	if completed {
		return FreezeResult{Success: false, FreezesLeft: left, Err: ErrAlreadyActiveToday}, nil
	}

	if left == 0 {
		return FreezeResult{Success: false, FreezesLeft: 0, Err: ErrQuotaExhausted}, nil
	}

	if _, err := e.recordLocked(ctx, userID, ActivityFreeze, today); err != nil {
		return FreezeResult{}, err
	}

	state.FreezesUsedThisWeek++
	if err := e.store.SaveFreezeState(ctx, *state); err != nil {
		return FreezeResult{}, fmt.Errorf("save freeze state: %w", err)
	}

	return FreezeResult{Success: true, FreezesLeft: left - 1}, nil
}

// FreezesLeft returns the remaining quota for the week containing today
// without consuming anything.
func (e *Engine) FreezesLeft(ctx context.Context, userID UserID, today Day) (int, error) {
	state, err := e.store.GetFreezeState(ctx, userID)
	if err != nil {
		return 0, err
	}
	if state == nil {
		return FreezesPerWeek, nil
	}
	return state.FreezesLeft(today), nil
}

// =============================================================================
// DERIVED STATUS
// =============================================================================

// Counters returns the stored counters, zero-valued if none exist yet.
func (e *Engine) Counters(ctx context.Context, userID UserID) (*StreakCounters, error) {
	return e.countersOrZero(ctx, userID)
}

// Status recomputes the derived streak view for the evaluation day.
// Never cached: DaysSinceLastActivity rolls over with the calendar.
//
// A freeze preserves the count and advances LastActivityDate, so a
// frozen day right after a milestone crossing would classify as
// MILESTONE again from the counters alone. The milestone belongs to the
// crossing day only, so a frozen today demotes to MAINTAINING.
func (e *Engine) Status(ctx context.Context, userID UserID, today Day) (*StreakStatus, error) {
	counters, err := e.countersOrZero(ctx, userID)
	if err != nil {
		return nil, err
	}
	status := Classify(*counters, today)

	if status.State == StateMilestone {
		rec, err := e.ledger.RecordOn(ctx, userID, today)
		if err != nil {
			return nil, err
		}
		if rec != nil && rec.Type == ActivityFreeze {
			status.State = StateMaintaining
			status.Milestone = 0
		}
	}
	return &status, nil
}

// =============================================================================
// SETTINGS
// =============================================================================

// Settings returns the stored settings, recovering to defaults when none
// have been written yet.
func (e *Engine) Settings(ctx context.Context, userID UserID) (StreakSettings, error) {
	stored, err := e.store.GetSettings(ctx, userID)
	if err != nil {
		return StreakSettings{}, fmt.Errorf("load settings: %w", err)
	}
	if stored == nil {
		return DefaultSettings(userID), nil
	}
	return *stored, nil
}

// SettingsPatch is a partial settings update; nil fields are unchanged.
type SettingsPatch struct {
	DailyReminderEnabled *bool
	ReminderTime         *string
	WeekendMode          *bool
}

// UpdateSettings applies a partial update on top of the current (or
// default) settings and persists the result.
func (e *Engine) UpdateSettings(ctx context.Context, userID UserID, patch SettingsPatch) (StreakSettings, error) {
	current, err := e.Settings(ctx, userID)
	if err != nil {
		return StreakSettings{}, err
	}
	if patch.DailyReminderEnabled != nil {
		current.DailyReminderEnabled = *patch.DailyReminderEnabled
	}
	if patch.ReminderTime != nil {
		if _, err := parseClock(*patch.ReminderTime); err != nil {
			return StreakSettings{}, err
		}
		current.ReminderTime = *patch.ReminderTime
	}
	if patch.WeekendMode != nil {
		current.WeekendMode = *patch.WeekendMode
	}
	if err := e.store.SaveSettings(ctx, current); err != nil {
		return StreakSettings{}, fmt.Errorf("save settings: %w", err)
	}
	return current, nil
}

// =============================================================================
// USERS
// =============================================================================

// RegisterUser creates the user if absent. RegisteredAt anchors the
// calendar reconstruction and the completion-rate denominator.
func (e *Engine) RegisterUser(ctx context.Context, userID UserID, registeredAt Day) (*User, error) {
	existing, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	u := User{ID: userID, RegisteredAt: registeredAt}
	if err := e.store.SaveUser(ctx, u); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	return &u, nil
}

// GetUser returns the user or ErrUserNotFound.
func (e *Engine) GetUser(ctx context.Context, userID UserID) (*User, error) {
	u, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	return u, nil
}

// ensureUser registers the user implicitly on first activity.
func (e *Engine) ensureUser(ctx context.Context, userID UserID, today Day) error {
	_, err := e.RegisterUser(ctx, userID, today)
	return err
}

func (e *Engine) countersOrZero(ctx context.Context, userID UserID) (*StreakCounters, error) {
	counters, err := e.store.GetCounters(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load counters: %w", err)
	}
	if counters == nil {
		counters = &StreakCounters{UserID: userID}
	}
	return counters, nil
}
