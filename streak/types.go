/*
Package streak provides the core daily-activity streak engine.

PURPOSE:
  This package contains the types and algorithms for tracking
  consecutive-day engagement: an append-only activity ledger, a streak
  calculator, a weekly freeze arbiter, a state classifier, a calendar
  reconstructor, and a notification trigger evaluator.

KEY CONCEPTS IN THIS FILE (types.go):
  - ActivityRecord: An immutable ledger entry marking a day as completed
  - StreakCounters: Per-user streak state updated on every append
  - FreezeState: Weekly freeze quota accounting (Monday-aligned)
  - StreakSettings: User preferences affecting continuity and reminders
  - StreakStatus: Derived, never-persisted view recomputed per query

DESIGN PRINCIPLES:
  1. Immutability: Activity records are never updated or deleted
  2. Replayability: Every derived view is recomputable from the ledger alone
  3. Type Safety: Strong typing for user IDs and activity types
  4. Determinism: A day is binary "had activity" with an attached reason

USAGE:
  engine := streak.NewEngine(store)
  counters, err := engine.RecordActivity(ctx, "user-1", streak.ActivityTransaction, streak.Today())
  status, err := engine.Status(ctx, "user-1", streak.Today())

SEE ALSO:
  - ledger.go: Activity ledger with per-day uniqueness and ordering
  - engine.go: Streak calculator and freeze arbiter
  - classify.go: State classification and user-facing copy
  - calendar.go: Timeline reconstruction
  - notify.go: Notification trigger evaluation
*/
package streak

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string

type RecordID string

// =============================================================================
// ACTIVITY - What counts toward a day being "completed"
// =============================================================================

// ActivityType is the reason a day counts as completed.
// A day is binary: it either has a record or it does not.
type ActivityType string

const (
	ActivityTransaction   ActivityType = "transaction"
	ActivityBudgetCheck   ActivityType = "budget_check"
	ActivityDashboardView ActivityType = "dashboard_view"
	ActivityManualCheckin ActivityType = "manual_checkin"
	ActivityFreeze        ActivityType = "freeze"
)

// ValidActivityType reports whether t is one of the known activity types.
func ValidActivityType(t ActivityType) bool {
	switch t {
	case ActivityTransaction, ActivityBudgetCheck, ActivityDashboardView,
		ActivityManualCheckin, ActivityFreeze:
		return true
	}
	return false
}

// ActivityRecord is a single entry in the append-only ledger.
//
// INVARIANT: At most one record per (UserID, Date). The ledger enforces
// this; see ledger.go.
type ActivityRecord struct {
	ID        RecordID
	UserID    UserID
	Date      Day
	Type      ActivityType
	CreatedAt Day
}

// =============================================================================
// STREAK COUNTERS - Stored state, updated only by RecordActivity
// =============================================================================

// StreakCounters is the persisted per-user streak state.
//
// INVARIANT: BestStreak >= StreakDays at all times except the instant a
// new record beats the prior best, after which they are equal.
type StreakCounters struct {
	UserID           UserID
	StreakDays       int
	BestStreak       int
	LastActivityDate *Day
}

// =============================================================================
// FREEZE STATE - Weekly quota accounting
// =============================================================================

// FreezesPerWeek is the freeze quota per Monday-aligned calendar week.
const FreezesPerWeek = 1

// FreezeState tracks freeze usage for the Monday-aligned week containing
// WeekStartDate. The quota resets implicitly: the arbiter always computes
// the week from "today" at call time, so crossing a Monday boundary yields
// a fresh quota without any reset job.
type FreezeState struct {
	UserID              UserID
	WeekStartDate       Day
	FreezesUsedThisWeek int
}

// FreezesLeft returns the remaining quota for the week containing today.
func (f FreezeState) FreezesLeft(today Day) int {
	week := today.WeekStart()
	if !f.WeekStartDate.Equal(week) {
		return FreezesPerWeek
	}
	left := FreezesPerWeek - f.FreezesUsedThisWeek
	if left < 0 {
		return 0
	}
	return left
}

// =============================================================================
// SETTINGS - User preferences
// =============================================================================

// StreakSettings affects notification timing and, when WeekendMode is on,
// which days count toward streak continuity. It never affects stored
// counters directly.
type StreakSettings struct {
	UserID               UserID
	DailyReminderEnabled bool
	ReminderTime         string // "HH:MM", local clock
	WeekendMode          bool
}

// DefaultSettings returns the settings used when none have been stored yet.
func DefaultSettings(userID UserID) StreakSettings {
	return StreakSettings{
		UserID:               userID,
		DailyReminderEnabled: false,
		ReminderTime:         "20:00",
		WeekendMode:          false,
	}
}

// =============================================================================
// USER - Minimal registry entry
// =============================================================================

// User anchors the calendar reconstruction and completion-rate stats.
type User struct {
	ID           UserID
	RegisteredAt Day
}

// =============================================================================
// DERIVED STATUS - Recomputed on every read, never persisted
// =============================================================================

// State is one of the five named streak states.
type State string

const (
	StateMilestone   State = "milestone"
	StateNewStart    State = "new_start"
	StateLost        State = "lost"
	StateWarning     State = "warning"
	StateMaintaining State = "maintaining"
)

// Milestones are the designated streak lengths that trigger a celebratory
// state on the exact day they are reached.
var Milestones = [...]int{7, 14, 30, 60, 100, 365}

// IsMilestone reports whether n is a designated milestone length.
func IsMilestone(n int) bool {
	for _, m := range Milestones {
		if n == m {
			return true
		}
	}
	return false
}

// StreakStatus is the derived view of a user's streak at an evaluation
// instant. It is recomputed per query: DaysSinceLastActivity changes with
// wall-clock date rollover without any new activity, so caching it would
// be wrong.
type StreakStatus struct {
	UserID                UserID
	State                 State
	CurrentStreak         int
	BestStreak            int
	TodayCompleted        bool
	DaysSinceLastActivity int
	Milestone             int // 0 unless State == StateMilestone
}

// =============================================================================
// TIMELINE - Per-day render classification for the calendar view
// =============================================================================

// DayClass classifies a single calendar day for rendering.
type DayClass string

const (
	DayActive       DayClass = "active"
	DayFrozen       DayClass = "frozen"
	DayTodayPending DayClass = "today_pending"
	DayWarning      DayClass = "warning"
	DayBroken       DayClass = "broken"
)

// TimelineDay is one entry of the reconstructed calendar.
type TimelineDay struct {
	Date         Day
	Class        DayClass
	ActivityType ActivityType // empty when the day has no record
}

// =============================================================================
// NOTIFICATION INTENT - Emitted by the trigger evaluator
// =============================================================================

type NotificationType string

const (
	NotifyWarning     NotificationType = "streak_warning"
	NotifyLost        NotificationType = "streak_lost"
	NotifyMilestone   NotificationType = "streak_milestone"
	NotifyReminder    NotificationType = "streak_reminder"
	NotifyFreezeReset NotificationType = "streak_freeze_reset"
)

// NotificationIntent is a triggering decision, consumed by an external
// delivery layer. This package never sends anything.
type NotificationIntent struct {
	ID      string
	UserID  UserID
	Type    NotificationType
	Title   string
	Message string
	Data    map[string]string
}
