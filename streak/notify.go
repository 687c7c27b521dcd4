/*
notify.go - Notification trigger evaluation

PURPOSE:
  Decides, from state + settings + time-of-day, whether a single
  notification intent should fire. Delivery is someone else's job; this
  package only emits intents.

AT-MOST-ONCE SEMANTICS:
  The evaluator runs opportunistically (app foreground, periodic poll),
  so every trigger needs explicit deduplication:
  - warning:      once per day, on entry into the WARNING state
  - lost:         once per entry into the LOST state
  - milestone:    once EVER per (user, milestone value), via a persisted
    shown-set - the MILESTONE state is only true on the crossing day
  - reminder:     only inside a symmetric 1-hour window around the
    configured reminder time, and only while today is incomplete
  - freeze_reset: once per Monday-aligned week, on the first evaluation
    after the boundary

  The dedup state lives in NotifyStore, not in ambient globals.

PRIORITY:
  warning/milestone/lost (high) > reminder > freeze_reset. At most one
  intent is emitted per evaluation call.
*/
package streak

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// EVALUATOR
// =============================================================================

// ReminderWindow is the half-width of the reminder firing window. The
// window is symmetric around the configured time, not one-directional.
const ReminderWindow = time.Hour

// Evaluator owns the notification triggering decisions and their
// persisted deduplication state.
type Evaluator struct {
	notify NotifyStore
}

func NewEvaluator(notify NotifyStore) *Evaluator {
	return &Evaluator{notify: notify}
}

// Evaluate returns zero or one notification intent for the evaluation
// instant. It persists whatever dedup state is needed to guarantee
// at-most-once per trigger.
func (ev *Evaluator) Evaluate(ctx context.Context, status StreakStatus, settings StreakSettings, now time.Time) (*NotificationIntent, error) {
	userID := status.UserID
	today := DayOf(now)
	week := today.WeekStart()

	state, err := ev.notify.GetNotifyState(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load notify state: %w", err)
	}
	if state == nil {
		state = &NotifyState{UserID: userID}
	}

	intent, err := ev.pick(ctx, status, settings, state, now, today, week)
	if err != nil {
		return nil, err
	}

	// Record what we observed so the next evaluation can detect
	// transitions, regardless of whether anything fired.
	state.LastState = status.State
	if intent != nil && intent.Type == NotifyWarning {
		state.WarningDay = &today
	}
	if state.LastFreezeResetWeek == nil || state.LastFreezeResetWeek.Before(week) {
		state.LastFreezeResetWeek = &week
	}
	if err := ev.notify.SaveNotifyState(ctx, *state); err != nil {
		return nil, fmt.Errorf("save notify state: %w", err)
	}

	return intent, nil
}

// pick walks the triggers in priority order and returns the first that
// fires.
func (ev *Evaluator) pick(ctx context.Context, status StreakStatus, settings StreakSettings, state *NotifyState, now time.Time, today, week Day) (*NotificationIntent, error) {
	// High priority: state-driven triggers.
	switch status.State {
	case StateWarning:
		if state.WarningDay == nil || !state.WarningDay.Equal(today) {
			return ev.intent(status, NotifyWarning, nil), nil
		}
	case StateMilestone:
		shown, err := ev.notify.WasMilestoneShown(ctx, status.UserID, status.Milestone)
		if err != nil {
			return nil, err
		}
		if !shown {
			if err := ev.notify.MarkMilestoneShown(ctx, status.UserID, status.Milestone); err != nil {
				return nil, err
			}
			return ev.intent(status, NotifyMilestone, map[string]string{
				"milestone": strconv.Itoa(status.Milestone),
			}), nil
		}
	case StateLost:
		if state.LastState != StateLost {
			return ev.intent(status, NotifyLost, nil), nil
		}
	}

	// Default priority: daily reminder.
	if settings.DailyReminderEnabled && !status.TodayCompleted {
		inWindow, err := withinReminderWindow(now, settings.ReminderTime)
		if err != nil {
			return nil, err
		}
		if inWindow {
			return ev.intent(status, NotifyReminder, nil), nil
		}
	}

	// Low priority: weekly freeze-quota reset notice. Fires on the first
	// evaluation after a Monday boundary; a user never evaluated before
	// only gets the marker, not a notice about a reset they never saw.
	if state.LastFreezeResetWeek != nil && state.LastFreezeResetWeek.Before(week) {
		return ev.intent(status, NotifyFreezeReset, nil), nil
	}

	return nil, nil
}

// intent builds a NotificationIntent with the state's card copy.
func (ev *Evaluator) intent(status StreakStatus, typ NotificationType, data map[string]string) *NotificationIntent {
	copyText := copyForNotification(status, typ)
	if data == nil {
		data = map[string]string{}
	}
	data["streak"] = strconv.Itoa(status.CurrentStreak)
	return &NotificationIntent{
		ID:      uuid.NewString(),
		UserID:  status.UserID,
		Type:    typ,
		Title:   copyText.Title,
		Message: copyText.Message,
		Data:    data,
	}
}

// copyForNotification picks copy per notification type. State copy is
// reused where the type mirrors a state; reminder and reset have their
// own wording.
func copyForNotification(status StreakStatus, typ NotificationType) Copy {
	switch typ {
	case NotifyReminder:
		return Copy{
			Title:   "Daily check-in",
			Message: "Don't forget to check in today to keep your streak going.",
		}
	case NotifyFreezeReset:
		return Copy{
			Title:   "Streak freeze refreshed",
			Message: "Your weekly streak freeze is available again.",
		}
	default:
		return CopyFor(status)
	}
}

// =============================================================================
// CLOCK HELPERS
// =============================================================================

// parseClock parses "HH:MM" into minutes since midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

const minutesPerDay = 24 * 60

// withinReminderWindow reports whether now falls inside the symmetric
// window around the configured reminder time. Clock distance wraps
// across midnight: 23:30 and 00:10 are 40 minutes apart, not 1400.
func withinReminderWindow(now time.Time, reminderTime string) (bool, error) {
	target, err := parseClock(reminderTime)
	if err != nil {
		return false, err
	}
	current := now.Hour()*60 + now.Minute()
	diff := current - target
	if diff < 0 {
		diff = -diff
	}
	if wrapped := minutesPerDay - diff; wrapped < diff {
		diff = wrapped
	}
	return diff <= int(ReminderWindow.Minutes()), nil
}
