/*
classify.go - State classification and user-facing copy

PURPOSE:
  Maps counters to one of five named states and selects the copy shown
  on the streak card and in notifications.

PRIORITY ORDER (first match wins):
  1. MILESTONE:   streak length is exactly 7/14/30/60/100/365, checked
                  only on the day the streak reached that value
  2. NEW_START:   brand-new user, or a first day with no meaningful prior
  3. LOST:        two or more full days elapsed with no coverage
  4. WARNING:     exactly one day lapsed and today is not yet covered -
                  the actionable "about to lose it" window
  5. MAINTAINING: fallback for a healthy, active streak

Classification is a pure function of (counters, today). It reads no
clock and mutates nothing, so it is trivially testable.
*/
package streak

import "fmt"

// =============================================================================
// CLASSIFICATION
// =============================================================================

// Classify derives the streak status for an evaluation day.
func Classify(counters StreakCounters, today Day) StreakStatus {
	status := StreakStatus{
		UserID:        counters.UserID,
		CurrentStreak: counters.StreakDays,
		BestStreak:    counters.BestStreak,
	}

	last := counters.LastActivityDate
	if last != nil {
		status.TodayCompleted = last.Equal(today)
		status.DaysSinceLastActivity = DaysBetween(*last, today)
	}

	switch {
	// A milestone is only true on the single day the threshold is
	// crossed; for real activity the count keeps incrementing, so
	// "reached today" reduces to the last activity being today. A freeze
	// preserves the count, which makes a frozen day right after the
	// crossing match here too - Engine.Status demotes that case after
	// inspecting today's record type.
	case IsMilestone(counters.StreakDays) && status.TodayCompleted:
		status.State = StateMilestone
		status.Milestone = counters.StreakDays

	// Brand-new user, or one who just restarted with no prior record.
	// A first-ever activity makes best == streak == 1, so "no meaningful
	// prior" means best has never exceeded that single day.
	case counters.StreakDays == 0,
		counters.StreakDays == 1 && counters.BestStreak <= 1:
		status.State = StateNewStart

	case status.DaysSinceLastActivity >= 2:
		status.State = StateLost

	case status.DaysSinceLastActivity == 1 && !status.TodayCompleted:
		status.State = StateWarning

	default:
		status.State = StateMaintaining
	}

	return status
}

// =============================================================================
// USER-FACING COPY
// =============================================================================

// Copy is the title/message pair attached to a state.
type Copy struct {
	Title   string
	Message string
}

// CopyFor selects the card/notification copy for a status.
func CopyFor(status StreakStatus) Copy {
	switch status.State {
	case StateMilestone:
		return Copy{
			Title:   fmt.Sprintf("%d-day streak!", status.Milestone),
			Message: fmt.Sprintf("You hit a %d-day streak. Keep it going!", status.Milestone),
		}
	case StateNewStart:
		return Copy{
			Title:   "Start your streak",
			Message: "Check in today to start building your streak.",
		}
	case StateLost:
		return Copy{
			Title:   "Streak lost",
			Message: fmt.Sprintf("Your streak ended. Your best run was %d days - start a new one today.", status.BestStreak),
		}
	case StateWarning:
		return Copy{
			Title:   "Your streak is at risk",
			Message: fmt.Sprintf("Check in today to keep your %d-day streak alive.", status.CurrentStreak),
		}
	default:
		return Copy{
			Title:   fmt.Sprintf("%d-day streak", status.CurrentStreak),
			Message: "You're on a roll. See you tomorrow!",
		}
	}
}
