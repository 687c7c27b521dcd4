/*
calendar.go - Calendar reconstruction by ledger replay

PURPOSE:
  Rebuilds the visual per-day timeline shown on the streak calendar.
  This is a pure read-side replay: it never touches counters or freeze
  state, and re-running it over the same ledger always yields the same
  classification for every day.

CLASSIFICATION PER DAY:
  freeze record            -> frozen
  any other record         -> active
  no record, day == today  -> today_pending
  no record, day == yesterday, day before had activity -> warning
  any other no-record day  -> broken

The warning lookback is exactly one day: it flags the single-day grace
window immediately preceding a gap, not a broader window.
*/
package streak

import "context"

// =============================================================================
// TIMELINE RECONSTRUCTION
// =============================================================================

// Timeline replays the ledger from `from` through `today` inclusive and
// classifies every calendar day. `today` is both the end of the range
// and the reference day for the pending/warning classifications.
func (e *Engine) Timeline(ctx context.Context, userID UserID, from, today Day) ([]TimelineDay, error) {
	if from.After(today) {
		return nil, nil
	}

	// The warning rule inspects the day before yesterday, which can fall
	// one day before the requested range.
	records, err := e.ledger.RecordsInRange(ctx, userID, from.AddDays(-1), today)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]ActivityRecord, len(records))
	for _, rec := range records {
		byDay[rec.Date.String()] = rec
	}

	yesterday := today.AddDays(-1)
	timeline := make([]TimelineDay, 0, DaysBetween(from, today)+1)

	for d := from; d.BeforeOrEqual(today); d = d.AddDays(1) {
		entry := TimelineDay{Date: d}

		if rec, ok := byDay[d.String()]; ok {
			entry.ActivityType = rec.Type
			if rec.Type == ActivityFreeze {
				entry.Class = DayFrozen
			} else {
				entry.Class = DayActive
			}
		} else {
			switch {
			case d.Equal(today):
				entry.Class = DayTodayPending
			case d.Equal(yesterday):
				if _, had := byDay[d.AddDays(-1).String()]; had {
					entry.Class = DayWarning
				} else {
					entry.Class = DayBroken
				}
			default:
				entry.Class = DayBroken
			}
		}

		timeline = append(timeline, entry)
	}

	return timeline, nil
}

// TimelineFromRegistration replays from the user's registration date,
// the default range for the calendar view.
func (e *Engine) TimelineFromRegistration(ctx context.Context, userID UserID, today Day) ([]TimelineDay, error) {
	user, err := e.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return e.Timeline(ctx, userID, user.RegisteredAt, today)
}
