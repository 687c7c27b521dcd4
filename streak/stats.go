/*
stats.go - Aggregate statistics derived from the ledger

PURPOSE:
  Backs the stats card: best streak, lifetime active days, completion
  rate since registration, and the remaining freeze quota.

  Completion rate uses decimal arithmetic to avoid floating-point drift
  on the API boundary (42 active days out of 90 is exactly 0.4667, not
  0.46669999...).
*/
package streak

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STATS
// =============================================================================

// Stats is the aggregate view returned alongside the streak card.
type Stats struct {
	UserID          UserID
	BestStreak      int
	TotalActiveDays int
	CompletionRate  decimal.Decimal // completed days / days since registration
	FreezesLeft     int
}

// completionRatePlaces is the rounding applied to the completion rate.
const completionRatePlaces = 4

// Stats computes aggregate statistics for the evaluation day.
// TotalActiveDays counts real activity only; frozen days count toward
// the completion rate (the day was covered) but not toward active days.
func (e *Engine) Stats(ctx context.Context, userID UserID, today Day) (*Stats, error) {
	user, err := e.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	counters, err := e.countersOrZero(ctx, userID)
	if err != nil {
		return nil, err
	}

	records, err := e.ledger.Records(ctx, userID)
	if err != nil {
		return nil, err
	}

	active := 0
	for _, rec := range records {
		if rec.Type != ActivityFreeze {
			active++
		}
	}

	left, err := e.FreezesLeft(ctx, userID, today)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		UserID:          userID,
		BestStreak:      counters.BestStreak,
		TotalActiveDays: active,
		CompletionRate:  decimal.Zero,
		FreezesLeft:     left,
	}

	totalDays := DaysBetween(user.RegisteredAt, today) + 1
	if totalDays > 0 {
		completed := decimal.NewFromInt(int64(len(records)))
		stats.CompletionRate = completed.
			Div(decimal.NewFromInt(int64(totalDays))).
			Round(completionRatePlaces)
	}

	return stats, nil
}
