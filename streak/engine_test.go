package streak_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/streak-engine/streak"
	memstore "github.com/warp/streak-engine/streak/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestEngine(t *testing.T) *streak.Engine {
	t.Helper()
	return streak.NewEngine(memstore.NewMemory())
}

func day(s string) streak.Day {
	return streak.MustParseDay(s)
}

// recordDays records one real activity per day, in order.
func recordDays(t *testing.T, e *streak.Engine, userID streak.UserID, days ...streak.Day) *streak.StreakCounters {
	t.Helper()
	ctx := context.Background()
	var counters *streak.StreakCounters
	var err error
	for _, d := range days {
		counters, err = e.RecordActivity(ctx, userID, streak.ActivityManualCheckin, d)
		require.NoError(t, err)
	}
	return counters
}

// =============================================================================
// STREAK CALCULATOR - Gap rules
// =============================================================================

func TestRecordActivity_FirstEver_StartsStreakAtOne(t *testing.T) {
	// GIVEN: A brand-new user
	// WHEN: Recording the first activity
	// THEN: streak = 1, best = 1

	e := newTestEngine(t)
	counters := recordDays(t, e, "user-1", day("2025-03-10"))

	assert.Equal(t, 1, counters.StreakDays)
	assert.Equal(t, 1, counters.BestStreak)
	require.NotNil(t, counters.LastActivityDate)
	assert.True(t, counters.LastActivityDate.Equal(day("2025-03-10")))
}

func TestRecordActivity_ConsecutiveDays_Increment(t *testing.T) {
	// GIVEN: Activity on Monday through Wednesday
	// WHEN: Each consecutive day is recorded
	// THEN: The streak counts up

	e := newTestEngine(t)
	counters := recordDays(t, e, "user-1",
		day("2025-03-10"), day("2025-03-11"), day("2025-03-12"))

	assert.Equal(t, 3, counters.StreakDays)
	assert.Equal(t, 3, counters.BestStreak)
}

func TestRecordActivity_SameDayTwice_Idempotent(t *testing.T) {
	// GIVEN: An activity already recorded for today
	// WHEN: Recording again for the same day (even a different type)
	// THEN: Counters are identical both times - no double increment

	e := newTestEngine(t)
	ctx := context.Background()

	first, err := e.RecordActivity(ctx, "user-1", streak.ActivityTransaction, day("2025-03-10"))
	require.NoError(t, err)

	second, err := e.RecordActivity(ctx, "user-1", streak.ActivityBudgetCheck, day("2025-03-10"))
	require.NoError(t, err)

	assert.Equal(t, first.StreakDays, second.StreakDays)
	assert.Equal(t, first.BestStreak, second.BestStreak)
	assert.Equal(t, 1, second.StreakDays)
}

func TestRecordActivity_GapOfTwoDays_ResetsToOne(t *testing.T) {
	// GIVEN: streak = 3 ending March 12
	// WHEN: Next activity arrives March 15 (two full missed days)
	// THEN: streak resets to 1; best is preserved

	e := newTestEngine(t)
	recordDays(t, e, "user-1",
		day("2025-03-10"), day("2025-03-11"), day("2025-03-12"))

	counters := recordDays(t, e, "user-1", day("2025-03-15"))

	assert.Equal(t, 1, counters.StreakDays)
	assert.Equal(t, 3, counters.BestStreak, "best must survive the reset")
}

func TestRecordActivity_OutOfOrderDate_Rejected(t *testing.T) {
	// GIVEN: Latest recorded day is March 12
	// WHEN: Appending for March 11
	// THEN: ErrOutOfOrderWrite - the ledger never silently reorders

	e := newTestEngine(t)
	ctx := context.Background()
	recordDays(t, e, "user-1", day("2025-03-12"))

	_, err := e.RecordActivity(ctx, "user-1", streak.ActivityTransaction, day("2025-03-11"))

	require.Error(t, err)
	assert.True(t, streak.IsFatal(err))
	var ooo *streak.OutOfOrderWriteError
	require.ErrorAs(t, err, &ooo)
	assert.True(t, ooo.Attempted.Equal(day("2025-03-11")))
	assert.True(t, ooo.LatestDate.Equal(day("2025-03-12")))
}

func TestRecordActivity_InvalidType_Rejected(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.RecordActivity(context.Background(), "user-1", "nonsense", day("2025-03-10"))

	require.Error(t, err)
	assert.ErrorIs(t, err, streak.ErrInvalidActivityType)
}

// =============================================================================
// BEST STREAK - Monotonicity
// =============================================================================

func TestBestStreak_NonDecreasing_AcrossResets(t *testing.T) {
	// GIVEN: A 4-day streak, then a break, then a 2-day streak
	// THEN: best stays at 4 throughout

	e := newTestEngine(t)
	ctx := context.Background()

	best := 0
	days := []streak.Day{
		day("2025-03-03"), day("2025-03-04"), day("2025-03-05"), day("2025-03-06"),
		day("2025-03-10"), day("2025-03-11"),
	}
	for _, d := range days {
		counters, err := e.RecordActivity(ctx, "user-1", streak.ActivityDashboardView, d)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, counters.BestStreak, best, "best streak regressed at %s", d)
		best = counters.BestStreak
	}
	assert.Equal(t, 4, best)
}

// =============================================================================
// WEEKEND MODE
// =============================================================================

func TestRecordActivity_WeekendMode_FridayToMonday_Continues(t *testing.T) {
	// GIVEN: weekendMode on, last activity Friday 2025-03-14
	// WHEN: Next activity is Monday 2025-03-17 (gap spans only Sat/Sun)
	// THEN: Streak continues uninterrupted

	e := newTestEngine(t)
	ctx := context.Background()

	weekendMode := true
	_, err := e.UpdateSettings(ctx, "user-1", streak.SettingsPatch{WeekendMode: &weekendMode})
	require.NoError(t, err)

	recordDays(t, e, "user-1", day("2025-03-13"), day("2025-03-14")) // Thu, Fri
	counters := recordDays(t, e, "user-1", day("2025-03-17"))        // Mon

	assert.Equal(t, 3, counters.StreakDays)
}

func TestRecordActivity_WeekendMode_MissedWeekday_StillBreaks(t *testing.T) {
	// GIVEN: weekendMode on, last activity Friday
	// WHEN: Next activity is Tuesday (Monday was missed, and Monday is no weekend)
	// THEN: Streak resets

	e := newTestEngine(t)
	ctx := context.Background()

	weekendMode := true
	_, err := e.UpdateSettings(ctx, "user-1", streak.SettingsPatch{WeekendMode: &weekendMode})
	require.NoError(t, err)

	recordDays(t, e, "user-1", day("2025-03-14")) // Fri
	counters := recordDays(t, e, "user-1", day("2025-03-18")) // Tue

	assert.Equal(t, 1, counters.StreakDays)
}

func TestRecordActivity_WeekendModeOff_WeekendGap_Breaks(t *testing.T) {
	// GIVEN: weekendMode off (default)
	// WHEN: Friday activity, then Monday activity
	// THEN: Sat/Sun count as missed days and the streak resets

	e := newTestEngine(t)
	recordDays(t, e, "user-1", day("2025-03-14")) // Fri
	counters := recordDays(t, e, "user-1", day("2025-03-17")) // Mon

	assert.Equal(t, 1, counters.StreakDays)
}

// =============================================================================
// FREEZE ARBITER
// =============================================================================

func TestUseFreeze_CoversMissedDay_StreakContinues(t *testing.T) {
	// GIVEN: streak = 5 ending Friday
	// WHEN: Saturday has no real activity but a freeze is used, and a real
	//       activity lands on Sunday
	// THEN: streak = 6 - the freeze substituted for the missed day

	e := newTestEngine(t)
	ctx := context.Background()

	recordDays(t, e, "user-1",
		day("2025-03-10"), day("2025-03-11"), day("2025-03-12"),
		day("2025-03-13"), day("2025-03-14"))

	result, err := e.UseFreeze(ctx, "user-1", day("2025-03-15"))
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, 0, result.FreezesLeft)

	// The freeze preserves the count without incrementing it.
	counters, err := e.Counters(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 5, counters.StreakDays)

	counters = recordDays(t, e, "user-1", day("2025-03-16"))
	assert.Equal(t, 6, counters.StreakDays)
}

func TestUseFreeze_AlreadyActiveToday_Refused(t *testing.T) {
	// GIVEN: Today already has a real activity
	// WHEN: Requesting a freeze for today
	// THEN: Refused with AlreadyActiveToday; quota untouched

	e := newTestEngine(t)
	ctx := context.Background()
	recordDays(t, e, "user-1", day("2025-03-10"))

	result, err := e.UseFreeze(ctx, "user-1", day("2025-03-10"))
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Err, streak.ErrAlreadyActiveToday)
	assert.Equal(t, 1, result.FreezesLeft)
}

func TestUseFreeze_SecondInSameWeek_QuotaExhausted(t *testing.T) {
	// GIVEN: A freeze already used on Tuesday
	// WHEN: Requesting another freeze on Thursday of the same week
	// THEN: Refused with QuotaExhausted

	e := newTestEngine(t)
	ctx := context.Background()
	recordDays(t, e, "user-1", day("2025-03-10")) // Mon

	first, err := e.UseFreeze(ctx, "user-1", day("2025-03-11")) // Tue
	require.NoError(t, err)
	require.True(t, first.Success)

	second, err := e.UseFreeze(ctx, "user-1", day("2025-03-13")) // Thu
	require.NoError(t, err)

	assert.False(t, second.Success)
	assert.ErrorIs(t, second.Err, streak.ErrQuotaExhausted)
	assert.Equal(t, 0, second.FreezesLeft)
}

func TestUseFreeze_QuotaResets_AcrossMondayBoundary(t *testing.T) {
	// GIVEN: Quota exhausted on Sunday of week N
	// WHEN: Requesting a freeze on Monday of week N+1
	// THEN: Succeeds - the week is computed from today at call time

	e := newTestEngine(t)
	ctx := context.Background()
	recordDays(t, e, "user-1", day("2025-03-15")) // Sat

	sunday, err := e.UseFreeze(ctx, "user-1", day("2025-03-16")) // Sun, week N
	require.NoError(t, err)
	require.True(t, sunday.Success)

	monday, err := e.UseFreeze(ctx, "user-1", day("2025-03-17")) // Mon, week N+1
	require.NoError(t, err)

	assert.True(t, monday.Success)
	assert.Equal(t, 0, monday.FreezesLeft)
}

func TestUseFreeze_AfterBrokenStreak_DoesNotStartOne(t *testing.T) {
	// GIVEN: A streak broken by two missed days
	// WHEN: A freeze is used today
	// THEN: The count drops to 0 (nothing left to preserve); the next real
	//       activity starts a fresh streak at 1

	e := newTestEngine(t)
	ctx := context.Background()
	recordDays(t, e, "user-1", day("2025-03-10"), day("2025-03-11"))

	result, err := e.UseFreeze(ctx, "user-1", day("2025-03-14"))
	require.NoError(t, err)
	require.True(t, result.Success)

	counters, err := e.Counters(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, counters.StreakDays)

	counters = recordDays(t, e, "user-1", day("2025-03-15"))
	assert.Equal(t, 1, counters.StreakDays)
}

func TestRecordActivity_FreezeType_RejectedOutsideArbiter(t *testing.T) {
	// GIVEN: An active streak
	// WHEN: Freeze-typed activities are recorded directly on two days of
	//       the same week, sidestepping UseFreeze
	// THEN: Both are refused and the weekly quota is untouched - the
	//       arbiter is the only path that appends freeze records

	e := newTestEngine(t)
	ctx := context.Background()
	recordDays(t, e, "user-1", day("2025-03-10")) // Mon

	for _, d := range []streak.Day{day("2025-03-11"), day("2025-03-12")} { // Tue, Wed
		_, err := e.RecordActivity(ctx, "user-1", streak.ActivityFreeze, d)
		require.Error(t, err)
		assert.ErrorIs(t, err, streak.ErrInvalidActivityType)
	}

	left, err := e.FreezesLeft(ctx, "user-1", day("2025-03-12"))
	require.NoError(t, err)
	assert.Equal(t, 1, left)

	// Nothing landed in the ledger for the refused days.
	counters, err := e.Counters(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, counters.StreakDays)
	require.NotNil(t, counters.LastActivityDate)
	assert.True(t, counters.LastActivityDate.Equal(day("2025-03-10")))
}

// =============================================================================
// CONCURRENCY - Same-day serialization
// =============================================================================

func TestRecordActivity_ConcurrentSameDay_SingleIncrement(t *testing.T) {
	// GIVEN: Many concurrent RecordActivity calls for the same (user, day)
	// THEN: All collapse to the idempotent path; streak = 1

	e := newTestEngine(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.RecordActivity(ctx, "user-1", streak.ActivityTransaction, day("2025-03-10"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	counters, err := e.Counters(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, counters.StreakDays)
}

func TestUseFreeze_RacingRealActivity_OnlyOneAccepted(t *testing.T) {
	// GIVEN: A freeze and a real activity racing for the same day
	// THEN: Exactly one record lands; the day is not double-counted

	e := newTestEngine(t)
	ctx := context.Background()
	recordDays(t, e, "user-1", day("2025-03-10"))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := e.UseFreeze(ctx, "user-1", day("2025-03-11"))
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		_, err := e.RecordActivity(ctx, "user-1", streak.ActivityTransaction, day("2025-03-11"))
		assert.NoError(t, err)
	}()
	wg.Wait()

	records, err := e.Ledger().RecordsInRange(ctx, "user-1", day("2025-03-11"), day("2025-03-11"))
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

// =============================================================================
// SETTINGS
// =============================================================================

func TestSettings_NeverWritten_Defaults(t *testing.T) {
	e := newTestEngine(t)

	settings, err := e.Settings(context.Background(), "user-1")
	require.NoError(t, err)

	assert.False(t, settings.DailyReminderEnabled)
	assert.Equal(t, "20:00", settings.ReminderTime)
	assert.False(t, settings.WeekendMode)
}

func TestUpdateSettings_PartialPatch_LeavesRestUnchanged(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	enabled := true
	reminder := "08:30"
	_, err := e.UpdateSettings(ctx, "user-1", streak.SettingsPatch{
		DailyReminderEnabled: &enabled,
		ReminderTime:         &reminder,
	})
	require.NoError(t, err)

	weekend := true
	updated, err := e.UpdateSettings(ctx, "user-1", streak.SettingsPatch{WeekendMode: &weekend})
	require.NoError(t, err)

	assert.True(t, updated.DailyReminderEnabled)
	assert.Equal(t, "08:30", updated.ReminderTime)
	assert.True(t, updated.WeekendMode)
}

func TestUpdateSettings_BadReminderTime_Rejected(t *testing.T) {
	e := newTestEngine(t)

	bad := "25:99"
	_, err := e.UpdateSettings(context.Background(), "user-1", streak.SettingsPatch{ReminderTime: &bad})

	require.Error(t, err)
}

// =============================================================================
// STATS
// =============================================================================

func TestStats_CountsActiveDaysAndFreezesLeft(t *testing.T) {
	// GIVEN: Registration on March 10, real activity on 3 days, one freeze
	// THEN: active days = 3, completion rate = 4/6, one freeze spent

	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.RegisterUser(ctx, "user-1", day("2025-03-10"))
	require.NoError(t, err)

	recordDays(t, e, "user-1", day("2025-03-10"), day("2025-03-11"), day("2025-03-12"))
	result, err := e.UseFreeze(ctx, "user-1", day("2025-03-13"))
	require.NoError(t, err)
	require.True(t, result.Success)

	stats, err := e.Stats(ctx, "user-1", day("2025-03-15"))
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalActiveDays)
	assert.Equal(t, 3, stats.BestStreak)
	assert.Equal(t, 0, stats.FreezesLeft)
	// 4 completed days over 6 days since registration
	assert.Equal(t, "0.6667", stats.CompletionRate.String())
}

func TestStats_UnknownUser_NotFound(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Stats(context.Background(), "ghost", day("2025-03-15"))

	require.Error(t, err)
	assert.True(t, streak.IsNotFound(err))
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestScenario_RegisterMissTwoDays_LostThenRestart(t *testing.T) {
	// GIVEN: Registration + activity on day 1
	// WHEN: Day 2 passes with no activity and the user checks in on day 3
	// THEN: Before the day-3 check-in the state is LOST; recording resets
	//       the streak to 1

	e := newTestEngine(t)
	ctx := context.Background()

	recordDays(t, e, "user-1", day("2025-03-10"))

	status, err := e.Status(ctx, "user-1", day("2025-03-12"))
	require.NoError(t, err)
	assert.Equal(t, 2, status.DaysSinceLastActivity)
	assert.Equal(t, streak.StateLost, status.State)

	counters := recordDays(t, e, "user-1", day("2025-03-12"))
	assert.Equal(t, 1, counters.StreakDays)
}

func TestScenario_SeventhDay_MilestoneState(t *testing.T) {
	// GIVEN: streak = 6
	// WHEN: Activity is recorded on day 7
	// THEN: state = MILESTONE with milestone = 7, on that day only

	e := newTestEngine(t)
	ctx := context.Background()

	days := []streak.Day{
		day("2025-03-10"), day("2025-03-11"), day("2025-03-12"),
		day("2025-03-13"), day("2025-03-14"), day("2025-03-15"), day("2025-03-16"),
	}
	counters := recordDays(t, e, "user-1", days...)
	require.Equal(t, 7, counters.StreakDays)

	status, err := e.Status(ctx, "user-1", day("2025-03-16"))
	require.NoError(t, err)
	assert.Equal(t, streak.StateMilestone, status.State)
	assert.Equal(t, 7, status.Milestone)

	// The next day at the same count is no longer a milestone.
	status, err = e.Status(ctx, "user-1", day("2025-03-17"))
	require.NoError(t, err)
	assert.Equal(t, streak.StateWarning, status.State)
	assert.Zero(t, status.Milestone)
}

func TestScenario_FrozenDayAfterMilestone_NotMilestoneAgain(t *testing.T) {
	// GIVEN: state = MILESTONE on the 7-day crossing
	// WHEN: The next day is covered by a freeze, which preserves the count
	//       at 7 and advances the last activity date
	// THEN: The frozen day reads as MAINTAINING - the milestone belongs to
	//       the crossing day only

	e := newTestEngine(t)
	ctx := context.Background()

	recordDays(t, e, "user-1",
		day("2025-03-10"), day("2025-03-11"), day("2025-03-12"),
		day("2025-03-13"), day("2025-03-14"), day("2025-03-15"), day("2025-03-16"))

	result, err := e.UseFreeze(ctx, "user-1", day("2025-03-17"))
	require.NoError(t, err)
	require.True(t, result.Success)

	status, err := e.Status(ctx, "user-1", day("2025-03-17"))
	require.NoError(t, err)
	assert.Equal(t, streak.StateMaintaining, status.State)
	assert.Zero(t, status.Milestone)
	assert.Equal(t, 7, status.CurrentStreak)
	assert.True(t, status.TodayCompleted)
}
