/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SCHEMA NOTE:
  snake_case is the canonical field casing. The settings update request
  additionally accepts the legacy camelCase field names from the mobile
  client as a compatibility shim; the shim lives here at the boundary
  and nowhere else.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/warp/streak-engine/streak"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// CreateUserRequest registers a user. RegisteredAt defaults to today.
type CreateUserRequest struct {
	ID           string `json:"id"`
	RegisteredAt string `json:"registered_at,omitempty"`
}

// UserDTO represents a user in API responses.
type UserDTO struct {
	ID           string `json:"id"`
	RegisteredAt string `json:"registered_at"`
}

// StreakCountersDTO is the stored streak state.
type StreakCountersDTO struct {
	StreakDays       int     `json:"streak_days"`
	BestStreak       int     `json:"best_streak"`
	LastActivityDate *string `json:"last_activity_date"`
}

// SettingsDTO is the user's streak settings.
type SettingsDTO struct {
	DailyReminderEnabled bool   `json:"daily_reminder_enabled"`
	ReminderTime         string `json:"reminder_time"`
	WeekendMode          bool   `json:"weekend_mode"`
}

// StatusDTO is the derived streak status, recomputed per request.
type StatusDTO struct {
	State                 string `json:"state"`
	CurrentStreak         int    `json:"current_streak"`
	BestStreak            int    `json:"best_streak"`
	TodayCompleted        bool   `json:"today_completed"`
	DaysSinceLastActivity int    `json:"days_since_last_activity"`
	Milestone             int    `json:"milestone,omitempty"`
	Title                 string `json:"title"`
	Message               string `json:"message"`
}

// StreakDataDTO is the aggregate streak card payload.
type StreakDataDTO struct {
	Streak         StreakCountersDTO `json:"streak"`
	Settings       SettingsDTO       `json:"settings"`
	TodayCompleted bool              `json:"today_completed"`
	Status         StatusDTO         `json:"status"`
}

// StatsDTO is the stats card payload.
type StatsDTO struct {
	BestStreak      int    `json:"best_streak"`
	TotalActiveDays int    `json:"total_active_days"`
	CompletionRate  string `json:"completion_rate"`
	FreezesLeft     int    `json:"freezes_left"`
}

// HistoryDayDTO is one day of the full streak history.
type HistoryDayDTO struct {
	Date         string `json:"date"`
	HasActivity  bool   `json:"has_activity"`
	ActivityType string `json:"activity_type,omitempty"`
}

// TimelineDayDTO is one day of the calendar timeline.
type TimelineDayDTO struct {
	Date         string `json:"date"`
	Class        string `json:"classification"`
	ActivityType string `json:"activity_type,omitempty"`
}

// RecordActivityRequest records an activity for a day.
// Date defaults to today; it exists so clients operating on a local
// calendar day can pass it explicitly.
type RecordActivityRequest struct {
	ActivityType string `json:"activity_type"`
	Date         string `json:"date,omitempty"`
}

// RecordActivityResponse confirms the append and returns the counters.
type RecordActivityResponse struct {
	Success bool              `json:"success"`
	Streak  StreakCountersDTO `json:"streak"`
}

// UseFreezeRequest spends the weekly freeze. Date defaults to today.
type UseFreezeRequest struct {
	Date string `json:"date,omitempty"`
}

// UseFreezeResponse is the typed freeze outcome.
type UseFreezeResponse struct {
	Success     bool   `json:"success"`
	FreezesLeft int    `json:"freezes_left"`
	Error       string `json:"error,omitempty"`
}

// UpdateSettingsRequest is a partial settings update. Nil fields are
// left unchanged. The camelCase variants mirror the legacy mobile
// client schema and are honored only when the canonical field is absent.
type UpdateSettingsRequest struct {
	DailyReminderEnabled *bool   `json:"daily_reminder_enabled"`
	ReminderTime         *string `json:"reminder_time"`
	WeekendMode          *bool   `json:"weekend_mode"`

	// Legacy camelCase aliases (compatibility shim).
	LegacyDailyReminderEnabled *bool   `json:"dailyReminderEnabled"`
	LegacyReminderTime         *string `json:"reminderTime"`
	LegacyWeekendMode          *bool   `json:"weekendMode"`
}

// Patch resolves the canonical-vs-legacy fields into an engine patch.
func (r UpdateSettingsRequest) Patch() streak.SettingsPatch {
	patch := streak.SettingsPatch{
		DailyReminderEnabled: r.DailyReminderEnabled,
		ReminderTime:         r.ReminderTime,
		WeekendMode:          r.WeekendMode,
	}
	if patch.DailyReminderEnabled == nil {
		patch.DailyReminderEnabled = r.LegacyDailyReminderEnabled
	}
	if patch.ReminderTime == nil {
		patch.ReminderTime = r.LegacyReminderTime
	}
	if patch.WeekendMode == nil {
		patch.WeekendMode = r.LegacyWeekendMode
	}
	return patch
}

// EvaluateRequest runs the notification trigger evaluator.
// At defaults to the current wall clock; RFC3339.
type EvaluateRequest struct {
	At string `json:"at,omitempty"`
}

// NotificationIntentDTO is an emitted triggering decision.
type NotificationIntentDTO struct {
	ID      string            `json:"id"`
	Type    string            `json:"type"`
	Title   string            `json:"title"`
	Message string            `json:"message"`
	Data    map[string]string `json:"data"`
}

// EvaluateResponse wraps zero or one intent.
type EvaluateResponse struct {
	Intent *NotificationIntentDTO `json:"intent"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func countersDTO(c streak.StreakCounters) StreakCountersDTO {
	dto := StreakCountersDTO{
		StreakDays: c.StreakDays,
		BestStreak: c.BestStreak,
	}
	if c.LastActivityDate != nil {
		s := c.LastActivityDate.String()
		dto.LastActivityDate = &s
	}
	return dto
}

func settingsDTO(s streak.StreakSettings) SettingsDTO {
	return SettingsDTO{
		DailyReminderEnabled: s.DailyReminderEnabled,
		ReminderTime:         s.ReminderTime,
		WeekendMode:          s.WeekendMode,
	}
}

func statusDTO(st streak.StreakStatus) StatusDTO {
	c := streak.CopyFor(st)
	return StatusDTO{
		State:                 string(st.State),
		CurrentStreak:         st.CurrentStreak,
		BestStreak:            st.BestStreak,
		TodayCompleted:        st.TodayCompleted,
		DaysSinceLastActivity: st.DaysSinceLastActivity,
		Milestone:             st.Milestone,
		Title:                 c.Title,
		Message:               c.Message,
	}
}

func intentDTO(in *streak.NotificationIntent) *NotificationIntentDTO {
	if in == nil {
		return nil
	}
	return &NotificationIntentDTO{
		ID:      in.ID,
		Type:    string(in.Type),
		Title:   in.Title,
		Message: in.Message,
		Data:    in.Data,
	}
}
