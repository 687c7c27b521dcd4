/*
handlers.go - HTTP API handlers for the streak engine

PURPOSE:
  Exposes the streak engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the engine.

ENDPOINTS:
  Users:
    POST   /api/users                               Register user

  Streak:
    GET    /api/users/{id}/streak                   Streak card data
    GET    /api/users/{id}/streak/stats             Aggregate stats
    GET    /api/users/{id}/streak/history           Full ledger replay
    GET    /api/users/{id}/streak/timeline          Calendar timeline
    POST   /api/users/{id}/streak/activity          Record activity
    POST   /api/users/{id}/streak/freeze            Use weekly freeze
    PUT    /api/users/{id}/streak/settings          Partial settings update

  Notifications:
    POST   /api/users/{id}/notifications/evaluate   Trigger evaluation

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: User not found
  - 409: Conflict (out-of-order write, freeze refusals)
  - 500: Internal errors
  Freeze refusals additionally surface inside the typed response body
  because the client renders them as ordinary card states, not failures.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/streak-engine/streak"
)

// Backend is the persistence surface the handlers need: the engine store
// plus the evaluator's dedup store. Both SQLite and the in-memory store
// satisfy it.
type Backend interface {
	streak.Store
	streak.NotifyStore
}

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine    *streak.Engine
	Evaluator *streak.Evaluator

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

// NewHandler creates a new handler over the given backend.
func NewHandler(backend Backend) *Handler {
	return &Handler{
		Engine:    streak.NewEngine(backend),
		Evaluator: streak.NewEvaluator(backend),
		now:       time.Now,
	}
}

func (h *Handler) today() streak.Day {
	return streak.DayOf(h.now())
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// CreateUser registers a user.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required", nil)
		return
	}

	registeredAt := h.today()
	if req.RegisteredAt != "" {
		day, err := streak.ParseDay(req.RegisteredAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid registered_at format (use YYYY-MM-DD)", err)
			return
		}
		registeredAt = day
	}

	user, err := h.Engine.RegisterUser(r.Context(), streak.UserID(req.ID), registeredAt)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create user", err)
		return
	}

	writeJSON(w, http.StatusCreated, UserDTO{
		ID:           string(user.ID),
		RegisteredAt: user.RegisteredAt.String(),
	})
}

// =============================================================================
// STREAK HANDLERS
// =============================================================================

// GetStreakData returns the streak card payload: stored counters,
// settings, and the derived status for today.
func (h *Handler) GetStreakData(w http.ResponseWriter, r *http.Request) {
	userID := streak.UserID(chi.URLParam(r, "id"))
	ctx := r.Context()
	today := h.today()

	counters, err := h.Engine.Counters(ctx, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load counters", err)
		return
	}
	status, err := h.Engine.Status(ctx, userID, today)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute status", err)
		return
	}

	settings, err := h.Engine.Settings(ctx, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load settings", err)
		return
	}

	writeJSON(w, http.StatusOK, StreakDataDTO{
		Streak:         countersDTO(*counters),
		Settings:       settingsDTO(settings),
		TodayCompleted: status.TodayCompleted,
		Status:         statusDTO(*status),
	})
}

// GetStreakStats returns aggregate statistics.
func (h *Handler) GetStreakStats(w http.ResponseWriter, r *http.Request) {
	userID := streak.UserID(chi.URLParam(r, "id"))

	stats, err := h.Engine.Stats(r.Context(), userID, h.today())
	if err != nil {
		if streak.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "User not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to compute stats", err)
		return
	}

	writeJSON(w, http.StatusOK, StatsDTO{
		BestStreak:      stats.BestStreak,
		TotalActiveDays: stats.TotalActiveDays,
		CompletionRate:  stats.CompletionRate.String(),
		FreezesLeft:     stats.FreezesLeft,
	})
}

// GetStreakHistory returns the full per-day history from registration.
func (h *Handler) GetStreakHistory(w http.ResponseWriter, r *http.Request) {
	userID := streak.UserID(chi.URLParam(r, "id"))

	timeline, err := h.Engine.TimelineFromRegistration(r.Context(), userID, h.today())
	if err != nil {
		if streak.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "User not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to build history", err)
		return
	}

	dtos := make([]HistoryDayDTO, len(timeline))
	for i, day := range timeline {
		dtos[i] = HistoryDayDTO{
			Date:         day.Date.String(),
			HasActivity:  day.ActivityType != "",
			ActivityType: string(day.ActivityType),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetTimeline returns the calendar timeline. Optional from/to query
// parameters narrow the range; defaults are registration date and today.
func (h *Handler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	userID := streak.UserID(chi.URLParam(r, "id"))
	ctx := r.Context()
	today := h.today()

	var timeline []streak.TimelineDay
	var err error

	fromParam := r.URL.Query().Get("from")
	toParam := r.URL.Query().Get("to")
	if fromParam == "" && toParam == "" {
		timeline, err = h.Engine.TimelineFromRegistration(ctx, userID, today)
	} else {
		from, to := today, today
		if fromParam != "" {
			if from, err = streak.ParseDay(fromParam); err != nil {
				writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
				return
			}
		}
		if toParam != "" {
			if to, err = streak.ParseDay(toParam); err != nil {
				writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
				return
			}
		}
		timeline, err = h.Engine.Timeline(ctx, userID, from, to)
	}
	if err != nil {
		if streak.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "User not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to build timeline", err)
		return
	}

	dtos := make([]TimelineDayDTO, len(timeline))
	for i, day := range timeline {
		dtos[i] = TimelineDayDTO{
			Date:         day.Date.String(),
			Class:        string(day.Class),
			ActivityType: string(day.ActivityType),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordActivity appends an activity record and returns the updated
// counters. Idempotent per (user, day).
func (h *Handler) RecordActivity(w http.ResponseWriter, r *http.Request) {
	userID := streak.UserID(chi.URLParam(r, "id"))

	var req RecordActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	day := h.today()
	if req.Date != "" {
		parsed, err := streak.ParseDay(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}
		day = parsed
	}

	counters, err := h.Engine.RecordActivity(r.Context(), userID, streak.ActivityType(req.ActivityType), day)
	if err != nil {
		switch {
		case streak.IsFatal(err):
			writeError(w, http.StatusConflict, "Out-of-order activity write", err)
		case streak.IsClientError(err):
			writeError(w, http.StatusBadRequest, "Invalid activity", err)
		default:
			writeError(w, http.StatusInternalServerError, "Failed to record activity", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, RecordActivityResponse{
		Success: true,
		Streak:  countersDTO(*counters),
	})
}

// UseFreeze spends the weekly freeze for today. Refusals come back as a
// typed body with HTTP 409, matching how the client renders them.
func (h *Handler) UseFreeze(w http.ResponseWriter, r *http.Request) {
	userID := streak.UserID(chi.URLParam(r, "id"))

	var req UseFreezeRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	day := h.today()
	if req.Date != "" {
		parsed, err := streak.ParseDay(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}
		day = parsed
	}

	result, err := h.Engine.UseFreeze(r.Context(), userID, day)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to use freeze", err)
		return
	}

	resp := UseFreezeResponse{
		Success:     result.Success,
		FreezesLeft: result.FreezesLeft,
	}
	status := http.StatusOK
	if !result.Success {
		resp.Error = result.Err.Error()
		status = http.StatusConflict
	}
	writeJSON(w, status, resp)
}

// UpdateSettings applies a partial settings update.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID := streak.UserID(chi.URLParam(r, "id"))

	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	updated, err := h.Engine.UpdateSettings(r.Context(), userID, req.Patch())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to update settings", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"settings": settingsDTO(updated),
	})
}

// =============================================================================
// NOTIFICATION HANDLERS
// =============================================================================

// EvaluateNotifications runs the trigger evaluator once and returns zero
// or one intent. Called opportunistically by the client, e.g. on app
// foreground.
func (h *Handler) EvaluateNotifications(w http.ResponseWriter, r *http.Request) {
	userID := streak.UserID(chi.URLParam(r, "id"))
	ctx := r.Context()

	var req EvaluateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	at := h.now()
	if req.At != "" {
		parsed, err := time.Parse(time.RFC3339, req.At)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid at timestamp (use RFC3339)", err)
			return
		}
		at = parsed
	}

	status, err := h.Engine.Status(ctx, userID, streak.DayOf(at))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute status", err)
		return
	}
	settings, err := h.Engine.Settings(ctx, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load settings", err)
		return
	}

	intent, err := h.Evaluator.Evaluate(ctx, *status, settings, at)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to evaluate notifications", err)
		return
	}

	writeJSON(w, http.StatusOK, EvaluateResponse{Intent: intentDTO(intent)})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
