/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements streak.Store and streak.NotifyStore using SQLite. In
  production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE or DELETE statements on the activity_records table
  - A UNIQUE(user_id, date) index backs the one-record-per-day invariant
    at the database level, in addition to the ledger's pre-write check

KEY TABLES:
  activity_records: Immutable per-day activity ledger
  streak_counters:  Per-user streak state (upserted row)
  freeze_state:     Weekly freeze quota accounting
  streak_settings:  User preferences
  users:            Registration dates (anchor for replay and stats)
  notify_state:     Trigger evaluator deduplication state
  milestones_shown: Grow-only (user, milestone) shown set

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so readers don't block
  the single writer.

USAGE:
  store, err := sqlite.New("./data/streaks.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
  engine := streak.NewEngine(store)

SEE ALSO:
  - streak/store.go: Interface definitions
  - streak/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/streak-engine/streak"
)

// Store implements streak.Store and streak.NotifyStore using SQLite.
type Store struct {
	db *sql.DB
}

// Compile-time interface checks.
var (
	_ streak.Store       = (*Store)(nil)
	_ streak.NotifyStore = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Activity records (append-only ledger)
	CREATE TABLE IF NOT EXISTS activity_records (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		activity_type TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- CRITICAL: a day is binary "had activity" - one record per (user, day)
	CREATE UNIQUE INDEX IF NOT EXISTS idx_records_user_date
		ON activity_records(user_id, date);

	-- Replay and range queries (hot path)
	CREATE INDEX IF NOT EXISTS idx_records_user_date_asc
		ON activity_records(user_id, date ASC);

	-- Streak counters (one row per user)
	CREATE TABLE IF NOT EXISTS streak_counters (
		user_id TEXT PRIMARY KEY,
		streak_days INTEGER NOT NULL DEFAULT 0,
		best_streak INTEGER NOT NULL DEFAULT 0,
		last_activity_date TEXT
	);

	-- Freeze quota accounting (one row per user)
	CREATE TABLE IF NOT EXISTS freeze_state (
		user_id TEXT PRIMARY KEY,
		week_start_date TEXT NOT NULL,
		freezes_used INTEGER NOT NULL DEFAULT 0
	);

	-- User settings (one row per user; absence means defaults)
	CREATE TABLE IF NOT EXISTS streak_settings (
		user_id TEXT PRIMARY KEY,
		daily_reminder_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		reminder_time TEXT NOT NULL DEFAULT '20:00',
		weekend_mode BOOLEAN NOT NULL DEFAULT FALSE
	);

	-- Users
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		registered_at TEXT NOT NULL
	);

	-- Notification dedup state (one row per user)
	CREATE TABLE IF NOT EXISTS notify_state (
		user_id TEXT PRIMARY KEY,
		last_state TEXT NOT NULL DEFAULT '',
		warning_day TEXT,
		last_freeze_reset_week TEXT
	);

	-- Milestones already celebrated (grow-only set)
	CREATE TABLE IF NOT EXISTS milestones_shown (
		user_id TEXT NOT NULL,
		milestone INTEGER NOT NULL,
		PRIMARY KEY (user_id, milestone)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ACTIVITY RECORDS
// =============================================================================

func (s *Store) AppendRecord(ctx context.Context, rec streak.ActivityRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity_records (id, user_id, date, activity_type, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		string(rec.ID), string(rec.UserID), rec.Date.String(), string(rec.Type), rec.CreatedAt.String())
	if err != nil {
		return fmt.Errorf("insert activity record: %w", err)
	}
	return nil
}

func (s *Store) LoadRecords(ctx context.Context, userID streak.UserID) ([]streak.ActivityRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, date, activity_type, created_at
		FROM activity_records
		WHERE user_id = ?
		ORDER BY date ASC`, string(userID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *Store) LoadRecordsInRange(ctx context.Context, userID streak.UserID, from, to streak.Day) ([]streak.ActivityRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, date, activity_type, created_at
		FROM activity_records
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`, string(userID), from.String(), to.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *Store) RecordOn(ctx context.Context, userID streak.UserID, day streak.Day) (*streak.ActivityRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, date, activity_type, created_at
		FROM activity_records
		WHERE user_id = ? AND date = ?`, string(userID), day.String())

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) LatestRecordDay(ctx context.Context, userID streak.UserID) (*streak.Day, error) {
	var dateStr sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(date) FROM activity_records WHERE user_id = ?`,
		string(userID)).Scan(&dateStr)
	if err != nil {
		return nil, err
	}
	if !dateStr.Valid {
		return nil, nil
	}
	day, err := streak.ParseDay(dateStr.String)
	if err != nil {
		return nil, err
	}
	return &day, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*streak.ActivityRecord, error) {
	var id, userID, date, activityType, createdAt string
	if err := row.Scan(&id, &userID, &date, &activityType, &createdAt); err != nil {
		return nil, err
	}

	day, err := streak.ParseDay(date)
	if err != nil {
		return nil, err
	}
	created, err := streak.ParseDay(createdAt)
	if err != nil {
		return nil, err
	}

	return &streak.ActivityRecord{
		ID:        streak.RecordID(id),
		UserID:    streak.UserID(userID),
		Date:      day,
		Type:      streak.ActivityType(activityType),
		CreatedAt: created,
	}, nil
}

func scanRecords(rows *sql.Rows) ([]streak.ActivityRecord, error) {
	var records []streak.ActivityRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// =============================================================================
// STREAK COUNTERS
// =============================================================================

func (s *Store) GetCounters(ctx context.Context, userID streak.UserID) (*streak.StreakCounters, error) {
	var streakDays, bestStreak int
	var lastDate sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT streak_days, best_streak, last_activity_date
		FROM streak_counters WHERE user_id = ?`, string(userID)).
		Scan(&streakDays, &bestStreak, &lastDate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	counters := &streak.StreakCounters{
		UserID:     userID,
		StreakDays: streakDays,
		BestStreak: bestStreak,
	}
	if lastDate.Valid {
		day, err := streak.ParseDay(lastDate.String)
		if err != nil {
			return nil, err
		}
		counters.LastActivityDate = &day
	}
	return counters, nil
}

func (s *Store) SaveCounters(ctx context.Context, c streak.StreakCounters) error {
	var lastDate any
	if c.LastActivityDate != nil {
		lastDate = c.LastActivityDate.String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO streak_counters (user_id, streak_days, best_streak, last_activity_date)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			streak_days = excluded.streak_days,
			best_streak = excluded.best_streak,
			last_activity_date = excluded.last_activity_date`,
		string(c.UserID), c.StreakDays, c.BestStreak, lastDate)
	return err
}

// =============================================================================
// FREEZE STATE
// =============================================================================

func (s *Store) GetFreezeState(ctx context.Context, userID streak.UserID) (*streak.FreezeState, error) {
	var weekStart string
	var used int
	err := s.db.QueryRowContext(ctx, `
		SELECT week_start_date, freezes_used
		FROM freeze_state WHERE user_id = ?`, string(userID)).
		Scan(&weekStart, &used)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	week, err := streak.ParseDay(weekStart)
	if err != nil {
		return nil, err
	}
	return &streak.FreezeState{
		UserID:              userID,
		WeekStartDate:       week,
		FreezesUsedThisWeek: used,
	}, nil
}

func (s *Store) SaveFreezeState(ctx context.Context, f streak.FreezeState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO freeze_state (user_id, week_start_date, freezes_used)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			week_start_date = excluded.week_start_date,
			freezes_used = excluded.freezes_used`,
		string(f.UserID), f.WeekStartDate.String(), f.FreezesUsedThisWeek)
	return err
}

// =============================================================================
// SETTINGS
// =============================================================================

func (s *Store) GetSettings(ctx context.Context, userID streak.UserID) (*streak.StreakSettings, error) {
	var enabled, weekendMode bool
	var reminderTime string
	err := s.db.QueryRowContext(ctx, `
		SELECT daily_reminder_enabled, reminder_time, weekend_mode
		FROM streak_settings WHERE user_id = ?`, string(userID)).
		Scan(&enabled, &reminderTime, &weekendMode)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &streak.StreakSettings{
		UserID:               userID,
		DailyReminderEnabled: enabled,
		ReminderTime:         reminderTime,
		WeekendMode:          weekendMode,
	}, nil
}

func (s *Store) SaveSettings(ctx context.Context, st streak.StreakSettings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO streak_settings (user_id, daily_reminder_enabled, reminder_time, weekend_mode)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			daily_reminder_enabled = excluded.daily_reminder_enabled,
			reminder_time = excluded.reminder_time,
			weekend_mode = excluded.weekend_mode`,
		string(st.UserID), st.DailyReminderEnabled, st.ReminderTime, st.WeekendMode)
	return err
}

// =============================================================================
// USERS
// =============================================================================

func (s *Store) GetUser(ctx context.Context, userID streak.UserID) (*streak.User, error) {
	var registeredAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT registered_at FROM users WHERE id = ?`, string(userID)).
		Scan(&registeredAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	day, err := streak.ParseDay(registeredAt)
	if err != nil {
		return nil, err
	}
	return &streak.User{ID: userID, RegisteredAt: day}, nil
}

func (s *Store) SaveUser(ctx context.Context, u streak.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, registered_at)
		VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING`,
		string(u.ID), u.RegisteredAt.String())
	return err
}

// =============================================================================
// NOTIFY STATE
// =============================================================================

func (s *Store) GetNotifyState(ctx context.Context, userID streak.UserID) (*streak.NotifyState, error) {
	var lastState string
	var warningDay, resetWeek sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT last_state, warning_day, last_freeze_reset_week
		FROM notify_state WHERE user_id = ?`, string(userID)).
		Scan(&lastState, &warningDay, &resetWeek)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	state := &streak.NotifyState{
		UserID:    userID,
		LastState: streak.State(lastState),
	}
	if warningDay.Valid {
		day, err := streak.ParseDay(warningDay.String)
		if err != nil {
			return nil, err
		}
		state.WarningDay = &day
	}
	if resetWeek.Valid {
		week, err := streak.ParseDay(resetWeek.String)
		if err != nil {
			return nil, err
		}
		state.LastFreezeResetWeek = &week
	}
	return state, nil
}

func (s *Store) SaveNotifyState(ctx context.Context, st streak.NotifyState) error {
	var warningDay, resetWeek any
	if st.WarningDay != nil {
		warningDay = st.WarningDay.String()
	}
	if st.LastFreezeResetWeek != nil {
		resetWeek = st.LastFreezeResetWeek.String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notify_state (user_id, last_state, warning_day, last_freeze_reset_week)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			last_state = excluded.last_state,
			warning_day = excluded.warning_day,
			last_freeze_reset_week = excluded.last_freeze_reset_week`,
		string(st.UserID), string(st.LastState), warningDay, resetWeek)
	return err
}

func (s *Store) WasMilestoneShown(ctx context.Context, userID streak.UserID, milestone int) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM milestones_shown WHERE user_id = ? AND milestone = ?`,
		string(userID), milestone).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) MarkMilestoneShown(ctx context.Context, userID streak.UserID, milestone int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO milestones_shown (user_id, milestone)
		VALUES (?, ?)
		ON CONFLICT(user_id, milestone) DO NOTHING`,
		string(userID), milestone)
	return err
}
