// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/streak-engine/streak"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	records  map[streak.UserID][]streak.ActivityRecord
	counters map[streak.UserID]streak.StreakCounters
	freezes  map[streak.UserID]streak.FreezeState
	settings map[streak.UserID]streak.StreakSettings
	users    map[streak.UserID]streak.User

	notify     map[streak.UserID]streak.NotifyState
	milestones map[milestoneKey]bool
}

type milestoneKey struct {
	UserID    streak.UserID
	Milestone int
}

func NewMemory() *Memory {
	return &Memory{
		records:    make(map[streak.UserID][]streak.ActivityRecord),
		counters:   make(map[streak.UserID]streak.StreakCounters),
		freezes:    make(map[streak.UserID]streak.FreezeState),
		settings:   make(map[streak.UserID]streak.StreakSettings),
		users:      make(map[streak.UserID]streak.User),
		notify:     make(map[streak.UserID]streak.NotifyState),
		milestones: make(map[milestoneKey]bool),
	}
}

// Compile-time interface checks.
var (
	_ streak.Store       = (*Memory)(nil)
	_ streak.NotifyStore = (*Memory)(nil)
)

// =============================================================================
// ACTIVITY RECORDS - Append-only
// =============================================================================

func (m *Memory) AppendRecord(_ context.Context, rec streak.ActivityRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	recs := m.records[rec.UserID]

	// Binary search for insertion point keeps the slice date-ordered.
	i := sort.Search(len(recs), func(i int) bool {
		return recs[i].Date.After(rec.Date)
	})
	recs = append(recs, streak.ActivityRecord{})
	copy(recs[i+1:], recs[i:])
	recs[i] = rec
	m.records[rec.UserID] = recs
	return nil
}

func (m *Memory) LoadRecords(_ context.Context, userID streak.UserID) ([]streak.ActivityRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]streak.ActivityRecord, len(m.records[userID]))
	copy(result, m.records[userID])
	return result, nil
}

func (m *Memory) LoadRecordsInRange(_ context.Context, userID streak.UserID, from, to streak.Day) ([]streak.ActivityRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []streak.ActivityRecord
	for _, rec := range m.records[userID] {
		if from.BeforeOrEqual(rec.Date) && rec.Date.BeforeOrEqual(to) {
			result = append(result, rec)
		}
	}
	return result, nil
}

func (m *Memory) RecordOn(_ context.Context, userID streak.UserID, day streak.Day) (*streak.ActivityRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, rec := range m.records[userID] {
		if rec.Date.Equal(day) {
			r := rec
			return &r, nil
		}
	}
	return nil, nil
}

func (m *Memory) LatestRecordDay(_ context.Context, userID streak.UserID) (*streak.Day, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	recs := m.records[userID]
	if len(recs) == 0 {
		return nil, nil
	}
	d := recs[len(recs)-1].Date
	return &d, nil
}

// =============================================================================
// COUNTERS / FREEZE / SETTINGS / USERS - Upsert rows
// =============================================================================

func (m *Memory) GetCounters(_ context.Context, userID streak.UserID) (*streak.StreakCounters, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if c, ok := m.counters[userID]; ok {
		return &c, nil
	}
	return nil, nil
}

func (m *Memory) SaveCounters(_ context.Context, c streak.StreakCounters) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[c.UserID] = c
	return nil
}

func (m *Memory) GetFreezeState(_ context.Context, userID streak.UserID) (*streak.FreezeState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if f, ok := m.freezes[userID]; ok {
		return &f, nil
	}
	return nil, nil
}

func (m *Memory) SaveFreezeState(_ context.Context, f streak.FreezeState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.freezes[f.UserID] = f
	return nil
}

func (m *Memory) GetSettings(_ context.Context, userID streak.UserID) (*streak.StreakSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if s, ok := m.settings[userID]; ok {
		return &s, nil
	}
	return nil, nil
}

func (m *Memory) SaveSettings(_ context.Context, s streak.StreakSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[s.UserID] = s
	return nil
}

func (m *Memory) GetUser(_ context.Context, userID streak.UserID) (*streak.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if u, ok := m.users[userID]; ok {
		return &u, nil
	}
	return nil, nil
}

func (m *Memory) SaveUser(_ context.Context, u streak.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

// =============================================================================
// NOTIFY STORE
// =============================================================================

func (m *Memory) GetNotifyState(_ context.Context, userID streak.UserID) (*streak.NotifyState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if s, ok := m.notify[userID]; ok {
		return &s, nil
	}
	return nil, nil
}

func (m *Memory) SaveNotifyState(_ context.Context, s streak.NotifyState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notify[s.UserID] = s
	return nil
}

func (m *Memory) WasMilestoneShown(_ context.Context, userID streak.UserID, milestone int) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.milestones[milestoneKey{UserID: userID, Milestone: milestone}], nil
}

func (m *Memory) MarkMilestoneShown(_ context.Context, userID streak.UserID, milestone int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.milestones[milestoneKey{UserID: userID, Milestone: milestone}] = true
	return nil
}
