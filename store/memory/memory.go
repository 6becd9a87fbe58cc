// Package memory provides an in-memory generic.Store for tests and dev.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/warp/worklog/generic"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// Memory keeps everything in maps behind one mutex. Every transaction,
// per-user or not, holds that mutex for its whole duration, which is a
// stricter ordering than WithUserLock requires.
type Memory struct {
	mu sync.Mutex

	users      map[generic.UserID]generic.User
	projects   map[generic.ProjectID]generic.Project
	activities map[generic.ActivityID]generic.Activity
	holidays   map[generic.Date]string
	settings   *generic.Settings
	logs       []generic.TimeLog
	entries    []generic.LedgerEntry
	accruals   map[string]time.Time
	watches    map[generic.TimeLogID]generic.Watch
}

func New() *Memory {
	return &Memory{
		users:      make(map[generic.UserID]generic.User),
		projects:   make(map[generic.ProjectID]generic.Project),
		activities: make(map[generic.ActivityID]generic.Activity),
		holidays:   make(map[generic.Date]string),
		accruals:   make(map[string]time.Time),
		watches:    make(map[generic.TimeLogID]generic.Watch),
	}
}

func (m *Memory) Close() error { return nil }

// =============================================================================
// TRANSACTIONS - snapshot + rollback on error
// =============================================================================

func (m *Memory) WithTx(ctx context.Context, fn func(generic.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&txView{m: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *Memory) WithUserLock(ctx context.Context, _ generic.UserID, fn func(generic.Tx) error) error {
	return m.WithTx(ctx, fn)
}

type memorySnapshot struct {
	logs     []generic.TimeLog
	entries  []generic.LedgerEntry
	accruals map[string]time.Time
	watches  map[generic.TimeLogID]generic.Watch
}

func (m *Memory) snapshot() memorySnapshot {
	logs := make([]generic.TimeLog, len(m.logs))
	for i, l := range m.logs {
		logs[i] = copyLog(l)
	}
	accruals := make(map[string]time.Time, len(m.accruals))
	for k, v := range m.accruals {
		accruals[k] = v
	}
	watches := make(map[generic.TimeLogID]generic.Watch, len(m.watches))
	for k, v := range m.watches {
		watches[k] = v
	}
	return memorySnapshot{
		logs:     logs,
		entries:  append([]generic.LedgerEntry{}, m.entries...),
		accruals: accruals,
		watches:  watches,
	}
}

func (m *Memory) restore(s memorySnapshot) {
	m.logs = s.logs
	m.entries = s.entries
	m.accruals = s.accruals
	m.watches = s.watches
}

// txView runs with m.mu already held.
type txView struct {
	m *Memory
}

func (tv *txView) OpenSession(_ context.Context, userID generic.UserID) (*generic.TimeLog, error) {
	for _, l := range tv.m.logs {
		if l.UserID == userID && l.End == nil {
			out := copyLog(l)
			return &out, nil
		}
	}
	return nil, nil
}

func (tv *txView) InsertTimeLog(_ context.Context, log generic.TimeLog) error {
	tv.m.logs = append(tv.m.logs, copyLog(log))
	return nil
}

func (tv *txView) SaveWatch(_ context.Context, w generic.Watch) error {
	tv.m.watches[w.TimeLogID] = w
	return nil
}

func (tv *txView) CloseTimeLog(_ context.Context, id generic.TimeLogID, end time.Time) (bool, error) {
	return tv.m.closeLocked(id, end), nil
}

func (tv *txView) GetTimeLog(_ context.Context, id generic.TimeLogID) (*generic.TimeLog, error) {
	return tv.m.getLogLocked(id), nil
}

func (tv *txView) ListOpenSessions(_ context.Context) ([]generic.OpenSession, error) {
	var out []generic.OpenSession
	for _, l := range tv.m.logs {
		if l.End != nil {
			continue
		}
		out = append(out, generic.OpenSession{
			Log:        copyLog(l),
			MaxSession: tv.m.users[l.UserID].MaxSession,
		})
	}
	return out, nil
}

func (tv *txView) ProjectExists(_ context.Context, id generic.ProjectID) (bool, error) {
	_, ok := tv.m.projects[id]
	return ok, nil
}

func (tv *txView) ActivityExists(_ context.Context, id generic.ActivityID) (bool, error) {
	_, ok := tv.m.activities[id]
	return ok, nil
}

func (tv *txView) Balance(_ context.Context, userID generic.UserID) (int64, error) {
	return tv.m.balanceLocked(userID), nil
}

func (tv *txView) AppendEntries(_ context.Context, entries []generic.LedgerEntry) error {
	seen := make(map[string]bool)
	for _, e := range tv.m.entries {
		if e.IdempotencyKey != "" {
			seen[e.IdempotencyKey] = true
		}
	}
	for _, e := range entries {
		if e.IdempotencyKey != "" {
			if seen[e.IdempotencyKey] {
				return generic.ErrDuplicateIdempotencyKey
			}
			seen[e.IdempotencyKey] = true
		}
	}
	tv.m.entries = append(tv.m.entries, entries...)
	return nil
}

func (tv *txView) ListUsers(_ context.Context) ([]generic.User, error) {
	return tv.m.sortedUsersLocked(), nil
}

func (tv *txView) FirstAdmin(_ context.Context) (*generic.User, error) {
	for _, u := range tv.m.sortedUsersLocked() {
		if u.IsAdmin {
			return &u, nil
		}
	}
	return nil, nil
}

func (tv *txView) Settings(_ context.Context) (*generic.Settings, error) {
	if tv.m.settings == nil {
		return nil, nil
	}
	s := *tv.m.settings
	return &s, nil
}

func (tv *txView) AccrualRecorded(_ context.Context, period string) (bool, error) {
	_, ok := tv.m.accruals[period]
	return ok, nil
}

func (tv *txView) RecordAccrual(_ context.Context, period string, at time.Time, _ int) error {
	tv.m.accruals[period] = at
	return nil
}

// =============================================================================
// USERS AND REFERENCE DATA
// =============================================================================

func (m *Memory) CreateUser(_ context.Context, u generic.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return generic.ErrDuplicateName
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *Memory) GetUser(_ context.Context, id generic.UserID) (*generic.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *Memory) GetUserByUsername(_ context.Context, username string) (*generic.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			return &u, nil
		}
	}
	return nil, nil
}

func (m *Memory) ListUsers(_ context.Context, page generic.Page) ([]generic.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return paginate(m.sortedUsersLocked(), page), nil
}

func (m *Memory) UpdatePassword(_ context.Context, id generic.UserID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return generic.ErrNotFound
	}
	u.PasswordHash = hash
	m.users[id] = u
	return nil
}

func (m *Memory) CreateProject(_ context.Context, p generic.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.projects {
		if existing.Name == p.Name {
			return generic.ErrDuplicateName
		}
	}
	m.projects[p.ID] = p
	return nil
}

func (m *Memory) ListProjects(_ context.Context, page generic.Page) ([]generic.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]generic.Project, 0, len(m.projects))
	for _, p := range m.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, page), nil
}

func (m *Memory) CreateActivity(_ context.Context, a generic.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.activities {
		if existing.Name == a.Name {
			return generic.ErrDuplicateName
		}
	}
	m.activities[a.ID] = a
	return nil
}

func (m *Memory) ListActivities(_ context.Context, page generic.Page) ([]generic.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]generic.Activity, 0, len(m.activities))
	for _, a := range m.activities {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, page), nil
}

func (m *Memory) SaveHoliday(_ context.Context, h generic.Holiday) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holidays[h.Date] = h.Name
	return nil
}

func (m *Memory) ListHolidays(_ context.Context, from, to generic.Date) ([]generic.Holiday, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []generic.Holiday
	for d, name := range m.holidays {
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, generic.Holiday{Date: d, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *Memory) SaveSettings(_ context.Context, s generic.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = &s
	return nil
}

// =============================================================================
// READS
// =============================================================================

func (m *Memory) GetTimeLog(_ context.Context, id generic.TimeLogID) (*generic.TimeLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLogLocked(id), nil
}

func (m *Memory) ListTimeLogs(_ context.Context, userID *generic.UserID, page generic.Page) ([]generic.TimeLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []generic.TimeLog
	for _, l := range m.logs {
		if userID != nil && l.UserID != *userID {
			continue
		}
		out = append(out, copyLog(l))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.After(out[j].Start) })
	return paginate(out, page), nil
}

func (m *Memory) ListClosedTimeLogs(_ context.Context, userIDs []generic.UserID, from, to time.Time) ([]generic.TimeLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := make(map[generic.UserID]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}
	var out []generic.TimeLog
	for _, l := range m.logs {
		if l.End == nil || !wanted[l.UserID] {
			continue
		}
		if l.Start.Before(from) || !l.Start.Before(to) {
			continue
		}
		out = append(out, copyLog(l))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (m *Memory) ListEntries(_ context.Context, userID *generic.UserID, page generic.Page) ([]generic.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []generic.LedgerEntry
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if userID != nil && e.UserID != *userID {
			continue
		}
		out = append(out, e)
	}
	return paginate(out, page), nil
}

func (m *Memory) Balance(_ context.Context, userID generic.UserID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balanceLocked(userID), nil
}

// =============================================================================
// WATCHES (generic.WatchStore)
// =============================================================================

func (m *Memory) SaveWatch(_ context.Context, w generic.Watch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watches[w.TimeLogID] = w
	return nil
}

func (m *Memory) DeleteWatch(_ context.Context, id generic.TimeLogID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.watches, id)
	return nil
}

func (m *Memory) ListWatches(_ context.Context) ([]generic.Watch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]generic.Watch, 0, len(m.watches))
	for _, w := range m.watches {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// =============================================================================
// HELPERS (m.mu held)
// =============================================================================

func (m *Memory) closeLocked(id generic.TimeLogID, end time.Time) bool {
	for i := range m.logs {
		if m.logs[i].ID != id {
			continue
		}
		if m.logs[i].End != nil {
			return false
		}
		e := end
		m.logs[i].End = &e
		return true
	}
	return false
}

func (m *Memory) getLogLocked(id generic.TimeLogID) *generic.TimeLog {
	for _, l := range m.logs {
		if l.ID == id {
			out := copyLog(l)
			return &out
		}
	}
	return nil
}

func (m *Memory) balanceLocked(userID generic.UserID) int64 {
	var sum int64
	for _, e := range m.entries {
		if e.UserID == userID {
			sum += e.Delta
		}
	}
	return sum
}

func (m *Memory) sortedUsersLocked() []generic.User {
	out := make([]generic.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func copyLog(l generic.TimeLog) generic.TimeLog {
	if l.End != nil {
		e := *l.End
		l.End = &e
	}
	return l
}

func paginate[T any](items []T, page generic.Page) []T {
	if page.Offset > 0 {
		if page.Offset >= len(items) {
			return []T{}
		}
		items = items[page.Offset:]
	}
	if page.Limit > 0 && page.Limit < len(items) {
		items = items[:page.Limit]
	}
	return items
}
