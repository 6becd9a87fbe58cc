/*
Package sqlite provides a SQLite-backed implementation of generic.Store.

PURPOSE:
  Single-node persistence for the worklog service. Same schema shape as the
  postgres store, minus the advisory locks.

SERIALIZATION:
  Every transaction starts with BEGIN IMMEDIATE (_txlock=immediate), which
  takes the database write lock up front. That makes WithTx and WithUserLock
  serialized against every other writer on the file, across processes.
  Inside one process a mutex queues writers so they do not spin on
  SQLITE_BUSY; busy_timeout covers writers in other processes.

APPEND-ONLY TABLES:
  ledger_entries: no UPDATE, no DELETE. Corrections are new rows.
  time_logs:      the only UPDATE is the guarded close (end_at IS NULL).

KEY TABLES:
  users:            identity + weekly expected hours + session cap
  time_logs:        sessions; partial unique index keeps one open per user
  ledger_entries:   absence deltas; idempotency_key UNIQUE
  settings:         singleton row (id = 1)
  accrual_runs:     one row per accrued period
  session_watches:  pending auto-close watchers, re-armed at startup

TIME STORAGE:
  Instants are stored as fixed-width UTC text so string order is time order.
  Dates are YYYY-MM-DD. Decimal hours are TEXT.

USAGE:
  store, err := sqlite.New("./data/worklog.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - generic/store.go: Interface definitions
  - store/memory: In-memory implementation for testing
  - store/postgres: Multi-process deployments
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/worklog/generic"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z"

var weekdayColumns = [7]string{
	"expected_mon", "expected_tue", "expected_wed", "expected_thu",
	"expected_fri", "expected_sat", "expected_sun",
}

// Store implements generic.Store and generic.WatchStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex // queues write transactions within this process
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	params := "_txlock=immediate&_busy_timeout=5000&_foreign_keys=on"
	if dbPath != ":memory:" {
		params += "&_journal_mode=WAL"
	}
	db, err := sql.Open("sqlite3", dbPath+"?"+params)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// each connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
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
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE COLLATE NOCASE,
		password_hash TEXT NOT NULL DEFAULT '',
		is_admin INTEGER NOT NULL DEFAULT 0,
		expected_mon TEXT NOT NULL DEFAULT '0',
		expected_tue TEXT NOT NULL DEFAULT '0',
		expected_wed TEXT NOT NULL DEFAULT '0',
		expected_thu TEXT NOT NULL DEFAULT '0',
		expected_fri TEXT NOT NULL DEFAULT '0',
		expected_sat TEXT NOT NULL DEFAULT '0',
		expected_sun TEXT NOT NULL DEFAULT '0',
		max_session_ns INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS activities (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS holidays (
		date TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS time_logs (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		start_at TEXT NOT NULL,
		end_at TEXT,
		project_id TEXT NOT NULL,
		activity_id TEXT NOT NULL,
		CHECK (end_at IS NULL OR end_at >= start_at)
	);

	-- Backstop for the one-open-session rule enforced in timelog.Service
	CREATE UNIQUE INDEX IF NOT EXISTS idx_time_logs_one_open
		ON time_logs(user_id) WHERE end_at IS NULL;

	-- Summary hot path: closed logs by user and start
	CREATE INDEX IF NOT EXISTS idx_time_logs_user_start
		ON time_logs(user_id, start_at);

	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		entry_date TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		delta INTEGER NOT NULL,
		created_by TEXT NOT NULL,
		created_at TEXT NOT NULL,
		idempotency_key TEXT UNIQUE
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_entries_user
		ON ledger_entries(user_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		sick_leave_per_month INTEGER NOT NULL,
		casual_leave_per_month INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS accrual_runs (
		period TEXT PRIMARY KEY,
		ran_at TEXT NOT NULL,
		users INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS session_watches (
		time_log_id TEXT PRIMARY KEY,
		duration_ns INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn inside one BEGIN IMMEDIATE transaction.
func (s *Store) WithTx(ctx context.Context, fn func(generic.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{q: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// WithUserLock is WithTx: BEGIN IMMEDIATE already excludes every other writer.
func (s *Store) WithUserLock(ctx context.Context, _ generic.UserID, fn func(generic.Tx) error) error {
	return s.WithTx(ctx, fn)
}

type txStore struct {
	q querier
}

func (ts *txStore) OpenSession(ctx context.Context, userID generic.UserID) (*generic.TimeLog, error) {
	return openSession(ctx, ts.q, userID)
}

func (ts *txStore) InsertTimeLog(ctx context.Context, l generic.TimeLog) error {
	_, err := ts.q.ExecContext(ctx, `
		INSERT INTO time_logs (id, user_id, start_at, end_at, project_id, activity_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		l.ID, l.UserID, formatTime(l.Start), nullTime(l.End), l.ProjectID, l.ActivityID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrActiveSessionExists
		}
		return fmt.Errorf("failed to insert time log: %w", err)
	}
	return nil
}

func (ts *txStore) SaveWatch(ctx context.Context, w generic.Watch) error {
	return saveWatch(ctx, ts.q, w)
}

func (ts *txStore) CloseTimeLog(ctx context.Context, id generic.TimeLogID, end time.Time) (bool, error) {
	res, err := ts.q.ExecContext(ctx,
		`UPDATE time_logs SET end_at = ? WHERE id = ? AND end_at IS NULL`,
		formatTime(end), id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to close time log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (ts *txStore) GetTimeLog(ctx context.Context, id generic.TimeLogID) (*generic.TimeLog, error) {
	return getTimeLog(ctx, ts.q, id)
}

func (ts *txStore) ListOpenSessions(ctx context.Context) ([]generic.OpenSession, error) {
	rows, err := ts.q.QueryContext(ctx, `
		SELECT t.id, t.user_id, t.start_at, t.end_at, t.project_id, t.activity_id, u.max_session_ns
		FROM time_logs t JOIN users u ON u.id = t.user_id
		WHERE t.end_at IS NULL
		ORDER BY t.start_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list open sessions: %w", err)
	}
	defer rows.Close()

	var out []generic.OpenSession
	for rows.Next() {
		var (
			l        generic.TimeLog
			start    string
			end      sql.NullString
			maxNanos int64
		)
		if err := rows.Scan(&l.ID, &l.UserID, &start, &end, &l.ProjectID, &l.ActivityID, &maxNanos); err != nil {
			return nil, fmt.Errorf("failed to scan open session: %w", err)
		}
		l.Start = parseTime(start)
		l.End = parseNullTime(end)
		out = append(out, generic.OpenSession{Log: l, MaxSession: time.Duration(maxNanos)})
	}
	return out, rows.Err()
}

func (ts *txStore) ProjectExists(ctx context.Context, id generic.ProjectID) (bool, error) {
	return exists(ctx, ts.q, "SELECT COUNT(*) FROM projects WHERE id = ?", id)
}

func (ts *txStore) ActivityExists(ctx context.Context, id generic.ActivityID) (bool, error) {
	return exists(ctx, ts.q, "SELECT COUNT(*) FROM activities WHERE id = ?", id)
}

func (ts *txStore) Balance(ctx context.Context, userID generic.UserID) (int64, error) {
	return balance(ctx, ts.q, userID)
}

func (ts *txStore) AppendEntries(ctx context.Context, entries []generic.LedgerEntry) error {
	for _, e := range entries {
		_, err := ts.q.ExecContext(ctx, `
			INSERT INTO ledger_entries
			(id, user_id, entry_date, description, delta, created_by, created_at, idempotency_key)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.UserID, e.Date.String(), e.Description, e.Delta, e.CreatedBy,
			formatTime(e.CreatedAt), nullString(e.IdempotencyKey),
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return generic.ErrDuplicateIdempotencyKey
			}
			return fmt.Errorf("failed to append ledger entry: %w", err)
		}
	}
	return nil
}

func (ts *txStore) ListUsers(ctx context.Context) ([]generic.User, error) {
	return queryUsers(ctx, ts.q, "ORDER BY created_at ASC, id ASC")
}

func (ts *txStore) FirstAdmin(ctx context.Context) (*generic.User, error) {
	users, err := queryUsers(ctx, ts.q, "WHERE is_admin = 1 ORDER BY created_at ASC, id ASC LIMIT 1")
	if err != nil || len(users) == 0 {
		return nil, err
	}
	return &users[0], nil
}

func (ts *txStore) Settings(ctx context.Context) (*generic.Settings, error) {
	var st generic.Settings
	err := ts.q.QueryRowContext(ctx,
		"SELECT sick_leave_per_month, casual_leave_per_month FROM settings WHERE id = 1",
	).Scan(&st.SickLeavePerMonth, &st.CasualLeavePerMonth)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	return &st, nil
}

func (ts *txStore) AccrualRecorded(ctx context.Context, period string) (bool, error) {
	return exists(ctx, ts.q, "SELECT COUNT(*) FROM accrual_runs WHERE period = ?", period)
}

func (ts *txStore) RecordAccrual(ctx context.Context, period string, at time.Time, users int) error {
	_, err := ts.q.ExecContext(ctx,
		"INSERT INTO accrual_runs (period, ran_at, users) VALUES (?, ?, ?)",
		period, formatTime(at), users,
	)
	if err != nil {
		return fmt.Errorf("failed to record accrual run: %w", err)
	}
	return nil
}

// =============================================================================
// USERS
// =============================================================================

const userColumns = `id, username, password_hash, is_admin,
	expected_mon, expected_tue, expected_wed, expected_thu, expected_fri, expected_sat, expected_sun,
	max_session_ns, created_at`

func (s *Store) CreateUser(ctx context.Context, u generic.User) error {
	args := []any{u.ID, u.Username, u.PasswordHash, u.IsAdmin}
	for _, h := range u.ExpectedHours {
		args = append(args, h.String())
	}
	args = append(args, int64(u.MaxSession), formatTime(u.CreatedAt))

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		args...,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateName
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id generic.UserID) (*generic.User, error) {
	users, err := queryUsers(ctx, s.db, "WHERE id = ?", id)
	if err != nil || len(users) == 0 {
		return nil, err
	}
	return &users[0], nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*generic.User, error) {
	users, err := queryUsers(ctx, s.db, "WHERE username = ?", username)
	if err != nil || len(users) == 0 {
		return nil, err
	}
	return &users[0], nil
}

func (s *Store) ListUsers(ctx context.Context, page generic.Page) ([]generic.User, error) {
	limit, offset := pageArgs(page)
	return queryUsers(ctx, s.db, "ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?", limit, offset)
}

func (s *Store) UpdatePassword(ctx context.Context, id generic.UserID, hash string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", hash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.ErrNotFound
	}
	return nil
}

func queryUsers(ctx context.Context, q querier, tail string, args ...any) ([]generic.User, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+userColumns+" FROM users "+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []generic.User
	for rows.Next() {
		var (
			u         generic.User
			hours     [7]string
			maxNanos  int64
			createdAt string
		)
		err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsAdmin,
			&hours[0], &hours[1], &hours[2], &hours[3], &hours[4], &hours[5], &hours[6],
			&maxNanos, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		for i, h := range hours {
			u.ExpectedHours[i] = parseDecimal(h)
		}
		u.MaxSession = time.Duration(maxNanos)
		u.CreatedAt = parseTime(createdAt)
		users = append(users, u)
	}
	return users, rows.Err()
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

func (s *Store) CreateProject(ctx context.Context, p generic.Project) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO projects (id, name, created_at) VALUES (?, ?, ?)",
		p.ID, p.Name, formatTime(p.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateName
		}
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

func (s *Store) ListProjects(ctx context.Context, page generic.Page) ([]generic.Project, error) {
	limit, offset := pageArgs(page)
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, created_at FROM projects ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	out := []generic.Project{}
	for rows.Next() {
		var (
			p         generic.Project
			createdAt string
		)
		if err := rows.Scan(&p.ID, &p.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		p.CreatedAt = parseTime(createdAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) CreateActivity(ctx context.Context, a generic.Activity) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO activities (id, name, created_at) VALUES (?, ?, ?)",
		a.ID, a.Name, formatTime(a.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateName
		}
		return fmt.Errorf("failed to create activity: %w", err)
	}
	return nil
}

func (s *Store) ListActivities(ctx context.Context, page generic.Page) ([]generic.Activity, error) {
	limit, offset := pageArgs(page)
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, created_at FROM activities ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	out := []generic.Activity{}
	for rows.Next() {
		var (
			a         generic.Activity
			createdAt string
		)
		if err := rows.Scan(&a.ID, &a.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		a.CreatedAt = parseTime(createdAt)
		out = append(out, a)
	}
	return out, rows.Err()
}

// SaveHoliday inserts or renames the holiday on h.Date.
func (s *Store) SaveHoliday(ctx context.Context, h generic.Holiday) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (date, name) VALUES (?, ?)
		ON CONFLICT(date) DO UPDATE SET name = excluded.name`,
		h.Date.String(), h.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to save holiday: %w", err)
	}
	return nil
}

func (s *Store) ListHolidays(ctx context.Context, from, to generic.Date) ([]generic.Holiday, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT date, name FROM holidays WHERE date >= ? AND date <= ? ORDER BY date ASC",
		from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}
	defer rows.Close()

	out := []generic.Holiday{}
	for rows.Next() {
		var h generic.Holiday
		var date string
		if err := rows.Scan(&date, &h.Name); err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		if h.Date, err = generic.ParseDate(date); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) SaveSettings(ctx context.Context, st generic.Settings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (id, sick_leave_per_month, casual_leave_per_month) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			sick_leave_per_month = excluded.sick_leave_per_month,
			casual_leave_per_month = excluded.casual_leave_per_month`,
		st.SickLeavePerMonth, st.CasualLeavePerMonth,
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// =============================================================================
// TIME LOG + LEDGER READS
// =============================================================================

const timeLogColumns = "id, user_id, start_at, end_at, project_id, activity_id"

func (s *Store) GetTimeLog(ctx context.Context, id generic.TimeLogID) (*generic.TimeLog, error) {
	return getTimeLog(ctx, s.db, id)
}

func (s *Store) ListTimeLogs(ctx context.Context, userID *generic.UserID, page generic.Page) ([]generic.TimeLog, error) {
	limit, offset := pageArgs(page)
	if userID != nil {
		return queryTimeLogs(ctx, s.db,
			"WHERE user_id = ? ORDER BY start_at DESC, id DESC LIMIT ? OFFSET ?", *userID, limit, offset)
	}
	return queryTimeLogs(ctx, s.db, "ORDER BY start_at DESC, id DESC LIMIT ? OFFSET ?", limit, offset)
}

func (s *Store) ListClosedTimeLogs(ctx context.Context, userIDs []generic.UserID, from, to time.Time) ([]generic.TimeLog, error) {
	if len(userIDs) == 0 {
		return []generic.TimeLog{}, nil
	}
	args := make([]any, 0, len(userIDs)+2)
	for _, id := range userIDs {
		args = append(args, id)
	}
	args = append(args, formatTime(from), formatTime(to))

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(userIDs)), ", ")
	return queryTimeLogs(ctx, s.db,
		"WHERE user_id IN ("+placeholders+") AND end_at IS NOT NULL AND start_at >= ? AND start_at < ? ORDER BY start_at ASC",
		args...)
}

func (s *Store) ListEntries(ctx context.Context, userID *generic.UserID, page generic.Page) ([]generic.LedgerEntry, error) {
	limit, offset := pageArgs(page)
	query := `SELECT id, user_id, entry_date, description, delta, created_by, created_at, idempotency_key
		FROM ledger_entries `
	var args []any
	if userID != nil {
		query += "WHERE user_id = ? "
		args = append(args, *userID)
	}
	query += "ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	out := []generic.LedgerEntry{}
	for rows.Next() {
		var (
			e         generic.LedgerEntry
			date      string
			createdAt string
			key       sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.UserID, &date, &e.Description, &e.Delta, &e.CreatedBy, &createdAt, &key); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		if e.Date, err = generic.ParseDate(date); err != nil {
			return nil, err
		}
		e.CreatedAt = parseTime(createdAt)
		e.IdempotencyKey = key.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Balance(ctx context.Context, userID generic.UserID) (int64, error) {
	return balance(ctx, s.db, userID)
}

func openSession(ctx context.Context, q querier, userID generic.UserID) (*generic.TimeLog, error) {
	logs, err := queryTimeLogs(ctx, q, "WHERE user_id = ? AND end_at IS NULL LIMIT 1", userID)
	if err != nil || len(logs) == 0 {
		return nil, err
	}
	return &logs[0], nil
}

func getTimeLog(ctx context.Context, q querier, id generic.TimeLogID) (*generic.TimeLog, error) {
	logs, err := queryTimeLogs(ctx, q, "WHERE id = ?", id)
	if err != nil || len(logs) == 0 {
		return nil, err
	}
	return &logs[0], nil
}

func queryTimeLogs(ctx context.Context, q querier, tail string, args ...any) ([]generic.TimeLog, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+timeLogColumns+" FROM time_logs "+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query time logs: %w", err)
	}
	defer rows.Close()

	out := []generic.TimeLog{}
	for rows.Next() {
		var (
			l     generic.TimeLog
			start string
			end   sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.UserID, &start, &end, &l.ProjectID, &l.ActivityID); err != nil {
			return nil, fmt.Errorf("failed to scan time log: %w", err)
		}
		l.Start = parseTime(start)
		l.End = parseNullTime(end)
		out = append(out, l)
	}
	return out, rows.Err()
}

func balance(ctx context.Context, q querier, userID generic.UserID) (int64, error) {
	var sum int64
	err := q.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(delta), 0) FROM ledger_entries WHERE user_id = ?", userID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to compute balance: %w", err)
	}
	return sum, nil
}

func exists(ctx context.Context, q querier, query string, args ...any) (bool, error) {
	var count int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// =============================================================================
// WATCHES (generic.WatchStore)
// =============================================================================

func (s *Store) SaveWatch(ctx context.Context, w generic.Watch) error {
	return saveWatch(ctx, s.db, w)
}

func saveWatch(ctx context.Context, q querier, w generic.Watch) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO session_watches (time_log_id, duration_ns, created_at) VALUES (?, ?, ?)
		ON CONFLICT(time_log_id) DO UPDATE SET duration_ns = excluded.duration_ns`,
		w.TimeLogID, int64(w.Duration), formatTime(w.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save watch: %w", err)
	}
	return nil
}

func (s *Store) DeleteWatch(ctx context.Context, id generic.TimeLogID) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM session_watches WHERE time_log_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete watch: %w", err)
	}
	return nil
}

func (s *Store) ListWatches(ctx context.Context) ([]generic.Watch, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT time_log_id, duration_ns, created_at FROM session_watches ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list watches: %w", err)
	}
	defer rows.Close()

	out := []generic.Watch{}
	for rows.Next() {
		var (
			w         generic.Watch
			nanos     int64
			createdAt string
		)
		if err := rows.Scan(&w.TimeLogID, &nanos, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan watch: %w", err)
		}
		w.Duration = time.Duration(nanos)
		w.CreatedAt = parseTime(createdAt)
		out = append(out, w)
	}
	return out, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// pageArgs maps an unbounded page to LIMIT -1.
func pageArgs(p generic.Page) (int, int) {
	limit := p.Limit
	if limit <= 0 {
		limit = -1
	}
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

var _ generic.Store = (*Store)(nil)
var _ generic.WatchStore = (*Store)(nil)
