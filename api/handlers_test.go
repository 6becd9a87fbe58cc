/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Authentication and admin-only routes
- Session start/end/current over HTTP, including auto-close scheduling
- Absence submission and manual accrual runs
- Summary JSON and PDF rendering
- Error status mapping and pagination validation
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/worklog/absence"
	"github.com/warp/worklog/auth"
	"github.com/warp/worklog/generic"
	"github.com/warp/worklog/jobs"
	"github.com/warp/worklog/store/memory"
	"github.com/warp/worklog/summary"
	"github.com/warp/worklog/timelog"
)

const adminPassword = "admin-password"

type testAPI struct {
	router     *chi.Mux
	store      *memory.Memory
	clock      *generic.ManualClock
	projectID  string
	activityID string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	return newTestAPIWithSessions(t, nil)
}

// newTestAPIWithSessions lets a test put a wrapper around the store seen by
// the time log service.
func newTestAPIWithSessions(t *testing.T, wrap func(*memory.Memory) generic.Store) *testAPI {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	clock := generic.NewManualClock(time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC))
	logger, _ := logtest.NewNullLogger()

	tokens := auth.NewTokens("test-secret", 24*time.Hour, clock)
	accounts := auth.NewAccounts(store, tokens, clock, logger)
	_, _, err := accounts.EnsureAdmin(ctx, "admin", adminPassword)
	require.NoError(t, err)
	require.NoError(t, store.SaveSettings(ctx, generic.Settings{SickLeavePerMonth: 1, CasualLeavePerMonth: 1}))

	project := generic.Project{ID: "p-1", Name: "Internal", CreatedAt: clock.Now()}
	activity := generic.Activity{ID: "a-1", Name: "Development", CreatedAt: clock.Now()}
	require.NoError(t, store.CreateProject(ctx, project))
	require.NoError(t, store.CreateActivity(ctx, activity))

	var sessionStore generic.Store = store
	if wrap != nil {
		sessionStore = wrap(store)
	}
	sessions := timelog.NewService(sessionStore, clock, logger)
	scheduler := jobs.NewScheduler(
		jobs.Config{},
		absence.NewAccrualJob(store, clock, time.UTC, logger),
		timelog.NewSweeper(store, clock, logger),
		timelog.NewWatcher(sessions, store, clock, timelog.DefaultWatchLead, logger),
		store, clock, logger,
	)

	h := NewHandler(Handler{
		Store:     store,
		Accounts:  accounts,
		Tokens:    tokens,
		TimeLogs:  sessions,
		Ledger:    absence.NewLedger(store, clock, time.UTC, logger),
		Summaries: summary.NewAggregator(store, time.UTC, logger),
		Scheduler: scheduler,
		Clock:     clock,
		Location:  time.UTC,
		Log:       logger,
	})

	return &testAPI{
		router:     NewRouter(h, []string{"*"}),
		store:      store,
		clock:      clock,
		projectID:  string(project.ID),
		activityID: string(activity.ID),
	}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) login(t *testing.T, username, password string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[LoginResponse](t, rec).Token
}

func (a *testAPI) createUser(t *testing.T, adminToken, username, password string) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/users", adminToken, CreateUserRequest{Username: username, Password: password})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

// failingWatchStore rejects every watch written inside a user lock.
type failingWatchStore struct {
	*memory.Memory
}

func (s failingWatchStore) WithUserLock(ctx context.Context, userID generic.UserID, fn func(generic.Tx) error) error {
	return s.Memory.WithUserLock(ctx, userID, func(tx generic.Tx) error {
		return fn(failingWatchTx{Tx: tx})
	})
}

type failingWatchTx struct {
	generic.Tx
}

func (failingWatchTx) SaveWatch(context.Context, generic.Watch) error {
	return errors.New("session_watches: disk I/O error")
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestAPI_RequiresBearerToken(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/time-logs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/time-logs", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "admin", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", decode[ErrorResponse](t, rec).Code)
}

func TestAPI_LogoutRevokesToken(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t, "admin", adminPassword)

	rec := api.do(t, http.MethodGet, "/api/users/current", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[UserDTO](t, rec)
	assert.Equal(t, "admin", me.Username)
	assert.True(t, me.IsAdmin)

	rec = api.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/users/current", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_SessionLifecycle(t *testing.T) {
	// GIVEN: A logged-in user with no open session
	// WHEN: Starting, starting again, then ending twice
	// THEN: The second start conflicts and the second end is a no-op

	api := newTestAPI(t)
	token := api.login(t, "admin", adminPassword)

	rec := api.do(t, http.MethodGet, "/api/time-logs/current", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	start := StartTimeLogRequest{Project: api.projectID, Activity: api.activityID}
	rec = api.do(t, http.MethodPost, "/api/time-logs/start", token, start)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	started := decode[TimeLogDTO](t, rec)
	assert.Nil(t, started.End)

	rec = api.do(t, http.MethodPost, "/api/time-logs/start", token, start)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "active_session_exists", decode[ErrorResponse](t, rec).Code)

	rec = api.do(t, http.MethodGet, "/api/time-logs/current", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, started.ID, decode[TimeLogDTO](t, rec).ID)

	api.clock.Advance(30 * time.Minute)
	rec = api.do(t, http.MethodPost, "/api/time-logs/end", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ended := decode[EndTimeLogResponse](t, rec)
	require.NotNil(t, ended.TimeLog)
	require.NotNil(t, ended.TimeLog.End)
	assert.Equal(t, 30*time.Minute, ended.TimeLog.End.Sub(ended.TimeLog.Start))

	rec = api.do(t, http.MethodPost, "/api/time-logs/end", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[EndTimeLogResponse](t, rec).TimeLog)

	rec = api.do(t, http.MethodGet, "/api/time-logs", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]TimeLogDTO](t, rec), 1)
}

func TestAPI_StartWithUnknownProject(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t, "admin", adminPassword)

	rec := api.do(t, http.MethodPost, "/api/time-logs/start", token,
		StartTimeLogRequest{Project: "missing", Activity: api.activityID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/time-logs/current", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "nothing was opened")
}

func TestAPI_StartWithDurationPersistsWatch(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t, "admin", adminPassword)

	rec := api.do(t, http.MethodPost, "/api/time-logs/start", token, StartTimeLogRequest{
		Project: api.projectID, Activity: api.activityID, DurationSeconds: 3600,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	started := decode[TimeLogDTO](t, rec)

	watches, err := api.store.ListWatches(context.Background())
	require.NoError(t, err)
	require.Len(t, watches, 1)
	assert.Equal(t, generic.TimeLogID(started.ID), watches[0].TimeLogID)
	assert.Equal(t, time.Hour, watches[0].Duration)

	rec = api.do(t, http.MethodPost, "/api/time-logs/start", token, StartTimeLogRequest{
		Project: api.projectID, Activity: api.activityID, DurationSeconds: -1,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAPI_RejectsDurationsBeyondOneYear(t *testing.T) {
	// GIVEN: Second counts that overflow time.Duration once scaled
	// WHEN: Used as duration_seconds or max_session_seconds
	// THEN: Both are refused with 422 and nothing is written

	api := newTestAPI(t)
	token := api.login(t, "admin", adminPassword)

	rec := api.do(t, http.MethodPost, "/api/time-logs/start", token, StartTimeLogRequest{
		Project: api.projectID, Activity: api.activityID, DurationSeconds: 18446744074,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	rec = api.do(t, http.MethodGet, "/api/time-logs/current", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/users", token, CreateUserRequest{
		Username: "overtime", Password: "overtime-password", MaxSessionSeconds: 9223372037,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	rec = api.do(t, http.MethodGet, "/api/users", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]UserDTO](t, rec), 1)

	rec = api.do(t, http.MethodPost, "/api/users", token, CreateUserRequest{
		Username: "marathon", Password: "marathon-password", MaxSessionSeconds: maxDurationSeconds,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, maxDurationSeconds, decode[UserDTO](t, rec).MaxSessionSeconds)

	rec = api.do(t, http.MethodPost, "/api/time-logs/start", token, StartTimeLogRequest{
		Project: api.projectID, Activity: api.activityID, DurationSeconds: maxDurationSeconds,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	watches, err := api.store.ListWatches(context.Background())
	require.NoError(t, err)
	require.Len(t, watches, 1)
	assert.Equal(t, 366*24*time.Hour, watches[0].Duration)
}

func TestAPI_StartIsUndoneWhenWatchCannotBeSaved(t *testing.T) {
	// GIVEN: A store that fails to persist auto-close watches
	// WHEN: Starting a session with duration_seconds
	// THEN: 500, no open session, and a retry is not blocked by a 409

	api := newTestAPIWithSessions(t, func(m *memory.Memory) generic.Store {
		return failingWatchStore{Memory: m}
	})
	token := api.login(t, "admin", adminPassword)

	rec := api.do(t, http.MethodPost, "/api/time-logs/start", token, StartTimeLogRequest{
		Project: api.projectID, Activity: api.activityID, DurationSeconds: 3600,
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/api/time-logs/current", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/time-logs/start", token, StartTimeLogRequest{
		Project: api.projectID, Activity: api.activityID,
	})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestAPI_AbsenceSubmitAndAccrual(t *testing.T) {
	// GIVEN: An admin with an empty balance
	// WHEN: Submitting before and after the monthly accrual
	// THEN: The first submission is refused, the second succeeds with 200

	api := newTestAPI(t)
	token := api.login(t, "admin", adminPassword)

	rec := api.do(t, http.MethodPost, "/api/absence-balances/submit", token, SubmitAbsenceRequest{Description: "flu"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "insufficient_balance", decode[ErrorResponse](t, rec).Code)

	rec = api.do(t, http.MethodPost, "/api/admin/accrual/run", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[AccrualResultDTO](t, rec)
	assert.Equal(t, "2024-01", result.Period)
	assert.Equal(t, 2, result.Entries)
	assert.False(t, result.AlreadyAccrued)

	rec = api.do(t, http.MethodPost, "/api/admin/accrual/run", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[AccrualResultDTO](t, rec).AlreadyAccrued)

	rec = api.do(t, http.MethodPost, "/api/absence-balances/submit", token,
		SubmitAbsenceRequest{Date: "2024-01-16", Description: "flu"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	entry := decode[LedgerEntryDTO](t, rec)
	assert.Equal(t, int64(-1), entry.Delta)
	assert.Equal(t, generic.NewDate(2024, time.January, 16), entry.Date)

	rec = api.do(t, http.MethodGet, "/api/absence-balances/remaining", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[RemainingDTO](t, rec).Value)

	rec = api.do(t, http.MethodGet, "/api/absence-balances", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]LedgerEntryDTO](t, rec), 3)
}

func TestAPI_StandardUserIsScoped(t *testing.T) {
	api := newTestAPI(t)
	adminToken := api.login(t, "admin", adminPassword)
	api.createUser(t, adminToken, "bob", "bob-password")
	bobToken := api.login(t, "bob", "bob-password")

	rec := api.do(t, http.MethodPost, "/api/admin/accrual/run", bobToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/users", bobToken, CreateUserRequest{Username: "eve", Password: "eve-password"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/holidays", bobToken, CreateHolidayRequest{Date: "2024-12-25", Name: "Christmas"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/users", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	users := decode[[]UserDTO](t, rec)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].Username)

	admin, err := api.store.GetUserByUsername(context.Background(), "admin")
	require.NoError(t, err)
	rec = api.do(t, http.MethodGet, "/api/absence-balances/remaining?user_id="+string(admin.ID), bobToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/users", adminToken, CreateUserRequest{Username: "BOB", Password: "other-password"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_Summary(t *testing.T) {
	// GIVEN: A two hour session on a holiday
	// WHEN: Requesting the summary for that day
	// THEN: Hours are reported with zero expected hours and the holiday label

	api := newTestAPI(t)
	token := api.login(t, "admin", adminPassword)

	rec := api.do(t, http.MethodPost, "/api/holidays", token, CreateHolidayRequest{Date: "2024-01-15", Name: "Founders Day"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodPost, "/api/time-logs/start", token,
		StartTimeLogRequest{Project: api.projectID, Activity: api.activityID})
	require.Equal(t, http.StatusOK, rec.Code)
	api.clock.Advance(2 * time.Hour)
	rec = api.do(t, http.MethodPost, "/api/time-logs/end", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/time-logs/summary?start=2024-01-15&end=2024-01-16", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summaries := decode[[]UserSummaryDTO](t, rec)
	require.Len(t, summaries, 1)
	require.Len(t, summaries[0].Summary, 2)

	day := summaries[0].Summary[0]
	assert.Equal(t, "mon", day.Weekday)
	assert.True(t, day.HoursWorked.Equal(decimal.NewFromInt(2)), day.HoursWorked.String())
	assert.True(t, day.ExpectedHours.IsZero())
	assert.Equal(t, "Founders Day", day.Holiday)
	assert.True(t, summaries[0].Summary[1].HoursWorked.IsZero())

	rec = api.do(t, http.MethodGet, "/api/time-logs/summary.pdf?start=2024-01-15&end=2024-01-16", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = api.do(t, http.MethodGet, "/api/time-logs/summary?start=2024-01-15", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAPI_SummaryRangeIsCapped(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t, "admin", adminPassword)

	rec := api.do(t, http.MethodGet, "/api/time-logs/summary?start=0001-01-01&end=9999-12-31", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	rec = api.do(t, http.MethodGet, "/api/time-logs/summary.pdf?start=2024-01-01&end=2025-01-01", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// 2024 is a leap year: 366 days is the widest accepted range
	rec = api.do(t, http.MethodGet, "/api/time-logs/summary?start=2024-01-01&end=2024-12-31", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summaries := decode[[]UserSummaryDTO](t, rec)
	require.Len(t, summaries, 1)
	assert.Len(t, summaries[0].Summary, 366)
}

func TestAPI_ReferenceDataAndPagination(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t, "admin", adminPassword)

	rec := api.do(t, http.MethodPost, "/api/projects", token, CreateNameRequest{Name: "Billing"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodPost, "/api/projects", token, CreateNameRequest{Name: "Billing"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/activities", token, CreateNameRequest{Name: " "})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/projects?limit=1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]ProjectDTO](t, rec), 1)

	rec = api.do(t, http.MethodGet, "/api/projects?limit=abc", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/holidays", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]HolidayDTO](t, rec))
}

func TestAPI_ChangePassword(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t, "admin", adminPassword)

	rec := api.do(t, http.MethodPost, "/api/users/change-password", token,
		ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "brand-new-password"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/users/change-password", token,
		ChangePasswordRequest{CurrentPassword: adminPassword, NewPassword: "brand-new-password"})
	require.Equal(t, http.StatusOK, rec.Code)

	api.login(t, "admin", "brand-new-password")
}

func TestPageFrom(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=9999&offset=5", nil)
	page, err := pageFrom(req)
	require.NoError(t, err)
	assert.Equal(t, generic.Page{Limit: maxPageLimit, Offset: 5}, page)

	page, err = pageFrom(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, defaultPageLimit, page.Limit)

	_, err = pageFrom(httptest.NewRequest(http.MethodGet, "/?offset=-1", nil))
	assert.ErrorIs(t, err, generic.ErrValidation)
}
