/*
handlers.go - HTTP API handlers for the worklog service

PURPOSE:
  Exposes time tracking, summaries and the absence ledger via REST. Handles
  HTTP request/response and JSON serialization, and delegates to the
  timelog, summary, absence and auth packages.

ENDPOINTS:
  Auth:
    POST   /api/auth/login                Issue a bearer token
    POST   /api/auth/logout               Revoke the presented token

  Users:
    GET    /api/users                     Everyone (admin) or yourself
    POST   /api/users                     Create user (admin)
    GET    /api/users/current             Current user
    POST   /api/users/change-password     Change own password

  Reference data:
    GET    /api/projects                  List projects, newest first
    POST   /api/projects                  Create project
    GET    /api/activities                List activities, newest first
    POST   /api/activities                Create activity
    GET    /api/holidays?from=&to=        Holidays in range (default: this year)
    POST   /api/holidays                  Add holiday (admin)

  Time logs:
    GET    /api/time-logs                 Own logs (admin: all), newest first
    GET    /api/time-logs/current         Open session or 404
    POST   /api/time-logs/start           Start session, optional auto-close
    POST   /api/time-logs/end             Close open session (no-op if none)
    GET    /api/time-logs/summary?start=&end=      Daily worked vs expected
    GET    /api/time-logs/summary.pdf?start=&end=  Same, as a PDF timesheet

  Absences:
    GET    /api/absence-balances          Ledger rows (admin: all)
    GET    /api/absence-balances/remaining Current balance
    POST   /api/absence-balances/submit   Take one day off

  Admin:
    POST   /api/admin/accrual/run         Run monthly accrual now
    POST   /api/admin/sweep/run           Run session sweep now

PAGINATION:
  List endpoints accept limit (default 100, max 500) and offset.

ERROR HANDLING:
  Errors are returned as ErrorResponse with a status from writeDomainError:
  - 400: Invalid reference, insufficient balance, bad period
  - 401: Missing/invalid token, bad credentials
  - 403: Acting on someone else's data
  - 404: Resource not found
  - 409: Active session exists, duplicate name
  - 422: Malformed input
  - 503: Accrual configuration missing
  - 500: Store failures

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/warp/worklog/absence"
	"github.com/warp/worklog/auth"
	"github.com/warp/worklog/generic"
	"github.com/warp/worklog/jobs"
	"github.com/warp/worklog/report"
	"github.com/warp/worklog/summary"
	"github.com/warp/worklog/timelog"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 500

	// maxDurationSeconds bounds duration_seconds and max_session_seconds
	// (one leap year) well below the time.Duration overflow.
	maxDurationSeconds = int64(366 * 24 * time.Hour / time.Second)

	// maxSummaryDays bounds a summary range, inclusive of both ends.
	maxSummaryDays = 366
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     generic.Store
	Accounts  *auth.Accounts
	Tokens    *auth.Tokens
	TimeLogs  *timelog.Service
	Ledger    *absence.Ledger
	Summaries *summary.Aggregator
	Scheduler *jobs.Scheduler

	Clock    generic.Clock
	Location *time.Location
	Log      logrus.FieldLogger
}

// NewHandler fills in defaults for the optional fields.
func NewHandler(h Handler) *Handler {
	if h.Clock == nil {
		h.Clock = generic.SystemClock{}
	}
	if h.Location == nil {
		h.Location = time.UTC
	}
	if h.Log == nil {
		h.Log = logrus.StandardLogger()
	}
	return &h
}

// =============================================================================
// AUTH HANDLERS
// =============================================================================

// Login issues a bearer token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	token, expires, user, err := h.Accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{Token: token, ExpiresAt: expires, User: toUserDTO(*user)})
}

// Logout revokes the presented token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if claims := claimsFrom(r.Context()); claims != nil {
		h.Accounts.Logout(claims)
	}
	writeJSON(w, http.StatusOK, DetailResponse{Detail: "Success."})
}

// =============================================================================
// USER HANDLERS
// =============================================================================

func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.Accounts.Me(r.Context(), actorFrom(r.Context()))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(*user))
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	users, err := h.Accounts.ListUsers(r.Context(), actorFrom(r.Context()), page)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	dtos := make([]UserDTO, 0, len(users))
	for _, u := range users {
		dtos = append(dtos, toUserDTO(u))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validateSeconds("max_session_seconds", req.MaxSessionSeconds); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	user, err := h.Accounts.CreateUser(r.Context(), actorFrom(r.Context()), auth.NewUser{
		Username:      req.Username,
		Password:      req.Password,
		IsAdmin:       req.IsAdmin,
		ExpectedHours: req.ExpectedHours.toWeek(),
		MaxSession:    time.Duration(req.MaxSessionSeconds) * time.Second,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(*user))
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	err := h.Accounts.ChangePassword(r.Context(), actorFrom(r.Context()), req.CurrentPassword, req.NewPassword)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, http.StatusBadRequest, "Current password is incorrect", nil)
		return
	}
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DetailResponse{Detail: "Password changed successfully."})
}

// =============================================================================
// REFERENCE DATA HANDLERS
// =============================================================================

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	projects, err := h.Store.ListProjects(r.Context(), page)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	dtos := make([]ProjectDTO, 0, len(projects))
	for _, p := range projects {
		dtos = append(dtos, ProjectDTO{ID: string(p.ID), Name: p.Name, CreatedAt: p.CreatedAt})
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	name, ok := h.decodeName(w, r)
	if !ok {
		return
	}
	project := generic.Project{
		ID:        generic.ProjectID(uuid.NewString()),
		Name:      name,
		CreatedAt: h.Clock.Now().UTC(),
	}
	if err := h.Store.CreateProject(r.Context(), project); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.Log.WithFields(logrus.Fields{"project_id": project.ID, "name": name}).Info("project created")
	writeJSON(w, http.StatusCreated, ProjectDTO{ID: string(project.ID), Name: project.Name, CreatedAt: project.CreatedAt})
}

func (h *Handler) ListActivities(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	activities, err := h.Store.ListActivities(r.Context(), page)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	dtos := make([]ActivityDTO, 0, len(activities))
	for _, a := range activities {
		dtos = append(dtos, ActivityDTO{ID: string(a.ID), Name: a.Name, CreatedAt: a.CreatedAt})
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateActivity(w http.ResponseWriter, r *http.Request) {
	name, ok := h.decodeName(w, r)
	if !ok {
		return
	}
	activity := generic.Activity{
		ID:        generic.ActivityID(uuid.NewString()),
		Name:      name,
		CreatedAt: h.Clock.Now().UTC(),
	}
	if err := h.Store.CreateActivity(r.Context(), activity); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.Log.WithFields(logrus.Fields{"activity_id": activity.ID, "name": name}).Info("activity created")
	writeJSON(w, http.StatusCreated, ActivityDTO{ID: string(activity.ID), Name: activity.Name, CreatedAt: activity.CreatedAt})
}

// ListHolidays returns holidays in [from, to], defaulting to the current year.
// GET /api/holidays
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	today := generic.DateOf(h.Clock.Now(), h.Location)
	from, err := dateParam(r, "from", generic.NewDate(today.Year, time.January, 1))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	to, err := dateParam(r, "to", generic.NewDate(today.Year, time.December, 31))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	holidays, err := h.Store.ListHolidays(r.Context(), from, to)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	dtos := make([]HolidayDTO, 0, len(holidays))
	for _, hol := range holidays {
		dtos = append(dtos, HolidayDTO{Date: hol.Date, Name: hol.Name})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHoliday adds or renames a holiday.
// POST /api/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req CreateHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Date == "" || strings.TrimSpace(req.Name) == "" {
		h.writeDomainError(w, r, fmt.Errorf("date and name are required: %w", generic.ErrValidation))
		return
	}
	date, err := generic.ParseDate(req.Date)
	if err != nil {
		h.writeDomainError(w, r, fmt.Errorf("date: %v: %w", err, generic.ErrValidation))
		return
	}

	holiday := generic.Holiday{Date: date, Name: strings.TrimSpace(req.Name)}
	if err := h.Store.SaveHoliday(r.Context(), holiday); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.Log.WithFields(logrus.Fields{"date": date.String(), "name": holiday.Name}).Info("holiday saved")
	writeJSON(w, http.StatusCreated, HolidayDTO{Date: holiday.Date, Name: holiday.Name})
}

// =============================================================================
// TIME LOG HANDLERS
// =============================================================================

func (h *Handler) ListTimeLogs(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	logs, err := h.TimeLogs.List(r.Context(), actorFrom(r.Context()), page)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	dtos := make([]TimeLogDTO, 0, len(logs))
	for _, l := range logs {
		dtos = append(dtos, toTimeLogDTO(l))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CurrentTimeLog(w http.ResponseWriter, r *http.Request) {
	current, err := h.TimeLogs.Current(r.Context(), actorFrom(r.Context()))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTimeLogDTO(*current))
}

// StartTimeLog opens a session. A positive duration_seconds schedules an
// automatic close at start + duration.
// POST /api/time-logs/start
func (h *Handler) StartTimeLog(w http.ResponseWriter, r *http.Request) {
	var req StartTimeLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validateSeconds("duration_seconds", req.DurationSeconds); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	var autoClose time.Duration
	if h.Scheduler != nil {
		autoClose = time.Duration(req.DurationSeconds) * time.Second
	}

	ctx := r.Context()
	started, err := h.TimeLogs.StartWithAutoClose(ctx, actorFrom(ctx),
		generic.ProjectID(req.Project), generic.ActivityID(req.Activity), autoClose)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if autoClose > 0 {
		h.Scheduler.Arm(started.ID, autoClose)
	}

	writeJSON(w, http.StatusOK, toTimeLogDTO(*started))
}

func (h *Handler) EndTimeLog(w http.ResponseWriter, r *http.Request) {
	closed, err := h.TimeLogs.End(r.Context(), actorFrom(r.Context()))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if closed == nil {
		writeJSON(w, http.StatusOK, EndTimeLogResponse{Detail: "No active session."})
		return
	}
	dto := toTimeLogDTO(*closed)
	writeJSON(w, http.StatusOK, EndTimeLogResponse{Detail: "Success.", TimeLog: &dto})
}

// Summary returns per-day worked vs expected hours for the actor, or for
// every user when the actor is an admin.
// GET /api/time-logs/summary?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	summaries, _, _, ok := h.summarize(w, r)
	if !ok {
		return
	}
	dtos := make([]UserSummaryDTO, 0, len(summaries))
	for _, us := range summaries {
		dtos = append(dtos, toUserSummaryDTO(us))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SummaryPDF renders the same summary as a timesheet.
// GET /api/time-logs/summary.pdf?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *Handler) SummaryPDF(w http.ResponseWriter, r *http.Request) {
	summaries, start, end, ok := h.summarize(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.WriteTimesheet(&buf, summaries, start, end); err != nil {
		h.writeDomainError(w, r, fmt.Errorf("render timesheet: %w", err))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="timesheet-%s-%s.pdf"`, start, end))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *Handler) summarize(w http.ResponseWriter, r *http.Request) ([]summary.UserSummary, generic.Date, generic.Date, bool) {
	start, err := requiredDateParam(r, "start")
	if err != nil {
		h.writeDomainError(w, r, err)
		return nil, generic.Date{}, generic.Date{}, false
	}
	end, err := requiredDateParam(r, "end")
	if err != nil {
		h.writeDomainError(w, r, err)
		return nil, generic.Date{}, generic.Date{}, false
	}
	if end.After(start.AddDays(maxSummaryDays - 1)) {
		h.writeDomainError(w, r, fmt.Errorf("summary range must not exceed %d days: %w", maxSummaryDays, generic.ErrValidation))
		return nil, generic.Date{}, generic.Date{}, false
	}

	summaries, err := h.Summaries.SummarizeFor(r.Context(), actorFrom(r.Context()), start, end)
	if err != nil {
		h.writeDomainError(w, r, err)
		return nil, generic.Date{}, generic.Date{}, false
	}
	return summaries, start, end, true
}

// =============================================================================
// ABSENCE HANDLERS
// =============================================================================

func (h *Handler) ListAbsenceEntries(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	entries, err := h.Ledger.Entries(r.Context(), actorFrom(r.Context()), page)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	dtos := make([]LedgerEntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toLedgerEntryDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RemainingAbsences returns the actor's balance. Admins may pass user_id.
// GET /api/absence-balances/remaining
func (h *Handler) RemainingAbsences(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	target := actor.UserID
	if id := r.URL.Query().Get("user_id"); id != "" {
		target = generic.UserID(id)
	}

	balance, err := h.Ledger.Balance(r.Context(), actor, target)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RemainingDTO{Value: balance})
}

// SubmitAbsence debits one day from the actor's balance.
// POST /api/absence-balances/submit
func (h *Handler) SubmitAbsence(w http.ResponseWriter, r *http.Request) {
	var req SubmitAbsenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var date generic.Date
	if req.Date != "" {
		parsed, err := generic.ParseDate(req.Date)
		if err != nil {
			h.writeDomainError(w, r, fmt.Errorf("date: %v: %w", err, generic.ErrValidation))
			return
		}
		date = parsed
	}

	actor := actorFrom(r.Context())
	entry, err := h.Ledger.Debit(r.Context(), actor, actor.UserID, date, req.Description)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLedgerEntryDTO(*entry))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// RunAccrual runs the monthly accrual for the current period. A repeat run
// reports already_accrued instead of crediting twice.
func (h *Handler) RunAccrual(w http.ResponseWriter, r *http.Request) {
	result, err := h.Scheduler.RunAccrualNow(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccrualResultDTO(result))
}

func (h *Handler) RunSweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.Scheduler.RunSweepNow(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSweepResultDTO(result))
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

// writeDomainError maps core errors onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var insufficient *generic.InsufficientBalanceError

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "Invalid credentials", Code: "invalid_credentials"})
	case errors.Is(err, auth.ErrInvalidToken):
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "Invalid or expired token", Code: "invalid_token"})
	case errors.Is(err, generic.ErrForbidden):
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "Forbidden", Code: "forbidden"})
	case generic.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Not found", Code: "not_found"})
	case errors.Is(err, generic.ErrActiveSessionExists):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: "An active session already exists", Code: "active_session_exists"})
	case errors.Is(err, generic.ErrDuplicateName), errors.Is(err, generic.ErrDuplicateIdempotencyKey):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "duplicate"})
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "You have no absence balance",
			Code:    "insufficient_balance",
			Details: map[string]int64{"available": insufficient.Available},
		})
	case errors.Is(err, generic.ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Code: "validation"})
	case errors.Is(err, generic.ErrConfigurationMissing):
		h.Log.WithError(err).Error("configuration missing")
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), Code: "configuration_missing"})
	case generic.IsClientError(err):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "bad_request"})
	default:
		h.Log.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).WithError(err).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal error"})
	}
}

func (h *Handler) decodeName(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req CreateNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return "", false
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		h.writeDomainError(w, r, fmt.Errorf("name is required: %w", generic.ErrValidation))
		return "", false
	}
	return name, true
}

// pageFrom reads limit and offset. Limits above maxPageLimit are clamped.
func pageFrom(r *http.Request) (generic.Page, error) {
	page := generic.Page{Limit: defaultPageLimit}
	q := r.URL.Query()

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return page, fmt.Errorf("limit must be a positive integer: %w", generic.ErrValidation)
		}
		page.Limit = min(n, maxPageLimit)
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return page, fmt.Errorf("offset must be a non-negative integer: %w", generic.ErrValidation)
		}
		page.Offset = n
	}
	return page, nil
}

func dateParam(r *http.Request, name string, fallback generic.Date) (generic.Date, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	d, err := generic.ParseDate(raw)
	if err != nil {
		return generic.Date{}, fmt.Errorf("%s: %v: %w", name, err, generic.ErrValidation)
	}
	return d, nil
}

// validateSeconds accepts 0 to maxDurationSeconds.
func validateSeconds(field string, v int64) error {
	if v < 0 {
		return fmt.Errorf("%s must not be negative: %w", field, generic.ErrValidation)
	}
	if v > maxDurationSeconds {
		return fmt.Errorf("%s must not exceed %d: %w", field, maxDurationSeconds, generic.ErrValidation)
	}
	return nil
}

func requiredDateParam(r *http.Request, name string) (generic.Date, error) {
	if r.URL.Query().Get(name) == "" {
		return generic.Date{}, fmt.Errorf("%s is required: %w", name, generic.ErrValidation)
	}
	return dateParam(r, name, generic.Date{})
}
