/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the core types in generic/ from the wire contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Response wrappers

TYPES:
  Auth:       LoginRequest, LoginResponse, ChangePasswordRequest
  Users:      UserDTO, ExpectedHoursDTO, CreateUserRequest
  Reference:  ProjectDTO, ActivityDTO, HolidayDTO, CreateNameRequest, CreateHolidayRequest
  Time logs:  TimeLogDTO, StartTimeLogRequest, EndTimeLogResponse, UserSummaryDTO, DaySummaryDTO
  Absences:   LedgerEntryDTO, RemainingDTO, SubmitAbsenceRequest
  Admin:      AccrualResultDTO, SweepResultDTO

VALIDATION:
  Validation is done in handlers and services, not in DTOs.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/worklog/absence"
	"github.com/warp/worklog/generic"
	"github.com/warp/worklog/summary"
	"github.com/warp/worklog/timelog"
)

// =============================================================================
// AUTH
// =============================================================================

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserDTO   `json:"user"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// DetailResponse carries a plain confirmation message.
type DetailResponse struct {
	Detail string `json:"detail"`
}

// =============================================================================
// USERS
// =============================================================================

// ExpectedHoursDTO is the weekly schedule keyed by short weekday name.
type ExpectedHoursDTO struct {
	Mon decimal.Decimal `json:"mon"`
	Tue decimal.Decimal `json:"tue"`
	Wed decimal.Decimal `json:"wed"`
	Thu decimal.Decimal `json:"thu"`
	Fri decimal.Decimal `json:"fri"`
	Sat decimal.Decimal `json:"sat"`
	Sun decimal.Decimal `json:"sun"`
}

func (e ExpectedHoursDTO) toWeek() [7]decimal.Decimal {
	return [7]decimal.Decimal{e.Mon, e.Tue, e.Wed, e.Thu, e.Fri, e.Sat, e.Sun}
}

type UserDTO struct {
	ID                string           `json:"id"`
	Username          string           `json:"username"`
	IsAdmin           bool             `json:"is_admin"`
	ExpectedHours     ExpectedHoursDTO `json:"expected_hours"`
	MaxSessionSeconds int64            `json:"max_session_seconds"`
	CreatedAt         time.Time        `json:"created_at"`
}

type CreateUserRequest struct {
	Username          string           `json:"username"`
	Password          string           `json:"password"`
	IsAdmin           bool             `json:"is_admin"`
	ExpectedHours     ExpectedHoursDTO `json:"expected_hours"`
	MaxSessionSeconds int64            `json:"max_session_seconds"`
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

type ProjectDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type ActivityDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateNameRequest creates a project or an activity.
type CreateNameRequest struct {
	Name string `json:"name"`
}

type HolidayDTO struct {
	Date generic.Date `json:"date"`
	Name string       `json:"name"`
}

type CreateHolidayRequest struct {
	Date string `json:"date"` // YYYY-MM-DD
	Name string `json:"name"`
}

// =============================================================================
// TIME LOGS
// =============================================================================

type TimeLogDTO struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Start      time.Time  `json:"start"`
	End        *time.Time `json:"end"`
	ProjectID  string     `json:"project_id"`
	ActivityID string     `json:"activity_id"`
}

type StartTimeLogRequest struct {
	Project  string `json:"project"`
	Activity string `json:"activity"`

	// DurationSeconds, when positive, closes the session automatically
	// at start + duration.
	DurationSeconds int64 `json:"duration_seconds,omitempty"`
}

// EndTimeLogResponse reports the closed session, if there was one.
type EndTimeLogResponse struct {
	Detail  string      `json:"detail"`
	TimeLog *TimeLogDTO `json:"time_log"`
}

type DaySummaryDTO struct {
	Date          generic.Date    `json:"date"`
	Weekday       string          `json:"weekday"`
	HoursWorked   decimal.Decimal `json:"hours_worked"`
	ExpectedHours decimal.Decimal `json:"expected_hours"`
	Holiday       string          `json:"holiday"`
}

type UserSummaryDTO struct {
	User          string          `json:"user"`
	Summary       []DaySummaryDTO `json:"summary"`
	TotalWorked   decimal.Decimal `json:"total_worked"`
	TotalExpected decimal.Decimal `json:"total_expected"`
}

// =============================================================================
// ABSENCES
// =============================================================================

type LedgerEntryDTO struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id"`
	Date        generic.Date `json:"date"`
	Description string       `json:"description"`
	Delta       int64        `json:"delta"`
	CreatedBy   string       `json:"created_by"`
	CreatedAt   time.Time    `json:"created_at"`
}

type RemainingDTO struct {
	Value int64 `json:"value"`
}

type SubmitAbsenceRequest struct {
	Date        string `json:"date"` // YYYY-MM-DD, defaults to today
	Description string `json:"description"`
}

// =============================================================================
// ADMIN
// =============================================================================

type AccrualResultDTO struct {
	Period         string `json:"period"`
	Users          int    `json:"users"`
	Entries        int    `json:"entries"`
	AlreadyAccrued bool   `json:"already_accrued"`
}

type SweepResultDTO struct {
	At      time.Time `json:"at"`
	Checked int       `json:"checked"`
	Closed  []string  `json:"closed"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toUserDTO(u generic.User) UserDTO {
	h := u.ExpectedHours
	return UserDTO{
		ID:       string(u.ID),
		Username: u.Username,
		IsAdmin:  u.IsAdmin,
		ExpectedHours: ExpectedHoursDTO{
			Mon: h[0], Tue: h[1], Wed: h[2], Thu: h[3], Fri: h[4], Sat: h[5], Sun: h[6],
		},
		MaxSessionSeconds: int64(u.MaxSession / time.Second),
		CreatedAt:         u.CreatedAt,
	}
}

func toTimeLogDTO(t generic.TimeLog) TimeLogDTO {
	return TimeLogDTO{
		ID:         string(t.ID),
		UserID:     string(t.UserID),
		Start:      t.Start,
		End:        t.End,
		ProjectID:  string(t.ProjectID),
		ActivityID: string(t.ActivityID),
	}
}

func toLedgerEntryDTO(e generic.LedgerEntry) LedgerEntryDTO {
	return LedgerEntryDTO{
		ID:          string(e.ID),
		UserID:      string(e.UserID),
		Date:        e.Date,
		Description: e.Description,
		Delta:       e.Delta,
		CreatedBy:   string(e.CreatedBy),
		CreatedAt:   e.CreatedAt,
	}
}

func toUserSummaryDTO(us summary.UserSummary) UserSummaryDTO {
	days := make([]DaySummaryDTO, 0, len(us.Days))
	for _, d := range us.Days {
		days = append(days, DaySummaryDTO{
			Date:          d.Date,
			Weekday:       d.Weekday,
			HoursWorked:   d.HoursWorked,
			ExpectedHours: d.ExpectedHours,
			Holiday:       d.HolidayLabel,
		})
	}
	return UserSummaryDTO{
		User:          us.User.Username,
		Summary:       days,
		TotalWorked:   us.TotalWorked,
		TotalExpected: us.TotalExpected,
	}
}

func toAccrualResultDTO(r absence.AccrualResult) AccrualResultDTO {
	return AccrualResultDTO{
		Period:         r.Period,
		Users:          r.Users,
		Entries:        r.Entries,
		AlreadyAccrued: r.AlreadyAccrued,
	}
}

func toSweepResultDTO(r timelog.SweepResult) SweepResultDTO {
	closed := make([]string, 0, len(r.Closed))
	for _, id := range r.Closed {
		closed = append(closed, string(id))
	}
	return SweepResultDTO{At: r.At, Checked: r.Checked, Closed: closed}
}
