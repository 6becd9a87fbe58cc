/*
aggregator.go - Per-day worked vs expected hours

PURPOSE:
  Turns closed time logs into one row per (user, calendar day) in a range,
  next to what the schedule expected for that day.

BUCKETING POLICY:
  A log counts toward the calendar day of its Start, in the service
  location, for its whole duration. A session from 23:00 to 01:00 adds two
  hours to the first day and nothing to the second. Downstream reports rely
  on this, so sessions are not sliced at midnight.

  Open sessions (End == nil) contribute nothing until they are closed.

OUTPUT ORDER:
  Users in the order given, days ascending within each user. A range with
  start > end gives every user an empty (non-nil) day list.

SEE ALSO:
  - calendar/resolver.go: expected hours and holiday labels
*/
package summary

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/warp/worklog/calendar"
	"github.com/warp/worklog/generic"
)

var hour = decimal.NewFromInt(int64(time.Hour))

// DaySummary is one calendar day for one user.
type DaySummary struct {
	Date          generic.Date
	Weekday       string
	HoursWorked   decimal.Decimal
	ExpectedHours decimal.Decimal
	IsHoliday     bool
	HolidayLabel  string
}

// UserSummary is the day list of one user plus range totals.
type UserSummary struct {
	User          generic.User
	Days          []DaySummary
	TotalWorked   decimal.Decimal
	TotalExpected decimal.Decimal
}

// Aggregator builds summaries from a generic.Store.
type Aggregator struct {
	store generic.Store
	loc   *time.Location
	log   logrus.FieldLogger
}

func NewAggregator(store generic.Store, loc *time.Location, log logrus.FieldLogger) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{store: store, loc: loc, log: log}
}

// Summarize returns one UserSummary per user for every day in [start, end].
func (a *Aggregator) Summarize(ctx context.Context, users []generic.User, start, end generic.Date) ([]UserSummary, error) {
	days := generic.DaysInRange(start, end)
	out := make([]UserSummary, 0, len(users))

	if len(days) == 0 || len(users) == 0 {
		for _, u := range users {
			out = append(out, UserSummary{User: u, Days: []DaySummary{}, TotalWorked: decimal.Zero, TotalExpected: decimal.Zero})
		}
		return out, nil
	}

	ids := make([]generic.UserID, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}

	logs, err := a.store.ListClosedTimeLogs(ctx, ids, start.Start(a.loc), end.AddDays(1).Start(a.loc))
	if err != nil {
		return nil, fmt.Errorf("load time logs: %w", err)
	}
	holidays, err := a.store.ListHolidays(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("load holidays: %w", err)
	}
	resolver := calendar.NewResolver(holidays)

	worked := a.bucket(logs)

	for _, u := range users {
		us := UserSummary{
			User:          u,
			Days:          make([]DaySummary, 0, len(days)),
			TotalWorked:   decimal.Zero,
			TotalExpected: decimal.Zero,
		}
		for _, d := range days {
			res := resolver.Resolve(u, d)
			hours := decimal.Zero
			if nanos, ok := worked[dayKey{user: u.ID, date: d}]; ok {
				hours = decimal.NewFromInt(int64(nanos)).Div(hour)
			}
			us.Days = append(us.Days, DaySummary{
				Date:          d,
				Weekday:       d.WeekdayName(),
				HoursWorked:   hours,
				ExpectedHours: res.ExpectedHours,
				IsHoliday:     res.IsHoliday,
				HolidayLabel:  res.HolidayLabel,
			})
			us.TotalWorked = us.TotalWorked.Add(hours)
			us.TotalExpected = us.TotalExpected.Add(res.ExpectedHours)
		}
		out = append(out, us)
	}

	a.log.WithFields(logrus.Fields{
		"users": len(users),
		"days":  len(days),
		"logs":  len(logs),
	}).Debug("summary built")
	return out, nil
}

// SummarizeFor summarizes the actor alone, or every user for elevated actors.
func (a *Aggregator) SummarizeFor(ctx context.Context, actor generic.Actor, start, end generic.Date) ([]UserSummary, error) {
	var users []generic.User
	if actor.Elevated {
		all, err := a.store.ListUsers(ctx, generic.Page{})
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		users = all
	} else {
		u, err := a.store.GetUser(ctx, actor.UserID)
		if err != nil {
			return nil, fmt.Errorf("get user: %w", err)
		}
		if u == nil {
			return nil, generic.ErrNotFound
		}
		users = []generic.User{*u}
	}
	return a.Summarize(ctx, users, start, end)
}

type dayKey struct {
	user generic.UserID
	date generic.Date
}

func (a *Aggregator) bucket(logs []generic.TimeLog) map[dayKey]time.Duration {
	worked := make(map[dayKey]time.Duration)
	for _, l := range logs {
		if l.End == nil {
			continue
		}
		k := dayKey{user: l.UserID, date: generic.DateOf(l.Start, a.loc)}
		worked[k] += l.Duration()
	}
	return worked
}
