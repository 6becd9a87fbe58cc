/*
resolver.go - Expected hours and holiday status for a (user, date)

PURPOSE:
  Answers "how many hours was this person supposed to work on this day?".
  A holiday always wins over the weekly schedule.

ALGORITHM:
  1. date is in the holiday table -> ExpectedHours = 0, label = holiday name
  2. otherwise -> user's ExpectedHours for the weekday (Monday=0 .. Sunday=6)

The resolver is pure. Holidays are preloaded once per summary so resolving
a long range never goes back to the store.

SEE ALSO:
  - summary/aggregator.go: the only production caller
*/
package calendar

import (
	"github.com/shopspring/decimal"
	"github.com/warp/worklog/generic"
)

// Resolution is the schedule answer for one (user, date).
type Resolution struct {
	ExpectedHours decimal.Decimal
	IsHoliday     bool
	HolidayLabel  string
}

// Resolver looks up dates in a fixed holiday table.
type Resolver struct {
	holidays map[generic.Date]string
}

// NewResolver builds a resolver over the given holidays. Later entries for
// the same date overwrite earlier ones.
func NewResolver(holidays []generic.Holiday) *Resolver {
	m := make(map[generic.Date]string, len(holidays))
	for _, h := range holidays {
		m[h.Date] = h.Name
	}
	return &Resolver{holidays: m}
}

// Resolve returns the expected hours and holiday status of user on date.
func (r *Resolver) Resolve(user generic.User, date generic.Date) Resolution {
	if label, ok := r.holidays[date]; ok {
		return Resolution{
			ExpectedHours: decimal.Zero,
			IsHoliday:     true,
			HolidayLabel:  label,
		}
	}
	return Resolution{ExpectedHours: user.ExpectedOn(date.WeekdayIndex())}
}
