package calendar_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/warp/worklog/calendar"
	"github.com/warp/worklog/generic"
)

func weekdayUser() generic.User {
	u := generic.User{ID: "u-1", Username: "alice"}
	for i := 0; i < 5; i++ {
		u.ExpectedHours[i] = decimal.NewFromInt(8)
	}
	u.ExpectedHours[5] = decimal.NewFromInt(4)
	return u
}

func TestResolver_Weekday(t *testing.T) {
	// GIVEN: 8h Mon-Fri, 4h Saturday, nothing on Sunday
	// WHEN: Resolving a Monday, a Saturday and a Sunday
	// THEN: Each day uses its own weekday slot

	r := calendar.NewResolver(nil)
	user := weekdayUser()

	monday := generic.NewDate(2024, time.January, 1)
	saturday := generic.NewDate(2024, time.January, 6)
	sunday := generic.NewDate(2024, time.January, 7)

	res := r.Resolve(user, monday)
	assert.True(t, res.ExpectedHours.Equal(decimal.NewFromInt(8)))
	assert.False(t, res.IsHoliday)
	assert.Empty(t, res.HolidayLabel)

	assert.True(t, r.Resolve(user, saturday).ExpectedHours.Equal(decimal.NewFromInt(4)))
	assert.True(t, r.Resolve(user, sunday).ExpectedHours.IsZero())
}

func TestResolver_HolidayOverridesSchedule(t *testing.T) {
	// GIVEN: New Year's Day (a Monday) is a holiday
	// WHEN: Resolving it for a user scheduled 8h on Mondays
	// THEN: Expected hours are zero and the label is returned

	newYear := generic.NewDate(2024, time.January, 1)
	r := calendar.NewResolver([]generic.Holiday{{Date: newYear, Name: "New Year"}})

	res := r.Resolve(weekdayUser(), newYear)

	assert.True(t, res.ExpectedHours.IsZero())
	assert.True(t, res.IsHoliday)
	assert.Equal(t, "New Year", res.HolidayLabel)
	assert.False(t, r.Resolve(weekdayUser(), newYear.AddDays(1)).IsHoliday)
}
