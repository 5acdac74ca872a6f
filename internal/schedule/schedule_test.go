package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/outreach-engine/internal/domain"
)

// newYorkTime builds an instant corresponding to the given local wall clock
// in America/New_York.
func newYorkTime(t *testing.T, year int, month time.Month, day, hour, min int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return time.Date(year, month, day, hour, min, 0, 0, loc)
}

var weekdays = []domain.Weekday{1, 2, 3, 4, 5} // Mon-Fri

func TestWithinSendWindowInclusiveBoundaries(t *testing.T) {
	// 2026-09-02 is a Wednesday.
	atStart := newYorkTime(t, 2026, time.September, 2, 9, 0)
	atEnd := newYorkTime(t, 2026, time.September, 2, 17, 0)
	beforeStart := newYorkTime(t, 2026, time.September, 2, 8, 59)
	afterEnd := newYorkTime(t, 2026, time.September, 2, 17, 1)

	zone := "America/New_York"
	assert.True(t, WithinSendWindow(atStart, zone, weekdays, "09:00", "17:00"))
	assert.True(t, WithinSendWindow(atEnd, zone, weekdays, "09:00", "17:00"))
	assert.False(t, WithinSendWindow(beforeStart, zone, weekdays, "09:00", "17:00"))
	assert.False(t, WithinSendWindow(afterEnd, zone, weekdays, "09:00", "17:00"))
}

func TestWithinSendWindowDayFiltering(t *testing.T) {
	// 2026-09-05 is a Saturday.
	saturday := newYorkTime(t, 2026, time.September, 5, 12, 0)
	assert.False(t, WithinSendWindow(saturday, "America/New_York", weekdays, "09:00", "17:00"))
	assert.True(t, WithinSendWindow(saturday, "America/New_York", []domain.Weekday{6}, "09:00", "17:00"))
}

func TestWithinSendWindowEmptyDaysAlwaysFalse(t *testing.T) {
	noon := newYorkTime(t, 2026, time.September, 2, 12, 0)
	assert.False(t, WithinSendWindow(noon, "America/New_York", nil, "00:00", "23:59"))
}

func TestWithinSendWindowProjectsIntoZone(t *testing.T) {
	// 14:00 UTC on a Wednesday is 10:00 in New York but 23:00 in Tokyo.
	instant := time.Date(2026, time.September, 2, 14, 0, 0, 0, time.UTC)
	assert.True(t, WithinSendWindow(instant, "America/New_York", weekdays, "09:00", "17:00"))
	assert.False(t, WithinSendWindow(instant, "Asia/Tokyo", weekdays, "09:00", "17:00"))
}

func TestWithinSendWindowInvalidInput(t *testing.T) {
	noon := newYorkTime(t, 2026, time.September, 2, 12, 0)
	assert.False(t, WithinSendWindow(noon, "Not/AZone", weekdays, "09:00", "17:00"))
	assert.False(t, WithinSendWindow(noon, "America/New_York", weekdays, "nonsense", "17:00"))
	assert.False(t, WithinSendWindow(noon, "America/New_York", weekdays, "09:00", "25:00"))
}

func TestWithinPerDayScheduleExclusiveEnd(t *testing.T) {
	perDay := map[domain.Weekday][]domain.HourRange{
		3: {{Start: 9, End: 12}}, // Wednesday
	}
	zone := "America/New_York"

	assert.True(t, WithinPerDaySchedule(newYorkTime(t, 2026, time.September, 2, 9, 0), zone, perDay))
	assert.True(t, WithinPerDaySchedule(newYorkTime(t, 2026, time.September, 2, 11, 59), zone, perDay))
	// End hour is exclusive, unlike the single-window predicate.
	assert.False(t, WithinPerDaySchedule(newYorkTime(t, 2026, time.September, 2, 12, 0), zone, perDay))
	assert.False(t, WithinPerDaySchedule(newYorkTime(t, 2026, time.September, 2, 8, 59), zone, perDay))
}

func TestWithinPerDayScheduleMultipleRanges(t *testing.T) {
	perDay := map[domain.Weekday][]domain.HourRange{
		3: {{Start: 9, End: 12}, {Start: 14, End: 17}},
	}
	zone := "America/New_York"

	assert.True(t, WithinPerDaySchedule(newYorkTime(t, 2026, time.September, 2, 15, 0), zone, perDay))
	assert.False(t, WithinPerDaySchedule(newYorkTime(t, 2026, time.September, 2, 13, 0), zone, perDay))
}

func TestWithinPerDayScheduleMissingDay(t *testing.T) {
	perDay := map[domain.Weekday][]domain.HourRange{
		1: {{Start: 9, End: 17}}, // Monday only
	}
	wednesday := newYorkTime(t, 2026, time.September, 2, 10, 0)
	assert.False(t, WithinPerDaySchedule(wednesday, "America/New_York", perDay))

	// Present but empty list is also false.
	perDay[3] = nil
	assert.False(t, WithinPerDaySchedule(wednesday, "America/New_York", perDay))

	assert.False(t, WithinPerDaySchedule(wednesday, "America/New_York", nil))
}
