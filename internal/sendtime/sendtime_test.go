package sendtime

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/outreach-engine/internal/domain"
)

func TestResolveZoneExplicitWins(t *testing.T) {
	lead := &domain.Lead{
		Timezone: "Europe/Berlin",
		State:    "CA",
		Country:  "US",
		Email:    "max@firma.de",
	}
	zone, conf := ResolveZone(lead, "America/Chicago")
	assert.Equal(t, "Europe/Berlin", zone)
	assert.Equal(t, ConfidenceHigh, conf)
}

func TestResolveZoneUSStateBeatsCountry(t *testing.T) {
	lead := &domain.Lead{State: "TX", Country: "US", Email: "jo@example.com"}
	zone, conf := ResolveZone(lead, "UTC")
	assert.Equal(t, "America/Chicago", zone)
	assert.Equal(t, ConfidenceMedium, conf)

	// A bare state with no country still hits the state table.
	lead = &domain.Lead{State: "WA", Email: "jo@example.com"}
	zone, _ = ResolveZone(lead, "UTC")
	assert.Equal(t, "America/Los_Angeles", zone)
}

func TestResolveZoneCountryTable(t *testing.T) {
	lead := &domain.Lead{Country: "JP", Email: "tanaka@example.com"}
	zone, conf := ResolveZone(lead, "UTC")
	assert.Equal(t, "Asia/Tokyo", zone)
	assert.Equal(t, ConfidenceMedium, conf)
}

func TestResolveZoneEmailDomain(t *testing.T) {
	cases := []struct {
		email string
		want  string
	}{
		{"nigel@widgets.co.uk", "Europe/London"},
		{"bruce@mining.com.au", "Australia/Sydney"},
		{"hans@autohaus.de", "Europe/Berlin"},
		{"sam@startup.io", "America/New_York"}, // business TLD defaults US-Eastern
		{"pat@bigcorp.com", "America/New_York"},
	}
	for _, tc := range cases {
		lead := &domain.Lead{Email: tc.email, Country: "XX"}
		zone, conf := ResolveZone(lead, "UTC")
		assert.Equal(t, tc.want, zone, tc.email)
		assert.Equal(t, ConfidenceMedium, conf, tc.email)
	}
}

func TestResolveZoneSenderFallback(t *testing.T) {
	lead := &domain.Lead{Email: "broken-address", Country: "XX", State: "??"}
	zone, conf := ResolveZone(lead, "America/Denver")
	assert.Equal(t, "America/Denver", zone)
	assert.Equal(t, ConfidenceLow, conf)
}

func TestResolveZoneInvalidExplicitFallsThrough(t *testing.T) {
	lead := &domain.Lead{Timezone: "Mars/Olympus", Country: "DE", Email: "x@example.org"}
	zone, conf := ResolveZone(lead, "UTC")
	assert.Equal(t, "Europe/Berlin", zone)
	assert.Equal(t, ConfidenceMedium, conf)
}

func TestOptimalHourModeWithTiebreak(t *testing.T) {
	// Opens at local hours 9, 14, 9, 14, 10 in UTC: mode is tied between
	// 9 and 14; the first hour seen wins.
	opens := []time.Time{
		time.Date(2026, 8, 3, 9, 15, 0, 0, time.UTC),
		time.Date(2026, 8, 4, 14, 5, 0, 0, time.UTC),
		time.Date(2026, 8, 5, 9, 45, 0, 0, time.UTC),
		time.Date(2026, 8, 6, 14, 30, 0, 0, time.UTC),
		time.Date(2026, 8, 7, 10, 0, 0, 0, time.UTC),
	}
	hour, conf := OptimalHour(opens, "UTC", rand.New(rand.NewSource(1)))
	assert.Equal(t, 9, hour)
	assert.Equal(t, ConfidenceHigh, conf)
}

func TestOptimalHourProjectsIntoZone(t *testing.T) {
	// 14:00 UTC is 10:00 in New York (EDT).
	opens := []time.Time{
		time.Date(2026, 8, 3, 14, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 4, 14, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 5, 14, 0, 0, 0, time.UTC),
	}
	hour, conf := OptimalHour(opens, "America/New_York", rand.New(rand.NewSource(1)))
	assert.Equal(t, 10, hour)
	assert.Equal(t, ConfidenceHigh, conf)
}

func TestOptimalHourFewOpensRandomInWindow(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	opens := []time.Time{time.Date(2026, 8, 3, 3, 0, 0, 0, time.UTC)}

	seen := make(map[int]bool)
	for i := 0; i < 200; i++ {
		hour, conf := OptimalHour(opens, "UTC", rng)
		assert.Equal(t, ConfidenceLow, conf)
		assert.GreaterOrEqual(t, hour, 9)
		assert.Less(t, hour, 17)
		seen[hour] = true
	}
	// Uniform draws over 200 iterations should cover more than one hour.
	assert.Greater(t, len(seen), 3, "hours should spread to avoid batching")
}

func TestNextSendTimePreferredDay(t *testing.T) {
	// Wednesday 2026-09-02 15:00 in New York; preferred Tuesday ⇒ next
	// Tuesday 2026-09-08 at 10:00 local.
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	now := time.Date(2026, 9, 2, 15, 0, 0, 0, loc)

	got := NextSendTime(now, "America/New_York", []time.Weekday{time.Tuesday}, 10)
	assert.Equal(t, time.Tuesday, got.Weekday())
	assert.Equal(t, 10, got.Hour())
	assert.Equal(t, 8, got.Day())
	assert.True(t, got.After(now))
}

func TestNextSendTimeSameDayIfHourAhead(t *testing.T) {
	loc, _ := time.LoadLocation("America/New_York")
	now := time.Date(2026, 9, 2, 8, 0, 0, 0, loc) // Wednesday 08:00

	got := NextSendTime(now, "America/New_York", []time.Weekday{time.Wednesday}, 10)
	assert.Equal(t, now.Day(), got.Day())
	assert.Equal(t, 10, got.Hour())
}

func TestNextSendTimeEarliestPreferredWins(t *testing.T) {
	loc, _ := time.LoadLocation("America/New_York")
	now := time.Date(2026, 9, 2, 15, 0, 0, 0, loc) // Wednesday

	got := NextSendTime(now, "America/New_York", []time.Weekday{time.Monday, time.Friday}, 9)
	// Friday (2 days out) beats Monday (5 days out).
	assert.Equal(t, time.Friday, got.Weekday())
	assert.Equal(t, 4, got.Day())
}

func TestNextSendTimeBusinessDayFallback(t *testing.T) {
	loc, _ := time.LoadLocation("America/New_York")
	// Friday 18:00 with no preferred days ⇒ nearest weekday slot: Monday.
	now := time.Date(2026, 9, 4, 18, 0, 0, 0, loc)

	got := NextSendTime(now, "America/New_York", nil, 9)
	assert.Equal(t, time.Monday, got.Weekday())
	assert.Equal(t, 9, got.Hour())
	assert.True(t, got.After(now))
}
