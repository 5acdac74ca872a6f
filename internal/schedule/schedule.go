// Package schedule evaluates campaign send-window predicates. Both predicates
// project the instant into the campaign's IANA zone before any comparison.
//
// Boundary conventions differ between the two modes and are preserved
// deliberately: the single window is inclusive at both ends, the per-day
// hour ranges are inclusive at start and exclusive at end.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
)

// WithinSendWindow reports whether the instant falls inside the campaign's
// single daily window in the given zone. The window is inclusive at both
// boundary times. An empty allowed-day list never matches.
func WithinSendWindow(now time.Time, zone string, allowedDays []domain.Weekday, windowStart, windowEnd string) bool {
	if len(allowedDays) == 0 {
		return false
	}

	local, ok := inZone(now, zone)
	if !ok {
		return false
	}

	if !weekdayAllowed(local.Weekday(), allowedDays) {
		return false
	}

	startMin, err := parseClock(windowStart)
	if err != nil {
		logger.Warn("invalid send window start", "value", windowStart, "error", err.Error())
		return false
	}
	endMin, err := parseClock(windowEnd)
	if err != nil {
		logger.Warn("invalid send window end", "value", windowEnd, "error", err.Error())
		return false
	}

	nowMin := local.Hour()*60 + local.Minute()
	return nowMin >= startMin && nowMin <= endMin
}

// WithinPerDaySchedule reports whether the instant's local hour falls inside
// any of the local weekday's hour ranges. Ranges are inclusive at start and
// exclusive at end. A missing weekday or empty range list never matches.
func WithinPerDaySchedule(now time.Time, zone string, perDay map[domain.Weekday][]domain.HourRange) bool {
	if len(perDay) == 0 {
		return false
	}

	local, ok := inZone(now, zone)
	if !ok {
		return false
	}

	ranges, exists := perDay[domain.Weekday(local.Weekday())]
	if !exists || len(ranges) == 0 {
		return false
	}

	hour := local.Hour()
	for _, r := range ranges {
		if hour >= r.Start && hour < r.End {
			return true
		}
	}
	return false
}

func inZone(now time.Time, zone string) (time.Time, bool) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		logger.Warn("invalid campaign timezone", "zone", zone, "error", err.Error())
		return time.Time{}, false
	}
	return now.In(loc), true
}

func weekdayAllowed(day time.Weekday, allowed []domain.Weekday) bool {
	for _, d := range allowed {
		if time.Weekday(d) == day {
			return true
		}
	}
	return false
}

// parseClock parses "HH:MM" into minutes since midnight.
func parseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}
