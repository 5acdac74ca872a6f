// Package sendtime computes the best next send time for a lead: a target
// timezone inferred from whatever the lead record offers, a target hour from
// historical opens, and the nearest allowed day. Everything here is pure
// given a clock and a random source, so the scheduler can recompute freely.
package sendtime

import (
	"math/rand"
	"strings"
	"time"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
)

// Confidence grades how much signal backed an inference.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

const (
	// MinOpensForOptimalHour is how many historical opens are needed before
	// the mode hour is trusted over a randomized default.
	MinOpensForOptimalHour = 3

	// Default window used when no open history exists. Randomizing within
	// it avoids batching every cold lead onto the same clock tick.
	defaultWindowStart = 9
	defaultWindowEnd   = 17
)

// ResolveZone picks the lead's target IANA zone by descending priority:
// explicit lead zone, US state, country, email-domain suffix, and finally
// the sender's configured zone.
func ResolveZone(lead *domain.Lead, senderZone string) (string, Confidence) {
	if lead.Timezone != "" {
		if _, err := time.LoadLocation(lead.Timezone); err == nil {
			return lead.Timezone, ConfidenceHigh
		}
		logger.Warn("lead has unparseable timezone, falling back to inference",
			"lead_id", lead.ID, "zone", lead.Timezone)
	}

	// The US-state table takes precedence over the generic country table.
	if isUS(lead.Country) {
		if zone, ok := usStateZones[strings.ToUpper(strings.TrimSpace(lead.State))]; ok {
			return zone, ConfidenceMedium
		}
	}
	if zone, ok := countryZones[strings.ToUpper(strings.TrimSpace(lead.Country))]; ok {
		return zone, ConfidenceMedium
	}

	if zone, ok := zoneFromEmailDomain(lead.Email); ok {
		return zone, ConfidenceMedium
	}

	return senderZone, ConfidenceLow
}

func isUS(country string) bool {
	switch strings.ToUpper(strings.TrimSpace(country)) {
	case "US", "USA", "UNITED STATES", "":
		// Empty country still consults the state table: a bare "TX" is a
		// much stronger signal than nothing.
		return true
	}
	return false
}

// zoneFromEmailDomain infers a zone from the address's domain suffix,
// checking known second-level domains (co.uk, com.au) before the bare TLD.
func zoneFromEmailDomain(email string) (string, bool) {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return "", false
	}
	domainPart := strings.ToLower(email[at+1:])

	labels := strings.Split(domainPart, ".")
	if len(labels) >= 2 {
		sld := labels[len(labels)-2] + "." + labels[len(labels)-1]
		if zone, ok := secondLevelZones[sld]; ok {
			return zone, true
		}
	}
	if zone, ok := tldZones[labels[len(labels)-1]]; ok {
		return zone, true
	}
	return "", false
}

// OptimalHour returns the lead's best local send hour. With at least
// MinOpensForOptimalHour historical opens it returns the mode of their local
// hours (first hour seen wins ties) at high confidence; otherwise a
// uniformly random hour inside the default window at low confidence.
func OptimalHour(opens []time.Time, zone string, rng *rand.Rand) (int, Confidence) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		loc = time.UTC
	}

	if len(opens) >= MinOpensForOptimalHour {
		counts := make(map[int]int)
		order := make([]int, 0, 24)
		for _, open := range opens {
			h := open.In(loc).Hour()
			if counts[h] == 0 {
				order = append(order, h)
			}
			counts[h]++
		}
		best, bestCount := order[0], counts[order[0]]
		for _, h := range order[1:] {
			if counts[h] > bestCount {
				best, bestCount = h, counts[h]
			}
		}
		return best, ConfidenceHigh
	}

	span := defaultWindowEnd - defaultWindowStart
	return defaultWindowStart + rng.Intn(span), ConfidenceLow
}

// NextSendTime returns the nearest future instant, in the target zone, that
// lands on a preferred weekday at the target hour. With no preferred-day
// match within a week it falls back to the nearest Monday-Friday slot, and
// finally to tomorrow at the target hour.
func NextSendTime(now time.Time, zone string, preferredDays []time.Weekday, hour int) time.Time {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		loc = time.UTC
	}
	local := now.In(loc)

	if t, ok := nearestDay(local, preferredDays, hour); ok {
		return t
	}

	businessDays := []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
	}
	if t, ok := nearestDay(local, businessDays, hour); ok {
		return t
	}

	tomorrow := local.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), hour, 0, 0, 0, loc)
}

// nearestDay scans forward up to a week for the earliest future slot on one
// of the given weekdays.
func nearestDay(local time.Time, days []time.Weekday, hour int) (time.Time, bool) {
	if len(days) == 0 {
		return time.Time{}, false
	}
	allowed := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		allowed[d] = true
	}

	for offset := 0; offset <= 7; offset++ {
		day := local.AddDate(0, 0, offset)
		if !allowed[day.Weekday()] {
			continue
		}
		candidate := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, local.Location())
		if candidate.After(local) {
			return candidate, true
		}
	}
	return time.Time{}, false
}
