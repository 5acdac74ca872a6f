// Package capacity models the sending capacity of an inbox: its composite
// health score, warm-up quota, and throttled effective daily limit. All
// functions are pure; scores and limits are recomputed every scheduler tick
// and never cached across ticks.
package capacity

import (
	"math"

	"github.com/ignite/outreach-engine/internal/domain"
)

const (
	// DefaultDailyLimit applies when an inbox has no configured base limit.
	DefaultDailyLimit = 50

	// DefaultThrottlePercentage applies when an inbox has no throttle set.
	DefaultThrottlePercentage = 100

	// MinHealthScore is the eligibility floor for sending.
	MinHealthScore = 50

	// WarmupRampDays is the day the warm-up ramp tops out. From then on
	// the configured daily limit governs alone.
	WarmupRampDays = 31
)

// HealthScore computes the 0-100 composite reputation score for an inbox.
// Warm-up disabled or day zero forces a score of 0.
func HealthScore(inbox *domain.Inbox) int {
	if !inbox.WarmupEnabled || inbox.WarmupDay == 0 {
		return 0
	}

	warmupTerm := math.Min(float64(inbox.WarmupDay)/30.0, 1.0) * 40.0

	var replyRate, bounceRate, spamRate float64
	if inbox.TotalSent > 0 {
		replyRate = float64(inbox.TotalReplied) / float64(inbox.TotalSent)
		bounceRate = float64(inbox.TotalBounced) / float64(inbox.TotalSent)
		spamRate = float64(inbox.TotalSpam) / float64(inbox.TotalSent)
	}
	replyTerm := math.Min(replyRate/0.3, 1.0) * 30.0
	volumeTerm := math.Min(float64(inbox.TotalSent)/500.0, 1.0) * 20.0

	var engagementBonus float64
	switch {
	case inbox.WarmupDay >= 8:
		engagementBonus = 10
	case inbox.WarmupDay >= 5:
		engagementBonus = 5
	}

	bouncePenalty := bounceRate * 10.0
	spamPenalty := spamRate * 20.0

	score := warmupTerm + replyTerm + volumeTerm + engagementBonus - bouncePenalty - spamPenalty
	score = math.Max(0, math.Min(100, score))
	return int(math.Round(score))
}

// warmupTiers maps the minimum warm-up day to the base daily quota.
// Scanned highest-first.
var warmupTiers = []struct {
	day  int
	base int
}{
	{31, 40},
	{22, 35},
	{15, 25},
	{11, 18},
	{8, 12},
	{5, 8},
	{3, 4},
	{1, 2},
}

// WarmupQuota returns the warm-up send quota for the given day and ramp
// speed. The base tier is multiplied by the speed factor and floored.
func WarmupQuota(day int, speed domain.RampSpeed) int {
	if day < 1 {
		return 0
	}

	base := 0
	for _, tier := range warmupTiers {
		if day >= tier.day {
			base = tier.base
			break
		}
	}

	factor := 1.0
	switch speed {
	case domain.RampSlow:
		factor = 0.7
	case domain.RampFast:
		factor = 1.5
	}

	return int(math.Floor(float64(base) * factor))
}

// EffectiveDailyLimit computes floor(limit × throttle/100). A zero base
// limit falls back to the default; a zero throttle is an explicit "no sends"
// and yields 0; the 100% default is applied when the inbox row is created,
// not here. Out-of-range throttles are clamped to [0, 100].
func EffectiveDailyLimit(dailyLimit, throttlePct int) int {
	if dailyLimit <= 0 {
		dailyLimit = DefaultDailyLimit
	}
	if throttlePct < 0 {
		throttlePct = 0
	}
	if throttlePct > 100 {
		throttlePct = DefaultThrottlePercentage
	}
	return dailyLimit * throttlePct / 100
}

// DailySendBudget is the number of sends the inbox may make today: the
// throttled effective limit, further capped by the warm-up quota while the
// ramp is still in progress.
func DailySendBudget(inbox *domain.Inbox) int {
	limit := EffectiveDailyLimit(inbox.DailySendLimit, inbox.ThrottlePercentage)
	if inbox.WarmupEnabled && inbox.WarmupDay < WarmupRampDays {
		if q := WarmupQuota(inbox.WarmupDay, inbox.RampSpeed); q < limit {
			limit = q
		}
	}
	return limit
}

// Eligible reports whether the inbox may send right now: active, healthy
// enough, and under its daily send budget.
func Eligible(inbox *domain.Inbox) bool {
	return EligibleWithFloor(inbox, MinHealthScore)
}

// EligibleWithFloor is Eligible with a campaign-specific health floor. The
// global minimum still applies when the campaign floor is lower.
func EligibleWithFloor(inbox *domain.Inbox, healthFloor int) bool {
	if healthFloor < MinHealthScore {
		healthFloor = MinHealthScore
	}
	if inbox.Status != domain.InboxActive {
		return false
	}
	if HealthScore(inbox) < healthFloor {
		return false
	}
	return inbox.SentToday < DailySendBudget(inbox)
}
