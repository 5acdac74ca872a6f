// Package retry holds the deterministic backoff policies shared by webhook
// delivery and bounce handling. Policies are pure functions from attempt
// number to wait duration; the workers own the clocks and the caps.
package retry

import "time"

const (
	// WebhookMaxAttempts caps webhook delivery at 5 attempts total
	// (the initial call plus 4 retries, roughly 30s cumulative backoff).
	WebhookMaxAttempts = 5

	// BounceMaxRetries caps soft-bounce redelivery at 3 retries, after
	// which the bounce is treated as effectively permanent.
	BounceMaxRetries = 3
)

// Backoff returns the exponential wait before the next attempt:
// 2^attempt seconds. Attempt numbers below 1 are treated as 1.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(1<<uint(attempt)) * time.Second
}

// bounceSchedule is the fixed soft-bounce retry schedule.
var bounceSchedule = []time.Duration{
	1 * time.Hour,
	4 * time.Hour,
	24 * time.Hour,
}

// BounceBackoff returns the wait before soft-bounce retry n (1-indexed).
// The second return is false once the schedule is exhausted; the caller
// must then promote the bounce to permanent and suppress the lead.
func BounceBackoff(retry int) (time.Duration, bool) {
	if retry < 1 || retry > len(bounceSchedule) {
		return 0, false
	}
	return bounceSchedule[retry-1], true
}

// Retryable reports whether another webhook attempt is allowed after the
// given number of completed attempts.
func Retryable(attempts int) bool {
	return attempts < WebhookMaxAttempts
}
