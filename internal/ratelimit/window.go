package ratelimit

import (
	"fmt"
	"time"
)

// Result is the outcome of a single admission decision
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is the wait in whole seconds (rounded up, minimum 1).
	// Meaningful only when Allowed is false.
	RetryAfter int
}

// decide runs the sliding-window admission algorithm over a window of
// request timestamps. It is a pure function: locking and persistence are
// the store's job. The returned slice is the updated window.
//
// Timestamps at or before now-window are purged; the remaining count is
// compared against the policy limit. On admission, now is appended.
func decide(timestamps []time.Time, policy Policy, now time.Time) (Result, []time.Time) {
	if policy.WindowMs <= 0 || policy.MaxRequests <= 0 {
		// Policies are validated at config load; reaching this point is a bug.
		panic(fmt.Sprintf("ratelimit: malformed policy windowMs=%d maxRequests=%d", policy.WindowMs, policy.MaxRequests))
	}

	window := policy.Window()
	cutoff := now.Add(-window)

	// Lazy purge: timestamps arrive in order, find the first one still inside
	// the window and drop everything before it.
	keep := 0
	for keep < len(timestamps) && !timestamps[keep].After(cutoff) {
		keep++
	}
	timestamps = timestamps[keep:]

	if len(timestamps) >= policy.MaxRequests {
		resetAt := timestamps[0].Add(window)
		return Result{
			Allowed:    false,
			Limit:      policy.MaxRequests,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retryAfterSeconds(resetAt, now),
		}, timestamps
	}

	timestamps = append(timestamps, now)
	remaining := policy.MaxRequests - len(timestamps)
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   true,
		Limit:     policy.MaxRequests,
		Remaining: remaining,
		ResetAt:   timestamps[0].Add(window),
	}, timestamps
}

// retryAfterSeconds converts the wait until resetAt into whole seconds,
// rounding up. A 45.123s wait reports 46, never 45; the floor is 1.
func retryAfterSeconds(resetAt, now time.Time) int {
	ms := resetAt.Sub(now).Milliseconds()
	secs := int((ms + 999) / 1000)
	if secs < 1 {
		secs = 1
	}
	return secs
}
