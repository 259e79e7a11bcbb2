package ratelimit

import "time"

// Decision is the outcome of a single admission check.
type Decision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool

	// RetryAfter is the minimum wait before the decision could flip to
	// allowed. Zero when Allowed.
	RetryAfter time.Duration

	// Remaining is the allowance left after the check: tokens for
	// TokenBucket, free request slots for the window algorithms. Not
	// meaningful when the registry is disabled.
	Remaining float64
}

// limiter is the per-resource admission state machine. Implementations are
// not safe for concurrent use; the registry serializes calls through the
// resource's lock.
type limiter interface {
	// admit decides n units of work at the given instant, mutating state.
	admit(now time.Time, n int) Decision

	// observe fills the algorithm's live section of a ResourceStatus
	// without mutating state.
	observe(now time.Time, st *ResourceStatus)
}
