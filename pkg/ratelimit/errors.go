package ratelimit

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownResource is returned by gate calls for a resource name that
	// was never configured while rate limiting is enabled.
	ErrUnknownResource = errors.New("unknown rate limit resource")

	// ErrRateLimitExceeded signals a denied acquisition: either fail-fast
	// mode rejected a single deny, or the context ended while waiting.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInvalidConfig is returned when a resource configuration fails
	// validation. It affects only that resource's registration.
	ErrInvalidConfig = errors.New("invalid rate limit config")
)

// LimitError is the carrier form of ErrRateLimitExceeded. It keeps the
// resource name and the last Decision so callers can apply their own
// backoff policy.
type LimitError struct {
	Resource string
	Last     Decision
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %q: retry after %s", e.Resource, e.Last.RetryAfter)
}

// Unwrap makes errors.Is(err, ErrRateLimitExceeded) hold for every LimitError.
func (e *LimitError) Unwrap() error { return ErrRateLimitExceeded }
