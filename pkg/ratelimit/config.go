package ratelimit

import (
	"fmt"
	"time"
)

// Algorithm selects the admission algorithm for a resource.
type Algorithm string

const (
	TokenBucket   Algorithm = "token_bucket"
	SlidingWindow Algorithm = "sliding_window"
	FixedWindow   Algorithm = "fixed_window"
)

// Config is the immutable per-resource rate limit configuration.
type Config struct {
	// Algorithm picks the admission strategy. Required.
	Algorithm Algorithm

	// MaxRequests is the number of requests allowed per TimeWindow.
	// Must be positive.
	MaxRequests int

	// TimeWindow is the interval MaxRequests applies to. Must be positive.
	TimeWindow time.Duration

	// BurstCapacity caps the instantaneous allowance for TokenBucket.
	// Zero means MaxRequests. BurstCapacity >= MaxRequests is the usual
	// shape but is not enforced. Ignored by the window algorithms.
	BurstCapacity int
}

func (c Config) validate() error {
	switch c.Algorithm {
	case TokenBucket, SlidingWindow, FixedWindow:
	default:
		return fmt.Errorf("%w: unknown algorithm %q", ErrInvalidConfig, c.Algorithm)
	}
	if c.MaxRequests <= 0 {
		return fmt.Errorf("%w: max requests must be positive, got %d", ErrInvalidConfig, c.MaxRequests)
	}
	if c.TimeWindow <= 0 {
		return fmt.Errorf("%w: time window must be positive, got %s", ErrInvalidConfig, c.TimeWindow)
	}
	if c.BurstCapacity < 0 {
		return fmt.Errorf("%w: burst capacity must not be negative, got %d", ErrInvalidConfig, c.BurstCapacity)
	}
	return nil
}

// capacity is the effective instantaneous allowance.
func (c Config) capacity() int {
	if c.BurstCapacity > 0 {
		return c.BurstCapacity
	}
	return c.MaxRequests
}

// newLimiter builds fresh state for a validated config.
func (c Config) newLimiter(now time.Time) limiter {
	switch c.Algorithm {
	case SlidingWindow:
		return newSlidingWindow(c)
	case FixedWindow:
		return newFixedWindow(c, now)
	default:
		return newTokenBucket(c, now)
	}
}
