package ratelimit

import (
	"math"
	"time"
)

// tokenBucket refills continuously at MaxRequests/TimeWindow tokens per
// second up to its capacity. A fresh bucket starts full.
type tokenBucket struct {
	capacity   float64
	refillRate float64 // tokens per second
	tokens     float64
	lastRefill time.Time
}

func newTokenBucket(cfg Config, now time.Time) *tokenBucket {
	capacity := float64(cfg.capacity())
	return &tokenBucket{
		capacity:   capacity,
		refillRate: float64(cfg.MaxRequests) / cfg.TimeWindow.Seconds(),
		tokens:     capacity,
		lastRefill: now,
	}
}

func (b *tokenBucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens = math.Min(b.capacity, b.tokens+elapsed*b.refillRate)
	}
	b.lastRefill = now
}

func (b *tokenBucket) admit(now time.Time, n int) Decision {
	b.refill(now)

	need := float64(n)
	if b.tokens >= need {
		b.tokens -= need
		return Decision{Allowed: true, Remaining: b.tokens}
	}

	// Time until the deficit refills. A deficit larger than capacity never
	// clears; AcquireOrWait then runs until its context expires.
	wait := time.Duration((need - b.tokens) / b.refillRate * float64(time.Second))
	return Decision{RetryAfter: wait, Remaining: b.tokens}
}

func (b *tokenBucket) observe(now time.Time, st *ResourceStatus) {
	tokens := b.tokens
	if elapsed := now.Sub(b.lastRefill).Seconds(); elapsed > 0 {
		tokens = math.Min(b.capacity, tokens+elapsed*b.refillRate)
	}
	st.TokenBucket = &TokenBucketStatus{
		Tokens:     tokens,
		Capacity:   int(b.capacity),
		RefillRate: b.refillRate,
	}
}
