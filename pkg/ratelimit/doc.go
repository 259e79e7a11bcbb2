// Package ratelimit provides process-wide admission control for named
// external resources, with pluggable algorithms, per-resource configuration,
// and a read-only status snapshot for monitoring.
//
// A Registry maps resource names (for example "adobe_firefly") to an
// algorithm instance plus its configuration. Every caller that talks to the
// same resource shares that resource's quota, regardless of which part of
// the process it runs in. State is held in memory and resets on restart.
//
// # Algorithms
//
// Three admission algorithms are available:
//
//   - TokenBucket: a bucket holding up to BurstCapacity tokens (MaxRequests
//     when unset), refilled continuously at MaxRequests/TimeWindow tokens
//     per second. Each admission consumes one token. Permits short bursts
//     while enforcing a steady long-run rate.
//   - SlidingWindow: keeps the arrival times of admitted requests and allows
//     a new one only while fewer than MaxRequests arrivals fall inside the
//     trailing TimeWindow. Exact, at the cost of O(MaxRequests) memory.
//   - FixedWindow: a simple counter reset at window boundaries. Cheapest,
//     but admits up to 2*MaxRequests across a boundary straddle.
//
// # Basic Usage
//
// Build a registry from the built-in resource table and environment
// overrides, then gate calls by resource name:
//
//	var cfg ratelimit.EnvConfig
//	if err := config.Load(&cfg); err != nil {
//		log.Fatal(err)
//	}
//	limits, err := ratelimit.NewFromEnv(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Non-blocking check.
//	d, err := limits.TryAcquire(ratelimit.ResourceAdobeFirefly)
//	if err != nil {
//		return err // unknown resource
//	}
//	if !d.Allowed {
//		// denied; d.RetryAfter says how long until it could flip
//	}
//
//	// Blocking check, bounded by the context deadline.
//	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
//	defer cancel()
//	if _, err := limits.AcquireOrWait(ctx, ratelimit.ResourceS3Operations); err != nil {
//		var le *ratelimit.LimitError
//		if errors.As(err, &le) {
//			// deadline elapsed while waiting; le.Last carries the final decision
//		}
//	}
//
// # Wrapping Operations
//
// Guard and Wrap turn any operation into a rate-limited one without touching
// its body:
//
//	upload := limits.Guard(ratelimit.ResourceS3Operations, true, func(ctx context.Context) error {
//		return client.Upload(ctx, key, body)
//	})
//	err := upload(ctx)
//
// Middleware applies the same contract to HTTP handlers, answering 429 with
// a Retry-After header on deny.
//
// # Waiting and Fairness
//
// AcquireOrWait polls: it sleeps for the algorithm's suggested RetryAfter
// (floored at 10ms) between attempts and never sleeps while holding a lock.
// There is no fairness ordering across waiters; admission depends only on
// limiter state at check time, so under contention a late arrival can be
// admitted before an earlier waiter. That is an accepted tradeoff, not a
// defect to fix with a queue.
//
// # Disabled Mode
//
// With ENABLE_RATE_LIMITING=false the registry admits everything, including
// names that were never configured. RATE_LIMIT_WAIT=false switches
// AcquireOrWait to fail-fast: a single deny returns *LimitError immediately.
package ratelimit
