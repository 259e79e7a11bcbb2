package ratelimit

import "time"

// fixedWindow counts admissions inside fixed-size windows anchored at the
// first request after a boundary. Cheapest algorithm; the accepted tradeoff
// is that up to 2*MaxRequests can pass through an interval straddling a
// boundary.
type fixedWindow struct {
	limit       int
	window      time.Duration
	windowStart time.Time
	count       int
}

func newFixedWindow(cfg Config, now time.Time) *fixedWindow {
	return &fixedWindow{
		limit:       cfg.MaxRequests,
		window:      cfg.TimeWindow,
		windowStart: now,
	}
}

func (w *fixedWindow) admit(now time.Time, n int) Decision {
	if now.Sub(w.windowStart) >= w.window {
		w.windowStart = now
		w.count = 0
	}

	if w.count+n <= w.limit {
		w.count += n
		return Decision{Allowed: true, Remaining: float64(w.limit - w.count)}
	}

	retry := w.window - now.Sub(w.windowStart)
	return Decision{RetryAfter: retry, Remaining: float64(w.limit - w.count)}
}

func (w *fixedWindow) observe(now time.Time, st *ResourceStatus) {
	count := w.count
	resetIn := w.window - now.Sub(w.windowStart)
	if resetIn <= 0 {
		// The stored window already lapsed; the next admit starts fresh.
		count = 0
		resetIn = 0
	}
	st.FixedWindow = &FixedWindowStatus{
		Count:   count,
		ResetIn: resetIn.Seconds(),
	}
}
