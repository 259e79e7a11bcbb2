package ratelimit

import "time"

// slidingWindow keeps the arrival instants of admitted requests and bounds
// how many fall inside the trailing window. Memory is bounded by
// MaxRequests once the first window has filled.
type slidingWindow struct {
	limit    int
	window   time.Duration
	arrivals []time.Time
}

func newSlidingWindow(cfg Config) *slidingWindow {
	return &slidingWindow{
		limit:  cfg.MaxRequests,
		window: cfg.TimeWindow,
	}
}

// prune drops arrivals that left the trailing window, preserving order and
// reusing the backing array.
func (w *slidingWindow) prune(now time.Time) {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(w.arrivals) && !w.arrivals[i].After(cutoff) {
		i++
	}
	if i > 0 {
		n := copy(w.arrivals, w.arrivals[i:])
		w.arrivals = w.arrivals[:n]
	}
}

func (w *slidingWindow) admit(now time.Time, n int) Decision {
	w.prune(now)

	if len(w.arrivals)+n <= w.limit {
		for range n {
			w.arrivals = append(w.arrivals, now)
		}
		return Decision{Allowed: true, Remaining: float64(w.limit - len(w.arrivals))}
	}

	// Denied: admission becomes possible when the oldest in-window arrival
	// expires. With no arrivals at all (n exceeds the limit outright) a full
	// window is as good an answer as any.
	retry := w.window
	if len(w.arrivals) > 0 {
		retry = w.window - now.Sub(w.arrivals[0])
	}
	return Decision{RetryAfter: retry, Remaining: float64(w.limit - len(w.arrivals))}
}

func (w *slidingWindow) observe(now time.Time, st *ResourceStatus) {
	// Count without pruning: the stored slice must stay untouched.
	cutoff := now.Add(-w.window)
	in := 0
	for _, a := range w.arrivals {
		if a.After(cutoff) {
			in++
		}
	}
	st.SlidingWindow = &SlidingWindowStatus{InWindow: in}
}
