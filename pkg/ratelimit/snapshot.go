package ratelimit

// Snapshot is a point-in-time, read-only view of every configured limiter.
// Taking one never changes subsequent admission outcomes.
type Snapshot struct {
	Enabled   bool                      `json:"enabled"`
	WaitMode  bool                      `json:"wait_mode"`
	Resources map[string]ResourceStatus `json:"resources"`
}

// ResourceStatus combines a resource's configuration with its live state.
// Exactly one of the algorithm sections is set.
type ResourceStatus struct {
	Algorithm         Algorithm `json:"algorithm"`
	MaxRequests       int       `json:"max_requests"`
	TimeWindowSeconds float64   `json:"time_window_seconds"`
	BurstCapacity     int       `json:"burst_capacity,omitempty"`

	TokenBucket   *TokenBucketStatus   `json:"token_bucket,omitempty"`
	SlidingWindow *SlidingWindowStatus `json:"sliding_window,omitempty"`
	FixedWindow   *FixedWindowStatus   `json:"fixed_window,omitempty"`
}

// TokenBucketStatus reports the bucket fill level as of the snapshot,
// recomputed with the refill formula without consuming anything.
type TokenBucketStatus struct {
	Tokens     float64 `json:"tokens_available"`
	Capacity   int     `json:"capacity"`
	RefillRate float64 `json:"refill_rate_per_second"`
}

// SlidingWindowStatus counts the non-expired arrivals in the trailing
// window.
type SlidingWindowStatus struct {
	InWindow int `json:"requests_in_window"`
}

// FixedWindowStatus reports current window occupancy and the seconds left
// until the window resets.
type FixedWindowStatus struct {
	Count   int     `json:"request_count"`
	ResetIn float64 `json:"window_reset_seconds"`
}

// Snapshot captures every configured resource without mutating limiter
// state: token buckets project their refill, sliding windows count without
// pruning, fixed windows report occupancy and time to reset.
func (r *Registry) Snapshot() Snapshot {
	now := r.now()

	r.mu.RLock()
	entries := make(map[string]*entry, len(r.entries))
	for name, e := range r.entries {
		entries[name] = e
	}
	r.mu.RUnlock()

	s := Snapshot{
		Enabled:   r.enabled,
		WaitMode:  r.wait,
		Resources: make(map[string]ResourceStatus, len(entries)),
	}
	for name, e := range entries {
		e.mu.Lock()
		st := ResourceStatus{
			Algorithm:         e.cfg.Algorithm,
			MaxRequests:       e.cfg.MaxRequests,
			TimeWindowSeconds: e.cfg.TimeWindow.Seconds(),
			BurstCapacity:     e.cfg.BurstCapacity,
		}
		e.lim.observe(now, &st)
		e.mu.Unlock()
		s.Resources[name] = st
	}
	return s
}
