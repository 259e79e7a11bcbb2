package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock drives the algorithms deterministically via WithClock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestNew(t *testing.T) {
	t.Parallel()

	r := New()
	assert.True(t, r.Enabled())
	assert.True(t, r.WaitMode())
	assert.Empty(t, r.Resources())

	r = New(WithEnabled(false), WithWaitMode(false))
	assert.False(t, r.Enabled())
	assert.False(t, r.WaitMode())
}

func TestRegistry_Configure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		resource    string
		cfg         Config
		expectError error
	}{
		{
			name:        "empty resource name",
			resource:    "",
			cfg:         Config{Algorithm: TokenBucket, MaxRequests: 1, TimeWindow: time.Second},
			expectError: ErrInvalidConfig,
		},
		{
			name:        "unknown algorithm",
			resource:    "svc",
			cfg:         Config{Algorithm: "leaky_bucket", MaxRequests: 1, TimeWindow: time.Second},
			expectError: ErrInvalidConfig,
		},
		{
			name:        "zero max requests",
			resource:    "svc",
			cfg:         Config{Algorithm: TokenBucket, TimeWindow: time.Second},
			expectError: ErrInvalidConfig,
		},
		{
			name:        "negative max requests",
			resource:    "svc",
			cfg:         Config{Algorithm: SlidingWindow, MaxRequests: -5, TimeWindow: time.Second},
			expectError: ErrInvalidConfig,
		},
		{
			name:        "zero time window",
			resource:    "svc",
			cfg:         Config{Algorithm: FixedWindow, MaxRequests: 10},
			expectError: ErrInvalidConfig,
		},
		{
			name:        "negative time window",
			resource:    "svc",
			cfg:         Config{Algorithm: TokenBucket, MaxRequests: 10, TimeWindow: -time.Second},
			expectError: ErrInvalidConfig,
		},
		{
			name:        "negative burst capacity",
			resource:    "svc",
			cfg:         Config{Algorithm: TokenBucket, MaxRequests: 10, TimeWindow: time.Second, BurstCapacity: -1},
			expectError: ErrInvalidConfig,
		},
		{
			name:     "valid token bucket",
			resource: "svc",
			cfg:      Config{Algorithm: TokenBucket, MaxRequests: 10, TimeWindow: time.Minute, BurstCapacity: 5},
		},
		{
			name:     "valid sliding window",
			resource: "svc",
			cfg:      Config{Algorithm: SlidingWindow, MaxRequests: 20, TimeWindow: time.Minute},
		},
		{
			name:     "valid fixed window",
			resource: "svc",
			cfg:      Config{Algorithm: FixedWindow, MaxRequests: 30, TimeWindow: time.Minute},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := New()
			err := r.Configure(tt.resource, tt.cfg)
			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				assert.NotContains(t, r.Resources(), tt.resource)
			} else {
				assert.NoError(t, err)
				assert.Contains(t, r.Resources(), tt.resource)
			}
		})
	}
}

func TestRegistry_ConfigureReplacesState(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	r := New(WithClock(clk.Now))
	cfg := Config{Algorithm: TokenBucket, MaxRequests: 2, TimeWindow: time.Minute}
	require.NoError(t, r.Configure("svc", cfg))

	for range 2 {
		d, err := r.TryAcquire("svc")
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}
	d, err := r.TryAcquire("svc")
	require.NoError(t, err)
	require.False(t, d.Allowed)

	// Reconfiguring discards consumed state; the bucket starts full again.
	require.NoError(t, r.Configure("svc", cfg))
	d, err = r.TryAcquire("svc")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	// Replacing with a different algorithm is visible through ConfigOf.
	require.NoError(t, r.Configure("svc", Config{Algorithm: SlidingWindow, MaxRequests: 7, TimeWindow: time.Second}))
	got, err := r.ConfigOf("svc")
	require.NoError(t, err)
	assert.Equal(t, SlidingWindow, got.Algorithm)
	assert.Equal(t, 7, got.MaxRequests)
}

func TestRegistry_ConfigOf(t *testing.T) {
	t.Parallel()

	r := New()
	cfg := Config{Algorithm: TokenBucket, MaxRequests: 10, TimeWindow: time.Minute, BurstCapacity: 5}
	require.NoError(t, r.Configure("svc", cfg))

	got, err := r.ConfigOf("svc")
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	_, err = r.ConfigOf("missing")
	assert.ErrorIs(t, err, ErrUnknownResource)
}

func TestRegistry_Resources(t *testing.T) {
	t.Parallel()

	r := New()
	assert.Empty(t, r.Resources())

	require.NoError(t, r.Configure("a", Config{Algorithm: SlidingWindow, MaxRequests: 1, TimeWindow: time.Second}))
	require.NoError(t, r.Configure("b", Config{Algorithm: FixedWindow, MaxRequests: 1, TimeWindow: time.Second}))
	assert.ElementsMatch(t, []string{"a", "b"}, r.Resources())
}

func TestRegistry_Concurrent(t *testing.T) {
	t.Parallel()

	// Frozen clock: no refill, so exactly the burst capacity is admitted.
	clk := newFakeClock()
	r := New(WithClock(clk.Now))
	require.NoError(t, r.Configure("svc", Config{Algorithm: TokenBucket, MaxRequests: 100, TimeWindow: time.Second}))

	const goroutines = 50
	const requestsPerGoroutine = 10

	var allowed, denied int
	var mu sync.Mutex
	var wg sync.WaitGroup

	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			for range requestsPerGoroutine {
				d, err := r.TryAcquire("svc")
				if err == nil {
					mu.Lock()
					if d.Allowed {
						allowed++
					} else {
						denied++
					}
					mu.Unlock()
				}
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 100, allowed, "should admit exactly the burst capacity")
	assert.Equal(t, 400, denied, "should deny the rest")
}
