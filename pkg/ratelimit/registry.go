package ratelimit

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Registry maps resource names to independently configured limiters. It is
// an explicit object: construct one at process start and hand it to every
// consumer. All methods are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry

	enabled  bool
	wait     bool
	minSleep time.Duration
	now      func() time.Time
	log      *slog.Logger
}

// entry pairs a resource's configuration with its mutable limiter state.
// The entry mutex is per resource so unrelated resources never contend.
type entry struct {
	mu  sync.Mutex
	cfg Config
	lim limiter
}

// Option configures a Registry.
type Option func(*Registry)

// WithEnabled toggles rate limiting globally. When disabled, every gate
// call admits unconditionally, including unregistered resource names.
func WithEnabled(enabled bool) Option {
	return func(r *Registry) { r.enabled = enabled }
}

// WithWaitMode selects between waiting (true) and fail-fast (false)
// behavior for AcquireOrWait.
func WithWaitMode(wait bool) Option {
	return func(r *Registry) { r.wait = wait }
}

// WithMinSleep overrides the minimum sleep between wait polls. The default
// of 10ms keeps tiny RetryAfter values from busy-spinning.
func WithMinSleep(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.minSleep = d
		}
	}
}

// WithClock substitutes the time source. Tests use this to drive the
// algorithms deterministically.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the logger used for wait diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// New creates an empty registry. Limiting is enabled and wait mode is on
// unless options say otherwise; resources are added with Configure.
func New(opts ...Option) *Registry {
	r := &Registry{
		entries:  make(map[string]*entry),
		enabled:  true,
		wait:     true,
		minSleep: 10 * time.Millisecond,
		now:      time.Now,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Configure registers or replaces the limiter for a resource with fresh
// state. Replacing is safe at runtime: in-flight decisions finish against
// the old state under the resource lock before the swap becomes visible.
func (r *Registry) Configure(name string, cfg Config) error {
	if name == "" {
		return fmt.Errorf("%w: empty resource name", ErrInvalidConfig)
	}
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("resource %q: %w", name, err)
	}

	lim := cfg.newLimiter(r.now())

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[name]; ok {
		e.mu.Lock()
		e.cfg, e.lim = cfg, lim
		e.mu.Unlock()
		return nil
	}
	r.entries[name] = &entry{cfg: cfg, lim: lim}
	return nil
}

// ConfigOf returns the current configuration of a resource.
func (r *Registry) ConfigOf(name string) (Config, error) {
	e, err := r.lookup(name)
	if err != nil {
		return Config{}, err
	}
	e.mu.Lock()
	cfg := e.cfg
	e.mu.Unlock()
	return cfg, nil
}

// Resources returns the names of all configured resources.
func (r *Registry) Resources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}

// Enabled reports whether rate limiting is active.
func (r *Registry) Enabled() bool { return r.enabled }

// WaitMode reports whether AcquireOrWait blocks on denials.
func (r *Registry) WaitMode() bool { return r.wait }

func (r *Registry) lookup(name string) (*entry, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownResource, name)
	}
	return e, nil
}
