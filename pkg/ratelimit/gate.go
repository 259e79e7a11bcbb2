package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// TryAcquire runs a non-blocking admission check for one unit of work.
// It returns ErrUnknownResource for names that were never configured,
// unless the registry is disabled, in which case everything admits.
func (r *Registry) TryAcquire(name string) (Decision, error) {
	return r.TryAcquireN(name, 1)
}

// TryAcquireN is TryAcquire for n units. n below one is treated as one.
// An n that exceeds the resource's capacity can never be admitted.
func (r *Registry) TryAcquireN(name string, n int) (Decision, error) {
	if !r.enabled {
		return Decision{Allowed: true}, nil
	}
	if n <= 0 {
		n = 1
	}

	e, err := r.lookup(name)
	if err != nil {
		return Decision{}, err
	}

	now := r.now()
	e.mu.Lock()
	d := e.lim.admit(now, n)
	e.mu.Unlock()
	return d, nil
}

// AcquireOrWait blocks until the resource admits one unit of work or ctx
// ends, polling with sleeps derived from each denial's RetryAfter. When the
// registry's wait mode is off, a single denial fails immediately. Failures
// return a *LimitError carrying the last Decision; no sleep ever happens
// while a lock is held.
func (r *Registry) AcquireOrWait(ctx context.Context, name string) (Decision, error) {
	return r.AcquireOrWaitN(ctx, name, 1)
}

// AcquireOrWaitN is AcquireOrWait for n units.
func (r *Registry) AcquireOrWaitN(ctx context.Context, name string, n int) (Decision, error) {
	for {
		d, err := r.TryAcquireN(name, n)
		if err != nil {
			return Decision{}, err
		}
		if d.Allowed {
			return d, nil
		}
		if !r.wait {
			return d, &LimitError{Resource: name, Last: d}
		}

		sleep := d.RetryAfter
		if sleep < r.minSleep {
			sleep = r.minSleep
		}
		r.log.DebugContext(ctx, "rate limit reached, waiting",
			slog.String("resource", name),
			slog.Duration("retry_after", sleep))

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return d, &LimitError{Resource: name, Last: d}
		case <-timer.C:
		}
	}
}

// acquire applies the wrapping contract: wait through AcquireOrWait, or a
// single TryAcquire whose denial becomes a *LimitError.
func (r *Registry) acquire(ctx context.Context, name string, wait bool) error {
	if wait {
		_, err := r.AcquireOrWait(ctx, name)
		return err
	}
	d, err := r.TryAcquire(name)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return &LimitError{Resource: name, Last: d}
	}
	return nil
}

// Guard wraps fn so every invocation first passes the gate for the named
// resource. The wrapped operation's own logic is untouched and gate errors
// propagate unchanged.
func (r *Registry) Guard(name string, wait bool, fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := r.acquire(ctx, name, wait); err != nil {
			return err
		}
		return fn(ctx)
	}
}

// Wrap is the generic form of Guard for operations that return a value.
func Wrap[T any](r *Registry, name string, wait bool, fn func(context.Context) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		if err := r.acquire(ctx, name, wait); err != nil {
			var zero T
			return zero, err
		}
		return fn(ctx)
	}
}
