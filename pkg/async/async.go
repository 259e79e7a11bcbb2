// Package async runs independent pipeline steps concurrently and collects
// their results in submission order.
package async

import (
	"context"
)

// Future holds the eventual result of a function started with Go.
type Future[T any] struct {
	result T
	err    error
	done   chan struct{}
}

// Go runs fn in its own goroutine and returns a Future for its result.
// A context canceled before fn starts resolves the future with ctx.Err()
// without invoking fn.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}

	go func() {
		defer close(f.done)

		if err := ctx.Err(); err != nil {
			f.err = err
			return
		}
		f.result, f.err = fn(ctx)
	}()

	return f
}

// Await blocks until the function completes and returns its result.
func (f *Future[T]) Await() (T, error) {
	<-f.done
	return f.result, f.err
}

// AwaitAll waits for every future and returns their results in argument
// order. The returned error is the first failure encountered; later futures
// are still awaited so their goroutines finish before the caller moves on.
func AwaitAll[T any](futures ...*Future[T]) ([]T, error) {
	results := make([]T, len(futures))

	var firstErr error
	for i, f := range futures {
		result, err := f.Await()
		results[i] = result
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return results, firstErr
}
