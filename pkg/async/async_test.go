package async_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creativepipe/cap/pkg/async"
)

func TestGo(t *testing.T) {
	t.Parallel()

	t.Run("resolves with result", func(t *testing.T) {
		t.Parallel()
		future := async.Go(context.Background(), func(ctx context.Context) (string, error) {
			return "rendition-1.png", nil
		})

		result, err := future.Await()
		require.NoError(t, err)
		assert.Equal(t, "rendition-1.png", result)
	})

	t.Run("resolves with error", func(t *testing.T) {
		t.Parallel()
		wantErr := errors.New("upload failed")
		future := async.Go(context.Background(), func(ctx context.Context) (string, error) {
			return "", wantErr
		})

		_, err := future.Await()
		require.ErrorIs(t, err, wantErr)
	})

	t.Run("canceled context skips the function", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var called atomic.Bool
		future := async.Go(ctx, func(ctx context.Context) (int, error) {
			called.Store(true)
			return 1, nil
		})

		_, err := future.Await()
		require.ErrorIs(t, err, context.Canceled)
		assert.False(t, called.Load())
	})

	t.Run("await is repeatable", func(t *testing.T) {
		t.Parallel()
		future := async.Go(context.Background(), func(ctx context.Context) (int, error) {
			return 7, nil
		})

		for range 3 {
			result, err := future.Await()
			require.NoError(t, err)
			assert.Equal(t, 7, result)
		}
	})
}

func TestAwaitAll(t *testing.T) {
	t.Parallel()

	t.Run("preserves submission order", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()

		futures := make([]*async.Future[string], 4)
		for i := range futures {
			futures[i] = async.Go(ctx, func(ctx context.Context) (string, error) {
				// Later variants finish first to prove ordering is by
				// submission, not completion.
				time.Sleep(time.Duration(4-i) * 10 * time.Millisecond)
				return fmt.Sprintf("variant-%d", i+1), nil
			})
		}

		results, err := async.AwaitAll(futures...)
		require.NoError(t, err)
		assert.Equal(t, []string{"variant-1", "variant-2", "variant-3", "variant-4"}, results)
	})

	t.Run("returns first error but awaits everything", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		firstErr := errors.New("variant 2 failed")

		var finished atomic.Int32
		mk := func(i int, err error) *async.Future[int] {
			return async.Go(ctx, func(ctx context.Context) (int, error) {
				defer finished.Add(1)
				time.Sleep(time.Duration(i) * 5 * time.Millisecond)
				return i, err
			})
		}

		futures := []*async.Future[int]{
			mk(1, nil),
			mk(2, firstErr),
			mk(3, errors.New("variant 3 failed")),
			mk(4, nil),
		}

		results, err := async.AwaitAll(futures...)
		require.ErrorIs(t, err, firstErr)
		assert.Equal(t, int32(4), finished.Load())
		assert.Equal(t, []int{1, 2, 3, 4}, results)
	})

	t.Run("no futures", func(t *testing.T) {
		t.Parallel()
		results, err := async.AwaitAll[string]()
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}
