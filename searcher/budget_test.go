package searcher

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestBudget(t *testing.T) {
	t.Run("simulation limit", func(t *testing.T) {
		var stop atomic.Bool
		b := newBudget(context.Background(), 3, &stop)

		for want := 1; want <= 3; want++ {
			i, ok := b.claim()
			require.True(t, ok)
			require.Equal(t, want, i)
		}
		_, ok := b.claim()
		require.False(t, ok)
		require.Equal(t, 3, b.used())
		require.Zero(t, b.remaining())
	})

	t.Run("concurrent claims never exceed the limit", func(t *testing.T) {
		var stop atomic.Bool
		b := newBudget(context.Background(), 1000, &stop)
		var claimed atomic.Int64

		var g errgroup.Group
		for i := 0; i < 8; i++ {
			g.Go(func() error {
				for {
					if _, ok := b.claim(); !ok {
						return nil
					}
					claimed.Add(1)
				}
			})
		}
		require.NoError(t, g.Wait())
		require.EqualValues(t, 1000, claimed.Load())
	})

	t.Run("halt, stop and cancellation end the budget", func(t *testing.T) {
		var stop atomic.Bool
		b := newBudget(context.Background(), 10, &stop)
		b.halt()
		_, ok := b.claim()
		require.False(t, ok)

		b = newBudget(context.Background(), 10, &stop)
		stop.Store(true)
		_, ok = b.claim()
		require.False(t, ok)

		stop.Store(false)
		ctx, cancel := context.WithCancel(context.Background())
		b = newBudget(ctx, 10, &stop)
		cancel()
		_, ok = b.claim()
		require.False(t, ok)
	})

	t.Run("remaining share", func(t *testing.T) {
		var stop atomic.Bool
		b := newBudget(context.Background(), 4, &stop)
		require.Equal(t, 1.0, b.remaining())
		b.claim()
		require.InDelta(t, 0.75, b.remaining(), 1e-9)

		ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
		defer cancel()
		b = newBudget(ctx, 0, &stop)
		require.Greater(t, b.remaining(), 0.99)
		_, ok := b.claim()
		require.True(t, ok, "Time budget has no simulation limit")
	})
}
