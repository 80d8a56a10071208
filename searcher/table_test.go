package searcher

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"mcts/game"
)

func TestTable(t *testing.T) {
	t.Run("size is rounded up to a power of two", func(t *testing.T) {
		require.Len(t, NewTable(5).entries, 8)
		require.Len(t, NewTable(1).entries, 1)
		require.Len(t, NewTable(0).entries, 1)
	})

	t.Run("lookup of an unknown hash", func(t *testing.T) {
		table := NewTable(16)
		_, ok := table.Lookup(3)
		require.False(t, ok)
	})

	t.Run("lookup or create claims the slot", func(t *testing.T) {
		table := NewTable(16)
		e := table.LookupOrCreate(3)

		require.Equal(t, game.StateHash(3), e.Hash)
		require.Zero(t, e.Visits)
		require.Equal(t, 1, table.Count())
		_, ok := table.Lookup(3)
		require.True(t, ok)
	})

	t.Run("update accumulates wins per player", func(t *testing.T) {
		table := NewTable(16)
		require.True(t, table.Update(3, game.Player1, 1))
		require.True(t, table.Update(3, game.Player2, 0))

		e, ok := table.Lookup(3)
		require.True(t, ok)
		require.Equal(t, 2, e.Visits)
		require.InDelta(t, 1.5, e.Wins[game.Player1], 1e-9)
		require.InDelta(t, 0.5, e.Wins[game.Player2], 1e-9)
		require.InDelta(t, 0.5, e.Mean(game.Player1), 1e-9)
		require.InDelta(t, -0.5, e.Mean(game.Player2), 1e-9)
		require.Equal(t, 1, table.Count())
	})

	t.Run("record folds a batch", func(t *testing.T) {
		table := NewTable(16)
		require.True(t, table.Record(3, game.Player2, -1, 4))

		e, _ := table.Lookup(3)
		require.Equal(t, 4, e.Visits)
		require.Equal(t, 1.0, e.Mean(game.Player1))
	})

	t.Run("variance of the results", func(t *testing.T) {
		table := NewTable(16)
		table.Update(3, game.Player1, 1)
		table.Update(3, game.Player2, 1)

		e, _ := table.Lookup(3)
		require.InDelta(t, 0, e.Mean(game.Player1), 1e-9)
		require.InDelta(t, 1, e.Variance(), 1e-9)

		table.Record(4, game.Player1, 0.5, 3)
		e, _ = table.Lookup(4)
		require.InDelta(t, 0, e.Variance(), 1e-9, "Identical results have no spread")
	})

		t.Run("solved entries reject updates", func(t *testing.T) {
		table := NewTable(16)
		table.Update(3, game.Player1, -1)
		table.Solve(3, game.Player2)
		table.Solve(3, game.Player1)

		require.False(t, table.Update(3, game.Player1, 1))
		e, _ := table.Lookup(3)
		require.Equal(t, 1, e.Visits)
		require.Equal(t, game.Player2, e.SolvedBy, "First proof should stand")
		require.Equal(t, math.Inf(1), e.Value(game.Player2))
		require.Equal(t, math.Inf(-1), e.Value(game.Player1))
	})

	t.Run("different hash in the same slot replaces the entry", func(t *testing.T) {
		table := NewTable(4)
		table.Update(1, game.Player1, 1)
		table.Update(5, game.Player1, -1)

		_, ok := table.Lookup(1)
		require.False(t, ok)
		e, ok := table.Lookup(5)
		require.True(t, ok)
		require.Equal(t, 1, e.Visits)
		require.EqualValues(t, 1, table.Collisions())
		require.Equal(t, 1, table.Count())
	})

	t.Run("compact keeps solved and budget entries", func(t *testing.T) {
		table := NewTable(16)
		table.Update(1, game.Player1, 1)
		for i := 0; i < 5; i++ {
			table.Update(2, game.Player1, 1)
		}
		table.Solve(3, game.Player1)
		table.AddBudget(4, 10)

		removed := table.Compact(3)

		require.Equal(t, 1, removed)
		require.Equal(t, 3, table.Count())
		_, ok := table.Lookup(1)
		require.False(t, ok)
		for _, hash := range []game.StateHash{2, 3, 4} {
			_, ok := table.Lookup(hash)
			require.True(t, ok, "Entry %d should survive", hash)
		}
	})

	t.Run("clear", func(t *testing.T) {
		table := NewTable(4)
		table.Update(1, game.Player1, 1)
		table.Update(5, game.Player1, 1)
		table.Clear()

		require.Zero(t, table.Count())
		require.Zero(t, table.Collisions())
		_, ok := table.Lookup(5)
		require.False(t, ok)
	})

	t.Run("concurrent updates are not lost", func(t *testing.T) {
		table := NewTable(64)
		var g errgroup.Group
		for i := 0; i < 8; i++ {
			g.Go(func() error {
				for j := 0; j < 1000; j++ {
					table.Update(game.StateHash(j%4), game.Player1, 1)
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())

		for hash := game.StateHash(0); hash < 4; hash++ {
			e, ok := table.Lookup(hash)
			require.True(t, ok)
			require.Equal(t, 2000, e.Visits)
		}
	})
}
