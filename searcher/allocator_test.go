package searcher

import (
	"context"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"mcts/game"
)

// fourArms has one move per result for Player1: 0 wins, 1 and 2 draw and 3
// loses.
func fourArms() *mockGame {
	return newMockGame().
		edge("root", 0, "win").
		edge("root", 1, "draw1").
		edge("root", 2, "draw2").
		edge("root", 3, "loss").
		end("win", game.Player1Win).
		end("draw1", game.Draw).
		end("draw2", game.Draw).
		end("loss", game.Player2Win)
}

func withAllocatorDepth(depth int) Option {
	return func(m *MCTS) {
		m.config.Allocator.Depth = depth
	}
}

func TestSchedule(t *testing.T) {
	t.Run("cumulative pulls per round", func(t *testing.T) {
		require.Equal(t, []int{16, 21, 31}, Schedule(4, 100))
	})

	t.Run("total pulls stay within the budget", func(t *testing.T) {
		for _, k := range []int{2, 3, 4, 7, 10} {
			for _, n := range []int{100, 1000} {
				rounds := Schedule(k, n)
				total, prev := 0, 0
				for r, pulls := range rounds {
					total += (k - r) * (pulls - prev)
					prev = pulls
				}
				require.LessOrEqual(t, total, n, "k=%d n=%d", k, n)
			}
		}
	})

	t.Run("every round pulls each arm at least once", func(t *testing.T) {
		require.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, Schedule(9, 9))
		require.Equal(t, []int{1}, Schedule(2, 1))
		for _, n := range []int{0, 5, 50} {
			prev := 0
			for _, pulls := range Schedule(7, n) {
				require.Greater(t, pulls, prev, "n=%d", n)
				prev = pulls
			}
		}
	})

	t.Run("a single arm has no rounds", func(t *testing.T) {
		require.Empty(t, Schedule(1, 100))
	})
}

func TestAllocate(t *testing.T) {
	t.Run("arms are eliminated until the winner remains", func(t *testing.T) {
		m := newTestMCTS(t, WithAllocator(SuccessiveRejects), WithSimulations(100))
		w := newTestWorker(t, m, fourArms().state("root"))

		a := w.allocate(w.root, 0, 100)

		require.False(t, a.proven)
		require.Len(t, a.eliminated, 3)
		require.Equal(t, mockMove(3), a.eliminated[0], "Losing arm should go first")
		require.Equal(t, 100, a.pulls, "Survivor should take the pull the rounds left")
		require.Equal(t, 100, w.root.stats.Visits())
		require.Equal(t, mockMove(0), a.best.move)
	})

	t.Run("max backprop folds the best arm", func(t *testing.T) {
		m := newTestMCTS(t, WithAllocator(SuccessiveRejects), WithBackprop(MaxBackprop), WithSimulations(100))
		w := newTestWorker(t, m, fourArms().state("root"))

		a := w.allocate(w.root, 0, 100)

		require.Equal(t, -1.0, a.value, "Root player loses against the best arm")
		require.Equal(t, 100, w.root.stats.Visits())
		require.Equal(t, -1.0, w.root.stats.Mean())
	})

	t.Run("range backprop folds the finalists", func(t *testing.T) {
		m := newTestMCTS(t, WithAllocator(SuccessiveRejects), WithBackprop(RangeBackprop), WithSimulations(100))
		w := newTestWorker(t, m, fourArms().state("root"))

		a := w.allocate(w.root, 0, 100)

		require.InDelta(t, -0.5, a.value, 1e-9)
		require.InDelta(t, -0.5, w.root.stats.Mean(), 1e-9)
	})

	t.Run("immediate win proves the node with the solver", func(t *testing.T) {
		m := newTestMCTS(t, WithAllocator(SuccessiveRejects), WithSolver(), WithSimulations(100))
		w := newTestWorker(t, m, fourArms().state("root"))

		a := w.allocate(w.root, 0, 100)

		require.True(t, a.proven)
		require.Zero(t, a.pulls)
		require.True(t, w.root.stats.Solved())
	})

	t.Run("illegal arm is eliminated first", func(t *testing.T) {
		g := newMockGame().
			edge("root", 0, "").
			edge("root", 1, "draw").
			edge("root", 2, "win").
			end("draw", game.Draw).
			end("win", game.Player1Win)
		m := newTestMCTS(t, WithAllocator(SuccessiveRejects), WithSimulations(30))
		w := newTestWorker(t, m, g.state("root"))

		a := w.allocate(w.root, 0, 30)

		require.Equal(t, []game.Move{mockMove(0), mockMove(1)}, a.eliminated)
		require.Equal(t, mockMove(2), a.best.move)
		require.NotContains(t, lo.Map(w.root.children, func(c *node, _ int) game.Move { return c.move }), mockMove(0))
	})

	t.Run("nested allocation below the root", func(t *testing.T) {
		g := newMockGame().
			edge("root", 0, "x").
			edge("root", 1, "y").
			turn("x", game.Player2).
			turn("y", game.Player2).
			edge("x", 0, "x0").
			edge("x", 1, "x1").
			edge("y", 0, "y0").
			edge("y", 1, "y1").
			end("x0", game.Player1Win).
			end("x1", game.Player1Win).
			end("y0", game.Player2Win).
			end("y1", game.Draw)
		m := newTestMCTS(t, WithAllocator(SuccessiveRejects), withAllocatorDepth(2), WithSimulations(100))
		w := newTestWorker(t, m, g.state("root"))

		a := w.allocate(w.root, 0, 100)

		require.Equal(t, []game.Move{mockMove(1)}, a.eliminated)
		require.Equal(t, mockMove(0), a.best.move)
		require.Equal(t, 100, a.pulls, "Batches should spend the whole budget")
		require.Equal(t, "root", w.state.(*mockState).id(), "State should be back at the root")
	})

	t.Run("budget smaller than the number of arms is spent", func(t *testing.T) {
		m := newTestMCTS(t, WithAllocator(SuccessiveRejects), WithSimulations(9))

		result, err := m.Simulate(context.Background(), parseBoard(t, "... ... ..."))

		require.NoError(t, err)
		require.Equal(t, 9, result.Simulations)
	})

	t.Run("many goroutines do not starve their shares", func(t *testing.T) {
		m := newTestMCTS(t, WithAllocator(SuccessiveRejects), WithGoroutines(16), WithSimulations(100))

		result, err := m.Simulate(context.Background(), parseBoard(t, "... ... ..."))

		require.NoError(t, err)
		require.Equal(t, 100, result.Simulations)
		require.Equal(t, 11, m.workers(9), "Each share should cover one pull per move")
	})

	t.Run("nested allocation spends the budget on a real game", func(t *testing.T) {
		m := newTestMCTS(t, WithAllocator(SuccessiveRejects), withAllocatorDepth(2), WithSimulations(1000))
		board := parseBoard(t, "... ... ...")
		before := board.String()

		result, err := m.Simulate(context.Background(), board)

		require.NoError(t, err)
		require.GreaterOrEqual(t, result.Simulations, 990)
		require.LessOrEqual(t, result.Simulations, 1000)
		require.Equal(t, before, board.String(), "Board should be untouched")
	})

	t.Run("search recommends the most voted arm", func(t *testing.T) {
		m := newTestMCTS(t, WithAllocator(SuccessiveRejects), WithGoroutines(2), WithSimulations(100))

		result, err := m.Simulate(context.Background(), fourArms().state("root"))

		require.NoError(t, err)
		require.Equal(t, mockMove(0), result.Move)
		require.LessOrEqual(t, result.Simulations, 100)
	})

	t.Run("duration budget is rejected", func(t *testing.T) {
		_, err := NewMCTS(WithAllocator(SuccessiveRejects), WithDuration(1))
		require.ErrorIs(t, err, ErrAllocatorBudget)
	})
}
