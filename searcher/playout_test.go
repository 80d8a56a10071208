package searcher

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mcts/game"
	"mcts/game/tictactoe"
)

func withEpsilon(epsilon float64) Option {
	return func(m *MCTS) {
		m.config.Playout.Epsilon = epsilon
	}
}

func TestPlayout(t *testing.T) {
	t.Run("state is restored", func(t *testing.T) {
		board, err := tictactoe.Parse("X.. .O. ...")
		require.NoError(t, err)
		before, hash := board.String(), board.Hash()
		m := newTestMCTS(t, WithSimulations(10))
		w := newTestWorker(t, m, board)

		for i := 0; i < 50; i++ {
			r := w.playout(game.Player1)
			require.Contains(t, []float64{-1, 0, 1}, r)
			require.Equal(t, before, board.String())
			require.Equal(t, hash, board.Hash())
		}
	})

	t.Run("cutoff scores with the evaluation", func(t *testing.T) {
		g := newMockGame().
			edge("root", 0, "mid").
			edge("mid", 0, "end").
			turn("mid", game.Player2).
			end("end", game.Player1Win)
		g.evals["mid"] = 0.6
		m := newTestMCTS(t, WithSimulations(10), WithCutoff(1))
		state := g.state("root")
		w := newTestWorker(t, m, state)

		require.InDelta(t, 0.6, w.playout(game.Player1), 1e-9)
		require.InDelta(t, -0.6, w.playout(game.Player2), 1e-9)
		require.Equal(t, "root", state.id())
	})

	t.Run("custom evaluation function", func(t *testing.T) {
		g := newMockGame().
			edge("root", 0, "mid").
			edge("mid", 0, "end").
			turn("mid", game.Player2).
			end("end", game.Player1Win)
		evaluate := func(game.State, game.Player) float64 { return 3 }
		m := newTestMCTS(t, WithSimulations(10), WithCutoff(1), WithEvaluationFn(evaluate))
		w := newTestWorker(t, m, g.state("root"))

		require.Equal(t, 1.0, w.playout(game.Player1), "Evaluation should be clamped")
	})

	t.Run("no moves is a draw or a loss for the mover", func(t *testing.T) {
		g := newMockGame().edge("root", 0, "stuck")
		m := newTestMCTS(t, WithSimulations(10))

		w := newTestWorker(t, m, g.state("root"))
		require.Zero(t, w.playout(game.Player1))

		g.noMovesIsLoss = true
		w = newTestWorker(t, m, g.state("root"))
		require.Equal(t, -1.0, w.playout(game.Player1), "Player1 is stuck at the end")
		require.Equal(t, 1.0, w.playout(game.Player2))
	})

	t.Run("illegal moves are skipped", func(t *testing.T) {
		g := newMockGame().
			edge("root", 0, "").
			edge("root", 1, "").
			edge("root", 2, "win").
			end("win", game.Player1Win)
		m := newTestMCTS(t, WithSimulations(10))
		w := newTestWorker(t, m, g.state("root"))

		for i := 0; i < 10; i++ {
			require.Equal(t, 1.0, w.playout(game.Player1))
		}
	})

	t.Run("heuristic playouts take immediate wins", func(t *testing.T) {
		board, err := tictactoe.Parse("XX. OO. ...")
		require.NoError(t, err)
		m := newTestMCTS(t, WithSimulations(10), WithPlayout(HeuristicPlayout))
		w := newTestWorker(t, m, board)

		for i := 0; i < 20; i++ {
			require.Equal(t, 1.0, w.playout(game.Player1))
		}
	})

	t.Run("mast prefers moves with the best history", func(t *testing.T) {
		m := newTestMCTS(t, WithSimulations(10), WithPlayout(MASTPlayout), withEpsilon(0))
		state := singlePly().state("root")
		w := newTestWorker(t, m, state)
		w.history.update(game.Player1, mockMove(2), 1)
		w.history.update(game.Player1, mockMove(0), -1)

		for i := 0; i < 20; i++ {
			require.Equal(t, 2, w.pick(state.LegalMoves(), game.Player1))
		}
	})

	t.Run("playouts feed the history", func(t *testing.T) {
		m := newTestMCTS(t, WithSimulations(10), WithPlayout(MASTPlayout))
		w := newTestWorker(t, m, singlePly().state("root"))

		for i := 0; i < 30; i++ {
			w.playout(game.Player1)
		}
		total := 0
		for _, move := range []mockMove{0, 1, 2} {
			total += w.history.count(game.Player1, move)
		}
		require.Equal(t, 30, total)
		if w.history.count(game.Player1, mockMove(0)) > 0 {
			require.Equal(t, 1.0, w.history.mean(game.Player1, mockMove(0)))
		}
	})
}
