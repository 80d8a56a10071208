package engine

import (
	"context"

	"mcts/game"
	"mcts/metrics"
	"mcts/searcher"
)

// Agent picks moves for one side. *searcher.MCTS implements it.
type Agent interface {
	Simulate(ctx context.Context, state game.State) (searcher.Result, error)
	// Advance tells the agent which move was played and the hash of the
	// resulting state.
	Advance(move game.Move, hash game.StateHash)
}

type Engine interface {
	// Run plays a game till it is over or the turn limit is reached
	Run(ctx context.Context) (game.Outcome, metrics.GameMetric, []metrics.MoveMetric, error)
}
