package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"mcts/game"
	"mcts/meta"
	"mcts/metrics"
)

type Local struct {
	State    game.State
	Agents   map[game.Player]Agent
	MaxTurns int
}

// LocalEngine plays state out between two in-process agents, agents[0]
// moving for Player1.
func LocalEngine(state game.State, agents ...Agent) *Local {
	if len(agents) != 2 {
		panic("need exactly two agents")
	}
	return &Local{
		State: state,
		Agents: map[game.Player]Agent{
			game.Player1: agents[0],
			game.Player2: agents[1],
		},
		MaxTurns: meta.MAX_TURNS,
	}
}

// Run executes the entire game loop. The outcome is Ongoing when the turn
// limit stopped the game.
func (e *Local) Run(ctx context.Context) (game.Outcome, metrics.GameMetric, []metrics.MoveMetric, error) {
	gameMetric := metrics.GameMetric{
		StartingPlayer: e.State.Player(),
		StartTime:      time.Now(),
	}
	var moveMetrics []metrics.MoveMetric

	log.Info().Msgf("player %s is starting", e.State.Player())

	turn := 1
	for ; !e.State.Outcome().Terminal() && turn <= e.MaxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			return game.Ongoing, gameMetric, moveMetrics, err
		}
		player := e.State.Player()
		result, err := e.Agents[player].Simulate(ctx, e.State)
		if err != nil {
			return game.Ongoing, gameMetric, moveMetrics, fmt.Errorf("turn %d: %w", turn, err)
		}
		if !e.State.Apply(result.Move, player) {
			return game.Ongoing, gameMetric, moveMetrics, fmt.Errorf("turn %d: player %s chose illegal move %s", turn, player, result.Move)
		}
		moveMetrics = append(moveMetrics, metrics.MoveMetric{
			Step:         turn,
			Player:       player,
			Move:         result.Move.String(),
			SearchMetric: result.Metric,
		})
		log.Debug().
			Int("turn", turn).
			Str("player", player.String()).
			Str("move", result.Move.String()).
			Float64("value", result.Value).
			Msg("move played")

		hash := e.State.Hash()
		for _, agent := range lo.Uniq(lo.Values(e.Agents)) {
			agent.Advance(result.Move, hash)
		}
	}

	outcome := e.State.Outcome()
	if !outcome.Terminal() {
		log.Info().Msgf("stopped after %d turns without a result", e.MaxTurns)
	}
	gameMetric.Outcome = outcome
	gameMetric.EndTime = time.Now()
	gameMetric.Duration = gameMetric.EndTime.Sub(gameMetric.StartTime)
	gameMetric.TotalMoves = turn - 1
	return outcome, gameMetric, moveMetrics, nil
}
