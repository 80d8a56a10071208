package experiments

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"mcts/engine"
	"mcts/game"
	"mcts/metrics"
	"mcts/searcher"
)

// AgentConfig names a search configuration taking part in a match.
type AgentConfig struct {
	ID     int
	Config searcher.Config
}

// GameRecord is one game of a match. Agent1 moved first.
type GameRecord struct {
	ID     int
	Agent1 int // AgentConfig.ID
	Agent2 int // AgentConfig.ID
	metrics.GameMetric
}

type MatchResult struct {
	Games []GameRecord
	// Wins counts won games per AgentConfig.ID.
	Wins  map[int]int
	Draws int
}

// RunMatch plays games between a and b on fresh states from newState,
// alternating the agent that moves first.
func RunMatch(ctx context.Context, a, b AgentConfig, games int, newState func() game.State, collector metrics.Collector) (MatchResult, error) {
	result := MatchResult{Wins: map[int]int{a.ID: 0, b.ID: 0}}

	log.Info().Msgf("starting match between agent %d and agent %d over %d games...", a.ID, b.ID, games)

	for i := 0; i < games; i++ {
		first, second := a, b
		if i%2 == 1 {
			first, second = b, a
		}
		outcome, gameMetric, err := runGame(ctx, first, second, newState(), collector)
		if err != nil {
			return result, fmt.Errorf("game %d: %w", i+1, err)
		}
		result.Games = append(result.Games, GameRecord{
			ID:         i + 1,
			Agent1:     first.ID,
			Agent2:     second.ID,
			GameMetric: gameMetric,
		})
		switch outcome {
		case game.Player1Win:
			result.Wins[first.ID]++
		case game.Player2Win:
			result.Wins[second.ID]++
		default:
			result.Draws++
		}

		log.Info().Msgf("completed game %d of %d with outcome: %s", i+1, games, outcome)
	}

	log.Info().
		Int("agent1", a.ID).
		Int("agent2", b.ID).
		Int("wins1", result.Wins[a.ID]).
		Int("wins2", result.Wins[b.ID]).
		Int("draws", result.Draws).
		Msg("completed match")
	return result, nil
}

// runGame executes a single game between two agents
func runGame(ctx context.Context, config1, config2 AgentConfig, state game.State, collector metrics.Collector) (game.Outcome, metrics.GameMetric, error) {
	agent1, err := createMCTS(config1, collector)
	if err != nil {
		return game.Ongoing, metrics.GameMetric{}, err
	}
	agent2, err := createMCTS(config2, collector)
	if err != nil {
		return game.Ongoing, metrics.GameMetric{}, err
	}

	e := engine.LocalEngine(state, agent1, agent2)
	outcome, gameMetric, _, err := e.Run(ctx)
	return outcome, gameMetric, err
}

func createMCTS(config AgentConfig, collector metrics.Collector) (*searcher.MCTS, error) {
	options := []searcher.Option{searcher.WithConfig(config.Config)}
	if collector != nil {
		options = append(options, searcher.WithMetrics(collector))
	}
	m, err := searcher.NewMCTS(options...)
	if err != nil {
		return nil, fmt.Errorf("agent %d: %w", config.ID, err)
	}
	return m, nil
}
