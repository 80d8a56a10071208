package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/logrusorgru/aurora"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"mcts/engine"
	"mcts/experiments"
	"mcts/game"
	"mcts/game/tictactoe"
	"mcts/meta"
	"mcts/metrics"
	"mcts/searcher"
)

var (
	configPath  string
	metricsAddr string
	board       string
	games       int
	opponentSim int
	windowed    bool
	color       bool

	config    searcher.Config
	collector metrics.Collector

	rootCmd = &cobra.Command{
		Use:               "mcts",
		Short:             "Monte Carlo tree search on tic-tac-toe",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	searchCmd = &cobra.Command{
		Use:   "search",
		Short: "Search one position and print the recommended move",
		RunE:  search,
	}

	playCmd = &cobra.Command{
		Use:   "play",
		Short: "Play one game of the engine against itself",
		RunE:  play,
	}

	matchCmd = &cobra.Command{
		Use:   "match",
		Short: "Play the configured agent against one with a different simulation budget",
		RunE:  match,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "mcts.yaml", "yaml configuration, MCTS_* variables override it")
	rootCmd.PersistentFlags().BoolVar(&color, "color", true, "color the printed board")
	rootCmd.PersistentFlags().BoolVar(&windowed, "windowed", false, "average over a sliding window of recent results")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	searchCmd.Flags().StringVar(&board, "board", ".........", "position row by row with X, O and .")
	matchCmd.Flags().IntVar(&games, "games", 10, "number of games")
	matchCmd.Flags().IntVar(&opponentSim, "opponent-simulations", meta.SIMULATIONS/10, "simulation budget of the opponent")

	rootCmd.AddCommand(searchCmd, playCmd, matchCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	var err error
	config, err = searcher.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if windowed {
		config.Selection.Window = meta.WINDOW_SIZE
	}
	level, err := zerolog.ParseLevel(config.LogLevel)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)
	log.Debug().Interface("config", config).Msg("configuration loaded")

	collector = metrics.NewCollector()
	if metricsAddr == "" {
		return nil
	}
	reg := prometheus.NewRegistry()
	pc, err := metrics.NewPrometheusCollector(reg)
	if err != nil {
		return err
	}
	collector = pc
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		if err := http.ListenAndServe(metricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", metricsAddr).Msg("metrics server stopped")
		}
	}()
	log.Info().Str("addr", metricsAddr).Msg("serving metrics")
	return nil
}

func newMCTS(c searcher.Config) (*searcher.MCTS, error) {
	return searcher.NewMCTS(searcher.WithConfig(c), searcher.WithMetrics(collector))
}

func search(cmd *cobra.Command, args []string) error {
	state, err := tictactoe.Parse(board)
	if err != nil {
		return err
	}
	m, err := newMCTS(config)
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	result, err := m.Simulate(ctx, state)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n\nmove %s value %.3f proven %t simulations %d\n",
		render(state), result.Move, result.Value, result.Proven, result.Simulations)
	for _, move := range state.LegalMoves() {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s %.3f\n", move, result.Policy[move])
	}
	return nil
}

func play(cmd *cobra.Command, args []string) error {
	first, err := newMCTS(config)
	if err != nil {
		return err
	}
	second, err := newMCTS(config)
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	state := tictactoe.New()
	outcome, gameMetric, moveMetrics, err := engine.LocalEngine(state, first, second).Run(ctx)
	if err != nil {
		return err
	}
	for _, mm := range moveMetrics {
		fmt.Fprintf(cmd.OutOrStdout(), "%d. %s %s (%d simulations)\n", mm.Step, mm.Player, mm.Move, mm.Simulations)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n\n%s after %d moves in %s\n", render(state), outcome, gameMetric.TotalMoves, gameMetric.Duration)
	return nil
}

func match(cmd *cobra.Command, args []string) error {
	opponent := config
	opponent.Simulations, opponent.Duration = opponentSim, 0
	a := experiments.AgentConfig{ID: 1, Config: config}
	b := experiments.AgentConfig{ID: 2, Config: opponent}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	result, err := experiments.RunMatch(ctx, a, b, games, func() game.State { return tictactoe.New() }, collector)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "agent 1: %d wins, agent 2: %d wins, %d draws\n", result.Wins[1], result.Wins[2], result.Draws)
	return nil
}

// render prints X in red and O in blue.
func render(b *tictactoe.Board) string {
	au := aurora.NewAurora(color)
	var sb strings.Builder
	for _, c := range b.String() {
		switch c {
		case 'X':
			sb.WriteString(au.Red("X").Bold().String())
		case 'O':
			sb.WriteString(au.Blue("O").Bold().String())
		default:
			sb.WriteRune(c)
		}
	}
	return sb.String()
}
