package searcher

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"mcts/meta"
)

type AllocatorKind string

const (
	NoAllocator       AllocatorKind = "none"
	SuccessiveRejects AllocatorKind = "sr"
	BRUE              AllocatorKind = "brue"
)

// BackpropKind decides what a node driven by Successive Rejects folds into
// its own statistics.
type BackpropKind string

const (
	// AverageBackprop folds every simulation result.
	AverageBackprop BackpropKind = "average"
	// MaxBackprop folds the mean of the surviving arm once per pull.
	MaxBackprop BackpropKind = "max"
	// RangeBackprop folds the average mean of the arms alive in the final
	// round once per pull.
	RangeBackprop BackpropKind = "range"
)

type PlayoutPolicy string

const (
	RandomPlayout    PlayoutPolicy = "random"
	HeuristicPlayout PlayoutPolicy = "heuristic"
	MASTPlayout      PlayoutPolicy = "mast"
)

// FinalSelection decides how the recommended move is read off the root once
// proofs are accounted for.
type FinalSelection string

const (
	MostVisits FinalSelection = "visits"
	BestMean   FinalSelection = "mean"
)

type Config struct {
	Goroutines  int           `yaml:"goroutines"`
	Duration    time.Duration `yaml:"duration"`
	Simulations int           `yaml:"simulations"`
	Exploration float64       `yaml:"exploration"`
	Solver      bool          `yaml:"solver"`
	TreeReuse   bool          `yaml:"tree_reuse"`
	// Seed of the worker generators, 0 draws a fresh seed per search.
	Seed     uint64         `yaml:"seed"`
	Final    FinalSelection `yaml:"final"`
	LogLevel string         `yaml:"log_level"`

	Table     TableConfig     `yaml:"table"`
	Allocator AllocatorConfig `yaml:"allocator"`
	Selection SelectionConfig `yaml:"selection"`
	Playout   PlayoutConfig   `yaml:"playout"`
}

type TableConfig struct {
	Enabled bool `yaml:"enabled"`
	// Size is rounded up to a power of two.
	Size uint64 `yaml:"size"`
	// CompactVisits purges entries below this many visits after each search,
	// 0 keeps everything.
	CompactVisits int `yaml:"compact_visits"`
}

type AllocatorConfig struct {
	Kind AllocatorKind `yaml:"kind"`
	// Depth is the number of tree levels driven by Successive Rejects.
	Depth    int          `yaml:"depth"`
	Backprop BackpropKind `yaml:"backprop"`
	// Horizon is the BRUE switching horizon in plies.
	Horizon int `yaml:"horizon"`
}

type SelectionConfig struct {
	Tuned bool `yaml:"tuned"`
	// History weighs the MAST history term, 0 disables it.
	History float64 `yaml:"history"`
	// ImplicitMinimax is the blending coefficient of the static evaluation,
	// 0 disables it.
	ImplicitMinimax float64 `yaml:"implicit_minimax"`
	PruneVisits     int     `yaml:"prune_visits"`
	// PruneMargin is the half width of the evaluation interval, 0 disables
	// pruning.
	PruneMargin float64 `yaml:"prune_margin"`
	// Window is the largest sliding window, 0 disables windowed averaging.
	Window    int `yaml:"window"`
	WindowMin int `yaml:"window_min"`
}

type PlayoutConfig struct {
	Policy  PlayoutPolicy `yaml:"policy"`
	Epsilon float64       `yaml:"epsilon"`
	// Cutoff stops playouts after this many plies and scores the position
	// with the static evaluation, 0 plays to the end.
	Cutoff      int `yaml:"cutoff"`
	EvalVersion int `yaml:"eval_version"`
}

func DefaultConfig() Config {
	return Config{
		Goroutines:  meta.GO_ROUTINES,
		Simulations: meta.SIMULATIONS,
		Exploration: meta.EXPLORATION,
		Final:       MostVisits,
		LogLevel:    "info",
		Table: TableConfig{
			Size: meta.TABLE_SIZE,
		},
		Allocator: AllocatorConfig{
			Kind:     NoAllocator,
			Depth:    1,
			Backprop: AverageBackprop,
			Horizon:  meta.HORIZON,
		},
		Selection: SelectionConfig{
			PruneVisits: meta.PRUNE_VISITS,
			WindowMin:   meta.WINDOW_MIN,
		},
		Playout: PlayoutConfig{
			Policy:  RandomPlayout,
			Epsilon: 0.1,
		},
	}
}

// LoadConfig reads the defaults, then the yaml file at path if it exists,
// then MCTS_* environment overrides, and validates the result.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	if path != "" {
		if err := loadConfigFile(path, &config); err != nil {
			return config, fmt.Errorf("load config file: %w", err)
		}
	}
	loadConfigFromEnv(&config)
	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

func loadConfigFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, config)
}

func loadConfigFromEnv(config *Config) {
	if v := os.Getenv("MCTS_GOROUTINES"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Goroutines = i
		}
	}
	if v := os.Getenv("MCTS_DURATION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Duration = d
			config.Simulations = 0
		}
	}
	if v := os.Getenv("MCTS_SIMULATIONS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Simulations = i
			config.Duration = 0
		}
	}
	if v := os.Getenv("MCTS_EXPLORATION"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Exploration = f
		}
	}
	if v := os.Getenv("MCTS_SOLVER"); v != "" {
		config.Solver = v == "true" || v == "1"
	}
	if v := os.Getenv("MCTS_TREE_REUSE"); v != "" {
		config.TreeReuse = v == "true" || v == "1"
	}
	if v := os.Getenv("MCTS_TABLE"); v != "" {
		config.Table.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("MCTS_TABLE_SIZE"); v != "" {
		if i, err := strconv.ParseUint(v, 10, 64); err == nil {
			config.Table.Size = i
		}
	}
	if v := os.Getenv("MCTS_ALLOCATOR"); v != "" {
		config.Allocator.Kind = AllocatorKind(v)
	}
	if v := os.Getenv("MCTS_PLAYOUT"); v != "" {
		config.Playout.Policy = PlayoutPolicy(v)
	}
	if v := os.Getenv("MCTS_SEED"); v != "" {
		if i, err := strconv.ParseUint(v, 10, 64); err == nil {
			config.Seed = i
		}
	}
	if v := os.Getenv("MCTS_LOG_LEVEL"); v != "" {
		config.LogLevel = v
	}
}

// Validate reports budget errors with their own sentinel and every other
// problem as ErrInvalidConfig.
func (c Config) Validate() error {
	if c.Duration > 0 && c.Simulations > 0 {
		return ErrConflictingBudget
	}
	if c.Duration <= 0 && c.Simulations <= 0 {
		return ErrNoBudget
	}
	if c.Allocator.Kind == SuccessiveRejects && c.Simulations <= 0 {
		return ErrAllocatorBudget
	}
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	if c.Goroutines < 1 {
		return invalid("goroutines must be >= 1")
	}
	if c.Exploration < 0 {
		return invalid("exploration must be >= 0")
	}
	if c.Final != MostVisits && c.Final != BestMean {
		return invalid("unknown final selection %q", c.Final)
	}
	if c.Table.Enabled && c.Table.Size == 0 {
		return invalid("table size must be > 0")
	}
	switch c.Allocator.Kind {
	case NoAllocator, SuccessiveRejects, BRUE:
	default:
		return invalid("unknown allocator %q", c.Allocator.Kind)
	}
	if c.Allocator.Kind == SuccessiveRejects && c.Allocator.Depth < 1 {
		return invalid("allocator depth must be >= 1")
	}
	switch c.Allocator.Backprop {
	case AverageBackprop, MaxBackprop, RangeBackprop:
	default:
		return invalid("unknown backprop %q", c.Allocator.Backprop)
	}
	if c.Allocator.Kind == BRUE && c.Allocator.Horizon < 1 {
		return invalid("horizon must be >= 1")
	}
	if c.Selection.ImplicitMinimax < 0 || c.Selection.ImplicitMinimax > 1 {
		return invalid("implicit minimax must be between 0 and 1")
	}
	if c.Selection.Window < 0 || c.Selection.WindowMin < 0 {
		return invalid("window sizes must be >= 0")
	}
	if c.Selection.PruneMargin < 0 {
		return invalid("prune margin must be >= 0")
	}
	switch c.Playout.Policy {
	case RandomPlayout, HeuristicPlayout, MASTPlayout:
	default:
		return invalid("unknown playout policy %q", c.Playout.Policy)
	}
	if c.Playout.Epsilon < 0 || c.Playout.Epsilon > 1 {
		return invalid("epsilon must be between 0 and 1")
	}
	if c.Playout.Cutoff < 0 {
		return invalid("cutoff must be >= 0")
	}
	return nil
}

// probes reports whether expansion applies every move to read its outcome,
// hash and evaluation.
func (c Config) probes() bool {
	return c.Solver || c.Table.Enabled || c.Selection.ImplicitMinimax > 0
}
