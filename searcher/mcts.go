package searcher

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
	"lukechampine.com/frand"

	"mcts/game"
	"mcts/metrics"
)

type Option func(m *MCTS)

// Result is the outcome of one search.
type Result struct {
	Move game.Move
	// Policy is each root move's share of the root visits.
	Policy map[game.Move]float64
	// Value is the expected result of Move for the player to move, ±1 when
	// proven.
	Value       float64
	Proven      bool
	Simulations int
	Metric      metrics.SearchMetric
}

type MCTS struct {
	config    Config
	evaluator game.Evaluate
	metrics   metrics.Collector
	table     *Table
	flat      *flatTable
	roots     []*node
	rng       *rand.Rand
	stopped   atomic.Bool
}

// WithConfig replaces the whole configuration. Options after it still apply.
func WithConfig(config Config) Option {
	return func(m *MCTS) {
		m.config = config
	}
}

func WithDuration(duration time.Duration) Option {
	return func(m *MCTS) {
		if duration > 0 {
			m.config.Duration = duration
			m.config.Simulations = 0
		}
	}
}

func WithSimulations(simulations int) Option {
	return func(m *MCTS) {
		if simulations > 0 {
			m.config.Simulations = simulations
			m.config.Duration = 0
		}
	}
}

func WithGoroutines(goroutines int) Option {
	return func(m *MCTS) {
		m.config.Goroutines = goroutines
	}
}

func WithExploration(c float64) Option {
	return func(m *MCTS) {
		m.config.Exploration = c
	}
}

func WithSolver() Option {
	return func(m *MCTS) {
		m.config.Solver = true
	}
}

// WithTable shares a transposition table of at least size slots between
// the workers.
func WithTable(size uint64) Option {
	return func(m *MCTS) {
		m.config.Table.Enabled = true
		if size > 0 {
			m.config.Table.Size = size
		}
	}
}

func WithAllocator(kind AllocatorKind) Option {
	return func(m *MCTS) {
		m.config.Allocator.Kind = kind
	}
}

func WithBackprop(kind BackpropKind) Option {
	return func(m *MCTS) {
		m.config.Allocator.Backprop = kind
	}
}

func WithCutoff(depth int) Option {
	return func(m *MCTS) {
		if depth > 0 {
			m.config.Playout.Cutoff = depth
		}
	}
}

func WithEvaluationFn(evaluate game.Evaluate) Option {
	return func(m *MCTS) {
		if evaluate != nil {
			m.evaluator = evaluate
		}
	}
}

func WithPlayout(policy PlayoutPolicy) Option {
	return func(m *MCTS) {
		m.config.Playout.Policy = policy
	}
}

func WithTuned() Option {
	return func(m *MCTS) {
		m.config.Selection.Tuned = true
	}
}

func WithHistory(weight float64) Option {
	return func(m *MCTS) {
		m.config.Selection.History = weight
	}
}

// WithImplicitMinimax blends static evaluations into the selection score
// with coefficient alpha and prunes with evaluation intervals of half width
// margin (0 disables pruning).
func WithImplicitMinimax(alpha, margin float64) Option {
	return func(m *MCTS) {
		m.config.Selection.ImplicitMinimax = alpha
		m.config.Selection.PruneMargin = margin
	}
}

func WithWindow(size int) Option {
	return func(m *MCTS) {
		m.config.Selection.Window = size
	}
}

func WithMetrics(collector metrics.Collector) Option {
	return func(m *MCTS) {
		if collector != nil {
			m.metrics = collector
		}
	}
}

func WithSeed(seed uint64) Option {
	return func(m *MCTS) {
		m.config.Seed = seed
	}
}

func WithTreeReuse() Option {
	return func(m *MCTS) {
		m.config.TreeReuse = true
	}
}

// NewMCTS validates the configuration up front so a bad setup fails here
// rather than inside a search.
func NewMCTS(options ...Option) (*MCTS, error) {
	m := &MCTS{ // Default values
		config:  DefaultConfig(),
		metrics: metrics.NewDummyCollector(),
	}
	for _, option := range options {
		option(m)
	}
	if err := m.config.Validate(); err != nil {
		return nil, err
	}
	if m.evaluator == nil {
		version := m.config.Playout.EvalVersion
		m.evaluator = func(state game.State, player game.Player) float64 {
			return state.Evaluate(player, version)
		}
	}
	if m.config.Table.Enabled {
		m.table = NewTable(m.config.Table.Size)
	}
	if m.config.Allocator.Kind == BRUE {
		m.flat = newFlatTable(m.config.Table.Size)
	}
	m.rng = rand.New(rand.NewSource(m.seed()))
	return m, nil
}

func (m *MCTS) Config() Config {
	return m.config
}

// Table is the shared transposition table, nil unless enabled.
func (m *MCTS) Table() *Table {
	return m.table
}

// Stop ends a running search at the next simulation boundary.
func (m *MCTS) Stop() {
	m.stopped.Store(true)
}

func (m *MCTS) Search(ctx context.Context, state game.State) (game.Move, error) {
	result, err := m.Simulate(ctx, state)
	if err != nil {
		return nil, err
	}
	return result.Move, nil
}

// Simulate searches state within the configured budget and returns the
// recommended move with the root statistics. The state is not modified. A
// Stop before the call ends this search at once.
func (m *MCTS) Simulate(ctx context.Context, state game.State) (Result, error) {
	defer m.stopped.Store(false)
	if state == nil || state.Outcome().Terminal() {
		return Result{}, fmt.Errorf("%w: game is over", ErrNoMoves)
	}
	moves := state.LegalMoves()
	if len(moves) == 0 {
		return Result{}, ErrNoMoves
	}

	m.findRoots(state)
	count := m.workers(len(moves))
	m.metrics.Start(count, m.config.Playout.Cutoff)
	var workers []*worker
	var b *budget
	var err error
	if m.config.Duration > 0 {
		workers, b, err = m.countdown(ctx, state, count)
	} else {
		workers, b, err = m.iterate(ctx, state, count)
	}
	if err != nil {
		m.roots = nil
		return Result{}, fmt.Errorf("search: %w", err)
	}

	m.metrics.SetCollisions(m.collisions())
	result := m.recommend(workers, moves)
	result.Simulations = b.used()
	result.Metric = m.metrics.Complete()
	if m.table != nil && m.config.Table.CompactVisits > 0 {
		removed := m.table.Compact(m.config.Table.CompactVisits)
		log.Debug().Int("removed", removed).Int("entries", m.table.Count()).Msg("table-compacted")
	}
	log.Debug().
		Str("move", result.Move.String()).
		Int("simulations", result.Simulations).
		Float64("value", result.Value).
		Bool("proven", result.Proven).
		Msg("search-complete")
	return result, nil
}

func (m *MCTS) iterate(ctx context.Context, state game.State, count int) ([]*worker, *budget, error) {
	g, gctx := errgroup.WithContext(ctx)
	b := newBudget(gctx, m.config.Simulations, &m.stopped)
	seed := m.seed()

	workers := make([]*worker, count)
	for i := range workers {
		workers[i] = m.newWorker(i, count, state.Clone(), b, seed)
		g.Go(workers[i].run)
	}
	return workers, b, g.Wait()
}

func (m *MCTS) countdown(ctx context.Context, state game.State, count int) ([]*worker, *budget, error) {
	ctx, cancel := context.WithTimeout(ctx, m.config.Duration)
	defer cancel()
	return m.iterate(ctx, state, count)
}

// workers is the number of goroutines for a search over moves root moves.
// Successive Rejects never splits its budget into shares smaller than the
// number of moves.
func (m *MCTS) workers(moves int) int {
	if m.config.Allocator.Kind != SuccessiveRejects || m.config.Simulations == 0 {
		return m.config.Goroutines
	}
	return max(1, min(m.config.Goroutines, m.config.Simulations/moves))
}

func (m *MCTS) newWorker(id, count int, state game.State, b *budget, seed uint64) *worker {
	w := &worker{
		id:        id,
		config:    m.config,
		state:     state,
		root:      m.roots[id],
		rng:       rand.New(rand.NewSource(seed + uint64(id))),
		table:     m.table,
		flat:      m.flat,
		budget:    b,
		metrics:   m.metrics,
		evaluator: m.evaluator,
	}
	if m.config.Selection.History > 0 || m.config.Playout.Policy == MASTPlayout {
		w.history = newHistory()
	}
	if m.config.Simulations > 0 {
		w.share = m.config.Simulations / count
		if id < m.config.Simulations%count {
			w.share++
		}
	}
	return w
}

func (m *MCTS) seed() uint64 {
	if m.config.Seed != 0 {
		return m.config.Seed
	}
	return frand.Uint64n(math.MaxUint64)
}

// findRoots keeps each worker's tree when it was advanced to state, and
// starts fresh trees otherwise.
func (m *MCTS) findRoots(state game.State) {
	reset := !m.config.TreeReuse || len(m.roots) != m.config.Goroutines
	if reset {
		m.roots = make([]*node, m.config.Goroutines)
	}
	for i, root := range m.roots {
		if root == nil || root.hash != state.Hash() {
			m.roots[i] = newRoot(state)
			reset = true
		}
	}
	m.metrics.SetTreeReset(reset)
}

// Advance moves every tree to the child reached by move, dropping the
// siblings. A tree that never expanded move, or whose child disagrees with
// hash, is discarded.
func (m *MCTS) Advance(move game.Move, hash game.StateHash) {
	if !m.config.TreeReuse {
		return
	}
	for i, root := range m.roots {
		m.roots[i] = advance(root, move, hash)
	}
}

func advance(root *node, move game.Move, hash game.StateHash) *node {
	if root == nil {
		return nil
	}
	moves := lo.Map(root.children, func(c *node, _ int) game.Move { return c.move })
	i := lo.IndexOf(moves, move)
	if i < 0 {
		return nil
	}
	child := root.children[i]
	if child.hashed && child.hash != hash {
		log.Warn().Msgf("node's state hash %d does not match played state hash %d", child.hash, hash)
		return nil
	}
	child.hash, child.hashed = hash, true
	return child
}

func (m *MCTS) collisions() int64 {
	var n int64
	if m.table != nil {
		n += m.table.Collisions()
	}
	if m.flat != nil {
		n += m.flat.Collisions()
	}
	return n
}
