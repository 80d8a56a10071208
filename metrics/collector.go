package metrics

import (
	"sync/atomic"
	"time"

	"mcts/game"
)

type SearchMetric struct {
	Goroutines   int
	Duration     time.Duration
	Simulations  int
	Cutoff       int
	FullPlayouts int
	Proofs       int
	Collisions   int64
	IsTreeReset  bool
}

type MoveMetric struct {
	Step   int
	Player game.Player
	Move   string
	SearchMetric
}

type GameMetric struct {
	StartingPlayer game.Player
	Outcome        game.Outcome
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	TotalMoves     int
}

type Collector interface {
	Start(goroutines, cutoff int)
	SetTreeReset(value bool)
	SetCollisions(n int64)
	AddFullPlayout()
	AddSimulation()
	AddProof()
	Complete() SearchMetric
}

type collector struct {
	goroutines   int
	cutoff       int
	startTime    time.Time
	simulations  atomic.Int64
	fullPlayouts atomic.Int64
	proofs       atomic.Int64
	collisions   atomic.Int64
	isTreeReset  atomic.Bool
}

func NewCollector() Collector {
	return &collector{}
}

func (m *collector) SetTreeReset(value bool) {
	m.isTreeReset.Store(value)
}

func (m *collector) SetCollisions(n int64) {
	m.collisions.Store(n)
}

// Start resets the counters for a new search.
func (m *collector) Start(goroutines, cutoff int) {
	m.startTime = time.Now()
	m.goroutines = goroutines
	m.cutoff = cutoff
	m.simulations.Store(0)
	m.fullPlayouts.Store(0)
	m.proofs.Store(0)
}

func (m *collector) AddFullPlayout() {
	m.fullPlayouts.Add(1)
}

func (m *collector) AddSimulation() {
	m.simulations.Add(1)
}

func (m *collector) AddProof() {
	m.proofs.Add(1)
}

func (m *collector) Complete() SearchMetric {
	return SearchMetric{
		Goroutines:   m.goroutines,
		Duration:     time.Since(m.startTime),
		Simulations:  int(m.simulations.Load()),
		FullPlayouts: int(m.fullPlayouts.Load()),
		Proofs:       int(m.proofs.Load()),
		Collisions:   m.collisions.Load(),
		Cutoff:       m.cutoff,
		IsTreeReset:  m.isTreeReset.Load(),
	}
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (m *dummyCollector) Start(goroutines, cutoff int) {}
func (m *dummyCollector) SetTreeReset(value bool)      {}
func (m *dummyCollector) SetCollisions(n int64)        {}
func (m *dummyCollector) AddFullPlayout()              {}
func (m *dummyCollector) AddSimulation()               {}
func (m *dummyCollector) AddProof()                    {}
func (m *dummyCollector) Complete() SearchMetric       { return SearchMetric{} }
