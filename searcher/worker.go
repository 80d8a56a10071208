package searcher

import (
	"errors"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"

	"mcts/game"
	"mcts/metrics"
)

// worker owns one tree and a private copy of the game state. Only the
// transposition and BRUE tables are shared with other workers.
type worker struct {
	id        int
	config    Config
	state     game.State
	root      *node
	rng       *rand.Rand
	table     *Table
	flat      *flatTable
	history   *history
	budget    *budget
	metrics   metrics.Collector
	evaluator game.Evaluate
	// share is this worker's part of a Successive Rejects budget.
	share int
	best  *node
	trail []historyKey
	ties  []*node
}

// run simulates until the budget runs out or the root is solved. A state
// mismatch aborts the worker with an error; other panics propagate.
func (w *worker) run() (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		e, ok := r.(error)
		if !ok || !errors.Is(e, ErrStateMismatch) {
			panic(r)
		}
		log.Error().Err(e).Int("worker", w.id).Msg("search aborted")
		w.budget.halt()
		err = e
	}()

	switch w.config.Allocator.Kind {
	case SuccessiveRejects:
		a := w.allocate(w.root, 0, w.share)
		w.best = a.best
		log.Debug().
			Int("worker", w.id).
			Int("pulls", a.pulls).
			Int("eliminated", len(a.eliminated)).
			Bool("proven", a.proven).
			Msg("allocation-complete")
	case BRUE:
		w.expandBRUE(w.root)
		for !w.root.stats.Solved() {
			i, ok := w.budget.claim()
			if !ok {
				break
			}
			w.brue(i)
			w.metrics.AddSimulation()
		}
	default:
		for !w.root.stats.Solved() {
			if _, ok := w.budget.claim(); !ok {
				break
			}
			w.search(w.root, 0)
			w.metrics.AddSimulation()
		}
	}

	if w.root.stats.Solved() {
		w.budget.halt()
	}
	return nil
}
