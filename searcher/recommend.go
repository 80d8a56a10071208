package searcher

import (
	"math"

	"github.com/samber/lo"

	"mcts/game"
)

// arm is one root move with the statistics of every worker merged.
type arm struct {
	move game.Move
	// visits counts every visit, sampled only those that produced a result.
	visits  int
	sampled int
	sum     float64
	votes   int
	won     bool
	lost    bool
}

func (a *arm) mean() float64 {
	switch {
	case a.won:
		return 1
	case a.lost:
		return -1
	case a.sampled == 0:
		return 0
	}
	return a.sum / float64(a.sampled)
}

// merge folds the root children of all workers per move, in the order the
// first worker expanded them.
func merge(workers []*worker) []*arm {
	var arms []*arm
	index := make(map[game.Move]*arm)
	for _, w := range workers {
		for _, c := range w.root.children {
			a, ok := index[c.move]
			if !ok {
				a = &arm{move: c.move}
				index[c.move] = a
				arms = append(arms, a)
			}
			a.visits += c.stats.Visits()
			switch w.value(c) {
			case math.Inf(1):
				a.won = true
			case math.Inf(-1):
				a.lost = true
			default:
				a.sampled += c.stats.Visits()
				a.sum += c.stats.Mean() * float64(c.stats.Visits())
			}
		}
		if w.best != nil {
			if a, ok := index[w.best.move]; ok {
				a.votes++
			}
		}
	}
	return arms
}

// recommend picks the move to play: a proven win if any, else the most
// visited (or best mean) move among those not proven lost. Arms of an
// allocator are always ranked by mean.
func (m *MCTS) recommend(workers []*worker, moves []game.Move) Result {
	arms := merge(workers)
	if len(arms) == 0 {
		move := moves[m.rng.Intn(len(moves))]
		return Result{Move: move, Policy: map[game.Move]float64{move: 1}}
	}

	candidates := lo.Filter(arms, func(a *arm, _ int) bool { return a.won })
	if len(candidates) == 0 {
		candidates = lo.Reject(arms, func(a *arm, _ int) bool { return a.lost })
	}
	if len(candidates) == 0 {
		candidates = arms
	}
	if m.config.Allocator.Kind == SuccessiveRejects {
		candidates = top(candidates, func(a *arm) float64 { return float64(a.votes) })
	}
	if m.config.Final == BestMean || m.config.Allocator.Kind != NoAllocator {
		candidates = top(candidates, (*arm).mean)
	} else {
		candidates = top(candidates, func(a *arm) float64 { return float64(a.visits) })
	}
	chosen := candidates[m.rng.Intn(len(candidates))]

	total := lo.SumBy(arms, func(a *arm) int { return a.visits })
	policy := make(map[game.Move]float64, len(arms))
	for _, a := range arms {
		if total > 0 {
			policy[a.move] = float64(a.visits) / float64(total)
		} else {
			policy[a.move] = 1 / float64(len(arms))
		}
	}

	return Result{
		Move:   chosen.move,
		Policy: policy,
		Value:  chosen.mean(),
		Proven: chosen.won || lo.EveryBy(arms, func(a *arm) bool { return a.lost }),
	}
}

// top keeps the arms with the highest key.
func top(arms []*arm, key func(*arm) float64) []*arm {
	best := lo.MaxBy(arms, func(a, b *arm) bool { return key(a) > key(b) })
	return lo.Filter(arms, func(a *arm, _ int) bool { return key(a) == key(best) })
}
