package searcher

import (
	"math"
	"slices"

	"github.com/samber/lo"

	"mcts/game"
)

// Schedule returns, for Successive Rejects over k arms with a budget of n
// simulations, the cumulative number of pulls each arm alive in round r has
// received once round r ends (r = 1..k-1). Every round gives each alive arm
// at least one pull, so small budgets run out before the last round.
func Schedule(k, n int) []int {
	if k < 2 {
		return nil
	}
	logK := 0.5
	for i := 2; i <= k; i++ {
		logK += 1 / float64(i)
	}
	rounds := make([]int, k-1)
	prev := 0
	for r := 1; r < k; r++ {
		pulls := math.Ceil(float64(n-k) / (logK * float64(k+1-r)))
		rounds[r-1] = max(prev+1, int(pulls))
		prev = rounds[r-1]
	}
	return rounds
}

// allocation is the outcome of Successive Rejects at one node. Values are
// seen from the node's player.
type allocation struct {
	pulls int
	sum   float64
	// value is what the node folded in per pull, or its proof.
	value      float64
	best       *node
	proven     bool
	stopped    bool
	eliminated []game.Move
}

// allocate spends up to budget simulations on the children of n with
// Successive Rejects, the state positioned at n. Below the allocator depth
// every pull is one ordinary simulation.
func (w *worker) allocate(n *node, depth, budget int) allocation {
	var a allocation
	if !n.expanded {
		if v, done := w.expand(n); done {
			a.value, a.proven = v, true
			return a
		}
	}
	if n.stats.Solved() {
		a.value, a.proven = n.stats.Value(), true
		return a
	}
	if n.terminal {
		a.value, a.proven = w.settle(n, w.noMoves(n)), true
		return a
	}

	s := sign(n.children[0].player, n.player)
	if _, won := lo.Find(n.children, w.won); won {
		a.value, a.proven = w.prove(n, s), true
		return a
	}
	alive := lo.Reject(n.children, func(c *node, _ int) bool { return w.lost(c) })
	if len(alive) == 0 {
		a.value, a.proven = w.prove(n, -s), true
		return a
	}

	rounds := Schedule(len(alive), budget)
	finalists := alive
	prev := 0
	for r := 0; len(alive) > 1 && r < len(rounds) && a.pulls < budget; r++ {
		finalists = slices.Clone(alive)
		w.round(n, alive, rounds[r]-prev, depth, budget, &a)
		prev = rounds[r]
		if a.proven || a.stopped {
			break
		}
		var out []*node
		alive, out = w.eliminate(alive)
		for _, c := range out {
			a.eliminated = append(a.eliminated, c.move)
		}
	}
	if !a.proven && !a.stopped && a.pulls < budget && len(alive) == 1 {
		// The survivor takes what the rounds left.
		w.round(n, alive, budget-a.pulls, depth, budget, &a)
	}
	if a.proven {
		return a
	}
	if len(alive) == 0 {
		n.terminal = true
		a.value, a.proven = w.settle(n, w.noMoves(n)), true
		return a
	}

	a.best = w.bestArm(alive)
	switch w.config.Allocator.Backprop {
	case AverageBackprop:
		if a.pulls > 0 {
			a.value = a.sum / float64(a.pulls)
		}
	case MaxBackprop:
		a.value = s * clamp(w.value(a.best))
		w.recordN(n, a.value, a.pulls)
	case RangeBackprop:
		a.value = s * lo.SumBy(finalists, func(c *node) float64 { return clamp(w.value(c)) }) / float64(len(finalists))
		w.recordN(n, a.value, a.pulls)
	}
	if w.table != nil && n.hashed && a.pulls > 0 {
		w.table.AddBudget(n.hash, a.pulls)
	}
	return a
}

// round gives each alive arm per more pulls in a shuffled rotation, within
// budget. Pulls a batch leaves unspent pass to the next arm.
func (w *worker) round(n *node, alive []*node, per, depth, budget int, a *allocation) {
	order := w.rng.Perm(len(alive))
	if depth+1 < w.config.Allocator.Depth {
		carry := 0
		for _, j := range order {
			k := min(per+carry, budget-a.pulls)
			if k <= 0 {
				return
			}
			before := a.pulls
			w.batch(n, alive[j], depth, k, a)
			if a.proven || a.stopped {
				return
			}
			carry = max(0, k-(a.pulls-before))
		}
		return
	}
	for p := 0; p < per; p++ {
		for _, j := range order {
			if a.pulls >= budget {
				return
			}
			w.pull(n, alive[j], depth, a)
			if a.proven || a.stopped {
				return
			}
		}
	}
}

// pull runs one simulation through arm c.
func (w *worker) pull(n, c *node, depth int, a *allocation) {
	if w.lost(c) {
		return
	}
	if _, ok := w.budget.claim(); !ok {
		a.stopped = true
		return
	}
	r, legal := w.descend(c, depth+1)
	w.metrics.AddSimulation()
	if !legal {
		c.stats.Solve(math.Inf(-1))
		w.drop(n, c)
		return
	}
	v, proven := w.resolve(n, c, r)
	if proven {
		a.value, a.proven = v, true
		return
	}
	a.pulls++
	a.sum += v
	if w.config.Allocator.Backprop == AverageBackprop {
		w.record(n, v)
	}
}

// batch hands k pulls to arm c, which runs its own Successive Rejects.
func (w *worker) batch(n, c *node, depth, k int, a *allocation) {
	for ; k > 0 && (c.stats.Visits() == 0 || c.terminal); k-- {
		w.pull(n, c, depth, a)
		if a.proven || a.stopped || w.lost(c) {
			return
		}
	}
	if k <= 0 || w.lost(c) {
		return
	}
	sub, legal := w.allocateAt(c, depth+1, k)
	if !legal {
		c.stats.Solve(math.Inf(-1))
		w.drop(n, c)
		return
	}
	a.stopped = sub.stopped
	if sub.proven {
		v, proven := w.resolve(n, c, sub.value)
		if proven {
			a.value, a.proven = v, true
			return
		}
		// The proving simulation is not among sub.pulls.
		spent := sub.pulls + 1
		a.pulls += spent
		a.sum += v * float64(spent)
		if w.config.Allocator.Backprop == AverageBackprop {
			w.recordN(n, v, spent)
		}
		return
	}
	if sub.pulls == 0 {
		return
	}
	v := sign(c.player, n.player) * sub.value
	a.pulls += sub.pulls
	a.sum += v * float64(sub.pulls)
	if w.config.Allocator.Backprop == AverageBackprop {
		w.recordN(n, v, sub.pulls)
	}
}

// allocateAt runs Successive Rejects at c, moving the state to c and back.
// It reports false when the game rejects c's move.
func (w *worker) allocateAt(c *node, depth, k int) (allocation, bool) {
	if !w.state.Apply(c.move, c.player) {
		return allocation{}, false
	}
	defer w.state.Undo()

	w.verify(c)
	return w.allocate(c, depth, k), true
}

// eliminate removes every proven loss, or else the arm with the lowest mean.
func (w *worker) eliminate(alive []*node) ([]*node, []*node) {
	if lost := lo.Filter(alive, func(c *node, _ int) bool { return w.lost(c) }); len(lost) > 0 {
		return lo.Without(alive, lost...), lost
	}
	worst := w.extreme(alive, -1)
	return lo.Without(alive, worst), []*node{worst}
}

func (w *worker) bestArm(alive []*node) *node {
	return w.extreme(alive, 1)
}

// extreme returns the arm maximizing dir*value, ties broken at random.
func (w *worker) extreme(arms []*node, dir float64) *node {
	w.ties = w.ties[:0]
	best := math.Inf(-1)
	for _, c := range arms {
		v := dir * w.value(c)
		switch {
		case len(w.ties) == 0 || v > best:
			best = v
			w.ties = append(w.ties[:0], c)
		case v == best:
			w.ties = append(w.ties, c)
		}
	}
	return w.ties[w.rng.Intn(len(w.ties))]
}

func (w *worker) won(c *node) bool {
	return w.value(c) == math.Inf(1)
}

func (w *worker) lost(c *node) bool {
	return w.value(c) == math.Inf(-1)
}
