package searcher

import (
	"math"

	"github.com/samber/lo"

	"mcts/game"
)

// backup folds the result r of child c, seen from c.player, into n and
// returns n's result seen from n.player.
func (w *worker) backup(n, c *node, r float64) float64 {
	v, proven := w.resolve(n, c, r)
	if !proven {
		w.record(n, v)
	}
	return v
}

// resolve applies the solver step to a child result, the state positioned
// at n. A proven win for the mover proves n, a proven loss proves n only
// once every sibling is lost and otherwise counts as an ordinary loss. It
// reports true when n was proven.
func (w *worker) resolve(n, c *node, r float64) (float64, bool) {
	if w.history != nil {
		w.history.update(c.player, c.move, clamp(r))
	}
	s := sign(c.player, n.player)
	if !w.config.Solver || !math.IsInf(r, 0) {
		return s * clamp(r), false
	}
	if r > 0 {
		return w.prove(n, s), true
	}
	if w.siblingsLost(n) {
		return w.prove(n, -s), true
	}
	return -s, false
}

// siblingsLost reports whether every child of n is lost, expanding each
// unexpanded child on the way so proofs one ply down are found now. It stops
// at the first child that is not lost.
func (w *worker) siblingsLost(n *node) bool {
	for _, c := range n.children {
		if !c.expanded && !c.terminal && !c.stats.Solved() {
			w.expandChild(c)
		}
		if !w.lost(c) {
			return false
		}
	}
	return true
}

// expandChild expands c in place, the state positioned at c's parent.
func (w *worker) expandChild(c *node) {
	if !w.state.Apply(c.move, c.player) {
		return
	}
	defer w.state.Undo()

	w.verify(c)
	if w.adopt(c) {
		return
	}
	if o := w.state.Outcome(); o.Terminal() {
		c.terminal = true
		return
	}
	w.expand(c)
}

// prove solves n as a win (s > 0) or a loss (s < 0) for n.player and counts
// the visit.
func (w *worker) prove(n *node, s float64) float64 {
	v := math.Copysign(math.Inf(1), s)
	w.solve(n, v)
	n.stats.Push(v)
	return v
}

func (w *worker) solve(n *node, v float64) {
	n.stats.Solve(v)
	n.im = clamp(v)
	w.metrics.AddProof()
	if w.table == nil || !n.hashed {
		return
	}
	winner := n.player
	if v < 0 {
		winner = n.player.Opponent()
	}
	w.table.Solve(n.hash, winner)
}

// adopt copies a proof another path or worker recorded for c's state.
func (w *worker) adopt(c *node) bool {
	if !w.config.Solver || c.stats.Solved() {
		return c.stats.Solved()
	}
	e, ok := w.entry(c)
	if !ok || !e.Solved() {
		return false
	}
	c.stats.Solve(e.Value(c.player))
	c.im = clamp(c.stats.Value())
	return true
}

func (w *worker) allLost(n *node) bool {
	return lo.EveryBy(n.children, func(c *node) bool {
		return w.value(c) == math.Inf(-1)
	})
}

// settle records a terminal result v of n, proving n when the solver is on
// and v is decisive.
func (w *worker) settle(n *node, v float64) float64 {
	if w.config.Solver && v != 0 {
		if n.stats.Solved() {
			n.stats.Push(v)
			return n.stats.Value()
		}
		return w.prove(n, v)
	}
	w.record(n, v)
	return v
}

// noMoves scores a node whose mover has no legal move.
func (w *worker) noMoves(n *node) float64 {
	return w.noMovesScore(w.state.Player(), n.player)
}

// noMovesScore is the result for player when mover cannot move.
func (w *worker) noMovesScore(mover, player game.Player) float64 {
	if !w.state.NoMovesIsLoss() {
		return 0
	}
	return -sign(mover, player)
}
