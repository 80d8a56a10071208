package searcher

import (
	"fmt"
	"math"

	"mcts/game"
)

type node struct {
	move game.Move
	// player made move, results are seen from this player.
	player   game.Player
	hash     game.StateHash
	hashed   bool
	stats    Stats
	children []*node
	expanded bool
	terminal bool
	// im is the implicit minimax value for player, the static evaluation
	// until the node is expanded.
	im float64
}

func newRoot(state game.State) *node {
	return &node{
		player: state.Player().Opponent(),
		hash:   state.Hash(),
		hashed: true,
	}
}

// minimax is the node's implicit minimax value with proofs mapped to ±1.
func (n *node) minimax() float64 {
	if n.stats.Solved() {
		return clamp(n.stats.Value())
	}
	return n.im
}

func (n *node) size() int {
	size := 1
	for _, c := range n.children {
		size += c.size()
	}
	return size
}

// sign converts a result seen from a into one seen from b.
func sign(a, b game.Player) float64 {
	if a == b {
		return 1
	}
	return -1
}

func clamp(v float64) float64 {
	return max(-1, min(1, v))
}

// search runs one simulation below n with the state positioned at n. The
// result is seen from n.player, ±Inf when proven.
func (w *worker) search(n *node, depth int) float64 {
	if !n.expanded {
		if v, done := w.expand(n); done {
			return v
		}
	}
	if n.terminal {
		return w.settle(n, w.noMoves(n))
	}

	for len(n.children) > 0 {
		child := w.selectChild(n)
		r, legal := w.descend(child, depth+1)
		if legal {
			return w.backup(n, child, r)
		}
		w.drop(n, child)
	}

	n.terminal = true
	return w.settle(n, w.noMoves(n))
}

// descend plays c and returns its result seen from c.player. It reports
// false when the game rejects the move.
func (w *worker) descend(c *node, depth int) (float64, bool) {
	if c.stats.Solved() {
		c.stats.Push(0)
		return c.stats.Value(), true
	}
	if !w.state.Apply(c.move, c.player) {
		return 0, false
	}
	defer w.state.Undo()

	w.verify(c)
	if w.adopt(c) {
		c.stats.Push(0)
		return c.stats.Value(), true
	}
	if o := w.state.Outcome(); o.Terminal() {
		c.terminal = true
		return w.settle(c, o.Score(c.player)), true
	}
	if c.stats.Visits() == 0 {
		r := w.playout(c.player)
		w.record(c, r)
		return r, true
	}
	return w.search(c, depth), true
}

// expand creates one child per legal move. It reports true, with the
// node's result, when expansion alone settles the node: a proven win was
// found or no move is legal.
func (w *worker) expand(n *node) (float64, bool) {
	n.expanded = true
	mover := w.state.Player()
	moves := w.state.LegalMoves()
	n.children = make([]*node, 0, len(moves))

	probes := w.config.probes()
	for _, move := range moves {
		c := &node{move: move, player: mover}
		if probes && !w.probe(c) {
			continue
		}
		n.children = append(n.children, c)
		if w.config.Solver && c.stats.Value() == math.Inf(1) {
			return w.prove(n, sign(mover, n.player)), true
		}
	}

	if len(n.children) == 0 {
		n.terminal = true
		return w.settle(n, w.noMoves(n)), true
	}
	w.refreshMinimax(n)
	return 0, false
}

// probe applies c's move to read its hash, outcome and evaluation, then
// undoes it. It reports false for an illegal move.
func (w *worker) probe(c *node) bool {
	if !w.state.Apply(c.move, c.player) {
		return false
	}
	defer w.state.Undo()

	c.hash, c.hashed = w.state.Hash(), true
	if o := w.state.Outcome(); o.Terminal() {
		c.terminal = true
		c.im = o.Score(c.player)
		if w.config.Solver && c.im != 0 {
			w.solve(c, math.Copysign(math.Inf(1), c.im))
		}
		return true
	}
	if w.config.Selection.ImplicitMinimax > 0 {
		c.im = w.evaluate(c.player)
	}
	w.adopt(c)
	return true
}

// verify checks the state against the hash recorded for c. A mismatch means
// apply and undo went out of step, which is not recoverable.
func (w *worker) verify(c *node) {
	hash := w.state.Hash()
	if !c.hashed {
		c.hash, c.hashed = hash, true
		return
	}
	if w.table != nil && hash != c.hash {
		panic(fmt.Errorf("%w: move %v expected hash %d, got %d", ErrStateMismatch, c.move, c.hash, hash))
	}
}

// drop removes a child whose move the game rejected.
func (w *worker) drop(n, c *node) {
	for i, child := range n.children {
		if child == c {
			n.children = append(n.children[:i], n.children[i+1:]...)
			return
		}
	}
}

// record folds v, seen from n.player, into the node and its shared entry.
func (w *worker) record(n *node, v float64) {
	w.recordN(n, v, 1)
}

func (w *worker) recordN(n *node, v float64, k int) {
	if k <= 0 {
		return
	}
	n.stats.PushN(v, k)
	if size := w.config.Selection.Window; size > 0 && !n.stats.Windowed() && n.stats.Visits() >= 2 {
		n.stats.SetWindow(w.windowSize(size))
	}
	if w.table != nil && n.hashed {
		w.table.Record(n.hash, n.player, v, k)
	}
	if n.expanded {
		w.refreshMinimax(n)
	}
}

// windowSize shrinks the window with the remaining budget.
func (w *worker) windowSize(largest int) int {
	size := int(math.Round(float64(largest) * w.budget.remaining()))
	return max(1, min(largest, max(w.config.Selection.WindowMin, size)))
}

func (w *worker) refreshMinimax(n *node) {
	if w.config.Selection.ImplicitMinimax <= 0 || len(n.children) == 0 {
		return
	}
	best := math.Inf(-1)
	for _, c := range n.children {
		best = max(best, c.minimax())
	}
	n.im = sign(n.children[0].player, n.player) * best
}

// visits reads through the transposition table when the node's state is
// in it. A windowed node only counts its window.
func (w *worker) visits(n *node) int {
	if e, ok := w.statistics(n); ok {
		return e.Visits
	}
	return n.stats.N()
}

// value is the node's mean or proof, seen from n.player. Shared proofs
// apply to windowed nodes too.
func (w *worker) value(n *node) float64 {
	if n.stats.Solved() {
		return n.stats.Value()
	}
	if e, ok := w.entry(n); ok && (e.Solved() || !n.stats.Windowed()) {
		return e.Value(n.player)
	}
	return n.stats.Mean()
}

// variance comes from the same record as visits.
func (w *worker) variance(n *node) float64 {
	if e, ok := w.statistics(n); ok && !e.Solved() {
		return e.Variance()
	}
	return n.stats.Variance()
}

// statistics is the shared record of n for visits, mean and variance. A
// windowed node keeps its own.
func (w *worker) statistics(n *node) (Entry, bool) {
	if n.stats.Windowed() {
		return Entry{}, false
	}
	return w.entry(n)
}

func (w *worker) entry(n *node) (Entry, bool) {
	if w.table == nil || !n.hashed {
		return Entry{}, false
	}
	e, ok := w.table.Lookup(n.hash)
	if !ok || (e.Visits == 0 && !e.Solved()) {
		return Entry{}, false
	}
	return e, true
}
