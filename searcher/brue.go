package searcher

import (
	"math"
	"sync/atomic"

	"mcts/game"
)

type flatEntry struct {
	hash   game.StateHash
	depth  int
	visits int
	sum    float64
	valid  bool
}

// flatTable holds BRUE estimates keyed by the state after a move and the
// depth of that move. A slot keeps the shallowest write: deeper writes to an
// occupied slot are dropped, and so are writes for a different state unless
// they are shallower.
type flatTable struct {
	stripes
	entries    []flatEntry
	collisions atomic.Int64
}

func newFlatTable(size uint64) *flatTable {
	s, size := newStripes(size)
	return &flatTable{
		stripes: s,
		entries: make([]flatEntry, size),
	}
}

func (f *flatTable) lookup(hash game.StateHash, depth int) (float64, int, bool) {
	mu := f.lock(hash)
	mu.RLock()
	defer mu.RUnlock()

	e := f.entries[f.index(hash)]
	if !e.valid || e.hash != hash || e.depth != depth || e.visits == 0 {
		return 0, 0, false
	}
	return e.sum / float64(e.visits), e.visits, true
}

// update folds result into the estimate of (hash, depth) and reports false
// when the write was dropped.
func (f *flatTable) update(hash game.StateHash, depth int, result float64) bool {
	mu := f.lock(hash)
	mu.Lock()
	defer mu.Unlock()

	e := &f.entries[f.index(hash)]
	switch {
	case !e.valid:
		*e = flatEntry{hash: hash, depth: depth, valid: true}
	case e.hash == hash && e.depth == depth:
	case e.hash != hash:
		f.collisions.Add(1)
		if depth >= e.depth {
			return false
		}
		*e = flatEntry{hash: hash, depth: depth, valid: true}
	case depth < e.depth:
		*e = flatEntry{hash: hash, depth: depth, valid: true}
	default:
		return false
	}
	e.visits++
	e.sum += clamp(result)
	return true
}

func (f *flatTable) Collisions() int64 {
	return f.collisions.Load()
}

// expandBRUE probes the root moves. An immediate win proves the root and an
// immediate loss is never sampled.
func (w *worker) expandBRUE(root *node) {
	if root.expanded {
		return
	}
	root.expanded = true
	mover := w.state.Player()
	for _, move := range w.state.LegalMoves() {
		c := &node{move: move, player: mover}
		if !w.state.Apply(move, mover) {
			continue
		}
		c.hash, c.hashed = w.state.Hash(), true
		score := w.state.Outcome().Score(c.player)
		terminal := w.state.Outcome().Terminal()
		w.state.Undo()

		root.children = append(root.children, c)
		if !terminal || score == 0 {
			continue
		}
		c.terminal = true
		w.solve(c, math.Copysign(math.Inf(1), score))
		if score > 0 {
			w.prove(root, sign(mover, root.player))
			return
		}
	}
	if len(root.children) > 0 && w.allLost(root) {
		w.prove(root, -sign(mover, root.player))
	}
}

// brue runs simulation i. Moves above the switching depth sigma are
// sampled uniformly, deeper moves greedily from the flat table, and only the
// estimate of the last uniformly sampled move is updated.
func (w *worker) brue(i int) {
	root := w.root
	horizon := w.config.Allocator.Horizon
	sigma := switchingDepth(horizon, i)

	plies := 0
	defer func() {
		for ; plies > 0; plies-- {
			w.state.Undo()
		}
	}()

	alive := w.ties[:0]
	for _, c := range root.children {
		if !w.lost(c) {
			alive = append(alive, c)
		}
	}
	if len(alive) == 0 {
		return
	}
	first := alive[w.rng.Intn(len(alive))]
	if !w.state.Apply(first.move, first.player) {
		first.stats.Solve(math.Inf(-1))
		return
	}
	plies++

	target := first.player
	targetHash, targetDepth := w.state.Hash(), 0
	noMoves := false
	var result float64
	for depth := 1; depth < horizon && !w.state.Outcome().Terminal(); depth++ {
		mover := w.state.Player()
		moves := w.state.LegalMoves()
		pick := w.uniform
		if depth >= sigma {
			pick = w.greedy(depth)
		}
		if _, ok := w.applyAny(moves, mover, pick); !ok {
			noMoves = true
			result = w.noMovesScore(mover, target)
			break
		}
		plies++
		if depth <= sigma-1 {
			target, targetHash, targetDepth = mover, w.state.Hash(), depth
		}
	}

	switch o := w.state.Outcome(); {
	case noMoves:
	case o.Terminal():
		w.metrics.AddFullPlayout()
		result = o.Score(target)
	default:
		result = w.playout(target)
	}

	w.flat.update(targetHash, targetDepth, result)
	if targetDepth == 0 {
		first.stats.Push(result)
		root.stats.Push(sign(first.player, root.player) * result)
	}
}

// switchingDepth cycles from horizon down to 1 over consecutive
// simulations.
func switchingDepth(horizon, i int) int {
	return horizon - (i-1)%horizon
}

// greedy picks the move with the best estimate at depth among the moves
// with one, or uniformly when none has.
func (w *worker) greedy(depth int) func([]game.Move, game.Player) int {
	return func(moves []game.Move, mover game.Player) int {
		best := math.Inf(-1)
		index := -1
		for i, move := range moves {
			if !w.state.Apply(move, mover) {
				continue
			}
			mean, _, ok := w.flat.lookup(w.state.Hash(), depth)
			w.state.Undo()
			if ok && mean > best {
				best, index = mean, i
			}
		}
		if index < 0 {
			return w.rng.Intn(len(moves))
		}
		return index
	}
}
