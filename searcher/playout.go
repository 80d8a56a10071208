package searcher

import (
	"math"

	"mcts/game"
)

// playout plays from the current state until the game ends, or for cutoff
// plies, and scores the last position for player. Every applied move is
// undone before returning.
func (w *worker) playout(player game.Player) float64 {
	plies := 0
	defer func() {
		for ; plies > 0; plies-- {
			w.state.Undo()
		}
	}()

	w.trail = w.trail[:0]
	var result float64
	for {
		if o := w.state.Outcome(); o.Terminal() {
			w.metrics.AddFullPlayout()
			result = o.Score(player)
			break
		}
		if cutoff := w.config.Playout.Cutoff; cutoff > 0 && plies >= cutoff {
			result = w.evaluate(player)
			break
		}
		mover := w.state.Player()
		heuristics := w.config.Playout.Policy == HeuristicPlayout
		move, ok := w.applyAny(w.state.PlayoutMoves(heuristics), mover, w.pick)
		if !ok {
			result = w.noMovesScore(mover, player)
			break
		}
		plies++
		w.trail = append(w.trail, historyKey{player: mover, move: move})
	}

	if w.history != nil {
		for _, k := range w.trail {
			w.history.update(k.player, k.move, sign(player, k.player)*result)
		}
	}
	return result
}

// applyAny applies one of moves for mover, chosen by pick, dropping moves
// the game rejects. moves is reordered.
func (w *worker) applyAny(moves []game.Move, mover game.Player, pick func([]game.Move, game.Player) int) (game.Move, bool) {
	for len(moves) > 0 {
		i := pick(moves, mover)
		move := moves[i]
		if w.state.Apply(move, mover) {
			return move, true
		}
		last := len(moves) - 1
		moves[i] = moves[last]
		moves = moves[:last]
	}
	return nil, false
}

func (w *worker) pick(moves []game.Move, mover game.Player) int {
	if w.config.Playout.Policy != MASTPlayout || w.rng.Float64() < w.config.Playout.Epsilon {
		return w.uniform(moves, mover)
	}
	best := math.Inf(-1)
	choices := 0
	index := 0
	for i, move := range moves {
		v := w.history.mean(mover, move)
		switch {
		case v > best:
			best, choices, index = v, 1, i
		case v == best:
			// Reservoir sampling over the tied moves.
			choices++
			if w.rng.Intn(choices) == 0 {
				index = i
			}
		}
	}
	return index
}

func (w *worker) uniform(moves []game.Move, _ game.Player) int {
	return w.rng.Intn(len(moves))
}

// evaluate scores the current state for player, clamped to [-1, 1].
func (w *worker) evaluate(player game.Player) float64 {
	return clamp(w.evaluator(w.state, player))
}
