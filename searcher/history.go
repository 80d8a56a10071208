package searcher

import "mcts/game"

type historyKey struct {
	player game.Player
	move   game.Move
}

type historyStat struct {
	sum   float64
	count int
}

// history is the per-worker MAST table: the average result of each move for
// the player who made it, over every simulation that played it.
type history struct {
	stats map[historyKey]*historyStat
}

func newHistory() *history {
	return &history{stats: make(map[historyKey]*historyStat)}
}

func (h *history) update(player game.Player, move game.Move, result float64) {
	key := historyKey{player, move}
	s, ok := h.stats[key]
	if !ok {
		s = &historyStat{}
		h.stats[key] = s
	}
	s.sum += max(-1, min(1, result))
	s.count++
}

// mean is 0 for moves never played.
func (h *history) mean(player game.Player, move game.Move) float64 {
	s, ok := h.stats[historyKey{player, move}]
	if !ok || s.count == 0 {
		return 0
	}
	return s.sum / float64(s.count)
}

func (h *history) count(player game.Player, move game.Move) int {
	if s, ok := h.stats[historyKey{player, move}]; ok {
		return s.count
	}
	return 0
}
