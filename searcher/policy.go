package searcher

import (
	"math"
)

type uct struct {
	c    float64
	logN float64
}

func newUCT(c float64, N float64) *uct {
	if N == 0 {
		panic("N cannot be 0")
	}
	return &uct{c: c, logN: math.Log(N)}
}

func (u uct) evaluate(mean float64, n float64) float64 {
	if n == 0 {
		panic("n cannot be 0")
	}
	// UCT = mean + c*sqrt(ln(N)/n)
	return mean + u.c*math.Sqrt(u.logN/n)
}

// tuned is UCB1-Tuned: the exploration term is capped by the variance
// bound of the child. Results span [-1, 1] so the variance never exceeds 1.
func (u uct) tuned(mean float64, variance float64, n float64) float64 {
	if n == 0 {
		panic("n cannot be 0")
	}
	bound := variance + math.Sqrt(2*u.logN/n)
	return mean + u.c*math.Sqrt(u.logN/n*min(1, bound))
}

// selectChild picks the child of n to descend into. Proven wins come first,
// then unvisited children in move order, then the best score with ties
// broken at random. Proven losses score -Inf.
func (w *worker) selectChild(n *node) *node {
	for _, c := range n.children {
		if w.value(c) == math.Inf(1) {
			return c
		}
	}
	for _, c := range n.children {
		if w.visits(c) == 0 && w.value(c) != math.Inf(-1) {
			return c
		}
	}

	u := newUCT(w.config.Exploration, float64(max(1, w.visits(n))))
	bound := w.pruneBound(n)
	w.ties = w.ties[:0]
	best := math.Inf(-1)
	for _, c := range n.children {
		if c.im+w.config.Selection.PruneMargin < bound {
			continue
		}
		score := w.score(u, c)
		switch {
		case len(w.ties) == 0 || score > best:
			best = score
			w.ties = append(w.ties[:0], c)
		case score == best:
			w.ties = append(w.ties, c)
		}
	}
	return w.ties[w.rng.Intn(len(w.ties))]
}

func (w *worker) score(u *uct, c *node) float64 {
	mean := w.value(c)
	if math.IsInf(mean, 0) {
		return mean
	}
	if a := w.config.Selection.ImplicitMinimax; a > 0 {
		mean = (1-a)*mean + a*c.im
	}

	n := float64(w.visits(c))
	var score float64
	if w.config.Selection.Tuned {
		score = u.tuned(mean, w.variance(c), n)
	} else {
		score = u.evaluate(mean, n)
	}
	if weight := w.config.Selection.History; weight > 0 {
		score += weight * w.history.mean(c.player, c.move) / (n + 1)
	}
	return score
}

// pruneBound is the lower end of the best child's evaluation interval once
// the parent is visited enough, -Inf otherwise. Children whose interval
// lies entirely below it cannot become the parent's choice.
func (w *worker) pruneBound(n *node) float64 {
	sel := w.config.Selection
	if sel.ImplicitMinimax <= 0 || sel.PruneMargin <= 0 || w.visits(n) < sel.PruneVisits {
		return math.Inf(-1)
	}
	bound := math.Inf(-1)
	for _, c := range n.children {
		if w.value(c) == math.Inf(-1) {
			continue
		}
		bound = max(bound, c.im-sel.PruneMargin)
	}
	return bound
}
