package searcher

import (
	"context"
	"sync/atomic"
	"time"
)

// budget is shared by the workers of one search. Workers claim one
// simulation at a time; a claim fails once the simulations or the time are
// used up, the search was stopped or the root was solved.
type budget struct {
	ctx      context.Context
	limit    int64
	start    time.Time
	deadline time.Time
	stop     *atomic.Bool
	count    atomic.Int64
	halted   atomic.Bool
}

func newBudget(ctx context.Context, limit int, stop *atomic.Bool) *budget {
	b := &budget{
		ctx:   ctx,
		limit: int64(limit),
		start: time.Now(),
		stop:  stop,
	}
	if deadline, ok := ctx.Deadline(); ok {
		b.deadline = deadline
	}
	return b
}

// claim returns the 1-based index of the next simulation.
func (b *budget) claim() (int, bool) {
	if b.halted.Load() || b.stop.Load() || b.ctx.Err() != nil {
		return 0, false
	}
	if !b.deadline.IsZero() && !time.Now().Before(b.deadline) {
		return 0, false
	}
	for {
		n := b.count.Load()
		if b.limit > 0 && n >= b.limit {
			return 0, false
		}
		if b.count.CompareAndSwap(n, n+1) {
			return int(n + 1), true
		}
	}
}

// halt ends the search for every worker.
func (b *budget) halt() {
	b.halted.Store(true)
}

func (b *budget) used() int {
	return int(b.count.Load())
}

// remaining is the unused share of the budget in [0, 1].
func (b *budget) remaining() float64 {
	switch {
	case b.limit > 0:
		return clamp(1 - float64(b.count.Load())/float64(b.limit))
	case !b.deadline.IsZero():
		total := b.deadline.Sub(b.start)
		if total <= 0 {
			return 0
		}
		return max(0, clamp(1-float64(time.Since(b.start))/float64(total)))
	}
	return 1
}
