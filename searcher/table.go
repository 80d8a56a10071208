package searcher

import (
	"math"
	"sync"
	"sync/atomic"

	"mcts/game"
)

const maxStripes = 64

// Entry is the shared record of one state hash.
type Entry struct {
	Hash   game.StateHash
	Visits int
	// Wins per player, a draw counts half for each side.
	Wins [3]float64
	// Squares sums the squared results, the same for both players.
	Squares  float64
	SolvedBy game.Player
	// Budget is the number of simulations an allocator spent at this hash.
	Budget int
	valid  bool
}

// Mean is the average result for p in [-1, 1].
func (e Entry) Mean(p game.Player) float64 {
	if e.Visits == 0 {
		return 0
	}
	return (e.Wins[p] - e.Wins[p.Opponent()]) / float64(e.Visits)
}

// Variance of the results around the mean.
func (e Entry) Variance() float64 {
	if e.Visits < 2 {
		return 0
	}
	mean := e.Mean(game.Player1)
	return max(0, e.Squares/float64(e.Visits)-mean*mean)
}

func (e Entry) Solved() bool {
	return e.SolvedBy != game.None
}

// Value is the proven sentinel for p if solved, else the mean.
func (e Entry) Value(p game.Player) float64 {
	switch e.SolvedBy {
	case game.None:
		return e.Mean(p)
	case p:
		return math.Inf(1)
	default:
		return math.Inf(-1)
	}
}

// stripes guards a power-of-two slot array with a bounded number of locks.
type stripes struct {
	mask       uint64
	locks      []sync.RWMutex
	stripeMask uint64
}

func newStripes(size uint64) (stripes, uint64) {
	if size < 1 {
		size = 1
	}
	if size&(size-1) != 0 {
		size = nextPowerOfTwo(size)
	}
	n := maxStripes
	if size < uint64(n) {
		n = int(size)
	}
	return stripes{
		mask:       size - 1,
		locks:      make([]sync.RWMutex, n),
		stripeMask: uint64(n - 1),
	}, size
}

func (s *stripes) index(hash game.StateHash) int {
	return int(uint64(hash) & s.mask)
}

func (s *stripes) lock(hash game.StateHash) *sync.RWMutex {
	return &s.locks[uint64(hash)&s.mask&s.stripeMask]
}

func (s *stripes) lockAll() {
	for i := range s.locks {
		s.locks[i].Lock()
	}
}

func (s *stripes) unlockAll() {
	for i := range s.locks {
		s.locks[i].Unlock()
	}
}

func nextPowerOfTwo(v uint64) uint64 {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v |= v >> 32
	return v + 1
}

// Table is a fixed-size transposition table shared by all workers. A slot
// holds one entry; a different hash landing on an occupied slot replaces
// the occupant and counts a collision.
type Table struct {
	stripes
	entries    []Entry
	collisions atomic.Int64
	count      atomic.Int64
}

func NewTable(size uint64) *Table {
	s, size := newStripes(size)
	return &Table{
		stripes: s,
		entries: make([]Entry, size),
	}
}

func (t *Table) Lookup(hash game.StateHash) (Entry, bool) {
	mu := t.lock(hash)
	mu.RLock()
	defer mu.RUnlock()

	e := t.entries[t.index(hash)]
	if !e.valid || e.Hash != hash {
		return Entry{}, false
	}
	return e, true
}

func (t *Table) LookupOrCreate(hash game.StateHash) Entry {
	mu := t.lock(hash)
	mu.Lock()
	defer mu.Unlock()

	return *t.slot(hash)
}

// slot returns the entry for hash, claiming the slot if needed. The caller
// holds the stripe lock.
func (t *Table) slot(hash game.StateHash) *Entry {
	e := &t.entries[t.index(hash)]
	if e.valid && e.Hash == hash {
		return e
	}
	if e.valid {
		t.collisions.Add(1)
	} else {
		t.count.Add(1)
	}
	*e = Entry{Hash: hash, valid: true}
	return e
}

// Update folds result, seen from player, into the entry for hash. It reports
// false when the entry is solved and the update was rejected.
func (t *Table) Update(hash game.StateHash, player game.Player, result float64) bool {
	return t.Record(hash, player, result, 1)
}

// Record folds result k times under one lock.
func (t *Table) Record(hash game.StateHash, player game.Player, result float64, k int) bool {
	mu := t.lock(hash)
	mu.Lock()
	defer mu.Unlock()

	e := t.slot(hash)
	if e.Solved() {
		return false
	}
	result = max(-1, min(1, result))
	e.Visits += k
	e.Wins[player] += float64(k) * (1 + result) / 2
	e.Wins[player.Opponent()] += float64(k) * (1 - result) / 2
	e.Squares += float64(k) * result * result
	return true
}

// Solve marks hash as won by winner. Proofs are final.
func (t *Table) Solve(hash game.StateHash, winner game.Player) {
	mu := t.lock(hash)
	mu.Lock()
	defer mu.Unlock()

	e := t.slot(hash)
	if !e.Solved() {
		e.SolvedBy = winner
	}
}

func (t *Table) AddBudget(hash game.StateHash, n int) {
	mu := t.lock(hash)
	mu.Lock()
	defer mu.Unlock()

	t.slot(hash).Budget += n
}

// Compact drops entries with fewer than minVisits visits, keeping solved
// entries and entries an allocator spent budget on. It returns the number of
// removed entries.
func (t *Table) Compact(minVisits int) int {
	t.lockAll()
	defer t.unlockAll()

	removed := 0
	for i := range t.entries {
		e := &t.entries[i]
		if !e.valid || e.Solved() || e.Budget > 0 || e.Visits >= minVisits {
			continue
		}
		*e = Entry{}
		removed++
	}
	t.count.Add(-int64(removed))
	return removed
}

func (t *Table) Collisions() int64 {
	return t.collisions.Load()
}

func (t *Table) Count() int {
	return int(t.count.Load())
}

func (t *Table) Clear() {
	t.lockAll()
	defer t.unlockAll()

	for i := range t.entries {
		t.entries[i] = Entry{}
	}
	t.count.Store(0)
	t.collisions.Store(0)
}
