package game

import "golang.org/x/exp/rand"

// Zobrist holds one random key per (square, piece) pair plus one key per
// player to move. XOR-ing keys in and out keeps a position hash incremental.
type Zobrist struct {
	pieces int
	keys   []uint64
	side   [3]uint64
}

// NewZobrist builds a deterministic key table so equal positions hash equally
// across processes.
func NewZobrist(squares, pieces int, seed uint64) *Zobrist {
	rng := rand.New(rand.NewSource(seed))
	z := &Zobrist{
		pieces: pieces,
		keys:   make([]uint64, squares*pieces),
	}
	for i := range z.keys {
		z.keys[i] = rng.Uint64()
	}
	for i := range z.side {
		z.side[i] = rng.Uint64()
	}
	return z
}

// Piece returns the key of piece (0-based) standing on square.
func (z *Zobrist) Piece(square, piece int) StateHash {
	return StateHash(z.keys[square*z.pieces+piece])
}

// Side returns the key of the player to move.
func (z *Zobrist) Side(p Player) StateHash {
	return StateHash(z.side[p])
}
