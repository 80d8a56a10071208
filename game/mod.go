package game

import "fmt"

// Move is an action applied to a State. Implementations must be comparable
// since moves key the search statistics.
type Move interface {
	fmt.Stringer
}

type StateHash uint64

// Player identifies a side. None is used for roots whose owner is unknown
// and for unsolved transposition entries.
type Player int8

const (
	None Player = iota
	Player1
	Player2
)

func (p Player) Opponent() Player {
	switch p {
	case Player1:
		return Player2
	case Player2:
		return Player1
	}
	return None
}

func (p Player) String() string {
	switch p {
	case Player1:
		return "P1"
	case Player2:
		return "P2"
	}
	return "none"
}

type Outcome int8

const (
	Ongoing Outcome = iota
	Player1Win
	Player2Win
	Draw
)

// WinOutcome returns the outcome in which p wins.
func WinOutcome(p Player) Outcome {
	switch p {
	case Player1:
		return Player1Win
	case Player2:
		return Player2Win
	}
	return Draw
}

func (o Outcome) Winner() Player {
	switch o {
	case Player1Win:
		return Player1
	case Player2Win:
		return Player2
	}
	return None
}

func (o Outcome) Terminal() bool {
	return o != Ongoing
}

// Score returns the outcome from p's perspective: +1 win, -1 loss, 0 draw
// (or game still running).
func (o Outcome) Score(p Player) float64 {
	winner := o.Winner()
	switch {
	case winner == None:
		return 0
	case winner == p:
		return 1
	default:
		return -1
	}
}

func (o Outcome) String() string {
	switch o {
	case Player1Win:
		return "P1 wins"
	case Player2Win:
		return "P2 wins"
	case Draw:
		return "draw"
	}
	return "ongoing"
}

// State is a mutable game position searched in place: every successful Apply
// must be matched by exactly one Undo, which restores the hash, the player to
// move and the outcome.
type State interface {
	// LegalMoves lists the moves of the player to move without changing the state.
	LegalMoves() []Move
	// PlayoutMoves lists candidate moves for simulations, possibly biased or
	// pruned when heuristics is true. The caller may reorder the slice.
	PlayoutMoves(heuristics bool) []Move
	// Apply plays move for player and reports false if the move is illegal,
	// in which case the state is unchanged.
	Apply(move Move, player Player) bool
	Undo()
	Outcome() Outcome
	Player() Player
	// Evaluate scores the position for player, roughly in [-1, 1].
	Evaluate(player Player, version int) float64
	Hash() StateHash
	// NoMovesIsLoss decides whether running out of moves without an outcome
	// loses the game for the player to move (true) or draws it (false).
	NoMovesIsLoss() bool
	Clone() State
}

// Evaluate overrides State.Evaluate for cut-off playouts.
type Evaluate func(state State, player Player) float64
