package searcher

import "errors"

var (
	ErrNoBudget          = errors.New("search needs a duration or a simulation budget")
	ErrConflictingBudget = errors.New("duration and simulation budgets are mutually exclusive")
	ErrAllocatorBudget   = errors.New("successive rejects needs a simulation budget")
	ErrInvalidConfig     = errors.New("invalid search configuration")
	ErrNoMoves           = errors.New("no legal moves at the root")
	ErrStateMismatch     = errors.New("game state does not match the search tree")
)
