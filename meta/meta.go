// meta/meta.go
package meta

import "runtime"

// GO_ROUTINES defines the number of search workers when none is configured.
var GO_ROUTINES = runtime.NumCPU()

// SIMULATIONS defines the default simulation budget of one search.
const SIMULATIONS = 10000

// EXPLORATION defines the default UCT exploration constant.
const EXPLORATION = 1.4142135623730951

// TABLE_SIZE defines the default number of transposition table slots.
const TABLE_SIZE = 1 << 20

// HORIZON defines the default BRUE horizon in plies.
const HORIZON = 9

// WINDOW_SIZE defines the largest sliding window of windowed averaging.
const WINDOW_SIZE = 256

// WINDOW_MIN defines the smallest sliding window of windowed averaging.
const WINDOW_MIN = 16

// PRUNE_VISITS defines the parent visits before implicit minimax pruning.
const PRUNE_VISITS = 20

// MAX_TURNS caps the number of moves of a match.
const MAX_TURNS = 300
