// Package tictactoe implements game.State for 3x3 tic-tac-toe. It is the
// reference game used by the CLI and the engine tests.
package tictactoe

import (
	"fmt"
	"strings"

	"mcts/game"
)

const squares = 9

var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

var zobrist = game.NewZobrist(squares, 2, 3)

// Move is a square index, 0 (top left) to 8 (bottom right).
type Move uint8

func (m Move) String() string {
	return fmt.Sprintf("%c%d", 'a'+rune(m%3), 3-m/3)
}

// ParseMove reads a move written as column letter and row digit, e.g. "b2".
func ParseMove(s string) (Move, error) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'c' || s[1] < '1' || s[1] > '3' {
		return 0, fmt.Errorf("invalid move %q", s)
	}
	col := int(s[0] - 'a')
	row := 3 - int(s[1]-'0')
	return Move(row*3 + col), nil
}

type Board struct {
	cells   [squares]game.Player
	toMove  game.Player
	played  []Move
	hash    game.StateHash
	outcome game.Outcome
}

func New() *Board {
	b := &Board{toMove: game.Player1, played: make([]Move, 0, squares)}
	b.hash = zobrist.Side(game.Player1)
	return b
}

// Parse reads a board written row by row with 'X', 'O' and '.', player 1
// playing X. The player to move is derived from the stone count.
func Parse(s string) (*Board, error) {
	s = strings.Join(strings.Fields(s), "")
	if len(s) != squares {
		return nil, fmt.Errorf("board %q must have %d cells", s, squares)
	}
	b := New()
	var xs, os []Move
	for i, c := range s {
		switch c {
		case 'X', 'x':
			xs = append(xs, Move(i))
		case 'O', 'o':
			os = append(os, Move(i))
		case '.', '-':
		default:
			return nil, fmt.Errorf("invalid cell %q", c)
		}
	}
	if len(xs) != len(os) && len(xs) != len(os)+1 {
		return nil, fmt.Errorf("board %q has %d X and %d O", s, len(xs), len(os))
	}
	for i := range xs {
		b.place(xs[i], game.Player1)
		if i < len(os) {
			b.place(os[i], game.Player2)
		}
	}
	xWins, oWins := b.wins(game.Player1), b.wins(game.Player2)
	switch {
	case xWins && oWins:
		return nil, fmt.Errorf("board %q has two winners", s)
	case xWins:
		b.outcome = game.Player1Win
	case oWins:
		b.outcome = game.Player2Win
	case len(b.played) == squares:
		b.outcome = game.Draw
	}
	return b, nil
}

// place puts a stone for player without checking the outcome.
func (b *Board) place(m Move, player game.Player) {
	b.cells[m] = player
	b.played = append(b.played, m)
	b.hash ^= zobrist.Piece(int(m), int(player)-1)
	b.hash ^= zobrist.Side(player) ^ zobrist.Side(player.Opponent())
	b.toMove = player.Opponent()
}

func (b *Board) wins(p game.Player) bool {
	for _, line := range lines {
		if b.cells[line[0]] == p && b.cells[line[1]] == p && b.cells[line[2]] == p {
			return true
		}
	}
	return false
}

func (b *Board) LegalMoves() []game.Move {
	if b.outcome != game.Ongoing {
		return nil
	}
	moves := make([]game.Move, 0, squares-len(b.played))
	for i, c := range b.cells {
		if c == game.None {
			moves = append(moves, Move(i))
		}
	}
	return moves
}

// PlayoutMoves with heuristics returns only the immediate wins if any, else
// only the blocks of the opponent's immediate wins if any.
func (b *Board) PlayoutMoves(heuristics bool) []game.Move {
	moves := b.LegalMoves()
	if !heuristics || len(moves) == 0 {
		return moves
	}
	if wins := b.completing(b.toMove); len(wins) > 0 {
		return wins
	}
	if blocks := b.completing(b.toMove.Opponent()); len(blocks) > 0 {
		return blocks
	}
	return moves
}

// completing lists empty squares that give p three in a row.
func (b *Board) completing(p game.Player) []game.Move {
	var moves []game.Move
	for i, c := range b.cells {
		if c != game.None {
			continue
		}
		for _, line := range lines {
			if line[0] != i && line[1] != i && line[2] != i {
				continue
			}
			own := 0
			for _, sq := range line {
				if b.cells[sq] == p {
					own++
				}
			}
			if own == 2 {
				moves = append(moves, Move(i))
				break
			}
		}
	}
	return moves
}

func (b *Board) Apply(move game.Move, player game.Player) bool {
	m, ok := move.(Move)
	if !ok || m >= squares || b.cells[m] != game.None || b.outcome != game.Ongoing {
		return false
	}
	if player != b.toMove {
		return false
	}
	b.place(m, player)
	b.outcome = b.check(m)
	return true
}

func (b *Board) Undo() {
	n := len(b.played)
	if n == 0 {
		return
	}
	m := b.played[n-1]
	b.played = b.played[:n-1]
	player := b.cells[m]
	b.cells[m] = game.None
	b.hash ^= zobrist.Piece(int(m), int(player)-1)
	b.hash ^= zobrist.Side(player) ^ zobrist.Side(player.Opponent())
	b.toMove = player
	b.outcome = game.Ongoing
}

// check computes the outcome after m was played.
func (b *Board) check(m Move) game.Outcome {
	if p := b.cells[m]; b.wins(p) {
		return game.WinOutcome(p)
	}
	if len(b.played) == squares {
		return game.Draw
	}
	return game.Ongoing
}

func (b *Board) Outcome() game.Outcome {
	return b.outcome
}

func (b *Board) Player() game.Player {
	return b.toMove
}

// Evaluate counts lines still open for each side. Version 0 weights every
// open line equally, version 1 favors lines holding two stones.
func (b *Board) Evaluate(player game.Player, version int) float64 {
	if b.outcome != game.Ongoing {
		return b.outcome.Score(player)
	}
	score := 0.0
	for _, line := range lines {
		own, opp := 0, 0
		for _, sq := range line {
			switch b.cells[sq] {
			case player:
				own++
			case player.Opponent():
				opp++
			}
		}
		weight := 1.0
		if version > 0 {
			weight = float64(own + opp)
		}
		switch {
		case opp == 0 && own > 0:
			score += weight
		case own == 0 && opp > 0:
			score -= weight
		}
	}
	score /= 8
	if version > 0 {
		score /= 2
	}
	return max(-1, min(1, score))
}

func (b *Board) Hash() game.StateHash {
	return b.hash
}

func (b *Board) NoMovesIsLoss() bool {
	return false
}

func (b *Board) Clone() game.State {
	c := *b
	c.played = make([]Move, len(b.played), squares)
	copy(c.played, b.played)
	return &c
}

// Played returns the moves played since New, oldest first.
func (b *Board) Played() []Move {
	return append([]Move(nil), b.played...)
}

func (b *Board) String() string {
	var sb strings.Builder
	for i, c := range b.cells {
		switch c {
		case game.Player1:
			sb.WriteByte('X')
		case game.Player2:
			sb.WriteByte('O')
		default:
			sb.WriteByte('.')
		}
		if i%3 == 2 && i != squares-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
