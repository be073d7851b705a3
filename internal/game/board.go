package game

import (
	"errors"
	"fmt"
	"strings"
)

// BoardSize is the number of cells on a 3x3 board
const BoardSize = 9

// NoMove marks a snapshot that was not produced by a move
const NoMove = -1

// Mark represents a cell state on the board
type Mark int

const (
	MarkEmpty Mark = iota
	MarkX
	MarkO
)

func (m Mark) String() string {
	switch m {
	case MarkEmpty:
		return " "
	case MarkX:
		return "X"
	case MarkO:
		return "O"
	default:
		return "?"
	}
}

// Opponent returns the opposing mark
func (m Mark) Opponent() Mark {
	switch m {
	case MarkX:
		return MarkO
	case MarkO:
		return MarkX
	default:
		return MarkEmpty
	}
}

// Common errors
var (
	ErrInvalidCell = errors.New("invalid cell: must be between 0 and 8")
	ErrInvalidStep = errors.New("invalid step: out of history range")
)

// ValidCell reports whether cell indexes a board position
func ValidCell(cell int) bool {
	return cell >= 0 && cell < BoardSize
}

// CheckCell returns ErrInvalidCell for out-of-range indices
func CheckCell(cell int) error {
	if !ValidCell(cell) {
		return fmt.Errorf("%w: %d", ErrInvalidCell, cell)
	}
	return nil
}

// Coordinates returns the row and column of a cell
func Coordinates(cell int) (row, col int) {
	return cell / 3, cell % 3
}

// Board is a row-major 3x3 grid. It is a value type: copying a Board
// copies its cells.
type Board [BoardSize]Mark

// Get returns the mark at the given row and column
func (b Board) Get(row, col int) Mark {
	return b[row*3+col]
}

// With returns a copy of the board with cell set to mark
func (b Board) With(cell int, mark Mark) Board {
	b[cell] = mark
	return b
}

// IsFull returns true if all cells are occupied
func (b Board) IsFull() bool {
	for _, cell := range b {
		if cell == MarkEmpty {
			return false
		}
	}
	return true
}

// Swapped returns the board with X and O exchanged
func (b Board) Swapped() Board {
	for i, cell := range b {
		b[i] = cell.Opponent()
	}
	return b
}

// String returns a string representation of the board
func (b Board) String() string {
	var sb strings.Builder
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			fmt.Fprintf(&sb, "[%s]", b.Get(row, col))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
