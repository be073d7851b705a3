package game

// Line is a set of three cells that wins when filled with one mark
type Line [3]int

// WinningLines lists every winning line in scan order: rows, columns,
// then the two diagonals.
var WinningLines = [8]Line{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Outcome is the coarse result of a board
type Outcome int

const (
	OutcomeInProgress Outcome = iota
	OutcomeWon
	OutcomeDraw
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInProgress:
		return "IN_PROGRESS"
	case OutcomeWon:
		return "WON"
	case OutcomeDraw:
		return "DRAW"
	default:
		return "UNKNOWN"
	}
}

// Status is derived from a board on demand and never stored
type Status struct {
	Outcome Outcome
	Winner  Mark // MarkEmpty unless Outcome is OutcomeWon
	Line    Line // valid only when Outcome is OutcomeWon
}

// IsFinished returns true if no further move may be played
func (s Status) IsFinished() bool {
	return s.Outcome == OutcomeWon || s.Outcome == OutcomeDraw
}

// Highlighted reports whether cell is part of the winning line
func (s Status) Highlighted(cell int) bool {
	if s.Outcome != OutcomeWon {
		return false
	}
	for _, c := range s.Line {
		if c == cell {
			return true
		}
	}
	return false
}

func (s Status) String() string {
	if s.Outcome == OutcomeWon {
		return s.Outcome.String() + "(" + s.Winner.String() + ")"
	}
	return s.Outcome.String()
}

// Evaluate derives the status of a board. Only the first satisfied line
// in WinningLines order is reported.
func Evaluate(b Board) Status {
	for _, line := range WinningLines {
		m := b[line[0]]
		if m != MarkEmpty && m == b[line[1]] && m == b[line[2]] {
			return Status{Outcome: OutcomeWon, Winner: m, Line: line}
		}
	}

	if b.IsFull() {
		return Status{Outcome: OutcomeDraw}
	}
	return Status{Outcome: OutcomeInProgress}
}
