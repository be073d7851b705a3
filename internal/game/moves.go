package game

import "fmt"

// MoveEntry is one line of the move list
type MoveEntry struct {
	Step     int
	LastMove int
	Label    string
	Current  bool
}

// MoveLabel describes the snapshot at step. The coordinates are those of
// the cell the move was played on.
func MoveLabel(step int, snap Snapshot) string {
	if step == 0 || snap.LastMove == NoMove {
		return "Go to game start"
	}
	row, col := Coordinates(snap.LastMove)
	return fmt.Sprintf("Go to move #%d (%d, %d)", step, row, col)
}

// Moves lists every history step in display order
func Moves(s State) []MoveEntry {
	entries := make([]MoveEntry, len(s.history))
	for i, snap := range s.history {
		entries[i] = MoveEntry{
			Step:     i,
			LastMove: snap.LastMove,
			Label:    MoveLabel(i, snap),
			Current:  i == s.step,
		}
	}

	if !s.sortAscending {
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
	}
	return entries
}

// Headline returns the status line shown above the move list
func Headline(s State) string {
	status := s.Status()
	switch status.Outcome {
	case OutcomeDraw:
		return "Draw"
	case OutcomeWon:
		return "Winner: " + status.Winner.String()
	default:
		return "Next player: " + s.NextPlayer().String()
	}
}

// SortLabel names the order the sort toggle switches to
func SortLabel(s State) string {
	if s.sortAscending {
		return "Sort Desc"
	}
	return "Sort Asc"
}
