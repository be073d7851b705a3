package server

import (
	"strings"

	"tictactoe-history/internal/game"
	"tictactoe-history/internal/store"
)

// sessionToView projects a session state into the renderer's view
func sessionToView(sess *store.Session, st game.State) *SessionView {
	current := st.Current()
	status := st.Status()

	board := make([]string, len(current.Board))
	for i, cell := range current.Board {
		board[i] = markToString(cell)
	}

	moves := game.Moves(st)
	pbMoves := make([]*MoveView, len(moves))
	for i, m := range moves {
		pbMoves[i] = &MoveView{
			Step:    int32(m.Step),
			Cell:    int32(m.LastMove),
			Label:   m.Label,
			Current: m.Current,
		}
	}

	view := &SessionView{
		SessionID:     sess.ID,
		Board:         board,
		Status:        status.Outcome.String(),
		WinningCells:  winningCells(status),
		Headline:      game.Headline(st),
		CurrentStep:   int32(st.Step()),
		HistoryLength: int32(st.Len()),
		SortAscending: st.SortAscending(),
		SortLabel:     game.SortLabel(st),
		Moves:         pbMoves,
		CreatedAt:     sess.CreatedAt.Unix(),
		UpdatedAt:     sess.UpdatedAt().Unix(),
	}
	if status.Outcome == game.OutcomeWon {
		view.Winner = markToString(status.Winner)
	}
	if !status.IsFinished() {
		view.NextPlayer = markToString(st.NextPlayer())
	}
	return view
}

// winningCells returns the highlighted cells, empty unless the board is won
func winningCells(status game.Status) []int32 {
	if status.Outcome != game.OutcomeWon {
		return []int32{}
	}
	cells := make([]int32, len(status.Line))
	for i, c := range status.Line {
		cells[i] = int32(c)
	}
	return cells
}

// stateToBoardResponse renders the current board as a human-readable
// matrix. Winning cells are wrapped in brackets.
func stateToBoardResponse(sessionID string, st game.State) *BoardResponse {
	board := st.Current().Board
	status := st.Status()
	rows := make([]string, 3)
	var displayBuilder strings.Builder

	separator := "+" + strings.Repeat("---+", 3)
	displayBuilder.WriteString(separator + "\n")

	for row := 0; row < 3; row++ {
		rowCells := make([]string, 3)
		tokens := make([]string, 3)
		for col := 0; col < 3; col++ {
			cell := row*3 + col
			char := markToChar(board[cell])
			rowCells[col] = char
			if status.Highlighted(cell) {
				tokens[col] = "[" + char + "]"
			} else {
				tokens[col] = " " + char + " "
			}
		}
		rows[row] = strings.Join(rowCells, "|")

		displayBuilder.WriteString("|")
		displayBuilder.WriteString(strings.Join(tokens, "|"))
		displayBuilder.WriteString("|\n")
		displayBuilder.WriteString(separator + "\n")
	}

	return &BoardResponse{
		SessionID:    sessionID,
		Rows:         rows,
		BoardDisplay: displayBuilder.String(),
		Headline:     game.Headline(st),
		WinningCells: winningCells(status),
	}
}

func tallyToResponse(tally store.Tally) *StatsResponse {
	return &StatsResponse{
		SessionID:  tally.SessionID,
		XWins:      tally.XWins,
		OWins:      tally.OWins,
		Draws:      tally.Draws,
		TotalGames: tally.TotalGames(),
	}
}

// markToString converts a Mark to its wire form, "" for empty cells
func markToString(m game.Mark) string {
	switch m {
	case game.MarkX:
		return "X"
	case game.MarkO:
		return "O"
	default:
		return ""
	}
}

// markToChar converts a Mark to a display character
func markToChar(m game.Mark) string {
	switch m {
	case game.MarkX:
		return "X"
	case game.MarkO:
		return "O"
	default:
		return " "
	}
}
