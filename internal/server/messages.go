package server

// Messages exchanged over the TicTacToeService. They travel as JSON on
// both the gRPC and the REST surface.

type CreateSessionRequest struct{}

type SessionRequest struct {
	SessionID string `json:"session_id"`
}

type ListSessionsRequest struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

type ClickCellRequest struct {
	SessionID string `json:"session_id"`
	Cell      int32  `json:"cell"`
}

type SelectStepRequest struct {
	SessionID string `json:"session_id"`
	Step      int32  `json:"step"`
}

type SessionResponse struct {
	Session *SessionView `json:"session"`
}

type ClickCellResponse struct {
	Session *SessionView `json:"session"`
	// Accepted is false when the click was ignored: the cell was occupied
	// or the board at the current step is already decided.
	Accepted bool `json:"accepted"`
}

type ListSessionsResponse struct {
	Sessions   []*SessionView `json:"sessions"`
	TotalCount int32          `json:"total_count"`
}

type DeleteSessionResponse struct{}

type BoardResponse struct {
	SessionID    string   `json:"session_id"`
	Rows         []string `json:"rows"`
	BoardDisplay string   `json:"board_display"`
	Headline     string   `json:"headline"`
	WinningCells []int32  `json:"winning_cells"`
}

type StatsResponse struct {
	SessionID  string `json:"session_id"`
	XWins      int32  `json:"x_wins"`
	OWins      int32  `json:"o_wins"`
	Draws      int32  `json:"draws"`
	TotalGames int32  `json:"total_games"`
}

// SessionUpdate is pushed to stream subscribers after every accepted
// event. A nil Session means the session was deleted.
type SessionUpdate struct {
	Session *SessionView `json:"session,omitempty"`
	Message string       `json:"message"`
}

// SessionView is the read-only projection of a session a renderer draws
type SessionView struct {
	SessionID     string      `json:"session_id"`
	Board         []string    `json:"board"`
	Status        string      `json:"status"`
	Winner        string      `json:"winner,omitempty"`
	WinningCells  []int32     `json:"winning_cells"`
	NextPlayer    string      `json:"next_player"`
	Headline      string      `json:"headline"`
	CurrentStep   int32       `json:"current_step"`
	HistoryLength int32       `json:"history_length"`
	SortAscending bool        `json:"sort_ascending"`
	SortLabel     string      `json:"sort_label"`
	Moves         []*MoveView `json:"moves"`
	CreatedAt     int64       `json:"created_at"`
	UpdatedAt     int64       `json:"updated_at"`
}

type MoveView struct {
	Step    int32  `json:"step"`
	Cell    int32  `json:"cell"`
	Label   string `json:"label"`
	Current bool   `json:"current"`
}
