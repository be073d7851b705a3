package game

import "fmt"

// Snapshot is the board after a move, or the empty starting board
type Snapshot struct {
	Board    Board
	LastMove int // NoMove for the starting snapshot
}

// State is an immutable game value. Transitions return a new State and
// never modify the receiver or its history. Use NewState; the zero State
// only accepts a first move.
type State struct {
	history       []Snapshot
	step          int
	sortAscending bool
}

// NewState returns a game at its starting position with X to move
func NewState() State {
	return State{
		history:       []Snapshot{{LastMove: NoMove}},
		step:          0,
		sortAscending: true,
	}
}

// ApplyMove places the mark of the player to move on cell. Out-of-range
// cells, occupied cells and finished boards leave the state unchanged.
// Any snapshots after the current step are discarded before the new one
// is appended.
func ApplyMove(s State, cell int) State {
	if !ValidCell(cell) {
		return s
	}
	if len(s.history) == 0 {
		s.history = []Snapshot{{LastMove: NoMove}}
	}

	current := s.Current()
	if Evaluate(current.Board).IsFinished() || current.Board[cell] != MarkEmpty {
		return s
	}

	history := make([]Snapshot, s.step+2)
	copy(history, s.history[:s.step+1])
	history[s.step+1] = Snapshot{
		Board:    current.Board.With(cell, s.NextPlayer()),
		LastMove: cell,
	}

	return State{
		history:       history,
		step:          s.step + 1,
		sortAscending: s.sortAscending,
	}
}

// JumpTo makes step the current step. Steps outside the history leave the
// state unchanged.
func JumpTo(s State, step int) State {
	if !s.ValidStep(step) {
		return s
	}
	s.step = step
	return s
}

// ToggleSort flips the move list order
func ToggleSort(s State) State {
	s.sortAscending = !s.sortAscending
	return s
}

// ValidStep reports whether step indexes the history
func (s State) ValidStep(step int) bool {
	return step >= 0 && step < len(s.history)
}

// CheckStep returns ErrInvalidStep for steps outside the history
func (s State) CheckStep(step int) error {
	if !s.ValidStep(step) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidStep, step, len(s.history))
	}
	return nil
}

// Step returns the index of the current snapshot
func (s State) Step() int {
	return s.step
}

// Len returns the number of snapshots in the history
func (s State) Len() int {
	return len(s.history)
}

// IsLatest reports whether the current step is the last snapshot
func (s State) IsLatest() bool {
	return s.step == len(s.history)-1
}

// SortAscending reports the move list display order
func (s State) SortAscending() bool {
	return s.sortAscending
}

// Current returns the snapshot at the current step
func (s State) Current() Snapshot {
	if len(s.history) == 0 {
		return Snapshot{LastMove: NoMove}
	}
	return s.history[s.step]
}

// Snapshot returns the snapshot at step
func (s State) Snapshot(step int) (Snapshot, error) {
	if err := s.CheckStep(step); err != nil {
		return Snapshot{}, err
	}
	return s.history[step], nil
}

// History returns a copy of all snapshots
func (s State) History() []Snapshot {
	return append([]Snapshot(nil), s.history...)
}

// NextPlayer returns the mark to move at the current step. X moves on
// even steps.
func (s State) NextPlayer() Mark {
	return PlayerAt(s.step)
}

// Status evaluates the board at the current step
func (s State) Status() Status {
	return Evaluate(s.Current().Board)
}

// PlayerAt returns the mark to move at the given step
func PlayerAt(step int) Mark {
	if step%2 == 0 {
		return MarkX
	}
	return MarkO
}
