package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoveLabel(t *testing.T) {
	assert.Equal(t, "Go to game start", MoveLabel(0, Snapshot{LastMove: NoMove}))
	assert.Equal(t, "Go to move #1 (0, 0)", MoveLabel(1, Snapshot{LastMove: 0}))
	assert.Equal(t, "Go to move #2 (1, 2)", MoveLabel(2, Snapshot{LastMove: 5}))
	assert.Equal(t, "Go to move #3 (2, 1)", MoveLabel(3, Snapshot{LastMove: 7}))
}

func TestMoves_Ascending(t *testing.T) {
	s := play(t, NewState(), 4, 2, 6)
	s = JumpTo(s, 2)

	moves := Moves(s)
	require.Len(t, moves, 4)

	assert.Equal(t, []string{
		"Go to game start",
		"Go to move #1 (1, 1)",
		"Go to move #2 (0, 2)",
		"Go to move #3 (2, 0)",
	}, labels(moves))

	for i, m := range moves {
		assert.Equal(t, i, m.Step)
		assert.Equal(t, i == 2, m.Current, "step %d", i)
	}
	assert.Equal(t, NoMove, moves[0].LastMove)
	assert.Equal(t, 6, moves[3].LastMove)
}

func TestMoves_Descending(t *testing.T) {
	s := ToggleSort(play(t, NewState(), 4, 2))

	moves := Moves(s)
	require.Len(t, moves, 3)
	assert.Equal(t, []int{2, 1, 0}, steps(moves))
	assert.True(t, moves[0].Current)
	assert.Equal(t, "Go to game start", moves[2].Label)
}

func TestHeadline_NextPlayer(t *testing.T) {
	s := NewState()
	assert.Equal(t, "Next player: X", Headline(s))

	s = ApplyMove(s, 0)
	assert.Equal(t, "Next player: O", Headline(s))
}

func TestSortLabel(t *testing.T) {
	s := NewState()
	assert.Equal(t, "Sort Desc", SortLabel(s))
	assert.Equal(t, "Sort Asc", SortLabel(ToggleSort(s)))
}

func labels(moves []MoveEntry) []string {
	out := make([]string, len(moves))
	for i, m := range moves {
		out[i] = m.Label
	}
	return out
}

func steps(moves []MoveEntry) []int {
	out := make([]int, len(moves))
	for i, m := range moves {
		out[i] = m.Step
	}
	return out
}
