// Package console is a line-oriented terminal front end for the game
// engine. It renders the board, status line and move list after every
// command and turns typed commands into engine events.
package console

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/muesli/termenv"

	"tictactoe-history/internal/game"
)

const helpText = `commands:
  0-8     play the cell (0 1 2 / 3 4 5 / 6 7 8)
  j N     jump to step N of the move list
  s       toggle move list order
  n       start a new game
  h       show this help
  q       quit
`

// Console holds the current game state and the output it renders to
type Console struct {
	out         *termenv.Output
	state       game.State
	clearScreen bool
}

// Option configures a Console
type Option func(*Console)

// WithClearScreen clears the terminal before every render
func WithClearScreen() Option {
	return func(c *Console) {
		c.clearScreen = true
	}
}

// New creates a console at the starting position
func New(out *termenv.Output, opts ...Option) *Console {
	c := &Console{
		out:   out,
		state: game.NewState(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current game state
func (c *Console) State() game.State {
	return c.state
}

// Run reads commands from in until EOF or quit
func (c *Console) Run(in io.Reader) error {
	c.Render()

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(c.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(c.out)
			return scanner.Err()
		}

		quit, msg := c.Handle(scanner.Text())
		if quit {
			return nil
		}
		c.Render()
		if msg != "" {
			fmt.Fprintln(c.out, msg)
		}
	}
}

// Handle applies one command line. It reports whether the user asked to
// quit and an optional message to show after rendering.
func (c *Console) Handle(line string) (quit bool, msg string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, ""
	}

	switch cmd := strings.ToLower(fields[0]); cmd {
	case "q", "quit", "exit":
		return true, ""
	case "h", "help", "?":
		return false, helpText
	case "s", "sort":
		c.state = game.ToggleSort(c.state)
		return false, ""
	case "n", "new":
		c.state = game.NewState()
		return false, ""
	case "j", "jump":
		if len(fields) != 2 {
			return false, "usage: j N"
		}
		step, err := strconv.Atoi(fields[1])
		if err != nil {
			return false, "usage: j N"
		}
		if err := c.state.CheckStep(step); err != nil {
			return false, fmt.Sprintf("no step %d, choose 0-%d", step, c.state.Len()-1)
		}
		c.state = game.JumpTo(c.state, step)
		return false, ""
	default:
		cell, err := strconv.Atoi(cmd)
		if err != nil || !game.ValidCell(cell) {
			return false, fmt.Sprintf("unknown command %q, type h for help", line)
		}
		// Illegal clicks leave the state as it was.
		c.state = game.ApplyMove(c.state, cell)
		return false, ""
	}
}

// Render writes the board, status line and move list
func (c *Console) Render() {
	if c.clearScreen {
		c.out.ClearScreen()
	}

	st := c.state
	fmt.Fprintln(c.out)
	fmt.Fprint(c.out, RenderBoard(c.out, st))
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, c.out.String(game.Headline(st)).Bold())
	fmt.Fprintf(c.out, "(s) %s\n", game.SortLabel(st))

	for _, m := range game.Moves(st) {
		label := fmt.Sprintf("%d. %s", m.Step, m.Label)
		if m.Current {
			fmt.Fprintf(c.out, " > %s\n", c.out.String(label).Bold())
		} else {
			fmt.Fprintf(c.out, "   %s\n", label)
		}
	}
}

// RenderBoard draws the board at the current step. Winning cells are
// wrapped in brackets and colored; empty cells show their index.
func RenderBoard(out *termenv.Output, st game.State) string {
	current := st.Current()
	status := st.Status()
	win := out.Color("2")
	last := out.Color("3")

	var sb strings.Builder
	for row := 0; row < 3; row++ {
		if row > 0 {
			sb.WriteString("---+---+---\n")
		}
		for col := 0; col < 3; col++ {
			if col > 0 {
				sb.WriteString("|")
			}
			cell := row*3 + col
			mark := current.Board[cell]

			switch {
			case mark == game.MarkEmpty:
				sb.WriteString(" " + out.String(strconv.Itoa(cell)).Faint().String() + " ")
			case status.Highlighted(cell):
				sb.WriteString(out.String("[" + mark.String() + "]").Foreground(win).Bold().String())
			case cell == current.LastMove:
				sb.WriteString(" " + out.String(mark.String()).Foreground(last).String() + " ")
			default:
				sb.WriteString(" " + mark.String() + " ")
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
