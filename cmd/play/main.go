package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/muesli/termenv"

	"tictactoe-history/internal/console"
)

func main() {
	clearScreen := flag.Bool("clear", false, "Clear the screen before every render")
	flag.Parse()

	out := termenv.NewOutput(os.Stdout)

	var opts []console.Option
	if *clearScreen {
		opts = append(opts, console.WithClearScreen())
	}

	if err := console.New(out, opts...).Run(os.Stdin); err != nil {
		fmt.Fprintf(os.Stderr, "failed to read input: %v\n", err)
		os.Exit(1)
	}
}
