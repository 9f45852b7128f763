// Package tty detects whether the REPL is attached to an interactive terminal.
package tty

import (
	"os"

	"golang.org/x/term"
)

// Console wraps the standard streams and knows whether standard input is a terminal. The REPL uses
// this to decide whether to print prompts and echo results: piped input should behave like a batch
// script, not an interactive session.
type Console struct {
	in  *os.File
	out *os.File

	interactive bool
}

// NewConsole inspects the given streams and reports whether they're attached to a terminal.
// Unlike the machine console this package once adapted, there is no raw mode here: the REPL reads
// whole lines (actually whole s-expressions) and never needs to see individual keystrokes.
func NewConsole(sin, sout *os.File) *Console {
	return &Console{
		in:          sin,
		out:         sout,
		interactive: term.IsTerminal(int(sin.Fd())),
	}
}

// Interactive reports whether the console should print prompts and echo results.
func (c *Console) Interactive() bool {
	return c.interactive
}

// In returns the input stream.
func (c *Console) In() *os.File { return c.in }

// Out returns the output stream.
func (c *Console) Out() *os.File { return c.out }
