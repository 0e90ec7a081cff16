package progress

import (
	"os"

	"golang.org/x/term"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// prepareTerminal enables ANSI escape handling where the platform needs it.
func prepareTerminal(f *os.File) {
	enableANSI(f)
}
