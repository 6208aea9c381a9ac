// Package terminal reports whether the process can prompt the user.
package terminal

import (
	"os"

	"golang.org/x/term"
)

var isTerminal = term.IsTerminal

// IsInteractive reports whether stdin and stderr are both terminals.
// Prompts read stdin and render on stderr so stdout stays clean for scripts.
func IsInteractive() bool {
	return isTerminal(int(os.Stdin.Fd())) && isTerminal(int(os.Stderr.Fd()))
}
