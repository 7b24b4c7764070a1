package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsInteractive checks if stdout is a terminal. Useful to avoid styled
// output when piping into another program.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Setup configures rendering for the current invocation: when stdout is
// not a terminal, styling is disabled so piped output stays plain text.
func Setup() {
	if !IsInteractive() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}
