package display

import (
	"os"

	"golang.org/x/term"
)

// ANSI escape sequences.
const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
)

// ResolveColor reports whether output to f should be colored.
//
// mode is "always", "never" or "auto". Auto colors only when f is a
// terminal and NO_COLOR is unset.
func ResolveColor(mode string, f *os.File) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}

	if os.Getenv("NO_COLOR") != "" || f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func paint(enabled bool, color, s string) string {
	if !enabled {
		return s
	}
	return color + s + ansiReset
}
