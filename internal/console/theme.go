package console

import (
	"io"
	"os"

	"golang.org/x/term"
)

const (
	ansiReset        = "\x1b[0m"
	ansiItalic       = "\x1b[3m"
	ansiGreen        = "\x1b[32m"
	ansiCyan         = "\x1b[36m"
	ansiBrightRed    = "\x1b[1;31m"
	ansiBrightYellow = "\x1b[1;33m"
)

// Color modes accepted by DetectColor.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Theme decorates console output with ANSI colors when Color is set.
type Theme struct {
	Color bool
}

func (t Theme) paint(code, s string) string {
	if !t.Color {
		return s
	}
	return code + s + ansiReset
}

// Command highlights a command word or label.
func (t Theme) Command(s string) string { return t.paint(ansiBrightYellow, s) }

// Hint colors help descriptions.
func (t Theme) Hint(s string) string { return t.paint(ansiCyan, s) }

// Error colors diagnostics.
func (t Theme) Error(s string) string { return t.paint(ansiBrightRed, s) }

// Echo colors lines replayed from a script.
func (t Theme) Echo(s string) string { return t.paint(ansiItalic+ansiGreen, s) }

// Note colors informational framing text.
func (t Theme) Note(s string) string { return t.paint(ansiItalic, s) }

// DetectColor resolves a color mode for w. In auto mode colors are used only
// when w is a terminal and NO_COLOR is unset.
func DetectColor(mode string, w io.Writer) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}

	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
