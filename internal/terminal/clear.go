// Package terminal provides utilities for terminal operations such as clearing
// prompts, reading secrets without echo and drawing an inline spinner.
package terminal

import (
	"io"
	"math"
	"os"

	"atomicgo.dev/cursor"
	"golang.org/x/term"
)

// Width returns the terminal width, or 80 when stdout is not a terminal.
func Width() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return 80
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// ClearPreviousLines clears text from the terminal that was previously printed.
// textLength is the total number of characters (prompt + user input); the
// line count is derived from the terminal width, plus one for the line the
// cursor moved to when the user pressed Enter.
func ClearPreviousLines(textLength int) {
	totalLines := int(math.Ceil(float64(textLength) / float64(Width())))
	if totalLines < 1 {
		totalLines = 1
	}
	cursor.ClearLinesUp(totalLines)
	cursor.StartOfLine()
}
