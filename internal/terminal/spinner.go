package terminal

import (
	"fmt"
	"io"
	"sync"
	"time"

	"atomicgo.dev/cursor"
)

// DefaultFrames is a Windows-friendly ASCII animation.
var DefaultFrames = []string{"-", "\\", "|", "/"}

// StartSpinner draws frames followed by text on a single line of w until the
// returned stop function is called. The line is cleared on stop. When w is
// not a terminal nothing is drawn and stop is a no-op.
func StartSpinner(w io.Writer, text string, frames []string, interval time.Duration) (stop func()) {
	if !IsTerminal(w) || len(frames) == 0 {
		return func() {}
	}
	return startSpinner(w, text, frames, interval, true)
}

func startSpinner(w io.Writer, text string, frames []string, interval time.Duration, hideCursor bool) func() {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	if hideCursor {
		cursor.Hide()
	}
	go func() {
		defer wg.Done()
		i := 0
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			line := fmt.Sprintf("%s %s", frames[i%len(frames)], text)
			select {
			case <-done:
				fmt.Fprintf(w, "\r%*s\r", len(line), "")
				return
			case <-ticker.C:
				fmt.Fprintf(w, "\r%s", line)
				i++
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
			if hideCursor {
				cursor.Show()
			}
		})
	}
}
