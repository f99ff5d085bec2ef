package terminal

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ReadSecret prints prompt and reads one line without echo when stdin is a
// terminal. Piped input is read as a plain line.
func ReadSecret(out io.Writer, in *os.File, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	if term.IsTerminal(int(in.Fd())) {
		b, err := term.ReadPassword(int(in.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	return ReadLine(in)
}

// ReadLine reads one line from r and trims surrounding whitespace.
func ReadLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
