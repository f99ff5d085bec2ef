// Package dispatch reads a SQL file and submits it for remote execution.
//
// A dispatch is strictly linear: read the file, print a preview, issue exactly
// one request through a Runner, then print either the pretty-printed JSON
// result or the failure. Every failure is returned as an *errors.E so the
// caller can map it to an exit code; nothing is retried.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"sqldispatch/cli/internal/backend"
	"sqldispatch/cli/internal/errors"
	"sqldispatch/cli/internal/httperrors"
	"sqldispatch/cli/internal/logging"
	"sqldispatch/cli/internal/terminal"

	"github.com/pterm/pterm"
)

// PreviewLimit is the number of characters shown before truncation.
const PreviewLimit = 500

// TruncationMarker follows a preview that was cut at PreviewLimit.
const TruncationMarker = "..."

const ruleWidth = 60

// Runner executes one SQL script and returns the JSON result.
// backend.HTTP and sqlexec.Executor both satisfy it.
type Runner interface {
	RunQuery(ctx context.Context, sql string) (json.RawMessage, error)
}

// Dispatcher runs a single SQL file through a Runner.
type Dispatcher struct {
	runner Runner
	out    io.Writer
	// target names the remote for messages, e.g. "api.supabase.com".
	target string
}

// New creates a Dispatcher writing its report to out.
func New(runner Runner, out io.Writer, target string) *Dispatcher {
	return &Dispatcher{runner: runner, out: out, target: target}
}

// ReadScript returns the full text of the SQL file at path.
// The file is closed before ReadScript returns. Content that is not valid
// UTF-8 is rejected, since the JSON request body could not carry it unchanged.
func ReadScript(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(errors.Read, fmt.Sprintf("cannot read %s", path), err)
	}
	if !utf8.Valid(data) {
		return "", errors.New(errors.Read, fmt.Sprintf("%s is not valid UTF-8 text", path))
	}
	return string(data), nil
}

// Preview returns sql unchanged when it has at most PreviewLimit characters,
// otherwise its first PreviewLimit characters followed by TruncationMarker.
// Characters are counted as runes.
func Preview(sql string) string {
	if utf8.RuneCountInString(sql) <= PreviewLimit {
		return sql
	}
	n := 0
	for i := range sql {
		if n == PreviewLimit {
			return sql[:i] + TruncationMarker
		}
		n++
	}
	return sql
}

// Load announces and reads the file at path.
func Load(out io.Writer, path string) (string, error) {
	fmt.Fprintf(out, "📄 Reading %s...\n", path)
	return ReadScript(path)
}

// Submit previews sql and sends it through the runner exactly once.
func (d *Dispatcher) Submit(ctx context.Context, sql string) error {
	d.printPreview(sql)

	stop := terminal.StartSpinner(d.out, "executing on "+d.targetName(), terminal.DefaultFrames, 100*time.Millisecond)
	start := time.Now()
	result, err := d.runner.RunQuery(ctx, sql)
	stop()
	logging.Debugf("request finished in %s", time.Since(start).Round(time.Millisecond))

	if err != nil {
		return d.report(err)
	}

	pretty, err := indent(result)
	if err != nil {
		return d.report(&backend.DecodeError{Body: string(result), Err: err})
	}
	fmt.Fprintln(d.out, pterm.Success.Sprint("SQL executed successfully!"))
	fmt.Fprintln(d.out, pretty)
	return nil
}

func (d *Dispatcher) printPreview(sql string) {
	rule := strings.Repeat("=", ruleWidth)
	fmt.Fprintf(d.out, "📝 SQL to execute (%d characters)\n", utf8.RuneCountInString(sql))
	fmt.Fprintln(d.out, rule)
	fmt.Fprintln(d.out, Preview(sql))
	fmt.Fprintln(d.out, rule)
}

// report prints err and converts it to an *errors.E.
func (d *Dispatcher) report(err error) error {
	var (
		statusErr *backend.StatusError
		decodeErr *backend.DecodeError
	)
	switch {
	case stderrors.As(err, &statusErr):
		fmt.Fprintln(d.out, pterm.Error.Sprintf("HTTP error %d: %s", statusErr.StatusCode, statusErr.Body))
		return errors.Wrap(errors.HTTP, fmt.Sprintf("remote returned status %d", statusErr.StatusCode), err)
	case stderrors.As(err, &decodeErr):
		fmt.Fprintln(d.out, pterm.Error.Sprint(logging.PresentError("Error", err)))
		if body := strings.TrimSpace(decodeErr.Body); body != "" {
			fmt.Fprintln(d.out, body)
		}
		return errors.Wrap(errors.Decode, "unreadable response", err)
	case isQueryError(err):
		fmt.Fprintln(d.out, pterm.Error.Sprint(logging.PresentError("Error", err)))
		return errors.Wrap(errors.Query, "query failed", err)
	default:
		httperrors.Describe(d.out, maskedError{err}, d.targetName())
		return errors.Wrap(errors.Transport, "request failed", err)
	}
}

func (d *Dispatcher) targetName() string {
	if d.target == "" {
		return "the server"
	}
	return d.target
}

// QueryError is implemented by runner errors that the server raised while
// executing the SQL itself, as opposed to failures reaching the server.
type QueryError interface {
	error
	QueryFailed() bool
}

func isQueryError(err error) bool {
	var qe QueryError
	return stderrors.As(err, &qe) && qe.QueryFailed()
}

// maskedError hides credentials in transport error messages.
type maskedError struct{ err error }

func (m maskedError) Error() string { return logging.Mask(m.err.Error()) }
func (m maskedError) Unwrap() error { return m.err }

func indent(raw json.RawMessage) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(raw), "", "  "); err != nil {
		return "", err
	}
	return buf.String(), nil
}
