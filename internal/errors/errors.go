// Package errors defines typed errors with categories for user-friendly reporting.
// Every failure the CLI can hit during a dispatch is tagged with a Kind, and each
// Kind maps to a process exit code. This keeps the top-level handler small: it
// prints the message and exits with ExitCode(err), never with a bare panic.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// Usage indicates a missing argument or bad flag combination.
	Usage Kind = "usage"
	// Config indicates the project reference, token or DSN could not be resolved.
	Config Kind = "config"
	// Read indicates the SQL file could not be read.
	Read Kind = "read"
	// Transport indicates the request never produced an HTTP status.
	Transport Kind = "transport"
	// HTTP indicates the remote service answered with a non-2xx status.
	HTTP Kind = "http"
	// Query indicates the database rejected the SQL during direct execution.
	Query Kind = "query"
	// Decode indicates a success response whose body is not valid JSON.
	Decode Kind = "decode"
	// Unknown covers everything else.
	Unknown Kind = "unknown"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// KindOf returns the kind of the outermost *E in err's chain, or Unknown.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// ExitCode maps an error to the process exit status.
// A file that cannot be read gets its own code so scripts can tell it apart
// from a rejected query.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch KindOf(err) {
	case Read:
		return 2
	default:
		return 1
	}
}
