package errors

import (
	"fmt"
	"testing"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "usage", err: New(Usage, "missing file argument"), want: 1},
		{name: "http", err: New(HTTP, "status 400"), want: 1},
		{name: "transport", err: Wrap(Transport, "send request", fmt.Errorf("connection refused")), want: 1},
		{name: "read", err: Wrap(Read, "open file", fmt.Errorf("no such file")), want: 2},
		{name: "wrapped read", err: fmt.Errorf("dispatch: %w", New(Read, "open file")), want: 2},
		{name: "plain error", err: fmt.Errorf("boom"), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(fmt.Errorf("plain")); got != Unknown {
		t.Errorf("KindOf(plain) = %q, want %q", got, Unknown)
	}
	if got := KindOf(fmt.Errorf("outer: %w", New(Decode, "bad json"))); got != Decode {
		t.Errorf("KindOf(wrapped) = %q, want %q", got, Decode)
	}
}

func TestErrorString(t *testing.T) {
	e := Wrap(HTTP, "query rejected", fmt.Errorf("status 400"))
	if got, want := e.Error(), "http: query rejected: status 400"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if got, want := New(Usage, "no file").Error(), "usage: no file"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
