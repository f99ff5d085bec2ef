// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
)

var verbose atomic.Bool

func init() {
	if os.Getenv("SQLDISPATCH_VERBOSE") == "1" {
		verbose.Store(true)
	}
}

// SetVerbose toggles [DEBUG] output for the whole process.
func SetVerbose(v bool) { verbose.Store(v) }

// Verbose reports whether [DEBUG] output is enabled.
func Verbose() bool { return verbose.Load() }

// Debugf writes a masked [DEBUG] line to stderr when verbose mode is on.
func Debugf(format string, args ...any) {
	DebugTo(os.Stderr, format, args...)
}

// DebugTo is Debugf with an explicit writer.
func DebugTo(w io.Writer, format string, args ...any) {
	if !verbose.Load() {
		return
	}
	fmt.Fprintf(w, "[DEBUG] %s\n", Mask(fmt.Sprintf(format, args...)))
}

// PresentError formats an error for user display with masking.
func PresentError(context string, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", context, Mask(err.Error()))
}
