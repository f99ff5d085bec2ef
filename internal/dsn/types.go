// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package dsn parses and normalizes PostgreSQL connection strings for --direct mode.
package dsn

import "fmt"

// Info contains parsed information from a DSN string
type Info struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Params   map[string]string
	Original string
}

// ParseError represents an error that occurred during DSN parsing
type ParseError struct {
	Reason string
	Hint   string
}

func (e *ParseError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("invalid DSN format: %s\nHint: %s", e.Reason, e.Hint)
	}
	return fmt.Sprintf("invalid DSN format: %s", e.Reason)
}

func newParseError(reason, hint string) *ParseError {
	return &ParseError{Reason: reason, Hint: hint}
}
