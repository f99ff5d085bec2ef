// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package backend provides the client for the database provider's management API.
// It defines the API contract the CLI depends on and an HTTP implementation of it.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
)

// API defines management API operations the CLI depends on.
// Implementations may call the real endpoint or provide fakes for tests.
type API interface {
	// RunQuery submits sql for execution against the configured project and
	// returns the JSON body of a 2xx response.
	RunQuery(ctx context.Context, sql string) (json.RawMessage, error)
	// ListProjects returns the projects visible to the access token.
	ListProjects(ctx context.Context) ([]Project, error)
}

// Project is the subset of project metadata the CLI displays.
type Project struct {
	ID     string `json:"id"`
	Ref    string `json:"ref"`
	Name   string `json:"name"`
	Region string `json:"region"`
	Status string `json:"status"`
}

// Identifier returns the project reference, whichever field the API filled.
func (p Project) Identifier() string {
	if p.Ref != "" {
		return p.Ref
	}
	return p.ID
}

// StatusError is returned when the API answers with a non-2xx status.
// Body is the raw response body, unmodified.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error %d: %s", e.StatusCode, e.Body)
}

// DecodeError is returned when a 2xx response body is not valid JSON.
type DecodeError struct {
	Body string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
