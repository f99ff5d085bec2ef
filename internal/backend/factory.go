// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import "time"

// Options configures the HTTP client.
type Options struct {
	// BaseURL is the management API root, e.g. https://api.supabase.com.
	BaseURL string
	// ProjectRef names the project RunQuery targets.
	ProjectRef string
	// Token is sent as a bearer credential.
	Token string
	// Timeout bounds each request. Zero means no client-side timeout.
	Timeout time.Duration
	// UserAgent overrides the default User-Agent header.
	UserAgent string
}

// New creates a backend API implementation talking to the management endpoint.
func New(opts Options) *HTTP {
	return newHTTP(opts)
}
