// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"sqldispatch/cli/internal/logging"
)

const defaultUserAgent = "sqldispatch-cli/1.0"

// HTTP implements API over the REST management endpoints.
type HTTP struct {
	// baseURL is the base URL for all HTTP requests (e.g., "https://api.supabase.com")
	baseURL    string
	projectRef string
	token      string
	userAgent  string
	// client is the underlying HTTP client; its Timeout is zero unless configured
	client *http.Client
}

// newHTTP creates a new HTTP client from opts.
func newHTTP(opts Options) *HTTP {
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	return &HTTP{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		projectRef: opts.ProjectRef,
		token:      opts.Token,
		userAgent:  ua,
		client:     &http.Client{Timeout: opts.Timeout},
	}
}

// QueryURL returns the endpoint RunQuery posts to.
func (h *HTTP) QueryURL() string {
	return fmt.Sprintf("%s/v1/projects/%s/database/query", h.baseURL, url.PathEscape(h.projectRef))
}

type queryRequest struct {
	Query string `json:"query"`
}

// RunQuery calls POST /v1/projects/{ref}/database/query with {"query": sql}.
// The SQL text is sent unmodified. Non-2xx responses yield *StatusError and
// a 2xx body that is not JSON yields *DecodeError.
func (h *HTTP) RunQuery(ctx context.Context, sql string) (json.RawMessage, error) {
	payload, err := json.Marshal(queryRequest{Query: sql})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.QueryURL(), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	h.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	logging.Debugf("POST %s (%d bytes)", req.URL.Redacted(), len(payload))
	body, err := h.do(req)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, &DecodeError{Body: string(body), Err: fmt.Errorf("response is not valid JSON (%d bytes)", len(body))}
	}
	return json.RawMessage(body), nil
}

// ListProjects calls GET /v1/projects.
func (h *HTTP) ListProjects(ctx context.Context) ([]Project, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/v1/projects", nil)
	if err != nil {
		return nil, err
	}
	h.setHeaders(req)

	body, err := h.do(req)
	if err != nil {
		return nil, err
	}
	var out []Project
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &DecodeError{Body: string(body), Err: err}
	}
	return out, nil
}

func (h *HTTP) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+h.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", h.userAgent)
}

// do sends req and returns the full body of a 2xx response.
func (h *HTTP) do(req *http.Request) ([]byte, error) {
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	logging.Debugf("%s %s -> %d", req.Method, req.URL.Path, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
