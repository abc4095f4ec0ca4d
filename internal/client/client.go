// Copyright 2024 The Mothership Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
)

// CodeNotFound is the gRPC NOT_FOUND code as surfaced in upstream error
// bodies. Views show distinct copy for it.
const CodeNotFound = 5

// APIError is a structured upstream failure: any response body carrying a
// non-zero "code" field.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

// IsNotFound reports whether err is an upstream NOT_FOUND failure.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == CodeNotFound
}

// Client talks to the console's proxied API surface: reads go through the
// public mount, mutations through the admin mount. BaseURL is the console
// origin.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client, e.g. with a cookie
// jar carrying a console session.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a client against the console origin.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// API mount points on the console origin.
const (
	apiMount      = "/ui/api"
	adminAPIMount = "/ui/admin-api"
)

// ListEntries fetches one page of entries. pageToken is the cursor for
// the wanted page (empty for the first), filter a filter expression or
// empty.
func (c *Client) ListEntries(ctx context.Context, pageToken, filter string) (*EntriesResponse, error) {
	var out EntriesResponse
	path := "/v1/entries?pageToken=" + url.QueryEscape(pageToken) + "&filter=" + url.QueryEscape(filter)
	if err := c.do(ctx, apiMount, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetEntry fetches a single entry by resource name ("entries/{id}").
func (c *Client) GetEntry(ctx context.Context, name string) (*Entry, error) {
	var out Entry
	if err := c.do(ctx, apiMount, http.MethodGet, "/v1/"+name, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RetractEntry retracts an archived entry. Admin operation.
func (c *Client) RetractEntry(ctx context.Context, name string) error {
	return c.do(ctx, adminAPIMount, http.MethodPost, "/v1/"+name+":retract", nil, nil)
}

// RescueEntry retries the import of an entry that is on hold. Admin
// operation.
func (c *Client) RescueEntry(ctx context.Context, name string) error {
	return c.do(ctx, adminAPIMount, http.MethodPost, "/v1/"+name+":rescueImport", nil, nil)
}

// ListBatches fetches one page of batches.
func (c *Client) ListBatches(ctx context.Context, pageToken, filter string) (*BatchesResponse, error) {
	var out BatchesResponse
	path := "/v1/batches?pageToken=" + url.QueryEscape(pageToken) + "&filter=" + url.QueryEscape(filter)
	if err := c.do(ctx, apiMount, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBatch fetches a single batch by resource name ("batches/{id}").
func (c *Client) GetBatch(ctx context.Context, name string) (*Batch, error) {
	var out Batch
	if err := c.do(ctx, apiMount, http.MethodGet, "/v1/"+name, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListWorkers fetches one page of workers.
func (c *Client) ListWorkers(ctx context.Context, pageToken string) (*WorkersResponse, error) {
	var out WorkersResponse
	path := "/v1/workers?pageToken=" + url.QueryEscape(pageToken)
	if err := c.do(ctx, apiMount, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateWorker registers a new worker. The response carries the worker's
// API secret, returned exactly once. Admin operation.
func (c *Client) CreateWorker(ctx context.Context, workerID string) (*Worker, error) {
	var out Worker
	body := map[string]string{"workerId": workerID}
	if err := c.do(ctx, adminAPIMount, http.MethodPost, "/v1/workers", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteWorker removes a worker by resource name ("workers/{id}"). Admin
// operation.
func (c *Client) DeleteWorker(ctx context.Context, name string) error {
	return c.do(ctx, adminAPIMount, http.MethodDelete, "/v1/"+name, nil, nil)
}

// do performs one request against the given mount. Any decodable body
// carrying a non-zero "code" is raised as *APIError regardless of HTTP
// status; the upstream convention is a structured error object, not bare
// status codes.
func (c *Client) do(ctx context.Context, mount, method, path string, reqBody, out interface{}) error {
	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+mount+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var probe struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &probe); err == nil && probe.Code != 0 {
		return &APIError{Code: probe.Code, Message: probe.Message}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
