package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/streamvibe/streamvibe/internal/config"
	"github.com/streamvibe/streamvibe/internal/metrics"
)

// TokenSource provides the persisted bearer token.
// An empty token means the request is sent unauthenticated.
type TokenSource interface {
	Get(ctx context.Context) (string, error)
}

// Client represents a StreamVibe API client.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	metrics    *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMetrics records every request in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a new StreamVibe API client for the API URL selected by cfg.
func New(cfg *config.Config, tokens TokenSource, opts ...Option) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL:    cfg.BaseURL(),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API URL requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// operation names a backend call for metrics, logs and error defaults.
type operation struct {
	name     string
	fallback string
}

var (
	opLogin         = operation{"login", "Login failed"}
	opRegister      = operation{"register", "Registration failed"}
	opMe            = operation{"me", "Error restoring session"}
	opListMedia     = operation{"list_media", "Error fetching media"}
	opSearchMedia   = operation{"search_media", "Error searching media"}
	opGetMedia      = operation{"get_media", "Error loading media"}
	opUploadMedia   = operation{"upload_media", "Error uploading media"}
	opAddComment    = operation{"add_comment", "Error adding comment"}
	opAddRating     = operation{"add_rating", "Error adding rating"}
	opListUserMedia = operation{"list_user_media", "Error fetching your media"}
	opDeleteMedia   = operation{"delete_media", "Error deleting media"}
)

// request describes a single backend call.
type request struct {
	op          operation
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

// doJSON sends payload as a JSON body (when non-nil) and decodes the response into out.
func (c *Client) doJSON(ctx context.Context, op operation, method, path string, query url.Values, payload, out any) error {
	req := request{
		op:     op,
		method: method,
		path:   path,
		query:  query,
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		req.body = bytes.NewReader(data)
		req.contentType = "application/json"
	}
	return c.do(ctx, req, out)
}

// do performs an HTTP request to the StreamVibe API.
// Any failure is returned as an *Error.
func (c *Client) do(ctx context.Context, r request, out any) error {
	reqURL := c.baseURL + r.path
	if len(r.query) > 0 {
		reqURL += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, reqURL, r.body)
	if err != nil {
		return transportError(r.op.fallback, fmt.Errorf("error creating request: %w", err))
	}

	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	c.authorize(ctx, req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.Observe(r.op.name, metrics.OutcomeTransport, time.Since(start))
		log.Debug("api request failed", "op", r.op.name, "method", r.method, "path", r.path, "request_id", requestID, "error", err)
		apiErr := transportError(r.op.fallback, fmt.Errorf("error performing request: %w", err))
		apiErr.Op = r.op.name
		return apiErr
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	log.Debug("api request", "op", r.op.name, "method", r.method, "path", r.path, "status", resp.StatusCode, "duration", elapsed, "request_id", requestID)
	if err != nil {
		c.metrics.Observe(r.op.name, metrics.OutcomeTransport, elapsed)
		apiErr := transportError(r.op.fallback, fmt.Errorf("error reading response body: %w", err))
		apiErr.Op = r.op.name
		apiErr.Status = resp.StatusCode
		return apiErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.Observe(r.op.name, metrics.OutcomeError, elapsed)
		apiErr := NormalizeError(resp.StatusCode, body, r.op.fallback)
		apiErr.Op = r.op.name
		return apiErr
	}

	if out != nil && len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			c.metrics.Observe(r.op.name, metrics.OutcomeError, elapsed)
			return &Error{
				Kind:    KindFallback,
				Op:      r.op.name,
				Message: r.op.fallback,
				Status:  resp.StatusCode,
				Err:     fmt.Errorf("error decoding response: %w", err),
			}
		}
	}

	c.metrics.Observe(r.op.name, metrics.OutcomeSuccess, elapsed)
	return nil
}

// authorize attaches the persisted bearer token, if any.
func (c *Client) authorize(ctx context.Context, req *http.Request) {
	if c.tokens == nil {
		return
	}
	token, err := c.tokens.Get(ctx)
	if err != nil {
		log.Warn("failed to read persisted token, sending request unauthenticated", "error", err)
		return
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
