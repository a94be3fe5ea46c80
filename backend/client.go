// Package backend is the REST client for the dashboard backend: auth
// endpoints, the YouTube credential proxy and the AI key probe. The backend
// is treated as a stateless bearer-token verifier; the client injects the
// live token from the session store on every request.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const maxResponseBytes = 1 << 20

// Config holds backend client configuration.
type Config struct {
	// BaseURL of the backend API, e.g. "https://backend.postsiva.com".
	BaseURL string

	// Timeout for individual requests.
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults for the backend client.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://backend.postsiva.com",
		Timeout: 30 * time.Second,
	}
}

// Client is the backend API client.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	tokenSource    func() string
	onUnauthorized func()
}

// ClientOption modifies a Client instance.
type ClientOption func(*Client)

// WithTokenSource sets the bearer-token source consulted per request, usually
// backed by the session store so in-flight requests see the current token.
func WithTokenSource(source func() string) ClientOption {
	return func(c *Client) {
		c.tokenSource = source
	}
}

// WithOnUnauthorized sets a hook fired when an authenticated request is
// rejected with 401, typically wired to the session logout.
func WithOnUnauthorized(hook func()) ClientOption {
	return func(c *Client) {
		c.onUnauthorized = hook
	}
}

// WithHTTPClient replaces the underlying HTTP client (for tests).
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates a backend client.
func New(cfg Config, options ...ClientOption) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	client := &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range options {
		opt(client)
	}
	return client
}

// errorBody is the backend's error payload shape.
type errorBody struct {
	Detail string `json:"detail"`
}

// doJSON performs a JSON request. HTTP error statuses become *APIError;
// request failures wrap ErrUnreachable. A nil out discards the body.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "[Client.doJSON] json.Marshal")
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return errors.Wrap(err, "[Client.doJSON] http.NewRequestWithContext")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	authenticated := false
	if c.tokenSource != nil {
		if token := c.tokenSource(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
			authenticated = true
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Str("method", method).Str("path", path).Err(err).Msg("backend request failed")
		return errors.Wrapf(ErrUnreachable, "[Client.doJSON] %s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return errors.Wrap(err, "[Client.doJSON] read body")
	}

	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Bool("authenticated", authenticated).
		Msg("backend request")

	if resp.StatusCode >= 400 {
		var eb errorBody
		_ = json.Unmarshal(data, &eb)
		if resp.StatusCode == http.StatusUnauthorized && authenticated && c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return &APIError{StatusCode: resp.StatusCode, Detail: eb.Detail}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return errors.Wrapf(err, "[Client.doJSON] decode %s %s response", method, path)
		}
	}
	return nil
}
