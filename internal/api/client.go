package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/towerops/fieldtrack/internal/models"
	"golang.org/x/time/rate"
)

// Config holds client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Version string

	// RequestsPerSecond throttles outgoing calls; zero disables throttling.
	RequestsPerSecond float64
	Burst             int
}

// DefaultConfig returns a default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:           "https://localhost:8080",
		Timeout:           10 * time.Second,
		Version:           "dev",
		RequestsPerSecond: 10,
		Burst:             20,
	}
}

// Client is a typed HTTP client for the field-operations backend. All
// authenticated requests carry a bearer token from the token source plus the
// client version header.
type Client struct {
	baseURL    string
	httpClient *http.Client
	version    string
	limiter    *rate.Limiter
	tokenFn    func() string
}

// New creates a client. The transport logs every request at debug level.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &loggingTransport{base: http.DefaultTransport},
		},
		version: cfg.Version,
		limiter: limiter,
	}
}

// SetTokenSource installs the function that supplies the current access
// token. An empty return means no token is attached.
func (c *Client) SetTokenSource(fn func() string) {
	c.tokenFn = fn
}

// loggingTransport logs request outcomes, replacing the RPC interceptor
// logging used when the backend spoke Connect.
type loggingTransport struct {
	base http.RoundTripper
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	started := time.Now()

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		log.Debug().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Dur("duration", time.Since(started)).
			Err(err).
			Msg("http request failed")
		return nil, err
	}

	log.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(started)).
		Msg("http request")

	return resp, nil
}

// errorBody is the backend's error response shape.
type errorBody struct {
	Error   string              `json:"error"`
	Message string              `json:"message"`
	Fields  []models.FieldError `json:"fields,omitempty"`
}

// do executes a request and decodes the JSON response into out (when out is
// non-nil). Transport failures, timeouts, and HTTP error statuses are all
// mapped to semantic kinds here, at the boundary.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &Error{Kind: KindNetwork, Message: "request throttled", cause: err}
		}
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Client-Version", c.version)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokenFn != nil {
		if token := c.tokenFn(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		kind := KindNetwork
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			kind = KindTimeout
		}
		return &Error{Kind: kind, Message: "request failed", cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.statusError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &Error{Kind: KindServer, Status: resp.StatusCode, Message: "unexpected response shape", cause: err}
		}
	}

	return nil
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// statusError maps an HTTP error status to a semantic kind.
func (c *Client) statusError(resp *http.Response) error {
	var eb errorBody
	// Best effort: error bodies are informative only.
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	_ = json.Unmarshal(data, &eb)

	message := eb.Message
	if message == "" {
		message = eb.Error
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	kind := KindServer
	switch {
	case resp.StatusCode == http.StatusBadRequest && len(eb.Fields) > 0:
		kind = KindValidation
	case resp.StatusCode == http.StatusUnauthorized:
		kind = KindNotAuthenticated
	case resp.StatusCode == http.StatusNotFound:
		kind = KindNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		kind = KindRateLimited
	}

	return &Error{Kind: kind, Status: resp.StatusCode, Message: message, Fields: eb.Fields}
}
