// Package api is the single chokepoint for calls to the content service.
// Every request carries the session token, when one exists, and every
// failure is classified into the error taxonomy in errors.go.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const maxBodySize = 4 << 20

// TokenSource returns the current session token, or "" when anonymous.
// It is consulted before every outgoing call.
type TokenSource func() string

// Client talks to the content service over HTTP.
type Client struct {
	baseURL     string
	client      *http.Client
	scheme      string
	userAgent   string
	timeout     time.Duration
	limiter     *rate.Limiter
	debug       bool
	token       TokenSource
	onAuthError func(error)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The client is used as
// given; the request timeout is applied per call.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithTimeout sets the per-request timeout, measured from when the request
// leaves the rate limiter. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithAuthScheme sets the Authorization scheme ("Bearer" by default).
func WithAuthScheme(scheme string) Option {
	return func(c *Client) {
		if scheme != "" {
			c.scheme = scheme
		}
	}
}

// WithRateLimit throttles outgoing calls. rps <= 0 disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithDebug logs every request and its outcome.
func WithDebug(debug bool) Option {
	return func(c *Client) { c.debug = debug }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a client for the service rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{},
		timeout:   30 * time.Second,
		scheme:    "Bearer",
		userAgent: "conduit-client/1.0",
		token:     func() string { return "" },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetTokenSource installs the token source. Call it while wiring, before the
// client is used.
func (c *Client) SetTokenSource(ts TokenSource) {
	if ts == nil {
		ts = func() string { return "" }
	}
	c.token = ts
}

// OnAuthError registers a hook invoked whenever a call is rejected with an
// AuthenticationError. Call it while wiring, before the client is used.
func (c *Client) OnAuthError(fn func(error)) {
	c.onAuthError = fn
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	op := method + " " + path

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &TransportError{Op: op, Err: err}
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", c.scheme+" "+token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if c.debug {
			log.Printf("api: %s failed after %s: %v", op, time.Since(start), err)
		}
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if c.debug {
		log.Printf("api: %s -> %d (%s)", op, resp.StatusCode, time.Since(start))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return &TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
		}
		return nil
	}

	apiErr := classify(op, path, resp.StatusCode, data)
	var authErr *AuthenticationError
	if errors.As(apiErr, &authErr) && c.onAuthError != nil {
		c.onAuthError(apiErr)
	}
	return apiErr
}

// classify maps a non-2xx response onto the error taxonomy.
func classify(op, path string, status int, data []byte) error {
	var envelope struct {
		Errors map[string][]string `json:"errors"`
	}
	_ = json.Unmarshal(data, &envelope)
	fields := envelope.Errors

	switch {
	case status == http.StatusUnauthorized:
		return &AuthenticationError{Status: status, Fields: fields}
	case status == http.StatusNotFound:
		return &NotFoundError{Path: path}
	case status == http.StatusForbidden:
		// Forbidden is about the resource, not the credential; it must not end the session.
		if len(fields) == 0 {
			fields = map[string][]string{"request": {"is not permitted"}}
		}
		return &ValidationError{Status: status, Fields: fields}
	case status >= 400 && status < 500 && len(fields) > 0:
		return &ValidationError{Status: status, Fields: fields}
	default:
		return &TransportError{Op: op, Status: status}
	}
}

func escape(segment string) string {
	return url.PathEscape(segment)
}
