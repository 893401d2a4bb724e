// Package esa is a minimal client for the esa.io v1 API: posts, comments and
// attachment uploads for a single team.
package esa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client defaults.
const (
	DefaultBaseURL = "https://api.esa.io"
	DefaultTimeout = 30 * time.Second
	userAgent      = "go-kibela2esa"
	maxErrorBody   = 4 << 10
)

// Sentinel errors.
var (
	ErrMissingTeam  = errors.New("esa: team is required")
	ErrMissingToken = errors.New("esa: access token is required")
)

// Config configures a Client.
type Config struct {
	Team        string
	AccessToken string
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string
	// Timeout applies when HTTPClient is nil. Defaults to DefaultTimeout.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to one esa team.
type Client struct {
	httpClient *http.Client
	baseURL    string
	team       string
	token      string
}

// NewClient validates cfg and returns a Client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Team) == "" {
		return nil, ErrMissingTeam
	}
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, ErrMissingToken
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		team:       cfg.Team,
		token:      cfg.AccessToken,
	}, nil
}

// Team returns the team the client writes to.
func (c *Client) Team() string {
	return c.team
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	// Code is the API's machine-readable "error" field, if any.
	Code    string
	Message string

	retryAfter time.Duration
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("esa API error %d (%s): %s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("esa API error %d: %s", e.StatusCode, msg)
}

// Retryable reports whether the request may succeed if sent again.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// RetryAfter is how long the server asked us to wait, or zero.
func (e *APIError) RetryAfter() time.Duration {
	return e.retryAfter
}

// LocalError is a failure that happened before or instead of a request, such
// as an unreadable file or an unusable upload policy. Sending the request
// again cannot fix it.
type LocalError struct {
	Err error
}

func (e *LocalError) Error() string { return e.Err.Error() }

func (e *LocalError) Unwrap() error { return e.Err }

// Retryable always reports false.
func (e *LocalError) Retryable() bool { return false }

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func newAPIError(resp *http.Response, now time.Time) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var parsed errorBody
	if json.Unmarshal(body, &parsed) == nil && (parsed.Error != "" || parsed.Message != "") {
		apiErr.Code = parsed.Error
		apiErr.Message = parsed.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
		apiErr.retryAfter = retryAfter(resp.Header, now)
	}
	return apiErr
}

// retryAfter reads Retry-After (seconds), falling back to X-RateLimit-Reset
// (unix time).
func retryAfter(h http.Header, now time.Time) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	if v := h.Get("X-RateLimit-Reset"); v != "" {
		if reset, err := strconv.ParseInt(v, 10, 64); err == nil {
			if wait := time.Unix(reset, 0).Sub(now); wait > 0 {
				return wait
			}
		}
	}
	return 0
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

func (c *Client) teamURL(path string) string {
	return c.baseURL + "/v1/teams/" + c.team + path
}

// doJSON sends in as JSON (if non-nil) and decodes a 2xx body into out.
func (c *Client) doJSON(ctx context.Context, method, url string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("esa: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("esa: create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("esa: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return newAPIError(resp, time.Now())
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("esa: decode response: %w", err)
	}
	return nil
}
