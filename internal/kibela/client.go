// Package kibela resolves wiki pages of a Kibela team to the notes they
// redirect to, using a browser session cookie.
package kibela

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// DefaultTimeout bounds a single lookup.
const DefaultTimeout = 30 * time.Second

// SessionCookie is the cookie carrying the Kibela browser session.
const SessionCookie = "_session_id"

// ErrMissingBaseURL is returned by NewClient without a team URL.
var ErrMissingBaseURL = errors.New("kibela: base URL is required")

var notePath = regexp.MustCompile(`/notes/(\d+)(?:[/?#]|$)`)

// StatusError is an unexpected response to a lookup.
type StatusError struct {
	StatusCode int
	WikiID     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("kibela: wiki %s: unexpected status %d", e.WikiID, e.StatusCode)
}

// Retryable reports whether the lookup may succeed if repeated.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. Its CheckRedirect is
// overridden so redirects are never followed.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			clone := *hc
			c.httpClient = &clone
		}
	}
}

// WithTimeout sets the per-lookup timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// Client looks up wiki redirects.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	sessionID  string
}

// NewClient returns a Client for the team at baseURL, e.g.
// "https://acme.kibe.la". sessionID may be empty for public teams.
func NewClient(baseURL, sessionID string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, ErrMissingBaseURL
	}
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("kibela: parse base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("kibela: base URL %q must be absolute", baseURL)
	}

	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    u,
		sessionID:  sessionID,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.httpClient.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return c, nil
}

// LookupNoteID requests the wiki page and returns the note id its redirect
// points to. A page that does not redirect to a note yields "" and no error.
func (c *Client) LookupNoteID(ctx context.Context, wikiID string) (string, error) {
	target := c.baseURL.JoinPath("wikis", wikiID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return "", fmt.Errorf("kibela: create request: %w", err)
	}
	if c.sessionID != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: c.sessionID})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("kibela: wiki %s: %w", wikiID, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		return noteIDFromLocation(req.URL, resp.Header.Get("Location")), nil
	case resp.StatusCode >= 400:
		return "", &StatusError{StatusCode: resp.StatusCode, WikiID: wikiID}
	default:
		return "", nil
	}
}

func noteIDFromLocation(base *url.URL, location string) string {
	if location == "" {
		return ""
	}
	loc, err := base.Parse(location)
	if err != nil || loc.Host != base.Host {
		return ""
	}
	m := notePath.FindStringSubmatch(loc.Path)
	if m == nil {
		return ""
	}
	return m[1]
}
