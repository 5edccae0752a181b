// Package musicapi talks to the music server: catalog listing, streaming URLs,
// lyrics, likes, online search and download, and the login flows that set the
// session cookie.
package musicapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"music-player-go/circuitbreaker"
	"music-player-go/logcolors"
	"music-player-go/stats"

	log "github.com/sirupsen/logrus"
)

const maxResponseBytes = 10 << 20

// Options configure a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration

	// Breaker guards every request. A default breaker named "MusicServer" is
	// created when nil.
	Breaker *circuitbreaker.CircuitBreaker
	Stats   *stats.Stats
}

// Client is safe for concurrent use. Cookies set by the server (the session
// after login) are kept in a jar shared with HTTPClient.
type Client struct {
	base    *url.URL
	http    *http.Client
	breaker *circuitbreaker.CircuitBreaker
	stats   *stats.Stats

	mu   sync.RWMutex
	csrf string
}

// New builds a client for the server at opts.BaseURL.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid music server url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid music server url %q", opts.BaseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	breaker := opts.Breaker
	if breaker == nil {
		breaker = circuitbreaker.New(circuitbreaker.Config{Name: "MusicServer", IsFailure: IsServerFailure})
	}
	st := opts.Stats
	if st == nil {
		st = stats.Get()
	}

	return &Client{
		base:    base,
		http:    &http.Client{Jar: jar, Timeout: opts.Timeout},
		breaker: breaker,
		stats:   st,
	}, nil
}

// HTTPClient returns the underlying client. Requests made with it carry the
// session cookie, which the audio stream endpoint needs.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Breaker exposes the circuit breaker for status reporting.
func (c *Client) Breaker() *circuitbreaker.CircuitBreaker {
	return c.breaker
}

// BaseURL returns the server root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.base.String()
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = c.base.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// request describes one call. mutating calls carry the CSRF token.
type request struct {
	method   string
	path     string
	query    url.Values
	body     interface{}
	mutating bool
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	data, err := c.send(ctx, request{method: http.MethodGet, path: path, query: query})
	if err != nil {
		return err
	}
	return decodeJSON(path, data, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	if err := c.ensureCSRF(ctx); err != nil {
		log.Warnf("%s Proceeding without token for %s: %v", logcolors.LogCSRF, path, err)
	}
	data, err := c.send(ctx, request{method: http.MethodPost, path: path, body: body, mutating: true})
	if err != nil {
		return err
	}
	return decodeJSON(path, data, out)
}

func decodeJSON(path string, data []byte, out interface{}) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{Endpoint: path, StatusCode: http.StatusOK, Message: "malformed response", Err: err}
	}
	return nil
}

// send runs a request through the circuit breaker and returns the body of a
// 2xx response.
func (c *Client) send(ctx context.Context, r request) ([]byte, error) {
	var data []byte

	err := c.breaker.Do(func() error {
		var err error
		data, err = c.roundTrip(ctx, r)
		return err
	})

	switch {
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		log.Warnf("%s Request to %s blocked, circuit is OPEN (retry in %v)",
			logcolors.LogMusicAPI, r.path, c.breaker.TimeUntilRetry())
		return nil, err
	case err != nil:
		c.stats.UpstreamErrors.Add(1)
		log.Errorf("%s %s %s failed: %v", logcolors.LogMusicAPI, r.method, r.path, err)
		return nil, err
	}
	return data, nil
}

func (c *Client) roundTrip(ctx context.Context, r request) ([]byte, error) {
	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s request: %w", r.path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.endpoint(r.path, r.query), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.mutating {
		if token := c.CSRFToken(); token != "" {
			req.Header.Set("X-CSRFToken", token)
			req.Header.Set("X-CSRF-Token", token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	log.Debugf("%s %s %s -> %d (%v)", logcolors.LogMusicAPI, r.method, r.path, resp.StatusCode, time.Since(start))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", r.path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Endpoint: r.path, StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}

	// Unauthenticated calls to login-only endpoints are redirected to the login page.
	if r.path != "/login" && resp.Request != nil && resp.Request.URL.Path == c.base.Path+"/login" {
		return nil, &APIError{Endpoint: r.path, StatusCode: http.StatusUnauthorized, Message: "redirected to login", Err: ErrLoginRequired}
	}

	return data, nil
}

// errorMessage pulls the human readable message out of an error body.
func errorMessage(data []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	msg := strings.TrimSpace(string(data))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
