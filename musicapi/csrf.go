package musicapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"music-player-go/logcolors"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

var errNoCSRFToken = errors.New("no csrf token on page")

// CSRFToken returns the token attached to mutating requests.
func (c *Client) CSRFToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.csrf
}

// SetCSRFToken overrides the token, for servers that hand it out another way.
func (c *Client) SetCSRFToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.csrf = token
}

func (c *Client) ensureCSRF(ctx context.Context) error {
	if c.CSRFToken() != "" {
		return nil
	}
	_, err := c.RefreshCSRFToken(ctx)
	return err
}

// RefreshCSRFToken loads the login page and stores the token found in its
// csrf-token meta tag or hidden csrf_token field.
func (c *Client) RefreshCSRFToken(ctx context.Context) (string, error) {
	var token string

	err := c.breaker.Do(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/login", nil), nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "text/html")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return &APIError{Endpoint: "/login", StatusCode: resp.StatusCode}
		}

		token, err = findCSRFToken(io.LimitReader(resp.Body, maxResponseBytes))
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to refresh csrf token: %w", err)
	}

	c.SetCSRFToken(token)
	log.Debugf("%s Token refreshed", logcolors.LogCSRF)
	return token, nil
}

// findCSRFToken scans an HTML page. The meta tag wins over the form field.
func findCSRFToken(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var meta, field string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				if strings.EqualFold(attr(n, "name"), "csrf-token") && meta == "" {
					meta = attr(n, "content")
				}
			case "input":
				if attr(n, "name") == "csrf_token" && field == "" {
					field = attr(n, "value")
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	switch {
	case meta != "":
		return meta, nil
	case field != "":
		return field, nil
	default:
		return "", errNoCSRFToken
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
