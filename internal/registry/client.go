// Package registry talks to a PyPI-compatible package index: it asks whether a
// version is already published through the JSON API and uploads built
// artifacts through the configured upload tool.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultBaseURL is the public Python Package Index.
	DefaultBaseURL = "https://pypi.org"
	// DefaultTimeout bounds a single probe request.
	DefaultTimeout = 15 * time.Second

	defaultMaxElapsed = 30 * time.Second
)

// ErrUnexpectedStatus reports a response that is neither present nor absent.
var ErrUnexpectedStatus = errors.New("unexpected registry response")

// Client queries the registry JSON API.
type Client struct {
	BaseURL    string
	Package    string
	HTTPClient *http.Client
	// MaxElapsed bounds retries of transient failures. Zero uses 30s.
	MaxElapsed time.Duration
}

// NewClient creates a client for pkg on the registry at baseURL.
func NewClient(baseURL, pkg string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Package:    pkg,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// VersionURL returns the JSON API URL describing number.
func (c *Client) VersionURL(number string) string {
	return fmt.Sprintf("%s/pypi/%s/%s/json", strings.TrimRight(c.BaseURL, "/"), url.PathEscape(c.Package), url.PathEscape(number))
}

// ProjectURL returns the human-facing page for number.
func (c *Client) ProjectURL(number string) string {
	return fmt.Sprintf("%s/project/%s/%s/", strings.TrimRight(c.BaseURL, "/"), url.PathEscape(c.Package), url.PathEscape(number))
}

// Exists reports whether number is published. 200 means present and 404
// absent; network errors, 429 and 5xx responses are retried with exponential
// backoff before giving up with an error.
func (c *Client) Exists(ctx context.Context, number string) (bool, error) {
	if strings.TrimSpace(c.Package) == "" {
		return false, errors.New("registry package name not configured")
	}
	target := c.VersionURL(number)

	var found bool
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient().Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("request %s: %w", target, err)
		}
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
		_ = resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			found = true
			return nil
		case resp.StatusCode == http.StatusNotFound:
			found = false
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("%w: %s returned %d", ErrUnexpectedStatus, target, resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("%w: %s returned %d", ErrUnexpectedStatus, target, resp.StatusCode))
		}
	}

	if err := backoff.Retry(op, backoff.WithContext(c.newBackoff(), ctx)); err != nil {
		return false, err
	}
	return found, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: DefaultTimeout}
}

func (c *Client) newBackoff() backoff.BackOff {
	// BackOff implementations are stateful; always return a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = defaultMaxElapsed
	if c.MaxElapsed > 0 {
		bo.MaxElapsedTime = c.MaxElapsed
	}
	return bo
}
