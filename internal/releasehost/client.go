package releasehost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"shipwright/internal/services"
)

var (
	// ErrMissingToken reports a mutating call attempted without a host credential.
	ErrMissingToken = errors.New("host token missing")
	// ErrAPI reports a non-success API response.
	ErrAPI = errors.New("release host API error")
)

const probeMaxElapsed = 30 * time.Second

// Client talks to the GitHub Releases API for one repository.
type Client struct {
	Token      string
	Owner      string
	Repo       string
	BaseURL    string
	HTTPClient *http.Client
	// ProbeMaxElapsed bounds retries of transient lookup failures. Zero uses 30s.
	ProbeMaxElapsed time.Duration
}

// NewClient creates a new GitHub Releases client.
func NewClient(token, owner, repo string) *Client {
	return &Client{
		Token:   token,
		Owner:   owner,
		Repo:    repo,
		BaseURL: DefaultAPIEndpoint,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// WithBaseURL returns a copy of the client using baseURL (GitHub Enterprise or tests).
func (c *Client) WithBaseURL(baseURL string) *Client {
	clone := *c
	if strings.TrimSpace(baseURL) != "" {
		clone.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &clone
}

// WithTimeout returns a copy of the client whose requests time out after d.
func (c *Client) WithTimeout(d time.Duration) *Client {
	clone := *c
	if d > 0 {
		clone.HTTPClient = &http.Client{Timeout: d}
	}
	return &clone
}

func (c *Client) repoPath() string {
	return url.PathEscape(c.Owner) + "/" + url.PathEscape(c.Repo)
}

func (c *Client) buildURL(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + path
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: DefaultTimeout}
}

func (c *Client) configured() error {
	if strings.TrimSpace(c.Owner) == "" || strings.TrimSpace(c.Repo) == "" {
		return errors.New("host owner/repo not configured")
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, urlStr string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, urlStr, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if token := strings.TrimSpace(c.Token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	return req, nil
}

// GetReleaseByTag returns the release for tag, or nil when none exists.
// Transient failures (network errors, 429, 5xx) are retried with exponential
// backoff.
func (c *Client) GetReleaseByTag(ctx context.Context, tag string) (*Release, error) {
	if err := c.configured(); err != nil {
		return nil, err
	}
	target := c.buildURL("/repos/" + c.repoPath() + "/releases/tags/" + url.PathEscape(tag))

	var release *Release
	op := func() error {
		req, err := c.newRequest(ctx, http.MethodGet, target, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.httpClient().Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("request %s: %w", target, err)
		}
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
		_ = resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("read response: %w", readErr)
		}
		switch {
		case resp.StatusCode == http.StatusOK:
			var rel Release
			if err := json.Unmarshal(body, &rel); err != nil {
				return backoff.Permanent(fmt.Errorf("parse release response: %w", err))
			}
			release = &rel
			return nil
		case resp.StatusCode == http.StatusNotFound:
			release = nil
			return nil
		case isRetryableStatus(resp):
			return apiError(resp.StatusCode, body)
		default:
			return backoff.Permanent(apiError(resp.StatusCode, body))
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = probeMaxElapsed
	if c.ProbeMaxElapsed > 0 {
		bo.MaxElapsedTime = c.ProbeMaxElapsed
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return release, nil
}

// ReleaseExists reports whether a release is attached to tag.
func (c *Client) ReleaseExists(ctx context.Context, tag string) (bool, error) {
	rel, err := c.GetReleaseByTag(ctx, tag)
	if err != nil {
		return false, err
	}
	return rel != nil, nil
}

// CreateRelease creates a release for an existing tag.
func (c *Client) CreateRelease(ctx context.Context, in CreateRequest) (*Release, error) {
	if err := c.configured(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(c.Token) == "" {
		return nil, ErrMissingToken
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal release request: %w", err)
	}
	body, err := c.doMutating(ctx, func() (*http.Request, error) {
		req, err := c.newRequest(ctx, http.MethodPost, c.buildURL("/repos/"+c.repoPath()+"/releases"), bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("create release %s: %w", in.TagName, err)
	}
	var rel Release
	if err := json.Unmarshal(body, &rel); err != nil {
		return nil, fmt.Errorf("parse create release response: %w", err)
	}
	return &rel, nil
}

// UploadAsset uploads the file at path to rel. Assets already attached under
// the same name are left untouched.
func (c *Client) UploadAsset(ctx context.Context, rel *Release, path string) (*Asset, error) {
	if rel == nil || strings.TrimSpace(rel.UploadURL) == "" {
		return nil, errors.New("release has no upload url")
	}
	if strings.TrimSpace(c.Token) == "" {
		return nil, ErrMissingToken
	}
	name := filepath.Base(path)
	for i := range rel.Assets {
		if rel.Assets[i].Name == name {
			return &rel.Assets[i], nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read asset %s: %w", path, err)
	}

	target := UploadTarget(rel.UploadURL, name)
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	body, err := c.doMutating(ctx, func() (*http.Request, error) {
		req, err := c.newRequest(ctx, http.MethodPost, target, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		req.ContentLength = int64(len(data))
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("upload asset %s: %w", name, err)
	}
	var asset Asset
	if err := json.Unmarshal(body, &asset); err != nil {
		return nil, fmt.Errorf("parse asset response: %w", err)
	}
	rel.Assets = append(rel.Assets, asset)
	return &asset, nil
}

// Publish creates the release and uploads every asset. A failure wraps
// services.ErrFatalStep.
func (c *Client) Publish(ctx context.Context, in CreateRequest, assets []string) (*Release, error) {
	rel, err := c.CreateRelease(ctx, in)
	if err != nil {
		return nil, services.Wrap(services.ErrFatalStep, "", "create release", "", err)
	}
	for _, path := range assets {
		if _, err := c.UploadAsset(ctx, rel, path); err != nil {
			return rel, services.Wrap(services.ErrFatalStep, "", "upload asset", "", err)
		}
	}
	return rel, nil
}

// UploadTarget expands the hypermedia upload_url template
// ("...assets{?name,label}") for name.
func UploadTarget(uploadURL, name string) string {
	base, _, _ := strings.Cut(uploadURL, "{")
	return base + "?name=" + url.QueryEscape(name)
}

// doMutating sends a non-idempotent request, retrying only on rate limiting
// where the API guarantees the request was not applied.
func (c *Client) doMutating(ctx context.Context, build func() (*http.Request, error)) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		req, err := build()
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient().Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}

		if isRateLimited(resp) {
			delay := RetryDelay * time.Duration(1<<attempt)
			if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
				if seconds, err := strconv.Atoi(retryAfter); err == nil {
					delay = time.Duration(seconds) * time.Second
				}
			}
			lastErr = fmt.Errorf("rate limited (attempt %d/%d)", attempt+1, MaxRetries+1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
				continue
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, apiError(resp.StatusCode, body)
		}
		return body, nil
	}
	return nil, fmt.Errorf("max retries (%d) exceeded: %w", MaxRetries+1, lastErr)
}

func isRateLimited(resp *http.Response) bool {
	return resp.StatusCode == http.StatusTooManyRequests ||
		(resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0")
}

func isRetryableStatus(resp *http.Response) bool {
	return isRateLimited(resp) || resp.StatusCode >= 500
}

func apiError(status int, body []byte) error {
	var payload struct {
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		msg = payload.Message
	}
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return fmt.Errorf("%w: status %d: %s", ErrAPI, status, msg)
}
