// Package releasehost provides a client for the GitHub Releases REST API:
// looking up a release by tag, creating a release carrying generated notes and
// uploading the built artifacts to it.
package releasehost

import "time"

const (
	// DefaultAPIEndpoint is the public GitHub REST API.
	DefaultAPIEndpoint = "https://api.github.com"
	// DefaultTimeout bounds a single API request. Asset uploads use the same
	// client, so this is generous.
	DefaultTimeout = 60 * time.Second
	// MaxRetries bounds rate-limit retries for mutating requests.
	MaxRetries = 3
	// RetryDelay is the base delay for rate-limit retries.
	RetryDelay = time.Second
)

// Release is the subset of the GitHub release object shipwright uses.
type Release struct {
	ID         int64   `json:"id"`
	TagName    string  `json:"tag_name"`
	Name       string  `json:"name"`
	Body       string  `json:"body"`
	Draft      bool    `json:"draft"`
	Prerelease bool    `json:"prerelease"`
	HTMLURL    string  `json:"html_url"`
	UploadURL  string  `json:"upload_url"`
	Assets     []Asset `json:"assets"`
}

// Asset is an uploaded release artifact.
type Asset struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	Size               int64  `json:"size"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// CreateRequest is the payload for creating a release.
type CreateRequest struct {
	TagName    string `json:"tag_name"`
	Name       string `json:"name,omitempty"`
	Body       string `json:"body,omitempty"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
}
