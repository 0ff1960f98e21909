package gitrepo

import (
	"net/url"
	"strings"
)

// ParseGitHubRemote extracts owner and repository from a GitHub remote URL in
// https, ssh or scp-like form. ok is false for other hosts.
func ParseGitHubRemote(remote string) (owner, repo string, ok bool) {
	remote = strings.TrimSpace(remote)
	if remote == "" {
		return "", "", false
	}

	var path string
	switch {
	case strings.HasPrefix(remote, "git@"):
		host, rest, found := strings.Cut(strings.TrimPrefix(remote, "git@"), ":")
		if !found || !isGitHubHost(host) {
			return "", "", false
		}
		path = rest
	default:
		u, err := url.Parse(remote)
		if err != nil || !isGitHubHost(u.Hostname()) {
			return "", "", false
		}
		path = u.Path
	}

	path = strings.TrimSuffix(strings.Trim(path, "/"), ".git")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func isGitHubHost(host string) bool {
	return strings.EqualFold(host, "github.com") || strings.EqualFold(host, "www.github.com")
}
