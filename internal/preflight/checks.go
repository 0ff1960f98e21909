package preflight

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"shipwright/internal/config"
	"shipwright/internal/deps"
)

const hostCheckTimeout = 5 * time.Second

// CheckTools verifies the binaries invoked by the release steps.
func CheckTools(ctx context.Context, cfg *config.Config) []Result {
	requirements := []deps.Requirement{
		{
			Name:        "git",
			Command:     "git",
			Description: "Required for tagging and pushing",
			VersionArgs: []string{"--version"},
		},
		{
			Name:        "Build tool",
			Command:     firstArg(cfg.Build.Command),
			Description: "Required to build distribution artifacts",
		},
		{
			Name:        "Upload tool",
			Command:     firstArg(cfg.Registry.UploadCommand),
			Description: "Required to publish to the registry",
		},
	}
	statuses := deps.CheckBinaries(ctx, requirements)
	results := make([]Result, 0, len(statuses))
	for _, s := range statuses {
		r := Result{Name: s.Name, Passed: s.Available, Optional: s.Optional}
		switch {
		case !s.Available:
			r.Detail = s.Detail
		case s.Version != "":
			r.Detail = fmt.Sprintf("%s (%s)", s.Path, s.Version)
		default:
			r.Detail = s.Path
		}
		results = append(results, r)
	}
	return results
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckGitRepository verifies that root is the top of a git work tree. A .git
// file (worktrees, submodules) counts.
func CheckGitRepository(root string) Result {
	const name = "Git repository"
	if strings.TrimSpace(root) == "" {
		return Result{Name: name, Detail: "project root not configured"}
	}
	if _, err := os.Stat(filepath.Join(root, ".git")); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s is not a git repository root", root)}
	}
	return Result{Name: name, Passed: true, Detail: root}
}

// CheckFile verifies that path exists and is a writable regular file.
func CheckFile(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.Mode().IsRegular() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not a regular file)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckHostRepository verifies that the hosted repository is known.
func CheckHostRepository(owner, repo string) Result {
	const name = "Host repository"
	if strings.TrimSpace(owner) == "" || strings.TrimSpace(repo) == "" {
		return Result{Name: name, Detail: "owner/repo unknown; set [host] owner and repo or add a GitHub remote"}
	}
	return Result{Name: name, Passed: true, Detail: owner + "/" + repo}
}

// CheckCredential reports whether a credential is present. Credentials are
// optional at preflight time.
func CheckCredential(name, value, hint string) Result {
	if strings.TrimSpace(value) == "" {
		return Result{Name: name, Optional: true, Detail: "missing; " + hint}
	}
	return Result{Name: name, Passed: true, Optional: true, Detail: "present"}
}

// CheckHostAccess verifies that the host API accepts the token for the repository.
func CheckHostAccess(ctx context.Context, apiURL, owner, repo, token string) Result {
	const name = "Host token"

	base := strings.TrimRight(strings.TrimSpace(apiURL), "/")
	if base == "" {
		return Result{Name: name, Optional: true, Detail: "missing api url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, hostCheckTimeout)
	defer cancel()

	client := &http.Client{Timeout: hostCheckTimeout}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, fmt.Sprintf("%s/repos/%s/%s", base, owner, repo), nil)
	if err != nil {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("access check failed (%v)", err)}
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("access check failed (%v)", err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Optional: true, Detail: "present (repository reachable)"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Optional: true, Detail: "auth failed (invalid or under-scoped token)"}
	case http.StatusNotFound:
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("repository %s/%s not visible with this token", owner, repo)}
	default:
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("access check failed (%d)", resp.StatusCode)}
	}
}

func firstArg(command []string) string {
	if len(command) == 0 {
		return ""
	}
	return command[0]
}
