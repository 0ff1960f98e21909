package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"shipwright/internal/services"
	"shipwright/internal/testsupport"
)

type fakeHosts struct {
	t        *testing.T
	srv      *httptest.Server
	mu       sync.Mutex
	marker   string
	releases map[string]bool
	bodies   []string
	uploads  []string
}

// newFakeHosts serves the registry JSON API and the release host API. The
// registry reports the package as published once marker exists.
func newFakeHosts(t *testing.T, marker string) *fakeHosts {
	t.Helper()
	f := &fakeHosts{t: t, marker: marker, releases: map[string]bool{}}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeHosts) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	const repo = "/repos/aceteam-ai/aceteam-nodes"
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/pypi/aceteam-nodes/1.1.0/json":
		if _, err := os.Stat(f.marker); err == nil {
			_, _ = w.Write([]byte(`{"info":{"version":"1.1.0"}}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	case r.Method == http.MethodGet && r.URL.Path == repo:
		_, _ = w.Write([]byte(`{"full_name":"aceteam-ai/aceteam-nodes"}`))
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, repo+"/releases/tags/"):
		tag := strings.TrimPrefix(r.URL.Path, repo+"/releases/tags/")
		if !f.releases[tag] {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 1, "tag_name": tag})
	case r.Method == http.MethodPost && r.URL.Path == repo+"/releases":
		var in struct {
			TagName string `json:"tag_name"`
			Body    string `json:"body"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			f.t.Errorf("decode create request: %v", err)
		}
		f.releases[in.TagName] = true
		f.bodies = append(f.bodies, in.Body)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":         1,
			"tag_name":   in.TagName,
			"html_url":   "https://github.com/aceteam-ai/aceteam-nodes/releases/tag/" + in.TagName,
			"upload_url": f.srv.URL + "/uploads/1/assets{?name,label}",
		})
	case r.Method == http.MethodPost && r.URL.Path == "/uploads/1/assets":
		_, _ = io.Copy(io.Discard, r.Body)
		name := r.URL.Query().Get("name")
		f.uploads = append(f.uploads, name)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": len(f.uploads), "name": name})
	default:
		f.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusTeapot)
	}
}

func writeReleaseConfig(t *testing.T, path, serverURL, marker string) {
	t.Helper()
	testsupport.WriteFile(t, path, fmt.Sprintf(`[build]
command = ["sh", "-c", "mkdir -p dist && printf wheel > dist/aceteam_nodes-1.1.0-py3-none-any.whl && printf sdist > dist/aceteam_nodes-1.1.0.tar.gz"]

[registry]
url = %q
upload_command = ["sh", "-c", "printf '%%s' \"$TWINE_REPOSITORY_URL\" > %s", "upload"]

[host]
api_url = %q
owner = "aceteam-ai"
repo = "aceteam-nodes"

[logging]
level = "debug"
`, serverURL, marker, serverURL))
}

func TestReleaseEndToEnd(t *testing.T) {
	requireTools(t, "git", "sh")
	base := isolateEnv(t)
	t.Setenv("PYPI_TOKEN", "pypi-test")
	t.Setenv("GITHUB_TOKEN", "gh-test")

	root := newPackageRepo(t, base, "feat: add y", "fix: correct x")
	remote := filepath.Join(base, "remote.git")
	git(t, base, "init", "-q", "--bare", remote)
	git(t, root, "remote", "add", "origin", remote)
	git(t, root, "push", "-q", "origin", "main", "refs/tags/v1.0.0")

	marker := filepath.Join(base, "uploaded")
	hosts := newFakeHosts(t, marker)
	configPath := filepath.Join(base, "shipwright.toml")
	writeReleaseConfig(t, configPath, hosts.srv.URL, marker)

	out, stderr, err := runCLI(t, nil, "--repo", root, "--config", configPath, "--version", "v1.1.0", "--yes")
	if err != nil {
		t.Fatalf("release: %v\nstdout:\n%s\nstderr:\n%s", err, out, stderr)
	}
	requireContains(t, out, "v1.1.0 released (5 executed, 0 already done)")

	requireContains(t, testsupport.ReadFile(t, filepath.Join(root, "pyproject.toml")), `version = "1.1.0"`)
	requireContains(t, testsupport.ReadFile(t, filepath.Join(root, "src", "aceteam_nodes", "__init__.py")), `__version__ = "1.1.0"`)
	if msg := git(t, root, "log", "-1", "--pretty=%s"); msg != "release: v1.1.0" {
		t.Fatalf("release commit = %q", msg)
	}
	if got := git(t, root, "rev-parse", "v1.1.0^{commit}"); got != git(t, root, "rev-parse", "HEAD") {
		t.Fatal("tag should point at the release commit")
	}
	requireContains(t, git(t, remote, "tag", "--list"), "v1.1.0")
	if git(t, remote, "rev-parse", "main") != git(t, root, "rev-parse", "HEAD") {
		t.Fatal("remote branch should contain the release commit")
	}
	if _, err := os.Stat(marker); err != nil {
		t.Fatalf("upload command did not run: %v", err)
	}
	if got := testsupport.ReadFile(t, marker); got != hosts.srv.URL+"/legacy/" {
		t.Fatalf("upload targeted %q, want the probed index %s/legacy/", got, hosts.srv.URL)
	}

	if len(hosts.bodies) != 1 {
		t.Fatalf("expected one hosted release, got %d", len(hosts.bodies))
	}
	for _, want := range []string{"- fix: correct x", "- feat: add y", "pip install aceteam-nodes==1.1.0", "compare/v1.0.0...v1.1.0"} {
		requireContains(t, hosts.bodies[0], want)
	}
	if len(hosts.uploads) != 2 {
		t.Fatalf("expected 2 uploaded assets, got %v", hosts.uploads)
	}

	logs, err := filepath.Glob(filepath.Join(root, ".git", "shipwright", "logs", "release-*.jsonl"))
	if err != nil || len(logs) != 1 {
		t.Fatalf("expected one run log, got %v (%v)", logs, err)
	}
	requireContains(t, testsupport.ReadFile(t, logs[0]), `"event_type":"step_complete"`)

	// Rerunning converges without repeating side effects.
	out, stderr, err = runCLI(t, nil, "--repo", root, "--config", configPath, "--version", "v1.1.0", "--yes")
	if err != nil {
		t.Fatalf("rerun: %v\nstdout:\n%s\nstderr:\n%s", err, out, stderr)
	}
	requireContains(t, out, "v1.1.0 released (1 executed, 4 already done)")
	if len(hosts.bodies) != 1 || len(hosts.uploads) != 2 {
		t.Fatalf("rerun repeated host effects: %d releases, %d uploads", len(hosts.bodies), len(hosts.uploads))
	}
	if n := strings.Count(git(t, root, "log", "--pretty=%s"), "release: v1.1.0"); n != 1 {
		t.Fatalf("expected exactly one release commit, got %d", n)
	}
}

func TestReleaseDryRunChangesNothing(t *testing.T) {
	requireTools(t, "git", "sh")
	base := isolateEnv(t)
	root := newPackageRepo(t, base, "feat: add y")
	marker := filepath.Join(base, "uploaded")
	hosts := newFakeHosts(t, marker)
	configPath := filepath.Join(base, "shipwright.toml")
	writeReleaseConfig(t, configPath, hosts.srv.URL, marker)
	head := git(t, root, "rev-parse", "HEAD")

	prompt := &scriptedPrompter{}
	out, stderr, err := runCLI(t, prompt, "--repo", root, "--config", configPath, "--version", "v1.1.0", "--dry-run")
	if err != nil {
		t.Fatalf("dry run: %v\nstderr:\n%s", err, stderr)
	}
	requireContains(t, out, "would set version 1.1.0")
	requireContains(t, out, "dry run complete; nothing was changed")
	requireContains(t, out, "pip install aceteam-nodes==1.1.0")

	if prompt.confirms != 0 {
		t.Fatal("dry run must not ask for confirmation")
	}
	if git(t, root, "rev-parse", "HEAD") != head {
		t.Fatal("dry run created a commit")
	}
	if tags := git(t, root, "tag", "--list"); strings.Contains(tags, "v1.1.0") {
		t.Fatal("dry run created a tag")
	}
	requireContains(t, testsupport.ReadFile(t, filepath.Join(root, "pyproject.toml")), `version = "1.0.0"`)
	if _, err := os.Stat(filepath.Join(root, "dist")); !os.IsNotExist(err) {
		t.Fatal("dry run built artifacts")
	}
	if len(hosts.bodies) != 0 {
		t.Fatal("dry run created a hosted release")
	}
}

func TestReleasePromptsForVersionAndHonoursDecline(t *testing.T) {
	requireTools(t, "git", "sh")
	base := isolateEnv(t)
	t.Setenv("PYPI_TOKEN", "pypi-test")
	root := newPackageRepo(t, base, "feat: add y")
	marker := filepath.Join(base, "uploaded")
	hosts := newFakeHosts(t, marker)
	configPath := filepath.Join(base, "shipwright.toml")
	writeReleaseConfig(t, configPath, hosts.srv.URL, marker)

	prompt := &scriptedPrompter{version: "v1.1.0", confirm: false}
	_, _, err := runCLI(t, prompt, "--repo", root, "--config", configPath)
	if !errors.Is(err, services.ErrCancelled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if prompt.versions != 1 || prompt.confirms != 1 {
		t.Fatalf("prompts: versions=%d confirms=%d", prompt.versions, prompt.confirms)
	}
	requireContains(t, testsupport.ReadFile(t, filepath.Join(root, "pyproject.toml")), `version = "1.0.0"`)
}

func TestReleaseRejectsDirtyTree(t *testing.T) {
	requireTools(t, "git", "sh")
	base := isolateEnv(t)
	t.Setenv("PYPI_TOKEN", "pypi-test")
	root := newPackageRepo(t, base)
	marker := filepath.Join(base, "uploaded")
	hosts := newFakeHosts(t, marker)
	configPath := filepath.Join(base, "shipwright.toml")
	writeReleaseConfig(t, configPath, hosts.srv.URL, marker)
	testsupport.WriteFile(t, filepath.Join(root, "notes.txt"), "scratch\n")

	_, _, err := runCLI(t, nil, "--repo", root, "--config", configPath, "--version", "v1.1.0", "--yes")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	requireContains(t, err.Error(), "notes.txt")
	requireContains(t, testsupport.ReadFile(t, filepath.Join(root, "pyproject.toml")), `version = "1.0.0"`)
}

func TestReleaseRejectsInvalidVersion(t *testing.T) {
	requireTools(t, "git")
	base := isolateEnv(t)
	root := newPackageRepo(t, base)

	_, _, err := runCLI(t, nil, "--repo", root, "--version", "1.2", "--yes")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUnknownFlagIsValidationError(t *testing.T) {
	_, _, err := runCLI(t, nil, "--bogus")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNotesCommand(t *testing.T) {
	requireTools(t, "git")
	base := isolateEnv(t)
	root := newPackageRepo(t, base, "feat: add y", "fix: correct x")

	out, _, err := runCLI(t, nil, "--repo", root, "notes", "--version", "v1.1.0", "--raw")
	if err != nil {
		t.Fatalf("notes: %v", err)
	}
	requireContains(t, out, "## What's Changed\n\n- fix: correct x\n- feat: add y\n")
	requireContains(t, out, "pip install aceteam-nodes==1.1.0")

	if _, _, err := runCLI(t, nil, "--repo", root, "notes"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error without --version, got %v", err)
	}
}

func TestCheckCommandReportsMissingTools(t *testing.T) {
	requireTools(t, "git")
	base := isolateEnv(t)
	root := newPackageRepo(t, base)
	configPath := filepath.Join(base, "shipwright.toml")
	testsupport.WriteFile(t, configPath, "[build]\ncommand = [\"definitely-not-a-build-tool\"]\n")

	out, _, err := runCLI(t, nil, "--repo", root, "--config", configPath, "check")
	if !errors.Is(err, services.ErrPrerequisite) {
		t.Fatalf("expected prerequisite error, got %v", err)
	}
	requireContains(t, out, "Build tool")
	requireContains(t, out, "not ready")
}

func TestConfigInitAndValidate(t *testing.T) {
	base := isolateEnv(t)
	root := filepath.Join(base, "pkg")
	testsupport.WriteFile(t, filepath.Join(root, "pyproject.toml"), "[project]\nname = \"aceteam-nodes\"\nversion = \"1.0.0\"\n")

	out, _, err := runCLI(t, nil, "--repo", root, "config", "init")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(filepath.Join(root, "shipwright.toml")); err != nil {
		t.Fatalf("expected config file: %v", err)
	}

	if _, _, err := runCLI(t, nil, "--repo", root, "config", "init"); err == nil {
		t.Fatal("expected refusal to overwrite existing config")
	}

	out, _, err = runCLI(t, nil, "--repo", root, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Package: aceteam-nodes")
	requireContains(t, out, "Configuration valid")
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	base := isolateEnv(t)
	root := filepath.Join(base, "pkg")
	testsupport.WriteFile(t, filepath.Join(root, "pyproject.toml"), "[project]\nname = \"aceteam-nodes\"\n")

	out, _, err := runCLI(t, nil, "--repo", root, "test-notify")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Notifications disabled")
}

func TestLogsCommandShowsLatestRun(t *testing.T) {
	base := isolateEnv(t)
	root := filepath.Join(base, "pkg")
	testsupport.WriteFile(t, filepath.Join(root, "pyproject.toml"), "[project]\nname = \"aceteam-nodes\"\n")
	logDir := filepath.Join(root, ".git", "shipwright", "logs")
	testsupport.WriteFile(t, filepath.Join(logDir, "release-20260101T000000Z-aaaa1111.jsonl"),
		`{"ts":"2026-01-01T00:00:00Z","level":"info","msg":"old run"}`+"\n")
	testsupport.WriteFile(t, filepath.Join(logDir, "release-20260301T120000Z-0f8e2a6c.jsonl"),
		`{"ts":"2026-03-01T12:00:00Z","level":"info","msg":"release context established","tag":"v1.1.0"}`+"\n"+
			`{"ts":"2026-03-01T12:00:05Z","level":"warn","msg":"step tolerated","step":"push_tag"}`+"\n")

	out, _, err := runCLI(t, nil, "--repo", root, "logs", "-n", "1")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "WARN  step tolerated step=push_tag")
	if strings.Contains(out, "release context established") {
		t.Fatalf("expected only the last line, got:\n%s", out)
	}

	out, _, err = runCLI(t, nil, "--repo", root, "logs", "--run", "aaaa", "--json")
	if err != nil {
		t.Fatalf("logs --run: %v", err)
	}
	requireContains(t, out, `"msg":"old run"`)

	out, _, err = runCLI(t, nil, "--repo", root, "logs", "--list")
	if err != nil {
		t.Fatalf("logs --list: %v", err)
	}
	requireContains(t, out, "0f8e2a6c")
	requireContains(t, out, "aaaa1111")

	_, _, err = runCLI(t, nil, "--repo", root, "logs", "--run", "ffff")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for unknown run, got %v", err)
	}
}
