package main

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"shipwright/internal/testsupport"
	"shipwright/internal/version"
)

// scriptedPrompter answers prompts from fixed values.
type scriptedPrompter struct {
	version  string
	confirm  bool
	versions int
	confirms int
}

func (p *scriptedPrompter) Version(context.Context, version.Version) (string, error) {
	p.versions++
	return p.version, nil
}

func (p *scriptedPrompter) Confirm(context.Context, string, string) (bool, error) {
	p.confirms++
	return p.confirm, nil
}

func runCLI(t *testing.T, p prompter, args ...string) (string, string, error) {
	t.Helper()
	cmd := buildRootCommand(func(ctx *commandContext) {
		if p != nil {
			ctx.prompt = p
		}
	})
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func isolateEnv(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	home := filepath.Join(base, "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	t.Setenv("NO_COLOR", "1")
	t.Setenv("GIT_CONFIG_GLOBAL", filepath.Join(base, "gitconfig"))
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	t.Setenv("GIT_AUTHOR_NAME", "Release Bot")
	t.Setenv("GIT_AUTHOR_EMAIL", "release@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "Release Bot")
	t.Setenv("GIT_COMMITTER_EMAIL", "release@example.com")
	for _, key := range []string{"PYPI_TOKEN", "TWINE_PASSWORD", "UV_PUBLISH_TOKEN", "GITHUB_TOKEN", "GH_TOKEN"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return base
}

func requireTools(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			t.Skipf("%s not available", name)
		}
	}
}

func git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// newPackageRepo creates a committed package at v1.0.0 with extra commits
// on top, and returns its root.
func newPackageRepo(t *testing.T, base string, commits ...string) string {
	t.Helper()
	root := filepath.Join(base, "pkg")
	testsupport.WriteFile(t, filepath.Join(root, "pyproject.toml"), "[project]\nname = \"aceteam-nodes\"\nversion = \"1.0.0\"\n")
	testsupport.WriteFile(t, filepath.Join(root, "src", "aceteam_nodes", "__init__.py"), "__version__ = \"1.0.0\"\n")
	testsupport.WriteFile(t, filepath.Join(root, ".gitignore"), "dist/\n.env\n")

	git(t, root, "init", "-q")
	git(t, root, "symbolic-ref", "HEAD", "refs/heads/main")
	git(t, root, "add", ".")
	git(t, root, "commit", "-q", "-m", "initial")
	git(t, root, "tag", "-a", "v1.0.0", "-m", "Release v1.0.0")
	for i, msg := range commits {
		testsupport.WriteFile(t, filepath.Join(root, "changes", string(rune('a'+i))+".txt"), msg+"\n")
		git(t, root, "add", ".")
		git(t, root, "commit", "-q", "-m", msg)
	}
	return root
}
