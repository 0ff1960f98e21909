package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"shipwright/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config pointing at a minimal Python package laid out
// in a fresh temp directory. The package is named "demo" at version 0.1.0.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	root := filepath.Join(base, "project")
	cfgVal := config.Default()
	cfgVal.Project.Root = root
	cfgVal.Project.Name = "demo"
	cfgVal.Project.VersionFile = filepath.Join("src", "demo", "__init__.py")
	cfgVal.Logging.RunLogDir = filepath.Join(base, "logs")

	WriteFile(t, filepath.Join(root, "pyproject.toml"), "[project]\nname = \"demo\"\nversion = \"0.1.0\"\n")
	WriteFile(t, filepath.Join(root, cfgVal.Project.VersionFile), "__version__ = \"0.1.0\"\n")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithHost sets the hosting repository coordinates.
func WithHost(owner, repo string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Host.Owner = owner
		b.cfg.Host.Repo = repo
	}
}

// WithGitDir creates an empty .git directory under the project root.
func WithGitDir() ConfigOption {
	return func(b *configBuilder) {
		if err := os.MkdirAll(filepath.Join(b.cfg.Project.Root, ".git"), 0o755); err != nil {
			b.t.Fatalf("mkdir .git: %v", err)
		}
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// makes them the only entries on PATH. If names is empty, the tools a release
// needs are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		StubBinaries(b.t, filepath.Join(b.baseDir, "bin"), names...)
	}
}

// StubBinaries writes "exit 0" scripts into dir and replaces PATH with it.
func StubBinaries(t testing.TB, dir string, names ...string) {
	t.Helper()

	if len(names) == 0 {
		names = []string{"git", "python", "twine"}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	script := []byte("#!/bin/sh\nexit 0\n")
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), script, 0o755); err != nil {
			t.Fatalf("write stub %s: %v", name, err)
		}
	}
	if setter, ok := t.(interface{ Setenv(string, string) }); ok {
		setter.Setenv("PATH", dir)
	} else {
		t.Fatalf("StubBinaries requires a *testing.T")
	}
}
