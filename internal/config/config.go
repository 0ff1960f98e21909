package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"shipwright/internal/envfile"
)

//go:embed sample_config.toml
var sampleConfig string

// Project describes the released package and where its manifests live.
// Relative paths are resolved against Root.
type Project struct {
	Name        string `toml:"name"`
	Root        string `toml:"root"`
	Pyproject   string `toml:"pyproject"`
	VersionFile string `toml:"version_file"`
	DistDir     string `toml:"dist_dir"`
}

// Git contains version-control settings.
type Git struct {
	Remote        string `toml:"remote"`
	Branch        string `toml:"branch"`
	CommitMessage string `toml:"commit_message"`
	TagMessage    string `toml:"tag_message"`
	HistoryLimit  int    `toml:"history_limit"`
}

// Build contains the artifact build invocation.
type Build struct {
	Command []string `toml:"command"`
}

// Registry contains package registry settings (PyPI compatible).
type Registry struct {
	// URL is the index queried for published versions.
	URL string `toml:"url"`
	// UploadURL is the upload endpoint matching URL. Derived when empty.
	UploadURL      string   `toml:"upload_url"`
	UploadCommand  []string `toml:"upload_command"`
	Token          string   `toml:"token"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Host contains release hosting settings (GitHub Releases compatible).
type Host struct {
	APIURL         string `toml:"api_url"`
	Owner          string `toml:"owner"`
	Repo           string `toml:"repo"`
	Token          string `toml:"token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Link is a static documentation link rendered into release notes.
type Link struct {
	Title string `toml:"title"`
	URL   string `toml:"url"`
}

// Release contains orchestration policy.
type Release struct {
	SettingsFile string `toml:"settings_file"`
	StrictResume bool   `toml:"strict_resume"`
	Links        []Link `toml:"links"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	// RunLogDir receives one JSON log file per release run. Empty disables.
	RunLogDir     string `toml:"run_log_dir"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for shipwright.
//
// Configuration sections by subsystem:
//   - Project: package name, manifest paths, dist directory
//   - Git: remote, branch, commit/tag messages, history window
//   - Build: artifact build command
//   - Registry: package registry URL, upload command, credential
//   - Host: release host API, repository, credential
//   - Release: settings file, resume policy, documentation links
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Project       Project       `toml:"project"`
	Git           Git           `toml:"git"`
	Build         Build         `toml:"build"`
	Registry      Registry      `toml:"registry"`
	Host          Host          `toml:"host"`
	Release       Release       `toml:"release"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`

	// Settings records what the local settings file contributed.
	Settings envfile.Result `toml:"-"`
}

// DefaultConfigPath returns the absolute path to the user-level configuration file.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultUserConfigPath)
}

// Load locates, parses, and validates a configuration file for the repository
// at root. An explicit path wins; otherwise <root>/shipwright.toml and then the
// user-level file are consulted. The local settings file is exported into the
// process environment before credential fallbacks are resolved.
func Load(path, root string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedRoot, err := expandPath(firstNonEmpty(root, "."))
	if err != nil {
		return nil, "", false, fmt.Errorf("resolve repository root: %w", err)
	}

	resolvedPath, exists, err := resolveConfigPath(path, resolvedRoot)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if strings.TrimSpace(root) != "" || strings.TrimSpace(cfg.Project.Root) == "" {
		cfg.Project.Root = resolvedRoot
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path, root string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	projectPath := filepath.Join(root, projectConfigName)
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	defaultPath, err := expandPath(defaultUserConfigPath)
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	return projectPath, false, nil
}

// PyprojectPath returns the absolute path of the project metadata manifest.
func (c *Config) PyprojectPath() string {
	return c.resolve(c.Project.Pyproject)
}

// VersionFilePath returns the absolute path of the module carrying __version__.
func (c *Config) VersionFilePath() string {
	return c.resolve(c.Project.VersionFile)
}

// DistPath returns the absolute build output directory.
func (c *Config) DistPath() string {
	return c.resolve(c.Project.DistDir)
}

// SettingsPath returns the absolute path of the local settings file.
func (c *Config) SettingsPath() string {
	if strings.TrimSpace(c.Release.SettingsFile) == "" {
		return ""
	}
	return c.resolve(c.Release.SettingsFile)
}

// RunLogPath returns the absolute run log directory, or "" when disabled.
func (c *Config) RunLogPath() string {
	return c.resolve(c.Logging.RunLogDir)
}

// ManifestPaths lists the repository-relative files VersionBump rewrites.
func (c *Config) ManifestPaths() []string {
	return []string{filepath.ToSlash(c.Project.Pyproject), filepath.ToSlash(c.Project.VersionFile)}
}

// CommitMessage renders the release commit message for tag.
func (c *Config) CommitMessage(tag string) string {
	return strings.ReplaceAll(c.Git.CommitMessage, tagPlaceholder, tag)
}

// TagMessage renders the annotated tag message for tag.
func (c *Config) TagMessage(tag string) string {
	return strings.ReplaceAll(c.Git.TagMessage, tagPlaceholder, tag)
}

// RepositoryURL returns the browser URL of the hosted repository, or "" when
// owner/repo are unknown.
func (c *Config) RepositoryURL() string {
	if c.Host.Owner == "" || c.Host.Repo == "" {
		return ""
	}
	return fmt.Sprintf("https://github.com/%s/%s", c.Host.Owner, c.Host.Repo)
}

func (c *Config) resolve(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.Project.Root, filepath.FromSlash(p))
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
