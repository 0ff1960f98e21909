package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"shipwright/internal/envfile"
)

func (c *Config) normalize() error {
	if err := c.normalizeProject(); err != nil {
		return err
	}
	if err := c.loadSettings(); err != nil {
		return err
	}
	c.normalizeGit()
	c.normalizeBuild()
	c.normalizeRegistry()
	c.normalizeHost()
	c.normalizeRelease()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeProject() error {
	var err error
	if c.Project.Root, err = expandPath(c.Project.Root); err != nil {
		return fmt.Errorf("project.root: %w", err)
	}
	c.Project.Pyproject = strings.TrimSpace(c.Project.Pyproject)
	if c.Project.Pyproject == "" {
		c.Project.Pyproject = defaultPyproject
	}
	c.Project.DistDir = strings.TrimSpace(c.Project.DistDir)
	if c.Project.DistDir == "" {
		c.Project.DistDir = defaultDistDir
	}
	c.Project.Name = strings.TrimSpace(c.Project.Name)
	if c.Project.Name == "" {
		name, err := readProjectName(c.PyprojectPath())
		if err != nil {
			return fmt.Errorf("project.name: %w", err)
		}
		c.Project.Name = name
	}
	c.Project.VersionFile = strings.TrimSpace(c.Project.VersionFile)
	if c.Project.VersionFile == "" && c.Project.Name != "" {
		c.Project.VersionFile = path.Join("src", moduleName(c.Project.Name), "__init__.py")
	}
	return nil
}

func (c *Config) loadSettings() error {
	c.Release.SettingsFile = strings.TrimSpace(c.Release.SettingsFile)
	result, err := envfile.Load(c.SettingsPath())
	if err != nil {
		return fmt.Errorf("release.settings_file: %w", err)
	}
	c.Settings = result
	return nil
}

func (c *Config) normalizeGit() {
	c.Git.Remote = strings.TrimSpace(c.Git.Remote)
	if c.Git.Remote == "" {
		c.Git.Remote = defaultGitRemote
	}
	c.Git.Branch = strings.TrimSpace(c.Git.Branch)
	if strings.TrimSpace(c.Git.CommitMessage) == "" {
		c.Git.CommitMessage = defaultCommitMessage
	}
	if strings.TrimSpace(c.Git.TagMessage) == "" {
		c.Git.TagMessage = defaultTagMessage
	}
	if c.Git.HistoryLimit <= 0 {
		c.Git.HistoryLimit = defaultHistoryLimit
	}
}

func (c *Config) normalizeBuild() {
	c.Build.Command = trimArgs(c.Build.Command)
	if len(c.Build.Command) == 0 {
		c.Build.Command = append([]string(nil), defaultBuildCommand...)
	}
}

func (c *Config) normalizeRegistry() {
	c.Registry.URL = strings.TrimRight(strings.TrimSpace(c.Registry.URL), "/")
	if c.Registry.URL == "" {
		c.Registry.URL = defaultRegistryURL
	}
	c.Registry.UploadURL = strings.TrimSpace(c.Registry.UploadURL)
	if c.Registry.UploadURL == "" {
		c.Registry.UploadURL = uploadURLFor(c.Registry.URL)
	}
	c.Registry.UploadCommand = trimArgs(c.Registry.UploadCommand)
	if len(c.Registry.UploadCommand) == 0 {
		c.Registry.UploadCommand = append([]string(nil), defaultUploadCommand...)
	}
	c.Registry.Token = strings.TrimSpace(c.Registry.Token)
	if c.Registry.Token == "" {
		c.Registry.Token = lookupFirst("PYPI_TOKEN", "TWINE_PASSWORD", "UV_PUBLISH_TOKEN")
	}
	if c.Registry.TimeoutSeconds <= 0 {
		c.Registry.TimeoutSeconds = defaultRegistryTimeout
	}
}

// uploadURLFor maps an index URL to its upload endpoint. pypi.org uploads go
// to upload.pypi.org; other warehouse instances serve /legacy/ themselves.
func uploadURLFor(indexURL string) string {
	if u, err := url.Parse(indexURL); err == nil && (u.Host == "pypi.org" || u.Host == "www.pypi.org") {
		return defaultUploadURL
	}
	return strings.TrimRight(indexURL, "/") + "/legacy/"
}

func (c *Config) normalizeHost() {
	c.Host.APIURL = strings.TrimRight(strings.TrimSpace(c.Host.APIURL), "/")
	if c.Host.APIURL == "" {
		c.Host.APIURL = defaultHostAPIURL
	}
	c.Host.Owner = strings.TrimSpace(c.Host.Owner)
	c.Host.Repo = strings.TrimSpace(c.Host.Repo)
	c.Host.Token = strings.TrimSpace(c.Host.Token)
	if c.Host.Token == "" {
		c.Host.Token = lookupFirst("GITHUB_TOKEN", "GH_TOKEN")
	}
	if c.Host.TimeoutSeconds <= 0 {
		c.Host.TimeoutSeconds = defaultHostTimeout
	}
}

func (c *Config) normalizeRelease() {
	links := c.Release.Links[:0]
	for _, link := range c.Release.Links {
		link.Title = strings.TrimSpace(link.Title)
		link.URL = strings.TrimSpace(link.URL)
		if link.URL == "" {
			continue
		}
		if link.Title == "" {
			link.Title = link.URL
		}
		links = append(links, link)
	}
	c.Release.Links = links
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.RunLogDir = strings.TrimSpace(c.Logging.RunLogDir)
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

// readProjectName extracts [project].name from pyproject.toml. A missing
// manifest yields "" so validation can report it with context.
func readProjectName(pyprojectPath string) (string, error) {
	data, err := os.ReadFile(pyprojectPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", pyprojectPath, err)
	}
	var doc struct {
		Project struct {
			Name string `toml:"name"`
		} `toml:"project"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("parse %s: %w", pyprojectPath, err)
	}
	return strings.TrimSpace(doc.Project.Name), nil
}

// moduleName maps a distribution name to its import package name.
func moduleName(distribution string) string {
	name := strings.ToLower(distribution)
	return strings.NewReplacer("-", "_", ".", "_").Replace(name)
}

func trimArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if arg = strings.TrimSpace(arg); arg != "" {
			out = append(out, arg)
		}
	}
	return out
}

func lookupFirst(keys ...string) string {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
