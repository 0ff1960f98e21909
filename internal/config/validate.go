package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"shipwright/internal/services"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateProject(); err != nil {
		return services.Wrap(services.ErrConfiguration, "", "config", "", err)
	}
	if err := c.validateURLs(); err != nil {
		return services.Wrap(services.ErrConfiguration, "", "config", "", err)
	}
	if err := c.validateLogging(); err != nil {
		return services.Wrap(services.ErrConfiguration, "", "config", "", err)
	}
	return nil
}

func (c *Config) validateProject() error {
	if c.Project.Name == "" {
		return fmt.Errorf("project.name is required; set it in %s or add [project].name to %s", projectConfigName, c.PyprojectPath())
	}
	if c.Project.VersionFile == "" {
		return errors.New("project.version_file must be set")
	}
	if !strings.Contains(c.Git.CommitMessage, tagPlaceholder) {
		return fmt.Errorf("git.commit_message must contain %s", tagPlaceholder)
	}
	return nil
}

func (c *Config) validateURLs() error {
	for key, raw := range map[string]string{
		"registry.url":        c.Registry.URL,
		"registry.upload_url": c.Registry.UploadURL,
		"host.api_url":        c.Host.APIURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", key, raw)
		}
	}
	for _, link := range c.Release.Links {
		if _, err := url.Parse(link.URL); err != nil {
			return fmt.Errorf("release.links: invalid url %q: %w", link.URL, err)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}
