package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"shipwright/internal/cmdexec"
	"shipwright/internal/config"
	"shipwright/internal/gitrepo"
	"shipwright/internal/logging"
	"shipwright/internal/services"
)

type commandContext struct {
	configFlag *string
	repoFlag   *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	// runner and prompt are swapped in tests.
	runner cmdexec.Runner
	prompt prompter
}

func newCommandContext(configFlag, repoFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		repoFlag:   repoFlag,
		runner:     cmdexec.ExecRunner{},
	}
}

func (c *commandContext) ensureConfig(ctx context.Context) (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(flagValue(c.configFlag), flagValue(c.repoFlag))
		if err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "", "config", "", err)
			return
		}
		c.resolveHostRepository(ctx, cfg)
		c.config = cfg
		c.configPath = path
		c.configExists = exists
	})
	return c.config, c.configErr
}

// resolveHostRepository fills host owner/repo from the git remote URL when
// the configuration leaves them empty.
func (c *commandContext) resolveHostRepository(ctx context.Context, cfg *config.Config) {
	if cfg.Host.Owner != "" && cfg.Host.Repo != "" {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	url, err := c.repository(cfg).RemoteURL(ctx, cfg.Git.Remote)
	if err != nil {
		return
	}
	if owner, repo, ok := gitrepo.ParseGitHubRemote(url); ok {
		if cfg.Host.Owner == "" {
			cfg.Host.Owner = owner
		}
		if cfg.Host.Repo == "" {
			cfg.Host.Repo = repo
		}
	}
}

func (c *commandContext) repository(cfg *config.Config) *gitrepo.Repo {
	return gitrepo.New(cfg.Project.Root, c.runner)
}

func (c *commandContext) logger(cmd *cobra.Command, cfg *config.Config, verbose bool) (*slog.Logger, error) {
	out := cmd.ErrOrStderr()
	return logging.NewFromConfig(cfg, out, shouldColorize(out), verbose)
}

func (c *commandContext) prompter(cmd *cobra.Command) prompter {
	if c.prompt != nil {
		return c.prompt
	}
	return huhPrompter{in: cmd.InOrStdin(), out: cmd.ErrOrStderr()}
}

func flagValue(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func flagError(_ *cobra.Command, err error) error {
	return services.Wrap(services.ErrValidation, "", "flags", "", err)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func fprintf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
