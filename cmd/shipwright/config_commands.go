package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"shipwright/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand(ctx))

	return configCmd
}

func newConfigInitCommand(ctx *commandContext) *cobra.Command {
	var targetPath string
	var overwrite bool
	var user bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(strings.TrimSpace(targetPath), flagValue(ctx.repoFlag), user)
			if err != nil {
				return err
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fprintf(out, "Wrote sample configuration to %s\n", target)
			fprintf(out, "Set PYPI_TOKEN and GITHUB_TOKEN in the environment or the settings file before releasing.\n")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&user, "user", false, "Write the user-level configuration instead of the repository one")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func initTarget(path, repo string, user bool) (string, error) {
	switch {
	case path != "":
		expanded, err := config.ExpandPath(path)
		if err != nil {
			return "", fmt.Errorf("resolve config path: %w", err)
		}
		return expanded, nil
	case user:
		defaultPath, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		return defaultPath, nil
	default:
		root, err := config.ExpandPath(firstNonEmpty(repo, "."))
		if err != nil {
			return "", fmt.Errorf("resolve repository root: %w", err)
		}
		return filepath.Join(root, "shipwright.toml"), nil
	}
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fprintf(out, "Config path: %s\n", ctx.configPath)
			if !ctx.configExists {
				fprintf(out, "Config file did not exist; defaults were used\n")
			}
			fprintf(out, "Package: %s\n", cfg.Project.Name)
			fprintf(out, "Repository: %s/%s\n", cfg.Host.Owner, cfg.Host.Repo)
			fprintf(out, "Registry token set: %s\n", yesNo(cfg.Registry.Token != ""))
			fprintf(out, "Host token set: %s\n", yesNo(cfg.Host.Token != ""))
			fprintf(out, "Configuration valid\n")
			return nil
		},
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
