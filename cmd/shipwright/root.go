package main

import (
	"github.com/spf13/cobra"
)

type releaseOptions struct {
	version     string
	autoConfirm bool
	dryRun      bool
	verbose     bool
}

func newRootCommand() *cobra.Command {
	return buildRootCommand(nil)
}

// buildRootCommand assembles the command tree; configure, when set, can
// replace the command context's collaborators.
func buildRootCommand(configure func(*commandContext)) *cobra.Command {
	var configFlag string
	var repoFlag string
	var opts releaseOptions

	ctx := newCommandContext(&configFlag, &repoFlag)
	if configure != nil {
		configure(ctx)
	}

	rootCmd := &cobra.Command{
		Use:   "shipwright",
		Short: "Cut a resumable release: bump, build, tag, publish, and announce",
		Long: `shipwright releases a Python package in one resumable pass.

Steps run in a fixed order: version bump, build, commit/tag/push, registry
publish, and hosted release. Each step first checks whether its effect already
exists, so rerunning with the same version after a failure picks up where the
last run stopped.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig(cmd.Context())
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelease(cmd, ctx, opts)
		},
	}
	rootCmd.SetFlagErrorFunc(flagError)

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&repoFlag, "repo", "", "Repository root (defaults to the current directory)")
	rootCmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Show debug logging and tool output")

	rootCmd.Flags().StringVarP(&opts.version, "version", "v", "", "Target version tag, e.g. v1.2.0 (prompted when omitted)")
	rootCmd.Flags().BoolVarP(&opts.autoConfirm, "yes", "y", false, "Skip the confirmation prompt")
	rootCmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Show what would happen without changing anything")

	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newNotesCommand(ctx))
	rootCmd.AddCommand(newTestNotifyCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))

	return rootCmd
}
