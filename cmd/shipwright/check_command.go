package main

import (
	"github.com/spf13/cobra"

	"shipwright/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run preflight checks without releasing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			results := preflight.RunAll(cmd.Context(), cfg)
			for _, line := range renderSectionHeader("Preflight", colorize) {
				fprintf(out, "%s\n", line)
			}
			fprintf(out, "%s\n", renderPreflightTable(results))

			kind, msg := statusOK, "ready to release"
			if warned := preflight.Warnings(results); len(warned) > 0 {
				kind, msg = statusWarn, "ready, with warnings"
			}
			if failed := preflight.Failures(results); len(failed) > 0 {
				kind, msg = statusError, "not ready"
			}
			fprintf(out, "%s\n", renderStatusLine("Result", kind, msg, colorize))
			fprintf(out, "%s\n", renderStatusLine("Config", statusInfo, configSource(ctx), colorize))
			return preflight.Err(results)
		},
	}
}

func configSource(ctx *commandContext) string {
	if !ctx.configExists {
		return "defaults"
	}
	return ctx.configPath
}
