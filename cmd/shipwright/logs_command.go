package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"shipwright/internal/logs"
	"shipwright/internal/services"
)

const followWait = 2 * time.Second

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		runID  string
		lines  int
		follow bool
		asJSON bool
		list   bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the run log of a past release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd.Context())
			if err != nil {
				return err
			}
			dir := cfg.RunLogPath()
			if dir == "" {
				return services.Wrap(services.ErrConfiguration, "", "logs", "run logs are disabled; set logging.run_log_dir", nil)
			}
			out := cmd.OutOrStdout()

			if list {
				runs, err := logs.List(dir)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fprintf(out, "No run logs in %s\n", dir)
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{run.ID, run.Started.Local().Format(time.DateTime), run.Path})
				}
				fprintf(out, "%s", renderTable([]string{"Run", "Started", "Path"}, rows, nil))
				return nil
			}

			if lines < 0 {
				return services.Wrap(services.ErrValidation, "", "logs", "--lines must not be negative", nil)
			}
			run, err := logs.Find(dir, runID)
			if err != nil {
				if errors.Is(err, logs.ErrNoRuns) {
					return services.Wrap(services.ErrValidation, "", "logs", fmt.Sprintf("no matching run log in %s", dir), err)
				}
				return err
			}
			return showRunLog(cmd.Context(), out, run.Path, lines, follow, asJSON)
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run ID or prefix (default: latest run)")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing lines as they are appended")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print raw JSON records")
	cmd.Flags().BoolVar(&list, "list", false, "List available run logs")
	return cmd
}

func showRunLog(ctx context.Context, out io.Writer, path string, lines int, follow, asJSON bool) error {
	emit := func(batch []string) {
		for _, line := range batch {
			if !asJSON {
				line = logs.FormatLine(line)
			}
			fprintf(out, "%s\n", line)
		}
	}

	result, err := logs.Tail(ctx, path, logs.TailOptions{Offset: -1, Limit: lines})
	if err != nil {
		return err
	}
	emit(result.Lines)

	for follow {
		result, err = logs.Tail(ctx, path, logs.TailOptions{Offset: result.Offset, Follow: true, Wait: followWait})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		emit(result.Lines)
	}
	return nil
}
