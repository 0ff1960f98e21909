package main

import (
	"strings"

	"github.com/spf13/cobra"

	"shipwright/internal/notes"
	"shipwright/internal/release"
	"shipwright/internal/services"
	"shipwright/internal/version"
)

func newNotesCommand(ctx *commandContext) *cobra.Command {
	var versionFlag string
	var raw bool

	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Print the release notes a release of --version would publish",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd.Context())
			if err != nil {
				return err
			}
			if strings.TrimSpace(versionFlag) == "" {
				return services.Wrap(services.ErrValidation, "", "notes", "--version is required", version.ErrInvalidFormat)
			}
			target, err := version.Parse(strings.TrimSpace(versionFlag))
			if err != nil {
				return err
			}

			rc, err := release.BuildContext(cmd.Context(), ctx.repository(cfg), target, release.ContextOptions{
				DryRun:       true,
				HistoryLimit: cfg.Git.HistoryLimit,
			})
			if err != nil {
				return err
			}
			links := make([]notes.Link, 0, len(cfg.Release.Links))
			for _, l := range cfg.Release.Links {
				links = append(links, notes.Link{Title: l.Title, URL: l.URL})
			}
			body, err := notes.Build(release.NotesInput(rc, cfg.Project.Name, cfg.RepositoryURL(), links))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if raw {
				fprintf(out, "%s", body)
				return nil
			}
			fprintf(out, "%s", renderMarkdown(body, shouldColorize(out), 0))
			return nil
		},
	}

	cmd.Flags().StringVarP(&versionFlag, "version", "v", "", "Target version tag, e.g. v1.2.0")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print markdown without terminal rendering")
	return cmd
}
