package main

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"shipwright/internal/config"
	"shipwright/internal/logging"
	"shipwright/internal/manifest"
	"shipwright/internal/notifications"
	"shipwright/internal/preflight"
	"shipwright/internal/probe"
	"shipwright/internal/registry"
	"shipwright/internal/release"
	"shipwright/internal/releasehost"
	"shipwright/internal/runlock"
	"shipwright/internal/services"
	"shipwright/internal/version"
)

func runRelease(cmd *cobra.Command, ctx *commandContext, opts releaseOptions) error {
	cfg, err := ctx.ensureConfig(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	runID := uuid.NewString()
	started := time.Now()

	logger, err := ctx.logger(cmd, cfg, opts.verbose)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "", "logging", "", err)
	}
	runLog, err := logging.OpenRunLog(cfg.RunLogPath(), runID, started)
	if err != nil {
		logging.WarnWithContext(logger, "run log unavailable", "run_log_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run is only logged to the console"),
		)
	}
	defer runLog.Close()
	if runLog != nil {
		logger = logging.TeeLogger(logger, runLog.Handler())
		logging.PruneRunLogs(logger, cfg.RunLogPath(), cfg.Logging.RetentionDays, runLog.Path, started)
	}

	lock, err := runlock.Acquire(cfg.Project.Root)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("release lock", logging.Error(err))
		}
	}()

	target, err := resolveTarget(cmd.Context(), ctx.prompter(cmd), ctx.repository(cfg), opts.version)
	if err != nil {
		return err
	}

	results := preflight.RunAll(cmd.Context(), cfg)
	if err := reportPreflight(logger, results, opts.dryRun); err != nil {
		fprintf(out, "%s\n", renderPreflightTable(results))
		return err
	}

	releaser := buildReleaser(ctx, cfg, logger, out, colorize, ctx.prompter(cmd))
	report, err := releaser.Run(cmd.Context(), release.Request{
		Target:      target,
		DryRun:      opts.dryRun,
		AutoConfirm: opts.autoConfirm,
		RunID:       runID,
	})
	if report != nil && report.Steps != nil {
		fprintf(out, "\n%s\n", renderStepTable(report.Steps))
		printOutcome(out, report, colorize)
	}
	if runLog != nil {
		logger.Debug("run log written", logging.String("path", runLog.Path))
	}
	return err
}

func reportPreflight(logger *slog.Logger, results []preflight.Result, dryRun bool) error {
	for _, w := range preflight.Warnings(results) {
		logging.WarnWithContext(logger, w.Name+": "+w.Detail, "preflight_warning",
			logging.String(logging.FieldImpact, "steps that need it will fail"),
		)
	}
	failures := preflight.Failures(results)
	if len(failures) == 0 {
		return nil
	}
	if dryRun {
		for _, f := range failures {
			logging.WarnWithContext(logger, f.Name+": "+f.Detail, "preflight_failure",
				logging.String(logging.FieldImpact, "a real run would refuse to start"),
			)
		}
		return nil
	}
	return preflight.Err(results)
}

// resolveTarget parses the --version flag, prompting for it when empty.
func resolveTarget(ctx context.Context, p prompter, repo release.Repository, flag string) (version.Version, error) {
	if strings.TrimSpace(flag) == "" {
		current, err := repo.CurrentVersion(ctx)
		if err != nil {
			current = version.None
		}
		answer, err := p.Version(ctx, current)
		if err != nil {
			return version.Version{}, err
		}
		flag = answer
	}
	return version.Parse(strings.TrimSpace(flag))
}

func buildReleaser(ctx *commandContext, cfg *config.Config, logger *slog.Logger, out io.Writer, colorize bool, p prompter) *release.Releaser {
	regClient := registry.NewClient(cfg.Registry.URL, cfg.Project.Name, time.Duration(cfg.Registry.TimeoutSeconds)*time.Second)

	var (
		hostLookup probe.ReleaseLookup
		publisher  release.HostPublisher
	)
	if cfg.Host.Owner != "" && cfg.Host.Repo != "" {
		client := releasehost.NewClient(cfg.Host.Token, cfg.Host.Owner, cfg.Host.Repo).
			WithBaseURL(cfg.Host.APIURL).
			WithTimeout(time.Duration(cfg.Host.TimeoutSeconds) * time.Second)
		hostLookup = client
		publisher = client
	}

	return &release.Releaser{
		Config: cfg,
		Repo:   ctx.repository(cfg),
		Manifests: manifest.Files{
			Pyproject:   cfg.PyprojectPath(),
			VersionFile: cfg.VersionFilePath(),
		},
		Builder: release.CommandBuilder{
			Runner:  ctx.runner,
			Dir:     cfg.Project.Root,
			Command: cfg.Build.Command,
			DistDir: cfg.DistPath(),
			Logger:  logger,
		},
		Uploader: registry.Uploader{
			Runner:        ctx.runner,
			Command:       cfg.Registry.UploadCommand,
			Token:         cfg.Registry.Token,
			Dir:           cfg.Project.Root,
			RepositoryURL: cfg.Registry.UploadURL,
		},
		Host:  publisher,
		Probe: probe.New(regClient, hostLookup, logger),
		Presenter: &terminalPresenter{
			out:      out,
			colorize: colorize,
			pkg:      cfg.Project.Name,
			prompt:   p,
		},
		Notifier: notifications.NewService(cfg.Notifications),
		Logger:   logger,
	}
}
