package release

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"time"

	"shipwright/internal/config"
	"shipwright/internal/logging"
	"shipwright/internal/notes"
	"shipwright/internal/notifications"
	"shipwright/internal/probe"
	"shipwright/internal/services"
	"shipwright/internal/version"
)

// Request is one release invocation.
type Request struct {
	Target      version.Version
	DryRun      bool
	AutoConfirm bool
	RunID       string
}

// Report summarises a release run.
type Report struct {
	RunID      string
	Context    *Context
	Notes      string
	Steps      []StepResult
	ReleaseURL string
	Started    time.Time
	Duration   time.Duration
	Err        error
}

// Count returns how many top-level steps ended with outcome.
func (r *Report) Count(outcome Outcome) int {
	n := 0
	for _, s := range r.Steps {
		if s.Outcome == outcome {
			n++
		}
	}
	return n
}

// Tolerated returns every step, at any depth, whose failure was tolerated.
func (r *Report) Tolerated() []StepResult {
	var out []StepResult
	var walk func([]StepResult)
	walk = func(steps []StepResult) {
		for _, s := range steps {
			if len(s.Children) > 0 {
				walk(s.Children)
				continue
			}
			if s.Tolerated() {
				out = append(out, s)
			}
		}
	}
	walk(r.Steps)
	return out
}

// FailedStep returns the name of the step that aborted the run, or "".
func (r *Report) FailedStep() string {
	for _, s := range r.Steps {
		if s.Outcome == OutcomeFailed && !s.Tolerant {
			for _, c := range s.Children {
				if c.Outcome == OutcomeFailed && !c.Tolerant {
					return c.Name
				}
			}
			return s.Name
		}
	}
	return ""
}

// Releaser wires the collaborators of a release and runs it.
type Releaser struct {
	Config    *config.Config
	Repo      Repository
	Manifests Manifests
	Builder   Builder
	Uploader  Uploader
	Host      HostPublisher
	Probe     probe.StateProbe
	// Presenter may be nil; confirmation then requires AutoConfirm.
	Presenter Presenter
	Notifier  notifications.Service
	Logger    *slog.Logger
}

// Run performs a release. Nothing is mutated before the confirmation gate.
// The report is returned even when err is non-nil, unless the failure
// happened before the release context could be built.
func (r *Releaser) Run(ctx context.Context, req Request) (*Report, error) {
	if r.Config == nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "release", "configuration not loaded", nil)
	}
	if req.Target.IsNone() {
		return nil, services.Wrap(services.ErrValidation, "", "release", "target version is required", version.ErrInvalidFormat)
	}
	ctx = services.WithRunID(ctx, req.RunID)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(r.Logger, "release"))
	report := &Report{RunID: req.RunID, Started: time.Now()}

	if err := r.checkWorkingTree(ctx, logger, req); err != nil {
		return nil, err
	}

	rc, err := BuildContext(ctx, r.Repo, req.Target, ContextOptions{
		DryRun:       req.DryRun,
		AutoConfirm:  req.AutoConfirm,
		HistoryLimit: r.Config.Git.HistoryLimit,
		RunID:        req.RunID,
	})
	if err != nil {
		return nil, err
	}
	report.Context = rc
	logger.Info("release context established",
		logging.String("target", rc.Target.Tag()),
		logging.String("prior", rc.Prior.Tag()),
		logging.Int("commits", len(rc.Commits)),
		logging.String("branch", rc.Branch),
		logging.Bool("resuming", rc.Resuming),
		logging.Bool("dry_run", rc.DryRun),
	)

	if err := r.checkBranch(logger, rc); err != nil {
		return r.finish(ctx, report, err)
	}
	if rc.Resuming {
		if err := r.checkResume(ctx, logger, rc); err != nil {
			return r.finish(ctx, report, err)
		}
	}

	notesIn := NotesInput(rc, r.Config.Project.Name, r.Config.RepositoryURL(), r.links())
	body, err := notes.Build(notesIn)
	if err != nil {
		return r.finish(ctx, report, services.Wrap(services.ErrConfiguration, "", "notes", "render release notes", err))
	}
	report.Notes = body

	if r.Presenter != nil {
		r.Presenter.Summary(rc, body)
	}
	if err := r.confirm(ctx, rc); err != nil {
		return r.finish(ctx, report, err)
	}

	pipeline := &Pipeline{
		Config: PipelineConfig{
			Package:       r.Config.Project.Name,
			Remote:        r.Config.Git.Remote,
			ManifestPaths: r.Config.ManifestPaths(),
			CommitMessage: r.Config.CommitMessage,
			TagMessage:    r.Config.TagMessage,
			RegistryURL:   r.Config.Registry.URL,
			HostRepo:      r.Config.Host.Owner + "/" + r.Config.Host.Repo,
			DistDir:       r.Config.Project.DistDir + "/",
			Notes:         body,
			NotesTitle:    notes.Title(notesIn),
		},
		Repo:      r.Repo,
		Manifests: r.Manifests,
		Builder:   r.Builder,
		Uploader:  r.Uploader,
		Host:      r.Host,
		Probe:     r.Probe,
		Logger:    r.Logger,
	}
	orchestrator := NewOrchestrator(r.Logger)
	if r.Presenter != nil {
		orchestrator.OnStep = r.Presenter.StepFinished
	}
	report.Steps, err = orchestrator.Run(ctx, rc, pipeline.Steps())
	report.ReleaseURL = pipeline.ReleaseURL()
	return r.finish(ctx, report, err)
}

func (r *Releaser) finish(ctx context.Context, report *Report, err error) (*Report, error) {
	report.Duration = time.Since(report.Started)
	report.Err = err
	rc := report.Context
	// Only runs that reached the pipeline notify.
	if rc == nil || rc.DryRun || report.Steps == nil || r.Notifier == nil {
		return report, err
	}
	notifier := r.Notifier
	logger := logging.WithContext(ctx, logging.NewComponentLogger(r.Logger, "release"))
	var notifyErr error
	if err != nil {
		notifyErr = notifier.NotifyReleaseFailed(ctx, rc.Target.Tag(), report.FailedStep(), err)
	} else {
		notifyErr = notifier.NotifyReleaseCompleted(ctx, notifications.ReleaseSummary{
			Package:    r.Config.Project.Name,
			Tag:        rc.Target.Tag(),
			Resumed:    rc.Resuming,
			Executed:   report.Count(OutcomeExecuted),
			Skipped:    report.Count(OutcomeSkippedAlreadyDone),
			Tolerated:  len(report.Tolerated()),
			Duration:   report.Duration,
			ReleaseURL: report.ReleaseURL,
		})
	}
	if notifyErr != nil {
		logger.Warn("release notification failed",
			logging.String(logging.FieldEventType, "notification_failed"),
			logging.Error(notifyErr),
		)
	}
	return report, err
}

func (r *Releaser) checkWorkingTree(ctx context.Context, logger *slog.Logger, req Request) error {
	dirty, err := r.Repo.DirtyPaths(ctx)
	if err != nil {
		return fmt.Errorf("check working tree: %w", err)
	}
	if len(dirty) == 0 {
		return nil
	}
	pending, err := r.bumpPending(dirty, req.Target)
	if err != nil {
		return err
	}
	if pending {
		logger.Info("resuming with version bump not yet committed",
			logging.String(logging.FieldEventType, "bump_pending"),
			logging.Strings("paths", dirty),
		)
		return nil
	}
	if req.DryRun {
		logging.WarnWithContext(logger, "working tree has uncommitted changes", "dirty_tree",
			logging.Strings("paths", dirty),
			logging.String(logging.FieldErrorHint, "commit or stash before the real release"),
			logging.String(logging.FieldImpact, "a real run would refuse to start"),
		)
		return nil
	}
	msg := fmt.Sprintf("uncommitted changes in %s; commit or stash them first", strings.Join(dirty, ", "))
	if r.touchesManifests(dirty) {
		msg += fmt.Sprintf("; if an earlier run bumped the version, rerun with --version %s or restore the manifests with git checkout", req.Target.Tag())
	}
	return services.Wrap(services.ErrValidation, "", "working tree", msg, nil)
}

// bumpPending reports whether the only uncommitted changes are the manifests
// and they already carry the target version. That is the state a run leaves
// when it fails between VersionBump and the commit.
func (r *Releaser) bumpPending(dirty []string, target version.Version) (bool, error) {
	if r.Manifests == nil || !r.onlyManifests(dirty) {
		return false, nil
	}
	ok, err := r.Manifests.HasVersion(target.Number())
	if err != nil {
		return false, services.Wrap(services.ErrConfiguration, "", "working tree", "read manifests", err)
	}
	return ok, nil
}

func (r *Releaser) manifestSet() map[string]bool {
	set := make(map[string]bool)
	for _, p := range r.Config.ManifestPaths() {
		set[path.Clean(filepath.ToSlash(p))] = true
	}
	return set
}

func (r *Releaser) onlyManifests(dirty []string) bool {
	set := r.manifestSet()
	for _, p := range dirty {
		if !set[path.Clean(filepath.ToSlash(p))] {
			return false
		}
	}
	return true
}

func (r *Releaser) touchesManifests(dirty []string) bool {
	set := r.manifestSet()
	for _, p := range dirty {
		if set[path.Clean(filepath.ToSlash(p))] {
			return true
		}
	}
	return false
}

func (r *Releaser) checkBranch(logger *slog.Logger, rc *Context) error {
	want := r.Config.Git.Branch
	if want == "" || rc.Branch == want {
		return nil
	}
	if rc.DryRun {
		logging.WarnWithContext(logger, "not on the release branch", "branch_mismatch",
			logging.String("branch", rc.Branch),
			logging.String("expected", want),
			logging.String(logging.FieldImpact, "a real run would refuse to start"),
		)
		return nil
	}
	return services.Wrap(services.ErrValidation, "", "branch",
		fmt.Sprintf("releases are cut from %s, currently on %s", want, rc.Branch), nil)
}

// checkResume compares the existing target tag with HEAD. A mismatch means
// commits landed after the tag was created; the tag is never moved.
func (r *Releaser) checkResume(ctx context.Context, logger *slog.Logger, rc *Context) error {
	tagCommit, err := r.Repo.TagCommit(ctx, rc.Target.Tag())
	if err != nil {
		return fmt.Errorf("resolve tag %s: %w", rc.Target.Tag(), err)
	}
	head, err := r.Repo.HeadCommit(ctx)
	if err != nil {
		return fmt.Errorf("resolve HEAD: %w", err)
	}
	if tagCommit == head {
		logger.Info("resuming release", logging.String("tag", rc.Target.Tag()))
		return nil
	}
	if r.Config.Release.StrictResume {
		return services.Wrap(services.ErrValidation, "", "resume",
			fmt.Sprintf("tag %s points at %s but HEAD is %s", rc.Target.Tag(), short(tagCommit), short(head)), nil)
	}
	logging.WarnWithContext(logger, "existing tag does not point at HEAD", "resume_tag_mismatch",
		logging.String("tag", rc.Target.Tag()),
		logging.String("tag_commit", short(tagCommit)),
		logging.String("head", short(head)),
		logging.String(logging.FieldErrorHint, "set release.strict_resume to refuse this"),
		logging.String(logging.FieldImpact, "artifacts are built from HEAD, not from the tagged commit"),
	)
	return nil
}

func (r *Releaser) confirm(ctx context.Context, rc *Context) error {
	if rc.DryRun || rc.AutoConfirm {
		return nil
	}
	if r.Presenter == nil {
		return services.Wrap(services.ErrValidation, "", "confirm", "confirmation required; rerun with --yes", nil)
	}
	ok, err := r.Presenter.Confirm(ctx, rc)
	if err != nil {
		return services.Wrap(services.ErrCancelled, "", "confirm", "", err)
	}
	if !ok {
		return services.Wrap(services.ErrCancelled, "", "confirm", "declined by operator", nil)
	}
	return nil
}

func (r *Releaser) links() []notes.Link {
	out := make([]notes.Link, 0, len(r.Config.Release.Links))
	for _, l := range r.Config.Release.Links {
		out = append(out, notes.Link{Title: l.Title, URL: l.URL})
	}
	return out
}

func short(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
