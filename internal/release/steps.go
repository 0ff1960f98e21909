package release

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"shipwright/internal/logging"
	"shipwright/internal/notes"
	"shipwright/internal/probe"
	"shipwright/internal/releasehost"
	"shipwright/internal/services"
)

// PipelineConfig holds the values the steps need beyond their collaborators.
type PipelineConfig struct {
	Package string
	Remote  string
	// ManifestPaths are repository-relative and are what the commit stages.
	ManifestPaths []string
	CommitMessage func(tag string) string
	TagMessage    func(tag string) string
	RegistryURL   string
	HostRepo      string
	DistDir       string
	Notes         string
	NotesTitle    string
}

// Pipeline carries collaborators into the step closures and records what the
// steps produced for later steps in the same run.
type Pipeline struct {
	Config    PipelineConfig
	Repo      Repository
	Manifests Manifests
	Builder   Builder
	Uploader  Uploader
	Host      HostPublisher
	Probe     probe.StateProbe
	Logger    *slog.Logger

	artifacts  []string
	releaseURL string
}

// Artifacts returns the files produced by the Build step in this run.
func (p *Pipeline) Artifacts() []string { return p.artifacts }

// ReleaseURL returns the hosted release URL when HostRelease executed.
func (p *Pipeline) ReleaseURL() string { return p.releaseURL }

// Steps returns the fixed step sequence.
func (p *Pipeline) Steps() []StepDefinition {
	return []StepDefinition{
		{
			Name:     StepVersionBump,
			Ordinal:  1,
			Probe:    p.probeVersionBump,
			Execute:  p.executeVersionBump,
			Describe: p.describeVersionBump,
		},
		{
			Name:     StepBuild,
			Ordinal:  2,
			Execute:  p.executeBuild,
			Describe: func(*Context) string { return p.Builder.Describe() },
		},
		{
			Name:    StepCommitTagPush,
			Ordinal: 3,
			Children: []StepDefinition{
				{
					Name:     StepCommit,
					Ordinal:  1,
					Probe:    p.probeCommit,
					Execute:  p.executeCommit,
					Describe: p.describeCommit,
				},
				{
					Name:     StepTag,
					Ordinal:  2,
					Probe:    p.probeTag,
					Execute:  p.executeTag,
					Describe: p.describeTag,
				},
				{
					Name:     StepPushBranch,
					Ordinal:  3,
					Tolerant: true,
					Probe:    p.probePushBranch,
					Execute:  p.executePushBranch,
					Describe: func(rc *Context) string { return fmt.Sprintf("push branch %s to %s", rc.Branch, p.Config.Remote) },
				},
				{
					Name:     StepPushTag,
					Ordinal:  4,
					Tolerant: true,
					Probe:    p.probePushTag,
					Execute:  p.executePushTag,
					Describe: func(rc *Context) string { return fmt.Sprintf("push tag %s to %s", rc.Target.Tag(), p.Config.Remote) },
				},
			},
		},
		{
			Name:     StepPublish,
			Ordinal:  4,
			Probe:    p.probePublish,
			Execute:  p.executePublish,
			Describe: p.describePublish,
		},
		{
			Name:     StepHostRelease,
			Ordinal:  5,
			Probe:    p.probeHostRelease,
			Execute:  p.executeHostRelease,
			Describe: p.describeHostRelease,
		},
	}
}

func (p *Pipeline) logger(ctx context.Context) *slog.Logger {
	return logging.WithContext(ctx, logging.NewComponentLogger(p.Logger, "pipeline"))
}

func (p *Pipeline) probeVersionBump(_ context.Context, rc *Context) (bool, error) {
	return p.Manifests.HasVersion(rc.Target.Number())
}

func (p *Pipeline) executeVersionBump(ctx context.Context, rc *Context) error {
	if err := p.Manifests.SetVersion(rc.Target.Number()); err != nil {
		return err
	}
	p.logger(ctx).Info("manifests updated",
		logging.String("version", rc.Target.Number()),
		logging.Strings("files", p.Config.ManifestPaths),
	)
	return nil
}

func (p *Pipeline) describeVersionBump(rc *Context) string {
	return fmt.Sprintf("set version %s in %s", rc.Target.Number(), strings.Join(p.Config.ManifestPaths, " and "))
}

func (p *Pipeline) executeBuild(ctx context.Context, _ *Context) error {
	artifacts, err := p.Builder.Build(ctx)
	if err != nil {
		return err
	}
	p.artifacts = artifacts
	names := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		names = append(names, filepath.Base(a))
	}
	p.logger(ctx).Info("artifacts built", logging.Strings("artifacts", names))
	return nil
}

// The release commit is present when the manifests already carry the target
// version and nothing in them is uncommitted.
func (p *Pipeline) probeCommit(ctx context.Context, rc *Context) (bool, error) {
	atTarget, err := p.Manifests.HasVersion(rc.Target.Number())
	if err != nil || !atTarget {
		return false, err
	}
	changed, err := p.Repo.HasChanges(ctx, p.Config.ManifestPaths...)
	if err != nil {
		return false, err
	}
	return !changed, nil
}

func (p *Pipeline) executeCommit(ctx context.Context, rc *Context) error {
	if err := p.Repo.Stage(ctx, p.Config.ManifestPaths...); err != nil {
		return err
	}
	return p.Repo.Commit(ctx, p.Config.CommitMessage(rc.Target.Tag()))
}

func (p *Pipeline) describeCommit(rc *Context) string {
	return fmt.Sprintf("commit %s as %q", strings.Join(p.Config.ManifestPaths, ", "), p.Config.CommitMessage(rc.Target.Tag()))
}

func (p *Pipeline) probeTag(ctx context.Context, rc *Context) (bool, error) {
	return p.Repo.TagExists(ctx, rc.Target)
}

func (p *Pipeline) executeTag(ctx context.Context, rc *Context) error {
	return p.Repo.CreateTag(ctx, rc.Target.Tag(), p.Config.TagMessage(rc.Target.Tag()))
}

func (p *Pipeline) describeTag(rc *Context) string {
	return fmt.Sprintf("create annotated tag %s", rc.Target.Tag())
}

func (p *Pipeline) probePushBranch(ctx context.Context, rc *Context) (bool, error) {
	return p.Repo.BranchPushed(ctx, p.Config.Remote, rc.Branch)
}

func (p *Pipeline) executePushBranch(ctx context.Context, rc *Context) error {
	return p.Repo.PushBranch(ctx, p.Config.Remote, rc.Branch)
}

func (p *Pipeline) probePushTag(ctx context.Context, rc *Context) (bool, error) {
	return p.Repo.RemoteTagExists(ctx, p.Config.Remote, rc.Target.Tag())
}

func (p *Pipeline) executePushTag(ctx context.Context, rc *Context) error {
	return p.Repo.PushTag(ctx, p.Config.Remote, rc.Target.Tag())
}

func (p *Pipeline) probePublish(ctx context.Context, rc *Context) (bool, error) {
	return p.Probe.IsPublishedToRegistry(ctx, rc.Target), nil
}

func (p *Pipeline) executePublish(ctx context.Context, _ *Context) error {
	logger := p.logger(ctx)
	if err := p.Uploader.Upload(ctx, p.artifacts, func(line string) {
		logger.Debug(line, logging.String(logging.FieldEventType, "tool_output"))
	}); err != nil {
		return err
	}
	logger.Info("package published", logging.Int("artifacts", len(p.artifacts)))
	return nil
}

func (p *Pipeline) describePublish(rc *Context) string {
	return fmt.Sprintf("upload %s* to %s as %s %s", p.Config.DistDir, p.Config.RegistryURL, p.Config.Package, rc.Target.Number())
}

func (p *Pipeline) probeHostRelease(ctx context.Context, rc *Context) (bool, error) {
	return p.Probe.DoesHostedReleaseExist(ctx, rc.Target.Tag()), nil
}

func (p *Pipeline) executeHostRelease(ctx context.Context, rc *Context) error {
	if p.Host == nil {
		return services.Wrap(services.ErrConfiguration, StepHostRelease, "create", "release host not configured", nil)
	}
	rel, err := p.Host.Publish(ctx, releasehost.CreateRequest{
		TagName:    rc.Target.Tag(),
		Name:       p.Config.NotesTitle,
		Body:       p.Config.Notes,
		Prerelease: rc.Target.Prerelease() != "",
	}, p.artifacts)
	if err != nil {
		return err
	}
	if rel != nil {
		p.releaseURL = rel.HTMLURL
	}
	p.logger(ctx).Info("hosted release created",
		logging.String("url", p.releaseURL),
		logging.Int("assets", len(p.artifacts)),
	)
	return nil
}

func (p *Pipeline) describeHostRelease(rc *Context) string {
	return fmt.Sprintf("create release %s on %s with generated notes and %s* attached", rc.Target.Tag(), p.Config.HostRepo, p.Config.DistDir)
}

// NotesInput assembles the notes input from rc.
func NotesInput(rc *Context, pkg, repositoryURL string, links []notes.Link) notes.Input {
	return notes.Input{
		Package:       pkg,
		Target:        rc.Target,
		Prior:         rc.Prior,
		Commits:       rc.Commits,
		Links:         links,
		RepositoryURL: repositoryURL,
	}
}
