package release

import (
	"context"
	"fmt"

	"shipwright/internal/gitrepo"
	"shipwright/internal/services"
	"shipwright/internal/version"
)

// Context is the per-invocation release state. It is built once from live
// queries before any step runs and is read-only afterwards.
type Context struct {
	Target version.Version
	// Prior is the previous release, or version.None.
	Prior version.Version
	// Commits are one-line summaries, newest first.
	Commits []string
	Branch  string

	DryRun      bool
	AutoConfirm bool
	// Resuming is true when the target tag already existed at start.
	Resuming bool
	RunID    string
}

// ContextOptions are the caller-supplied inputs to BuildContext.
type ContextOptions struct {
	DryRun       bool
	AutoConfirm  bool
	HistoryLimit int
	RunID        string
}

// BuildContext queries the repository and assembles the release context.
// When the target tag already exists (a resumed release) or there is no prior
// release, the commit window is the last HistoryLimit commits.
func BuildContext(ctx context.Context, repo Repository, target version.Version, opts ContextOptions) (*Context, error) {
	if target.IsNone() {
		return nil, services.Wrap(services.ErrValidation, "", "context", "target version is required", version.ErrInvalidFormat)
	}
	limit := opts.HistoryLimit
	if limit <= 0 {
		limit = gitrepo.DefaultHistoryLimit
	}

	resuming, err := repo.TagExists(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("check target tag: %w", err)
	}

	prior, err := repo.CurrentVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("read current version: %w", err)
	}
	if resuming && prior.Compare(target) == 0 {
		if prior, err = repo.VersionBefore(ctx, target.Tag()); err != nil {
			return nil, fmt.Errorf("read prior version: %w", err)
		}
	}

	window := prior
	if resuming {
		window = version.None
	}
	commits, err := repo.CommitsSince(ctx, window, limit)
	if err != nil {
		return nil, fmt.Errorf("read commit history: %w", err)
	}

	branch, err := repo.CurrentBranch(ctx)
	if err != nil {
		return nil, err
	}

	return &Context{
		Target:      target,
		Prior:       prior,
		Commits:     commits,
		Branch:      branch,
		DryRun:      opts.DryRun,
		AutoConfirm: opts.AutoConfirm,
		Resuming:    resuming,
		RunID:       opts.RunID,
	}, nil
}
