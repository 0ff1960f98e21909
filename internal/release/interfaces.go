package release

import (
	"context"

	"shipwright/internal/releasehost"
	"shipwright/internal/version"
)

// Repository is the git surface the pipeline reads and mutates.
// *gitrepo.Repo implements it.
type Repository interface {
	CurrentVersion(ctx context.Context) (version.Version, error)
	VersionBefore(ctx context.Context, rev string) (version.Version, error)
	CommitsSince(ctx context.Context, prior version.Version, limit int) ([]string, error)
	IsWorkingTreeClean(ctx context.Context) (bool, error)
	DirtyPaths(ctx context.Context) ([]string, error)
	TagExists(ctx context.Context, v version.Version) (bool, error)
	HasChanges(ctx context.Context, paths ...string) (bool, error)
	HeadCommit(ctx context.Context) (string, error)
	TagCommit(ctx context.Context, tag string) (string, error)
	CurrentBranch(ctx context.Context) (string, error)
	BranchPushed(ctx context.Context, remote, branch string) (bool, error)
	RemoteTagExists(ctx context.Context, remote, tag string) (bool, error)

	Stage(ctx context.Context, paths ...string) error
	Commit(ctx context.Context, message string) error
	CreateTag(ctx context.Context, tag, message string) error
	PushBranch(ctx context.Context, remote, branch string) error
	PushTag(ctx context.Context, remote, tag string) error
}

// Manifests reads and rewrites the version-bearing files.
// manifest.Files implements it.
type Manifests interface {
	HasVersion(number string) (bool, error)
	SetVersion(number string) error
}

// Builder produces distribution artifacts.
type Builder interface {
	Build(ctx context.Context) ([]string, error)
	Describe() string
}

// Uploader publishes artifacts to the package registry.
// registry.Uploader implements it.
type Uploader interface {
	Upload(ctx context.Context, artifacts []string, onLine func(string)) error
}

// HostPublisher creates the hosted release and attaches artifacts.
// *releasehost.Client implements it.
type HostPublisher interface {
	Publish(ctx context.Context, in releasehost.CreateRequest, assets []string) (*releasehost.Release, error)
}

// Presenter shows the release summary, asks for confirmation and reports
// per-step progress.
type Presenter interface {
	Summary(rc *Context, notes string)
	Confirm(ctx context.Context, rc *Context) (bool, error)
	StepFinished(res StepResult)
}
