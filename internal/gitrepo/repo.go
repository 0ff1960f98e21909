package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"shipwright/internal/cmdexec"
	"shipwright/internal/services"
	"shipwright/internal/version"
)

// DefaultHistoryLimit bounds the commit window when there is no usable prior
// release boundary.
const DefaultHistoryLimit = 20

// Repo is a git working tree driven through the git CLI.
type Repo struct {
	dir    string
	runner cmdexec.Runner
	binary string
}

// Option customizes a Repo.
type Option func(*Repo)

// WithBinary overrides the git executable.
func WithBinary(path string) Option {
	return func(r *Repo) {
		if strings.TrimSpace(path) != "" {
			r.binary = path
		}
	}
}

// New returns a Repo rooted at dir. A nil runner uses cmdexec.ExecRunner.
func New(dir string, runner cmdexec.Runner, opts ...Option) *Repo {
	if runner == nil {
		runner = cmdexec.ExecRunner{}
	}
	r := &Repo{dir: dir, runner: runner, binary: "git"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dir returns the working tree root.
func (r *Repo) Dir() string { return r.dir }

func (r *Repo) git(args ...string) cmdexec.Command {
	return cmdexec.Command{Dir: r.dir, Name: r.binary, Args: args}
}

func (r *Repo) output(ctx context.Context, args ...string) (string, error) {
	out, err := r.runner.Output(ctx, r.git(args...))
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "", "git "+args[0], "", err)
	}
	return out, nil
}

// CurrentVersion returns the most recent reachable tag. A repository without
// tags, or whose latest tag is not a release version, yields version.None.
func (r *Repo) CurrentVersion(ctx context.Context) (version.Version, error) {
	return r.describe(ctx, "HEAD")
}

// VersionBefore returns the most recent release tag reachable from the parent
// of rev, used when HEAD itself carries the target tag of a resumed release.
func (r *Repo) VersionBefore(ctx context.Context, rev string) (version.Version, error) {
	return r.describe(ctx, rev+"^")
}

func (r *Repo) describe(ctx context.Context, rev string) (version.Version, error) {
	args := []string{"describe", "--tags", "--abbrev=0"}
	if rev != "HEAD" {
		args = append(args, rev)
	}
	out, err := r.runner.Output(ctx, r.git(args...))
	if err != nil {
		if isExit(err) {
			return version.None, nil
		}
		return version.Version{}, services.Wrap(services.ErrExternalTool, "", "git describe", "", err)
	}
	v, err := version.Parse(out)
	if err != nil {
		return version.None, nil
	}
	return v, nil
}

// CommitsSince returns one-line commit summaries newest first. When prior is
// the no-release sentinel the window is the last limit commits.
func (r *Repo) CommitsSince(ctx context.Context, prior version.Version, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	args := []string{"log", "--pretty=format:%s"}
	if prior.IsNone() {
		args = append(args, "-n", strconv.Itoa(limit))
	} else {
		args = append(args, prior.Tag()+"..HEAD")
	}
	out, err := r.runner.Output(ctx, r.git(args...))
	if err != nil {
		// An empty repository has no HEAD to log from.
		if prior.IsNone() && isExit(err) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrExternalTool, "", "git log", "", err)
	}
	return splitLines(out), nil
}

// IsWorkingTreeClean reports whether git status shows no staged, unstaged or
// untracked changes.
func (r *Repo) IsWorkingTreeClean(ctx context.Context) (bool, error) {
	paths, err := r.DirtyPaths(ctx)
	if err != nil {
		return false, err
	}
	return len(paths) == 0, nil
}

// DirtyPaths lists the paths git status reports as changed. Records are read
// from the NUL separated porcelain v2 format, which has no leading status
// padding and never quotes paths.
func (r *Repo) DirtyPaths(ctx context.Context) ([]string, error) {
	out, err := r.output(ctx, "status", "--porcelain=v2", "-z")
	if err != nil {
		return nil, err
	}
	var paths []string
	records := strings.Split(out, "\x00")
	for i := 0; i < len(records); i++ {
		record := records[i]
		if record == "" {
			continue
		}
		// fields before the path: ordinary 8, rename/copy 9, unmerged 10.
		var fields int
		switch record[0] {
		case '1':
			fields = 8
		case '2':
			fields = 9
			i++ // the original path follows as its own record
		case 'u':
			fields = 10
		case '?', '!':
			fields = 1
		default:
			continue
		}
		parts := strings.SplitN(record, " ", fields+1)
		if len(parts) == fields+1 && parts[fields] != "" {
			paths = append(paths, parts[fields])
		}
	}
	return paths, nil
}

// TagExists reports whether the local tag for v exists.
func (r *Repo) TagExists(ctx context.Context, v version.Version) (bool, error) {
	return r.refExists(ctx, "refs/tags/"+v.Tag())
}

func (r *Repo) refExists(ctx context.Context, ref string) (bool, error) {
	_, err := r.runner.Output(ctx, r.git("rev-parse", "-q", "--verify", ref))
	if err == nil {
		return true, nil
	}
	if isExit(err) {
		return false, nil
	}
	return false, services.Wrap(services.ErrExternalTool, "", "git rev-parse", "", err)
}

// HasChanges reports whether any of paths differ from HEAD, staged or not.
func (r *Repo) HasChanges(ctx context.Context, paths ...string) (bool, error) {
	args := append([]string{"status", "--porcelain", "--"}, paths...)
	out, err := r.output(ctx, args...)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// HeadCommit returns the full hash of HEAD.
func (r *Repo) HeadCommit(ctx context.Context) (string, error) {
	return r.output(ctx, "rev-parse", "HEAD")
}

// TagCommit returns the commit an existing tag points at, peeling annotated tags.
func (r *Repo) TagCommit(ctx context.Context, tag string) (string, error) {
	return r.output(ctx, "rev-parse", tag+"^{commit}")
}

// CurrentBranch returns the checked out branch name, or an error on a detached HEAD.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	out, err := r.output(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	if out == "HEAD" {
		return "", services.Wrap(services.ErrValidation, "", "git branch", "HEAD is detached; check out the release branch", nil)
	}
	return out, nil
}

// BranchPushed reports whether remote/branch already contains every local
// commit of branch. A missing remote-tracking ref counts as not pushed.
func (r *Repo) BranchPushed(ctx context.Context, remote, branch string) (bool, error) {
	remoteRef := "refs/remotes/" + remote + "/" + branch
	exists, err := r.refExists(ctx, remoteRef)
	if err != nil || !exists {
		return false, err
	}
	out, err := r.output(ctx, "rev-list", "--count", remoteRef+".."+branch)
	if err != nil {
		return false, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return false, fmt.Errorf("parse rev-list count %q: %w", out, err)
	}
	return n == 0, nil
}

// RemoteTagExists asks the remote whether it has tag.
func (r *Repo) RemoteTagExists(ctx context.Context, remote, tag string) (bool, error) {
	out, err := r.output(ctx, "ls-remote", "--tags", remote, "refs/tags/"+tag)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// RemoteURL returns the fetch URL of remote.
func (r *Repo) RemoteURL(ctx context.Context, remote string) (string, error) {
	return r.output(ctx, "remote", "get-url", remote)
}

// Stage adds paths to the index.
func (r *Repo) Stage(ctx context.Context, paths ...string) error {
	args := append([]string{"add", "--"}, paths...)
	_, err := r.output(ctx, args...)
	return err
}

// Commit records the index with message.
func (r *Repo) Commit(ctx context.Context, message string) error {
	_, err := r.output(ctx, "commit", "-m", message)
	return err
}

// CreateTag creates an annotated tag at HEAD.
func (r *Repo) CreateTag(ctx context.Context, tag, message string) error {
	_, err := r.output(ctx, "tag", "-a", tag, "-m", message)
	return err
}

// PushBranch pushes branch to remote.
func (r *Repo) PushBranch(ctx context.Context, remote, branch string) error {
	_, err := r.output(ctx, "push", remote, branch)
	return err
}

// PushTag pushes a single tag to remote.
func (r *Repo) PushTag(ctx context.Context, remote, tag string) error {
	_, err := r.output(ctx, "push", remote, "refs/tags/"+tag)
	return err
}

func isExit(err error) bool {
	var exitErr *cmdexec.ExitError
	return errors.As(err, &exitErr)
}

func splitLines(out string) []string {
	out = strings.TrimSpace(out)
	if out == "" {
		return nil
	}
	lines := strings.Split(out, "\n")
	result := lines[:0]
	for _, line := range lines {
		if line = strings.TrimRight(line, "\r"); strings.TrimSpace(line) != "" {
			result = append(result, line)
		}
	}
	return result
}
