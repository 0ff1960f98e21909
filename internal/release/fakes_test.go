package release

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"shipwright/internal/config"
	"shipwright/internal/logging"
	"shipwright/internal/notifications"
	"shipwright/internal/releasehost"
	"shipwright/internal/version"
)

// world is an in-memory repository, registry and release host. It implements
// every collaborator interface so a test can inspect all effects in one place.
type world struct {
	head      string
	tags      map[string]string
	tagOrder  []string
	commits   []string
	dirty     []string
	ahead     bool
	remote    map[string]bool
	published map[string]bool
	releases  map[string]releasehost.CreateRequest

	manifestVersion string
	manifestChanged bool

	failPushBranch error
	failPublish    error
	failBuild      error

	mutations []string
	seq       int
}

func newWorld(prior string, commits ...string) *world {
	w := &world{
		head:      "c0",
		tags:      map[string]string{},
		remote:    map[string]bool{},
		published: map[string]bool{},
		releases:  map[string]releasehost.CreateRequest{},
		commits:   commits,
	}
	if prior != "" {
		v := version.MustParse(prior)
		w.tags[v.Tag()] = "c0"
		w.tagOrder = append(w.tagOrder, v.Tag())
		w.remote[v.Tag()] = true
		w.published[v.Number()] = true
		w.releases[v.Tag()] = releasehost.CreateRequest{TagName: v.Tag()}
		w.manifestVersion = v.Number()
	}
	w.seq = len(commits)
	w.head = fmt.Sprintf("c%d", w.seq)
	return w
}

func (w *world) mutate(what string) { w.mutations = append(w.mutations, what) }

func (w *world) CurrentVersion(context.Context) (version.Version, error) {
	if len(w.tagOrder) == 0 {
		return version.None, nil
	}
	return version.MustParse(w.tagOrder[len(w.tagOrder)-1]), nil
}

func (w *world) VersionBefore(_ context.Context, rev string) (version.Version, error) {
	for i, tag := range w.tagOrder {
		if tag == rev && i > 0 {
			return version.MustParse(w.tagOrder[i-1]), nil
		}
	}
	return version.None, nil
}

func (w *world) CommitsSince(_ context.Context, prior version.Version, limit int) ([]string, error) {
	out := append([]string(nil), w.commits...)
	if prior.IsNone() && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (w *world) IsWorkingTreeClean(ctx context.Context) (bool, error) {
	paths, _ := w.DirtyPaths(ctx)
	return len(paths) == 0, nil
}

func (w *world) DirtyPaths(context.Context) ([]string, error) {
	paths := append([]string(nil), w.dirty...)
	if w.manifestChanged {
		paths = append(paths, "pyproject.toml", "aceteam_nodes/__init__.py")
	}
	sort.Strings(paths)
	return paths, nil
}

func (w *world) TagExists(_ context.Context, v version.Version) (bool, error) {
	_, ok := w.tags[v.Tag()]
	return ok, nil
}

func (w *world) HasChanges(context.Context, ...string) (bool, error) {
	return w.manifestChanged, nil
}

func (w *world) HeadCommit(context.Context) (string, error) { return w.head, nil }

func (w *world) TagCommit(_ context.Context, tag string) (string, error) {
	sha, ok := w.tags[tag]
	if !ok {
		return "", fmt.Errorf("unknown tag %s", tag)
	}
	return sha, nil
}

func (w *world) CurrentBranch(context.Context) (string, error) { return "main", nil }

func (w *world) BranchPushed(context.Context, string, string) (bool, error) { return !w.ahead, nil }

func (w *world) RemoteTagExists(_ context.Context, _, tag string) (bool, error) {
	return w.remote[tag], nil
}

func (w *world) Stage(context.Context, ...string) error {
	w.mutate("stage")
	return nil
}

func (w *world) Commit(_ context.Context, message string) error {
	w.mutate("commit")
	w.seq++
	w.head = fmt.Sprintf("c%d", w.seq)
	w.commits = append([]string{message}, w.commits...)
	w.manifestChanged = false
	w.ahead = true
	return nil
}

func (w *world) CreateTag(_ context.Context, tag, _ string) error {
	w.mutate("tag")
	w.tags[tag] = w.head
	w.tagOrder = append(w.tagOrder, tag)
	return nil
}

func (w *world) PushBranch(context.Context, string, string) error {
	if w.failPushBranch != nil {
		return w.failPushBranch
	}
	w.mutate("push_branch")
	w.ahead = false
	return nil
}

func (w *world) PushTag(_ context.Context, _, tag string) error {
	w.mutate("push_tag")
	w.remote[tag] = true
	return nil
}

func (w *world) HasVersion(number string) (bool, error) {
	return w.manifestVersion == number, nil
}

func (w *world) SetVersion(number string) error {
	w.mutate("set_version")
	if w.manifestVersion != number {
		w.manifestVersion = number
		w.manifestChanged = true
	}
	return nil
}

func (w *world) Build(context.Context) ([]string, error) {
	if w.failBuild != nil {
		return nil, w.failBuild
	}
	w.mutate("build")
	return []string{
		"/repo/dist/aceteam_nodes-" + w.manifestVersion + "-py3-none-any.whl",
		"/repo/dist/aceteam_nodes-" + w.manifestVersion + ".tar.gz",
	}, nil
}

func (w *world) Describe() string { return "clear dist/ and run python -m build" }

func (w *world) Upload(_ context.Context, artifacts []string, _ func(string)) error {
	if w.failPublish != nil {
		return w.failPublish
	}
	if len(artifacts) == 0 {
		return errors.New("no artifacts")
	}
	w.mutate("upload")
	w.published[w.manifestVersion] = true
	return nil
}

func (w *world) Publish(_ context.Context, in releasehost.CreateRequest, _ []string) (*releasehost.Release, error) {
	w.mutate("host_release")
	w.releases[in.TagName] = in
	return &releasehost.Release{TagName: in.TagName, HTMLURL: "https://github.com/aceteam-ai/aceteam-nodes/releases/tag/" + in.TagName}, nil
}

func (w *world) IsPublishedToRegistry(_ context.Context, v version.Version) bool {
	return w.published[v.Number()]
}

func (w *world) DoesHostedReleaseExist(_ context.Context, tag string) bool {
	_, ok := w.releases[tag]
	return ok
}

type fakePresenter struct {
	answer    bool
	confirmed int
	summaries []string
	finished  []StepResult
}

func (p *fakePresenter) Summary(_ *Context, notes string) { p.summaries = append(p.summaries, notes) }

func (p *fakePresenter) Confirm(context.Context, *Context) (bool, error) {
	p.confirmed++
	return p.answer, nil
}

func (p *fakePresenter) StepFinished(res StepResult) { p.finished = append(p.finished, res) }

type fakeNotifier struct {
	completed []notifications.ReleaseSummary
	failed    []string
}

func (n *fakeNotifier) NotifyReleaseCompleted(_ context.Context, s notifications.ReleaseSummary) error {
	n.completed = append(n.completed, s)
	return nil
}

func (n *fakeNotifier) NotifyReleaseFailed(_ context.Context, _, step string, _ error) error {
	n.failed = append(n.failed, step)
	return nil
}

func (n *fakeNotifier) TestNotification(context.Context) error { return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Project.Name = "aceteam-nodes"
	cfg.Project.Root = "/repo"
	cfg.Project.VersionFile = "aceteam_nodes/__init__.py"
	cfg.Host.Owner = "aceteam-ai"
	cfg.Host.Repo = "aceteam-nodes"
	return &cfg
}

func newTestReleaser(t *testing.T, w *world, cfg *config.Config, presenter Presenter) (*Releaser, *fakeNotifier) {
	t.Helper()
	notifier := &fakeNotifier{}
	return &Releaser{
		Config:    cfg,
		Repo:      w,
		Manifests: w,
		Builder:   w,
		Uploader:  w,
		Host:      w,
		Probe:     w,
		Presenter: presenter,
		Notifier:  notifier,
		Logger:    logging.NewNop(),
	}, notifier
}

func outcomes(steps []StepResult) map[string]Outcome {
	out := make(map[string]Outcome, len(steps))
	for _, s := range steps {
		out[s.Name] = s.Outcome
		for _, c := range s.Children {
			out[c.Name] = c.Outcome
		}
	}
	return out
}

func assertOutcomes(t *testing.T, steps []StepResult, want map[string]Outcome) {
	t.Helper()
	got := outcomes(steps)
	for name, outcome := range want {
		if got[name] != outcome {
			t.Errorf("step %s: got %q, want %q", name, got[name], outcome)
		}
	}
}
