package release

import (
	"context"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Step names.
const (
	StepVersionBump   = "version_bump"
	StepBuild         = "build"
	StepCommitTagPush = "commit_tag_push"
	StepCommit        = "commit"
	StepTag           = "tag"
	StepPushBranch    = "push_branch"
	StepPushTag       = "push_tag"
	StepPublish       = "publish"
	StepHostRelease   = "host_release"
)

// Outcome is the terminal result of a step.
type Outcome string

const (
	OutcomeExecuted           Outcome = "executed"
	OutcomeSkippedAlreadyDone Outcome = "skipped_already_done"
	OutcomeSkippedDryRun      Outcome = "skipped_dry_run"
	OutcomeFailed             Outcome = "failed"
)

// Skipped reports whether the outcome is either skip variant.
func (o Outcome) Skipped() bool {
	return o == OutcomeSkippedAlreadyDone || o == OutcomeSkippedDryRun
}

// State is a step's position in NotStarted → {Skipped | Executing → {Done | Failed}}.
type State string

const (
	StateNotStarted State = "not_started"
	StateExecuting  State = "executing"
	StateSkipped    State = "skipped"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// ProbeFunc reports whether a step's effect is already present. Probes must
// not mutate anything; they also run in dry-run.
type ProbeFunc func(ctx context.Context, rc *Context) (bool, error)

// ExecuteFunc performs a step's effect.
type ExecuteFunc func(ctx context.Context, rc *Context) error

// DescribeFunc returns the dry-run description of what Execute would do.
type DescribeFunc func(rc *Context) string

// StepDefinition declares one pipeline step. A definition with Children is a
// composite: its children run in order under the same rules and it has no
// Probe or Execute of its own.
type StepDefinition struct {
	Name     string
	Ordinal  int
	Probe    ProbeFunc
	Execute  ExecuteFunc
	Describe DescribeFunc
	// Tolerant steps log their failure and let the pipeline continue.
	Tolerant bool
	Children []StepDefinition
}

// StepResult records what happened to a step.
type StepResult struct {
	Name        string
	Ordinal     int
	State       State
	Outcome     Outcome
	Description string
	Tolerant    bool
	Err         error
	Duration    time.Duration
	Children    []StepResult
}

// Tolerated reports whether the step failed but was allowed to.
func (r StepResult) Tolerated() bool {
	return r.Outcome == OutcomeFailed && r.Tolerant
}

var titleCaser = cases.Title(language.English)

// Label renders a step name for humans ("push_branch" → "Push Branch").
func Label(name string) string {
	return titleCaser.String(strings.ReplaceAll(name, "_", " "))
}
