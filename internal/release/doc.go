// Package release sequences the release steps and decides, per step, whether
// to execute, skip or fail.
//
// The pipeline is fixed: VersionBump, Build, CommitTagPush (commit, tag,
// push branch, push tag), Publish and HostRelease. Before executing, each step
// asks its probe whether the effect already exists; if so the step is
// skipped. Nothing about a run is persisted locally. Truth is re-derived from
// git, the manifests, the registry and the release host on every invocation,
// which is what makes re-running after a partial failure converge instead of
// duplicating work.
//
// Releaser wires the pipeline to real collaborators and owns the pre-run
// checks (clean tree, resume consistency) and the confirmation gate.
// Orchestrator is the bare state machine and can run any []StepDefinition.
package release
