// Package gitrepo reads and mutates the local git repository a release runs
// against.
//
// Read operations (CurrentVersion, CommitsSince, IsWorkingTreeClean,
// TagExists and friends) are safe to call in dry-run. Write operations are
// only invoked by the VersionBump and CommitTagPush steps. Every call shells
// out to git through a cmdexec.Runner so tests can script responses.
package gitrepo
