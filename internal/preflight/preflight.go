package preflight

import (
	"context"
	"fmt"
	"strings"

	"shipwright/internal/config"
	"shipwright/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckTools(ctx, cfg)...)
	results = append(results, CheckDirectoryAccess("Project root", cfg.Project.Root))
	results = append(results, CheckGitRepository(cfg.Project.Root))
	results = append(results, CheckFile("Project manifest", cfg.PyprojectPath()))
	results = append(results, CheckFile("Version module", cfg.VersionFilePath()))
	results = append(results, CheckHostRepository(cfg.Host.Owner, cfg.Host.Repo))

	results = append(results, CheckCredential("Registry token", cfg.Registry.Token, "set PYPI_TOKEN in the environment or settings file"))
	hostToken := CheckCredential("Host token", cfg.Host.Token, "set GITHUB_TOKEN in the environment or settings file")
	if hostToken.Passed && cfg.Host.Owner != "" && cfg.Host.Repo != "" {
		hostToken = CheckHostAccess(ctx, cfg.Host.APIURL, cfg.Host.Owner, cfg.Host.Repo, cfg.Host.Token)
	}
	results = append(results, hostToken)

	return results
}

// Failures returns the failed checks that are not optional.
func Failures(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failed = append(failed, r)
		}
	}
	return failed
}

// Warnings returns the failed optional checks.
func Warnings(results []Result) []Result {
	var warned []Result
	for _, r := range results {
		if !r.Passed && r.Optional {
			warned = append(warned, r)
		}
	}
	return warned
}

// Err summarizes required failures as a prerequisite error, or nil when every
// required check passed.
func Err(results []Result) error {
	failed := Failures(results)
	if len(failed) == 0 {
		return nil
	}
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return services.Wrap(services.ErrPrerequisite, "", "preflight",
		fmt.Sprintf("%d prerequisite check(s) failed: %s", len(failed), strings.Join(parts, "; ")), nil)
}
