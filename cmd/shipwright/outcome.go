package main

import (
	"fmt"
	"io"

	"shipwright/internal/release"
)

func printOutcome(out io.Writer, report *release.Report, colorize bool) {
	rc := report.Context
	switch {
	case report.Err != nil:
		step := report.FailedStep()
		if step == "" {
			step = "release"
		}
		fprintf(out, "%s\n", renderStatusLine("Result", statusError,
			fmt.Sprintf("%s failed; rerun with --version %s to resume", release.Label(step), rc.Target.Tag()), colorize))
	case rc.DryRun:
		fprintf(out, "%s\n", renderStatusLine("Result", statusInfo, "dry run complete; nothing was changed", colorize))
	default:
		msg := fmt.Sprintf("%s released (%d executed, %d already done)",
			rc.Target.Tag(), report.Count(release.OutcomeExecuted), report.Count(release.OutcomeSkippedAlreadyDone))
		kind := statusOK
		if n := len(report.Tolerated()); n > 0 {
			kind = statusWarn
			msg += fmt.Sprintf("; %d push step(s) need a manual retry", n)
		}
		fprintf(out, "%s\n", renderStatusLine("Result", kind, msg, colorize))
		if report.ReleaseURL != "" {
			fprintf(out, "%s\n", renderStatusLine("Release", statusInfo, report.ReleaseURL, colorize))
		}
	}
}
