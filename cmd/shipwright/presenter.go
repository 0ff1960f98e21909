package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"shipwright/internal/release"
)

// terminalPresenter shows the release summary, asks for confirmation, and
// prints one status line per finished step.
type terminalPresenter struct {
	out      io.Writer
	colorize bool
	pkg      string
	prompt   prompter
}

func (p *terminalPresenter) Summary(rc *release.Context, notes string) {
	lines := renderSectionHeader("Release summary", p.colorize)
	lines = append(lines,
		renderStatusLine("Package", statusInfo, p.pkg, p.colorize),
		renderStatusLine("Target", statusInfo, rc.Target.Tag(), p.colorize),
		renderStatusLine("Previous", statusInfo, priorText(rc), p.colorize),
		renderStatusLine("Branch", statusInfo, rc.Branch, p.colorize),
		renderStatusLine("Commits", statusInfo, fmt.Sprintf("%d", len(rc.Commits)), p.colorize),
	)
	if rc.Resuming {
		lines = append(lines, renderStatusLine("Mode", statusWarn, "resuming: tag "+rc.Target.Tag()+" already exists", p.colorize))
	}
	if rc.DryRun {
		lines = append(lines, renderStatusLine("Mode", statusInfo, "dry run: nothing will be changed", p.colorize))
	}
	fprintf(p.out, "%s\n\n", strings.Join(lines, "\n"))
	fprintf(p.out, "%s\n", strings.TrimRight(renderMarkdown(notes, p.colorize, 0), "\n"))
	fprintf(p.out, "\n")
}

func (p *terminalPresenter) Confirm(ctx context.Context, rc *release.Context) (bool, error) {
	title := fmt.Sprintf("Release %s %s?", p.pkg, rc.Target.Tag())
	description := "Bumps the version, builds, commits, tags, pushes, publishes to the registry and creates the hosted release."
	if rc.Resuming {
		description = "Completes the remaining steps of an interrupted release."
	}
	return p.prompt.Confirm(ctx, title, description)
}

func (p *terminalPresenter) StepFinished(res release.StepResult) {
	kind, msg := stepStatus(res)
	fprintf(p.out, "%s\n", renderStatusLine(release.Label(res.Name), kind, msg, p.colorize))
	for _, child := range res.Children {
		kind, msg := stepStatus(child)
		fprintf(p.out, "  %s\n", renderStatusLine(release.Label(child.Name), kind, msg, p.colorize))
	}
}

func priorText(rc *release.Context) string {
	if rc.Prior.IsNone() {
		return "none"
	}
	return rc.Prior.Tag()
}
