package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"shipwright/internal/release"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
	statusSkip
)

var (
	colorOK     = lipgloss.AdaptiveColor{Light: "#86b300", Dark: "#c2d94c"}
	colorWarn   = lipgloss.AdaptiveColor{Light: "#f2ae49", Dark: "#ffb454"}
	colorError  = lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f07178"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"}
	colorAccent = lipgloss.AdaptiveColor{Light: "#399ee6", Dark: "#59c2ff"}

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
	maxNotesWidth    = 100
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		return lipgloss.NewStyle().Foreground(statusKindColor(kind)).Render(base)
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	case statusSkip:
		return "SKIP"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) lipgloss.TerminalColor {
	switch kind {
	case statusOK:
		return colorOK
	case statusWarn:
		return colorWarn
	case statusError:
		return colorError
	case statusSkip:
		return colorMuted
	default:
		return colorAccent
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = headerStyle.Render(line)
		rule = headerStyle.Render(rule)
	}
	return []string{line, rule}
}

// stepStatus maps a step result to a status line.
func stepStatus(res release.StepResult) (statusKind, string) {
	switch {
	case res.Tolerated():
		return statusWarn, "failed, continuing: " + errorText(res.Err)
	case res.Outcome == release.OutcomeFailed:
		return statusError, errorText(res.Err)
	case res.Outcome == release.OutcomeExecuted:
		return statusOK, "done in " + res.Duration.Round(time.Millisecond).String()
	case res.Outcome == release.OutcomeSkippedAlreadyDone:
		return statusSkip, "already done"
	case res.Outcome == release.OutcomeSkippedDryRun:
		return statusInfo, "would " + res.Description
	default:
		return statusSkip, "not started"
	}
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// renderMarkdown pretty-prints notes on a terminal and returns them unchanged
// otherwise.
func renderMarkdown(markdown string, colorize bool, width int) string {
	if !colorize {
		return markdown
	}
	if width <= 0 || width > maxNotesWidth {
		width = maxNotesWidth
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return markdown
	}
	rendered, err := renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return rendered
}

func shouldColorize(writer io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isTerminal(writer)
}

func isTerminal(stream any) bool {
	file, ok := stream.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
