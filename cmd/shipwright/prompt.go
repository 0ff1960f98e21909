package main

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/charmbracelet/huh"

	"shipwright/internal/services"
	"shipwright/internal/version"
)

// prompter collects operator input. Tests swap in a scripted implementation.
type prompter interface {
	Version(ctx context.Context, current version.Version) (string, error)
	Confirm(ctx context.Context, title, description string) (bool, error)
}

// huhPrompter prompts with huh forms. Without a terminal on the input it
// falls back to huh's line-based accessible mode so piped answers work.
type huhPrompter struct {
	in  io.Reader
	out io.Writer
}

func (p huhPrompter) run(ctx context.Context, group *huh.Group) error {
	form := huh.NewForm(group).
		WithInput(p.in).
		WithOutput(p.out).
		WithAccessible(!isTerminal(p.in))
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return services.Wrap(services.ErrCancelled, "", "prompt", "aborted by operator", err)
		}
		return err
	}
	return nil
}

func (p huhPrompter) Version(ctx context.Context, current version.Version) (string, error) {
	var answer string
	description := "Format vMAJOR.MINOR.PATCH[-PRERELEASE]"
	if !current.IsNone() {
		description += "; latest release is " + current.Tag()
	}
	err := p.run(ctx, huh.NewGroup(
		huh.NewInput().
			Title("Version to release").
			Description(description).
			Placeholder("v1.2.0").
			Value(&answer).
			Validate(func(s string) error {
				_, err := version.Parse(strings.TrimSpace(s))
				return err
			}),
	))
	return strings.TrimSpace(answer), err
}

func (p huhPrompter) Confirm(ctx context.Context, title, description string) (bool, error) {
	var ok bool
	err := p.run(ctx, huh.NewGroup(
		huh.NewConfirm().
			Title(title).
			Description(description).
			Affirmative("Release").
			Negative("Cancel").
			Value(&ok),
	))
	return ok, err
}
