package registry

import (
	"context"
	"errors"
	"strings"

	"shipwright/internal/cmdexec"
	"shipwright/internal/services"
)

// ErrMissingToken reports a publish attempted without a registry credential.
var ErrMissingToken = errors.New("registry token missing")

// Uploader publishes artifacts by running the configured upload command
// (twine by default) with the registry token passed through the environment.
type Uploader struct {
	Runner  cmdexec.Runner
	Command []string
	Token   string
	Dir     string
	// RepositoryURL is the upload endpoint. Empty leaves the tool's default.
	RepositoryURL string
}

// CommandFor returns the invocation that would upload artifacts, without credentials.
func (u Uploader) CommandFor(artifacts []string) cmdexec.Command {
	name := "twine"
	var args []string
	if len(u.Command) > 0 {
		name = u.Command[0]
		args = append(args, u.Command[1:]...)
	}
	args = append(args, artifacts...)
	return cmdexec.Command{Dir: u.Dir, Name: name, Args: args}
}

// Upload runs the upload command over artifacts. onLine receives tool output.
func (u Uploader) Upload(ctx context.Context, artifacts []string, onLine func(string)) error {
	token := strings.TrimSpace(u.Token)
	if token == "" {
		return services.Wrap(services.ErrFatalStep, "", "upload", "set PYPI_TOKEN (or TWINE_PASSWORD) before publishing", ErrMissingToken)
	}
	if len(artifacts) == 0 {
		return services.Wrap(services.ErrFatalStep, "", "upload", "no artifacts to upload", nil)
	}
	runner := u.Runner
	if runner == nil {
		runner = cmdexec.ExecRunner{}
	}
	cmd := u.CommandFor(artifacts)
	cmd.Env = []string{
		"TWINE_USERNAME=__token__",
		"TWINE_PASSWORD=" + token,
		"UV_PUBLISH_TOKEN=" + token,
	}
	if repo := strings.TrimSpace(u.RepositoryURL); repo != "" {
		cmd.Env = append(cmd.Env, "TWINE_REPOSITORY_URL="+repo, "UV_PUBLISH_URL="+repo)
	}
	if err := runner.Stream(ctx, cmd, onLine); err != nil {
		return services.Wrap(services.ErrFatalStep, "", "upload", "", err)
	}
	return nil
}
