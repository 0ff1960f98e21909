package release

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"shipwright/internal/cmdexec"
	"shipwright/internal/logging"
	"shipwright/internal/services"
)

// CommandBuilder builds artifacts by clearing the dist directory and running
// the configured build command in the project root.
type CommandBuilder struct {
	Runner  cmdexec.Runner
	Dir     string
	Command []string
	DistDir string
	Logger  *slog.Logger
}

func (b CommandBuilder) command() cmdexec.Command {
	cmd := cmdexec.Command{Dir: b.Dir, Name: "python", Args: []string{"-m", "build"}}
	if len(b.Command) > 0 {
		cmd.Name = b.Command[0]
		cmd.Args = append([]string(nil), b.Command[1:]...)
	}
	return cmd
}

// Describe returns the dry-run description of the build.
func (b CommandBuilder) Describe() string {
	return fmt.Sprintf("clear %s and run %s", b.relDist(), b.command().String())
}

// Build removes stale artifacts, runs the build command and returns the
// produced files in dist, sorted by name.
func (b CommandBuilder) Build(ctx context.Context) ([]string, error) {
	if err := b.checkDist(); err != nil {
		return nil, err
	}
	if err := os.RemoveAll(b.DistDir); err != nil {
		return nil, services.Wrap(services.ErrFatalStep, StepBuild, "clean", b.DistDir, err)
	}

	runner := b.Runner
	if runner == nil {
		runner = cmdexec.ExecRunner{}
	}
	logger := logging.NewComponentLogger(b.Logger, "build")
	cmd := b.command()
	logger.Debug("running build command", logging.String("command", cmd.String()))
	if err := runner.Stream(ctx, cmd, func(line string) {
		logger.Debug(line, logging.String(logging.FieldEventType, "tool_output"))
	}); err != nil {
		return nil, services.Wrap(services.ErrFatalStep, StepBuild, "run", "", err)
	}

	artifacts, err := ListArtifacts(b.DistDir)
	if err != nil {
		return nil, services.Wrap(services.ErrFatalStep, StepBuild, "collect", "", err)
	}
	if len(artifacts) == 0 {
		return nil, services.Wrap(services.ErrFatalStep, StepBuild, "collect", fmt.Sprintf("build produced no artifacts in %s", b.DistDir), nil)
	}
	return artifacts, nil
}

// ListArtifacts returns the regular files directly inside dir, sorted.
func ListArtifacts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func (b CommandBuilder) checkDist() error {
	if strings.TrimSpace(b.DistDir) == "" {
		return services.Wrap(services.ErrConfiguration, StepBuild, "clean", "dist directory not configured", nil)
	}
	rel, err := filepath.Rel(b.Dir, b.DistDir)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return services.Wrap(services.ErrConfiguration, StepBuild, "clean",
			fmt.Sprintf("dist directory %s must be inside the project root", b.DistDir), err)
	}
	return nil
}

func (b CommandBuilder) relDist() string {
	if rel, err := filepath.Rel(b.Dir, b.DistDir); err == nil {
		return filepath.ToSlash(rel) + "/"
	}
	return b.DistDir
}
