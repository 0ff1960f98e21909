// Package cmdexec runs external tools (git, build and upload commands) behind
// an interface so release steps can be exercised with fakes.
package cmdexec

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// Command describes a single external invocation.
type Command struct {
	Dir  string
	Name string
	Args []string
	// Env entries are appended to the current process environment.
	Env []string
}

// String renders the command line for logs and dry-run descriptions.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, arg := range c.Args {
		if arg == "" || strings.ContainsAny(arg, " \t\"'") {
			parts = append(parts, fmt.Sprintf("%q", arg))
			continue
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

// Runner abstracts command execution for testability.
type Runner interface {
	// Output runs the command and returns its trimmed stdout.
	Output(ctx context.Context, cmd Command) (string, error)
	// Stream runs the command, forwarding stdout and stderr lines to onLine.
	Stream(ctx context.Context, cmd Command, onLine func(string)) error
}

// ExitError reports a command that ran but exited unsuccessfully.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s: exit status %d", e.Command, e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + lastLines(stderr, 5)
	}
	return msg
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExecRunner is the os/exec backed Runner.
type ExecRunner struct{}

func (ExecRunner) Output(ctx context.Context, c Command) (string, error) {
	cmd := build(ctx, c)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return strings.TrimSpace(stdout.String()), wrapExit(c, err, stderr.String())
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (ExecRunner) Stream(ctx context.Context, c Command, onLine func(string)) error {
	cmd := build(ctx, c)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", c.Name, err)
	}

	var (
		wg      sync.WaitGroup
		scanErr error
		once    sync.Once
		tailMu  sync.Mutex
		tail    []string
	)

	forward := func(line string) {
		tailMu.Lock()
		tail = append(tail, line)
		if len(tail) > 20 {
			tail = tail[len(tail)-20:]
		}
		tailMu.Unlock()
		if onLine != nil {
			onLine(line)
			return
		}
		fmt.Fprintln(os.Stderr, line)
	}

	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			forward(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()

	if scanErr != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("scan output: %w", scanErr)
	}
	if err := cmd.Wait(); err != nil {
		return wrapExit(c, err, strings.Join(tail, "\n"))
	}
	return nil
}

func build(ctx context.Context, c Command) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...) //nolint:gosec
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	return cmd
}

func wrapExit(c Command, err error, stderr string) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Command: c.String(), ExitCode: exitErr.ExitCode(), Stderr: stderr, Err: err}
	}
	return fmt.Errorf("run %s: %w", c.Name, err)
}

func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
