package cmdexec

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "tool")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestExecRunnerOutputTrimsStdout(t *testing.T) {
	script := writeScript(t, "echo \"  hello $1  \"\n")
	out, err := ExecRunner{}.Output(context.Background(), Command{Name: script, Args: []string{"world"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "hello world" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestExecRunnerOutputReportsExitError(t *testing.T) {
	script := writeScript(t, "echo nope >&2\nexit 3\n")
	_, err := ExecRunner{}.Output(context.Background(), Command{Name: script})
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %v", err)
	}
	if exitErr.ExitCode != 3 {
		t.Fatalf("unexpected exit code %d", exitErr.ExitCode)
	}
	if !strings.Contains(exitErr.Error(), "nope") {
		t.Fatalf("expected stderr in message, got %q", exitErr.Error())
	}
}

func TestExecRunnerStreamForwardsLinesAndEnv(t *testing.T) {
	script := writeScript(t, "echo first\necho \"$SHIPWRIGHT_TEST\" >&2\n")
	var lines []string
	err := ExecRunner{}.Stream(context.Background(), Command{
		Name: script,
		Env:  []string{"SHIPWRIGHT_TEST=second"},
	}, func(line string) { lines = append(lines, line) })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	joined := strings.Join(lines, ",")
	if !strings.Contains(joined, "first") || !strings.Contains(joined, "second") {
		t.Fatalf("unexpected lines %v", lines)
	}
}

func TestExecRunnerMissingBinary(t *testing.T) {
	_, err := ExecRunner{}.Output(context.Background(), Command{Name: filepath.Join(t.TempDir(), "missing")})
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		t.Fatalf("missing binary should not be an ExitError: %v", err)
	}
}

func TestCommandString(t *testing.T) {
	c := Command{Name: "git", Args: []string{"commit", "-m", "release: v1.0.0"}}
	if got := c.String(); got != `git commit -m "release: v1.0.0"` {
		t.Fatalf("unexpected rendering %q", got)
	}
}

func TestFakeMatchesLongestPrefix(t *testing.T) {
	f := NewFake().
		On("git", FakeResponse{Output: "generic"}).
		On("git describe", FakeResponse{Output: "v1.0.0"})
	out, _ := f.Output(context.Background(), Command{Name: "git", Args: []string{"describe", "--tags"}})
	if out != "v1.0.0" {
		t.Fatalf("unexpected output %q", out)
	}
	out, _ = f.Output(context.Background(), Command{Name: "git", Args: []string{"status"}})
	if out != "generic" {
		t.Fatalf("unexpected output %q", out)
	}
	if f.Count("git") != 2 || !f.Ran("git status") {
		t.Fatalf("unexpected calls %v", f.Calls)
	}
}
