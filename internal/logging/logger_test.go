package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"shipwright/internal/config"
	"shipwright/internal/logging"
	"shipwright/internal/services"
)

func TestConsoleLoggerFormatsStepPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Output: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("uploading artifacts", logging.String(logging.FieldStep, "publish"), logging.Int("count", 2))

	line := buf.String()
	if !strings.Contains(line, "INFO ") {
		t.Fatalf("expected level label, got %q", line)
	}
	if !strings.Contains(line, "[publish] uploading artifacts") {
		t.Fatalf("expected step prefix, got %q", line)
	}
	if !strings.Contains(line, "count=2") {
		t.Fatalf("expected attribute, got %q", line)
	}
	if strings.Contains(line, "step=") {
		t.Fatalf("step should render as prefix only, got %q", line)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Output: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller")
	if strings.Contains(buf.String(), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", buf.String())
	}
}

func TestConsoleLoggerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Output: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("committed", logging.String("message", "release: v1.1.0"))
	if !strings.Contains(buf.String(), `message="release: v1.1.0"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "warn", Output: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info message should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("expected warn message, got %q", out)
	}
}

func TestJSONLoggerKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Output: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("tag created", logging.String("tag", "v1.1.0"))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, buf.String())
	}
	for _, key := range []string{"ts", "level", "msg", "tag"} {
		if _, ok := payload[key]; !ok {
			t.Fatalf("expected key %q in %v", key, payload)
		}
	}
	if payload["level"] != "info" {
		t.Fatalf("expected lowercase level, got %v", payload["level"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewFromConfigVerboseForcesDebug(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Level = "error"
	var buf bytes.Buffer
	logger, err := logging.NewFromConfig(&cfg, &buf, false, true)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Debug("debug message")
	if !strings.Contains(buf.String(), "debug message") {
		t.Fatalf("expected debug output with verbose, got %q", buf.String())
	}
}

func TestWithContextAddsRunAndStep(t *testing.T) {
	var buf bytes.Buffer
	base, err := logging.New(logging.Options{Format: "json", Level: "info", Output: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithRunID(context.Background(), "run-123")
	ctx = services.WithStep(ctx, "build")

	logging.WithContext(ctx, base).Info("hello")

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if payload[logging.FieldRunID] != "run-123" {
		t.Fatalf("expected run_id, got %v", payload)
	}
	if payload[logging.FieldStep] != "build" {
		t.Fatalf("expected step, got %v", payload)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Output: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "push failed", "step_tolerated", logging.Error(errors.New("rejected")))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if payload[logging.FieldEventType] != "step_tolerated" {
		t.Fatalf("unexpected event type: %v", payload)
	}
	if payload[logging.FieldErrorHint] == nil || payload[logging.FieldImpact] == nil {
		t.Fatalf("expected default hint and impact: %v", payload)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 12) {
		t.Fatal("nop logger should not be enabled")
	}
	logging.NewComponentLogger(nil, "x").Info("ignored")
}

func TestRunLogCapturesDebugWithRunID(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	runLog, err := logging.OpenRunLog(dir, "0f8e2a6c-1111-2222-3333-444455556666", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("OpenRunLog: %v", err)
	}
	if filepath.Base(runLog.Path) != "release-20260301T120000Z-0f8e2a6c.jsonl" {
		t.Fatalf("unexpected run log name %q", runLog.Path)
	}

	var console bytes.Buffer
	base, err := logging.New(logging.Options{Format: "console", Level: "info", Output: &console})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger := logging.TeeLogger(base, runLog.Handler())
	logger.Debug("probe detail", logging.String("tag", "v1.1.0"))
	logger.Info("release complete")
	if err := runLog.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if strings.Contains(console.String(), "probe detail") {
		t.Fatalf("console should not include debug output: %q", console.String())
	}
	data, err := os.ReadFile(runLog.Path)
	if err != nil {
		t.Fatalf("read run log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 run log lines, got %d: %q", len(lines), data)
	}
	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode run log line: %v", err)
	}
	if first[logging.FieldRunID] != "0f8e2a6c-1111-2222-3333-444455556666" {
		t.Fatalf("expected run_id on every line, got %v", first)
	}
}

func TestOpenRunLogDisabled(t *testing.T) {
	runLog, err := logging.OpenRunLog("", "id", time.Now())
	if err != nil || runLog != nil {
		t.Fatalf("expected nil run log for empty dir, got %v %v", runLog, err)
	}
	if err := runLog.Close(); err != nil {
		t.Fatalf("Close on nil run log: %v", err)
	}
}

func TestPruneRunLogs(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	old := filepath.Join(dir, "release-20250101T000000Z-aaaa.jsonl")
	current := filepath.Join(dir, "release-20250102T000000Z-bbbb.jsonl")
	fresh := filepath.Join(dir, "release-20260228T000000Z-cccc.jsonl")
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{old, current, fresh, other} {
		if err := os.WriteFile(p, []byte("{}\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	stale := now.AddDate(0, 0, -60)
	for _, p := range []string{old, current, other} {
		if err := os.Chtimes(p, stale, stale); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	removed := logging.PruneRunLogs(logging.NewNop(), dir, 30, current, now)
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old run log removed, stat err=%v", err)
	}
	for _, p := range []string{current, fresh, other} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %s kept: %v", p, err)
		}
	}
	if logging.PruneRunLogs(nil, dir, 0, "", now) != 0 {
		t.Fatal("retention 0 should disable pruning")
	}
}
