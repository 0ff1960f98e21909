package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const runLogPattern = "release-*.jsonl"

// RunLog is a per-run JSON log file. Every record written through Handler
// carries the run ID, and debug records are always captured regardless of
// the console level.
type RunLog struct {
	Path    string
	file    *os.File
	handler slog.Handler
}

// OpenRunLog creates dir when needed and opens a new run log named after the
// start time and run ID. An empty dir disables the run log and returns nil.
func OpenRunLog(dir, runID string, started time.Time) (*RunLog, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run log dir %s: %w", dir, err)
	}
	name := fmt.Sprintf("release-%s-%s.jsonl", started.UTC().Format("20060102T150405Z"), shortID(runID))
	path := filepath.Join(dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open run log %s: %w", path, err)
	}
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelDebug)
	return &RunLog{
		Path:    path,
		file:    file,
		handler: newRunIDHandler(newJSONHandler(file, levelVar, false), runID),
	}, nil
}

// Handler returns the slog handler writing to the run log.
func (r *RunLog) Handler() slog.Handler {
	if r == nil {
		return nil
	}
	return r.handler
}

// Close flushes and closes the run log file.
func (r *RunLog) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

func shortID(id string) string {
	id = strings.ReplaceAll(strings.TrimSpace(id), "-", "")
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "run"
	}
	return id
}

// runIDHandler stamps run_id onto every record unless the record already has one.
type runIDHandler struct {
	base  slog.Handler
	runID string
}

func newRunIDHandler(base slog.Handler, runID string) slog.Handler {
	if strings.TrimSpace(runID) == "" {
		return base
	}
	return &runIDHandler{base: base, runID: runID}
}

func (h *runIDHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *runIDHandler) Handle(ctx context.Context, record slog.Record) error {
	present := false
	record.Attrs(func(a slog.Attr) bool {
		if a.Key == FieldRunID {
			present = true
			return false
		}
		return true
	})
	if !present {
		record.AddAttrs(slog.String(FieldRunID, h.runID))
	}
	return h.base.Handle(ctx, record)
}

func (h *runIDHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if HasAttrKey(attrs, FieldRunID) {
		return h.base.WithAttrs(attrs)
	}
	return &runIDHandler{base: h.base.WithAttrs(attrs), runID: h.runID}
}

func (h *runIDHandler) WithGroup(name string) slog.Handler {
	return &runIDHandler{base: h.base.WithGroup(name), runID: h.runID}
}
