package logs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNoRuns reports that the run log directory holds no run logs.
var ErrNoRuns = errors.New("no run logs found")

const (
	runPrefix    = "release-"
	runSuffix    = ".jsonl"
	runTimestamp = "20060102T150405Z"
)

// Run identifies one run log on disk.
type Run struct {
	Path    string
	ID      string
	Started time.Time
}

// List returns the run logs in dir, newest first. A missing directory yields
// no runs and no error.
func List(dir string) ([]Run, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read run log dir: %w", err)
	}
	var runs []Run
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		run, ok := parseRunName(entry.Name())
		if !ok {
			continue
		}
		run.Path = filepath.Join(dir, entry.Name())
		runs = append(runs, run)
	}
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].Started.Equal(runs[j].Started) {
			return runs[i].ID > runs[j].ID
		}
		return runs[i].Started.After(runs[j].Started)
	})
	return runs, nil
}

// Latest returns the most recent run log in dir.
func Latest(dir string) (Run, error) {
	runs, err := List(dir)
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, ErrNoRuns
	}
	return runs[0], nil
}

// Find returns the newest run whose ID starts with prefix. Dashes in prefix
// are ignored so a full UUID matches the shortened ID in the file name.
func Find(dir, prefix string) (Run, error) {
	prefix = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(prefix), "-", ""))
	if prefix == "" {
		return Latest(dir)
	}
	runs, err := List(dir)
	if err != nil {
		return Run{}, err
	}
	for _, run := range runs {
		if strings.HasPrefix(prefix, run.ID) || strings.HasPrefix(run.ID, prefix) {
			return run, nil
		}
	}
	return Run{}, fmt.Errorf("run %q: %w", prefix, ErrNoRuns)
}

func parseRunName(name string) (Run, bool) {
	if !strings.HasPrefix(name, runPrefix) || !strings.HasSuffix(name, runSuffix) {
		return Run{}, false
	}
	core := strings.TrimSuffix(strings.TrimPrefix(name, runPrefix), runSuffix)
	stamp, id, ok := strings.Cut(core, "-")
	if !ok || id == "" {
		return Run{}, false
	}
	started, err := time.Parse(runTimestamp, stamp)
	if err != nil {
		return Run{}, false
	}
	return Run{ID: id, Started: started}, true
}
