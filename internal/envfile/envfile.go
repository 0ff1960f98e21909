// Package envfile loads the optional local settings file (dotenv format) into
// the process environment before a release runs.
package envfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/subosito/gotenv"
)

// Result describes what a Load call applied.
type Result struct {
	Path    string
	Found   bool
	Applied []string
	// Kept lists keys present in the file that were left alone because the
	// process environment already defined them.
	Kept []string
}

// Load reads path and exports every variable not already set in the process
// environment. A missing file is not an error.
func Load(path string) (Result, error) {
	result := Result{Path: path}
	if strings.TrimSpace(path) == "" {
		return result, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return result, nil
		}
		return result, fmt.Errorf("stat settings file: %w", err)
	}
	if info.IsDir() {
		return result, fmt.Errorf("settings file %s is a directory", path)
	}
	result.Found = true

	env, err := gotenv.Read(path)
	if err != nil {
		return result, fmt.Errorf("parse settings file %s: %w", path, err)
	}

	keys := make([]string, 0, len(env))
	for key := range env {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if _, exists := os.LookupEnv(key); exists {
			result.Kept = append(result.Kept, key)
			continue
		}
		if err := os.Setenv(key, env[key]); err != nil {
			return result, fmt.Errorf("export %s: %w", key, err)
		}
		result.Applied = append(result.Applied, key)
	}
	return result, nil
}
