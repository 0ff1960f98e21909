// Package runlock keeps two release invocations from running against the same
// repository at once. The lock is an advisory flock held for the life of the
// process; it records nothing and is not release state.
package runlock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"shipwright/internal/services"
)

const lockName = "shipwright.lock"

// Lock is a held repository lock.
type Lock struct {
	path string
	lock *flock.Flock
}

// PathFor returns the lock file location for the repository at root: inside
// the git directory when it is a plain directory, else at the root.
func PathFor(root string) string {
	gitDir := filepath.Join(root, ".git")
	if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
		return filepath.Join(gitDir, lockName)
	}
	return filepath.Join(root, "."+lockName)
}

// Acquire takes the lock for root without blocking. A lock held by another
// process yields an error wrapping services.ErrPrerequisite.
func Acquire(root string) (*Lock, error) {
	path := PathFor(root)
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrPrerequisite, "", "lock",
			fmt.Sprintf("another shipwright run holds %s", path), nil)
	}
	return &Lock{path: path, lock: fl}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Release unlocks. The lock file is left in place.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
