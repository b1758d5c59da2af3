package lock

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/rez-install/internal/domain/install"
	"github.com/oshokin/rez-install/internal/logger"
)

// Filename is the lock file created inside the install root.
const Filename = ".rez-install.lock"

// ErrInstallRunning indicates that another live process holds the lock.
var ErrInstallRunning = errors.New("another install is running")

// errLockReplaced reports that the stale lock was replaced by another process before it could be removed.
var errLockReplaced = errors.New("lock was replaced")

// Lock is a held install lock.
type Lock struct {
	path string
}

// Acquire takes the lock in dir, creating dir when needed.
func Acquire(ctx context.Context, dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create install root: %w", install.ErrDestinationUnwritable, err)
	}

	path := filepath.Join(dir, Filename)

	// One retry after removing a stale lock.
	for attempt := 0; attempt < 2; attempt++ {
		err := create(path)
		if err == nil {
			logger.DebugKV(ctx, "Acquired install lock", "path", path)

			return &Lock{path: path}, nil
		}

		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: create lock: %w", install.ErrDestinationUnwritable, err)
		}

		contents, pid, alive := owner(path)
		if alive {
			return nil, fmt.Errorf("%w: pid %d holds %s", ErrInstallRunning, pid, path)
		}

		logger.WarnKV(ctx, "Removing stale install lock", "path", path, "pid", pid)

		err = removeStale(path, contents)

		switch {
		case errors.Is(err, errLockReplaced):
			return nil, fmt.Errorf("%w: %s was taken over while removing a stale lock", ErrInstallRunning, path)
		case err != nil:
			return nil, fmt.Errorf("remove stale lock: %w", err)
		}
	}

	return nil, fmt.Errorf("%w: lock %s keeps reappearing", ErrInstallRunning, path)
}

// Release removes the lock file.
func (l *Lock) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}

	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("release lock: %w", err)
	}

	logger.DebugKV(ctx, "Released install lock", "path", l.path)

	return nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// create writes the current PID into a new lock file, failing if it exists.
func create(path string) error {
	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	_, writeErr := f.WriteString(strconv.Itoa(os.Getpid()))
	closeErr := f.Close()

	return errors.Join(writeErr, closeErr)
}

// owner reads the lock, returning its contents and PID and whether that process still runs.
// An unreadable or unparsable lock reports not alive.
func owner(path string) ([]byte, int, bool) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, 0, false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil || pid <= 0 {
		return contents, 0, false
	}

	process, err := ps.FindProcess(pid)
	if err != nil || process == nil {
		return contents, pid, false
	}

	return contents, pid, true
}

// removeStale deletes the lock at path only if it still holds the stale contents.
// The lock is renamed aside first, so a lock created meanwhile by another
// process is never deleted: it is linked back and errLockReplaced is returned.
func removeStale(path string, stale []byte) error {
	aside := fmt.Sprintf("%s.%d.stale", path, os.Getpid())

	if err := os.Rename(path, aside); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return err
	}

	contents, err := os.ReadFile(filepath.Clean(aside))
	if err == nil && !bytes.Equal(contents, stale) {
		linkErr := os.Link(aside, path)
		removeErr := os.Remove(aside)

		if linkErr != nil {
			return fmt.Errorf("restore replaced lock: %w", errors.Join(linkErr, removeErr))
		}

		return errLockReplaced
	}

	return errors.Join(err, os.Remove(aside))
}
