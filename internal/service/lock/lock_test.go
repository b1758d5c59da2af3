package lock

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/rez-install/internal/domain/install"
)

// TestAcquireRelease takes and drops the lock, leaving no file behind.
func TestAcquireRelease(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "install")

	l, err := Acquire(context.Background(), dir)
	require.NoError(t, err)

	contents, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	require.Equal(t, strconv.Itoa(os.Getpid()), string(contents))

	require.NoError(t, l.Release(context.Background()))

	_, err = os.Stat(l.Path())
	require.ErrorIs(t, err, os.ErrNotExist)

	// Releasing twice is harmless.
	require.NoError(t, l.Release(context.Background()))
}

// TestAcquire_HeldByLiveProcess refuses while the owner runs.
func TestAcquire_HeldByLiveProcess(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	l, err := Acquire(context.Background(), dir)
	require.NoError(t, err)

	defer func() {
		_ = l.Release(context.Background())
	}()

	_, err = Acquire(context.Background(), dir)
	require.ErrorIs(t, err, ErrInstallRunning)
}

// TestAcquire_StaleLock replaces locks whose owner is gone or unreadable.
func TestAcquire_StaleLock(t *testing.T) {
	t.Parallel()

	for _, contents := range []string{"99999999", "not-a-pid", ""} {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, Filename), []byte(contents), 0o644))

		l, err := Acquire(context.Background(), dir)
		require.NoError(t, err, contents)
		require.NoError(t, l.Release(context.Background()))
	}
}

// TestAcquire_Unwritable reports an install root that cannot be created.
func TestAcquire_Unwritable(t *testing.T) {
	t.Parallel()

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := Acquire(context.Background(), filepath.Join(blocker, "install"))
	require.ErrorIs(t, err, install.ErrDestinationUnwritable)
}

// TestRemoveStale deletes the lock only while it still holds the stale contents.
func TestRemoveStale(t *testing.T) {
	t.Parallel()

	t.Run("unchanged", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), Filename)
		require.NoError(t, os.WriteFile(path, []byte("99999999"), 0o644))

		require.NoError(t, removeStale(path, []byte("99999999")))

		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		require.Empty(t, entries)
	})

	t.Run("replaced by another install", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), Filename)
		fresh := strconv.Itoa(os.Getpid())
		require.NoError(t, os.WriteFile(path, []byte(fresh), 0o644))

		err := removeStale(path, []byte("99999999"))
		require.ErrorIs(t, err, errLockReplaced)

		contents, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, fresh, string(contents))

		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		require.Len(t, entries, 1)
	})

	t.Run("already gone", func(t *testing.T) {
		t.Parallel()

		require.NoError(t, removeStale(filepath.Join(t.TempDir(), Filename), nil))
	})
}
