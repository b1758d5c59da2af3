package receipt

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/rez-install/internal/domain/install"
)

// TestFileRepository_NotFound verifies Load returns ErrNotFound for missing file.
func TestFileRepository_NotFound(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), "missing.receipt.yaml"))
	r, err := repo.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, r)
}

// TestFileRepository_SaveLoad ensures Save followed by Load returns the same receipt.
func TestFileRepository_SaveLoad(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	repo := NewFileRepository(PathFor(root, "rbl_pipe_houdini", "2.1.0"))

	want := install.NewReceipt("rbl_pipe_houdini", "2.1.0", root)
	want.InstalledAt = time.Now().UTC().Truncate(time.Second)
	want.InstalledBy = &install.Actor{Hostname: "render-01", Username: "gnisbet"}
	want.Files["rbl_pipe_houdini/lib/python/rbl_pipe_houdini/__init__.py"] = "c2hhNTEy"

	require.NoError(t, repo.Save(context.Background(), want))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, want.Package, got.Package)
	require.Equal(t, want.Version, got.Version)
	require.True(t, want.InstalledAt.Equal(got.InstalledAt))
	require.Equal(t, want.InstalledBy, got.InstalledBy)
	require.Equal(t, want.Files, got.Files)
}

// TestPathFor names receipts after the package and version.
func TestPathFor(t *testing.T) {
	t.Parallel()

	require.Equal(t, filepath.Join("root", "pkg-1.0.receipt.yaml"), PathFor("root", "pkg", "1.0"))
	require.Equal(t, filepath.Join("root", "pkg.receipt.yaml"), PathFor("root", "pkg", ""))
}
