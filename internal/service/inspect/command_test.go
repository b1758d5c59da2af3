package inspect

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// newPackage writes a manifest and a small source tree, returning the manifest path.
func newPackage(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()

	files := map[string]string{
		"package.yaml": "name: rbl_pipe_houdini\nversion: 2.1.0\nauthors: [Jonathan Cox, Gary Nisbet]\n" +
			"requires: ['~houdini-19+', 'rbl_pipe_usd-0.13+<1', 'python']\n",
		"lib/python/rbl_pipe_houdini/__init__.py":       "",
		"lib/python/rbl_pipe_houdini/shotgun/sgmenu.py": "",
		"config/shelf.json":                             "{}",
	}

	for name, contents := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	}

	return filepath.Join(dir, "package.yaml")
}

// TestListFiles prints both directives with their matches.
func TestListFiles(t *testing.T) {
	t.Parallel()

	path := newPackage(t)

	var out bytes.Buffer

	opts := &Options{ConfigPath: filepath.Join(t.TempDir(), "none.yaml"), ManifestPath: path}
	require.NoError(t, ListFiles(context.Background(), opts, &out))

	text := out.String()
	require.Contains(t, text, "(*.py) -> rbl_pipe_houdini: 2 file(s)")
	require.Contains(t, text, "rbl_pipe_houdini/shotgun/sgmenu.py\n")
	require.Contains(t, text, "(*) -> rbl_pipe_houdini: 1 file(s)")
	require.Contains(t, text, "shelf.json\n")
}

// TestDescribe prints metadata and annotated requirements.
func TestDescribe(t *testing.T) {
	t.Parallel()

	path := newPackage(t)

	var out bytes.Buffer

	opts := &Options{ConfigPath: filepath.Join(t.TempDir(), "none.yaml"), ManifestPath: path}
	require.NoError(t, Describe(context.Background(), opts, &out))

	text := out.String()
	require.Contains(t, text, "name:    rbl_pipe_houdini\n")
	require.Contains(t, text, "authors: Jonathan Cox, Gary Nisbet\n")
	require.Contains(t, text, "  houdini 19+ (weak)\n")
	require.Contains(t, text, "  rbl_pipe_usd 0.13+<1\n")
	require.Contains(t, text, "  python any\n")
	require.Contains(t, text, "  lib/python/*.py -> rbl_pipe_houdini\n")
}
