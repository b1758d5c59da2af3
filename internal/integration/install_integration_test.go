package integration

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/rez-install/internal/config"
	"github.com/oshokin/rez-install/internal/domain/install"
	"github.com/oshokin/rez-install/internal/repository/receipt"
	"github.com/oshokin/rez-install/internal/service/environ"
	"github.com/oshokin/rez-install/internal/service/installer"
	"github.com/oshokin/rez-install/internal/service/lock"
	"github.com/oshokin/rez-install/internal/service/verifier"
)

// fixture is a package source tree plus an empty install root.
type fixture struct {
	src         string
	installRoot string
	settings    string
}

// newFixture writes the manifest and files (slash-separated names) into a fresh source tree.
func newFixture(t *testing.T, manifest string, files map[string]string) *fixture {
	t.Helper()

	base := t.TempDir()
	f := &fixture{
		src:         filepath.Join(base, "src"),
		installRoot: filepath.Join(base, "packages"),
		settings:    filepath.Join(base, config.DefaultConfigFilename),
	}

	files["package.yaml"] = manifest

	for name, contents := range files {
		path := filepath.Join(f.src, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	}

	return f
}

// options returns installer options pointing at the fixture.
func (f *fixture) options(layout string) *installer.Options {
	return &installer.Options{
		ConfigPath:   f.settings,
		ManifestPath: filepath.Join(f.src, "package.yaml"),
		InstallRoot:  f.installRoot,
		Layout:       layout,
	}
}

// tree lists every file under dir as sorted slash-separated relative paths.
func tree(t *testing.T, dir string) []string {
	t.Helper()

	var out []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			rel, relErr := filepath.Rel(dir, path)
			require.NoError(t, relErr)

			out = append(out, filepath.ToSlash(rel))
		}

		return nil
	})
	require.NoError(t, err)

	sort.Strings(out)

	return out
}

const houdiniManifest = `
name: rbl_pipe_houdini
version: 2.1.0
requires:
  - ~houdini-19+
  - rbl_pipe_core-0.11+<1
`

// TestInstall_ThreeFiles installs two Python files and one config file.
func TestInstall_ThreeFiles(t *testing.T) {
	t.Parallel()

	f := newFixture(t, houdiniManifest, map[string]string{
		"lib/python/pkg/a.py":     "a = 1\n",
		"lib/python/pkg/sub/b.py": "b = 2\n",
		"config/settings.json":    "{}",
	})

	summary, err := installer.Run(context.Background(), f.options("flat"))
	require.NoError(t, err)
	require.Len(t, summary.Results, 2)

	require.Equal(t, []string{"a.py", "b.py", "settings.json"}, tree(t, filepath.Join(f.installRoot, "rbl_pipe_houdini")))

	// Only the receipt sits next to the destination; the lock is gone.
	require.Equal(t, receipt.PathFor(f.installRoot, "rbl_pipe_houdini", "2.1.0"), summary.ReceiptPath)
	_, err = os.Stat(filepath.Join(f.installRoot, lock.Filename))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestInstall_EmptyConfig installs only the Python files without error.
func TestInstall_EmptyConfig(t *testing.T) {
	t.Parallel()

	f := newFixture(t, houdiniManifest, map[string]string{
		"lib/python/pkg/a.py":     "",
		"lib/python/pkg/sub/b.py": "",
	})
	require.NoError(t, os.MkdirAll(filepath.Join(f.src, "config"), 0o755))

	summary, err := installer.Run(context.Background(), f.options(""))
	require.NoError(t, err)
	require.Empty(t, summary.Results[1].Files)

	require.Equal(t, []string{
		"lib/python/pkg/a.py",
		"lib/python/pkg/sub/b.py",
	}, tree(t, filepath.Join(f.installRoot, "rbl_pipe_houdini")))
}

// TestInstall_RerunIsIdempotent produces the same destination and a clean verify.
func TestInstall_RerunIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, houdiniManifest, map[string]string{
		"lib/python/rbl_pipe_houdini/__init__.py":       "",
		"lib/python/rbl_pipe_houdini/shotgun/sgmenu.py": "MENU = []\n",
		"config/houdini/MainMenuCommon.xml":             "<mainMenu/>",
	})

	dest := filepath.Join(f.installRoot, "rbl_pipe_houdini")

	_, err := installer.Run(context.Background(), f.options(""))
	require.NoError(t, err)

	first := tree(t, dest)
	require.Equal(t, []string{
		"config/houdini/MainMenuCommon.xml",
		"lib/python/rbl_pipe_houdini/__init__.py",
		"lib/python/rbl_pipe_houdini/shotgun/sgmenu.py",
	}, first)

	summary, err := installer.Run(context.Background(), f.options(""))
	require.NoError(t, err)
	require.Equal(t, first, tree(t, dest))

	for _, r := range summary.Results {
		require.Zero(t, r.Copied)
	}

	verifyOpts := &verifier.Options{
		ConfigPath:   f.settings,
		ManifestPath: filepath.Join(f.src, "package.yaml"),
		InstallRoot:  f.installRoot,
	}
	require.NoError(t, verifier.Run(context.Background(), verifyOpts))

	// Tampering is reported.
	require.NoError(t, os.WriteFile(filepath.Join(dest, "lib", "python", "rbl_pipe_houdini", "__init__.py"), []byte("x"), 0o644))

	err = verifier.Run(context.Background(), verifyOpts)
	require.ErrorIs(t, err, verifier.ErrVerificationFailed)
	require.Contains(t, err.Error(), "modified: rbl_pipe_houdini/lib/python/rbl_pipe_houdini/__init__.py")
}

// TestInstall_SecondDestinationUnwritable keeps the first directive and copies nothing of the second.
func TestInstall_SecondDestinationUnwritable(t *testing.T) {
	t.Parallel()

	f := newFixture(t, `
name: rbl_pipe_houdini
install:
  - root: lib/python
    pattern: "*.py"
  - root: config
    destination: blocked/rbl_pipe_houdini
`, map[string]string{
		"lib/python/pkg/a.py":  "",
		"config/settings.json": "{}",
	})

	require.NoError(t, os.MkdirAll(f.installRoot, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.installRoot, "blocked"), nil, 0o644))

	_, err := installer.Run(context.Background(), f.options(""))
	require.ErrorIs(t, err, install.ErrDestinationUnwritable)
	require.Contains(t, err.Error(), "install #2")

	require.Equal(t, []string{
		"blocked",
		"rbl_pipe_houdini/lib/python/pkg/a.py",
	}, tree(t, f.installRoot))
}

// TestInstall_CollisionAcrossDirectives rejects two directives writing the same target before copying anything.
func TestInstall_CollisionAcrossDirectives(t *testing.T) {
	t.Parallel()

	for _, layout := range []string{"flat", "root"} {
		layout := layout
		t.Run(layout, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, houdiniManifest, map[string]string{
				"lib/python/a.py": "PYTHON",
				"config/a.py":     "CONFIG",
			})

			_, err := installer.Run(context.Background(), f.options(layout))
			require.ErrorIs(t, err, install.ErrTargetCollision)
			require.Contains(t, err.Error(), "install #1")
			require.Contains(t, err.Error(), "install #2")

			// Nothing was copied and no receipt was written.
			require.Empty(t, tree(t, f.installRoot))
		})
	}
}

// TestInstall_LockHeld refuses to run while another install owns the root.
func TestInstall_LockHeld(t *testing.T) {
	t.Parallel()

	f := newFixture(t, houdiniManifest, map[string]string{"config/a.txt": "a"})

	held, err := lock.Acquire(context.Background(), f.installRoot)
	require.NoError(t, err)

	defer func() {
		_ = held.Release(context.Background())
	}()

	_, err = installer.Run(context.Background(), f.options(""))
	require.ErrorIs(t, err, lock.ErrInstallRunning)
}

// TestInstall_DryRunAndEnv plans without writing and renders PYTHONPATH for the install root.
func TestInstall_DryRunAndEnv(t *testing.T) {
	t.Parallel()

	f := newFixture(t, houdiniManifest, map[string]string{"lib/python/pkg/a.py": ""})

	opts := f.options("")
	opts.DryRun = true

	summary, err := installer.Run(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, summary.Results[0].Files, 1)
	require.Empty(t, summary.ReceiptPath)

	_, err = os.Stat(f.installRoot)
	require.ErrorIs(t, err, os.ErrNotExist)

	var out strings.Builder

	err = environ.Run(context.Background(), &environ.Options{
		ConfigPath:   f.settings,
		ManifestPath: filepath.Join(f.src, "package.yaml"),
		InstallRoot:  f.installRoot,
	}, &out)
	require.NoError(t, err)
	require.Contains(t, out.String(),
		"export PYTHONPATH='"+filepath.ToSlash(f.installRoot)+"/rbl_pipe_houdini/lib/python")
}

// TestInstall_SettingsFile reads layout and receipt policy from the settings file.
func TestInstall_SettingsFile(t *testing.T) {
	t.Parallel()

	f := newFixture(t, houdiniManifest, map[string]string{"lib/python/pkg/a.py": ""})

	require.NoError(t, config.Save(f.settings, &config.Config{
		InstallRoot: f.installRoot,
		Layout:      install.LayoutRoot,
		SkipReceipt: true,
	}))

	summary, err := installer.Run(context.Background(), &installer.Options{
		ConfigPath:   f.settings,
		ManifestPath: filepath.Join(f.src, "package.yaml"),
	})
	require.NoError(t, err)
	require.Empty(t, summary.ReceiptPath)
	require.Equal(t, []string{"rbl_pipe_houdini/pkg/a.py"}, tree(t, f.installRoot))
}
