package installer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"github.com/oshokin/rez-install/internal/domain/install"
	"github.com/oshokin/rez-install/internal/logger"
)

const (
	// defaultDirMode is used for every directory created under a destination.
	defaultDirMode os.FileMode = 0o755

	// probePattern names the temporary file used to check a destination is writable.
	probePattern = ".rez-install-probe-*"
)

// InstallOptions tune a single Install call.
type InstallOptions struct {
	// Layout controls how target paths are derived.
	Layout install.Layout
	// Base is the manifest directory used by install.LayoutRelative.
	Base string
	// DryRun plans and logs without touching the filesystem.
	DryRun bool
}

// InstalledFile is one file placed in a destination.
type InstalledFile struct {
	// Target is the absolute path of the installed file.
	Target string
	// Rel is the slash-separated path of the file inside the destination.
	Rel string
	// Checksum is the SHA-512 of the installed content.
	Checksum []byte
	// Skipped reports that the target already had this content.
	Skipped bool
}

// Result summarizes one Install call.
type Result struct {
	// Destination is the directory files were installed into.
	Destination string
	// Files lists every planned target in install order.
	Files []InstalledFile
	// Copied counts files written.
	Copied int
	// Skipped counts files left untouched because their content matched.
	Skipped int
	// Bytes is the total size of the written files.
	Bytes int64
}

// plannedFile ties a source entry to its target.
type plannedFile struct {
	entry  install.Entry
	rel    string
	target string
}

// Install copies every file of set into destination.
// An empty set is a no-op and creates nothing.
func Install(ctx context.Context, set *install.FileSet, destination string, opts *InstallOptions) (*Result, error) {
	if opts == nil {
		opts = &InstallOptions{}
	}

	result := &Result{Destination: destination}

	if set.IsEmpty() {
		logger.InfoKV(ctx, "Nothing to install", "destination", destination)

		return result, nil
	}

	plan, err := planTargets(set, destination, opts)
	if err != nil {
		return nil, err
	}

	if opts.DryRun {
		for _, p := range plan {
			logger.InfoKV(ctx, "Would install", "source", p.entry.Source, "target", p.target)
			result.Files = append(result.Files, InstalledFile{Target: p.target, Rel: p.rel})
		}

		return result, nil
	}

	if err = ensureWritable(destination); err != nil {
		return nil, err
	}

	fs := set.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	for _, p := range plan {
		if err = ctx.Err(); err != nil {
			return result, err
		}

		file, written, copyErr := copyFile(ctx, fs, p)
		if copyErr != nil {
			return result, copyErr
		}

		result.Files = append(result.Files, file)

		if file.Skipped {
			result.Skipped++
		} else {
			result.Copied++
			result.Bytes += written
		}
	}

	logger.InfoKV(ctx, "Installed files",
		"destination", destination,
		"copied", result.Copied,
		"unchanged", result.Skipped,
		"size", humanize.Bytes(uint64(result.Bytes)), //nolint:gosec // Sizes are never negative.
	)

	return result, nil
}

// planTargets maps entries to targets in sorted order and rejects collisions.
func planTargets(set *install.FileSet, destination string, opts *InstallOptions) ([]plannedFile, error) {
	entries := set.Sorted()
	plan := make([]plannedFile, 0, len(entries))
	seen := make(map[string]string, len(entries))

	for _, e := range entries {
		rel, err := opts.Layout.TargetRel(opts.Base, set, e)
		if err != nil {
			return nil, err
		}

		if previous, ok := seen[rel]; ok {
			return nil, fmt.Errorf("%w: %s and %s both install to %s", install.ErrTargetCollision, previous, e.Source, rel)
		}

		seen[rel] = e.Source

		plan = append(plan, plannedFile{
			entry:  e,
			rel:    rel,
			target: filepath.Join(destination, filepath.FromSlash(rel)),
		})
	}

	return plan, nil
}

// ensureWritable creates destination and proves a file can be written there.
func ensureWritable(destination string) error {
	if err := os.MkdirAll(destination, defaultDirMode); err != nil {
		return fmt.Errorf("%w: %s: %w", install.ErrDestinationUnwritable, destination, err)
	}

	probe, err := os.CreateTemp(destination, probePattern)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", install.ErrDestinationUnwritable, destination, err)
	}

	return discardProbe(destination, probe)
}

// discardProbe closes and deletes the probe file created in destination.
func discardProbe(destination string, probe *os.File) error {
	if err := errors.Join(probe.Close(), os.Remove(probe.Name())); err != nil {
		return fmt.Errorf("%w: %s: %w", install.ErrDestinationUnwritable, destination, err)
	}

	return nil
}

// copyFile applies one planned file, returning the number of bytes written.
func copyFile(ctx context.Context, fs afero.Fs, p plannedFile) (InstalledFile, int64, error) {
	file := InstalledFile{Target: p.target, Rel: p.rel}

	info, err := fs.Stat(p.entry.Source)
	if err != nil {
		return file, 0, fmt.Errorf("%w: %s: %w", install.ErrSourceUnreadable, p.entry.Source, err)
	}

	data, err := afero.ReadFile(fs, p.entry.Source)
	if err != nil {
		return file, 0, fmt.Errorf("%w: %s: %w", install.ErrSourceUnreadable, p.entry.Source, err)
	}

	file.Checksum, err = Checksum(data)
	if err != nil {
		return file, 0, err
	}

	mode := info.Mode().Perm()

	if existing, sumErr := FileChecksum(p.target); sumErr == nil && bytes.Equal(existing, file.Checksum) {
		if err = syncMode(ctx, p.target, mode); err != nil {
			return file, 0, fmt.Errorf("%w: %s: %w", install.ErrDestinationUnwritable, p.target, err)
		}

		logger.DebugKV(ctx, "Target is up to date", "target", p.target)

		file.Skipped = true

		return file, 0, nil
	}

	if err = apply(p.target, data, file.Checksum, mode); err != nil {
		return file, 0, fmt.Errorf("%w: %s: %w", install.ErrDestinationUnwritable, p.target, err)
	}

	logger.DebugKV(ctx, "Installed file", "source", p.entry.Source, "target", p.target)

	return file, int64(len(data)), nil
}

// syncMode sets the permission bits of an unchanged target to mode when they differ.
func syncMode(ctx context.Context, target string, mode os.FileMode) error {
	info, err := os.Stat(target)
	if err != nil {
		return err
	}

	if info.Mode().Perm() == mode {
		return nil
	}

	logger.DebugKV(ctx, "Updating target mode", "target", target, "from", info.Mode().Perm(), "to", mode)

	return os.Chmod(target, mode)
}

// apply swaps data into target with go-update, verifying the checksum on the way.
func apply(target string, data, checksum []byte, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), defaultDirMode); err != nil {
		return err
	}

	// go-update renames the current target aside, so it has to exist.
	created := false

	if _, err := os.Lstat(target); errors.Is(err, os.ErrNotExist) {
		placeholder, createErr := os.OpenFile(filepath.Clean(target), os.O_CREATE|os.O_WRONLY, mode)
		if createErr != nil {
			return createErr
		}

		if err = placeholder.Close(); err != nil {
			return err
		}

		created = true
	}

	options := goupdate.Options{
		TargetPath: target,
		TargetMode: mode,
		Checksum:   checksum,
		Hash:       DefaultChecksumFunction,
	}

	if err := goupdate.Apply(bytes.NewReader(data), options); err != nil {
		if created {
			_ = os.Remove(target)
		}

		return err
	}

	// Windows hides the replaced file instead of deleting it.
	_ = os.Remove(filepath.Join(filepath.Dir(target), "."+filepath.Base(target)+".old"))

	return nil
}
