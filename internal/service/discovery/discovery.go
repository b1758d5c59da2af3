package discovery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/oshokin/rez-install/internal/domain/install"
	"github.com/oshokin/rez-install/internal/logger"
)

// Discover returns every file under root whose relative path matches pattern.
func Discover(ctx context.Context, fs afero.Fs, root, pattern string) (*install.FileSet, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}

	matcher, err := CompilePattern(pattern)
	if err != nil {
		return nil, err
	}

	set := &install.FileSet{
		Fs:      fs,
		Root:    filepath.Clean(root),
		Pattern: matcher.String(),
	}

	info, err := fs.Stat(set.Root)

	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.InfoKV(ctx, "Root does not exist, nothing to discover", "root", set.Root)

		return set, nil
	case err != nil:
		return nil, fmt.Errorf("%w: stat %s: %w", install.ErrSourceUnreadable, set.Root, err)
	case !info.IsDir():
		logger.WarnKV(ctx, "Root is not a directory, nothing to discover", "root", set.Root)

		return set, nil
	}

	err = afero.Walk(fs, set.Root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("%w: %s: %w", install.ErrSourceUnreadable, path, walkErr)
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if info.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(set.Root, path)
		if relErr != nil {
			return relErr
		}

		rel = filepath.ToSlash(rel)
		if !matcher.Match(rel) {
			return nil
		}

		size, ok := regularFileSize(fs, path, info)
		if !ok {
			logger.DebugKV(ctx, "Skipping non-regular file", "path", path)
			return nil
		}

		set.Entries = append(set.Entries, install.Entry{
			Source: path,
			Rel:    rel,
			Size:   size,
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	if set.IsEmpty() {
		logger.InfoKV(ctx, "No files matched", "root", set.Root, "pattern", set.Pattern)
	} else {
		logger.InfoKV(ctx, "Discovered files", "root", set.Root, "pattern", set.Pattern, "count", set.Len())
	}

	return set, nil
}

// regularFileSize resolves symlinks to files and rejects everything else.
func regularFileSize(fs afero.Fs, path string, info os.FileInfo) (int64, bool) {
	if info.Mode().IsRegular() {
		return info.Size(), true
	}

	if info.Mode()&os.ModeSymlink == 0 {
		return 0, false
	}

	target, err := fs.Stat(path)
	if err != nil || !target.Mode().IsRegular() {
		return 0, false
	}

	return target.Size(), true
}
