package verifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/oshokin/rez-install/internal/config"
	"github.com/oshokin/rez-install/internal/domain/install"
	"github.com/oshokin/rez-install/internal/logger"
	"github.com/oshokin/rez-install/internal/manifest"
	"github.com/oshokin/rez-install/internal/repository/receipt"
	"github.com/oshokin/rez-install/internal/service/installer"
)

// ErrVerificationFailed is returned when any installed file is missing or modified.
var ErrVerificationFailed = errors.New("verification failed")

// Problem kinds.
const (
	ProblemMissing  = "missing"
	ProblemModified = "modified"
	ProblemInvalid  = "invalid checksum"
)

// Problem is one file that does not match its receipt entry.
type Problem struct {
	// Path is the slash-separated path relative to the install root.
	Path string
	// Kind is one of the Problem constants.
	Kind string
}

// Options contains inputs for the verify entry point.
type Options struct {
	ConfigPath   string
	ManifestPath string
	InstallRoot  string
}

// Run loads the receipt of the manifest's package and verifies it.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "verifier")

	if opts == nil {
		opts = &Options{}
	}

	cfg, err := config.LoadWithOverrides(opts.ConfigPath, &config.Overrides{
		ManifestPath: opts.ManifestPath,
		InstallRoot:  opts.InstallRoot,
	})
	if err != nil {
		return err
	}

	m, err := manifest.Load(cfg.ManifestPath)
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}

	root, err := filepath.Abs(cfg.InstallRoot)
	if err != nil {
		return fmt.Errorf("resolve install root: %w", err)
	}

	repo := receipt.NewFileRepository(receipt.PathFor(root, m.Name, m.Version))

	r, err := repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load receipt %s: %w", repo.Path(), err)
	}

	problems, err := Verify(ctx, root, r)
	if err != nil {
		return err
	}

	if len(problems) == 0 {
		logger.InfoKV(ctx, "All installed files match the receipt", "files", len(r.Files))

		return nil
	}

	lines := make([]string, 0, len(problems))
	for _, p := range problems {
		lines = append(lines, p.Kind+": "+p.Path)
	}

	return fmt.Errorf("%w: %d of %d files:\n%s", ErrVerificationFailed, len(problems), len(r.Files), strings.Join(lines, "\n"))
}

// Verify re-hashes every receipt file under root and returns the mismatches in path order.
func Verify(ctx context.Context, root string, r *install.Receipt) ([]Problem, error) {
	paths := make([]string, 0, len(r.Files))
	for p := range r.Files {
		paths = append(paths, p)
	}

	sort.Strings(paths)

	var problems []Problem

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		want, err := installer.DecodeChecksum(r.Files[p])
		if err != nil {
			problems = append(problems, Problem{Path: p, Kind: ProblemInvalid})
			continue
		}

		got, err := installer.FileChecksum(filepath.Join(root, filepath.FromSlash(p)))

		switch {
		case errors.Is(err, os.ErrNotExist):
			problems = append(problems, Problem{Path: p, Kind: ProblemMissing})
		case err != nil:
			return nil, fmt.Errorf("%w: %s: %w", install.ErrSourceUnreadable, p, err)
		case !bytes.Equal(want, got):
			problems = append(problems, Problem{Path: p, Kind: ProblemModified})
		default:
			logger.DebugKV(ctx, "Verified file", "path", p)
		}
	}

	return problems, nil
}
