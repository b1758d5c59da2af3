package installer

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"github.com/oshokin/rez-install/internal/config"
	"github.com/oshokin/rez-install/internal/domain/install"
	"github.com/oshokin/rez-install/internal/logger"
	"github.com/oshokin/rez-install/internal/manifest"
	"github.com/oshokin/rez-install/internal/repository/receipt"
	"github.com/oshokin/rez-install/internal/service/common"
	"github.com/oshokin/rez-install/internal/service/discovery"
	"github.com/oshokin/rez-install/internal/service/lock"
)

// Options contains inputs for the install entry point.
// Empty fields fall back to the settings file.
type Options struct {
	// ConfigPath is the settings file; a missing file means defaults.
	ConfigPath string
	// ManifestPath overrides the manifest named in the settings.
	ManifestPath string
	// InstallRoot overrides the directory destinations are created in.
	InstallRoot string
	// Layout overrides the target layout.
	Layout string
	// DryRun logs the plan without writing anything.
	DryRun bool
	// SkipReceipt disables the receipt even if settings enable it.
	SkipReceipt bool
	// Fs is the source filesystem, the OS filesystem when nil.
	Fs afero.Fs
}

// Summary describes a finished run.
type Summary struct {
	// InstallRoot is the absolute directory destinations were created in.
	InstallRoot string
	// Results holds one entry per directive, in manifest order.
	Results []*Result
	// ReceiptPath is where the receipt was written, empty when none was.
	ReceiptPath string
}

// runner holds the state of one install run.
// It is unexported: callers use Run.
type runner struct {
	cfg         *config.Config
	manifest    *manifest.Manifest
	installRoot string
	fs          afero.Fs
	dryRun      bool
	receipt     *install.Receipt
}

// pendingDirective is a discovered directive waiting to be installed.
type pendingDirective struct {
	index       int
	directive   install.Directive
	set         *install.FileSet
	destination string
}

// Run installs every directive of the manifest.
func Run(ctx context.Context, opts *Options) (*Summary, error) {
	ctx = logger.WithName(ctx, "installer")

	r, err := newRunner(opts)
	if err != nil {
		return nil, err
	}

	ctx = logger.WithKV(ctx, "package", r.manifest.Name)

	if r.dryRun {
		return r.run(ctx)
	}

	l, err := lock.Acquire(ctx, r.installRoot)
	if err != nil {
		return nil, err
	}

	defer func() {
		if releaseErr := l.Release(ctx); releaseErr != nil {
			logger.WarnKV(ctx, "Unable to release install lock", "error", releaseErr)
		}
	}()

	return r.run(ctx)
}

// newRunner resolves settings, flag overrides and the manifest.
func newRunner(opts *Options) (*runner, error) {
	if opts == nil {
		opts = &Options{}
	}

	cfg, err := config.LoadWithOverrides(opts.ConfigPath, &config.Overrides{
		ManifestPath: opts.ManifestPath,
		InstallRoot:  opts.InstallRoot,
		Layout:       opts.Layout,
	})
	if err != nil {
		return nil, err
	}

	m, err := manifest.Load(cfg.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}

	root, err := filepath.Abs(cfg.InstallRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve install root: %w", err)
	}

	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	if opts.SkipReceipt {
		cfg.SkipReceipt = true
	}

	return &runner{
		cfg:         cfg,
		manifest:    m,
		installRoot: root,
		fs:          fs,
		dryRun:      opts.DryRun,
		receipt:     install.NewReceipt(m.Name, m.Version, root),
	}, nil
}

// run discovers and installs each directive in order, then writes the receipt.
func (r *runner) run(ctx context.Context) (*Summary, error) {
	summary := &Summary{InstallRoot: r.installRoot}

	logger.InfoKV(ctx, "Installing package",
		"version", r.manifest.Version,
		"install_root", r.installRoot,
		"layout", r.cfg.Layout,
		"dry_run", r.dryRun,
	)

	queue, err := r.discoverAll(ctx)
	if err != nil {
		return summary, err
	}

	if err = r.checkCollisions(queue); err != nil {
		return summary, err
	}

	var total int64

	for _, p := range queue {
		dctx := logger.WithKV(ctx, "directive", p.index)

		result, installErr := Install(dctx, p.set, p.destination, r.installOptions())
		if installErr != nil {
			return summary, fmt.Errorf("install #%d (%s): %w", p.index, p.directive.Root, installErr)
		}

		summary.Results = append(summary.Results, result)
		total += result.Bytes

		for _, f := range result.Files {
			r.receipt.Files[path.Join(filepath.ToSlash(p.directive.Destination), f.Rel)] = EncodeChecksum(f.Checksum)
		}
	}

	if r.dryRun {
		logger.Info(ctx, "Dry run finished, nothing was written")

		return summary, nil
	}

	if !r.cfg.SkipReceipt {
		receiptPath, saveErr := r.saveReceipt(ctx)
		if saveErr != nil {
			return summary, saveErr
		}

		summary.ReceiptPath = receiptPath
	}

	logger.InfoKV(ctx, "Install completed", "size", humanize.Bytes(uint64(total))) //nolint:gosec // Sizes are never negative.

	return summary, nil
}

// discoverAll discovers every directive in manifest order.
func (r *runner) discoverAll(ctx context.Context) ([]pendingDirective, error) {
	directives := r.manifest.Directives()
	queue := make([]pendingDirective, 0, len(directives))

	for i, d := range directives {
		set, err := discovery.Discover(logger.WithKV(ctx, "directive", i+1), r.fs, d.Root, d.Pattern)
		if err != nil {
			return nil, fmt.Errorf("install #%d (%s): %w", i+1, d.Root, err)
		}

		queue = append(queue, pendingDirective{
			index:       i + 1,
			directive:   d,
			set:         set,
			destination: filepath.Join(r.installRoot, filepath.FromSlash(d.Destination)),
		})
	}

	return queue, nil
}

// checkCollisions plans every directive and rejects targets claimed twice,
// so nothing is copied when two directives would overwrite each other.
func (r *runner) checkCollisions(queue []pendingDirective) error {
	type claim struct {
		source string
		index  int
	}

	claimed := make(map[string]claim)

	for _, p := range queue {
		plan, err := planTargets(p.set, p.destination, r.installOptions())
		if err != nil {
			return fmt.Errorf("install #%d (%s): %w", p.index, p.directive.Root, err)
		}

		for _, f := range plan {
			if previous, ok := claimed[f.target]; ok {
				return fmt.Errorf("%w: %s (install #%d) and %s (install #%d) both install to %s",
					install.ErrTargetCollision, previous.source, previous.index, f.entry.Source, p.index, f.target)
			}

			claimed[f.target] = claim{source: f.entry.Source, index: p.index}
		}
	}

	return nil
}

// installOptions returns the per-directive options of this run.
func (r *runner) installOptions() *InstallOptions {
	return &InstallOptions{
		Layout: r.cfg.Layout,
		Base:   r.manifest.Dir,
		DryRun: r.dryRun,
	}
}

// saveReceipt stamps and persists the receipt next to the destinations.
func (r *runner) saveReceipt(ctx context.Context) (string, error) {
	actor, err := common.DetectActor()
	if err != nil {
		// The receipt is still useful without an actor.
		logger.WarnKV(ctx, "Unable to detect actor", "error", err)
	}

	r.receipt.InstalledBy = actor
	r.receipt.InstalledAt = time.Now().UTC()

	repo := receipt.NewFileRepository(receipt.PathFor(r.installRoot, r.manifest.Name, r.manifest.Version))
	if err = repo.Save(ctx, r.receipt); err != nil {
		return "", fmt.Errorf("save receipt: %w", err)
	}

	logger.InfoKV(ctx, "Saved install receipt", "path", repo.Path())

	return repo.Path(), nil
}
