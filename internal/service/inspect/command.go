package inspect

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"

	"github.com/oshokin/rez-install/internal/config"
	"github.com/oshokin/rez-install/internal/logger"
	"github.com/oshokin/rez-install/internal/manifest"
	"github.com/oshokin/rez-install/internal/service/discovery"
)

// Options contains inputs for the inspect entry points.
type Options struct {
	ConfigPath   string
	ManifestPath string
	// Fs is the source filesystem, the OS filesystem when nil.
	Fs afero.Fs
}

// ListFiles discovers every directive of the manifest and prints the matches.
func ListFiles(ctx context.Context, opts *Options, w io.Writer) error {
	ctx = logger.WithName(ctx, "inspect")

	if opts == nil {
		opts = &Options{}
	}

	m, err := load(opts)
	if err != nil {
		return err
	}

	for i, d := range m.Directives() {
		set, err := discovery.Discover(ctx, opts.Fs, d.Root, d.Pattern)
		if err != nil {
			return fmt.Errorf("discover #%d (%s): %w", i+1, d.Root, err)
		}

		pattern := d.Pattern
		if pattern == "" {
			pattern = "*"
		}

		if _, err = fmt.Fprintf(w, "# %s (%s) -> %s: %d file(s)\n", d.Root, pattern, d.Destination, set.Len()); err != nil {
			return err
		}

		for _, e := range set.Sorted() {
			if _, err = fmt.Fprintln(w, e.Rel); err != nil {
				return err
			}
		}
	}

	return nil
}

// Describe prints the package metadata and parsed requirements.
func Describe(ctx context.Context, opts *Options, w io.Writer) error {
	ctx = logger.WithName(ctx, "inspect")

	if opts == nil {
		opts = &Options{}
	}

	m, err := load(opts)
	if err != nil {
		return err
	}

	reqs, err := m.Requirements()
	if err != nil {
		return err
	}

	var b strings.Builder

	fmt.Fprintf(&b, "name:    %s\n", m.Name)
	fmt.Fprintf(&b, "version: %s\n", m.Version)

	if len(m.Authors) > 0 {
		fmt.Fprintf(&b, "authors: %s\n", strings.Join(m.Authors, ", "))
	}

	if len(reqs) > 0 {
		b.WriteString("requires:\n")
	}

	for _, r := range reqs {
		rng := r.Range
		if rng == "" {
			rng = "any"
		}

		var note string

		switch {
		case r.Weak:
			note = " (weak)"
		case r.Conflict:
			note = " (conflict)"
		}

		fmt.Fprintf(&b, "  %s %s%s\n", r.Name, rng, note)
	}

	b.WriteString("install:\n")

	for _, d := range m.Install {
		fmt.Fprintf(&b, "  %s/%s -> %s\n", d.Root, d.Pattern, d.Destination)
	}

	logger.DebugKV(ctx, "Described manifest", "manifest", m.Name)

	_, err = io.WriteString(w, b.String())

	return err
}

func load(opts *Options) (*manifest.Manifest, error) {
	cfg, err := config.LoadWithOverrides(opts.ConfigPath, &config.Overrides{ManifestPath: opts.ManifestPath})
	if err != nil {
		return nil, err
	}

	m, err := manifest.Load(cfg.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}

	return m, nil
}
