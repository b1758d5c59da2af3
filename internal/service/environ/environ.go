package environ

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/rez-install/internal/config"
	"github.com/oshokin/rez-install/internal/logger"
	"github.com/oshokin/rez-install/internal/manifest"
)

// Export is the final value of one variable.
type Export struct {
	Variable string
	Value    string
}

// LookupFunc returns the current value of a variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Options contains inputs for the env entry point.
type Options struct {
	ConfigPath   string
	ManifestPath string
	InstallRoot  string
}

// Render applies the manifest environment on top of lookup.
// Exports are returned in order of first appearance.
func Render(m *manifest.Manifest, installRoot string, lookup LookupFunc) []Export {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	replacer := strings.NewReplacer(
		"{root}", filepath.ToSlash(installRoot),
		"{name}", m.Name,
		"{version}", m.Version,
	)

	values := make(map[string]string, len(m.Environment))
	order := make([]string, 0, len(m.Environment))

	for _, op := range m.Environment {
		current, seen := values[op.Variable]
		if !seen {
			current, _ = lookup(op.Variable)
			order = append(order, op.Variable)
		}

		value := replacer.Replace(op.Value)

		switch op.Action {
		case manifest.ActionPrepend:
			values[op.Variable] = joinList(value, current)
		case manifest.ActionAppend:
			values[op.Variable] = joinList(current, value)
		default:
			values[op.Variable] = value
		}
	}

	exports := make([]Export, 0, len(order))
	for _, name := range order {
		exports = append(exports, Export{Variable: name, Value: values[name]})
	}

	return exports
}

// Write prints exports as POSIX shell statements.
func Write(w io.Writer, exports []Export) error {
	for _, e := range exports {
		if _, err := fmt.Fprintf(w, "export %s=%s\n", e.Variable, quote(e.Value)); err != nil {
			return err
		}
	}

	return nil
}

// Run loads the manifest and writes its environment to w.
func Run(ctx context.Context, opts *Options, w io.Writer) error {
	ctx = logger.WithName(ctx, "environ")

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

	exports := Render(m, root, os.LookupEnv)
	logger.DebugKV(ctx, "Rendered environment", "variables", len(exports))

	return Write(w, exports)
}

func joinList(first, second string) string {
	switch {
	case first == "":
		return second
	case second == "":
		return first
	default:
		return first + string(os.PathListSeparator) + second
	}
}

// quote wraps s in single quotes for a POSIX shell.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
