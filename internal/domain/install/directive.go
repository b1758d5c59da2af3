package install

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// Directive declares that files matching Pattern under Root go to Destination.
type Directive struct {
	// Root is the directory to search, relative to the manifest directory unless absolute.
	Root string `yaml:"root" hcl:"root"`
	// Pattern is the glob every installed file must match.
	Pattern string `yaml:"pattern" hcl:"pattern,optional"`
	// Destination is the directory name inside the install root.
	Destination string `yaml:"destination" hcl:"destination,optional"`
}

// Layout selects how a discovered file's target path is derived.
type Layout string

const (
	// LayoutRelative keeps the path relative to the manifest directory.
	LayoutRelative Layout = "relative"
	// LayoutRoot keeps the path relative to the directive root.
	LayoutRoot Layout = "root"
	// LayoutFlat keeps only the base name.
	LayoutFlat Layout = "flat"
)

var (
	// ErrUnknownLayout is returned for a layout name that is not supported.
	ErrUnknownLayout = errors.New("unknown layout")
	// ErrInvalidDestination is returned for an empty, absolute or escaping destination.
	ErrInvalidDestination = errors.New("invalid destination")
	// ErrPathEscapes is returned when a relative layout would place a file outside its destination.
	ErrPathEscapes = errors.New("path escapes destination")
)

// ParseLayout converts a name to a Layout. The empty string yields LayoutRelative.
func ParseLayout(s string) (Layout, error) {
	switch l := Layout(strings.ToLower(strings.TrimSpace(s))); l {
	case "":
		return LayoutRelative, nil
	case LayoutRelative, LayoutRoot, LayoutFlat:
		return l, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownLayout, s)
	}
}

// ValidateDestination checks that dest is a clean relative path staying inside the install root.
func ValidateDestination(dest string) error {
	if strings.TrimSpace(dest) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidDestination)
	}

	slashed := filepath.ToSlash(dest)
	if path.IsAbs(slashed) || filepath.IsAbs(dest) || filepath.VolumeName(dest) != "" {
		return fmt.Errorf("%w: %q is absolute", ErrInvalidDestination, dest)
	}

	cleaned := path.Clean(slashed)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return fmt.Errorf("%w: %q leaves the install root", ErrInvalidDestination, dest)
	}

	return nil
}

// TargetRel returns the slash-separated path of the entry inside its destination.
// base is the manifest directory and is only used by LayoutRelative.
func (l Layout) TargetRel(base string, set *FileSet, e Entry) (string, error) {
	switch l {
	case LayoutFlat:
		return e.Name(), nil
	case LayoutRoot:
		return e.Rel, nil
	case LayoutRelative, "":
		rel, err := filepath.Rel(base, filepath.Join(set.Root, filepath.FromSlash(e.Rel)))
		if err != nil {
			return "", fmt.Errorf("%s: %w", e.Source, err)
		}

		rel = filepath.ToSlash(rel)
		if rel == ".." || strings.HasPrefix(rel, "../") {
			return "", fmt.Errorf("%s relative to %s: %w", e.Source, base, ErrPathEscapes)
		}

		return rel, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownLayout, string(l))
	}
}
