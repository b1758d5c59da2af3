package discovery

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/gobwas/glob"
)

// ErrInvalidPattern is returned for a glob that does not compile.
var ErrInvalidPattern = errors.New("invalid pattern")

// Matcher decides whether a slash-separated relative path is part of a FileSet.
type Matcher struct {
	pattern string
	g       glob.Glob
	// baseOnly matches the base name at any depth, like a gitignore pattern without '/'.
	baseOnly bool
	all      bool
}

// CompilePattern builds a Matcher. Empty, "*" and "**" match every file.
func CompilePattern(pattern string) (*Matcher, error) {
	pattern = strings.TrimSpace(pattern)

	m := &Matcher{pattern: pattern}

	switch pattern {
	case "", "*", "**":
		m.all = true

		return m, nil
	}

	trimmed := strings.TrimPrefix(pattern, "/")
	m.baseOnly = !strings.Contains(trimmed, "/")

	g, err := glob.Compile(trimmed, '/')
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidPattern, pattern, err)
	}

	m.g = g

	return m, nil
}

// Match reports whether rel matches.
func (m *Matcher) Match(rel string) bool {
	if m.all {
		return true
	}

	if m.baseOnly {
		return m.g.Match(path.Base(rel))
	}

	return m.g.Match(rel)
}

// String returns the source pattern.
func (m *Matcher) String() string {
	return m.pattern
}
