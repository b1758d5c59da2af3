package install

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Requirement is a parsed package requirement such as "~houdini-19+".
// Ranges are kept verbatim; nothing here resolves them.
type Requirement struct {
	// Name is the required package name.
	Name string
	// Range is the version range, empty for "any version".
	Range string
	// Weak marks a "~" requirement: it constrains the version only if the package is present.
	Weak bool
	// Conflict marks a "!" requirement: the package must not be present.
	Conflict bool
}

// ErrInvalidRequirement is returned for a requirement string that cannot be parsed.
var ErrInvalidRequirement = errors.New("invalid requirement")

// ParseRequirement splits s into name and range.
// The range starts at the first '-' followed by a digit, '+' or '<'.
func ParseRequirement(s string) (Requirement, error) {
	var req Requirement

	raw := strings.TrimSpace(s)

	switch {
	case strings.HasPrefix(raw, "~"):
		req.Weak = true
		raw = raw[1:]
	case strings.HasPrefix(raw, "!"):
		req.Conflict = true
		raw = raw[1:]
	}

	name := raw

	for i := 0; i < len(raw)-1; i++ {
		if raw[i] != '-' {
			continue
		}

		next := rune(raw[i+1])
		if unicode.IsDigit(next) || next == '+' || next == '<' {
			name, req.Range = raw[:i], raw[i+1:]
			break
		}
	}

	if name == "" || strings.ContainsAny(name, " \t~!") {
		return Requirement{}, fmt.Errorf("%w: %q", ErrInvalidRequirement, s)
	}

	req.Name = name

	return req, nil
}

// String renders the requirement back into its textual form.
func (r Requirement) String() string {
	var b strings.Builder

	switch {
	case r.Weak:
		b.WriteByte('~')
	case r.Conflict:
		b.WriteByte('!')
	}

	b.WriteString(r.Name)

	if r.Range != "" {
		b.WriteByte('-')
		b.WriteString(r.Range)
	}

	return b.String()
}
