package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/rez-install/internal/domain/install"
	"github.com/oshokin/rez-install/internal/service/discovery"
)

// Action is how an environment operation combines with the existing value.
type Action string

const (
	// ActionSet replaces the variable.
	ActionSet Action = "set"
	// ActionPrepend puts the value in front of the existing list.
	ActionPrepend Action = "prepend"
	// ActionAppend puts the value after the existing list.
	ActionAppend Action = "append"
)

// EnvOp is one environment operation run when the package is used.
type EnvOp struct {
	Variable string `yaml:"variable" hcl:"variable"`
	Action   Action `yaml:"action" hcl:"action,optional"`
	Value    string `yaml:"value" hcl:"value"`
}

// Manifest describes one package.
type Manifest struct {
	Name        string              `yaml:"name" hcl:"name"`
	Version     string              `yaml:"version" hcl:"version,optional"`
	Authors     []string            `yaml:"authors" hcl:"authors,optional"`
	Requires    []string            `yaml:"requires" hcl:"requires,optional"`
	Install     []install.Directive `yaml:"install" hcl:"install,block"`
	Environment []EnvOp             `yaml:"environment" hcl:"environment,block"`

	// Dir is the absolute directory the manifest was loaded from.
	Dir string `yaml:"-"`
}

// Defaults of a Python pipeline package.
const (
	DefaultPythonRoot    = "lib/python"
	DefaultPythonPattern = "*.py"
	DefaultConfigRoot    = "config"
	DefaultConfigPattern = "*"
)

var (
	// ErrUnsupportedFormat is returned for a manifest extension with no decoder.
	ErrUnsupportedFormat = errors.New("unsupported manifest format")
	// ErrNameRequired is returned when the manifest has no name.
	ErrNameRequired = errors.New("package name is required")
	// ErrRootRequired is returned for an install directive without root.
	ErrRootRequired = errors.New("install root is required")
	// ErrUnknownAction is returned for an environment action other than set, prepend or append.
	ErrUnknownAction = errors.New("unknown environment action")
	// ErrVariableRequired is returned for an environment operation without variable.
	ErrVariableRequired = errors.New("environment variable is required")
)

// Load reads, defaults and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve manifest path: %w", err)
	}

	var m *Manifest

	switch ext := strings.ToLower(filepath.Ext(abs)); ext {
	case ".yaml", ".yml":
		m, err = decodeYAML(abs)
	case ".hcl":
		m, err = decodeHCL(abs)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	if err != nil {
		return nil, err
	}

	m.Dir = filepath.Dir(abs)
	m.ApplyDefaults()

	if err = m.Validate(); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}

	return m, nil
}

func decodeYAML(path string) (*Manifest, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err = yaml.Unmarshal(contents, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest %s: %w", path, err)
	}

	return &m, nil
}

func decodeHCL(path string) (*Manifest, error) {
	parser := hclparse.NewParser()

	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse manifest %s: %w", path, diags)
	}

	var m Manifest
	if diags = gohcl.DecodeBody(file.Body, nil, &m); diags.HasErrors() {
		return nil, fmt.Errorf("decode manifest %s: %w", path, diags)
	}

	return &m, nil
}

// DefaultDirectives returns the two directives of a Python pipeline package.
func DefaultDirectives(destination string) []install.Directive {
	return []install.Directive{
		{Root: DefaultPythonRoot, Pattern: DefaultPythonPattern, Destination: destination},
		{Root: DefaultConfigRoot, Pattern: DefaultConfigPattern, Destination: destination},
	}
}

// DefaultEnvironment puts the installed Python tree on PYTHONPATH.
func DefaultEnvironment(name string) []EnvOp {
	return []EnvOp{
		{Variable: "PYTHONPATH", Action: ActionPrepend, Value: "{root}/" + name + "/" + DefaultPythonRoot},
	}
}

// ApplyDefaults fills omitted sections and fields.
func (m *Manifest) ApplyDefaults() {
	m.Name = strings.TrimSpace(m.Name)

	if len(m.Install) == 0 {
		m.Install = DefaultDirectives(m.Name)
	}

	for i := range m.Install {
		if m.Install[i].Destination == "" {
			m.Install[i].Destination = m.Name
		}
	}

	if len(m.Environment) == 0 {
		m.Environment = DefaultEnvironment(m.Name)
	}

	for i := range m.Environment {
		if m.Environment[i].Action == "" {
			m.Environment[i].Action = ActionSet
		}
	}
}

// Validate checks names, destinations, patterns, requirements and environment operations.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return ErrNameRequired
	}

	if err := install.ValidateDestination(m.Name); err != nil {
		return fmt.Errorf("name: %w", err)
	}

	for i, d := range m.Install {
		if strings.TrimSpace(d.Root) == "" {
			return fmt.Errorf("install #%d: %w", i+1, ErrRootRequired)
		}

		if err := install.ValidateDestination(d.Destination); err != nil {
			return fmt.Errorf("install #%d: %w", i+1, err)
		}

		if _, err := discovery.CompilePattern(d.Pattern); err != nil {
			return fmt.Errorf("install #%d: %w", i+1, err)
		}
	}

	if _, err := m.Requirements(); err != nil {
		return err
	}

	for i, op := range m.Environment {
		if strings.TrimSpace(op.Variable) == "" {
			return fmt.Errorf("environment #%d: %w", i+1, ErrVariableRequired)
		}

		switch op.Action {
		case ActionSet, ActionPrepend, ActionAppend:
		default:
			return fmt.Errorf("environment #%d: %w: %q", i+1, ErrUnknownAction, op.Action)
		}
	}

	return nil
}

// Directives returns the install directives with roots resolved against Dir.
func (m *Manifest) Directives() []install.Directive {
	out := make([]install.Directive, 0, len(m.Install))

	for _, d := range m.Install {
		root := filepath.FromSlash(d.Root)
		if !filepath.IsAbs(root) {
			root = filepath.Join(m.Dir, root)
		}

		out = append(out, install.Directive{
			Root:        root,
			Pattern:     d.Pattern,
			Destination: d.Destination,
		})
	}

	return out
}

// Requirements parses every requires entry.
func (m *Manifest) Requirements() ([]install.Requirement, error) {
	out := make([]install.Requirement, 0, len(m.Requires))

	for _, raw := range m.Requires {
		req, err := install.ParseRequirement(raw)
		if err != nil {
			return nil, err
		}

		out = append(out, req)
	}

	return out, nil
}
