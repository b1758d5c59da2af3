package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/rez-install/internal/domain/install"
	"github.com/oshokin/rez-install/internal/logger"
)

// Config holds the tool settings shared by every subcommand.
type Config struct {
	// ManifestPath is the package manifest used when no argument is given.
	ManifestPath string `yaml:"manifest"`
	// InstallRoot is the directory every destination is created in.
	InstallRoot string `yaml:"install_root"`
	// Layout controls how target paths are derived inside a destination.
	Layout install.Layout `yaml:"layout"`
	// SkipReceipt disables writing the install receipt.
	SkipReceipt bool `yaml:"skip_receipt"`
	// LogLevel is the minimum level of emitted log entries.
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is the default filename for tool settings.
	DefaultConfigFilename = "rez-install-settings.yaml"

	// DefaultManifestFilename is the manifest looked up in the working directory.
	DefaultManifestFilename = "package.yaml"

	// DefaultInstallRoot is where destinations are created when nothing else is set.
	DefaultInstallRoot = "install"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownLogLevel is returned for a log level zap does not know.
	errUnknownLogLevel = errors.New("unknown log level")
)

// Default returns settings with every field set to its default.
func Default() *Config {
	return &Config{
		ManifestPath: DefaultManifestFilename,
		InstallRoot:  DefaultInstallRoot,
		Layout:       install.LayoutRelative,
		LogLevel:     "info",
	}
}

// Load reads settings from the provided path and validates them.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err = yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault behaves like Load but returns Default when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	return cfg, err
}

// Overrides are command line values that win over the settings file.
// Empty fields keep the file value.
type Overrides struct {
	ManifestPath string
	InstallRoot  string
	Layout       string
}

// LoadWithOverrides calls LoadOrDefault, applies non-empty overrides and validates the result.
func LoadWithOverrides(path string, o *Overrides) (*Config, error) {
	cfg, err := LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if o == nil {
		return cfg, nil
	}

	if o.ManifestPath != "" {
		cfg.ManifestPath = o.ManifestPath
	}

	if o.InstallRoot != "" {
		cfg.InstallRoot = o.InstallRoot
	}

	if o.Layout != "" {
		cfg.Layout = install.Layout(o.Layout)
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks the layout and log level.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if strings.TrimSpace(cfg.ManifestPath) == "" {
		cfg.ManifestPath = DefaultManifestFilename
	}

	if strings.TrimSpace(cfg.InstallRoot) == "" {
		cfg.InstallRoot = DefaultInstallRoot
	}

	layout, err := install.ParseLayout(string(cfg.Layout))
	if err != nil {
		return err
	}

	cfg.Layout = layout

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, cfg.LogLevel)
	}

	return nil
}
