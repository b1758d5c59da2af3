package install

import "time"

// Actor identifies who ran an install.
type Actor struct {
	// Hostname is the machine name where the install ran.
	Hostname string `yaml:"hostname"`
	// Username is the system user who ran the install.
	Username string `yaml:"username"`
}

// Receipt records what an install run put on disk.
type Receipt struct {
	// Package is the manifest name.
	Package string `yaml:"package"`
	// Version is the manifest version.
	Version string `yaml:"version"`
	// InstalledAt is when the run finished.
	InstalledAt time.Time `yaml:"installed_at"`
	// InstalledBy is the actor that ran the install.
	InstalledBy *Actor `yaml:"installed_by,omitempty"`
	// InstallRoot is the directory all destinations live in.
	InstallRoot string `yaml:"install_root"`
	// Files maps slash-separated paths relative to InstallRoot to base64 checksums.
	Files map[string]string `yaml:"files"`
}

// NewReceipt returns an empty receipt for the package.
func NewReceipt(name, version, installRoot string) *Receipt {
	return &Receipt{
		Package:     name,
		Version:     version,
		InstallRoot: installRoot,
		Files:       make(map[string]string),
	}
}
