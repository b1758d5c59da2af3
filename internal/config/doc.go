// Package config defines the rez-install settings file and helpers to load,
// validate and save it in YAML format.
//
// A missing settings file is not an error for LoadOrDefault: every field has a
// default and CLI flags override what the file says.
package config
