// Package install contains the core domain types of an install run.
//
// A Directive pairs a glob root and pattern with a destination; discovery turns
// it into a FileSet; the installer maps each Entry to a target path according
// to a Layout and records the outcome in a Receipt.
package install
