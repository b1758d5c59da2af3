// Package discovery finds the files a directive installs.
//
// Discover walks a root recursively on an afero.Fs and returns the files whose
// path matches a glob. A missing root or zero matches is an empty FileSet, not
// an error.
package discovery
