// Package inspect prints what a manifest declares and what it would install,
// without writing anything.
package inspect
