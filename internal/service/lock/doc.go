// Package lock keeps two installs from writing into one install root at once.
//
// The lock is a file holding the owner's PID. A lock whose owner is no longer
// running is considered stale and replaced.
package lock
