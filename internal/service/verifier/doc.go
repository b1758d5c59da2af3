// Package verifier checks installed files against the install receipt.
package verifier
