// Package receipt persists install receipts.
//
// The FileRepository stores and loads a Receipt as YAML on disk and exposes a
// Repository interface that the installer and verifier depend on.
package receipt
