// Package installer copies discovered files into their destination.
//
// Install handles one FileSet: it validates the destination, plans target
// paths, then applies each file atomically with a SHA-512 checksum check,
// skipping targets whose content already matches. Run drives a whole manifest
// under the install lock and records a receipt.
//
// Directives are installed one after another and are not transactional: a
// failure in a later directive leaves earlier directives installed. Within a
// directive the destination is checked before the first copy.
package installer
