package install

import "errors"

var (
	// ErrDestinationUnwritable is returned when a destination cannot be created or written.
	ErrDestinationUnwritable = errors.New("destination unwritable")
	// ErrSourceUnreadable is returned when a discovered file or directory cannot be read.
	ErrSourceUnreadable = errors.New("source unreadable")
	// ErrTargetCollision is returned when two entries map to the same target path.
	ErrTargetCollision = errors.New("target collision")
)
