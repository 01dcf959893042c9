package journal

import "errors"

// Common errors returned by the journal.
var (
	// ErrNotFound is returned when a path has no record.
	ErrNotFound = errors.New("no journal record for path")

	// ErrEmptyPath is returned when an entry has no path.
	ErrEmptyPath = errors.New("journal entry path cannot be empty")

	// ErrNoDBPath is returned when no database path is configured.
	ErrNoDBPath = errors.New("journal database path cannot be empty")

	// ErrUnknownKind is returned when an entry kind is not recognized.
	ErrUnknownKind = errors.New("unknown journal entry kind")

	// ErrClosed is returned when the store has been closed.
	ErrClosed = errors.New("journal is closed")
)
