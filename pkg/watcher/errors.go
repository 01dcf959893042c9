package watcher

import "errors"

// Common errors returned by a Source.
var (
	// ErrSourceClosed is returned when using a closed source.
	ErrSourceClosed = errors.New("notification source is closed")

	// ErrInterrupted is returned by Take when Wake interrupts the wait.
	// It is not a failure; callers decide whether to wait again.
	ErrInterrupted = errors.New("wait for notification interrupted")

	// ErrInvalidPath is returned when a watch path is missing or not a directory.
	ErrInvalidPath = errors.New("invalid watch path")
)
