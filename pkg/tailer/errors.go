package tailer

import "errors"

// Common errors returned by the tailer.
var (
	// ErrAlreadyStarted is returned when Start is called on a running tailer.
	ErrAlreadyStarted = errors.New("tailer already started")

	// ErrStartTimeout is recorded by WaitForStart when startup does not
	// complete in time and no other error was recorded.
	ErrStartTimeout = errors.New("timed out waiting for tailer to start")

	// ErrInvalidTarget is returned when the target has no file name.
	ErrInvalidTarget = errors.New("invalid tail target")

	// ErrNilObserver is returned when no observer is supplied.
	ErrNilObserver = errors.New("observer is required")

	// ErrNotRegularFile is fatal: the created path cannot be tailed.
	ErrNotRegularFile = errors.New("not a regular file")

	// ErrNoHandle is fatal: a modify event arrived with no open file.
	ErrNoHandle = errors.New("modify event without an open file handle")

	// ErrSourceFailed wraps a fatal error from the notification source.
	ErrSourceFailed = errors.New("notification source failed")

	// ErrObserverPanic wraps a panic recovered from an observer callback.
	ErrObserverPanic = errors.New("observer panicked")
)
