// Package tailer follows a single file the way tail -f does.
//
// A Tailer runs one worker goroutine that registers the file's parent
// directory with a notification source, reconciles directory events with
// the file's on-disk state and reports what happened to an Observer:
// appended byte ranges, truncation, deletion and recreation.
//
// Content present when the tailer starts is never delivered. Only bytes
// appended afterwards reach OnReceive, and a recreated file starts a new
// stream at offset zero.
//
// Example usage:
//
//	t, err := tailer.New(tailer.Config{
//	    Dir:  "/var/log",
//	    File: "app.log",
//	}, tailer.ObserverFuncs{
//	    Receive: func(path string, data []byte) error {
//	        _, err := os.Stdout.Write(data)
//	        return err
//	    },
//	}, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := t.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	if !t.WaitForStart(0) {
//	    log.Fatal(t.Err())
//	}
//	defer t.Stop()
package tailer

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/0xmhha/filetail/pkg/logger"
	"github.com/0xmhha/filetail/pkg/watcher"
)

// DefaultMaxReadSize is the default Config.MaxReadSize.
const DefaultMaxReadSize = 1 << 20

// State is the lifecycle state of a tailer.
type State int32

// Lifecycle states.
const (
	StateNotStarted State = iota
	StateStarting
	StateRunning
	StateStopped
	StateFailed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Observer receives tail events. Methods are called synchronously from the
// tailer's goroutine, one at a time, in the order events were detected. A
// method that blocks stalls all further delivery.
//
// A non-nil error or a panic from OnCreate, OnDelete, OnTruncate or
// OnReceive is reported once through OnObserverFault and does not stop the
// tailer. A panic from OnObserverFault is discarded.
type Observer interface {
	// OnCreate is called after the file appeared and was opened.
	OnCreate(path string) error

	// OnDelete is called after the file disappeared and was closed.
	OnDelete(path string) error

	// OnTruncate is called when the file shrank. belowThreshold is true
	// when the shrink invalidated the read cursor and the stream restarted
	// at offset zero.
	OnTruncate(path string, belowThreshold bool) error

	// OnReceive is called with newly appended bytes. data is never empty
	// and must not be retained after the call returns.
	OnReceive(path string, data []byte) error

	// OnObserverFault is called when one of the other methods failed.
	// method is the failing method name, e.g. "OnReceive".
	OnObserverFault(method string, err error)
}

// Tailer follows one file.
type Tailer interface {
	// Start launches the worker goroutine and returns immediately.
	// Cancelling ctx has the same effect as Stop.
	//
	// Returns ErrAlreadyStarted if the tailer is starting or running.
	// A stopped or failed tailer may be started again.
	Start(ctx context.Context) error

	// WaitForStart blocks until the tailer is running, has exited, or
	// timeout elapsed. A timeout <= 0 uses Config.StartTimeout.
	//
	// Returns true only if the tailer reached the running state. On
	// timeout with no recorded error, Err reports ErrStartTimeout.
	WaitForStart(timeout time.Duration) bool

	// IsStarted reports whether the tailer is running.
	IsStarted() bool

	// State returns the current lifecycle state.
	State() State

	// Err returns the fatal error of the last run, if any.
	Err() error

	// Stop requests a graceful shutdown and wakes the worker.
	// It does not wait; use Done for that.
	Stop()

	// Interrupt wakes the worker's wait for notifications without
	// requesting a stop. The worker resumes waiting.
	Interrupt()

	// Done returns a channel closed when the current run's worker exits.
	// Before the first Start the channel is already closed.
	Done() <-chan struct{}

	// Path returns the watched file path.
	Path() string
}

// File is an open read handle.
type File interface {
	io.ReaderAt
	io.Closer

	// Stat returns the handle's current metadata.
	Stat() (os.FileInfo, error)
}

// FileSystem provides the file primitives the tailer needs.
type FileSystem interface {
	// Open opens name for reading.
	Open(name string) (File, error)

	// Stat returns metadata for name, following symlinks.
	Stat(name string) (os.FileInfo, error)
}

// Config contains tailer configuration.
type Config struct {
	// Dir is the directory containing the watched file.
	// Default: the current directory.
	Dir string

	// File is the watched file, relative to Dir or absolute.
	File string

	// SizePollAttempts is how many times a modify event polls the file
	// size waiting for it to differ from the read cursor. Notifications
	// can be delivered before the new size is visible through stat.
	// Default: 20.
	SizePollAttempts int

	// SizePollInterval is the fixed delay between size polls.
	// Default: 100ms. The default worst case per event is therefore
	// about two seconds when the size never changes.
	SizePollInterval time.Duration

	// StartTimeout is the WaitForStart default.
	// Default: 2s.
	StartTimeout time.Duration

	// MaxReadSize caps the bytes passed to one OnReceive call. A larger
	// append is delivered as consecutive chunks.
	// Default: DefaultMaxReadSize.
	MaxReadSize int

	// NewSource creates the notification source for each run.
	// Default: an fsnotify source from the watcher package.
	NewSource func(log logger.Logger) (watcher.Source, error)

	// FS provides file access.
	// Default: the operating system.
	FS FileSystem
}
