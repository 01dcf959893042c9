// Package watcher is the directory-level notification source used by the
// tailer.
//
// Operating systems report changes per directory entry, so a Source is
// registered on directories and yields batches of (op, path) events. Take
// blocks until at least one event is available; Wake interrupts a blocked
// Take without closing the source.
//
// Example usage:
//
//	src, err := watcher.New(watcher.Config{}, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer src.Close()
//
//	if err := src.Add("/var/log"); err != nil {
//	    log.Fatal(err)
//	}
//
//	for {
//	    batch, err := src.Take(ctx)
//	    if errors.Is(err, watcher.ErrInterrupted) {
//	        continue
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    for _, ev := range batch {
//	        fmt.Printf("%s %s\n", ev.Op, ev.Path)
//	    }
//	}
package watcher

import (
	"context"
	"strings"
	"time"
)

// Op describes a file operation type. An event may carry several.
type Op uint32

// File operation types.
const (
	OpCreate Op = 1 << iota // Entry created
	OpWrite                 // Entry content modified
	OpRemove                // Entry deleted
	OpRename                // Entry renamed or moved away
	OpChmod                 // Entry metadata changed
)

// Has reports whether op includes every bit of other.
func (op Op) Has(other Op) bool {
	return other != 0 && op&other == other
}

// String returns a human-readable operation name.
func (op Op) String() string {
	names := []struct {
		op   Op
		name string
	}{
		{OpCreate, "CREATE"},
		{OpWrite, "WRITE"},
		{OpRemove, "REMOVE"},
		{OpRename, "RENAME"},
		{OpChmod, "CHMOD"},
	}

	var parts []string
	for _, n := range names {
		if op.Has(n.op) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "UNKNOWN"
	}
	return strings.Join(parts, "|")
}

// Event is a single directory entry notification.
type Event struct {
	// Path is the directory joined with the entry name.
	Path string

	// Op is the set of operations reported for the entry.
	Op Op

	// Timestamp is when the source received the event.
	Timestamp time.Time
}

// Source registers directories and yields their change notifications.
type Source interface {
	// Add registers a directory for create, write and remove events.
	//
	// Returns ErrInvalidPath if dir does not exist or is not a directory.
	Add(dir string) error

	// Take blocks until at least one event is available and returns every
	// event that is ready at that moment, in arrival order.
	//
	// Returns:
	//   - ErrInterrupted if Wake was called
	//   - ctx.Err() if ctx is done
	//   - ErrSourceClosed after Close
	//   - any error reported by the underlying notification mechanism
	Take(ctx context.Context) ([]Event, error)

	// Wake interrupts a blocked Take. A Wake with no Take in progress
	// interrupts the next one.
	Wake()

	// Close releases the registration. Take returns ErrSourceClosed afterwards.
	Close() error
}

// Config contains source configuration.
type Config struct {
	// MaxBatch bounds how many ready events one Take returns.
	// Default: 64.
	MaxBatch int

	// BufferSize is the capacity of the queue between the OS and Take.
	// Default: 256.
	BufferSize int
}
