// Package journal keeps a persistent per-path record of tail events.
//
// Each followed path has one Record counting creates, deletes, truncations
// and deliveries, the bytes delivered, and an xxhash digest of the stream
// delivered since the file last restarted at offset zero. Records are
// msgpack-encoded in a BoltDB bucket keyed by path.
//
// Example usage:
//
//	store, err := journal.New(journal.Config{
//	    DBPath: "/var/lib/filetail/journal.db",
//	}, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	obs := journal.NewRecorder(store, logger.Default())
//	t, err := tailer.New(cfg, obs, logger.Default())
package journal

import (
	"time"
)

// Kind identifies a tail event.
type Kind string

// Event kinds.
const (
	KindCreate   Kind = "create"
	KindDelete   Kind = "delete"
	KindTruncate Kind = "truncate"
	KindReceive  Kind = "receive"
)

// Entry is one tail event to fold into a path's Record.
type Entry struct {
	Path string
	Kind Kind
	Time time.Time

	// Data holds the delivered bytes for KindReceive.
	Data []byte

	// BelowThreshold is the truncate flag for KindTruncate.
	BelowThreshold bool
}

// Record is the accumulated journal state for one path.
type Record struct {
	Path string `msgpack:"path" json:"path"`

	Creates   uint64 `msgpack:"creates" json:"creates"`
	Deletes   uint64 `msgpack:"deletes" json:"deletes"`
	Truncates uint64 `msgpack:"truncates" json:"truncates"`
	Receives  uint64 `msgpack:"receives" json:"receives"`

	// Bytes is the total delivered over the record's lifetime.
	Bytes uint64 `msgpack:"bytes" json:"bytes"`

	// Offset is the bytes delivered since the stream last restarted.
	Offset int64 `msgpack:"offset" json:"offset"`

	// Digest is the xxhash64 of the bytes delivered since the stream last
	// restarted, i.e. of the first Offset bytes of the current file.
	Digest uint64 `msgpack:"digest" json:"digest"`

	// DigestState is the serialized running hash.
	DigestState []byte `msgpack:"digest_state" json:"-"`

	FirstSeen time.Time `msgpack:"first_seen" json:"first_seen"`
	UpdatedAt time.Time `msgpack:"updated_at" json:"updated_at"`
}

// Store persists Records.
type Store interface {
	// Record folds e into the Record for e.Path, creating it if needed.
	Record(e Entry) error

	// Get returns the Record for path.
	// Returns ErrNotFound if the path has no record.
	Get(path string) (*Record, error)

	// List returns all Records sorted by path.
	List() ([]*Record, error)

	// Reset deletes the Record for path.
	// Returns ErrNotFound if the path has no record.
	Reset(path string) error

	// Close releases the store.
	Close() error
}

// Config contains journal configuration.
type Config struct {
	// Path to BoltDB database file
	DBPath string

	// How long to wait for the database lock.
	// Default: 1s.
	Timeout time.Duration
}
