package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"

	"github.com/0xmhha/filetail/pkg/logger"
)

// Bucket names.
var (
	bucketRecords = []byte("records") // Path -> Record (msgpack)
)

// boltStore implements Store using BoltDB.
type boltStore struct {
	db     *bolt.DB
	logger logger.Logger
}

// New opens (creating if needed) a BoltDB-backed journal.
//
// Parameters:
//   - cfg: Journal configuration
//   - log: Logger instance
//
// Returns:
//   - Configured Store
//   - Error if database cannot be opened
func New(cfg Config, log logger.Logger) (Store, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}

	dbPath := cfg.DBPath
	if dbPath == "" {
		return nil, ErrNoDBPath
	}

	// Create directory if it doesn't exist.
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		if _, createErr := tx.CreateBucketIfNotExists(bucketRecords); createErr != nil {
			return fmt.Errorf("failed to create records bucket: %w", createErr)
		}
		return nil
	}); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("failed to close database after initialization error",
				"error", closeErr)
		}
		return nil, err
	}

	log = log.Component("journal")
	log.Info("journal opened", "db_path", dbPath)

	return &boltStore{
		db:     db,
		logger: log,
	}, nil
}

// Record implements Store.Record.
func (s *boltStore) Record(e Entry) error {
	if e.Path == "" {
		return ErrEmptyPath
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)

		rec := newRecord(e.Path)
		if data := b.Get([]byte(e.Path)); data != nil {
			rec = &Record{}
			if err := msgpack.Unmarshal(data, rec); err != nil {
				return fmt.Errorf("failed to unmarshal record: %w", err)
			}
		}

		if err := rec.apply(e); err != nil {
			return err
		}

		data, err := msgpack.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}

		if err := b.Put([]byte(e.Path), data); err != nil {
			return fmt.Errorf("failed to store record: %w", err)
		}

		return nil
	})
}

// Get implements Store.Get.
func (s *boltStore) Get(path string) (*Record, error) {
	var rec *Record

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketRecords).Get([]byte(path))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}

		rec = &Record{}
		if err := msgpack.Unmarshal(data, rec); err != nil {
			return fmt.Errorf("failed to unmarshal record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rec, nil
}

// List implements Store.List.
func (s *boltStore) List() ([]*Record, error) {
	var records []*Record

	err := s.db.View(func(tx *bolt.Tx) error {
		// Keys iterate in byte order, which is path order.
		return tx.Bucket(bucketRecords).ForEach(func(k, v []byte) error {
			rec := &Record{}
			if err := msgpack.Unmarshal(v, rec); err != nil {
				return fmt.Errorf("failed to unmarshal record %s: %w", k, err)
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

// Reset implements Store.Reset.
func (s *boltStore) Reset(path string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		if b.Get([]byte(path)) == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}

		if err := b.Delete([]byte(path)); err != nil {
			return fmt.Errorf("failed to delete record: %w", err)
		}

		s.logger.Info("journal record reset", "path", path)
		return nil
	})
}

// Close implements Store.Close.
func (s *boltStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
