package journal

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// memoryStore implements Store using an in-memory map.
type memoryStore struct {
	records map[string]*Record
	closed  bool
	mu      sync.RWMutex
}

// NewMemory creates an in-memory journal.
//
// Useful for testing or when persistence is not needed.
func NewMemory() Store {
	return &memoryStore{
		records: make(map[string]*Record),
	}
}

// Record implements Store.Record.
func (s *memoryStore) Record(e Entry) error {
	if e.Path == "" {
		return ErrEmptyPath
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	rec := newRecord(e.Path)
	if existing, ok := s.records[e.Path]; ok {
		rec = existing.clone()
	}

	if err := rec.apply(e); err != nil {
		return err
	}

	s.records[e.Path] = rec
	return nil
}

// Get implements Store.Get.
func (s *memoryStore) Get(path string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	rec, ok := s.records[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	return rec.clone(), nil
}

// List implements Store.List.
func (s *memoryStore) List() ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	records := make([]*Record, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, rec.clone())
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Path < records[j].Path
	})

	return records, nil
}

// Reset implements Store.Reset.
func (s *memoryStore) Reset(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	if _, ok := s.records[path]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	delete(s.records, path)
	return nil
}

// Close implements Store.Close.
func (s *memoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
