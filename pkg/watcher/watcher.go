package watcher

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/0xmhha/filetail/pkg/logger"
	"github.com/fsnotify/fsnotify"
)

// source implements Source using fsnotify.
type source struct {
	fsw    *fsnotify.Watcher
	logger logger.Logger
	config Config

	wake chan struct{}

	mu     sync.Mutex
	closed bool
	dirs   []string
}

// New creates an fsnotify-backed notification source.
//
// Parameters:
//   - cfg: Source configuration
//   - log: Logger instance
//
// Returns:
//   - Source with no directories registered
//   - Error if the OS watch instance cannot be created
func New(cfg Config, log logger.Logger) (Source, error) {
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = 64
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}

	fsw, err := fsnotify.NewBufferedWatcher(uint(cfg.BufferSize))
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	log.Debug("notification source created",
		"max_batch", cfg.MaxBatch,
		"buffer_size", cfg.BufferSize)

	return &source{
		fsw:    fsw,
		logger: log,
		config: cfg,
		wake:   make(chan struct{}, 1),
	}, nil
}

// Add implements Source.Add.
func (s *source) Add(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSourceClosed
	}

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidPath, dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInvalidPath, dir)
	}

	if err := s.fsw.Add(dir); err != nil {
		return fmt.Errorf("failed to add watch for %s: %w", dir, err)
	}
	s.dirs = append(s.dirs, dir)

	s.logger.Debug("registered directory", "dir", dir)
	return nil
}

// Take implements Source.Take.
func (s *source) Take(ctx context.Context) ([]Event, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()

	case <-s.wake:
		return nil, ErrInterrupted

	case err, ok := <-s.fsw.Errors:
		if !ok {
			return nil, ErrSourceClosed
		}
		return nil, err

	case ev, ok := <-s.fsw.Events:
		if !ok {
			return nil, ErrSourceClosed
		}
		batch := make([]Event, 0, 4)
		batch = s.appendEvent(batch, ev)
		return s.drain(batch), nil
	}
}

// drain appends events that are already queued without blocking.
func (s *source) drain(batch []Event) []Event {
	for len(batch) < s.config.MaxBatch {
		select {
		case ev, ok := <-s.fsw.Events:
			if !ok {
				return batch
			}
			batch = s.appendEvent(batch, ev)
		default:
			return batch
		}
	}
	return batch
}

func (s *source) appendEvent(batch []Event, ev fsnotify.Event) []Event {
	op := convertOp(ev.Op)
	if op == 0 {
		s.logger.Debug("ignoring unknown fsnotify operation",
			"op", ev.Op,
			"path", ev.Name)
		return batch
	}
	return append(batch, Event{
		Path:      ev.Name,
		Op:        op,
		Timestamp: time.Now(),
	})
}

// Wake implements Source.Wake.
func (s *source) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Close implements Source.Close.
func (s *source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.fsw.Close(); err != nil {
		return fmt.Errorf("failed to close fsnotify watcher: %w", err)
	}

	s.logger.Debug("notification source closed", "dirs", s.dirs)
	return nil
}

// convertOp maps fsnotify operation bits to Op bits.
func convertOp(in fsnotify.Op) Op {
	var op Op
	if in.Has(fsnotify.Create) {
		op |= OpCreate
	}
	if in.Has(fsnotify.Write) {
		op |= OpWrite
	}
	if in.Has(fsnotify.Remove) {
		op |= OpRemove
	}
	if in.Has(fsnotify.Rename) {
		op |= OpRename
	}
	if in.Has(fsnotify.Chmod) {
		op |= OpChmod
	}
	return op
}
