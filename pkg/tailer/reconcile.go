package tailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/0xmhha/filetail/pkg/watcher"
	"github.com/cenkalti/backoff/v4"
)

// errSizeUnchanged keeps the size poll retrying.
var errSizeUnchanged = errors.New("file size unchanged")

// event applies one notification for the watched file.
//
// Create opens a fresh handle, create and write both look for new data,
// and remove or rename-away closes the handle. When more is set, a later
// event in the same batch will look for new data again, so the size is
// checked once instead of polled.
func (t *tailer) event(ctx context.Context, ev watcher.Event, more bool) error {
	t.logger.Debug("file event", "op", ev.Op.String())

	if ev.Op.Has(watcher.OpCreate) {
		opened, err := t.created()
		if err != nil {
			return err
		}
		if !opened {
			return nil
		}
	}

	if ev.Op.Has(watcher.OpCreate) || ev.Op.Has(watcher.OpWrite) {
		if err := t.modified(ctx, more); err != nil {
			return err
		}
	}

	if ev.Op.Has(watcher.OpRemove) || ev.Op.Has(watcher.OpRename) {
		t.deleted()
	}

	return nil
}

// created replaces the handle with one for the new file. It returns false
// when the file vanished before it could be opened; the pending remove
// event for it follows in the queue.
func (t *tailer) created() (bool, error) {
	info, err := t.fs.Stat(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			t.logger.Warn("created file vanished before it could be opened")
			return false, nil
		}
		return false, fmt.Errorf("failed to stat created file %s: %w", t.path, err)
	}
	if !info.Mode().IsRegular() {
		return false, fmt.Errorf("%w: %s (%s)", ErrNotRegularFile, t.path, info.Mode())
	}

	t.closeHandle("recreate")
	t.lastSize = 0
	t.lastSeen = 0

	f, err := t.fs.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			t.logger.Warn("created file vanished before it could be opened")
			return false, nil
		}
		return false, fmt.Errorf("failed to open created file %s: %w", t.path, err)
	}
	t.handle = f

	t.logger.Info("file created")
	t.notify("OnCreate", func() error {
		return t.observer.OnCreate(t.path)
	})
	return true, nil
}

// modified reconciles the cursor with the file's current size.
func (t *tailer) modified(ctx context.Context, more bool) error {
	if t.handle == nil {
		return fmt.Errorf("%w: %s", ErrNoHandle, t.path)
	}

	attempts := t.config.SizePollAttempts
	if more {
		attempts = 1
	}
	size := t.pollSize(ctx, attempts)

	switch {
	case size < t.lastSize:
		t.logger.Info("file truncated below read offset",
			"size", size,
			"offset", t.lastSize)
		t.lastSize = 0
		t.lastSeen = size
		t.notify("OnTruncate", func() error {
			return t.observer.OnTruncate(t.path, true)
		})
		if size == 0 {
			return nil
		}

	case size < t.lastSeen:
		t.logger.Info("file truncated above read offset",
			"size", size,
			"offset", t.lastSize,
			"last_seen", t.lastSeen)
		t.lastSeen = size
		t.notify("OnTruncate", func() error {
			return t.observer.OnTruncate(t.path, false)
		})
		if size == t.lastSize {
			return nil
		}

	case size == t.lastSize:
		t.lastSeen = size
		t.logger.Debug("no new data", "size", size)
		return nil
	}

	t.lastSeen = size
	return t.read(size)
}

// read delivers [lastSize, size) from the handle in chunks of at most
// Config.MaxReadSize bytes. The buffer is reused between chunks.
func (t *tailer) read(size int64) error {
	chunk := int64(t.config.MaxReadSize)
	buf := make([]byte, min(size-t.lastSize, chunk))

	for t.lastSize < size {
		want := min(size-t.lastSize, chunk)
		n, err := t.handle.ReadAt(buf[:want], t.lastSize)

		switch {
		case n > 0:
			t.lastSize += int64(n)
			data := buf[:n]
			t.logger.Debug("bytes received", "bytes", n, "offset", t.lastSize)
			t.notify("OnReceive", func() error {
				return t.observer.OnReceive(t.path, data)
			})
			if err != nil {
				if !errors.Is(err, io.EOF) {
					t.logger.Warn("short read", "bytes", n, "error", err)
				}
				return nil
			}

		case errors.Is(err, io.EOF):
			// Shrunk or replaced between the size check and the read.
			t.logger.Info("end of file before expected size, reopening",
				"expected", size,
				"offset", t.lastSize)
			return t.reopen()

		case err != nil:
			t.logger.Error("read failed", "offset", t.lastSize, "error", err)
			return nil

		default:
			t.logger.Warn("read returned no data", "offset", t.lastSize, "size", size)
			return nil
		}
	}

	return nil
}

// reopen replaces the handle and restarts the stream at offset zero
// without delivering anything.
func (t *tailer) reopen() error {
	t.closeHandle("reopen")
	t.lastSize = 0
	t.lastSeen = 0

	f, err := t.fs.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			t.logger.Warn("file vanished while reopening")
			return nil
		}
		return fmt.Errorf("failed to reopen %s: %w", t.path, err)
	}
	t.handle = f
	return nil
}

// deleted releases the handle.
func (t *tailer) deleted() {
	t.closeHandle("delete")
	t.lastSize = 0
	t.lastSeen = 0

	t.logger.Info("file deleted")
	t.notify("OnDelete", func() error {
		return t.observer.OnDelete(t.path)
	})
}

// pollSize returns the handle's size, polling up to attempts times at a
// fixed interval while it still equals the read cursor. Change
// notifications may arrive before the new size is visible; a stat failure
// counts as no growth.
func (t *tailer) pollSize(ctx context.Context, attempts int) int64 {
	size := t.lastSize
	var statErr error

	operation := func() error {
		info, err := t.handle.Stat()
		if err != nil {
			statErr = err
			return err
		}
		statErr = nil
		size = info.Size()
		if size == t.lastSize {
			return errSizeUnchanged
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewConstantBackOff(t.config.SizePollInterval),
			uint64(attempts-1)),
		ctx)

	if err := backoff.Retry(operation, policy); err != nil && statErr != nil {
		t.logger.Warn("failed to stat file, assuming no growth", "error", statErr)
		return t.lastSize
	}
	return size
}

// writePending reports whether a later event in the batch will look for
// new data in the watched file.
func (t *tailer) writePending(rest []watcher.Event) bool {
	for _, ev := range rest {
		if (ev.Op.Has(watcher.OpWrite) || ev.Op.Has(watcher.OpCreate)) && t.matches(ev) {
			return true
		}
	}
	return false
}
