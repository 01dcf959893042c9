package tailer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/0xmhha/filetail/pkg/logger"
	"github.com/0xmhha/filetail/pkg/watcher"
)

// tailer implements the Tailer interface.
type tailer struct {
	config   Config
	dir      string
	file     string
	path     string
	observer Observer
	fs       FileSystem
	logger   logger.Logger

	state         atomic.Int32
	stopRequested atomic.Bool

	mu     sync.Mutex
	err    error
	run    *run
	source watcher.Source

	// Owned by the worker goroutine.
	handle   File
	lastSize int64 // bytes delivered for the current handle
	lastSeen int64 // last size observed through the current handle
}

// run holds the per-start signalling channels.
type run struct {
	started chan struct{}
	done    chan struct{}
	cancel  context.CancelFunc
}

// New creates a tailer for cfg.Dir/cfg.File.
//
// Parameters:
//   - cfg: Tailer configuration
//   - obs: Observer receiving events
//   - log: Logger instance
//
// Returns:
//   - Tailer in the not-started state
//   - Error if the target or observer is invalid
func New(cfg Config, obs Observer, log logger.Logger) (Tailer, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	if cfg.SizePollAttempts <= 0 {
		cfg.SizePollAttempts = 20
	}
	if cfg.SizePollInterval <= 0 {
		cfg.SizePollInterval = 100 * time.Millisecond
	}
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = 2 * time.Second
	}
	if cfg.MaxReadSize <= 0 {
		cfg.MaxReadSize = DefaultMaxReadSize
	}
	if cfg.FS == nil {
		cfg.FS = osFS{}
	}
	if cfg.NewSource == nil {
		cfg.NewSource = func(log logger.Logger) (watcher.Source, error) {
			return watcher.New(watcher.Config{}, log)
		}
	}

	path, err := resolveTarget(cfg.Dir, cfg.File)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	close(done)

	t := &tailer{
		config:   cfg,
		dir:      filepath.Dir(path),
		file:     filepath.Base(path),
		path:     path,
		observer: obs,
		fs:       cfg.FS,
		logger:   log.Component("tailer").With("path", path),
		run: &run{
			started: make(chan struct{}),
			done:    done,
			cancel:  func() {},
		},
	}

	t.logger.Debug("tailer created",
		"size_poll_attempts", cfg.SizePollAttempts,
		"size_poll_interval", cfg.SizePollInterval)

	return t, nil
}

// NewForPath creates a tailer for a path, relative paths resolving
// against the current directory.
func NewForPath(path string, obs Observer, log logger.Logger) (Tailer, error) {
	return New(Config{File: path}, obs, log)
}

// resolveTarget returns the absolute, cleaned target path.
func resolveTarget(dir, file string) (string, error) {
	if file == "" {
		return "", fmt.Errorf("%w: empty file name", ErrInvalidTarget)
	}

	if !filepath.IsAbs(file) {
		file = filepath.Join(dir, file)
	}

	path, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}

	if base := filepath.Base(path); base == string(filepath.Separator) || base == "." {
		return "", fmt.Errorf("%w: %s has no file name", ErrInvalidTarget, path)
	}
	return path, nil
}

// Start implements Tailer.Start.
func (t *tailer) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.State() {
	case StateStarting, StateRunning:
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &run{
		started: make(chan struct{}),
		done:    make(chan struct{}),
		cancel:  cancel,
	}

	t.err = nil
	t.run = r
	t.stopRequested.Store(false)
	t.state.Store(int32(StateStarting))

	go t.loop(runCtx, r)
	return nil
}

// WaitForStart implements Tailer.WaitForStart.
func (t *tailer) WaitForStart(timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = t.config.StartTimeout
	}

	t.mu.Lock()
	r := t.run
	t.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-r.started:
	case <-r.done:
	case <-timer.C:
		t.mu.Lock()
		if t.err == nil {
			t.err = ErrStartTimeout
		}
		t.mu.Unlock()
	}

	select {
	case <-r.started:
		return true
	default:
		return false
	}
}

// IsStarted implements Tailer.IsStarted.
func (t *tailer) IsStarted() bool {
	return t.State() == StateRunning
}

// State implements Tailer.State.
func (t *tailer) State() State {
	return State(t.state.Load())
}

// Err implements Tailer.Err.
func (t *tailer) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Stop implements Tailer.Stop.
func (t *tailer) Stop() {
	t.stopRequested.Store(true)

	t.mu.Lock()
	r := t.run
	src := t.source
	t.mu.Unlock()

	r.cancel()
	if src != nil {
		src.Wake()
	}
}

// Interrupt implements Tailer.Interrupt.
func (t *tailer) Interrupt() {
	t.mu.Lock()
	src := t.source
	t.mu.Unlock()

	if src != nil {
		src.Wake()
	}
}

// Done implements Tailer.Done.
func (t *tailer) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.run.done
}

// Path implements Tailer.Path.
func (t *tailer) Path() string {
	return t.path
}

// loop is the worker goroutine for one run.
func (t *tailer) loop(ctx context.Context, r *run) {
	var err error

	defer func() {
		t.release()

		if err != nil {
			t.logger.Error("tailer failed", "error", err)
			t.mu.Lock()
			t.err = err
			t.mu.Unlock()
			t.state.Store(int32(StateFailed))
		} else {
			t.logger.Info("tailer stopped")
			t.state.Store(int32(StateStopped))
		}

		r.cancel()
		close(r.done)
	}()

	err = t.work(ctx, r)
}

// work registers, opens and then runs the event loop until stopped.
func (t *tailer) work(ctx context.Context, r *run) error {
	t.resetForRun()

	src, err := t.config.NewSource(t.logger)
	if err != nil {
		return fmt.Errorf("failed to create notification source: %w", err)
	}
	t.setSource(src)

	if err := src.Add(t.dir); err != nil {
		return fmt.Errorf("failed to register %s: %w", t.dir, err)
	}

	if err := t.openExisting(); err != nil {
		return err
	}

	t.state.Store(int32(StateRunning))
	close(r.started)
	t.logger.Info("tailer started", "dir", t.dir, "offset", t.lastSize)

	for !t.stopping(ctx) {
		batch, err := src.Take(ctx)
		if err != nil {
			if errors.Is(err, watcher.ErrInterrupted) || ctx.Err() != nil {
				t.logger.Debug("wait for notifications interrupted",
					"stop_requested", t.stopping(ctx))
				continue
			}
			return fmt.Errorf("%w: %w", ErrSourceFailed, err)
		}

		for i, ev := range batch {
			if !t.matches(ev) {
				continue
			}
			if err := t.event(ctx, ev, t.writePending(batch[i+1:])); err != nil {
				return err
			}
		}
	}

	return nil
}

func (t *tailer) stopping(ctx context.Context) bool {
	return t.stopRequested.Load() || ctx.Err() != nil
}

// resetForRun clears per-run worker state.
func (t *tailer) resetForRun() {
	t.closeHandle("restart")
	t.lastSize = 0
	t.lastSeen = 0
}

// openExisting opens the target if it already exists and moves the cursor
// to its end, so only later appends are delivered.
func (t *tailer) openExisting() error {
	info, err := t.fs.Stat(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			t.logger.Debug("file does not exist yet")
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", t.path, err)
	}
	if !info.Mode().IsRegular() {
		t.logger.Warn("target exists but is not a regular file, waiting for create",
			"mode", info.Mode().String())
		return nil
	}

	f, err := t.fs.Open(t.path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", t.path, err)
	}
	t.handle = f

	if info, err = f.Stat(); err != nil {
		return fmt.Errorf("failed to stat %s: %w", t.path, err)
	}
	t.lastSize = info.Size()
	t.lastSeen = t.lastSize

	t.logger.Debug("opened existing file", "offset", t.lastSize)
	return nil
}

// matches reports whether ev refers to the watched file.
func (t *tailer) matches(ev watcher.Event) bool {
	if filepath.Base(ev.Path) != t.file {
		return false
	}
	if filepath.Clean(filepath.Dir(ev.Path)) == t.dir {
		return true
	}

	// Same name reported under a different directory spelling.
	evInfo, err := t.fs.Stat(ev.Path)
	if err != nil {
		return false
	}
	targetInfo, err := t.fs.Stat(t.path)
	if err != nil {
		return false
	}
	return os.SameFile(evInfo, targetInfo)
}

func (t *tailer) setSource(src watcher.Source) {
	t.mu.Lock()
	t.source = src
	t.mu.Unlock()
}

// release closes the handle and the registration.
func (t *tailer) release() {
	t.closeHandle("exit")

	t.mu.Lock()
	src := t.source
	t.source = nil
	t.mu.Unlock()

	if src != nil {
		if err := src.Close(); err != nil {
			t.logger.Error("failed to close notification source", "error", err)
		}
	}
}

func (t *tailer) closeHandle(reason string) {
	if t.handle == nil {
		return
	}
	if err := t.handle.Close(); err != nil {
		t.logger.Error("failed to close file",
			"reason", reason,
			"error", err)
	}
	t.handle = nil
}
