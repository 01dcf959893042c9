package tailer

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmhha/filetail/pkg/logger"
	"github.com/0xmhha/filetail/pkg/watcher"
)

const (
	testDir  = "/logs"
	testPath = "/logs/app.log"
)

// harness drives a tailer over an in-memory file system and a scripted
// notification source.
type harness struct {
	t   *testing.T
	fs  *memFS
	src *fakeSource
	rec *recorder
	tl  Tailer
}

func newHarness(t *testing.T, rec *recorder, setup func(fs *memFS)) *harness {
	t.Helper()
	return newHarnessWith(t, rec, setup, nil)
}

// newHarnessWith is newHarness with tune applied to the tailer config.
func newHarnessWith(t *testing.T, rec *recorder, setup func(fs *memFS), tune func(*Config)) *harness {
	t.Helper()

	h := &harness{
		t:   t,
		fs:  newMemFS(),
		src: newFakeSource(),
		rec: rec,
	}
	if h.rec == nil {
		h.rec = &recorder{}
	}
	if setup != nil {
		setup(h.fs)
	}

	cfg := Config{
		Dir:              testDir,
		File:             "app.log",
		SizePollAttempts: 2,
		SizePollInterval: time.Millisecond,
		FS:               h.fs,
		NewSource: func(logger.Logger) (watcher.Source, error) {
			return h.src, nil
		},
	}
	if tune != nil {
		tune(&cfg)
	}

	tl, err := New(cfg, h.rec, logger.Noop())
	require.NoError(t, err)
	h.tl = tl

	require.NoError(t, tl.Start(context.Background()))
	require.True(t, tl.WaitForStart(time.Second))
	t.Cleanup(func() {
		tl.Stop()
		<-tl.Done()
	})
	return h
}

// send delivers one batch and waits until the worker asks for the next.
func (h *harness) send(events ...watcher.Event) {
	h.t.Helper()

	require.Eventually(h.t, h.src.waiting.Load, time.Second, time.Millisecond)
	before := h.src.takes.Load()
	h.src.batches <- events
	require.Eventually(h.t, func() bool {
		return h.src.takes.Load() > before && h.src.waiting.Load()
	}, time.Second, time.Millisecond)
}

// sendFatal delivers one batch and waits for the worker to exit.
func (h *harness) sendFatal(events ...watcher.Event) {
	h.t.Helper()

	h.src.batches <- events
	select {
	case <-h.tl.Done():
	case <-time.After(time.Second):
		h.t.Fatal("tailer did not exit")
	}
}

func ev(op watcher.Op) watcher.Event {
	return watcher.Event{Path: testPath, Op: op, Timestamp: time.Now()}
}

func TestExistingContentNotDelivered(t *testing.T) {
	var node *memNode
	h := newHarness(t, nil, func(fs *memFS) {
		node = fs.create(testPath, "old line\n")
	})

	node.append("new line\n")
	h.send(ev(watcher.OpWrite))

	assert.Equal(t, "new line\n", h.rec.received())
	assert.Equal(t, []string{"receive:new line\n"}, h.rec.snapshot())
}

func TestCreateThenAppend(t *testing.T) {
	h := newHarness(t, nil, nil)

	node := h.fs.create(testPath, "first\n")
	h.send(ev(watcher.OpCreate), ev(watcher.OpWrite))

	node.append("second\n")
	node.append("third\n")
	h.send(ev(watcher.OpWrite))

	assert.Equal(t, []string{
		"create",
		"receive:first\n",
		"receive:second\nthird\n",
	}, h.rec.snapshot())
	assert.Equal(t, int64(1), h.fs.open.Load())
}

func TestWriteWithoutGrowthDeliversNothing(t *testing.T) {
	h := newHarness(t, nil, func(fs *memFS) {
		fs.create(testPath, "steady\n")
	})

	h.send(ev(watcher.OpWrite), ev(watcher.OpChmod))

	assert.Empty(t, h.rec.snapshot())
	assert.True(t, h.tl.IsStarted())
}

func TestTruncateBelowCursor(t *testing.T) {
	var node *memNode
	h := newHarness(t, nil, func(fs *memFS) {
		node = fs.create(testPath, "")
	})

	node.append("test line 1\ntest line 2\n")
	h.send(ev(watcher.OpWrite))

	node.set("")
	h.send(ev(watcher.OpWrite))

	node.set("at4\nat5\n")
	h.send(ev(watcher.OpWrite))

	assert.Equal(t, []string{
		"receive:test line 1\ntest line 2\n",
		"truncate:true",
		"receive:at4\nat5\n",
	}, h.rec.snapshot())
}

func TestTruncateAndRefillInOneEvent(t *testing.T) {
	var node *memNode
	h := newHarness(t, nil, func(fs *memFS) {
		node = fs.create(testPath, "")
	})

	node.append("0123456789\n")
	h.send(ev(watcher.OpWrite))

	node.set("abc\n")
	h.send(ev(watcher.OpWrite))

	assert.Equal(t, []string{
		"receive:0123456789\n",
		"truncate:true",
		"receive:abc\n",
	}, h.rec.snapshot())
}

func TestTruncateAboveCursor(t *testing.T) {
	var node *memNode
	h := newHarness(t, nil, func(fs *memFS) {
		node = fs.create(testPath, "")
	})

	// A short read leaves the cursor behind the observed size.
	node.configure(func(n *memNode) { n.maxRead = 4 })
	node.append("abcdefghij")
	h.send(ev(watcher.OpWrite))

	// Shrink to a size between the cursor and the last observed size.
	node.configure(func(n *memNode) {
		n.maxRead = 0
		n.data = []byte("abcdefg")
	})
	h.send(ev(watcher.OpWrite))

	assert.Equal(t, []string{
		"receive:abcd",
		"truncate:false",
		"receive:efg",
	}, h.rec.snapshot())
}

func TestDeleteAndRecreate(t *testing.T) {
	h := newHarness(t, nil, func(fs *memFS) {
		fs.create(testPath, "old\n")
	})

	h.fs.remove(testPath)
	h.fs.create(testPath, "test line 6\n")
	h.send(ev(watcher.OpRemove), ev(watcher.OpCreate), ev(watcher.OpWrite))

	assert.Equal(t, []string{
		"delete",
		"create",
		"receive:test line 6\n",
	}, h.rec.snapshot())
	assert.Equal(t, int64(1), h.fs.open.Load())
}

func TestRenameAwayClosesHandle(t *testing.T) {
	h := newHarness(t, nil, func(fs *memFS) {
		fs.create(testPath, "rotating\n")
	})

	h.fs.remove(testPath)
	h.send(ev(watcher.OpRename))

	assert.Equal(t, []string{"delete"}, h.rec.snapshot())
	assert.Equal(t, int64(0), h.fs.open.Load())
}

func TestCreateOfVanishedFileIsSkipped(t *testing.T) {
	h := newHarness(t, nil, nil)

	h.send(ev(watcher.OpCreate))

	assert.Empty(t, h.rec.snapshot())
	assert.True(t, h.tl.IsStarted())
}

func TestEventsForOtherFilesIgnored(t *testing.T) {
	var node *memNode
	h := newHarness(t, nil, func(fs *memFS) {
		node = fs.create(testPath, "")
		fs.create("/logs/other.log", "")
	})

	node.append("mine\n")
	h.send(
		watcher.Event{Path: "/logs/other.log", Op: watcher.OpWrite},
		watcher.Event{Path: "/logs/app.log.1", Op: watcher.OpCreate},
		watcher.Event{Path: "/elsewhere/app.log", Op: watcher.OpRemove},
	)
	assert.Empty(t, h.rec.snapshot())

	h.send(ev(watcher.OpWrite))
	assert.Equal(t, "mine\n", h.rec.received())
}

func TestEndOfFileRaceReopens(t *testing.T) {
	var node *memNode
	h := newHarness(t, nil, func(fs *memFS) {
		node = fs.create(testPath, "")
	})

	node.append("hello\n")
	h.send(ev(watcher.OpWrite))

	// Stat claims more data than a read can return.
	node.configure(func(n *memNode) { n.size = 20 })
	h.send(ev(watcher.OpWrite))
	assert.Equal(t, []string{"receive:hello\n"}, h.rec.snapshot())

	// The stream restarted at offset zero.
	node.configure(func(n *memNode) { n.size = 0 })
	node.append("world\n")
	h.send(ev(watcher.OpWrite))

	assert.Equal(t, []string{
		"receive:hello\n",
		"receive:hello\nworld\n",
	}, h.rec.snapshot())
	assert.Equal(t, int64(1), h.fs.open.Load())
}

func TestReadErrorKeepsCursor(t *testing.T) {
	var node *memNode
	h := newHarness(t, nil, func(fs *memFS) {
		node = fs.create(testPath, "")
	})

	node.configure(func(n *memNode) { n.readErr = errors.New("i/o error") })
	node.append("retry me\n")
	h.send(ev(watcher.OpWrite))
	assert.Empty(t, h.rec.snapshot())
	assert.True(t, h.tl.IsStarted())

	node.configure(func(n *memNode) { n.readErr = nil })
	h.send(ev(watcher.OpWrite))
	assert.Equal(t, "retry me\n", h.rec.received())
}

func TestStatErrorAssumesNoGrowth(t *testing.T) {
	var node *memNode
	h := newHarness(t, nil, func(fs *memFS) {
		node = fs.create(testPath, "")
	})

	node.configure(func(n *memNode) { n.statErr = errors.New("stale handle") })
	node.append("hidden\n")
	h.send(ev(watcher.OpWrite))
	assert.Empty(t, h.rec.snapshot())

	node.configure(func(n *memNode) { n.statErr = nil })
	h.send(ev(watcher.OpWrite))
	assert.Equal(t, "hidden\n", h.rec.received())
}

func TestWriteWithoutHandleIsFatal(t *testing.T) {
	h := newHarness(t, nil, nil)

	h.sendFatal(ev(watcher.OpWrite))

	assert.Equal(t, StateFailed, h.tl.State())
	assert.ErrorIs(t, h.tl.Err(), ErrNoHandle)
	assert.True(t, h.src.closed.Load())
}

func TestCreateOfDirectoryIsFatal(t *testing.T) {
	h := newHarness(t, nil, nil)

	h.fs.mkdir(testPath)
	h.sendFatal(ev(watcher.OpCreate))

	assert.Equal(t, StateFailed, h.tl.State())
	assert.ErrorIs(t, h.tl.Err(), ErrNotRegularFile)
	assert.Empty(t, h.rec.snapshot())
}

func TestExistingDirectoryAtStartupWaits(t *testing.T) {
	h := newHarness(t, nil, func(fs *memFS) {
		fs.mkdir(testPath)
	})

	assert.True(t, h.tl.IsStarted())
	assert.Equal(t, int64(0), h.fs.open.Load())

	h.fs.create(testPath, "now a file\n")
	h.send(ev(watcher.OpCreate))
	assert.Equal(t, []string{"create", "receive:now a file\n"}, h.rec.snapshot())
}

func TestSourceErrorIsFatal(t *testing.T) {
	h := newHarness(t, nil, nil)

	h.src.errs <- errors.New("queue overflow")
	<-h.tl.Done()

	assert.Equal(t, StateFailed, h.tl.State())
	assert.ErrorIs(t, h.tl.Err(), ErrSourceFailed)
	assert.ErrorContains(t, h.tl.Err(), "queue overflow")
	assert.True(t, h.src.closed.Load())
}

func TestObserverErrorReportedOnce(t *testing.T) {
	rec := &recorder{failOn: "OnReceive"}
	var node *memNode
	h := newHarness(t, rec, func(fs *memFS) {
		node = fs.create(testPath, "")
	})

	node.append("one\n")
	h.send(ev(watcher.OpWrite))
	node.append("two\n")
	h.send(ev(watcher.OpWrite))

	assert.Equal(t, "one\ntwo\n", rec.received())
	assert.Equal(t, []string{
		"OnReceive: OnReceive refused",
		"OnReceive: OnReceive refused",
	}, rec.faultList())
	assert.True(t, h.tl.IsStarted())
}

func TestObserverPanicRecovered(t *testing.T) {
	rec := &recorder{failOn: "panic:OnCreate", panicInFault: true}
	h := newHarness(t, rec, nil)

	node := h.fs.create(testPath, "payload\n")
	h.send(ev(watcher.OpCreate))

	faults := rec.faultList()
	require.Len(t, faults, 1)
	assert.Contains(t, faults[0], "OnCreate")
	assert.Contains(t, faults[0], "OnCreate exploded")
	assert.Equal(t, []string{"create", "receive:payload\n"}, rec.snapshot())

	node.append("more\n")
	h.send(ev(watcher.OpWrite))
	assert.Equal(t, "payload\nmore\n", rec.received())
	assert.True(t, h.tl.IsStarted())
}

func TestInterruptKeepsRunning(t *testing.T) {
	var node *memNode
	h := newHarness(t, nil, func(fs *memFS) {
		node = fs.create(testPath, "")
	})

	require.Eventually(t, h.src.waiting.Load, time.Second, time.Millisecond)
	before := h.src.takes.Load()
	h.tl.Interrupt()
	require.Eventually(t, func() bool {
		return h.src.takes.Load() > before
	}, time.Second, time.Millisecond)
	assert.True(t, h.tl.IsStarted())

	node.append("still here\n")
	h.send(ev(watcher.OpWrite))
	assert.Equal(t, "still here\n", h.rec.received())
}

func TestStopReleasesResources(t *testing.T) {
	h := newHarness(t, nil, func(fs *memFS) {
		fs.create(testPath, "x\n")
	})
	require.Equal(t, int64(1), h.fs.open.Load())

	h.tl.Stop()
	<-h.tl.Done()

	assert.Equal(t, StateStopped, h.tl.State())
	assert.False(t, h.tl.IsStarted())
	assert.NoError(t, h.tl.Err())
	assert.True(t, h.src.closed.Load())
	assert.Equal(t, int64(0), h.fs.open.Load())
}

func TestStartupStatFailure(t *testing.T) {
	src := newFakeSource()
	tl, err := New(Config{
		Dir:  testDir,
		File: "app.log",
		FS:   statFailFS{newMemFS()},
		NewSource: func(logger.Logger) (watcher.Source, error) {
			return src, nil
		},
	}, &recorder{}, logger.Noop())
	require.NoError(t, err)

	require.NoError(t, tl.Start(context.Background()))
	assert.False(t, tl.WaitForStart(time.Second))
	assert.ErrorIs(t, tl.Err(), os.ErrPermission)
	assert.Equal(t, StateFailed, tl.State())
	assert.True(t, src.closed.Load())
}

type statFailFS struct{ *memFS }

func (statFailFS) Stat(name string) (os.FileInfo, error) {
	return nil, &os.PathError{Op: "stat", Path: name, Err: os.ErrPermission}
}

func TestSizeVisibleAfterLaggingStat(t *testing.T) {
	var node *memNode
	h := newHarness(t, nil, func(fs *memFS) {
		node = fs.create(testPath, "old\n")
	})

	// The first stat misses the append, the second sees it.
	node.lag(1)
	node.append("late\n")
	h.send(ev(watcher.OpWrite))
	assert.Equal(t, []string{"receive:late\n"}, h.rec.snapshot())

	h.send(ev(watcher.OpWrite))
	assert.Equal(t, []string{"receive:late\n"}, h.rec.snapshot())
}

func TestSizeLaggingPastAttempts(t *testing.T) {
	var node *memNode
	h := newHarness(t, nil, func(fs *memFS) {
		node = fs.create(testPath, "old\n")
	})

	// Every attempt misses the append; the next event picks it up.
	node.lag(2)
	node.append("late\n")
	h.send(ev(watcher.OpWrite))
	assert.Empty(t, h.rec.snapshot())

	h.send(ev(watcher.OpWrite))
	assert.Equal(t, []string{"receive:late\n"}, h.rec.snapshot())

	h.send(ev(watcher.OpWrite))
	assert.Equal(t, []string{"receive:late\n"}, h.rec.snapshot())
}

func TestWriteBurstPollsOnce(t *testing.T) {
	const attempts = 50

	var node *memNode
	h := newHarnessWith(t, nil, func(fs *memFS) {
		node = fs.create(testPath, "")
	}, func(cfg *Config) {
		cfg.SizePollAttempts = attempts
	})

	node.append("burst\n")
	before := node.stats()
	h.send(
		ev(watcher.OpWrite),
		ev(watcher.OpWrite),
		ev(watcher.OpWrite),
		ev(watcher.OpWrite),
		ev(watcher.OpWrite),
	)

	// The first write delivers, the next three check once each and only
	// the last one polls the full budget.
	assert.Equal(t, 1+3+attempts, node.stats()-before)
	assert.Equal(t, []string{"receive:burst\n"}, h.rec.snapshot())
}

func TestLargeAppendDeliveredInChunks(t *testing.T) {
	var node *memNode
	h := newHarnessWith(t, nil, func(fs *memFS) {
		node = fs.create(testPath, "")
	}, func(cfg *Config) {
		cfg.MaxReadSize = 4
	})

	node.append("abcdefghij")
	h.send(ev(watcher.OpWrite))

	assert.Equal(t, []string{
		"receive:abcd",
		"receive:efgh",
		"receive:ij",
	}, h.rec.snapshot())
}
