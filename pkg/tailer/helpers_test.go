package tailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/0xmhha/filetail/pkg/watcher"
)

// recorder is a thread-safe Observer that keeps every call.
type recorder struct {
	mu     sync.Mutex
	events []string
	data   strings.Builder
	faults []string

	// failOn makes the named method return an error ("OnReceive") or
	// panic ("panic:OnReceive").
	failOn string
	// panicInFault makes OnObserverFault panic.
	panicInFault bool
}

func (r *recorder) record(method, event string) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	failOn := r.failOn
	r.mu.Unlock()

	switch failOn {
	case method:
		return fmt.Errorf("%s refused", method)
	case "panic:" + method:
		panic(method + " exploded")
	}
	return nil
}

func (r *recorder) OnCreate(string) error { return r.record("OnCreate", "create") }
func (r *recorder) OnDelete(string) error { return r.record("OnDelete", "delete") }

func (r *recorder) OnTruncate(_ string, belowThreshold bool) error {
	return r.record("OnTruncate", fmt.Sprintf("truncate:%t", belowThreshold))
}

func (r *recorder) OnReceive(_ string, data []byte) error {
	r.mu.Lock()
	r.data.Write(data)
	r.mu.Unlock()
	return r.record("OnReceive", "receive:"+string(data))
}

func (r *recorder) OnObserverFault(method string, err error) {
	r.mu.Lock()
	r.faults = append(r.faults, method+": "+err.Error())
	panicInFault := r.panicInFault
	r.mu.Unlock()

	if panicInFault {
		panic("fault handler exploded")
	}
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) received() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data.String()
}

func (r *recorder) faultList() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.faults...)
}

func (r *recorder) count(event string) int {
	n := 0
	for _, e := range r.snapshot() {
		if e == event {
			n++
		}
	}
	return n
}

// fakeSource is a scripted notification source.
type fakeSource struct {
	batches chan []watcher.Event
	errs    chan error
	wake    chan struct{}

	addErr   error
	addBlock chan struct{}

	waiting atomic.Bool
	takes   atomic.Int64
	closed  atomic.Bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		batches: make(chan []watcher.Event),
		errs:    make(chan error),
		wake:    make(chan struct{}, 1),
	}
}

func (s *fakeSource) Add(string) error {
	if s.addBlock != nil {
		<-s.addBlock
	}
	return s.addErr
}

func (s *fakeSource) Take(ctx context.Context) ([]watcher.Event, error) {
	s.takes.Add(1)
	s.waiting.Store(true)
	defer s.waiting.Store(false)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.wake:
		return nil, watcher.ErrInterrupted
	case b := <-s.batches:
		return b, nil
	case err := <-s.errs:
		return nil, err
	}
}

func (s *fakeSource) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *fakeSource) Close() error {
	s.closed.Store(true)
	return nil
}

// memNode is one in-memory file instance.
type memNode struct {
	mu      sync.Mutex
	data    []byte
	dir     bool
	maxRead int   // >0 caps bytes per ReadAt
	size    int64 // >0 overrides the size reported by Stat
	readErr error
	statErr error

	// staleStats handle Stats still report staleSize, the size before
	// the latest append.
	staleStats int
	staleSize  int64
	statCalls  int
}

func (n *memNode) set(data string) {
	n.mu.Lock()
	n.data = []byte(data)
	n.mu.Unlock()
}

func (n *memNode) append(data string) {
	n.mu.Lock()
	n.data = append(n.data, data...)
	n.mu.Unlock()
}

// lag makes the next k handle Stats report the current size, however
// much is appended meanwhile.
func (n *memNode) lag(k int) {
	n.mu.Lock()
	n.staleStats = k
	n.staleSize = int64(len(n.data))
	n.mu.Unlock()
}

func (n *memNode) stats() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.statCalls
}

func (n *memNode) configure(fn func(n *memNode)) {
	n.mu.Lock()
	fn(n)
	n.mu.Unlock()
}

func (n *memNode) info(name string) os.FileInfo {
	size := int64(len(n.data))
	if n.size > 0 {
		size = n.size
	}
	mode := os.FileMode(0600)
	if n.dir {
		mode |= os.ModeDir
	}
	return memInfo{name: name, size: size, mode: mode, node: n}
}

type memInfo struct {
	name string
	size int64
	mode os.FileMode
	node *memNode
}

func (i memInfo) Name() string       { return i.name }
func (i memInfo) Size() int64        { return i.size }
func (i memInfo) Mode() os.FileMode  { return i.mode }
func (i memInfo) ModTime() time.Time { return time.Time{} }
func (i memInfo) IsDir() bool        { return i.mode.IsDir() }
func (i memInfo) Sys() interface{}   { return i.node }

// memFS maps paths to nodes. Removing a path keeps open handles usable.
type memFS struct {
	mu    sync.Mutex
	nodes map[string]*memNode
	open  atomic.Int64
}

func newMemFS() *memFS {
	return &memFS{nodes: make(map[string]*memNode)}
}

func (fs *memFS) create(name, data string) *memNode {
	n := &memNode{data: []byte(data)}
	fs.mu.Lock()
	fs.nodes[name] = n
	fs.mu.Unlock()
	return n
}

func (fs *memFS) mkdir(name string) {
	fs.mu.Lock()
	fs.nodes[name] = &memNode{dir: true}
	fs.mu.Unlock()
}

func (fs *memFS) remove(name string) {
	fs.mu.Lock()
	delete(fs.nodes, name)
	fs.mu.Unlock()
}

func (fs *memFS) lookup(name string) (*memNode, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	n, ok := fs.nodes[name]
	if !ok {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrNotExist}
	}
	return n, nil
}

func (fs *memFS) Open(name string) (File, error) {
	n, err := fs.lookup(name)
	if err != nil {
		return nil, err
	}
	fs.open.Add(1)
	return &memHandle{fs: fs, node: n, name: name}, nil
}

func (fs *memFS) Stat(name string) (os.FileInfo, error) {
	n, err := fs.lookup(name)
	if err != nil {
		return nil, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.info(name), nil
}

type memHandle struct {
	fs     *memFS
	node   *memNode
	name   string
	closed atomic.Bool
}

func (h *memHandle) ReadAt(p []byte, off int64) (int, error) {
	h.node.mu.Lock()
	defer h.node.mu.Unlock()

	if h.node.readErr != nil {
		return 0, h.node.readErr
	}
	if off >= int64(len(h.node.data)) {
		return 0, io.EOF
	}
	want := p
	if h.node.maxRead > 0 && len(want) > h.node.maxRead {
		want = want[:h.node.maxRead]
	}
	n := copy(want, h.node.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (h *memHandle) Stat() (os.FileInfo, error) {
	h.node.mu.Lock()
	defer h.node.mu.Unlock()

	h.node.statCalls++
	if h.node.statErr != nil {
		return nil, h.node.statErr
	}
	info := h.node.info(h.name)
	if h.node.staleStats > 0 {
		h.node.staleStats--
		stale := info.(memInfo)
		stale.size = h.node.staleSize
		return stale, nil
	}
	return info, nil
}

func (h *memHandle) Close() error {
	if h.closed.Swap(true) {
		return errors.New("already closed")
	}
	h.fs.open.Add(-1)
	return nil
}
