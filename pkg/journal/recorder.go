package journal

import (
	"time"

	"github.com/0xmhha/filetail/pkg/logger"
)

// Recorder writes tail events to a Store. It satisfies tailer.Observer.
type Recorder struct {
	store  Store
	logger logger.Logger
	now    func() time.Time
}

// NewRecorder creates a Recorder writing to store.
func NewRecorder(store Store, log logger.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: log.Component("journal"),
		now:    time.Now,
	}
}

// OnCreate records a create.
func (r *Recorder) OnCreate(path string) error {
	return r.store.Record(Entry{Path: path, Kind: KindCreate, Time: r.now()})
}

// OnDelete records a delete.
func (r *Recorder) OnDelete(path string) error {
	return r.store.Record(Entry{Path: path, Kind: KindDelete, Time: r.now()})
}

// OnTruncate records a truncation.
func (r *Recorder) OnTruncate(path string, belowThreshold bool) error {
	return r.store.Record(Entry{
		Path:           path,
		Kind:           KindTruncate,
		Time:           r.now(),
		BelowThreshold: belowThreshold,
	})
}

// OnReceive records delivered bytes.
func (r *Recorder) OnReceive(path string, data []byte) error {
	return r.store.Record(Entry{Path: path, Kind: KindReceive, Time: r.now(), Data: data})
}

// OnObserverFault logs the failed callback.
func (r *Recorder) OnObserverFault(method string, err error) {
	r.logger.Warn("event not journaled", "method", method, "error", err)
}
