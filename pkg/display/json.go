package display

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/0xmhha/filetail/pkg/journal"
)

// jsonEvent is one line of JSON event output.
type jsonEvent struct {
	Time           time.Time `json:"time"`
	Path           string    `json:"path"`
	Event          string    `json:"event"`
	Line           *string   `json:"line,omitempty"`
	BelowThreshold *bool     `json:"below_threshold,omitempty"`
}

// jsonPrinter writes events as JSON lines.
type jsonPrinter struct {
	w      io.Writer
	config Config
	now    func() time.Time

	mu      sync.Mutex
	buffers map[string]*lineBuffer
}

// OnCreate implements Printer.OnCreate.
func (p *jsonPrinter) OnCreate(path string) error {
	return p.event(path, jsonEvent{Event: "create"})
}

// OnDelete implements Printer.OnDelete.
func (p *jsonPrinter) OnDelete(path string) error {
	return p.event(path, jsonEvent{Event: "delete"})
}

// OnTruncate implements Printer.OnTruncate.
func (p *jsonPrinter) OnTruncate(path string, belowThreshold bool) error {
	return p.event(path, jsonEvent{Event: "truncate", BelowThreshold: &belowThreshold})
}

// OnReceive implements Printer.OnReceive.
func (p *jsonPrinter) OnReceive(path string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, line := range p.buffer(path).split(data) {
		if err := p.writeLine(path, line); err != nil {
			return err
		}
	}
	return nil
}

// OnObserverFault implements Printer.OnObserverFault.
func (p *jsonPrinter) OnObserverFault(string, error) {}

// Flush implements Printer.Flush.
func (p *jsonPrinter) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for path := range p.buffers {
		if err := p.flushPath(path); err != nil {
			return err
		}
	}
	return nil
}

func (p *jsonPrinter) event(path string, ev jsonEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.flushPath(path); err != nil {
		return err
	}
	return p.write(path, ev)
}

func (p *jsonPrinter) flushPath(path string) error {
	b, ok := p.buffers[path]
	if !ok {
		return nil
	}
	if line, ok := b.flush(); ok {
		return p.writeLine(path, line)
	}
	return nil
}

func (p *jsonPrinter) writeLine(path, line string) error {
	return p.write(path, jsonEvent{Event: "line", Line: &line})
}

func (p *jsonPrinter) write(path string, ev jsonEvent) error {
	ev.Time = p.now().UTC()
	ev.Path = path
	return json.NewEncoder(p.w).Encode(ev)
}

func (p *jsonPrinter) buffer(path string) *lineBuffer {
	if p.buffers == nil {
		p.buffers = make(map[string]*lineBuffer)
	}
	b, ok := p.buffers[path]
	if !ok {
		b = &lineBuffer{}
		p.buffers[path] = b
	}
	return b
}

// jsonFormatter formats records as JSON.
type jsonFormatter struct {
	config Config
}

// FormatRecords implements Formatter.FormatRecords.
func (f *jsonFormatter) FormatRecords(w io.Writer, records []*journal.Record) error {
	if records == nil {
		records = []*journal.Record{}
	}

	encoder := json.NewEncoder(w)
	if !f.config.Compact {
		encoder.SetIndent("", "  ")
	}

	return encoder.Encode(records)
}
