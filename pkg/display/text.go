package display

import (
	"fmt"
	"io"
	"sync"
)

// textPrinter writes events as plain lines.
type textPrinter struct {
	w      io.Writer
	config Config

	mu      sync.Mutex
	buffers map[string]*lineBuffer
}

// OnCreate implements Printer.OnCreate.
func (p *textPrinter) OnCreate(path string) error {
	return p.notice(path, "file created", ansiGreen)
}

// OnDelete implements Printer.OnDelete.
func (p *textPrinter) OnDelete(path string) error {
	return p.notice(path, "file deleted", ansiRed)
}

// OnTruncate implements Printer.OnTruncate.
func (p *textPrinter) OnTruncate(path string, belowThreshold bool) error {
	if !belowThreshold {
		return p.notice(path, "file shrank", ansiYellow)
	}
	return p.notice(path, "file truncated", ansiYellow)
}

// OnReceive implements Printer.OnReceive.
func (p *textPrinter) OnReceive(path string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, line := range p.buffer(path).split(data) {
		if err := p.writeLine(path, line); err != nil {
			return err
		}
	}
	return nil
}

// OnObserverFault implements Printer.OnObserverFault. Faults are logged by
// the tailer.
func (p *textPrinter) OnObserverFault(string, error) {}

// Flush implements Printer.Flush.
func (p *textPrinter) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for path := range p.buffers {
		if err := p.flushPath(path); err != nil {
			return err
		}
	}
	return nil
}

// notice flushes path's partial line and writes a lifecycle notice.
func (p *textPrinter) notice(path, what, color string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.flushPath(path); err != nil {
		return err
	}

	msg := fmt.Sprintf("==> %s: %s <==", path, what)
	if !p.config.Compact {
		msg = "\n" + msg
	}
	_, err := fmt.Fprintln(p.w, paint(p.config.Color, color, msg))
	return err
}

func (p *textPrinter) flushPath(path string) error {
	b, ok := p.buffers[path]
	if !ok {
		return nil
	}
	if line, ok := b.flush(); ok {
		return p.writeLine(path, line)
	}
	return nil
}

func (p *textPrinter) writeLine(path, line string) error {
	var err error
	if p.config.ShowPath {
		_, err = fmt.Fprintf(p.w, "%s %s\n", paint(p.config.Color, ansiCyan, path+":"), line)
	} else {
		_, err = fmt.Fprintln(p.w, line)
	}
	return err
}

func (p *textPrinter) buffer(path string) *lineBuffer {
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
