// Package display renders tail events and journal records for the terminal.
//
// A Printer is a tailer.Observer that writes each event as it arrives:
// received bytes are split into lines, with a trailing partial line held
// back until its newline arrives or the stream restarts. A Formatter writes
// journal records for the stats command.
package display

import (
	"io"

	"github.com/0xmhha/filetail/pkg/journal"
)

// Format represents an output format.
type Format string

const (
	// FormatText writes human-readable lines.
	FormatText Format = "text"

	// FormatJSON writes one JSON object per line (events) or a JSON
	// document (records).
	FormatJSON Format = "json"
)

// Printer writes tail events. It satisfies tailer.Observer.
type Printer interface {
	OnCreate(path string) error
	OnDelete(path string) error
	OnTruncate(path string, belowThreshold bool) error
	OnReceive(path string, data []byte) error
	OnObserverFault(method string, err error)

	// Flush writes any held-back partial line.
	Flush() error
}

// Formatter formats journal records.
type Formatter interface {
	// FormatRecords writes records.
	//
	// Parameters:
	//   - w: Output writer
	//   - records: Records to format, in display order
	//
	// Returns error if formatting fails.
	FormatRecords(w io.Writer, records []*journal.Record) error
}

// Config contains display configuration.
type Config struct {
	// Format specifies the output format.
	// Default: FormatText.
	Format Format

	// Color enables ANSI colors in text output.
	// Default: false. See ResolveColor.
	Color bool

	// ShowPath prefixes text lines with the file path.
	// Default: false.
	ShowPath bool

	// Compact enables compact output (less whitespace).
	// Default: false.
	Compact bool
}
