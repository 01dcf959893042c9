package display

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// NewPrinter creates an event printer writing to w.
//
// Parameters:
//   - w: Output writer
//   - cfg: Display configuration
//
// Returns a configured Printer.
func NewPrinter(w io.Writer, cfg Config) Printer {
	switch cfg.Format {
	case FormatJSON:
		return &jsonPrinter{w: w, config: cfg, now: time.Now}
	default:
		return &textPrinter{w: w, config: cfg}
	}
}

// NewFormatter creates a record formatter based on configuration.
func NewFormatter(cfg Config) Formatter {
	switch cfg.Format {
	case FormatJSON:
		return &jsonFormatter{config: cfg}
	default:
		return &tableFormatter{config: cfg}
	}
}

// formatNumber formats a number with thousand separators.
func formatNumber(n uint64) string {
	s := fmt.Sprintf("%d", n)
	if n < 1000 {
		return s
	}

	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// formatBytes formats a byte count using binary units.
func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// writeHeader writes a section header.
func writeHeader(w io.Writer, title string, compact bool) error {
	if compact {
		_, err := fmt.Fprintf(w, "%s\n", title)
		return err
	}

	_, err := fmt.Fprintf(w, "\n%s\n%s\n\n", title, strings.Repeat("=", len(title)))
	return err
}
