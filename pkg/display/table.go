package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/0xmhha/filetail/pkg/journal"
)

// tableFormatter formats records as tables.
type tableFormatter struct {
	config Config
}

// FormatRecords implements Formatter.FormatRecords.
func (f *tableFormatter) FormatRecords(w io.Writer, records []*journal.Record) error {
	if err := writeHeader(w, "Journal", f.config.Compact); err != nil {
		return err
	}

	header := []string{"Path", "Creates", "Deletes", "Truncates", "Receives", "Bytes", "Offset", "Digest", "Updated"}

	rows := make([][]string, len(records))
	for i, rec := range records {
		rows[i] = []string{
			rec.Path,
			formatNumber(rec.Creates),
			formatNumber(rec.Deletes),
			formatNumber(rec.Truncates),
			formatNumber(rec.Receives),
			formatBytes(rec.Bytes),
			formatNumber(uint64(rec.Offset)),
			fmt.Sprintf("%016x", rec.Digest),
			rec.UpdatedAt.Local().Format("2006-01-02 15:04:05"),
		}
	}

	return f.writeTable(w, header, rows)
}

// writeTable writes a formatted table.
func (f *tableFormatter) writeTable(w io.Writer, header []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No journal records")
		return err
	}

	// Calculate column widths.
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	// Write header.
	if err := f.writeRow(w, header, widths); err != nil {
		return err
	}

	// Write separator.
	if !f.config.Compact {
		separator := make([]string, len(header))
		for i, width := range widths {
			separator[i] = strings.Repeat("-", width)
		}
		if err := f.writeRow(w, separator, widths); err != nil {
			return err
		}
	}

	// Write rows.
	for _, row := range rows {
		if err := f.writeRow(w, row, widths); err != nil {
			return err
		}
	}

	// Add spacing.
	if !f.config.Compact {
		_, err := fmt.Fprintln(w)
		return err
	}

	return nil
}

// writeRow writes a single table row.
func (f *tableFormatter) writeRow(w io.Writer, cells []string, widths []int) error {
	for i, cell := range cells {
		if i > 0 {
			if f.config.Compact {
				if _, err := fmt.Fprint(w, " "); err != nil {
					return err
				}
			} else {
				if _, err := fmt.Fprint(w, "  "); err != nil {
					return err
				}
			}
		}

		format := fmt.Sprintf("%%-%ds", widths[i])
		if _, err := fmt.Fprintf(w, format, cell); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(w)
	return err
}
