package display

import (
	"bytes"
	"strings"
)

// lineBuffer splits a byte stream into lines, holding back a trailing
// partial line until its newline arrives.
type lineBuffer struct {
	partial []byte
}

// split returns the complete lines in data, the first one prefixed by any
// held-back bytes. Lines exclude the newline and a preceding carriage return.
func (b *lineBuffer) split(data []byte) []string {
	var lines []string

	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}

		line := data[:i]
		if len(b.partial) > 0 {
			line = append(b.partial, line...)
			b.partial = nil
		}
		lines = append(lines, strings.TrimSuffix(string(line), "\r"))
		data = data[i+1:]
	}

	b.partial = append(b.partial, data...)
	return lines
}

// flush returns and clears the held-back partial line.
func (b *lineBuffer) flush() (string, bool) {
	if len(b.partial) == 0 {
		return "", false
	}

	line := string(b.partial)
	b.partial = nil
	return line, true
}
