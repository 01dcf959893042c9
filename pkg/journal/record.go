package journal

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// apply folds e into r.
//
// Create, delete and a truncate that invalidated the cursor restart the
// stream, clearing Offset and the digest.
func (r *Record) apply(e Entry) error {
	if r.FirstSeen.IsZero() {
		r.FirstSeen = e.Time
	}
	r.UpdatedAt = e.Time

	switch e.Kind {
	case KindCreate:
		r.Creates++
		r.restart()

	case KindDelete:
		r.Deletes++
		r.restart()

	case KindTruncate:
		r.Truncates++
		if e.BelowThreshold {
			r.restart()
		}

	case KindReceive:
		r.Receives++
		r.Bytes += uint64(len(e.Data))
		r.Offset += int64(len(e.Data))
		return r.hash(e.Data)

	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}

	return nil
}

// restart clears the stream state. Digest becomes the hash of no bytes.
func (r *Record) restart() {
	r.Offset = 0
	r.Digest = xxhash.Sum64(nil)
	r.DigestState = nil
}

// newRecord returns an empty record for path.
func newRecord(path string) *Record {
	r := &Record{Path: path}
	r.restart()
	return r
}

// hash extends the running digest with data.
func (r *Record) hash(data []byte) error {
	d := xxhash.New()
	if len(r.DigestState) > 0 {
		if err := d.UnmarshalBinary(r.DigestState); err != nil {
			return fmt.Errorf("failed to restore digest: %w", err)
		}
	}

	_, _ = d.Write(data) // never fails

	state, err := d.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to save digest: %w", err)
	}
	r.DigestState = state
	r.Digest = d.Sum64()
	return nil
}

// clone returns a deep copy of r.
func (r *Record) clone() *Record {
	c := *r
	c.DigestState = append([]byte(nil), r.DigestState...)
	return &c
}
