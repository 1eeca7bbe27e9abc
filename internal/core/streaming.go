package core

// streaming.go provides the counting reader used for read-phase progress.
//
// Byte-level hygiene (BOM stripping, UTF-8 repair) happens inside the
// pipeline once the input is fully buffered, so the only streaming concern
// left here is tracking how much of the upload has been consumed.

import (
	"io"
)

// CountingReader wraps an io.Reader to track bytes read.
// Used for progress reporting while a run ingests its input.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
	Total     int64 // If known (0 if unknown)
}

// NewCountingReader creates a counting reader with an optional total size.
func NewCountingReader(r io.Reader, total int64) *CountingReader {
	return &CountingReader{
		reader: r,
		Total:  total,
	}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// Progress returns the read progress as a percentage (0-100).
// Returns 0 if the total is unknown.
func (r *CountingReader) Progress() int {
	if r.Total <= 0 {
		return 0
	}
	pct := int(r.BytesRead * 100 / r.Total)
	if pct > 100 {
		pct = 100
	}
	return pct
}
