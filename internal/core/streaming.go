package core

// streaming.go wraps raw source readers so the CSV parser always sees clean
// UTF-8 text:
//
//   - a leading UTF-8 BOM (common in spreadsheet exports) is stripped
//   - invalid UTF-8 sequences are replaced with U+FFFD
//   - bytes consumed are counted for the run report
//
// Everything is streamed; no source is loaded fully into memory.

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CountingReader tracks the number of bytes read through it.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
	Total     int64 // 0 if unknown
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// Progress returns BytesRead as a percentage of Total, or 0 if Total is unknown.
func (r *CountingReader) Progress() int {
	if r.Total <= 0 {
		return 0
	}
	return int(r.BytesRead * 100 / r.Total)
}

// NewTextReader strips a UTF-8 BOM from r and replaces invalid UTF-8.
func NewTextReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
}

// WrapForStreaming applies NewTextReader and counts the raw bytes consumed.
// Counting happens below the decoder, so BytesRead matches the file size.
func WrapForStreaming(r io.Reader, totalSize int64) (io.Reader, *CountingReader) {
	counter := &CountingReader{reader: r, Total: totalSize}
	return NewTextReader(counter), counter
}
