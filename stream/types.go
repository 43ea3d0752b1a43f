// Package stream reads solver output from byte streams and decodes it
// into solutions.
//
// A LineSource yields physical lines with trailing whitespace removed.
// LineReader implements it over any io.Reader, optionally decompressing
// recorded transcripts (gzip, zstd) and transcoding legacy encodings.
// Decoder pulls lines from a LineSource and yields one mzn.Solution per
// solution boundary:
//
//	dec := stream.NewDecoder(stream.NewLineReader(stdout), sets)
//	for sol, err := range dec.All() {
//	    ...
//	}
//
// Decode errors are local to one assignment or block and do not end the
// sequence; errors from the LineSource do.
package stream

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// LineSource yields lines one at a time. Next returns io.EOF at the end of
// input.
type LineSource interface {
	Next() (string, error)
}

// MaxLineSize is the default maximum line length (64 MiB). Large arrays
// are printed on one line.
const MaxLineSize = 64 * 1024 * 1024

// ErrLineTooLong is returned when a line exceeds the configured maximum.
var ErrLineTooLong = errors.New("stream: line too long")

// ReadError reports a failure of the underlying reader.
type ReadError struct {
	Line int // Line being read (1-based)
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("stream: line %d: %v", e.Line, e.Err)
}

// Unwrap returns the underlying error.
func (e *ReadError) Unwrap() error {
	return e.Err
}

// ============================================================
// SliceSource
// ============================================================

// SliceSource is a LineSource over lines held in memory.
type SliceSource struct {
	lines []string
	pos   int
}

// NewSliceSource creates a source yielding lines in order.
func NewSliceSource(lines ...string) *SliceSource {
	return &SliceSource{lines: lines}
}

// SplitLines creates a source over text split at newlines. A final
// newline does not produce an empty trailing line.
func SplitLines(text string) *SliceSource {
	text = strings.TrimSuffix(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if text == "" {
		return NewSliceSource()
	}
	return NewSliceSource(strings.Split(text, "\n")...)
}

// Next implements LineSource.
func (s *SliceSource) Next() (string, error) {
	if s.pos >= len(s.lines) {
		return "", io.EOF
	}
	line := s.lines[s.pos]
	s.pos++
	return line, nil
}
