package stream

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/text/encoding/htmlindex"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// LineReader reads lines from an io.Reader.
type LineReader struct {
	src        io.Reader
	r          *bufio.Reader
	closers    []io.Closer
	maxLine    int
	encoding   string
	decompress bool
	line       int
	err        error // sticky setup or read error
}

// ReaderOption configures a LineReader.
type ReaderOption func(*LineReader)

// WithMaxLineSize sets the maximum line length (default: 64 MiB).
func WithMaxLineSize(max int) ReaderOption {
	return func(r *LineReader) {
		r.maxLine = max
	}
}

// WithEncoding decodes the input from the named encoding (WHATWG names and
// aliases such as "latin1", "windows-1252", "utf-16le"). Default: utf-8.
func WithEncoding(name string) ReaderOption {
	return func(r *LineReader) {
		r.encoding = name
	}
}

// WithDecompression enables transparent decompression of gzip and zstd
// input, detected by magic number. Other input is read as is.
func WithDecompression() ReaderOption {
	return func(r *LineReader) {
		r.decompress = true
	}
}

// NewLineReader creates a line reader. The input is not touched until the
// first call to Next.
func NewLineReader(r io.Reader, opts ...ReaderOption) *LineReader {
	lr := &LineReader{
		src:     r,
		maxLine: MaxLineSize,
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

func (lr *LineReader) setup() error {
	in := lr.src

	if lr.decompress {
		br := bufio.NewReader(in)
		magic, _ := br.Peek(len(zstdMagic))
		switch {
		case bytes.HasPrefix(magic, gzipMagic):
			zr, err := gzip.NewReader(br)
			if err != nil {
				return fmt.Errorf("stream: gzip: %w", err)
			}
			lr.closers = append(lr.closers, zr)
			in = zr
		case bytes.HasPrefix(magic, zstdMagic):
			zr, err := zstd.NewReader(br)
			if err != nil {
				return fmt.Errorf("stream: zstd: %w", err)
			}
			rc := zr.IOReadCloser()
			lr.closers = append(lr.closers, rc)
			in = rc
		default:
			in = br
		}
	}

	if lr.encoding != "" {
		enc, err := htmlindex.Get(lr.encoding)
		if err != nil {
			return fmt.Errorf("stream: encoding %q: %w", lr.encoding, err)
		}
		if name, _ := htmlindex.Name(enc); name != "utf-8" {
			in = enc.NewDecoder().Reader(in)
		}
	}

	lr.r = bufio.NewReaderSize(in, 64*1024)
	return nil
}

// Next implements LineSource. Trailing whitespace (including \r) is removed.
// A last line without a newline is still returned.
func (lr *LineReader) Next() (string, error) {
	if lr.err != nil {
		return "", lr.err
	}
	if lr.r == nil {
		if err := lr.setup(); err != nil {
			lr.err = err
			return "", err
		}
	}

	lr.line++
	var buf []byte
	for {
		chunk, err := lr.r.ReadSlice('\n')
		if len(buf)+len(chunk) > lr.maxLine {
			lr.err = &ReadError{Line: lr.line, Err: ErrLineTooLong}
			return "", lr.err
		}
		buf = append(buf, chunk...)
		if err == bufio.ErrBufferFull {
			continue
		}
		if err == io.EOF {
			if len(buf) == 0 {
				lr.line--
				lr.err = io.EOF
				return "", io.EOF
			}
			break
		}
		if err != nil {
			lr.err = &ReadError{Line: lr.line, Err: err}
			return "", lr.err
		}
		break
	}
	return strings.TrimRightFunc(string(buf), unicode.IsSpace), nil
}

// Line returns the number of lines returned so far.
func (lr *LineReader) Line() int {
	return lr.line
}

// Close releases decompressors. It does not close the underlying reader.
func (lr *LineReader) Close() error {
	var first error
	for _, c := range lr.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	lr.closers = nil
	return first
}
