package stream

import (
	"errors"
	"io"
	"iter"

	"github.com/enigmatic-code/minizinc/mzn"
)

// Decoder yields solutions from a LineSource.
//
// Not safe for concurrent use.
type Decoder struct {
	src  LineSource
	opts mzn.DriverOptions
	drv  *mzn.Driver

	unique bool
	seen   map[[32]byte]struct{}
	dups   int

	line      int
	queued    error // decode error reported after the solution it belongs to
	done      bool
	discarded bool
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithoutStructuredFallback decodes every block as assignments, even when
// it starts with '{'.
func WithoutStructuredFallback() DecoderOption {
	return func(d *Decoder) {
		d.opts.StructuredFallback = false
	}
}

// WithDriverOptions replaces the driver options.
func WithDriverOptions(opts mzn.DriverOptions) DecoderOption {
	return func(d *Decoder) {
		d.opts = opts
	}
}

// WithUnique drops solutions identical to one already yielded.
func WithUnique() DecoderOption {
	return func(d *Decoder) {
		d.unique = true
		d.seen = make(map[[32]byte]struct{})
	}
}

// NewDecoder creates a decoder over src. ctx resolves named index sets and
// may be nil.
func NewDecoder(src LineSource, ctx mzn.IndexContext, opts ...DecoderOption) *Decoder {
	d := &Decoder{
		src:  src,
		opts: mzn.DefaultDriverOptions(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.drv = mzn.NewDriver(ctx, d.opts)
	return d
}

// Next returns the next solution.
//
// A *mzn.DecodeError is recoverable: the failing assignment or block is
// skipped and the next call continues with the following input. Any other
// error comes from the LineSource and ends the stream. Returns io.EOF when
// no more solutions are available; a trailing block without a boundary is
// dropped (see Discarded).
func (d *Decoder) Next() (*mzn.Solution, error) {
	if d.queued != nil {
		err := d.queued
		d.queued = nil
		return nil, err
	}
	if d.done {
		return nil, io.EOF
	}

	for {
		line, err := d.src.Next()
		if err != nil {
			d.done = true
			d.discarded = d.drv.Discarded()
			return nil, err
		}
		d.line++

		sol, err := d.drv.Feed(line)
		if err != nil {
			var de *mzn.DecodeError
			if errors.As(err, &de) && de.Line == 0 {
				de.Line = d.line
			}
		}
		if sol == nil {
			if err != nil {
				return nil, err
			}
			continue
		}

		if d.unique {
			h := SolutionHash(sol)
			if _, ok := d.seen[h]; ok {
				d.dups++
				if err != nil {
					return nil, err
				}
				continue
			}
			d.seen[h] = struct{}{}
		}
		d.queued = err
		return sol, nil
	}
}

// All returns the solutions as a lazy sequence. Breaking out of the loop
// stops reading; the sequence cannot be restarted. Decode errors appear as
// (nil, err) elements, a source error is the last element.
func (d *Decoder) All() iter.Seq2[*mzn.Solution, error] {
	return func(yield func(*mzn.Solution, error) bool) {
		for {
			sol, err := d.Next()
			if err == io.EOF {
				return
			}
			if !yield(sol, err) {
				return
			}
			if err != nil && !isDecodeError(err) {
				return
			}
		}
	}
}

// ReadAll reads all solutions until EOF. Decode errors are skipped; the
// first error seen is returned with the solutions.
func (d *Decoder) ReadAll() ([]*mzn.Solution, error) {
	var (
		sols  []*mzn.Solution
		first error
	)
	for sol, err := range d.All() {
		if err != nil {
			if first == nil {
				first = err
			}
			continue
		}
		sols = append(sols, sol)
	}
	return sols, first
}

// Status returns the last search status line seen, e.g. mzn.StatusComplete.
func (d *Decoder) Status() string {
	return d.drv.Status()
}

// Discarded reports whether input after the last boundary was dropped at
// end of stream.
func (d *Decoder) Discarded() bool {
	return d.discarded
}

// Duplicates returns the number of solutions dropped by WithUnique.
func (d *Decoder) Duplicates() int {
	return d.dups
}

// Line returns the number of lines consumed.
func (d *Decoder) Line() int {
	return d.line
}

func isDecodeError(err error) bool {
	var de *mzn.DecodeError
	return errors.As(err, &de)
}
