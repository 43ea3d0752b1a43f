package mzn

import (
	"regexp"
	"strings"
)

// boundary is a solution separator line, tested after trimming.
var boundary = regexp.MustCompile(`^-+$`)

// statusLine is a search status line such as ========== or =====UNSATISFIABLE=====.
var statusLine = regexp.MustCompile(`^=====(\w*)=====$`)

// Search status words reported by the solver after the last solution.
const (
	StatusComplete         = "COMPLETE" // ==========, the search space was exhausted
	StatusUnsatisfiable    = "UNSATISFIABLE"
	StatusUnknown          = "UNKNOWN"
	StatusError            = "ERROR"
	StatusUnbounded        = "UNBOUNDED"
	StatusUnsatOrUnbounded = "UNSATorUNBOUNDED"
)

// DriverOptions configures a Driver.
type DriverOptions struct {
	// StructuredFallback decodes a block whose first line starts with '{'
	// as one JSON document instead of assignments (default: true)
	StructuredFallback bool

	// SkipComments ignores '%' comment lines between statements (default: true)
	SkipComments bool
}

// DefaultDriverOptions returns the default options.
func DefaultDriverOptions() DriverOptions {
	return DriverOptions{
		StructuredFallback: true,
		SkipComments:       true,
	}
}

// Driver turns solver output lines into solutions. Lines are pushed with
// Feed; a Solution comes out at every boundary line.
//
// Not safe for concurrent use.
type Driver struct {
	opts DriverOptions
	acc  *Accumulator
	sol  *Solution

	structured bool     // current block is a JSON document
	block      []string // raw lines of a JSON block

	status    string
	solutions int
}

// NewDriver creates a driver resolving index sets through ctx (may be nil).
func NewDriver(ctx IndexContext, opts DriverOptions) *Driver {
	return &Driver{
		opts: opts,
		acc:  NewAccumulator(ctx),
		sol:  NewSolution(),
	}
}

// Feed consumes one line.
//
// At a boundary line it returns the finished Solution, which may be empty.
// Otherwise the Solution is nil. A non-nil error reports a failure local to
// one assignment or one block:
//   - a failed assignment: the rest of the block is unaffected
//   - text left unterminated at a boundary: returned with the Solution
//   - an invalid JSON block: the block yields no Solution
//
// The driver continues normally after any error.
func (d *Driver) Feed(line string) (*Solution, error) {
	t := strings.TrimSpace(line)

	if boundary.MatchString(t) {
		return d.emit()
	}
	if m := statusLine.FindStringSubmatch(t); m != nil {
		d.status = m[1]
		if d.status == "" {
			d.status = StatusComplete
		}
		return nil, nil
	}

	if d.structured {
		d.block = append(d.block, line)
		return nil, nil
	}

	if len(d.acc.Pending()) == 0 {
		if d.opts.SkipComments && strings.HasPrefix(t, "%") {
			return nil, nil
		}
		if d.opts.StructuredFallback && d.sol.IsEmpty() && strings.HasPrefix(t, "{") {
			d.structured = true
			d.block = append(d.block[:0], line)
			return nil, nil
		}
	}

	out, err := d.acc.Feed(line)
	if err != nil {
		return nil, err
	}
	if out.Status == Completed {
		d.sol.Set(out.Name, out.Value)
	}
	return nil, nil
}

func (d *Driver) emit() (*Solution, error) {
	sol := d.sol
	d.sol = NewSolution()

	if d.structured {
		doc, err := DecodeJSONBlock(strings.Join(d.block, "\n"))
		d.structured = false
		d.block = d.block[:0]
		if err != nil {
			return nil, err
		}
		d.solutions++
		return doc, nil
	}

	d.solutions++
	if len(d.acc.Pending()) > 0 {
		err := &DecodeError{
			Kind: MalformedAssignment,
			Text: d.acc.Text(),
			Msg:  "statement not terminated before boundary",
		}
		d.acc.Reset()
		return sol, err
	}
	return sol, nil
}

// Status returns the last search status seen (StatusComplete,
// StatusUnsatisfiable, ...), or "" if the solver printed none.
func (d *Driver) Status() string {
	return d.status
}

// Solutions returns the number of solutions emitted so far.
func (d *Driver) Solutions() int {
	return d.solutions
}

// Discarded reports whether input is buffered without a closing boundary.
// At end of input such a trailing block is dropped.
func (d *Driver) Discarded() bool {
	return !d.sol.IsEmpty() || len(d.acc.Pending()) > 0 || d.structured
}

// Reset returns the driver to its initial state.
func (d *Driver) Reset() {
	d.acc.Reset()
	d.sol = NewSolution()
	d.structured = false
	d.block = d.block[:0]
	d.status = ""
	d.solutions = 0
}
