package mzn

import (
	"errors"
	"regexp"
	"strings"
)

// Status is the result of feeding one line to an Accumulator.
type Status uint8

const (
	Pending   Status = iota // Statement not complete yet, more lines needed
	Completed               // A full "name = value;" statement was recognized
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case Completed:
		return "COMPLETED"
	default:
		return "UNKNOWN"
	}
}

// Outcome is what one Feed call produced.
type Outcome struct {
	Status Status
	Name   string // Assigned variable (Completed)
	Value  *Value // Decoded value (Completed without error)
}

// statement is the full-statement gate, tested against the joined buffer.
var statement = regexp.MustCompile(`^(\w+)\s*=\s*(.+)\s*;$`)

// Accumulator joins physical lines until they form one complete
// "name = value;" statement, then decodes the value.
//
// Line breaks inside literals carry no meaning, so the buffer is a single
// growing string re-tested after every line. Memory is bounded by one
// statement. Not safe for concurrent use.
type Accumulator struct {
	ctx   IndexContext
	frags []string
	text  strings.Builder
}

// NewAccumulator creates an accumulator resolving index sets through ctx.
func NewAccumulator(ctx IndexContext) *Accumulator {
	return &Accumulator{ctx: ctx}
}

// Feed appends one line and tests for a complete statement. Blank lines
// before a statement starts are ignored.
//
// On a decode error the outcome is still Completed (with the variable name and
// a nil value) and the buffer is cleared, so the next statement decodes
// normally.
func (a *Accumulator) Feed(line string) (Outcome, error) {
	if len(a.frags) == 0 {
		line = strings.TrimLeft(line, " \t")
		if line == "" {
			return Outcome{Status: Pending}, nil
		}
	} else {
		a.text.WriteByte(' ')
	}
	a.frags = append(a.frags, line)
	a.text.WriteString(line)

	m := statement.FindStringSubmatch(a.text.String())
	if m == nil {
		return Outcome{Status: Pending}, nil
	}
	a.Reset()

	name := m[1]
	v, err := Decode(m[2], a.ctx)
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) && de.Var == "" {
			de.Var = name
		}
		return Outcome{Status: Completed, Name: name}, err
	}
	return Outcome{Status: Completed, Name: name, Value: v}, nil
}

// Pending returns the raw fragments buffered since the last statement.
func (a *Accumulator) Pending() []string {
	return a.frags
}

// Text returns the buffered fragments joined with single spaces.
func (a *Accumulator) Text() string {
	return a.text.String()
}

// Reset drops the buffer.
func (a *Accumulator) Reset() {
	a.frags = a.frags[:0]
	a.text.Reset()
}
