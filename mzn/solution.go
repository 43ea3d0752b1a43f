package mzn

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/samber/lo"
)

// ErrMissingField is returned by Record when a requested field was not
// assigned in the solution.
var ErrMissingField = errors.New("mzn: missing field")

// Solution is one decoded result block: variable name -> value, in the
// order the variables were first assigned.
type Solution struct {
	names  []string
	values map[string]*Value
}

// NewSolution creates an empty solution.
func NewSolution() *Solution {
	return &Solution{values: make(map[string]*Value)}
}

// Set assigns a variable. A repeated name keeps its first position.
func (s *Solution) Set(name string, v *Value) {
	if _, ok := s.values[name]; !ok {
		s.names = append(s.names, name)
	}
	s.values[name] = v
}

// Get returns the value of a variable, or nil.
func (s *Solution) Get(name string) *Value {
	return s.values[name]
}

// Lookup returns the value of a variable and whether it was assigned.
func (s *Solution) Lookup(name string) (*Value, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Names returns the variable names in first-assigned order.
func (s *Solution) Names() []string {
	return s.names
}

// Len returns the number of variables.
func (s *Solution) Len() int {
	return len(s.names)
}

// IsEmpty returns true when no variable was assigned ("satisfy" with no
// output variables).
func (s *Solution) IsEmpty() bool {
	return len(s.names) == 0
}

// All iterates name/value pairs in order.
func (s *Solution) All() iter.Seq2[string, *Value] {
	return func(yield func(string, *Value) bool) {
		for _, name := range s.names {
			if !yield(name, s.values[name]) {
				return
			}
		}
	}
}

// Record returns the values of the requested fields, in the requested order.
// A field absent from the solution fails with ErrMissingField.
func (s *Solution) Record(fields ...string) ([]*Value, error) {
	missing := lo.Filter(fields, func(f string, _ int) bool {
		_, ok := s.values[f]
		return !ok
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}
	return lo.Map(fields, func(f string, _ int) *Value { return s.values[f] }), nil
}

// ParseFields splits a field list given as "a b c" or "a, b, c".
func ParseFields(spec string) []string {
	return strings.FieldsFunc(spec, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}

// Equal reports whether two solutions hold the same names, order and values.
func (s *Solution) Equal(o *Solution) bool {
	if s.Len() != o.Len() {
		return false
	}
	for i, name := range s.names {
		if o.names[i] != name || !Equal(s.values[name], o.values[name]) {
			return false
		}
	}
	return true
}
