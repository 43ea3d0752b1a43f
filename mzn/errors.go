package mzn

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// ErrorKind classifies decode failures.
type ErrorKind uint8

const (
	MalformedArrayHeader ErrorKind = iota + 1
	UnknownIndexSet
	MalformedAssignment
	StructuredFallback
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case MalformedArrayHeader:
		return "malformed array header"
	case UnknownIndexSet:
		return "unknown index set"
	case MalformedAssignment:
		return "malformed assignment"
	case StructuredFallback:
		return "structured block"
	default:
		return "decode error"
	}
}

// Sentinels for errors.Is matching on a DecodeError kind.
var (
	ErrMalformedArrayHeader = errors.New("mzn: malformed array header")
	ErrUnknownIndexSet      = errors.New("mzn: unknown index set")
	ErrMalformedAssignment  = errors.New("mzn: malformed assignment")
	ErrStructuredFallback   = errors.New("mzn: structured block decode failure")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case MalformedArrayHeader:
		return ErrMalformedArrayHeader
	case UnknownIndexSet:
		return ErrUnknownIndexSet
	case MalformedAssignment:
		return ErrMalformedAssignment
	case StructuredFallback:
		return ErrStructuredFallback
	default:
		return nil
	}
}

// DecodeError reports a failure to decode one assignment or one block.
// Every DecodeError is local: the stream carries on after it.
type DecodeError struct {
	Kind    ErrorKind
	Line    int    // 1-based input line, when known
	Var     string // Variable being assigned, when known
	Name    string // Offending index set identifier (UnknownIndexSet)
	Suggest string // Closest known index set name, if any
	Text    string // Offending text fragment
	Msg     string
	Err     error // Underlying cause
}

func (e *DecodeError) Error() string {
	msg := "mzn: "
	if e.Line > 0 {
		msg += fmt.Sprintf("line %d: ", e.Line)
	}
	msg += e.Kind.String()
	if e.Var != "" {
		msg += " in " + e.Var
	}
	if e.Name != "" {
		msg += fmt.Sprintf(" %q", e.Name)
	}
	if e.Suggest != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggest)
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Text != "" {
		msg += ": " + truncate(e.Text, 80)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinel.
func (e *DecodeError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// unknownIndexSet builds an UnknownIndexSet error, suggesting the closest
// known name when the context can list its names.
func unknownIndexSet(name string, ctx IndexContext) *DecodeError {
	err := &DecodeError{Kind: UnknownIndexSet, Name: name}
	if lister, ok := ctx.(interface{ Names() []string }); ok {
		err.Suggest = closestName(name, lister.Names())
	}
	return err
}

// closestName picks a candidate containing target's letters in order, else
// the candidate within a small edit distance.
func closestName(target string, candidates []string) string {
	if ranks := fuzzy.RankFindFold(target, candidates); len(ranks) > 0 {
		best := ranks[0]
		for _, r := range ranks[1:] {
			if r.Distance < best.Distance {
				best = r
			}
		}
		return best.Target
	}

	best, bestDist := "", len(target)/2+1
	for _, c := range candidates {
		if d := fuzzy.LevenshteinDistance(strings.ToLower(target), strings.ToLower(c)); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
