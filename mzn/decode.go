package mzn

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// arrayHeader matches the start of an indexed array literal: array<D>d(
var arrayHeader = regexp.MustCompile(`^array(\w+?)d\(`)

// Decode parses the right-hand side of one assignment into a Value.
//
// Productions are tried in order, first match wins:
//
//	array<D>d(<specs>, [<flat values>])  -> indexed
//	[a, b, ...] or [| a, b | c, d |]    -> seq
//	true | false                         -> bool
//	base-10 integer                      -> int
//	float                                -> float
//	anything else                        -> atom
//
// ctx resolves named index sets and may be nil. Decode is a pure function of
// its inputs.
func Decode(text string, ctx IndexContext) (*Value, error) {
	s := strings.TrimSpace(text)

	if m := arrayHeader.FindStringSubmatch(s); m != nil {
		return decodeIndexed(s, m, ctx)
	}

	if strings.HasPrefix(s, "[") && matchClose(s, 0) == len(s)-1 {
		return decodeSeq(s, ctx)
	}

	return decodeScalar(s), nil
}

// MustDecode is like Decode but panics on error. Intended for tests and
// literals known to be valid.
func MustDecode(text string, ctx IndexContext) *Value {
	v, err := Decode(text, ctx)
	if err != nil {
		panic(err)
	}
	return v
}

// decodeScalar applies the literal productions; it never fails.
func decodeScalar(s string) *Value {
	switch s {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}

	if isIntString(s) {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return intLit(n, s)
		}
		// Overflow falls through to float
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil || errors.Is(err, strconv.ErrRange) {
		return floatLit(f, s)
	}

	return Atom(s)
}

// isIntString checks if a string looks like a base-10 integer.
func isIntString(s string) bool {
	if len(s) == 0 {
		return false
	}
	start := 0
	if s[0] == '-' || s[0] == '+' {
		start = 1
	}
	if start >= len(s) {
		return false
	}
	for i := start; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ============================================================
// Unindexed arrays
// ============================================================

// decodeSeq parses [a, b, c] and the row form [| a, b | c, d |].
func decodeSeq(s string, ctx IndexContext) (*Value, error) {
	body := strings.TrimSpace(s[1 : len(s)-1])

	if len(body) >= 2 && body[0] == '|' && body[len(body)-1] == '|' {
		inner := body[1 : len(body)-1]
		rows := splitTopLevel(inner, '|')
		out := make([]*Value, 0, len(rows))
		for _, row := range rows {
			cells, err := decodeCells(splitTopLevel(row, ','), ctx)
			if err != nil {
				return nil, err
			}
			out = append(out, Seq(cells...))
		}
		return Seq(out...), nil
	}

	cells, err := decodeCells(splitTopLevel(body, ','), ctx)
	if err != nil {
		return nil, err
	}
	return Seq(cells...), nil
}

func decodeCells(cells []string, ctx IndexContext) ([]*Value, error) {
	out := make([]*Value, 0, len(cells))
	for _, c := range cells {
		v, err := Decode(c, ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ============================================================
// Indexed arrays
// ============================================================

// decodeIndexed parses array<D>d(<specs>[<values>]). The specs may be
// separated from the value list by a comma, as the solver prints them.
func decodeIndexed(s string, m []string, ctx IndexContext) (*Value, error) {
	d, err := strconv.Atoi(m[1])
	if err != nil || d < 1 {
		return nil, &DecodeError{Kind: MalformedArrayHeader, Text: s, Msg: fmt.Sprintf("bad dimension %q", m[1])}
	}

	open := len(m[0]) - 1
	if !balanced(s) || matchClose(s, open) != len(s)-1 {
		return nil, &DecodeError{Kind: MalformedArrayHeader, Text: s, Msg: "unbalanced brackets"}
	}
	inner := strings.TrimSpace(s[open+1 : len(s)-1])

	vOpen := firstTopLevel(inner, '[')
	if vOpen < 0 || matchClose(inner, vOpen) != len(inner)-1 {
		return nil, &DecodeError{Kind: MalformedArrayHeader, Text: s, Msg: "missing value list"}
	}

	specText := strings.TrimSpace(inner[:vOpen])
	specText = strings.TrimSpace(strings.TrimSuffix(specText, ","))
	specParts := splitTopLevel(specText, ',')
	if len(specParts) != d {
		return nil, &DecodeError{Kind: MalformedArrayHeader, Text: s, Msg: fmt.Sprintf("want %d index sets, got %d", d, len(specParts))}
	}

	cur := &flatCursor{cells: splitTopLevel(inner[vOpen+1:len(inner)-1], ','), ctx: ctx}

	axes := make([]Axis, 0, d)
	for _, part := range specParts {
		spec, err := ParseIndexSpec(part)
		if err != nil {
			return nil, err
		}
		// Every axis holds at least one value, so no range can be longer
		// than the value list.
		if spec.IsRange() && spec.Low <= spec.High && uint64(spec.High)-uint64(spec.Low) >= uint64(len(cur.cells)) {
			return nil, &DecodeError{Kind: MalformedArrayHeader, Text: s, Msg: fmt.Sprintf("index set %s longer than %d values", spec, len(cur.cells))}
		}
		labels, err := spec.Resolve(ctx)
		if err != nil {
			return nil, err
		}
		axes = append(axes, Axis{Spec: spec, Labels: labels})
	}

	// Saturates once past the value count so the product cannot overflow.
	want := lo.Reduce(axes, func(n int, ax Axis, _ int) int {
		if n > len(cur.cells) {
			return n
		}
		return n * len(ax.Labels)
	}, 1)
	if len(cur.cells) != want {
		msg := fmt.Sprintf("want %d values, got %d", want, len(cur.cells))
		if want > len(cur.cells) {
			msg = fmt.Sprintf("index sets need more than %d values", len(cur.cells))
		}
		return nil, &DecodeError{Kind: MalformedArrayHeader, Text: s, Msg: msg}
	}

	elems, err := cur.fill(axes, make([]*Value, 0, want))
	if err != nil {
		return nil, err
	}
	return Indexed(axes, elems)
}

// flatCursor consumes the flat value list of an indexed array; recursive
// calls for inner dimensions share its position.
type flatCursor struct {
	cells []string
	pos   int
	ctx   IndexContext
}

func (c *flatCursor) fill(axes []Axis, out []*Value) ([]*Value, error) {
	if len(axes) == 1 {
		for _, l := range axes[0].Labels {
			if c.pos >= len(c.cells) {
				return nil, &DecodeError{Kind: MalformedArrayHeader, Msg: fmt.Sprintf("value list ends before index %s", l)}
			}
			cell := c.cells[c.pos]
			if cell == "" {
				return nil, &DecodeError{Kind: MalformedArrayHeader, Msg: fmt.Sprintf("empty value at index %s", l)}
			}
			v, err := Decode(cell, c.ctx)
			if err != nil {
				return nil, err
			}
			c.pos++
			out = append(out, v)
		}
		return out, nil
	}

	var err error
	for range axes[0].Labels {
		out, err = c.fill(axes[1:], out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// firstTopLevel returns the index of the first c at bracket depth 0, or -1.
func firstTopLevel(s string, c byte) int {
	depth := 0
	inQuote := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inQuote {
			if ch == '\\' && i+1 < len(s) {
				i++
				continue
			}
			if ch == '"' {
				inQuote = false
			}
			continue
		}
		if ch == c && depth == 0 {
			return i
		}
		switch ch {
		case '"':
			inQuote = true
		case '[', '(', '{':
			depth++
		case ']', ')', '}':
			depth--
		}
	}
	return -1
}
