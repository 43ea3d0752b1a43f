package mzn

import (
	"math"
	"strconv"
	"strings"
)

// ============================================================
// Literal rendering
// ============================================================

// String renders the value in solver literal syntax. Decode reads the
// result back to an equal value.
func (v *Value) String() string {
	var b strings.Builder
	writeValue(&b, v)
	return b.String()
}

func writeValue(b *strings.Builder, v *Value) {
	if v == nil {
		b.WriteString("<nil>")
		return
	}
	switch v.kind {
	case KindBool:
		if v.boolVal {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case KindInt:
		b.WriteString(v.literal())
	case KindFloat:
		if v.lit != "" {
			b.WriteString(v.lit)
		} else {
			b.WriteString(canonFloat(v.floatVal))
		}
	case KindAtom:
		b.WriteString(v.atomVal)
	case KindSeq:
		b.WriteByte('[')
		for i, e := range v.seqVal {
			if i > 0 {
				b.WriteString(", ")
			}
			writeValue(b, e)
		}
		b.WriteByte(']')
	case KindIndexed:
		a := v.indexedVal
		b.WriteString("array")
		b.WriteString(strconv.Itoa(len(a.axes)))
		b.WriteString("d(")
		for _, ax := range a.axes {
			b.WriteString(ax.Spec.String())
			b.WriteString(", ")
		}
		b.WriteByte('[')
		for i, e := range a.elems {
			if i > 0 {
				b.WriteString(", ")
			}
			writeValue(b, e)
		}
		b.WriteString("])")
	}
}

// canonFloat returns the shortest round-trip spelling of f that still reads
// back as a float (always has a '.', an exponent or is non-finite).
func canonFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "infinity"
	case math.IsInf(f, -1):
		return "-infinity"
	case math.IsNaN(f):
		return "nan"
	}
	if f == 0 {
		return "0.0"
	}

	s := strconv.FormatFloat(f, 'g', -1, 64)
	s = strings.ReplaceAll(s, "E", "e")
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
