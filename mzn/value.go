package mzn

import (
	"fmt"
	"iter"
	"strconv"
)

// Kind represents the variant of a decoded value.
type Kind uint8

const (
	KindBool Kind = iota
	KindInt
	KindFloat
	KindSeq     // Unindexed array literal: [a, b] or [| a | b |]
	KindIndexed // Indexed array literal: arrayNd(...)
	KindAtom    // Verbatim fallback token
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindSeq:
		return "seq"
	case KindIndexed:
		return "indexed"
	case KindAtom:
		return "atom"
	default:
		return "unknown"
	}
}

// Value is a decoded solver value. Values are immutable once constructed.
type Value struct {
	kind Kind

	// Scalar values (only one valid based on kind)
	boolVal  bool
	intVal   int64
	floatVal float64
	atomVal  string

	// lit keeps the source spelling of numeric literals for exact decimal access.
	lit string

	// Container values
	seqVal     []*Value
	indexedVal *IndexedArray
}

// Axis is one dimension of an indexed array.
type Axis struct {
	Spec   IndexSpec // Index set as written in the literal
	Labels []Label   // Resolved labels, in order
}

// IndexedArray is a dense N-dimensional array whose axes carry labels.
// Elements are stored flat in row-major order (outermost axis varies slowest).
type IndexedArray struct {
	axes  []Axis
	elems []*Value
	pos   []map[Label]int // label -> position, per axis
}

// ============================================================
// Constructors
// ============================================================

// Bool creates a boolean value.
func Bool(v bool) *Value {
	return &Value{kind: KindBool, boolVal: v}
}

// Int creates an integer value.
func Int(v int64) *Value {
	return &Value{kind: KindInt, intVal: v}
}

// Float creates a float value.
func Float(v float64) *Value {
	return &Value{kind: KindFloat, floatVal: v}
}

// Seq creates an unindexed array value.
func Seq(values ...*Value) *Value {
	return &Value{kind: KindSeq, seqVal: values}
}

// Atom creates a verbatim token value.
func Atom(s string) *Value {
	return &Value{kind: KindAtom, atomVal: s}
}

// Indexed creates an indexed array value from its axes and row-major elements.
// The number of elements must equal the product of the axis lengths.
func Indexed(axes []Axis, elems []*Value) (*Value, error) {
	if len(axes) == 0 {
		return nil, fmt.Errorf("mzn: indexed array needs at least one axis")
	}
	size := 1
	pos := make([]map[Label]int, len(axes))
	for i, ax := range axes {
		size *= len(ax.Labels)
		pos[i] = make(map[Label]int, len(ax.Labels))
		for j, l := range ax.Labels {
			pos[i][l] = j
		}
	}
	if size != len(elems) {
		return nil, fmt.Errorf("mzn: indexed array has %d elements, axes need %d", len(elems), size)
	}
	return &Value{
		kind:       KindIndexed,
		indexedVal: &IndexedArray{axes: axes, elems: elems, pos: pos},
	}, nil
}

// floatLit creates a float value remembering its source spelling.
func floatLit(v float64, lit string) *Value {
	return &Value{kind: KindFloat, floatVal: v, lit: lit}
}

// intLit creates an int value remembering its source spelling.
func intLit(v int64, lit string) *Value {
	return &Value{kind: KindInt, intVal: v, lit: lit}
}

// ============================================================
// Accessors
// ============================================================

// Kind returns the value variant.
func (v *Value) Kind() Kind {
	return v.kind
}

// AsBool returns the boolean value.
func (v *Value) AsBool() (bool, error) {
	if v == nil {
		return false, fmt.Errorf("mzn: nil value")
	}
	if v.kind != KindBool {
		return false, fmt.Errorf("mzn: expected bool, got %s", v.kind)
	}
	return v.boolVal, nil
}

// AsInt returns the integer value.
func (v *Value) AsInt() (int64, error) {
	if v == nil {
		return 0, fmt.Errorf("mzn: nil value")
	}
	if v.kind != KindInt {
		return 0, fmt.Errorf("mzn: expected int, got %s", v.kind)
	}
	return v.intVal, nil
}

// AsFloat returns the float value.
func (v *Value) AsFloat() (float64, error) {
	if v == nil {
		return 0, fmt.Errorf("mzn: nil value")
	}
	if v.kind != KindFloat {
		return 0, fmt.Errorf("mzn: expected float, got %s", v.kind)
	}
	return v.floatVal, nil
}

// AsAtom returns the verbatim token.
func (v *Value) AsAtom() (string, error) {
	if v == nil {
		return "", fmt.Errorf("mzn: nil value")
	}
	if v.kind != KindAtom {
		return "", fmt.Errorf("mzn: expected atom, got %s", v.kind)
	}
	return v.atomVal, nil
}

// AsSeq returns the elements of an unindexed array.
func (v *Value) AsSeq() ([]*Value, error) {
	if v == nil {
		return nil, fmt.Errorf("mzn: nil value")
	}
	if v.kind != KindSeq {
		return nil, fmt.Errorf("mzn: expected seq, got %s", v.kind)
	}
	return v.seqVal, nil
}

// AsIndexed returns the indexed array.
func (v *Value) AsIndexed() (*IndexedArray, error) {
	if v == nil {
		return nil, fmt.Errorf("mzn: nil value")
	}
	if v.kind != KindIndexed {
		return nil, fmt.Errorf("mzn: expected indexed, got %s", v.kind)
	}
	return v.indexedVal, nil
}

// Len returns the number of elements of a seq or indexed array.
func (v *Value) Len() int {
	switch v.kind {
	case KindSeq:
		return len(v.seqVal)
	case KindIndexed:
		return len(v.indexedVal.elems)
	default:
		return 0
	}
}

// Index returns the i-th element of a seq (0-based).
func (v *Value) Index(i int) (*Value, error) {
	if v == nil || v.kind != KindSeq {
		return nil, fmt.Errorf("mzn: not a seq")
	}
	if i < 0 || i >= len(v.seqVal) {
		return nil, fmt.Errorf("mzn: index %d out of bounds (len=%d)", i, len(v.seqVal))
	}
	return v.seqVal[i], nil
}

// Number returns a numeric value as float64 if int or float.
func (v *Value) Number() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.intVal), true
	case KindFloat:
		return v.floatVal, true
	default:
		return 0, false
	}
}

// Truthy reports whether the value counts as set in a 0/1 or bool encoding.
func (v *Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.boolVal
	case KindInt:
		return v.intVal != 0
	case KindFloat:
		return v.floatVal != 0
	default:
		return false
	}
}

// ============================================================
// IndexedArray
// ============================================================

// Dims returns the number of dimensions.
func (a *IndexedArray) Dims() int {
	return len(a.axes)
}

// Axes returns the array axes, outermost first.
func (a *IndexedArray) Axes() []Axis {
	return a.axes
}

// Elems returns the row-major element list.
func (a *IndexedArray) Elems() []*Value {
	return a.elems
}

// At returns the element at the composite index, one label per axis.
func (a *IndexedArray) At(labels ...Label) (*Value, bool) {
	if len(labels) != len(a.axes) {
		return nil, false
	}
	off := 0
	for i, l := range labels {
		p, ok := a.pos[i][l]
		if !ok {
			return nil, false
		}
		off = off*len(a.axes[i].Labels) + p
	}
	return a.elems[off], true
}

// Get is At for integer labels.
func (a *IndexedArray) Get(idx ...int64) (*Value, bool) {
	labels := make([]Label, len(idx))
	for i, n := range idx {
		labels[i] = IntLabel(n)
	}
	return a.At(labels...)
}

// All iterates the elements in row-major order together with their index tuple.
// The tuple slice is reused between iterations.
func (a *IndexedArray) All() iter.Seq2[[]Label, *Value] {
	return func(yield func([]Label, *Value) bool) {
		if len(a.elems) == 0 {
			return
		}
		tuple := make([]Label, len(a.axes))
		cur := make([]int, len(a.axes))
		for off, elem := range a.elems {
			for i, c := range cur {
				tuple[i] = a.axes[i].Labels[c]
			}
			if !yield(tuple, elem) {
				return
			}
			if off == len(a.elems)-1 {
				return
			}
			for i := len(cur) - 1; i >= 0; i-- {
				cur[i]++
				if cur[i] < len(a.axes[i].Labels) {
					break
				}
				cur[i] = 0
			}
		}
	}
}

// Row returns the sub-array selected by a label of the outermost axis.
// For a one-dimensional array this is the element itself.
func (a *IndexedArray) Row(l Label) (*Value, bool) {
	p, ok := a.pos[0][l]
	if !ok {
		return nil, false
	}
	if len(a.axes) == 1 {
		return a.elems[p], true
	}
	stride := len(a.elems) / len(a.axes[0].Labels)
	sub, err := Indexed(a.axes[1:], a.elems[p*stride:(p+1)*stride])
	if err != nil {
		return nil, false
	}
	return sub, true
}

// ============================================================
// Equality
// ============================================================

// Equal reports structural equality of two values.
// Source spellings of numeric literals are ignored.
func Equal(a, b *Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindBool:
		return a.boolVal == b.boolVal
	case KindInt:
		return a.intVal == b.intVal
	case KindFloat:
		return a.floatVal == b.floatVal
	case KindAtom:
		return a.atomVal == b.atomVal
	case KindSeq:
		if len(a.seqVal) != len(b.seqVal) {
			return false
		}
		for i := range a.seqVal {
			if !Equal(a.seqVal[i], b.seqVal[i]) {
				return false
			}
		}
		return true
	case KindIndexed:
		x, y := a.indexedVal, b.indexedVal
		if len(x.axes) != len(y.axes) || len(x.elems) != len(y.elems) {
			return false
		}
		for i := range x.axes {
			if x.axes[i].Spec != y.axes[i].Spec || !equalLabels(x.axes[i].Labels, y.axes[i].Labels) {
				return false
			}
		}
		for i := range x.elems {
			if !Equal(x.elems[i], y.elems[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func equalLabels(a, b []Label) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// GoString implements fmt.GoStringer for test diagnostics.
func (v *Value) GoString() string {
	if v == nil {
		return "<nil>"
	}
	return v.kind.String() + "(" + v.String() + ")"
}

// literal returns the source spelling of a numeric value, or its canonical form.
func (v *Value) literal() string {
	if v.lit != "" {
		return v.lit
	}
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.intVal, 10)
	case KindFloat:
		return canonFloat(v.floatVal)
	}
	return ""
}
