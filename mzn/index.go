package mzn

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Label is one index label of an array axis: an integer or a symbol.
// Labels are comparable and can be used as map keys.
type Label struct {
	Sym string // Symbolic label (enum member); empty for integer labels
	Num int64  // Integer label, valid when Sym is empty
}

// IntLabel creates an integer label.
func IntLabel(n int64) Label {
	return Label{Num: n}
}

// SymLabel creates a symbolic label.
func SymLabel(s string) Label {
	return Label{Sym: s}
}

// IsSymbolic returns true for enum-style labels.
func (l Label) IsSymbolic() bool {
	return l.Sym != ""
}

// String returns the label as it would appear in a model.
func (l Label) String() string {
	if l.Sym != "" {
		return l.Sym
	}
	return strconv.FormatInt(l.Num, 10)
}

// IndexContext resolves a named index set to its ordered labels.
//
// Implementations must be safe for concurrent reads; decoding never mutates
// the context.
type IndexContext interface {
	Lookup(name string) ([]Label, bool)
}

// IndexSpec is one index set of an indexed array literal: an inclusive
// integer range or the name of an index set defined in the model.
type IndexSpec struct {
	Name string // Named index set; empty for ranges
	Low  int64
	High int64
}

// Range creates an inclusive range spec.
func Range(low, high int64) IndexSpec {
	return IndexSpec{Low: low, High: high}
}

// Named creates a named index set spec.
func Named(name string) IndexSpec {
	return IndexSpec{Name: name}
}

// IsRange returns true for a low..high spec.
func (s IndexSpec) IsRange() bool {
	return s.Name == ""
}

// String returns the index set as written in a literal.
func (s IndexSpec) String() string {
	if s.Name != "" {
		return s.Name
	}
	return strconv.FormatInt(s.Low, 10) + ".." + strconv.FormatInt(s.High, 10)
}

var rangeSpec = regexp.MustCompile(`^([+-]?\d+)\s*\.\.\s*([+-]?\d+)$`)

// ParseIndexSpec parses "a..b" or an identifier.
func ParseIndexSpec(text string) (IndexSpec, error) {
	text = strings.TrimSpace(text)
	if m := rangeSpec.FindStringSubmatch(text); m != nil {
		low, err1 := strconv.ParseInt(m[1], 10, 64)
		high, err2 := strconv.ParseInt(m[2], 10, 64)
		if err1 != nil || err2 != nil {
			return IndexSpec{}, &DecodeError{Kind: MalformedArrayHeader, Text: text, Msg: "range bound out of range"}
		}
		return Range(low, high), nil
	}
	if !isIdent(text) {
		return IndexSpec{}, &DecodeError{Kind: MalformedArrayHeader, Text: text, Msg: "bad index set"}
	}
	return Named(text), nil
}

// maxRangeLabels bounds the labels Resolve materializes for one range.
const maxRangeLabels = 1 << 26

// Resolve returns the ordered labels of the index set.
// Ranges need no context; named specs are looked up in ctx.
func (s IndexSpec) Resolve(ctx IndexContext) ([]Label, error) {
	if s.IsRange() {
		if s.Low > s.High {
			return nil, &DecodeError{Kind: MalformedArrayHeader, Text: s.String(), Msg: "empty index range"}
		}
		if uint64(s.High)-uint64(s.Low) >= maxRangeLabels {
			return nil, &DecodeError{Kind: MalformedArrayHeader, Text: s.String(), Msg: "index range too large"}
		}
		labels := make([]Label, 0, s.High-s.Low+1)
		for n := s.Low; ; n++ {
			labels = append(labels, IntLabel(n))
			if n == s.High {
				break
			}
		}
		return labels, nil
	}
	if ctx != nil {
		if labels, ok := ctx.Lookup(s.Name); ok {
			if len(labels) == 0 {
				return nil, &DecodeError{Kind: MalformedArrayHeader, Name: s.Name, Msg: "empty index set"}
			}
			return labels, nil
		}
	}
	return nil, unknownIndexSet(s.Name, ctx)
}

// ============================================================
// IndexSets - map backed IndexContext
// ============================================================

// IndexSets is an immutable IndexContext keyed by index set name.
// Safe for concurrent use.
type IndexSets struct {
	names []string
	sets  map[string][]Label
}

// NewIndexSets creates index sets from name -> member symbols.
// Member order is preserved; names are kept in sorted order.
func NewIndexSets(sets map[string][]string) *IndexSets {
	is := &IndexSets{sets: make(map[string][]Label, len(sets))}
	for name, members := range sets {
		labels := make([]Label, len(members))
		for i, m := range members {
			labels[i] = SymLabel(m)
		}
		is.sets[name] = labels
		is.names = append(is.names, name)
	}
	slices.Sort(is.names)
	return is
}

// Lookup implements IndexContext.
func (is *IndexSets) Lookup(name string) ([]Label, bool) {
	if is == nil {
		return nil, false
	}
	labels, ok := is.sets[name]
	return labels, ok
}

// Names returns the defined index set names, sorted.
func (is *IndexSets) Names() []string {
	if is == nil {
		return nil
	}
	return is.names
}

// Len returns the number of index sets.
func (is *IndexSets) Len() int {
	if is == nil {
		return 0
	}
	return len(is.sets)
}

// Merge returns new index sets holding both; definitions in other win.
func (is *IndexSets) Merge(other *IndexSets) *IndexSets {
	out := &IndexSets{sets: make(map[string][]Label, is.Len()+other.Len())}
	for _, src := range []*IndexSets{is, other} {
		if src == nil {
			continue
		}
		for name, labels := range src.sets {
			out.sets[name] = labels
		}
	}
	for name := range out.sets {
		out.names = append(out.names, name)
	}
	slices.Sort(out.names)
	return out
}

// Layer returns a context that consults each context in turn; the first
// one defining a name wins. Nil contexts are skipped.
func Layer(ctxs ...IndexContext) IndexContext {
	var out layered
	for _, c := range ctxs {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

type layered []IndexContext

func (l layered) Lookup(name string) ([]Label, bool) {
	for _, c := range l {
		if labels, ok := c.Lookup(name); ok {
			return labels, true
		}
	}
	return nil, false
}

// Names returns the union of names of every layer that can list them.
func (l layered) Names() []string {
	var names []string
	for _, c := range l {
		if lister, ok := c.(interface{ Names() []string }); ok {
			names = append(names, lister.Names()...)
		}
	}
	slices.Sort(names)
	return slices.Compact(names)
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (i > 0 && c >= '0' && c <= '9') {
			continue
		}
		return false
	}
	return true
}
