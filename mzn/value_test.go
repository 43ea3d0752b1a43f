package mzn

import (
	"errors"
	"math"
	"testing"
)

// ============================================================
// Rendering
// ============================================================

func TestValue_String(t *testing.T) {
	tests := []struct {
		name string
		v    *Value
		want string
	}{
		{"bool", Bool(true), "true"},
		{"int", Int(-4), "-4"},
		{"float_whole", Float(2), "2.0"},
		{"float_exp", Float(1e21), "1e+21"},
		{"float_inf", Float(math.Inf(-1)), "-infinity"},
		{"float_literal", MustDecode("0.10", nil), "0.10"},
		{"atom", Atom("red"), "red"},
		{"seq", Seq(Int(1), Seq()), "[1, []]"},
		{"indexed", MustDecode("array1d(1..2,[a,b])", nil), "array1d(1..2, [a, b])"},
		{"nil", nil, "<nil>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ============================================================
// Accessors
// ============================================================

func TestValue_Accessors(t *testing.T) {
	if _, err := Int(1).AsBool(); err == nil {
		t.Error("AsBool on int should fail")
	}
	if _, err := Atom("x").AsInt(); err == nil {
		t.Error("AsInt on atom should fail")
	}
	if s, err := Atom("x").AsAtom(); err != nil || s != "x" {
		t.Errorf("AsAtom = %q, %v", s, err)
	}
	if n, ok := Int(3).Number(); !ok || n != 3 {
		t.Errorf("Number() = %v, %v", n, ok)
	}
	if _, ok := Atom("3").Number(); ok {
		t.Error("Number() on atom should fail")
	}
	seq := Seq(Int(1), Int(0))
	if e, err := seq.Index(1); err != nil || e.Truthy() {
		t.Errorf("Index(1) = %v, %v", e, err)
	}
	if _, err := seq.Index(2); err == nil {
		t.Error("Index(2) should be out of bounds")
	}
	if seq.Len() != 2 {
		t.Errorf("Len() = %d", seq.Len())
	}
}

func TestIndexed_ElementCount(t *testing.T) {
	axes := []Axis{{Spec: Range(1, 2), Labels: []Label{IntLabel(1), IntLabel(2)}}}
	if _, err := Indexed(axes, []*Value{Int(1)}); err == nil {
		t.Error("Indexed with too few elements should fail")
	}
	if _, err := Indexed(nil, nil); err == nil {
		t.Error("Indexed without axes should fail")
	}
}

func TestIndexed_AllStopsEarly(t *testing.T) {
	a, _ := MustDecode("array1d(1..5, [1, 2, 3, 4, 5])", nil).AsIndexed()
	n := 0
	for range a.All() {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("iterated %d times", n)
	}
}

// ============================================================
// Decimal
// ============================================================

func TestValue_Decimal(t *testing.T) {
	tests := []struct {
		name string
		v    *Value
		want string
	}{
		{"int", Int(42), "42"},
		{"literal", MustDecode("3.14159265358979323846", nil), "3.14159265358979323846"},
		{"trailing_zero", MustDecode("1.50", nil), "1.50"},
		{"canonical", Float(0.5), "0.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := tt.v.Decimal()
			if err != nil {
				t.Fatalf("Decimal() error: %v", err)
			}
			if got := d.String(); got != tt.want {
				t.Errorf("Decimal() = %s, want %s", got, tt.want)
			}
		})
	}

	if _, err := Float(math.NaN()).Decimal(); err == nil {
		t.Error("Decimal() of NaN should fail")
	}
	if _, err := Atom("x").Decimal(); err == nil {
		t.Error("Decimal() of atom should fail")
	}
}

// ============================================================
// Solution
// ============================================================

func TestSolution_Record(t *testing.T) {
	sol := NewSolution()
	sol.Set("a", Int(1))
	sol.Set("b", Int(2))

	vals, err := sol.Record("b", "a")
	if err != nil {
		t.Fatal(err)
	}
	if !Equal(vals[0], Int(2)) || !Equal(vals[1], Int(1)) {
		t.Errorf("Record = %v", vals)
	}

	_, err = sol.Record("a", "c")
	if !errors.Is(err, ErrMissingField) {
		t.Errorf("err = %v, want ErrMissingField", err)
	}
}

func TestParseFields(t *testing.T) {
	for _, in := range []string{"a b c", "a, b, c", "a,b,c", " a  b,c "} {
		got := ParseFields(in)
		if len(got) != 3 || got[0] != "a" || got[2] != "c" {
			t.Errorf("ParseFields(%q) = %q", in, got)
		}
	}
}

// ============================================================
// Templates
// ============================================================

func TestSubstitute(t *testing.T) {
	sol := NewSolution()
	sol.Set("x", Int(3))
	sol.Set("ys", Seq(Int(1), Int(2)))

	got := Substitute("x={x} ys={ys} z={z} {not a name}", sol)
	want := "x=3 ys=[1, 2] z=? {not a name}"
	if got != want {
		t.Errorf("Substitute = %q, want %q", got, want)
	}
}

func TestFormatSolution(t *testing.T) {
	sol := NewSolution()
	sol.Set("b", Bool(false))
	sol.Set("a", Atom("red"))
	if got := FormatSolution(sol); got != "b=false a=red" {
		t.Errorf("FormatSolution = %q", got)
	}
	if got := FormatSolution(NewSolution()); got != "" {
		t.Errorf("FormatSolution(empty) = %q", got)
	}
}

func TestSpell(t *testing.T) {
	sol := NewSolution()
	for name, n := range map[string]int64{"S": 9, "E": 5, "N": 6, "D": 7} {
		sol.Set(name, Int(n))
	}
	if got := Spell("SEND + x", sol); got != "9567 + x" {
		t.Errorf("Spell = %q", got)
	}
}

// ============================================================
// Index sets
// ============================================================

func TestScanIndexSets(t *testing.T) {
	model := `
% enum Ignored = { a, b };
enum Color = { red, green, blue };  % trailing comment
enum Size={S,M,L};
enum Multi = {
  one,
  two
};
enum Later;
enum Computed = Foo(1..3);
int: n = 3;
`
	sets := ScanIndexSets(model)
	if got := sets.Names(); len(got) != 3 || got[0] != "Color" || got[1] != "Multi" || got[2] != "Size" {
		t.Fatalf("Names() = %v", got)
	}
	labels, ok := sets.Lookup("Color")
	if !ok || len(labels) != 3 || labels[2] != SymLabel("blue") {
		t.Errorf("Color = %v", labels)
	}
	labels, _ = sets.Lookup("Multi")
	if len(labels) != 2 || labels[1] != SymLabel("two") {
		t.Errorf("Multi = %v", labels)
	}
	if _, ok := sets.Lookup("Ignored"); ok {
		t.Error("commented enum was scanned")
	}

	// Scanned sets resolve indexed arrays
	v, err := Decode("array1d(Size, [1, 2, 3])", sets)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := v.AsIndexed()
	if x, ok := a.At(SymLabel("M")); !ok || !Equal(x, Int(2)) {
		t.Errorf("At(M) = %v", x)
	}
}

func TestIndexSets_MergeAndLayer(t *testing.T) {
	base := NewIndexSets(map[string][]string{"A": {"x"}, "B": {"y"}})
	over := NewIndexSets(map[string][]string{"B": {"z"}})

	merged := base.Merge(over)
	if labels, _ := merged.Lookup("B"); labels[0] != SymLabel("z") {
		t.Errorf("Merge: B = %v", labels)
	}
	if merged.Len() != 2 {
		t.Errorf("Merge: Len() = %d", merged.Len())
	}

	layered := Layer(over, nil, base)
	if labels, _ := layered.Lookup("B"); labels[0] != SymLabel("z") {
		t.Errorf("Layer: B = %v", labels)
	}
	if _, ok := layered.Lookup("A"); !ok {
		t.Error("Layer: A not found in lower layer")
	}

	var none *IndexSets
	if _, ok := none.Lookup("A"); ok || none.Len() != 0 {
		t.Error("nil IndexSets should be empty")
	}
}

func TestParseIndexSpec(t *testing.T) {
	tests := []struct {
		in      string
		want    IndexSpec
		wantErr bool
	}{
		{"1..3", Range(1, 3), false},
		{"-2 .. 2", Range(-2, 2), false},
		{"Color", Named("Color"), false},
		{"_x1", Named("_x1"), false},
		{"1..", IndexSpec{}, true},
		{"a b", IndexSpec{}, true},
		{"", IndexSpec{}, true},
	}
	for _, tt := range tests {
		got, err := ParseIndexSpec(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseIndexSpec(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseIndexSpec(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}
