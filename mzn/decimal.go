package mzn

import (
	"fmt"
	"math"

	"github.com/cockroachdb/apd"
)

// Decimal returns the exact decimal value of an int or float literal, as
// spelled by the solver. Objective values printed with many digits keep
// every digit; floats without a source spelling use their shortest
// round-trip form.
func (v *Value) Decimal() (*apd.Decimal, error) {
	if v == nil {
		return nil, fmt.Errorf("mzn: nil value")
	}
	switch v.kind {
	case KindInt:
		return apd.New(v.intVal, 0), nil
	case KindFloat:
		if math.IsInf(v.floatVal, 0) || math.IsNaN(v.floatVal) {
			return nil, fmt.Errorf("mzn: %s has no decimal form", v.literal())
		}
		d, _, err := apd.NewFromString(v.literal())
		if err != nil {
			return nil, fmt.Errorf("mzn: decimal %q: %w", v.literal(), err)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("mzn: expected int or float, got %s", v.kind)
	}
}
