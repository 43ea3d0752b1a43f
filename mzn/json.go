package mzn

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ============================================================
// JSON blocks -> Solution
// ============================================================

// DecodeJSONBlock decodes a solution printed as one JSON object (the
// solver's JSON output mode). Key order is preserved.
//
// Mapping:
//   - numbers follow the scalar rules (int, else float)
//   - true/false -> bool, strings -> atom, null -> atom "<>"
//   - arrays -> seq (nested arrays stay nested)
//   - {"e": name} -> atom name (enum member)
//   - {"set": [...]} -> atom in set literal syntax, ranges as [lo, hi] pairs
//   - any other object -> atom holding its compact JSON
func DecodeJSONBlock(text string) (*Solution, error) {
	fail := func(err error) (*Solution, error) {
		return nil, &DecodeError{Kind: StructuredFallback, Text: strings.TrimSpace(text), Err: err}
	}

	fields, err := objectFields([]byte(text))
	if err != nil {
		return fail(err)
	}

	sol := NewSolution()
	for _, f := range fields {
		v, err := fromJSON(f.raw)
		if err != nil {
			return fail(fmt.Errorf("field %q: %w", f.name, err))
		}
		sol.Set(f.name, v)
	}
	return sol, nil
}

type jsonField struct {
	name string
	raw  json.RawMessage
}

// objectFields splits a JSON object into its fields, in order.
func objectFields(data []byte) ([]jsonField, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var fields []jsonField
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		fields = append(fields, jsonField{name: name, raw: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err == nil {
		return nil, fmt.Errorf("trailing data after object")
	}
	return fields, nil
}

func fromJSON(raw json.RawMessage) (*Value, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty value")
	}

	switch raw[0] {
	case '{':
		return fromJSONObject(raw)
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		out := make([]*Value, 0, len(items))
		for _, item := range items {
			v, err := fromJSON(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return Seq(out...), nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return Atom(s), nil
	case 't':
		return Bool(true), nil
	case 'f':
		return Bool(false), nil
	case 'n':
		return Atom("<>"), nil
	default:
		return decodeScalar(string(raw)), nil
	}
}

func fromJSONObject(raw json.RawMessage) (*Value, error) {
	fields, err := objectFields(raw)
	if err != nil {
		return nil, err
	}
	if len(fields) == 1 {
		switch fields[0].name {
		case "e":
			var name string
			if json.Unmarshal(fields[0].raw, &name) == nil {
				return Atom(name), nil
			}
		case "set":
			if lit, ok := setLiteral(fields[0].raw); ok {
				return Atom(lit), nil
			}
		}
	}
	var b bytes.Buffer
	if err := json.Compact(&b, raw); err != nil {
		return nil, err
	}
	return Atom(b.String()), nil
}

// setLiteral renders {"set": [1, [3, 5]]} as {1, 3..5}.
func setLiteral(raw json.RawMessage) (string, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return "", false
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '[' {
			var pair []json.Number
			if err := json.Unmarshal(item, &pair); err != nil || len(pair) != 2 {
				return "", false
			}
			parts = append(parts, pair[0].String()+".."+pair[1].String())
			continue
		}
		v, err := fromJSON(item)
		if err != nil {
			return "", false
		}
		parts = append(parts, v.String())
	}
	return "{" + strings.Join(parts, ", ") + "}", true
}

// ============================================================
// Value / Solution -> JSON
// ============================================================

// jsonNumber is the JSON number grammar.
var jsonNumber = regexp.MustCompile(`^-?(0|[1-9]\d*)(\.\d+)?([eE][+-]?\d+)?$`)

// MarshalJSON implements json.Marshaler. Sequences become arrays, indexed
// arrays become objects keyed by label (nested per dimension), atoms and
// non-finite floats become strings.
func (v *Value) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	if err := writeJSON(&b, v); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// MarshalJSON implements json.Marshaler, keeping variable order.
func (s *Solution) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, name := range s.names {
		if i > 0 {
			b.WriteByte(',')
		}
		writeJSONString(&b, name)
		b.WriteByte(':')
		if err := writeJSON(&b, s.values[name]); err != nil {
			return nil, err
		}
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func writeJSON(b *bytes.Buffer, v *Value) error {
	if v == nil {
		b.WriteString("null")
		return nil
	}
	switch v.kind {
	case KindBool:
		b.WriteString(strconv.FormatBool(v.boolVal))
	case KindInt:
		b.WriteString(strconv.FormatInt(v.intVal, 10))
	case KindFloat:
		switch lit := v.String(); {
		case math.IsInf(v.floatVal, 0) || math.IsNaN(v.floatVal):
			writeJSONString(b, canonFloat(v.floatVal))
		case jsonNumber.MatchString(lit):
			b.WriteString(lit)
		default:
			b.WriteString(strconv.FormatFloat(v.floatVal, 'g', -1, 64))
		}
	case KindAtom:
		writeJSONString(b, v.atomVal)
	case KindSeq:
		b.WriteByte('[')
		for i, e := range v.seqVal {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeJSON(b, e); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case KindIndexed:
		a := v.indexedVal
		return writeIndexedJSON(b, a.axes, a.elems)
	default:
		return fmt.Errorf("mzn: cannot marshal %s", v.kind)
	}
	return nil
}

// writeIndexedJSON writes one object level per axis over row-major elems.
func writeIndexedJSON(b *bytes.Buffer, axes []Axis, elems []*Value) error {
	stride := len(elems) / max(len(axes[0].Labels), 1)
	b.WriteByte('{')
	for i, l := range axes[0].Labels {
		if i > 0 {
			b.WriteByte(',')
		}
		writeJSONString(b, l.String())
		b.WriteByte(':')
		var err error
		if len(axes) == 1 {
			err = writeJSON(b, elems[i])
		} else {
			err = writeIndexedJSON(b, axes[1:], elems[i*stride:(i+1)*stride])
		}
		if err != nil {
			return err
		}
	}
	b.WriteByte('}')
	return nil
}

func writeJSONString(b *bytes.Buffer, s string) {
	data, _ := json.Marshal(s)
	b.Write(data)
}
