package mzn

import (
	"regexp"
	"strings"
)

var placeholder = regexp.MustCompile(`\{(\w+)\}`)

// Substitute replaces every {name} in tmpl with the literal text of that
// variable in sol. Unassigned names become "?".
//
//	Substitute("x={x} y={y}", sol) // "x=3 y=[1, 2]"
func Substitute(tmpl string, sol *Solution) string {
	return placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		v, ok := sol.Lookup(m[1 : len(m)-1])
		if !ok {
			return "?"
		}
		return v.String()
	})
}

// FormatSolution renders a solution as name=value pairs separated by spaces.
func FormatSolution(sol *Solution) string {
	var b strings.Builder
	for name, v := range sol.All() {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(v.String())
	}
	return b.String()
}

// Spell replaces each character of text that names a single-letter
// variable with that variable's value; other characters are kept. Useful
// for alphametic puzzles:
//
//	Spell("SEND", sol) // "9567"
func Spell(text string, sol *Solution) string {
	var b strings.Builder
	for _, r := range text {
		if v, ok := sol.Lookup(string(r)); ok {
			b.WriteString(v.String())
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
