package mzn

import "strings"

// splitTopLevel splits s on sep where sep is not inside [] () {} or "".
// Each part is trimmed. An empty or all-blank s yields no parts.
func splitTopLevel(s string, sep byte) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var parts []string
	depth := 0
	inQuote := false
	start := 0

	for i := 0; i < len(s); i++ {
		c := s[i]

		if inQuote {
			if c == '\\' && i+1 < len(s) {
				i++ // Skip escaped char
				continue
			}
			if c == '"' {
				inQuote = false
			}
			continue
		}

		switch {
		case c == '"':
			inQuote = true
		case c == '[' || c == '(' || c == '{':
			depth++
		case c == ']' || c == ')' || c == '}':
			depth--
		case c == sep && depth == 0:
			parts = append(parts, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}

	return append(parts, strings.TrimSpace(s[start:]))
}

// matchClose returns the index of the bracket closing the one at s[open],
// or -1 when it is unbalanced.
func matchClose(s string, open int) int {
	depth := 0
	inQuote := false

	for i := open; i < len(s); i++ {
		c := s[i]

		if inQuote {
			if c == '\\' && i+1 < len(s) {
				i++
				continue
			}
			if c == '"' {
				inQuote = false
			}
			continue
		}

		switch c {
		case '"':
			inQuote = true
		case '[', '(', '{':
			depth++
		case ']', ')', '}':
			depth--
			if depth == 0 {
				return i
			}
			if depth < 0 {
				return -1
			}
		}
	}

	return -1
}

// balanced reports whether every bracket in s is closed in order.
func balanced(s string) bool {
	var stack []byte
	inQuote := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		if inQuote {
			if c == '\\' && i+1 < len(s) {
				i++
				continue
			}
			if c == '"' {
				inQuote = false
			}
			continue
		}

		switch c {
		case '"':
			inQuote = true
		case '[', '(', '{':
			stack = append(stack, c)
		case ']', ')', '}':
			if len(stack) == 0 || stack[len(stack)-1] != openerOf(c) {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}

	return len(stack) == 0 && !inQuote
}

func openerOf(c byte) byte {
	switch c {
	case ']':
		return '['
	case ')':
		return '('
	default:
		return '{'
	}
}
