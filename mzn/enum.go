package mzn

import (
	"regexp"
	"strings"
)

var (
	lineComment = regexp.MustCompile(`(?m)[ \t]*%.*$`)
	enumDecl    = regexp.MustCompile(`(?s)\benum\s+(\w+)\s*=\s*\{\s*(.+?)\s*\}`)
	listSep     = regexp.MustCompile(`\s*,\s*`)
)

// ScanIndexSets finds enum declarations in model source:
//
//	enum Color = { red, green, blue };
//
// Comments are stripped first. Members keep declaration order; a name
// declared twice keeps the last declaration. Enums without an explicit
// member list (enum X; or enum X = F(...)) are skipped.
func ScanIndexSets(model string) *IndexSets {
	text := lineComment.ReplaceAllString(model, "")

	sets := make(map[string][]string)
	for _, m := range enumDecl.FindAllStringSubmatch(text, -1) {
		members := listSep.Split(m[2], -1)
		if !allIdents(members) {
			continue
		}
		sets[m[1]] = members
	}
	return NewIndexSets(sets)
}

func allIdents(ss []string) bool {
	for _, s := range ss {
		if !isIdent(strings.TrimSpace(s)) {
			return false
		}
	}
	return len(ss) > 0
}
