// Package locale resolves the configured list of locales translations are
// generated for.
package locale

import (
	"slices"
	"strings"
)

// Set is an ordered, de-duplicated list of lower-case locale codes.
type Set []string

// Resolve parses a comma-separated locale list. Codes are trimmed and
// lower-cased, empty items are dropped, and only the first occurrence of a
// code is kept. Empty input yields an empty set.
func Resolve(raw string) Set {
	var set Set
	for _, part := range strings.Split(raw, ",") {
		code := strings.ToLower(strings.TrimSpace(part))
		if code == "" || slices.Contains(set, code) {
			continue
		}
		set = append(set, code)
	}
	return set
}

// Primary returns the first locale, or "" for an empty set.
func (s Set) Primary() string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

// Contains reports whether code is in the set.
func (s Set) Contains(code string) bool {
	return slices.Contains(s, strings.ToLower(code))
}

// String renders the set in its configured form.
func (s Set) String() string {
	return strings.Join(s, ",")
}
