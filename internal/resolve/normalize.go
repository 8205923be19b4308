// Package resolve matches partner organization names extracted from
// news articles against a corporate registry. Matching happens in two
// passes: exact lookup on normalized names, then a fuzzy scoring pass
// whose best candidate is only ever recommended for manual review,
// never auto-accepted.
package resolve

import (
	"strings"
	"unicode"
)

// Normalize canonicalizes a company name for comparison: every Unicode
// whitespace rune is removed and the remainder is uppercased. Legal
// suffixes are deliberately kept; "Acme Inc" and "Acme Incorporated"
// must stay distinguishable so the fuzzy pass can rank them.
func Normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}
