// Package reconcile maps player references from different sources onto one
// stable player ID, and indexes player names for typeahead search.
package reconcile

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ProvisionalPrefix marks an ID minted for a name that matched no player.
const ProvisionalPrefix = "name:"

var folder = cases.Fold()

// Normalize case-folds a name, strips diacritics and collapses whitespace,
// so "  Gaël  MONFILS " becomes "gael monfils".
func Normalize(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, name)
	if err != nil {
		stripped = name
	}
	return strings.Join(strings.Fields(folder.String(stripped)), " ")
}

// ProvisionalID returns the placeholder ID for an unresolved display name.
func ProvisionalID(name string) string {
	return ProvisionalPrefix + Normalize(name)
}

// IsProvisional reports whether id was minted by ProvisionalID.
func IsProvisional(id string) bool {
	return strings.HasPrefix(id, ProvisionalPrefix)
}

// initialAndSurname splits an abbreviated name such as "J. Roe" or "J Roe"
// into its initial and surname. ok is false for names that are not
// abbreviated.
func initialAndSurname(normalized string) (initial rune, surname string, ok bool) {
	words := strings.Fields(normalized)
	if len(words) < 2 {
		return 0, "", false
	}
	first := strings.TrimSuffix(words[0], ".")
	r := []rune(first)
	if len(r) != 1 || !unicode.IsLetter(r[0]) {
		return 0, "", false
	}
	return r[0], strings.Join(words[1:], " "), true
}
