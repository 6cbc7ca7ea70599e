package services

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeText collapses a prompt to a comparison key: diacritics stripped,
// lowercased, reduced to the concatenated [a-z0-9]+ tokens. "Provincia a la
// cual pertenece" and "PROVINCIA A LA CUAL PERTENECE." produce the same key,
// which is what lets the reconciler and the export fallback survive retyped
// prompts. Idempotent by construction.
func NormalizeText(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	return nonAlnum.ReplaceAllString(folded, "")
}
