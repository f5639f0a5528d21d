package app

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// fillerTokens are removed wherever they occur, in this order. Removal is a
// plain substring replace: "Parkside Diner" loses nothing but "Hyde Parkway"
// becomes "hydeway".
var fillerTokens = []string{"the ", " museum", " park", " building", " center", " centre"}

// NormalizeName canonicalizes a display name for identity comparison. Two
// records are the same POI by name iff their normalized names are equal.
func NormalizeName(name string) string {
	// a Caser is stateful, so each call gets its own
	n := strings.TrimSpace(cases.Lower(language.Und).String(name))
	for _, tok := range fillerTokens {
		n = strings.ReplaceAll(n, tok, "")
	}
	return strings.TrimSpace(n)
}
