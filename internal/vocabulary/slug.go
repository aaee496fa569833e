package vocabulary

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	// Matches any run of non-alphanumeric characters.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slugify converts a label to its lookup key.
// "Slice of Life" -> "slice-of-life".
// "school_life" -> "school-life".
// "Sci Fi" -> "sci-fi".
// "Pokémon" -> "pokemon".
func Slugify(s string) string {
	// Decompose accented characters so the base letter survives.
	s = norm.NFKD.String(s)

	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)

	s = strings.ToLower(s)
	s = nonAlphanumeric.ReplaceAllString(s, "-")

	return strings.Trim(s, "-")
}

// tokens splits a label on whitespace, hyphens and underscores.
func tokens(label string) []string {
	return strings.FieldsFunc(label, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_'
	})
}
