package catalog

import (
	"regexp"
	"strings"
)

// German filler articles and prepositions dropped during normalization.
var fillerTokens = map[string]struct{}{
	"der": {}, "die": {}, "das": {},
	"ein": {}, "eine": {}, "einen": {},
	"vom": {}, "zur": {}, "mit": {},
}

var (
	nonWordPattern    = regexp.MustCompile(`[^\wäöüß\s]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// NormalizeName canonicalizes a product or receipt item name for matching:
// lowercase, punctuation (except umlauts and ß) replaced with spaces, German
// filler articles removed token-wise, whitespace collapsed. Idempotent.
func NormalizeName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = nonWordPattern.ReplaceAllString(normalized, " ")

	words := strings.Fields(normalized)
	kept := words[:0]
	for _, word := range words {
		if _, filler := fillerTokens[word]; !filler {
			kept = append(kept, word)
		}
	}

	normalized = strings.Join(kept, " ")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(normalized, " "))
}
