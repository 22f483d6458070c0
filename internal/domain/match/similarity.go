// Package match resolves receipt item names against the product catalog:
// exact normalized lookup, alias lookup, then fuzzy similarity over
// category-filtered candidates, with auto-creation of new catalog entries
// when nothing clears the threshold.
package match

import (
	"strings"

	"github.com/kassenblick/kassenblick/internal/domain/catalog"
)

// Similarity scores how alike two product names are, in [0,1]. Both names are
// normalized first; the result is the maximum of a character-sequence ratio
// (tolerant of spelling and spacing drift) and a token-set Jaccard overlap
// (tolerant of reordered multi-word names). Symmetric in its arguments.
func Similarity(name1, name2 string) float64 {
	norm1 := catalog.NormalizeName(name1)
	norm2 := catalog.NormalizeName(name2)

	score := sequenceRatio(norm1, norm2)

	words1 := wordSet(norm1)
	words2 := wordSet(norm2)
	if len(words1) > 0 && len(words2) > 0 {
		if overlap := jaccard(words1, words2); overlap > score {
			score = overlap
		}
	}

	return score
}

// sequenceRatio is the Ratcliff/Obershelp ratio: twice the number of
// characters in recursively found longest matching blocks, over the total
// length of both strings.
func sequenceRatio(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)

	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}

	return 2.0 * float64(matchingChars(ra, rb)) / float64(total)
}

func matchingChars(a, b []rune) int {
	ai, bi, size := longestMatch(a, b)
	if size == 0 {
		return 0
	}
	return size +
		matchingChars(a[:ai], b[:bi]) +
		matchingChars(a[ai+size:], b[bi+size:])
}

// longestMatch finds the longest common substring, preferring the earliest
// occurrence in a, then in b.
func longestMatch(a, b []rune) (ai, bi, size int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}

	// lengths[j] is the length of the common suffix ending at a[i-1], b[j-1]
	// from the previous row.
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > size {
					size = curr[j]
					ai = i - size
					bi = j - size
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}

	return ai, bi, size
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
