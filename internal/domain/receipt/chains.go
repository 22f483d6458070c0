package receipt

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// GermanChains lists the supermarket chains recognized by store-name
// extraction and the confidence scorer. Order matters: when several chains
// occur in the same text, the earlier entry wins.
var GermanChains = []string{
	"REWE",
	"EDEKA",
	"ALDI",
	"LIDL",
	"PENNY",
	"NETTO",
	"KAUFLAND",
	"REAL",
	"GLOBUS",
	"TEGUT",
	"FAMILA",
	"MARKTKAUF",
	"HIT",
	"COMBI",
}

// chainDetector finds known chain names in receipt text in a single pass.
type chainDetector struct {
	matcher *ahocorasick.Matcher
}

func newChainDetector() *chainDetector {
	patterns := make([][]byte, len(GermanChains))
	for i, chain := range GermanChains {
		patterns[i] = []byte(chain)
	}
	return &chainDetector{matcher: ahocorasick.NewMatcher(patterns)}
}

// detect returns the first known chain contained in the text, honoring
// GermanChains order, and whether any was found. Matching is case-insensitive.
func (d *chainDetector) detect(text string) (string, bool) {
	hits := d.matcher.Match([]byte(strings.ToUpper(text)))
	if len(hits) == 0 {
		return "", false
	}

	best := -1
	for _, idx := range hits {
		if idx >= 0 && idx < len(GermanChains) && (best == -1 || idx < best) {
			best = idx
		}
	}
	if best == -1 {
		return "", false
	}
	return GermanChains[best], true
}

// contains reports whether any known chain occurs in the text.
func (d *chainDetector) contains(text string) bool {
	_, ok := d.detect(text)
	return ok
}
