package receipt

import (
	"regexp"
	"strings"
)

// Common German stop-words; their presence suggests the PDF text layer is
// real prose rather than extraction garbage.
var germanStopWords = []string{
	"und", "der", "die", "das", "mit", "für", "von", "zu", "auf", "ist", "sind",
}

var genericPricePattern = regexp.MustCompile(`\d+[,\.]\d{2}`)

// Confidence weights. These exact values are an output-parity contract:
// downstream consumers threshold on the summed score.
const (
	weightKnownChain   = 0.3
	weightCurrency     = 0.2
	weightDate         = 0.2
	weightGermanWords  = 0.1
	weightLongText     = 0.1
	weightMediumText   = 0.05
	weightPricePattern = 0.1
)

// scoreConfidence combines independent detection signals into a coarse [0,1]
// extraction confidence. It is a heuristic, not a calibrated probability.
func scoreConfidence(text string, chains *chainDetector) float64 {
	score := 0.0

	if chains.contains(text) {
		score += weightKnownChain
	}

	for _, pattern := range currencyPatterns {
		if pattern.MatchString(text) {
			score += weightCurrency
			break
		}
	}

	for _, pattern := range datePatterns {
		if pattern.MatchString(text) {
			score += weightDate
			break
		}
	}

	lower := strings.ToLower(text)
	for _, word := range germanStopWords {
		if strings.Contains(lower, word) {
			score += weightGermanWords
			break
		}
	}

	switch {
	case len(text) > 500:
		score += weightLongText
	case len(text) > 200:
		score += weightMediumText
	}

	if genericPricePattern.MatchString(text) {
		score += weightPricePattern
	}

	return min(score, 1.0)
}
