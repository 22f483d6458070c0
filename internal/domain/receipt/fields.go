package receipt

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// Header extractors only scan the top of the receipt; anything deeper is item
// noise.
const headerLines = 15

// Pattern tables. Each extractor walks its list in order and the first match
// wins, so list order is part of the extraction contract.
var (
	currencyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d+[,\.]\d{2})\s*€`),
		regexp.MustCompile(`€\s*(\d+[,\.]\d{2})`),
		regexp.MustCompile(`EUR\s*(\d+[,\.]\d{2})`),
		regexp.MustCompile(`(\d+[,\.]\d{2})\s*EUR`),
	}

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d{1,2})[\.\/](\d{1,2})[\.\/](\d{2,4})`), // DD.MM.YYYY
		regexp.MustCompile(`(\d{2,4})[\.\/](\d{1,2})[\.\/](\d{1,2})`), // YYYY.MM.DD
	}

	timePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d{1,2}):(\d{2}):(\d{2})`),
		regexp.MustCompile(`(\d{1,2}):(\d{2})`),
	}

	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Tel\.?\s*:?\s*(\+49\s*\d+[\s\-\d]+)`),
		regexp.MustCompile(`(?i)Telefon\s*:?\s*(\+49\s*\d+[\s\-\d]+)`),
		regexp.MustCompile(`(\+49\s*\d+[\s\-\d]+)`),
		regexp.MustCompile(`(\d{4,5}[\s\-]\d+[\s\-\d]*)`),
	}

	receiptNumberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Beleg[:\s]*(\d+)`),
		regexp.MustCompile(`(?i)Bon[:\s]*(\d+)`),
		regexp.MustCompile(`(?i)Quittung[:\s]*(\d+)`),
		regexp.MustCompile(`(?i)Trans[:\s]*(\d+)`),
		regexp.MustCompile(`(?i)Nr[:\s]*(\d+)`),
	}

	cashierPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Kasse[:\s]*(\d+)`),
		regexp.MustCompile(`(?i)Kassier[:\s]*(\d+)`),
		regexp.MustCompile(`(?i)Bed[:\s]*(\d+)`),
		regexp.MustCompile(`(?i)Bedienung[:\s]*(\d+)`),
	}

	registerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Terminal[:\s]*(\d+)`),
		regexp.MustCompile(`(?i)Kasse[:\s]*(\d+)`),
		regexp.MustCompile(`(?i)Reg[:\s]*(\d+)`),
	}

	postalCodePattern = regexp.MustCompile(`\b\d{5}\b`)
	streetPattern     = regexp.MustCompile(`(?i)[A-Za-zäöüÄÖÜß\s]+(?:str\.|straße|platz|weg|gasse|allee)\s*\d*`)

	// Chain-tuned total patterns, tried before the generic keyword scan.
	totalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`SUMME EUR\s+(\d+[,\.]\d{2})`),
		regexp.MustCompile(`Gesamtbetrag\s+[\d,\.]+\s+[\d,\.]+\s+(\d+[,\.]\d{2})`),
		regexp.MustCompile(`Betrag EUR\s+(\d+[,\.]\d{2})`),
	}

	// REWE tax summary line: "Gesamtbetrag <gross> <tax> <net>".
	taxSummaryPattern = regexp.MustCompile(`(?m)Gesamtbetrag\s+[\d,\.]+\s+(\d+[,\.]\d{2})\s+[\d,\.]+$`)

	// Tax breakdown rows: "A= 19,0% 0,84 0,16 1,00".
	taxBreakdownPattern = regexp.MustCompile(`([AB])=\s*(\d+[,\.]\d+)%\s+(\d+[,\.]\d+)\s+(\d+[,\.]\d+)\s+(\d+[,\.]\d+)`)

	maskedCardPattern = regexp.MustCompile(`Nr\.############(\d{4})`)

	subtotalKeywords  = []string{"Zwischensumme", "Netto", "Subtotal", "Summe"}
	taxKeywords       = []string{"MwSt", "USt", "Steuer", "Tax", "VAT"}
	totalKeywords     = []string{"Summe", "Total", "Gesamt", "Betrag"}
	storeNameKeywords = []string{"MARKT", "SUPERMARKT", "LEBENSMITTEL"}
)

// chainMarktPatterns captures the fuller "<CHAIN> ... MARKT ..." phrase on
// lines that mention both, e.g. "REWE MARKT GMBH".
var chainMarktPatterns = func() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(GermanChains))
	for _, chain := range GermanChains {
		patterns[chain] = regexp.MustCompile(`(` + chain + `[\s\w]*MARKT[\s\w]*)`)
	}
	return patterns
}()

// parseAmount normalizes a matched amount string (comma or dot decimal
// separator) into a decimal. The bool is false when the string does not parse;
// callers treat that as field absence, never as an error.
func parseAmount(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// extractFirstGroup walks an ordered pattern list and returns the first
// capture group of the first pattern that matches.
func extractFirstGroup(text string, patterns []*regexp.Regexp) *string {
	for _, pattern := range patterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			value := strings.TrimSpace(m[1])
			return &value
		}
	}
	return nil
}

func extractStoreName(lines []string, chains *chainDetector) *string {
	limit := min(len(lines), headerLines)

	for _, line := range lines[:limit] {
		upper := strings.ToUpper(strings.TrimSpace(line))
		chain, ok := chains.detect(upper)
		if !ok {
			continue
		}
		// Capture "REWE Markt" style phrases instead of the whole line.
		if strings.Contains(upper, "MARKT") {
			if m := chainMarktPatterns[chain].FindStringSubmatch(upper); m != nil {
				name := titleCase(m[1])
				return &name
			}
		}
		return &chain
	}

	// Fallback: a short header line that looks like a store name.
	for _, line := range lines[:limit] {
		clean := strings.TrimSpace(line)
		upper := strings.ToUpper(line)
		for _, keyword := range storeNameKeywords {
			if strings.Contains(upper, keyword) && len(clean) < 50 {
				return &clean
			}
		}
	}

	return nil
}

func extractStoreAddress(lines []string) *string {
	limit := min(len(lines), headerLines)

	for i := 0; i < limit; i++ {
		line := strings.TrimSpace(lines[i])
		if !postalCodePattern.MatchString(line) && !streetPattern.MatchString(line) {
			continue
		}

		addressLines := []string{line}
		if i+1 < len(lines) {
			next := strings.TrimSpace(lines[i+1])
			if next != "" && !startsWithDigit(next) {
				addressLines = append(addressLines, next)
			}
		}
		address := strings.Join(addressLines, " ")
		return &address
	}

	return nil
}

func extractDate(text string) *time.Time {
	for _, pattern := range datePatterns {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			first, _ := strconv.Atoi(m[1])
			second, _ := strconv.Atoi(m[2])
			third, _ := strconv.Atoi(m[3])

			year := third
			if len(m[3]) == 2 {
				year = 2000 + third
			}

			// DD.MM.YYYY first, then the same triple as YYYY.MM.DD.
			if d, ok := makeDate(year, second, first); ok {
				return d
			}
			if d, ok := makeDate(first, second, third); ok {
				return d
			}
		}
	}
	return nil
}

func extractTime(text string) *string {
	for _, pattern := range timePatterns {
		if m := pattern.FindString(text); m != "" {
			return &m
		}
	}
	return nil
}

// extractAmountNear finds the first keyword followed closely by an amount.
func extractAmountNear(text string, keywords []string) *decimal.Decimal {
	for _, keyword := range keywords {
		pattern := regexp.MustCompile(`(?i)` + keyword + `[:\s]*([0-9]+[,\.]\d{2})`)
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if amount, ok := parseAmount(m[1]); ok {
			return &amount
		}
	}
	return nil
}

func extractSubtotal(text string) *decimal.Decimal {
	return extractAmountNear(text, subtotalKeywords)
}

func extractTaxAmount(text string) *decimal.Decimal {
	if m := taxSummaryPattern.FindStringSubmatch(text); m != nil {
		if amount, ok := parseAmount(m[1]); ok {
			return &amount
		}
	}
	return extractAmountNear(text, taxKeywords)
}

func extractTotalAmount(text string) *decimal.Decimal {
	for _, pattern := range totalPatterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if amount, ok := parseAmount(m[1]); ok {
			return &amount
		}
	}
	return extractAmountNear(text, totalKeywords)
}

func extractTaxBreakdown(text string) map[string]TaxEntry {
	breakdown := make(map[string]TaxEntry)

	for _, m := range taxBreakdownPattern.FindAllStringSubmatch(text, -1) {
		rate, okRate := parseAmount(m[2])
		net, okNet := parseAmount(m[3])
		tax, okTax := parseAmount(m[4])
		gross, okGross := parseAmount(m[5])
		if !okRate || !okNet || !okTax || !okGross {
			continue
		}

		code := m[1]
		breakdown["tax_"+strings.ToLower(code)] = TaxEntry{
			Code:        code,
			RatePercent: rate,
			NetAmount:   net,
			TaxAmount:   tax,
			GrossAmount: gross,
		}
	}

	return breakdown
}

func extractPaymentMethod(text string) *string {
	// REWE card receipt phrasings, most specific first.
	switch {
	case strings.Contains(text, "Contactless") && strings.Contains(text, "DEBIT MASTERCARD"):
		return strPtr("Contactless Debit Mastercard")
	case strings.Contains(text, "DEBIT MASTERCARD"):
		return strPtr("Debit Mastercard")
	case strings.Contains(text, "Geg. Mastercard"):
		return strPtr("Mastercard")
	}

	upper := strings.ToUpper(text)

	if m := maskedCardPattern.FindStringSubmatch(text); m != nil {
		if strings.Contains(upper, "MASTERCARD") {
			return strPtr("Mastercard ending in " + m[1])
		}
		if strings.Contains(upper, "VISA") {
			return strPtr("Visa ending in " + m[1])
		}
	}

	paymentMethods := []struct {
		method   string
		keywords []string
	}{
		{"EC-Karte", []string{"EC-Karte", "Girocard", "Debitkarte"}},
		{"Kreditkarte", []string{"Kreditkarte", "VISA", "Mastercard", "AMEX"}},
		{"Bargeld", []string{"Bar", "Bargeld", "Cash"}},
		{"Kontaktlos", []string{"Kontaktlos", "NFC", "Tap", "Contactless"}},
	}

	for _, pm := range paymentMethods {
		for _, keyword := range pm.keywords {
			if strings.Contains(upper, strings.ToUpper(keyword)) {
				return strPtr(pm.method)
			}
		}
	}

	return nil
}

// makeDate validates a calendar triple. time.Date silently normalizes
// out-of-range values, so the components are checked after construction.
func makeDate(year, month, day int) (*time.Time, bool) {
	if year < 1 || month < 1 || month > 12 || day < 1 || day > 31 {
		return nil, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || d.Month() != time.Month(month) || d.Day() != day {
		return nil, false
	}
	return &d, true
}

func startsWithDigit(s string) bool {
	for _, r := range s[:min(len(s), 3)] {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, word := range words {
		runes := []rune(word)
		if len(runes) > 0 {
			runes[0] = unicode.ToUpper(runes[0])
			words[i] = string(runes)
		}
	}
	return strings.Join(words, " ")
}

func strPtr(s string) *string {
	return &s
}
