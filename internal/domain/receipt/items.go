package receipt

import (
	"regexp"
	"strings"
)

var (
	// Item line: an uppercase name run directly followed (no separator
	// required) by an amount with exactly two decimals and a tax code.
	// "HA-BRUSTFILET6,49 B" → name "HA-BRUSTFILET", price 6.49, code B.
	itemPattern = regexp.MustCompile(`^([A-ZÄÖÜ][A-ZÄÖÜ\s\.\!\-\/]+?)(\d+[,\.]\d{2})\s*([AB])$`)

	// Deposit lines: "PFAND 0,25 A" and variants.
	depositPattern = regexp.MustCompile(`PFAND.*?(\d+[,\.]\d{2})\s*([AB])`)

	// Negative amount on a discount line ("Rabatt -0,20").
	discountAmountPattern = regexp.MustCompile(`-(\d+[,\.]\d{2})`)

	trailingPunctPattern = regexp.MustCompile(`[\.\s]+$`)

	// Summary markers terminating the item region.
	summaryMarkers = []string{"SUMME", "======", "------", "GESAMTBETRAG"}

	// Address and legal boilerplate fragments that slip into the item region.
	noiseMarkers = []string{"HOCHZOLLER", "AUGSBURG", "UID NR", "REWE MARKT"}
)

// extractItems parses the item region of the receipt into line items, with
// discount lines merged into the item they follow.
func extractItems(text string) []LineItem {
	lines := strings.Split(text, "\n")
	start, end := itemRegion(lines)

	var items []LineItem
	for i := start; i < end; i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || isNoiseLine(line) {
			continue
		}

		// Deposit lines also satisfy the generic item pattern, so they are
		// recognized first.
		if item, ok := parseDepositLine(line); ok {
			items = append(items, item)
			continue
		}

		if item, ok := parseItemLine(line); ok {
			items = append(items, item)

			// A discount on the next line belongs to this item; emit it
			// right after so the merge pass can fold it in.
			if i+1 < len(lines) {
				if d, ok := parseDiscountLine(strings.TrimSpace(lines[i+1]), item); ok {
					items = append(items, d)
				}
			}
		}
	}

	return mergeDiscounts(items)
}

// itemRegion bounds the item list: from a few lines above the first line
// carrying EUR together with a digit (an amount, not a bare currency header),
// down to the first summary marker. Defaults to the whole text when no bound
// is found.
func itemRegion(lines []string) (int, int) {
	start := 0
	for i, line := range lines {
		if strings.Contains(line, "EUR") && containsDigit(line) {
			start = max(0, i-5)
			break
		}
	}

	end := len(lines)
	for i, line := range lines {
		upper := strings.ToUpper(line)
		for _, marker := range summaryMarkers {
			if strings.Contains(upper, marker) {
				return start, i
			}
		}
	}

	return start, end
}

func parseItemLine(line string) (LineItem, bool) {
	m := itemPattern.FindStringSubmatch(line)
	if m == nil {
		return LineItem{}, false
	}

	name := trailingPunctPattern.ReplaceAllString(strings.TrimSpace(m[1]), "")
	price, ok := parseAmount(m[2])
	if !ok {
		return LineItem{}, false
	}

	return LineItem{
		Name:     name,
		Price:    price,
		Quantity: 1,
		TaxCode:  m[3],
		UnitType: UnitPieces,
	}, true
}

func parseDepositLine(line string) (LineItem, bool) {
	if !strings.Contains(strings.ToUpper(line), "PFAND") {
		return LineItem{}, false
	}

	m := depositPattern.FindStringSubmatch(line)
	if m == nil {
		return LineItem{}, false
	}
	price, ok := parseAmount(m[1])
	if !ok {
		return LineItem{}, false
	}

	return LineItem{
		Name:     "Pfand",
		Price:    price,
		Quantity: 1,
		TaxCode:  m[2],
		UnitType: UnitDeposit,
	}, true
}

// parseDiscountLine recognizes a discount belonging to the preceding item.
func parseDiscountLine(line string, parent LineItem) (LineItem, bool) {
	lower := strings.ToLower(line)
	if !strings.Contains(lower, "rabatt") || !strings.Contains(lower, "-") {
		return LineItem{}, false
	}

	m := discountAmountPattern.FindStringSubmatch(lower)
	if m == nil {
		return LineItem{}, false
	}
	amount, ok := parseAmount(m[1])
	if !ok {
		return LineItem{}, false
	}

	return LineItem{
		Name:       parent.Name + " - Rabatt",
		Price:      amount.Neg(),
		Quantity:   1,
		TaxCode:    parent.TaxCode,
		UnitType:   UnitDiscount,
		IsDiscount: true,
	}, true
}

// mergeDiscounts folds each discount entry into the item immediately before
// it: the item keeps its identity, records original price and discount
// amount, and the standalone discount entry is dropped.
func mergeDiscounts(items []LineItem) []LineItem {
	if len(items) == 0 {
		return items
	}

	combined := make([]LineItem, 0, len(items))
	for i := 0; i < len(items); i++ {
		item := items[i]

		if i+1 < len(items) {
			next := items[i+1]
			if next.IsDiscount && next.Price.IsNegative() && !item.IsDiscount {
				original := item.Price
				discount := next.Price.Abs()
				item.OriginalPrice = &original
				item.DiscountAmount = &discount
				item.Price = original.Add(next.Price)
				combined = append(combined, item)
				i++
				continue
			}
		}

		combined = append(combined, item)
	}

	return combined
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

func isNoiseLine(line string) bool {
	upper := strings.ToUpper(line)
	for _, marker := range noiseMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}
