// Package money provides euro formatting and parsing helpers for amounts that
// originate on German receipts. Arithmetic stays in decimal.Decimal; this
// package only crosses into integer cents at the display boundary.
package money

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// EUR is the only currency German receipts carry.
const EUR = money.EUR

// FormatEUR renders a decimal amount as a localized euro string, e.g. "€26.72".
func FormatEUR(amount decimal.Decimal) string {
	return fromDecimal(amount).Display()
}

// CentsEUR converts a decimal euro amount to integer cents, rounding half up.
func CentsEUR(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.New(1, 2)).Round(0).IntPart()
}

// ParseGerman parses a German-formatted amount ("26,72", "1.234,56") into a
// decimal euro value.
func ParseGerman(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}

// Sum adds decimal euro amounts through integer cents, so that display
// rounding and addition commute.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := money.New(0, EUR)
	for _, a := range amounts {
		// Allocation over same-currency values cannot fail.
		total, _ = total.Add(fromDecimal(a))
	}
	return decimal.New(total.Amount(), -2)
}

func fromDecimal(amount decimal.Decimal) *money.Money {
	return money.New(CentsEUR(amount), EUR)
}
