// Package receipt turns raw PDF-extracted German grocery receipt text into a
// structured record: store identity, totals, tax breakdown, itemized lines and
// an extraction confidence score. Missing fields are never errors; extraction
// degrades into unset fields and a lower confidence.
package receipt

import (
	"time"

	"github.com/shopspring/decimal"
)

// Unit types a line item can carry.
const (
	UnitPieces   = "pieces"
	UnitWeight   = "weight"
	UnitDeposit  = "deposit"
	UnitDiscount = "discount"
)

// LineItem is one purchased entry parsed from the item region of a receipt.
// Price is signed: negative only for discount lines. When a discount line was
// merged into its parent item, OriginalPrice and DiscountAmount record the
// pre-merge state.
type LineItem struct {
	Name           string           `json:"name"`
	Price          decimal.Decimal  `json:"price"`
	Quantity       float64          `json:"quantity"`
	TaxCode        string           `json:"tax_code"`
	UnitType       string           `json:"unit_type"`
	IsDiscount     bool             `json:"is_discount"`
	WeightKG       *float64         `json:"weight_kg,omitempty"`
	OriginalPrice  *decimal.Decimal `json:"original_price,omitempty"`
	DiscountAmount *decimal.Decimal `json:"discount_amount,omitempty"`
}

// AsMap renders the item in the persisted dictionary shape expected by the
// storage layer.
func (li LineItem) AsMap() map[string]any {
	m := map[string]any{
		"name":        li.Name,
		"price":       li.Price,
		"quantity":    li.Quantity,
		"tax_code":    li.TaxCode,
		"unit_type":   li.UnitType,
		"is_discount": li.IsDiscount,
	}
	if li.WeightKG != nil {
		m["weight_kg"] = *li.WeightKG
	}
	if li.OriginalPrice != nil {
		m["original_price"] = *li.OriginalPrice
	}
	if li.DiscountAmount != nil {
		m["discount_amount"] = *li.DiscountAmount
	}
	return m
}

// TaxEntry is one row of the per-tax-code summary printed on German receipts.
type TaxEntry struct {
	Code        string          `json:"code"`
	RatePercent decimal.Decimal `json:"rate_percent"`
	NetAmount   decimal.Decimal `json:"net_amount"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	GrossAmount decimal.Decimal `json:"gross_amount"`
}

// AsMap renders the entry in the persisted dictionary shape.
func (te TaxEntry) AsMap() map[string]any {
	return map[string]any{
		"code":         te.Code,
		"rate_percent": te.RatePercent,
		"net_amount":   te.NetAmount,
		"tax_amount":   te.TaxAmount,
		"gross_amount": te.GrossAmount,
	}
}

// Metadata carries free-form processing information attached to a parse.
type Metadata struct {
	ProcessingTimestamp time.Time `json:"processing_timestamp"`
	ProcessorVersion    string    `json:"processor_version"`
	Language            string    `json:"language"`
	StoreChain          string    `json:"store_chain"`
}

// ExtractedReceipt is the structured output of one parse. All pointer fields
// are optional: nil means the pattern heuristics found nothing, which is not
// an error. Numeric fields are non-negative except line item prices, which are
// negative only for discounts.
type ExtractedReceipt struct {
	RawText string `json:"raw_text"`

	StoreName      *string `json:"store_name,omitempty"`
	StoreAddress   *string `json:"store_address,omitempty"`
	StorePhone     *string `json:"store_phone,omitempty"`
	ReceiptNumber  *string `json:"receipt_number,omitempty"`
	CashierID      *string `json:"cashier_id,omitempty"`
	RegisterNumber *string `json:"register_number,omitempty"`

	// TransactionDate is a calendar date; the time-of-day component is zero.
	TransactionDate *time.Time `json:"transaction_date,omitempty"`
	// TransactionTime is the matched time string as printed, not validated.
	TransactionTime *string `json:"transaction_time,omitempty"`

	Subtotal      *decimal.Decimal `json:"subtotal,omitempty"`
	TaxAmount     *decimal.Decimal `json:"tax_amount,omitempty"`
	TotalAmount   *decimal.Decimal `json:"total_amount,omitempty"`
	PaymentMethod *string          `json:"payment_method,omitempty"`

	Items []LineItem `json:"items"`

	// TaxBreakdown is keyed "tax_<lowercase code>".
	TaxBreakdown map[string]TaxEntry `json:"tax_breakdown"`

	Confidence float64  `json:"extraction_confidence"`
	Metadata   Metadata `json:"extra_metadata"`
}

// ItemsAsMaps renders all items in the persisted dictionary shape.
func (r *ExtractedReceipt) ItemsAsMaps() []map[string]any {
	maps := make([]map[string]any, len(r.Items))
	for i, item := range r.Items {
		maps[i] = item.AsMap()
	}
	return maps
}

// TaxBreakdownAsMaps renders the tax breakdown in the persisted shape.
func (r *ExtractedReceipt) TaxBreakdownAsMaps() map[string]map[string]any {
	maps := make(map[string]map[string]any, len(r.TaxBreakdown))
	for key, entry := range r.TaxBreakdown {
		maps[key] = entry.AsMap()
	}
	return maps
}
