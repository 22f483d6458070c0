// Package purchase links parsed receipt items to catalog products and records
// the resulting purchase history rows. Linking is best-effort per item: a
// failure on one item never aborts the batch.
package purchase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kassenblick/kassenblick/internal/domain/catalog"
	"github.com/kassenblick/kassenblick/internal/domain/match"
	"github.com/kassenblick/kassenblick/internal/domain/receipt"
)

// DefaultMatchThreshold is the fuzzy-match acceptance bar for linking.
const DefaultMatchThreshold = 0.8

// Record is one purchase history row: a receipt item resolved to a catalog
// product, with the price breakdown at purchase time.
type Record struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	ProductID       uuid.UUID
	ReceiptID       uuid.UUID
	ReceiptItemName string

	Quantity   float64
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
	UnitType   string
	WeightKG   *float64

	MatchConfidence float64
	IsManualMatch   bool

	PurchaseDate time.Time
	CreatedAt    time.Time
}

// ItemResult describes what happened to one receipt item during linking.
type ItemResult struct {
	ItemName       string
	Matched        bool
	CreatedProduct bool
	Product        *catalog.Product
	Purchase       *Record
	Err            error
}

// BatchResult summarizes linking of one receipt.
type BatchResult struct {
	TotalItems       int
	Matched          int
	Unmatched        int
	CreatedProducts  int
	CreatedPurchases int
	MatchRate        float64
	Items            []ItemResult
}

// Linker resolves receipt items against the catalog and builds purchase rows.
type Linker struct {
	matcher   *match.Matcher
	catalog   catalog.Store
	purchases Store
	threshold float64
	logger    *slog.Logger
	now       func() time.Time
}

// NewLinker creates a linker with the default match threshold.
func NewLinker(matcher *match.Matcher, catalogStore catalog.Store, purchases Store, logger *slog.Logger) *Linker {
	return &Linker{
		matcher:   matcher,
		catalog:   catalogStore,
		purchases: purchases,
		threshold: DefaultMatchThreshold,
		logger:    logger,
		now:       time.Now,
	}
}

// WithThreshold overrides the fuzzy-match acceptance threshold.
func (l *Linker) WithThreshold(threshold float64) *Linker {
	l.threshold = threshold
	return l
}

// ProcessReceiptItems links every line item of a parsed receipt, deposit
// lines included (they resolve to a "Pfand" catalog entry). Standalone
// discount lines are price adjustments rather than products and are skipped.
// When autoCreate is set, unmatched items create a new catalog product
// instead of going unlinked. Item-level failures are captured in the
// per-item results; the batch always completes.
func (l *Linker) ProcessReceiptItems(ctx context.Context, rec *receipt.ExtractedReceipt, receiptID, userID uuid.UUID, autoCreate bool) (*BatchResult, error) {
	result := &BatchResult{}

	purchaseDate := l.now().UTC()
	if rec.TransactionDate != nil {
		purchaseDate = *rec.TransactionDate
	}

	for _, item := range rec.Items {
		if item.IsDiscount {
			continue
		}
		result.TotalItems++

		itemResult := l.linkItem(ctx, item, receiptID, userID, purchaseDate, autoCreate)
		result.Items = append(result.Items, itemResult)

		if itemResult.Err != nil {
			result.Unmatched++
			l.logger.Error("item linking failed",
				"item", item.Name,
				"error", itemResult.Err,
			)
			continue
		}
		if itemResult.CreatedProduct {
			result.CreatedProducts++
		}
		if itemResult.Matched {
			result.Matched++
			result.CreatedPurchases++
		} else {
			result.Unmatched++
		}
	}

	if result.TotalItems > 0 {
		result.MatchRate = float64(result.Matched) / float64(result.TotalItems)
	}

	l.logger.Info("receipt items linked",
		"receipt_id", receiptID,
		"total", result.TotalItems,
		"matched", result.Matched,
		"created_products", result.CreatedProducts,
		"match_rate", result.MatchRate,
	)

	return result, nil
}

func (l *Linker) linkItem(ctx context.Context, item receipt.LineItem, receiptID, userID uuid.UUID, purchaseDate time.Time, autoCreate bool) ItemResult {
	res := ItemResult{ItemName: item.Name}

	found, err := l.matcher.FindBestMatch(ctx, item.Name, l.threshold)
	if err != nil {
		res.Err = err
		return res
	}

	confidence := found.Confidence
	product := found.Product

	if product == nil {
		if !autoCreate {
			return res
		}

		created := true
		product, err = l.matcher.CreateProductFromItem(ctx, item.Name, item.Price, item.Quantity)
		if errors.Is(err, catalog.ErrDuplicateProduct) {
			// Lost the creation race to a concurrent writer; the winner's
			// entry is the one to link against.
			created = false
			product, err = l.catalog.GetByNormalizedName(ctx, catalog.NormalizeName(item.Name))
		}
		if err != nil {
			res.Err = fmt.Errorf("auto-create for %q: %w", item.Name, err)
			return res
		}
		if product == nil {
			res.Err = fmt.Errorf("auto-create for %q: product vanished after duplicate", item.Name)
			return res
		}
		res.CreatedProduct = created
		confidence = match.ConfidenceAutoCreated
	}

	record := buildRecord(item, product.ID, receiptID, userID, confidence, purchaseDate, l.now().UTC())
	if l.purchases != nil {
		if err := l.purchases.CreatePurchase(ctx, record); err != nil {
			res.Err = fmt.Errorf("persist purchase for %q: %w", item.Name, err)
			return res
		}
	}

	res.Matched = true
	res.Product = product
	res.Purchase = record
	return res
}

// buildRecord derives the purchase row from a line item. UnitPrice is the
// total divided by the quantity, guarding against a zero quantity.
func buildRecord(item receipt.LineItem, productID, receiptID, userID uuid.UUID, confidence float64, purchaseDate, createdAt time.Time) *Record {
	qty := item.Quantity
	if qty < 1 {
		qty = 1
	}

	return &Record{
		ID:              uuid.New(),
		UserID:          userID,
		ProductID:       productID,
		ReceiptID:       receiptID,
		ReceiptItemName: item.Name,
		Quantity:        item.Quantity,
		UnitPrice:       item.Price.Div(decimal.NewFromFloat(qty)),
		TotalPrice:      item.Price,
		UnitType:        item.UnitType,
		WeightKG:        item.WeightKG,
		MatchConfidence: confidence,
		PurchaseDate:    purchaseDate,
		CreatedAt:       createdAt,
	}
}
