package purchase

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kassenblick/kassenblick/internal/domain/catalog"
	"github.com/kassenblick/kassenblick/internal/domain/match"
	"github.com/kassenblick/kassenblick/internal/domain/receipt"
)

func testLinker(t *testing.T) (*Linker, *catalog.MemoryStore, *MemoryStore) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	catalogStore := catalog.NewMemoryStore()
	purchaseStore := NewMemoryStore()
	matcher := match.NewMatcher(catalogStore, logger)
	linker := NewLinker(matcher, catalogStore, purchaseStore, logger)
	linker.now = func() time.Time { return time.Date(2025, 5, 2, 15, 0, 0, 0, time.UTC) }
	return linker, catalogStore, purchaseStore
}

func seedCatalogProduct(t *testing.T, store *catalog.MemoryStore, name string, category catalog.Category) *catalog.Product {
	t.Helper()
	p := &catalog.Product{
		Name:            name,
		NormalizedName:  catalog.NormalizeName(name),
		Category:        category,
		TypicalUnit:     "piece",
		DataSource:      "seed",
		ConfidenceScore: 0.9,
	}
	require.NoError(t, store.CreateProduct(context.Background(), p))
	return p
}

func lineItem(name, price string) receipt.LineItem {
	return receipt.LineItem{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Quantity: 1,
		TaxCode:  "B",
		UnitType: receipt.UnitPieces,
	}
}

func TestLinker_ProcessReceiptItems_MatchedAndCreated(t *testing.T) {
	ctx := context.Background()
	linker, catalogStore, purchaseStore := testLinker(t)
	milk := seedCatalogProduct(t, catalogStore, "Vollmilch", catalog.CategoryDairy)

	rec := &receipt.ExtractedReceipt{
		Items: []receipt.LineItem{
			lineItem("VOLLMILCH", "1.19"),
			lineItem("APFEL BRAEBURN", "1.29"),
		},
	}

	batch, err := linker.ProcessReceiptItems(ctx, rec, uuid.New(), uuid.New(), true)
	require.NoError(t, err)

	assert.Equal(t, 2, batch.TotalItems)
	assert.Equal(t, 2, batch.Matched)
	assert.Equal(t, 0, batch.Unmatched)
	assert.Equal(t, 1, batch.CreatedProducts)
	assert.Equal(t, 2, batch.CreatedPurchases)
	assert.InDelta(t, 1.0, batch.MatchRate, 1e-9)
	assert.Equal(t, 2, purchaseStore.Len())

	exact := batch.Items[0]
	require.NotNil(t, exact.Product)
	assert.Equal(t, milk.ID, exact.Product.ID)
	assert.InDelta(t, 1.0, exact.Purchase.MatchConfidence, 1e-9)

	created := batch.Items[1]
	assert.True(t, created.CreatedProduct)
	require.NotNil(t, created.Product)
	assert.Equal(t, match.DataSourceReceiptAuto, created.Product.DataSource)
	assert.InDelta(t, match.ConfidenceAutoCreated, created.Purchase.MatchConfidence, 1e-9)
}

func TestLinker_ProcessReceiptItems_NoAutoCreate(t *testing.T) {
	ctx := context.Background()
	linker, _, purchaseStore := testLinker(t)

	rec := &receipt.ExtractedReceipt{
		Items: []receipt.LineItem{lineItem("APFEL", "1.29")},
	}

	batch, err := linker.ProcessReceiptItems(ctx, rec, uuid.New(), uuid.New(), false)
	require.NoError(t, err)

	assert.Equal(t, 1, batch.TotalItems)
	assert.Equal(t, 0, batch.Matched)
	assert.Equal(t, 1, batch.Unmatched)
	assert.Equal(t, 0, batch.CreatedProducts)
	assert.InDelta(t, 0.0, batch.MatchRate, 1e-9)
	assert.Equal(t, 0, purchaseStore.Len())
}

func TestLinker_ProcessReceiptItems_SkipsDiscountLines(t *testing.T) {
	ctx := context.Background()
	linker, _, _ := testLinker(t)

	rec := &receipt.ExtractedReceipt{
		Items: []receipt.LineItem{
			{Name: "APFEL - Rabatt", Price: decimal.RequireFromString("-0.20"), Quantity: 1, UnitType: receipt.UnitDiscount, IsDiscount: true},
		},
	}

	batch, err := linker.ProcessReceiptItems(ctx, rec, uuid.New(), uuid.New(), true)
	require.NoError(t, err)

	assert.Equal(t, 0, batch.TotalItems)
	assert.InDelta(t, 0.0, batch.MatchRate, 1e-9, "empty batch has zero match rate, not NaN")
	assert.Empty(t, batch.Items)
}

func TestLinker_ProcessReceiptItems_LinksDepositItems(t *testing.T) {
	ctx := context.Background()
	linker, _, purchaseStore := testLinker(t)

	rec := &receipt.ExtractedReceipt{
		Items: []receipt.LineItem{
			{Name: "Pfand", Price: decimal.RequireFromString("0.25"), Quantity: 1, TaxCode: "A", UnitType: receipt.UnitDeposit},
		},
	}

	batch, err := linker.ProcessReceiptItems(ctx, rec, uuid.New(), uuid.New(), true)
	require.NoError(t, err)

	assert.Equal(t, 1, batch.TotalItems)
	assert.Equal(t, 1, batch.Matched)
	assert.Equal(t, 1, batch.CreatedProducts)
	assert.InDelta(t, 1.0, batch.MatchRate, 1e-9)

	require.Len(t, batch.Items, 1)
	res := batch.Items[0]
	require.NoError(t, res.Err)
	require.NotNil(t, res.Product)
	assert.Equal(t, "Pfand", res.Product.Name)
	assert.Equal(t, match.DataSourceReceiptAuto, res.Product.DataSource)
	require.NotNil(t, res.Purchase)
	assert.Equal(t, receipt.UnitDeposit, res.Purchase.UnitType)
	assert.Equal(t, 1, purchaseStore.Len())
}

func TestLinker_ProcessReceiptItems_PurchaseDateFromReceipt(t *testing.T) {
	ctx := context.Background()
	linker, catalogStore, _ := testLinker(t)
	seedCatalogProduct(t, catalogStore, "Vollmilch", catalog.CategoryDairy)

	txDate := time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)
	rec := &receipt.ExtractedReceipt{
		TransactionDate: &txDate,
		Items:           []receipt.LineItem{lineItem("VOLLMILCH", "1.19")},
	}

	batch, err := linker.ProcessReceiptItems(ctx, rec, uuid.New(), uuid.New(), false)
	require.NoError(t, err)
	require.Len(t, batch.Items, 1)
	assert.True(t, txDate.Equal(batch.Items[0].Purchase.PurchaseDate))
}

func TestLinker_ProcessReceiptItems_FailureIsolation(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)
	catalogStore := catalog.NewMemoryStore()
	seedCatalogProduct(t, catalogStore, "Vollmilch", catalog.CategoryDairy)

	failing := &failingPurchaseStore{failOn: "BROKEN ITEM"}
	matcher := match.NewMatcher(catalogStore, logger)
	linker := NewLinker(matcher, catalogStore, failing, logger)

	rec := &receipt.ExtractedReceipt{
		Items: []receipt.LineItem{
			lineItem("BROKEN ITEM", "1.00"),
			lineItem("VOLLMILCH", "1.19"),
		},
	}

	batch, err := linker.ProcessReceiptItems(ctx, rec, uuid.New(), uuid.New(), true)
	require.NoError(t, err, "one failing item must not abort the batch")

	assert.Equal(t, 2, batch.TotalItems)
	assert.Equal(t, 1, batch.Matched)
	assert.Equal(t, 1, batch.Unmatched)
	require.Error(t, batch.Items[0].Err)
	assert.NoError(t, batch.Items[1].Err)
	assert.InDelta(t, 0.5, batch.MatchRate, 1e-9)
}

func TestLinker_ProcessReceiptItems_DuplicateRaceRetriesLookup(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	winner := &catalog.Product{
		ID:              uuid.New(),
		Name:            "Apfel",
		NormalizedName:  "apfel",
		Category:        catalog.CategoryFruits,
		TypicalUnit:     "piece",
		DataSource:      match.DataSourceReceiptAuto,
		ConfidenceScore: match.ConfidenceAutoCreated,
	}
	racing := newRacingCatalogStore(t, winner)

	matcher := match.NewMatcher(racing, logger)
	linker := NewLinker(matcher, racing, NewMemoryStore(), logger)

	rec := &receipt.ExtractedReceipt{
		Items: []receipt.LineItem{lineItem("APFEL", "1.29")},
	}

	batch, err := linker.ProcessReceiptItems(ctx, rec, uuid.New(), uuid.New(), true)
	require.NoError(t, err)

	require.Len(t, batch.Items, 1)
	res := batch.Items[0]
	require.NoError(t, res.Err)
	assert.True(t, res.Matched)
	assert.False(t, res.CreatedProduct, "losing the race is not a creation")
	require.NotNil(t, res.Product)
	assert.Equal(t, winner.ID, res.Product.ID)
}

func TestBuildRecord_UnitPriceGuardsZeroQuantity(t *testing.T) {
	item := receipt.LineItem{
		Name:     "APFEL",
		Price:    decimal.RequireFromString("1.29"),
		Quantity: 0,
		UnitType: receipt.UnitPieces,
	}

	r := buildRecord(item, uuid.New(), uuid.New(), uuid.New(), 1.0, time.Now(), time.Now())
	assert.Equal(t, "1.29", r.UnitPrice.StringFixed(2))
	assert.InDelta(t, 0.0, r.Quantity, 1e-9, "the raw quantity is preserved")
}

// failingPurchaseStore rejects writes for one item name.
type failingPurchaseStore struct {
	MemoryStore
	failOn string
}

func (s *failingPurchaseStore) CreatePurchase(ctx context.Context, r *Record) error {
	if r.ReceiptItemName == s.failOn {
		return errors.New("constraint violation")
	}
	return s.MemoryStore.CreatePurchase(ctx, r)
}

// racingCatalogStore simulates a concurrent writer: the exact lookup misses
// until CreateProduct reports a duplicate, after which the winner's product is
// visible.
type racingCatalogStore struct {
	*catalog.MemoryStore
	winner *catalog.Product
	raced  bool
}

func newRacingCatalogStore(t *testing.T, winner *catalog.Product) *racingCatalogStore {
	t.Helper()
	return &racingCatalogStore{MemoryStore: catalog.NewMemoryStore(), winner: winner}
}

func (s *racingCatalogStore) GetByNormalizedName(ctx context.Context, name string) (*catalog.Product, error) {
	if s.raced && name == s.winner.NormalizedName {
		return s.winner, nil
	}
	return s.MemoryStore.GetByNormalizedName(ctx, name)
}

func (s *racingCatalogStore) CreateProduct(context.Context, *catalog.Product) error {
	s.raced = true
	return catalog.ErrDuplicateProduct
}
