// Package e2etest provides end-to-end tests for the receipt pipeline: raw
// extracted text through parsing, catalog matching and purchase linking.
package e2etest

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kassenblick/kassenblick/internal/domain/catalog"
	"github.com/kassenblick/kassenblick/internal/domain/match"
	"github.com/kassenblick/kassenblick/internal/domain/purchase"
	"github.com/kassenblick/kassenblick/internal/domain/receipt"
)

const reweReceiptText = `REWE MARKT GMBH
Hochzoller Str. 2
86163 Augsburg

EUR
HA-BRUSTFILET6,49 B
APFEL1,29 B
Rabatt -0,20
VOLLMILCH1,19 B
PFAND 0,25 A
SUMME EUR    9,02
Geg. Mastercard

A= 19,0% 0,21 0,04 0,25
B= 7,0% 8,20 0,57 8,77
Gesamtbetrag 8,41 0,61 9,02

02.05.2025 14:32 Bon:4521
Vielen Dank für Ihren Einkauf`

const seedCSV = `name,category,brand,typical_unit,typical_weight_g
Vollmilch,dairy,,l,1000
Hähnchenbrustfilet,meat_fish,,g,400
`

func TestReceiptPipeline_EndToEnd(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	catalogStore := catalog.NewMemoryStore()
	purchaseStore := purchase.NewMemoryStore()

	created, err := catalog.LoadSeed(ctx, strings.NewReader(seedCSV), catalogStore, logger)
	require.NoError(t, err)
	require.Equal(t, 2, created)

	// An alias maps the REWE abbreviation onto the seeded product.
	filet, err := catalogStore.GetByNormalizedName(ctx, catalog.NormalizeName("Hähnchenbrustfilet"))
	require.NoError(t, err)
	require.NotNil(t, filet)
	require.NoError(t, catalogStore.CreateAlias(ctx, &catalog.Alias{
		ProductID:       filet.ID,
		AliasName:       "HA-BRUSTFILET",
		NormalizedAlias: catalog.NormalizeName("HA-BRUSTFILET"),
		StoreSpecific:   strPtr("REWE"),
	}))

	rec := receipt.NewParser(logger).Parse(reweReceiptText)

	require.NotNil(t, rec.TotalAmount)
	assert.Equal(t, "9.02", rec.TotalAmount.StringFixed(2))
	assert.Equal(t, "REWE", rec.Metadata.StoreChain)
	require.NotNil(t, rec.TransactionDate)
	require.Len(t, rec.Items, 4)

	matcher := match.NewMatcher(catalogStore, logger)
	linker := purchase.NewLinker(matcher, catalogStore, purchaseStore, logger)

	batch, err := linker.ProcessReceiptItems(ctx, rec, uuid.New(), uuid.New(), true)
	require.NoError(t, err)

	// Filet matches via alias, milk exactly; the apple and the Pfand deposit
	// are auto-created.
	assert.Equal(t, 4, batch.TotalItems)
	assert.Equal(t, 4, batch.Matched)
	assert.Equal(t, 2, batch.CreatedProducts)
	assert.InDelta(t, 1.0, batch.MatchRate, 1e-9)
	assert.Equal(t, 4, purchaseStore.Len())

	for _, item := range batch.Items {
		require.NoError(t, item.Err)
		require.NotNil(t, item.Purchase)
		assert.True(t, time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC).Equal(item.Purchase.PurchaseDate),
			"purchases carry the receipt transaction date")
	}

	// The merged discount flows through to the purchase row.
	apple := findItem(t, batch.Items, "APFEL")
	assert.Equal(t, "1.09", apple.Purchase.TotalPrice.StringFixed(2))
	assert.True(t, apple.CreatedProduct)

	exported, err := purchase.ExportBatchXLSX(batch)
	require.NoError(t, err)
	assert.NotEmpty(t, exported)
}

func findItem(t *testing.T, items []purchase.ItemResult, name string) purchase.ItemResult {
	t.Helper()
	for _, item := range items {
		if item.ItemName == name {
			return item
		}
	}
	t.Fatalf("item %q not in batch", name)
	return purchase.ItemResult{}
}

func strPtr(s string) *string {
	return &s
}
