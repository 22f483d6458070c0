package purchase

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kassenblick/kassenblick/internal/domain/catalog"
)

func TestExportBatchXLSX(t *testing.T) {
	product := &catalog.Product{
		ID:       uuid.New(),
		Name:     "Vollmilch",
		Category: catalog.CategoryDairy,
	}
	record := &Record{
		ID:              uuid.New(),
		ReceiptItemName: "VOLLMILCH",
		Quantity:        1,
		UnitPrice:       decimal.RequireFromString("1.19"),
		TotalPrice:      decimal.RequireFromString("1.19"),
		UnitType:        "pieces",
		MatchConfidence: 1.0,
		PurchaseDate:    time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC),
	}

	batch := &BatchResult{
		TotalItems: 2,
		Matched:    1,
		Unmatched:  1,
		Items: []ItemResult{
			{ItemName: "VOLLMILCH", Matched: true, Product: product, Purchase: record},
			{ItemName: "UNBEKANNT"}, // unlinked, must not produce a row
		},
	}

	data, err := ExportBatchXLSX(batch)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2, "header plus one linked item")

	assert.Equal(t, "Purchase Date", rows[0][0])
	assert.Equal(t, "2025-05-02", rows[1][0])
	assert.Equal(t, "VOLLMILCH", rows[1][1])
	assert.Equal(t, "Vollmilch", rows[1][2])
	assert.Equal(t, "dairy", rows[1][3])
}

func TestExportBatchXLSX_EmptyBatch(t *testing.T) {
	data, err := ExportBatchXLSX(&BatchResult{})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1, "only the header row")
}
