package purchase

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/kassenblick/kassenblick/pkg/money"
)

const exportSheet = "Purchases"

var exportHeaders = []string{
	"Purchase Date",
	"Item",
	"Product",
	"Category",
	"Quantity",
	"Unit",
	"Unit Price",
	"Total Price",
	"Match Confidence",
	"Auto-Created",
}

// ExportBatchXLSX renders the linked items of one batch as an XLSX workbook,
// one row per created purchase. Unlinked and failed items are omitted.
func ExportBatchXLSX(batch *BatchResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	write := func(col, row int, v any) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(exportSheet, cell, v)
	}

	for i, h := range exportHeaders {
		if err := write(i+1, 1, h); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	row := 2
	for _, item := range batch.Items {
		if item.Purchase == nil {
			continue
		}
		p := item.Purchase

		cells := []any{
			p.PurchaseDate.Format("2006-01-02"),
			p.ReceiptItemName,
			item.Product.Name,
			string(item.Product.Category),
			p.Quantity,
			p.UnitType,
			money.FormatEUR(p.UnitPrice),
			money.FormatEUR(p.TotalPrice),
			p.MatchConfidence,
			item.CreatedProduct,
		}
		for col, v := range cells {
			if err := write(col+1, row, v); err != nil {
				return nil, fmt.Errorf("write row %d: %w", row, err)
			}
		}
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}
