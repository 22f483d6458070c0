package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
)

// seedRow is one line of the canonical products CSV.
type seedRow struct {
	Name           string  `csv:"name"`
	Category       string  `csv:"category"`
	Brand          string  `csv:"brand"`
	TypicalUnit    string  `csv:"typical_unit"`
	TypicalWeightG float64 `csv:"typical_weight_g"`
}

// LoadSeed reads a canonical product list from CSV and appends it to the
// store. Rows whose normalized name is already present are skipped, so the
// loader is safe to re-run. Returns the number of products created.
func LoadSeed(ctx context.Context, r io.Reader, store Store, logger *slog.Logger) (int, error) {
	var rows []seedRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return 0, fmt.Errorf("failed to parse seed CSV: %w", err)
	}

	created := 0
	for _, row := range rows {
		if row.Name == "" {
			continue
		}

		p := &Product{
			ID:              uuid.New(),
			Name:            row.Name,
			NormalizedName:  NormalizeName(row.Name),
			Category:        seedCategory(row),
			TypicalUnit:     row.TypicalUnit,
			DataSource:      "seed",
			ConfidenceScore: 0.9,
		}
		if row.Brand != "" {
			brand := row.Brand
			p.Brand = &brand
		}
		if row.TypicalWeightG > 0 {
			weight := row.TypicalWeightG
			p.TypicalWeightG = &weight
		}

		err := store.CreateProduct(ctx, p)
		if errors.Is(err, ErrDuplicateProduct) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("failed to seed product %q: %w", row.Name, err)
		}
		created++
	}

	logger.Info("catalog seed loaded", "rows", len(rows), "created", created)
	return created, nil
}

// seedCategory takes the CSV category when given, otherwise predicts one from
// the product name.
func seedCategory(row seedRow) Category {
	if row.Category != "" {
		return Category(row.Category)
	}
	return PredictCategory(row.Name)
}
