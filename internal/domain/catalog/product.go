// Package catalog holds the canonical product catalog: the deduplicated list of
// known grocery products that receipt items resolve against, plus the name
// normalization and category prediction used as matching keys.
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Category classifies a product into one of a fixed set of grocery categories.
type Category string

const (
	CategoryFruits       Category = "fruits"
	CategoryVegetables   Category = "vegetables"
	CategoryDairy        Category = "dairy"
	CategoryMeatFish     Category = "meat_fish"
	CategoryBakery       Category = "bakery"
	CategoryPantry       Category = "pantry" // pasta, rice, canned goods
	CategoryBeverages    Category = "beverages"
	CategorySnacks       Category = "snacks"
	CategoryFrozen       Category = "frozen"
	CategoryHousehold    Category = "household"
	CategoryPersonalCare Category = "personal_care"
	CategoryOther        Category = "other"
)

// Product is a canonical catalog entry. NormalizedName is the unique matching
// key; entries are append-mostly and never mutated after creation by this core.
type Product struct {
	ID             uuid.UUID
	Name           string
	NormalizedName string
	Category       Category
	Brand          *string
	Barcode        *string
	Description    *string

	// Nutritional information (per 100g/100ml)
	CaloriesPer100g *float64
	ProteinPer100g  *float64
	CarbsPer100g    *float64
	FatPer100g      *float64

	TypicalUnit    string // "piece", "kg", "l", "pack"
	TypicalWeightG *float64

	// Provenance: "manual", "seed", "receipt_auto"
	DataSource      string
	ConfidenceScore float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Alias is an alternative name for a product, optionally store-specific,
// created explicitly to widen future matches.
type Alias struct {
	ID              uuid.UUID
	ProductID       uuid.UUID
	AliasName       string
	NormalizedAlias string
	StoreSpecific   *string // "REWE", "EDEKA", ...
	CreatedAt       time.Time
}
