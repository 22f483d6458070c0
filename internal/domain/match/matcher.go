package match

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/shopspring/decimal"

	"github.com/kassenblick/kassenblick/internal/domain/catalog"
)

// Confidence assigned to each match tier. Tiers are tried in order; the first
// hit wins.
const (
	ConfidenceExact = 1.0
	ConfidenceAlias = 0.95

	// ConfidenceAutoCreated marks products created from a receipt item rather
	// than curated data.
	ConfidenceAutoCreated = 0.6
)

// DataSourceReceiptAuto is the provenance of auto-created catalog entries.
const DataSourceReceiptAuto = "receipt_auto"

const fuzzyCandidateLimit = 10

// Result is the outcome of a match attempt. Product is nil when no tier
// produced a match at or above the threshold, in which case Confidence is 0.
type Result struct {
	Product    *catalog.Product
	Confidence float64
}

// Suggestion is a ranked catalog candidate for manual review. Lower Distance
// means a closer match.
type Suggestion struct {
	Product  catalog.Product
	Distance int
}

// Matcher resolves receipt item names to catalog products.
type Matcher struct {
	store  catalog.Store
	logger *slog.Logger
}

// NewMatcher creates a matcher over the given catalog store.
func NewMatcher(store catalog.Store, logger *slog.Logger) *Matcher {
	return &Matcher{store: store, logger: logger}
}

// FindBestMatch resolves an item name in three tiers: exact normalized-name
// lookup, alias lookup, then fuzzy similarity over candidates sharing the
// query's words and predicted category. The fuzzy tier only matches at or
// above the threshold; ties keep the earliest candidate in store order.
func (m *Matcher) FindBestMatch(ctx context.Context, itemName string, threshold float64) (Result, error) {
	normalized := catalog.NormalizeName(itemName)

	product, err := m.store.GetByNormalizedName(ctx, normalized)
	if err != nil {
		return Result{}, fmt.Errorf("exact lookup for %q: %w", itemName, err)
	}
	if product != nil {
		return Result{Product: product, Confidence: ConfidenceExact}, nil
	}

	product, err = m.store.FindProductByAlias(ctx, normalized)
	if err != nil {
		return Result{}, fmt.Errorf("alias lookup for %q: %w", itemName, err)
	}
	if product != nil {
		return Result{Product: product, Confidence: ConfidenceAlias}, nil
	}

	category := catalog.PredictCategory(itemName)
	candidates, err := m.store.FindSimilar(ctx, itemName, category, fuzzyCandidateLimit)
	if err != nil {
		return Result{}, fmt.Errorf("candidate lookup for %q: %w", itemName, err)
	}

	var best *catalog.Product
	bestScore := 0.0
	for i := range candidates {
		if score := Similarity(itemName, candidates[i].Name); score > bestScore {
			bestScore = score
			best = &candidates[i]
		}
	}

	if best != nil && bestScore >= threshold {
		m.logger.Debug("fuzzy match",
			"item", itemName,
			"product", best.Name,
			"score", bestScore,
		)
		return Result{Product: best, Confidence: bestScore}, nil
	}

	return Result{}, nil
}

// CreateProductFromItem adds a catalog entry derived from a single receipt
// item. The entry carries receipt_auto provenance and a reduced confidence so
// curated data can later supersede it. Returns catalog.ErrDuplicateProduct
// when a concurrent writer got there first.
func (m *Matcher) CreateProductFromItem(ctx context.Context, itemName string, price decimal.Decimal, quantity float64) (*catalog.Product, error) {
	category := catalog.PredictCategory(itemName)
	qty, unit := extractQuantityUnit(itemName)

	product := &catalog.Product{
		ID:              uuid.New(),
		Name:            titleCase(itemName),
		NormalizedName:  catalog.NormalizeName(itemName),
		Category:        category,
		TypicalUnit:     typicalUnit(unit),
		TypicalWeightG:  estimateWeightG(category, qty, unit),
		DataSource:      DataSourceReceiptAuto,
		ConfidenceScore: ConfidenceAutoCreated,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}

	if err := m.store.CreateProduct(ctx, product); err != nil {
		return nil, err
	}

	m.logger.Info("product auto-created",
		"name", product.Name,
		"category", product.Category,
		"price", price.StringFixed(2),
		"quantity", quantity,
	)

	return product, nil
}

// RankCandidates returns catalog products ranked by fuzzy closeness to the
// item name, for manual-review suggestion lists.
func (m *Matcher) RankCandidates(ctx context.Context, itemName string, limit int) ([]Suggestion, error) {
	normalized := catalog.NormalizeName(itemName)

	seen := make(map[uuid.UUID]catalog.Product)
	for _, word := range strings.Fields(normalized) {
		if len([]rune(word)) <= 2 {
			continue
		}
		products, err := m.store.SearchByName(ctx, word, 25)
		if err != nil {
			return nil, fmt.Errorf("candidate search for %q: %w", word, err)
		}
		for _, p := range products {
			seen[p.ID] = p
		}
	}

	byName := make(map[string]catalog.Product, len(seen))
	targets := make([]string, 0, len(seen))
	for _, p := range seen {
		byName[p.NormalizedName] = p
		targets = append(targets, p.NormalizedName)
	}
	sort.Strings(targets)

	ranks := fuzzy.RankFindNormalizedFold(normalized, targets)
	sort.Sort(ranks)

	suggestions := make([]Suggestion, 0, limit)
	for _, r := range ranks {
		if len(suggestions) == limit {
			break
		}
		suggestions = append(suggestions, Suggestion{
			Product:  byName[r.Target],
			Distance: r.Distance,
		})
	}

	return suggestions, nil
}

// Quantity/unit markers embedded in item names, e.g. "MILCH 1L", "HACK 500G".
// Order matters: "kg" must win over the bare "g" and "ml" over the bare "l".
// The bare "g" and "l" require a word boundary so "gr..." and "li..." words
// are not misread as units.
var unitPatterns = []struct {
	unit    string
	pattern *regexp.Regexp
}{
	{"kg", regexp.MustCompile(`(\d+[,\.]?\d*)\s*kg`)},
	{"g", regexp.MustCompile(`(\d+[,\.]?\d*)\s*g\b`)},
	{"ml", regexp.MustCompile(`(\d+[,\.]?\d*)\s*ml`)},
	{"l", regexp.MustCompile(`(\d+[,\.]?\d*)\s*l\b`)},
	{"piece", regexp.MustCompile(`(\d+)\s*st[üu]?ck?`)},
	{"pack", regexp.MustCompile(`(\d+)\s*pack`)},
}

// extractQuantityUnit pulls an embedded quantity and unit out of an item name.
// Returns (nil, "") when the name carries no recognizable unit marker.
func extractQuantityUnit(itemName string) (*float64, string) {
	lower := strings.ToLower(itemName)

	for _, up := range unitPatterns {
		m := up.pattern.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		qty, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		if err != nil {
			continue
		}
		return &qty, up.unit
	}

	return nil, ""
}

// Typical per-item weights in grams used when the item name does not state one.
var categoryWeightsG = map[catalog.Category]float64{
	catalog.CategoryFruits:     200,
	catalog.CategoryVegetables: 300,
	catalog.CategoryDairy:      500,
	catalog.CategoryMeatFish:   400,
	catalog.CategoryBakery:     500,
	catalog.CategoryPantry:     500,
	catalog.CategoryBeverages:  1000,
	catalog.CategorySnacks:     150,
}

const defaultWeightG = 300.0

// estimateWeightG derives a typical weight in grams: directly from an explicit
// g/kg quantity, otherwise from the category's typical weight.
func estimateWeightG(category catalog.Category, qty *float64, unit string) *float64 {
	var grams float64
	switch {
	case qty != nil && unit == "kg":
		grams = *qty * 1000
	case qty != nil && unit == "g":
		grams = *qty
	default:
		var ok bool
		grams, ok = categoryWeightsG[category]
		if !ok {
			grams = defaultWeightG
		}
	}
	return &grams
}

func typicalUnit(unit string) string {
	if unit == "" {
		return "piece"
	}
	return unit
}

// titleCase capitalizes each word of an (often all-caps) item name.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
