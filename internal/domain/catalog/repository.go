package catalog

import (
	"context"
	"errors"
	"strings"
)

// ErrDuplicateProduct signals that another writer already created a product
// with the same normalized name. Under concurrent receipt processing this is
// an expected race: callers should re-run the exact-match lookup instead of
// treating it as a failure.
var ErrDuplicateProduct = errors.New("product with this normalized name already exists")

// Store is the catalog storage abstraction. The catalog is shared,
// append-mostly state: implementations must enforce uniqueness on the
// normalized product name but provide no further coordination.
type Store interface {
	// GetByNormalizedName returns the product whose stored normalized name
	// equals the key exactly, or nil when absent.
	GetByNormalizedName(ctx context.Context, normalizedName string) (*Product, error)

	// FindProductByAlias returns a product one of whose normalized aliases
	// contains the given normalized name as a substring, or nil.
	FindProductByAlias(ctx context.Context, normalizedAlias string) (*Product, error)

	// FindSimilar returns candidate products whose normalized name contains
	// every word (longer than two characters) of the query name, optionally
	// restricted to a category. Iteration order is stable and is the fuzzy
	// tie-break order.
	FindSimilar(ctx context.Context, name string, category Category, limit int) ([]Product, error)

	// CreateProduct appends a new catalog entry. Returns ErrDuplicateProduct
	// when the normalized name is already taken.
	CreateProduct(ctx context.Context, p *Product) error

	// CreateAlias registers an alternative name for an existing product.
	CreateAlias(ctx context.Context, a *Alias) error

	// ListByCategory returns products of one category ordered by name.
	ListByCategory(ctx context.Context, category Category, limit int) ([]Product, error)

	// SearchByName returns products whose name or normalized name contains
	// the query, case-insensitively.
	SearchByName(ctx context.Context, query string, limit int) ([]Product, error)
}

// similarWords splits a query into the lowercase words used by FindSimilar,
// skipping very short words.
func similarWords(name string) []string {
	var words []string
	for _, w := range splitLowerFields(name) {
		if len([]rune(w)) > 2 {
			words = append(words, w)
		}
	}
	return words
}

func splitLowerFields(s string) []string {
	return strings.Fields(strings.ToLower(s))
}
