package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory, append-only catalog used by the CLI and tests.
// Products keep insertion order, which is the fuzzy-match tie-break order.
type MemoryStore struct {
	mu           sync.RWMutex
	products     []Product
	byNormalized map[string]int // index into products
	aliases      []Alias
}

// NewMemoryStore creates an empty in-memory catalog.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byNormalized: make(map[string]int),
	}
}

func (s *MemoryStore) GetByNormalizedName(_ context.Context, normalizedName string) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byNormalized[normalizedName]
	if !ok {
		return nil, nil
	}
	p := s.products[idx]
	return &p, nil
}

func (s *MemoryStore) FindProductByAlias(_ context.Context, normalizedAlias string) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.aliases {
		if strings.Contains(a.NormalizedAlias, normalizedAlias) {
			for _, p := range s.products {
				if p.ID == a.ProductID {
					match := p
					return &match, nil
				}
			}
		}
	}
	return nil, nil
}

func (s *MemoryStore) FindSimilar(_ context.Context, name string, category Category, limit int) ([]Product, error) {
	words := similarWords(name)
	if len(words) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []Product
	for _, p := range s.products {
		if category != "" && p.Category != category {
			continue
		}
		if containsAllWords(p.NormalizedName, words) {
			results = append(results, p)
			if len(results) >= limit {
				break
			}
		}
	}
	return results, nil
}

func (s *MemoryStore) CreateProduct(_ context.Context, p *Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byNormalized[p.NormalizedName]; exists {
		return ErrDuplicateProduct
	}

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	s.byNormalized[p.NormalizedName] = len(s.products)
	s.products = append(s.products, *p)
	return nil
}

func (s *MemoryStore) CreateAlias(_ context.Context, a *Alias) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	s.aliases = append(s.aliases, *a)
	return nil
}

func (s *MemoryStore) ListByCategory(_ context.Context, category Category, limit int) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []Product
	for _, p := range s.products {
		if p.Category == category {
			results = append(results, p)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })

	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

func (s *MemoryStore) SearchByName(_ context.Context, query string, limit int) ([]Product, error) {
	q := strings.ToLower(query)
	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []Product
	for _, p := range s.products {
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(p.NormalizedName, q) {
			results = append(results, p)
			if len(results) >= limit {
				break
			}
		}
	}
	return results, nil
}

// Len returns the number of products in the catalog.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products)
}

func containsAllWords(normalizedName string, words []string) bool {
	for _, w := range words {
		if !strings.Contains(normalizedName, w) {
			return false
		}
	}
	return true
}
