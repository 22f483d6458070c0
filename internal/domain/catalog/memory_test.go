package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProduct(name string, category Category) *Product {
	return &Product{
		Name:            name,
		NormalizedName:  NormalizeName(name),
		Category:        category,
		TypicalUnit:     "piece",
		DataSource:      "manual",
		ConfidenceScore: 1.0,
	}
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	p := newProduct("Vollmilch 3,5%", CategoryDairy)
	require.NoError(t, store.CreateProduct(ctx, p))
	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.False(t, p.CreatedAt.IsZero())

	got, err := store.GetByNormalizedName(ctx, p.NormalizedName)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, p.ID, got.ID)

	missing, err := store.GetByNormalizedName(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryStore_CreateProduct_Duplicate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.CreateProduct(ctx, newProduct("Butter", CategoryDairy)))

	err := store.CreateProduct(ctx, newProduct("BUTTER", CategoryDairy))
	assert.ErrorIs(t, err, ErrDuplicateProduct)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_FindProductByAlias(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	p := newProduct("Hähnchenbrustfilet", CategoryMeatFish)
	require.NoError(t, store.CreateProduct(ctx, p))
	require.NoError(t, store.CreateAlias(ctx, &Alias{
		ProductID:       p.ID,
		AliasName:       "HA-BRUSTFILET",
		NormalizedAlias: NormalizeName("HA-BRUSTFILET"),
	}))

	// Alias lookup is a substring match on the normalized alias.
	got, err := store.FindProductByAlias(ctx, "brustfilet")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, p.ID, got.ID)

	none, err := store.FindProductByAlias(ctx, "lachs")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestMemoryStore_FindSimilar(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.CreateProduct(ctx, newProduct("Bio Apfelsaft naturtrüb", CategoryBeverages)))
	require.NoError(t, store.CreateProduct(ctx, newProduct("Apfelsaft klar", CategoryBeverages)))
	require.NoError(t, store.CreateProduct(ctx, newProduct("Orangensaft", CategoryBeverages)))

	t.Run("requires every query word", func(t *testing.T) {
		got, err := store.FindSimilar(ctx, "bio apfelsaft", CategoryBeverages, 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Bio Apfelsaft naturtrüb", got[0].Name)
	})

	t.Run("category filter excludes other categories", func(t *testing.T) {
		got, err := store.FindSimilar(ctx, "apfelsaft", CategoryDairy, 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("insertion order is preserved", func(t *testing.T) {
		got, err := store.FindSimilar(ctx, "apfelsaft", CategoryBeverages, 10)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Bio Apfelsaft naturtrüb", got[0].Name)
		assert.Equal(t, "Apfelsaft klar", got[1].Name)
	})

	t.Run("short-word-only query finds nothing", func(t *testing.T) {
		got, err := store.FindSimilar(ctx, "ab cd", CategoryBeverages, 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestMemoryStore_SearchByName(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.CreateProduct(ctx, newProduct("Gouda jung", CategoryDairy)))
	require.NoError(t, store.CreateProduct(ctx, newProduct("Camembert", CategoryDairy)))

	got, err := store.SearchByName(ctx, "GOUDA", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Gouda jung", got[0].Name)
}

func TestMemoryStore_ListByCategory(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.CreateProduct(ctx, newProduct("Zwieback", CategoryBakery)))
	require.NoError(t, store.CreateProduct(ctx, newProduct("Brötchen", CategoryBakery)))
	require.NoError(t, store.CreateProduct(ctx, newProduct("Milch", CategoryDairy)))

	got, err := store.ListByCategory(ctx, CategoryBakery, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Brötchen", got[0].Name, "results are ordered by name")
}
