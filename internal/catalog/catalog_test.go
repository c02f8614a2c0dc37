package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmbeddedCatalog(t *testing.T) {
	cat, err := Load()

	require.NoError(t, err)
	all := cat.All()
	assert.NotEmpty(t, all)
	for _, p := range all {
		assert.NotEmpty(t, p.ID)
		assert.NotEmpty(t, p.Title)
		assert.Greater(t, p.Price, int64(0))
	}
}

func TestMemoryCatalog_Lookup(t *testing.T) {
	cat := FromProducts([]Product{
		{ID: "prod-1", Title: "Wireless Headphones", Price: 1000},
	})

	p, ok := cat.Lookup("prod-1")
	require.True(t, ok)
	assert.Equal(t, "Wireless Headphones", p.Title)

	_, ok = cat.Lookup("missing")
	assert.False(t, ok)
}

func TestMemoryCatalog_Search(t *testing.T) {
	cat := FromProducts([]Product{
		{ID: "prod-1", Title: "Wireless Headphones", Description: "Noise cancelling", Category: "Electronics"},
		{ID: "prod-2", Title: "Yoga Mat", Description: "Non-slip exercise mat", Category: "Sports & Fitness"},
		{ID: "prod-3", Title: "Coffee Maker", Description: "Drip coffee machine", Category: "Home & Kitchen"},
	})

	t.Run("query matches title case-insensitively", func(t *testing.T) {
		results := cat.Search("HEADPHONES", "")
		require.Len(t, results, 1)
		assert.Equal(t, "prod-1", results[0].ID)
	})

	t.Run("query matches description", func(t *testing.T) {
		results := cat.Search("non-slip", "")
		require.Len(t, results, 1)
		assert.Equal(t, "prod-2", results[0].ID)
	})

	t.Run("category is exact match", func(t *testing.T) {
		results := cat.Search("", "Electronics")
		require.Len(t, results, 1)
		assert.Equal(t, "prod-1", results[0].ID)

		assert.Empty(t, cat.Search("", "electronics"))
	})

	t.Run("query and category combine", func(t *testing.T) {
		assert.Empty(t, cat.Search("coffee", "Electronics"))
		assert.Len(t, cat.Search("coffee", "Home & Kitchen"), 1)
	})

	t.Run("empty arguments match everything", func(t *testing.T) {
		assert.Len(t, cat.Search("", ""), 3)
	})

	t.Run("no match returns empty not nil", func(t *testing.T) {
		results := cat.Search("zeppelin", "")
		assert.NotNil(t, results)
		assert.Empty(t, results)
	})
}

func TestMemoryCatalog_AllReturnsCopy(t *testing.T) {
	cat := FromProducts([]Product{{ID: "prod-1", Title: "Widget"}})

	all := cat.All()
	all[0].Title = "Mutated"

	p, ok := cat.Lookup("prod-1")
	require.True(t, ok)
	assert.Equal(t, "Widget", p.Title)
}
