package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
)

// Product is a read-only catalog entry. Prices are integer minor units.
type Product struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	Price         int64             `json:"price"`
	Currency      string            `json:"currency"`
	Category      string            `json:"category"`
	AverageRating float64           `json:"average_rating"`
	RatingCount   int               `json:"rating_count"`
	TechnicalInfo map[string]string `json:"technical_info,omitempty"`
	InStock       bool              `json:"in_stock"`
}

// Catalog is the product lookup collaborator consumed by the agent core.
type Catalog interface {
	// Lookup returns the product with the given id, if present.
	Lookup(id string) (Product, bool)

	// Search returns products matching the query (case-insensitive substring
	// on title and description) and category (exact match). Empty arguments
	// match everything.
	Search(query, category string) []Product

	// All returns every catalog entry.
	All() []Product
}

//go:embed products.json
var productsJSON []byte

type memoryCatalog struct {
	products []Product
}

// Load builds the catalog from the embedded product file.
func Load() (Catalog, error) {
	var products []Product
	if err := json.Unmarshal(productsJSON, &products); err != nil {
		return nil, fmt.Errorf("parse embedded catalog: %w", err)
	}
	return &memoryCatalog{products: products}, nil
}

// FromProducts builds a catalog from the given entries. Intended for tests
// and alternative catalog sources.
func FromProducts(products []Product) Catalog {
	return &memoryCatalog{products: products}
}

func (c *memoryCatalog) Lookup(id string) (Product, bool) {
	for _, p := range c.products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

func (c *memoryCatalog) Search(query, category string) []Product {
	results := make([]Product, 0, len(c.products))
	queryLower := strings.ToLower(query)

	for _, p := range c.products {
		if query != "" &&
			!strings.Contains(strings.ToLower(p.Title), queryLower) &&
			!strings.Contains(strings.ToLower(p.Description), queryLower) {
			continue
		}
		if category != "" && p.Category != category {
			continue
		}
		results = append(results, p)
	}

	return results
}

func (c *memoryCatalog) All() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}
