// Package search defines the product documents the seeder keeps in sync
// with a search index.
package search

import (
	"context"

	"github.com/shopspring/decimal"
)

// Document is the indexed view of one generated product.
type Document struct {
	ID          string            `json:"id"`
	SKU         string            `json:"sku"`
	Slug        string            `json:"slug"`
	BrandID     string            `json:"brand_id"`
	Names       map[string]string `json:"names"`
	Price       decimal.Decimal   `json:"price"`
	SalePrice   *decimal.Decimal  `json:"sale_price,omitempty"`
	OnSale      bool              `json:"on_sale"`
	Featured    bool              `json:"is_featured"`
	CategoryIDs []string          `json:"category_ids"`
	Variants    int               `json:"variants"`
}

// Indexer writes documents to a search index. Index replaces documents
// with the same ID, so reindexing is idempotent.
type Indexer interface {
	Index(ctx context.Context, docs []Document) error
	Ping(ctx context.Context) error
}
