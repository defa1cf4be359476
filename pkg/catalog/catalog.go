// Package catalog reads the storefront's products, categories and brands
// from the hosted relational backend.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotFound is returned when a slug lookup matches no row.
var ErrNotFound = errors.New("catalog: not found")

// ItemsPerPage is the page size of category and brand listings.
const ItemsPerPage = 12

// SearchLimit is the number of results returned by a storefront search.
const SearchLimit = 12

type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
}

type Brand struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	WebsiteURL  string `json:"website_url,omitempty"`
}

type Product struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Slug           string          `json:"slug"`
	Description    string          `json:"description,omitempty"`
	Price          float64         `json:"price,omitempty"`
	Image          string          `json:"image,omitempty"`
	CategoryID     *int64          `json:"category_id,omitempty"`
	BrandID        *int64          `json:"brand_id,omitempty"`
	Specifications json.RawMessage `json:"specifications,omitempty"`

	// Joined rows; nil when the foreign key is unset or not selected.
	Category *Category `json:"categories,omitempty"`
	Brand    *Brand    `json:"brands,omitempty"`
}

// Store is the read surface the storefront needs from the backend.
type Store interface {
	ProductBySlug(ctx context.Context, slug string) (*Product, error)
	CategoryBySlug(ctx context.Context, slug string) (*Category, error)
	BrandBySlug(ctx context.Context, slug string) (*Brand, error)

	// Categories returns every category ordered by name.
	Categories(ctx context.Context) ([]Category, error)

	ProductsByCategory(ctx context.Context, categoryID int64, page int) (Page[Product], error)
	ProductsByBrand(ctx context.Context, brandID int64, page int) (Page[Product], error)

	// Search returns up to limit products whose name matches query, and the
	// total number of matches.
	Search(ctx context.Context, query string, limit int) (Page[Product], error)

	// ProductsAfter returns up to limit products with id greater than
	// cursor, in id order.
	ProductsAfter(ctx context.Context, cursor int64, limit int) ([]Product, error)

	CountProducts(ctx context.Context) (int, error)
}
