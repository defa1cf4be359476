package catalog

import (
	"context"
	"fmt"
)

// Summary is the part of a catalog row that ends up in page metadata.
type Summary struct {
	Name        string
	Description string
	Image       string
}

// Summarize looks up the row of the given kind ("product", "category" or
// "brand") by slug.
func Summarize(ctx context.Context, s Store, kind, slug string) (Summary, error) {
	switch kind {
	case "product":
		p, err := s.ProductBySlug(ctx, slug)
		if err != nil {
			return Summary{}, err
		}
		return Summary{Name: p.Name, Description: p.Description, Image: p.Image}, nil
	case "category":
		c, err := s.CategoryBySlug(ctx, slug)
		if err != nil {
			return Summary{}, err
		}
		return Summary{Name: c.Name, Description: c.Description}, nil
	case "brand":
		b, err := s.BrandBySlug(ctx, slug)
		if err != nil {
			return Summary{}, err
		}
		return Summary{Name: b.Name, Description: b.Description}, nil
	}
	return Summary{}, fmt.Errorf("catalog: unknown kind %q", kind)
}
