package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store       *SQLStore
	controllers Category
	drives      Category
	siemens     Brand
	abb         Brand
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	s, err := OpenSQLStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	f := &fixture{
		store:       s,
		controllers: Category{Name: "Controllers", Slug: "controllers", Description: "PLCs and PACs"},
		drives:      Category{Name: "Drives", Slug: "drives"},
		siemens:     Brand{Name: "Siemens", Slug: "siemens", WebsiteURL: "https://siemens.com"},
		abb:         Brand{Name: "ABB", Slug: "abb"},
	}
	require.NoError(t, s.InsertCategory(ctx, &f.drives))
	require.NoError(t, s.InsertCategory(ctx, &f.controllers))
	require.NoError(t, s.InsertBrand(ctx, &f.siemens))
	require.NoError(t, s.InsertBrand(ctx, &f.abb))

	for i := 1; i <= 30; i++ {
		p := Product{
			Name:       fmt.Sprintf("Simatic Controller S7-%d", i),
			Slug:       fmt.Sprintf("s7-%d", i),
			Price:      float64(100 * i),
			CategoryID: &f.controllers.ID,
			BrandID:    &f.siemens.ID,
		}
		require.NoError(t, s.InsertProduct(ctx, &p))
	}
	servo := Product{
		Name:           "ACS880 Servo Drive",
		Slug:           "acs880",
		Description:    "Industrial drive for demanding applications",
		Image:          "/images/acs880.png",
		CategoryID:     &f.drives.ID,
		BrandID:        &f.abb.ID,
		Specifications: json.RawMessage(`{"power":"5kW"}`),
	}
	require.NoError(t, s.InsertProduct(ctx, &servo))
	orphan := Product{Name: "Loose 100% Fuse_Kit", Slug: "fuse-kit"}
	require.NoError(t, s.InsertProduct(ctx, &orphan))

	return f
}

func TestSQLStoreProductBySlug(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.store.ProductBySlug(ctx, "acs880")
	require.NoError(t, err)
	assert.Equal(t, "ACS880 Servo Drive", p.Name)
	assert.JSONEq(t, `{"power":"5kW"}`, string(p.Specifications))
	require.NotNil(t, p.Category)
	require.NotNil(t, p.Brand)
	assert.Equal(t, "drives", p.Category.Slug)
	assert.Equal(t, "abb", p.Brand.Slug)

	p, err = f.store.ProductBySlug(ctx, "fuse-kit")
	require.NoError(t, err)
	assert.Nil(t, p.Category)
	assert.Nil(t, p.Brand)
	assert.Nil(t, p.CategoryID)

	_, err = f.store.ProductBySlug(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStoreLookups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.store.CategoryBySlug(ctx, "controllers")
	require.NoError(t, err)
	assert.Equal(t, f.controllers, *c)

	b, err := f.store.BrandBySlug(ctx, "siemens")
	require.NoError(t, err)
	assert.Equal(t, f.siemens, *b)

	_, err = f.store.CategoryBySlug(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.store.BrandBySlug(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	cats, err := f.store.Categories(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff([]Category{f.controllers, f.drives}, cats); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLStoreProductsByCategoryPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.store.ProductsByCategory(ctx, f.controllers.ID, 0)
	require.NoError(t, err)
	assert.Len(t, first.Items, ItemsPerPage)
	assert.Equal(t, 30, first.Total)
	assert.True(t, first.HasMore)
	assert.Equal(t, "s7-1", first.Items[0].Slug)
	require.NotNil(t, first.Items[0].Brand)
	assert.Equal(t, "Siemens", first.Items[0].Brand.Name)

	last, err := f.store.ProductsByCategory(ctx, f.controllers.ID, 2)
	require.NoError(t, err)
	assert.Len(t, last.Items, 6)
	assert.False(t, last.HasMore)
	assert.Equal(t, "s7-25", last.Items[0].Slug)

	past, err := f.store.ProductsByCategory(ctx, f.controllers.ID, 5)
	require.NoError(t, err)
	assert.Empty(t, past.Items)
	assert.NotNil(t, past.Items)

	byBrand, err := f.store.ProductsByBrand(ctx, f.abb.ID, 0)
	require.NoError(t, err)
	require.Len(t, byBrand.Items, 1)
	assert.Equal(t, "acs880", byBrand.Items[0].Slug)
}

func TestSQLStoreSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.store.Search(ctx, "simatic controller", SearchLimit)
	require.NoError(t, err)
	assert.Len(t, res.Items, SearchLimit)
	assert.Equal(t, 30, res.Total)
	assert.True(t, res.HasMore)

	res, err = f.store.Search(ctx, "SERVO", 0)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.False(t, res.HasMore)

	res, err = f.store.Search(ctx, "100%", 0)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "fuse-kit", res.Items[0].Slug)

	res, err = f.store.Search(ctx, "   ", 0)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Zero(t, res.Total)
}

func TestSQLStoreCursor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var seen []string
	var cursor int64
	for {
		batch, err := f.store.ProductsAfter(ctx, cursor, 10)
		require.NoError(t, err)
		if len(batch) == 0 {
			break
		}
		for _, p := range batch {
			seen = append(seen, p.Slug)
		}
		cursor = batch[len(batch)-1].ID
	}
	assert.Len(t, seen, 32)
	assert.Equal(t, "fuse-kit", seen[31])

	n, err := f.store.CountProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 32, n)
}

func TestSummarize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := Summarize(ctx, f.store, "product", "acs880")
	require.NoError(t, err)
	assert.Equal(t, Summary{
		Name:        "ACS880 Servo Drive",
		Description: "Industrial drive for demanding applications",
		Image:       "/images/acs880.png",
	}, s)

	s, err = Summarize(ctx, f.store, "category", "controllers")
	require.NoError(t, err)
	assert.Equal(t, "Controllers", s.Name)

	s, err = Summarize(ctx, f.store, "brand", "abb")
	require.NoError(t, err)
	assert.Equal(t, "ABB", s.Name)

	_, err = Summarize(ctx, f.store, "brand", "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Summarize(ctx, f.store, "widget", "x")
	assert.Error(t, err)
}
