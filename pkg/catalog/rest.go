package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/supabase-community/postgrest-go"
	"golang.org/x/sync/errgroup"
)

const (
	productSelect      = "*,categories:category_id(*),brands:brand_id(*)"
	productBrandSelect = "*,brands:brand_id(*)"
	productCatSelect   = "*,categories:category_id(*)"
	defaultRESTTimeout = 15 * time.Second

	// codeRangeNotSatisfiable is PostgREST's answer to an offset past the
	// last row.
	codeRangeNotSatisfiable = "PGRST103"
)

var ascending = &postgrest.OrderOpts{Ascending: true}

// RESTStore reads the catalog through the backend's PostgREST interface.
type RESTStore struct {
	client  *postgrest.Client
	timeout time.Duration
}

// NewRESTStore returns a store for the project at baseURL (for example
// https://xyz.supabase.co) authenticated with the anon or service key.
func NewRESTStore(baseURL, key string, timeout time.Duration) (*RESTStore, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("error parsing catalog URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("catalog URL must be http(s): %q", baseURL)
	}
	if timeout <= 0 {
		timeout = defaultRESTTimeout
	}

	client := postgrest.NewClient(u.String()+"/rest/v1", "public", map[string]string{
		"apikey":        key,
		"Authorization": "Bearer " + key,
	})
	if client.ClientError != nil {
		return nil, fmt.Errorf("error creating catalog client: %w", client.ClientError)
	}
	return &RESTStore{client: client, timeout: timeout}, nil
}

type result struct {
	data  []byte
	count int64
	err   error
}

// exec runs f and decodes the rows into out when out is not nil. It returns
// the count reported by the backend, which is 0 unless f asked for one.
//
// postgrest-go does not take a context, so the call is abandoned when ctx
// ends or the store timeout passes.
func (s *RESTStore) exec(ctx context.Context, table string, f *postgrest.FilterBuilder, out any) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		data, count, err := f.Execute()
		done <- result{data: data, count: int64(count), err: err}
	}()

	var r result
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("catalog: querying %s: %w", table, ctx.Err())
	case r = <-done:
	}
	if r.err != nil {
		return 0, fmt.Errorf("catalog: querying %s: %w", table, r.err)
	}

	if out != nil && len(r.data) > 0 {
		if err := json.Unmarshal(r.data, out); err != nil {
			return 0, fmt.Errorf("catalog: decoding %s: %w", table, err)
		}
	}
	return int(r.count), nil
}

func (s *RESTStore) from(table, columns string) *postgrest.FilterBuilder {
	return s.client.From(table).Select(columns, "", false)
}

// count returns the exact number of rows matching the filters applied by
// filter, without fetching them.
func (s *RESTStore) count(ctx context.Context, table string, filter func(*postgrest.FilterBuilder) *postgrest.FilterBuilder) (int, error) {
	f := s.client.From(table).Select("id", "exact", true)
	if filter != nil {
		f = filter(f)
	}
	return s.exec(ctx, table, f, nil)
}

func (s *RESTStore) ProductBySlug(ctx context.Context, slug string) (*Product, error) {
	var rows []Product
	if _, err := s.exec(ctx, "products", s.from("products", productSelect).Eq("slug", slug).Limit(1, ""), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (s *RESTStore) CategoryBySlug(ctx context.Context, slug string) (*Category, error) {
	var rows []Category
	if _, err := s.exec(ctx, "categories", s.from("categories", "*").Eq("slug", slug).Limit(1, ""), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (s *RESTStore) BrandBySlug(ctx context.Context, slug string) (*Brand, error) {
	var rows []Brand
	if _, err := s.exec(ctx, "brands", s.from("brands", "*").Eq("slug", slug).Limit(1, ""), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (s *RESTStore) Categories(ctx context.Context) ([]Category, error) {
	var rows []Category
	if _, err := s.exec(ctx, "categories", s.from("categories", "*").Order("name", ascending), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *RESTStore) ProductsByCategory(ctx context.Context, categoryID int64, page int) (Page[Product], error) {
	return s.productPage(ctx, productBrandSelect, "category_id", categoryID, page)
}

func (s *RESTStore) ProductsByBrand(ctx context.Context, brandID int64, page int) (Page[Product], error) {
	return s.productPage(ctx, productCatSelect, "brand_id", brandID, page)
}

func (s *RESTStore) productPage(ctx context.Context, sel, col string, id int64, page int) (Page[Product], error) {
	r := PageRange(page, ItemsPerPage)
	value := strconv.FormatInt(id, 10)

	var rows []Product
	f := s.client.From("products").Select(sel, "exact", false).
		Eq(col, value).
		Order("id", ascending).
		Range(r.From, r.To, "")
	total, err := s.exec(ctx, "products", f, &rows)
	if err != nil && strings.Contains(err.Error(), codeRangeNotSatisfiable) {
		// past the last page: report the real total with no rows
		total, err = s.count(ctx, "products", func(f *postgrest.FilterBuilder) *postgrest.FilterBuilder {
			return f.Eq(col, value)
		})
		rows = nil
	}
	if err != nil {
		return Page[Product]{}, err
	}
	return NewPage(rows, total, r), nil
}

// Search runs the result query and the count query concurrently.
func (s *RESTStore) Search(ctx context.Context, text string, limit int) (Page[Product], error) {
	if strings.TrimSpace(text) == "" {
		return NewPage[Product](nil, 0, Range{To: -1}), nil
	}
	if limit <= 0 {
		limit = SearchLimit
	}

	var rows []Product
	var total int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		f := s.from("products", productSelect).TextSearch("name", text, "", "").Limit(limit, "")
		_, err := s.exec(gctx, "products", f, &rows)
		return err
	})
	g.Go(func() error {
		n, err := s.count(gctx, "products", func(f *postgrest.FilterBuilder) *postgrest.FilterBuilder {
			return f.TextSearch("name", text, "", "")
		})
		total = n
		return err
	})
	if err := g.Wait(); err != nil {
		return Page[Product]{}, err
	}
	return NewPage(rows, total, Range{From: 0, To: limit - 1}), nil
}

func (s *RESTStore) ProductsAfter(ctx context.Context, cursor int64, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = ItemsPerPage
	}
	f := s.from("products", "*").
		Gt("id", strconv.FormatInt(cursor, 10)).
		Order("id", ascending).
		Limit(limit, "")
	var rows []Product
	if _, err := s.exec(ctx, "products", f, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *RESTStore) CountProducts(ctx context.Context) (int, error) {
	return s.count(ctx, "products", nil)
}
