package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS categories (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE,
	description TEXT
);
CREATE TABLE IF NOT EXISTS brands (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE,
	description TEXT,
	website_url TEXT
);
CREATE TABLE IF NOT EXISTS products (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE,
	description TEXT,
	price REAL,
	image TEXT,
	category_id INTEGER REFERENCES categories(id),
	brand_id INTEGER REFERENCES brands(id),
	specifications TEXT
);
CREATE INDEX IF NOT EXISTS idx_products_category ON products(category_id);
CREATE INDEX IF NOT EXISTS idx_products_brand ON products(brand_id);
`

const productColumns = `
	p.id, p.name, p.slug, p.description, p.price, p.image, p.category_id, p.brand_id, p.specifications,
	c.id, c.name, c.slug, c.description,
	b.id, b.name, b.slug, b.description, b.website_url
FROM products p
LEFT JOIN categories c ON c.id = p.category_id
LEFT JOIN brands b ON b.id = p.brand_id`

// SQLStore serves the catalog from a local SQLite mirror of the backend.
type SQLStore struct {
	db *sql.DB
}

// OpenSQLStore opens (creating if needed) the SQLite database at path.
// ":memory:" opens a private in-memory database.
func OpenSQLStore(path string) (*SQLStore, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// InsertCategory stores c and sets its ID.
func (s *SQLStore) InsertCategory(ctx context.Context, c *Category) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (name, slug, description) VALUES (?, ?, ?)`,
		c.Name, c.Slug, nullString(c.Description))
	if err != nil {
		return fmt.Errorf("insert category %q: %w", c.Slug, err)
	}
	c.ID, err = res.LastInsertId()
	return err
}

// InsertBrand stores b and sets its ID.
func (s *SQLStore) InsertBrand(ctx context.Context, b *Brand) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO brands (name, slug, description, website_url) VALUES (?, ?, ?, ?)`,
		b.Name, b.Slug, nullString(b.Description), nullString(b.WebsiteURL))
	if err != nil {
		return fmt.Errorf("insert brand %q: %w", b.Slug, err)
	}
	b.ID, err = res.LastInsertId()
	return err
}

// InsertProduct stores p and sets its ID.
func (s *SQLStore) InsertProduct(ctx context.Context, p *Product) error {
	var specs any
	if len(p.Specifications) > 0 {
		specs = string(p.Specifications)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO products (name, slug, description, price, image, category_id, brand_id, specifications)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Slug, nullString(p.Description), p.Price, nullString(p.Image), p.CategoryID, p.BrandID, specs)
	if err != nil {
		return fmt.Errorf("insert product %q: %w", p.Slug, err)
	}
	p.ID, err = res.LastInsertId()
	return err
}

func (s *SQLStore) ProductBySlug(ctx context.Context, slug string) (*Product, error) {
	rows, err := s.queryProducts(ctx, `SELECT `+productColumns+` WHERE p.slug = ? LIMIT 1`, slug)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (s *SQLStore) CategoryBySlug(ctx context.Context, slug string) (*Category, error) {
	var c Category
	var desc sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, slug, description FROM categories WHERE slug = ?`, slug).
		Scan(&c.ID, &c.Name, &c.Slug, &desc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query category %q: %w", slug, err)
	}
	c.Description = desc.String
	return &c, nil
}

func (s *SQLStore) BrandBySlug(ctx context.Context, slug string) (*Brand, error) {
	var b Brand
	var desc, site sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, slug, description, website_url FROM brands WHERE slug = ?`, slug).
		Scan(&b.ID, &b.Name, &b.Slug, &desc, &site)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query brand %q: %w", slug, err)
	}
	b.Description, b.WebsiteURL = desc.String, site.String
	return &b, nil
}

func (s *SQLStore) Categories(ctx context.Context) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, slug, description FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		var desc sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &desc); err != nil {
			return nil, err
		}
		c.Description = desc.String
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) ProductsByCategory(ctx context.Context, categoryID int64, page int) (Page[Product], error) {
	return s.productPage(ctx, "p.category_id", categoryID, page)
}

func (s *SQLStore) ProductsByBrand(ctx context.Context, brandID int64, page int) (Page[Product], error) {
	return s.productPage(ctx, "p.brand_id", brandID, page)
}

func (s *SQLStore) productPage(ctx context.Context, col string, id int64, page int) (Page[Product], error) {
	r := PageRange(page, ItemsPerPage)

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products p WHERE `+col+` = ?`, id).Scan(&total); err != nil {
		return Page[Product]{}, fmt.Errorf("count products: %w", err)
	}

	items, err := s.queryProducts(ctx,
		`SELECT `+productColumns+` WHERE `+col+` = ? ORDER BY p.id LIMIT ? OFFSET ?`,
		id, r.Limit(), r.From)
	if err != nil {
		return Page[Product]{}, err
	}
	return NewPage(items, total, r), nil
}

// Search matches products whose name contains every whitespace-separated
// term of text, case-insensitively.
func (s *SQLStore) Search(ctx context.Context, text string, limit int) (Page[Product], error) {
	terms := strings.Fields(text)
	if len(terms) == 0 {
		return NewPage[Product](nil, 0, Range{To: -1}), nil
	}
	if limit <= 0 {
		limit = SearchLimit
	}

	var where []string
	var args []any
	for _, term := range terms {
		where = append(where, `LOWER(p.name) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(term))+"%")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products p WHERE `+cond, args...).Scan(&total); err != nil {
		return Page[Product]{}, fmt.Errorf("count search results: %w", err)
	}

	items, err := s.queryProducts(ctx,
		`SELECT `+productColumns+` WHERE `+cond+` ORDER BY p.id LIMIT ?`, append(args, limit)...)
	if err != nil {
		return Page[Product]{}, err
	}
	return NewPage(items, total, Range{From: 0, To: limit - 1}), nil
}

func (s *SQLStore) ProductsAfter(ctx context.Context, cursor int64, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = ItemsPerPage
	}
	return s.queryProducts(ctx, `SELECT `+productColumns+` WHERE p.id > ? ORDER BY p.id LIMIT ?`, cursor, limit)
}

func (s *SQLStore) CountProducts(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

func (s *SQLStore) queryProducts(ctx context.Context, q string, args ...any) ([]Product, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var (
			p                          Product
			desc, image, specs         sql.NullString
			price                      sql.NullFloat64
			catID, brandID             sql.NullInt64
			cID, bID                   sql.NullInt64
			cName, cSlug, cDesc        sql.NullString
			bName, bSlug, bDesc, bSite sql.NullString
		)
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Slug, &desc, &price, &image, &catID, &brandID, &specs,
			&cID, &cName, &cSlug, &cDesc,
			&bID, &bName, &bSlug, &bDesc, &bSite,
		); err != nil {
			return nil, err
		}

		p.Description, p.Image, p.Price = desc.String, image.String, price.Float64
		if specs.Valid && specs.String != "" {
			p.Specifications = json.RawMessage(specs.String)
		}
		if catID.Valid {
			p.CategoryID = &catID.Int64
		}
		if brandID.Valid {
			p.BrandID = &brandID.Int64
		}
		if cID.Valid {
			p.Category = &Category{ID: cID.Int64, Name: cName.String, Slug: cSlug.String, Description: cDesc.String}
		}
		if bID.Valid {
			p.Brand = &Brand{ID: bID.Int64, Name: bName.String, Slug: bSlug.String, Description: bDesc.String, WebsiteURL: bSite.String}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
