package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/partssupplied/partsedge/pkg/catalog"
)

const maxCursorLimit = 1000

// Catalog serves the storefront's catalog as JSON.
type Catalog struct {
	store catalog.Store
	log   *zap.Logger
}

func NewCatalog(store catalog.Store, log *zap.Logger) *Catalog {
	if log == nil {
		log = zap.NewNop()
	}
	return &Catalog{store: store, log: log}
}

// Register mounts the catalog routes on r.
func (h *Catalog) Register(r fiber.Router) {
	r.Get("/products", h.ProductsAfter)
	r.Get("/products/:slug", h.Product)
	r.Get("/categories", h.Categories)
	r.Get("/categories/:slug", h.Category)
	r.Get("/categories/:slug/products", h.CategoryProducts)
	r.Get("/brands/:slug", h.Brand)
	r.Get("/brands/:slug/products", h.BrandProducts)
	r.Get("/search", h.Search)
}

func (h *Catalog) Product(c *fiber.Ctx) error {
	p, err := h.store.ProductBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(p)
}

func (h *Catalog) Categories(c *fiber.Ctx) error {
	categories, err := h.store.Categories(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	if categories == nil {
		categories = []catalog.Category{}
	}
	return c.JSON(categories)
}

func (h *Catalog) Category(c *fiber.Ctx) error {
	category, err := h.store.CategoryBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(category)
}

// CategoryProducts lists one zero-based page of a category's products.
func (h *Catalog) CategoryProducts(c *fiber.Ctx) error {
	page, err := intQuery(c, "page", 0)
	if err != nil || page < 0 || page > catalog.MaxPage {
		return fiber.NewError(fiber.StatusBadRequest, "page out of range")
	}
	ctx := c.UserContext()
	category, err := h.store.CategoryBySlug(ctx, c.Params("slug"))
	if err != nil {
		return h.fail(c, err)
	}
	products, err := h.store.ProductsByCategory(ctx, category.ID, page)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(products)
}

func (h *Catalog) Brand(c *fiber.Ctx) error {
	brand, err := h.store.BrandBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(brand)
}

// BrandProducts lists one zero-based page of a brand's products.
func (h *Catalog) BrandProducts(c *fiber.Ctx) error {
	page, err := intQuery(c, "page", 0)
	if err != nil || page < 0 || page > catalog.MaxPage {
		return fiber.NewError(fiber.StatusBadRequest, "page out of range")
	}
	ctx := c.UserContext()
	brand, err := h.store.BrandBySlug(ctx, c.Params("slug"))
	if err != nil {
		return h.fail(c, err)
	}
	products, err := h.store.ProductsByBrand(ctx, brand.ID, page)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(products)
}

func (h *Catalog) Search(c *fiber.Ctx) error {
	q := c.Query("q")
	if q == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing query parameter q")
	}
	results, err := h.store.Search(c.UserContext(), q, catalog.SearchLimit)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(results)
}

// ProductsAfter pages through every product by id, for crawlers and feeds.
func (h *Catalog) ProductsAfter(c *fiber.Ctx) error {
	after, err := strconv.ParseInt(c.Query("after", "0"), 10, 64)
	if err != nil || after < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "after must be a non-negative integer")
	}
	limit, err := intQuery(c, "limit", 100)
	if err != nil || limit < 1 || limit > maxCursorLimit {
		return fiber.NewError(fiber.StatusBadRequest, "limit must be between 1 and 1000")
	}

	ctx := c.UserContext()
	products, err := h.store.ProductsAfter(ctx, after, limit)
	if err != nil {
		return h.fail(c, err)
	}
	if products == nil {
		products = []catalog.Product{}
	}
	next := int64(0)
	if len(products) == limit {
		next = products[len(products)-1].ID
	}
	return c.JSON(fiber.Map{"items": products, "next": next})
}

// fail maps a store error to an HTTP error.
func (h *Catalog) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "not found")
	case errors.Is(err, context.Canceled):
		return fiber.NewError(fiber.StatusRequestTimeout, "request cancelled")
	}
	h.log.Error("catalog query failed", zap.String("path", c.Path()), zap.Error(err))
	return fiber.NewError(fiber.StatusInternalServerError, "catalog unavailable")
}

func intQuery(c *fiber.Ctx, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
