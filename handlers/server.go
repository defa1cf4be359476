package handlers

import (
	"errors"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/partssupplied/partsedge/pkg/catalog"
	"github.com/partssupplied/partsedge/pkg/origin"
	"github.com/partssupplied/partsedge/pkg/seo"
)

type Options struct {
	Rewriter *seo.Rewriter
	// Origin proxies the storefront from a remote host. Mutually exclusive
	// with Static.
	Origin *origin.Client
	// Static serves a local build of the storefront from this directory.
	Static        string
	Store         catalog.Store
	ExposeRuleset bool
	Prefork       bool
	Log           *zap.Logger
}

// NewApp builds the Fiber app serving the storefront, its catalog API and
// the operational endpoints.
func NewApp(opts Options) *fiber.App {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		Prefork:               opts.Prefork,
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler(log),
	})

	app.Get("/healthz", Health(opts.Rewriter))
	app.Get("/ruleset", Ruleset(opts.Rewriter, opts.ExposeRuleset))

	if opts.Store != nil {
		NewCatalog(opts.Store, log).Register(app.Group("/api"))
	}

	switch {
	case opts.Origin != nil:
		app.Use(ProxySite(opts.Origin, opts.Rewriter, log))
	case opts.Static != "":
		app.Use(RewriteMeta(opts.Rewriter))
		app.Static("/", opts.Static)
		index := filepath.Join(opts.Static, "index.html")
		// client-side routes all render the app shell
		app.Get("/*", func(c *fiber.Ctx) error {
			return c.SendFile(index)
		})
	}

	return app
}

// ErrorHandler renders errors as JSON.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "internal server error"

		var e *fiber.Error
		if errors.As(err, &e) {
			code = e.Code
			msg = e.Message
		} else {
			log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		}

		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
}
