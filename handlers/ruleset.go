package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/partssupplied/partsedge/pkg/seo"
)

// Ruleset serves the active rules as YAML unless expose is false.
func Ruleset(rw *seo.Rewriter, expose bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !expose {
			return fiber.NewError(fiber.StatusForbidden, "Ruleset Disabled")
		}

		body, err := rw.Rules().Marshal()
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, "text/yaml; charset=utf-8")
		return c.Send(body)
	}
}

// Health reports liveness along with the number of active rules.
func Health(rw *seo.Rewriter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"rules":  rw.Rules().Count(),
		})
	}
}
