package handlers

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/partssupplied/partsedge/pkg/origin"
	"github.com/partssupplied/partsedge/pkg/seo"
)

// ProxySite is a Fiber handler that fetches the storefront page from the
// origin and delivers it with its meta tags rewritten.
func ProxySite(o *origin.Client, rw *seo.Rewriter, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		method := c.Method()
		if method != fiber.MethodGet && method != fiber.MethodHead {
			return fiber.NewError(fiber.StatusMethodNotAllowed, "method not allowed")
		}

		path := c.Path()
		resp, err := o.Fetch(c.UserContext(), method, path, string(c.Request().URI().QueryString()), requestHeader(c), c.IP())
		if err != nil {
			log.Error("origin fetch failed", zap.String("path", path), zap.Error(err))
			return fiber.NewError(fiber.StatusBadGateway, "could not reach the storefront origin")
		}

		out := rw.Apply(c.UserContext(), method, path, resp)
		return writeResponse(c, out)
	}
}

// RewriteMeta is a Fiber middleware that rewrites the meta tags of HTML
// pages produced by the rest of the chain, such as a static build of the
// storefront.
func RewriteMeta(rw *seo.Rewriter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			return err
		}

		resp := c.Response()
		contentType := string(resp.Header.ContentType())
		if !seo.IsHTML(contentType) {
			return nil
		}

		header := make(http.Header)
		resp.Header.VisitAll(func(key, value []byte) {
			header.Add(string(key), string(value))
		})
		in := seo.Response{Status: resp.StatusCode(), Header: header, Body: resp.Body()}

		out := rw.Apply(c.UserContext(), c.Method(), c.Path(), in)
		if !bytes.Equal(out.Body, in.Body) {
			c.Response().SetBody(out.Body)
		}
		return nil
	}
}

// requestHeader converts the Fiber request headers to http.Header.
func requestHeader(c *fiber.Ctx) http.Header {
	headers := make(http.Header)
	c.Request().Header.VisitAll(func(key, value []byte) {
		headers.Add(string(key), string(value))
	})
	return headers
}

// writeResponse sends a rewritten or passed-through origin response.
func writeResponse(c *fiber.Ctx, resp seo.Response) error {
	c.Status(resp.Status)
	for key, values := range resp.Header {
		if strings.EqualFold(key, fiber.HeaderContentLength) {
			continue
		}
		for i, value := range values {
			if i == 0 {
				c.Set(key, value)
				continue
			}
			c.Response().Header.Add(key, value)
		}
	}
	if c.Method() == fiber.MethodHead {
		return nil
	}
	return c.Send(resp.Body)
}
