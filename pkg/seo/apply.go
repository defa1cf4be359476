package seo

import (
	"context"
	"fmt"
	"html"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// IsHTML reports whether a Content-Type header value denotes an HTML page.
func IsHTML(contentType string) bool {
	if contentType == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "text/html")
	}
	return mt == "text/html"
}

// Apply returns the response to deliver for a request with method and path
// whose origin answered resp. Only successful GET responses carrying
// uncompressed HTML are rewritten; everything else, and every failed
// rewrite, is returned unchanged.
func (rw *Rewriter) Apply(ctx context.Context, method, path string, resp Response) (out Response) {
	out = resp
	if method != http.MethodGet || resp.Status < 200 || resp.Status > 299 {
		return out
	}
	if !IsHTML(resp.Header.Get("Content-Type")) {
		return out
	}
	if enc := resp.Header.Get("Content-Encoding"); enc != "" && !strings.EqualFold(enc, "identity") {
		rw.log.Debug("skipping encoded response", zap.String("path", path), zap.String("encoding", enc))
		return out
	}

	defer func() {
		if r := recover(); r != nil {
			rw.log.Warn("meta rewrite panicked, serving origin response", zap.String("path", path), zap.Any("panic", r))
			out = resp
		}
	}()

	body, err := rw.Transform(ctx, path, string(resp.Body))
	if err != nil {
		rw.log.Warn("meta rewrite failed, serving origin response", zap.String("path", path), zap.Error(err))
		return resp
	}

	header := resp.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set("Content-Length", strconv.Itoa(len(body)))
	return Response{
		Status: resp.Status,
		Header: header,
		Body:   []byte(body),
	}
}

// Transform rewrites the tags of an HTML page served at path.
func (rw *Rewriter) Transform(ctx context.Context, path, page string) (string, error) {
	if ctx.Err() != nil {
		return "", fmt.Errorf("transform %s: %w", path, ctx.Err())
	}
	meta, p, rule := rw.resolve(ctx, path, page)

	out := substitute(page, meta)
	out, err := inject(out, rule.Injections, meta, rw.site.Name)
	if err != nil {
		return "", err
	}

	rw.log.Debug("rewrote page meta",
		zap.String("path", path),
		zap.String("kind", p.Kind),
		zap.String("slug", p.Slug),
		zap.String("title", meta.Title))
	return out, nil
}

func escapeHTML(s string) string {
	return html.EscapeString(s)
}
