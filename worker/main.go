// Command worker runs the meta rewriter on Fastly Compute in front of the
// storefront origin.
//
// The service needs a backend named "origin". Settings are read from an
// optional config store named "partsedge" using the same keys as the
// server's environment (SITE_NAME, SITE_URL, EXPOSE_RULESET, ...), plus
// RULES holding extra rules as YAML.
package main

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/fastly/compute-sdk-go/configstore"
	"github.com/fastly/compute-sdk-go/fsthttp"
	"go.uber.org/zap"

	"github.com/partssupplied/partsedge/pkg/seo"
)

const (
	backendName = "origin"
	storeName   = "partsedge"
	maxBody     = 16 << 20
)

func main() {
	log := newLogger()
	defer log.Sync()

	store, err := configstore.Open(storeName)
	if err != nil && !errors.Is(err, configstore.ErrStoreNotFound) {
		log.Warn("could not open config store", zap.String("store", storeName), zap.Error(err))
	}

	s, err := loadSettings(storeLookup(store))
	if err != nil {
		log.Error("invalid settings, using defaults", zap.Error(err))
		s = defaultSettings()
	}
	rw := seo.NewRewriter(s.site, s.rules, nil, log)

	fsthttp.ServeFunc(newHandler(rw, s.expose, log))
}

func newHandler(rw *seo.Rewriter, expose bool, log *zap.Logger) fsthttp.HandlerFunc {
	return func(ctx context.Context, w fsthttp.ResponseWriter, r *fsthttp.Request) {
		if requestPath(r) == "/ruleset" {
			serveRuleset(w, rw, expose)
			return
		}
		proxy(ctx, w, r, rw, log)
	}
}

// requestPath is the path as the client sent it, percent-encoding included,
// so rule params match what the server build sees.
func requestPath(r *fsthttp.Request) string {
	return r.URL.EscapedPath()
}

func proxy(ctx context.Context, w fsthttp.ResponseWriter, r *fsthttp.Request, rw *seo.Rewriter, log *zap.Logger) {
	method, path := r.Method, requestPath(r)

	// the rewriter only handles identity bodies
	r.Header.Del("Accept-Encoding")

	resp, err := r.Send(ctx, backendName)
	if err != nil {
		log.Error("origin fetch failed", zap.String("path", path), zap.Error(err))
		fsthttp.Error(w, "could not reach the storefront origin", fsthttp.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if method != fsthttp.MethodGet || !seo.IsHTML(resp.Header.Get("Content-Type")) {
		w.Header().Reset(resp.Header)
		w.WriteHeader(resp.StatusCode)
		io.Copy(w, resp.Body)
		return
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil || len(body) > maxBody {
		log.Warn("streaming origin body unmodified", zap.String("path", path), zap.Int("read", len(body)), zap.Error(err))
		w.Header().Reset(resp.Header)
		w.WriteHeader(resp.StatusCode)
		io.Copy(w, io.MultiReader(bytes.NewReader(body), resp.Body))
		return
	}

	out := rw.Apply(ctx, method, path, seo.Response{
		Status: resp.StatusCode,
		Header: toHTTPHeader(resp.Header),
		Body:   body,
	})
	w.Header().Reset(toFastlyHeader(out.Header))
	w.WriteHeader(out.Status)
	w.Write(out.Body)
}

func serveRuleset(w fsthttp.ResponseWriter, rw *seo.Rewriter, expose bool) {
	if !expose {
		fsthttp.Error(w, "Ruleset Disabled", fsthttp.StatusForbidden)
		return
	}
	body, err := rw.Rules().Marshal()
	if err != nil {
		fsthttp.Error(w, err.Error(), fsthttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/yaml; charset=utf-8")
	w.Write(body)
}
