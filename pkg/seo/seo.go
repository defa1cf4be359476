// Package seo rewrites the title, description and social preview tags of
// storefront pages as they leave the origin.
//
// The rewriter is environment agnostic: hosts hand it the origin response
// and deliver whatever it returns. Any failure yields the origin response
// unchanged.
package seo

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/partssupplied/partsedge/pkg/ruleset"
)

// Response is an origin response, or the response to deliver in its place.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Meta holds the values written into a page's tags.
type Meta struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Image       string `json:"image" yaml:"image"`
	URL         string `json:"url" yaml:"url"`
}

// Page describes the route a path resolved to.
type Page struct {
	Kind string `json:"kind" yaml:"kind"`
	Rule string `json:"rule,omitempty" yaml:"rule,omitempty"`
	Slug string `json:"slug,omitempty" yaml:"slug,omitempty"`
	Path string `json:"path" yaml:"path"`
}

// Site carries the site-wide defaults used by the default route and as the
// last step of every fallback chain.
type Site struct {
	Name               string
	BaseURL            string
	DefaultTitle       string
	DefaultDescription string
	DefaultImage       string
}

// DefaultSite returns the production storefront's defaults.
func DefaultSite() Site {
	return Site{
		Name:               "Parts Supplied",
		BaseURL:            "https://partssupplied.com",
		DefaultTitle:       "Industrial Automation Parts From Top Manufacturers",
		DefaultDescription: "Find quality industrial automation solutions and products from leading manufacturers at parts supplied.",
		DefaultImage:       "https://partssupplied.com/og-image.png",
	}
}

// Entry is what a catalog lookup contributes to a page's metadata.
type Entry struct {
	Name        string
	Description string
	Image       string
}

// LookupFunc resolves a slug of the given kind ("product", "category",
// "brand") to catalog data.
type LookupFunc func(ctx context.Context, kind, slug string) (Entry, error)

// Rewriter computes page meta and rewrites HTML responses. The active rules
// can be swapped while requests are in flight.
type Rewriter struct {
	site   Site
	base   *url.URL
	rules  atomic.Pointer[ruleset.RuleSet]
	lookup LookupFunc
	log    *zap.Logger
}

// NewRewriter returns a rewriter for site using rules. lookup may be nil, in
// which case pages fall back from scraped values straight to slugs and
// templates.
func NewRewriter(site Site, rules ruleset.RuleSet, lookup LookupFunc, log *zap.Logger) *Rewriter {
	if log == nil {
		log = zap.NewNop()
	}
	base, err := url.Parse(strings.TrimRight(site.BaseURL, "/"))
	if err != nil || site.BaseURL == "" {
		base = nil
	}

	rw := &Rewriter{
		site:   site,
		base:   base,
		lookup: lookup,
		log:    log,
	}
	rw.SetRules(rules)
	return rw
}

// SetRules atomically replaces the active rules.
func (rw *Rewriter) SetRules(rules ruleset.RuleSet) {
	rw.rules.Store(&rules)
}

// Rules returns the active rules.
func (rw *Rewriter) Rules() ruleset.RuleSet {
	return *rw.rules.Load()
}

// Site returns the site defaults the rewriter was built with.
func (rw *Rewriter) Site() Site {
	return rw.site
}

// absURL resolves ref against the site base URL. Absolute references and
// references that cannot be resolved are returned as is.
func (rw *Rewriter) absURL(ref string) string {
	if ref == "" || rw.base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return ref
	}
	if strings.HasPrefix(ref, "//") {
		return rw.base.Scheme + ":" + ref
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return rw.base.Scheme + "://" + rw.base.Host + strings.TrimRight(rw.base.Path, "/") + ref
}
