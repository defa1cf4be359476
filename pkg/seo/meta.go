package seo

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/partssupplied/partsedge/pkg/catalog"
	"github.com/partssupplied/partsedge/pkg/ruleset"
)

// maxDescription is the longest description written into a page, in runes.
const maxDescription = 160

// Meta computes the tag values for a page at path whose rendered markup is
// body.
func (rw *Rewriter) Meta(ctx context.Context, path, body string) (Meta, Page) {
	meta, page, _ := rw.resolve(ctx, path, body)
	return meta, page
}

func (rw *Rewriter) resolve(ctx context.Context, path, body string) (Meta, Page, ruleset.Rule) {
	meta := Meta{
		Title:       rw.site.DefaultTitle,
		Description: rw.site.DefaultDescription,
		Image:       rw.site.DefaultImage,
		URL:         rw.absURL(path),
	}

	rule, slug, ok := rw.Rules().Match(path)
	if !ok {
		return meta, Page{Kind: "default", Path: path}, ruleset.Rule{}
	}

	kind := rule.Kind
	if kind == "" {
		kind = rule.Name
	}
	page := Page{Kind: kind, Rule: rule.Name, Slug: slug, Path: path}

	var entry *Entry
	lookup := func() Entry {
		if entry == nil {
			e := rw.lookupEntry(ctx, rule.Lookup, slug)
			entry = &e
		}
		return *entry
	}

	name := scrape(body, rule.Scrape.Title)
	if name == "" {
		name = lookup().Name
	}
	if name == "" {
		name = slug
	}
	if title, ok := rw.expand(rule.Title, name, slug); ok {
		meta.Title = title
	} else if rule.Title == "" && name != "" {
		meta.Title = name
	}

	desc := scrape(body, rule.Scrape.Description)
	if desc == "" {
		desc = lookup().Description
	}
	if desc == "" {
		if d, ok := rw.expand(rule.Description, name, slug); ok {
			desc = d
		}
	}
	if desc != "" {
		meta.Description = truncate(desc, maxDescription)
	}

	image := scrape(body, rule.Scrape.Image)
	if image == "" {
		image = lookup().Image
	}
	if image != "" {
		meta.Image = rw.absURL(image)
	}

	return meta, page, rule
}

func (rw *Rewriter) lookupEntry(ctx context.Context, kind, slug string) Entry {
	if rw.lookup == nil || kind == "" || slug == "" {
		return Entry{}
	}
	e, err := rw.lookup(ctx, kind, slug)
	if err != nil {
		if !errors.Is(err, catalog.ErrNotFound) {
			rw.log.Warn("catalog lookup failed", zap.String("kind", kind), zap.String("slug", slug), zap.Error(err))
		}
		return Entry{}
	}
	return e
}

// expand fills {name}, {slug} and {site} in tmpl. It reports false for an
// empty template and for a template needing a value that is missing.
func (rw *Rewriter) expand(tmpl, name, slug string) (string, bool) {
	if tmpl == "" {
		return "", false
	}
	if name == "" && strings.Contains(tmpl, "{name}") {
		return "", false
	}
	if slug == "" && strings.Contains(tmpl, "{slug}") {
		return "", false
	}
	r := strings.NewReplacer("{name}", name, "{slug}", slug, "{site}", rw.site.Name)
	return r.Replace(tmpl), true
}

// truncate cuts s to at most n runes, preferring a word boundary.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:n-3])
	if i := strings.LastIndexByte(cut, ' '); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:-") + "..."
}
