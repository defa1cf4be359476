package seo

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/partssupplied/partsedge/pkg/ruleset"
)

// inject applies a rule's HTML injections. The document is only parsed and
// re-rendered when there is something to inject.
func inject(page string, injections []ruleset.Injection, meta Meta, site string) (string, error) {
	if len(injections) == 0 {
		return page, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("could not parse HTML for injection: %w", err)
	}

	expand := injectionReplacer(meta, site)
	for _, injection := range injections {
		sel := doc.Find(injection.Position)
		if injection.Replace != "" {
			sel.ReplaceWithHtml(expand.Replace(injection.Replace))
		}
		if injection.Append != "" {
			sel.AppendHtml(expand.Replace(injection.Append))
		}
		if injection.Prepend != "" {
			sel.PrependHtml(expand.Replace(injection.Prepend))
		}
	}

	out, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("could not render HTML after injection: %w", err)
	}
	return out, nil
}

// injectionReplacer fills {title}, {description}, {image}, {url} and {site}
// placeholders with HTML-escaped values.
func injectionReplacer(meta Meta, site string) *strings.Replacer {
	return strings.NewReplacer(
		"{title}", escapeHTML(meta.Title),
		"{description}", escapeHTML(meta.Description),
		"{image}", escapeHTML(meta.Image),
		"{url}", escapeHTML(meta.URL),
		"{site}", escapeHTML(site),
	)
}
