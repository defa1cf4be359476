package seo

import (
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/partssupplied/partsedge/pkg/ruleset"
)

// valueAttr is the attribute carrying the value of void elements.
var valueAttr = map[string]string{
	"img":    "src",
	"source": "src",
	"meta":   "content",
	"link":   "href",
}

var fragmentCache sync.Map // ruleset.Fragment -> *regexp.Regexp

// fragmentPattern matches the first element with the fragment's tag whose
// class attribute contains the fragment's class text. For container tags the
// first submatch is the element's inner markup.
func fragmentPattern(f ruleset.Fragment) *regexp.Regexp {
	if re, ok := fragmentCache.Load(f); ok {
		return re.(*regexp.Regexp)
	}

	tag := f.Tag
	if tag == "" {
		tag = `[a-z][a-z0-9]*`
	} else {
		tag = regexp.QuoteMeta(strings.ToLower(tag))
	}

	open := `<(` + tag + `)\b` + attrRun
	if f.Class != "" {
		cls := regexp.QuoteMeta(f.Class)
		open += `\bclass\s*=\s*(?:"[^"]*` + cls + `[^"]*"|'[^']*` + cls + `[^']*')` + attrRun
	}
	open += `>`

	var expr string
	if _, void := valueAttr[strings.ToLower(f.Tag)]; void {
		expr = `(?is)` + open
	} else {
		// Go's regexp has no backreferences, so the closing tag is matched by name.
		closing := `</` + tag + `\s*>`
		expr = `(?is)` + open + `(.*?)` + closing
	}

	re := regexp.MustCompile(expr)
	fragmentCache.Store(f, re)
	return re
}

// scrape returns the value of the first element matching f: the collapsed
// text content of container elements, or the src/content/href attribute of
// void elements. It returns "" when nothing matches.
func scrape(body string, f ruleset.Fragment) string {
	if f.IsZero() {
		return ""
	}
	m := fragmentPattern(f).FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	if len(m) < 3 {
		// void element: its value lives in an attribute
		return attrValue(m[0], valueAttr[strings.ToLower(f.Tag)])
	}
	return textContent(m[2])
}

// textContent strips markup from an HTML fragment, decodes entities and
// collapses whitespace.
func textContent(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

var attrPatterns sync.Map // string -> *regexp.Regexp

func attrPattern(name string) *regexp.Regexp {
	if re, ok := attrPatterns.Load(name); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(`(?is)\s` + regexp.QuoteMeta(name) + `\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	attrPatterns.Store(name, re)
	return re
}

// attrValue returns the decoded value of attribute name in a start tag.
func attrValue(tag, name string) string {
	m := attrPattern(name).FindStringSubmatch(tag)
	if m == nil {
		return ""
	}
	v := m[1]
	if v == "" {
		v = m[2]
	}
	return strings.TrimSpace(html.UnescapeString(v))
}
