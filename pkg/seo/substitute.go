package seo

import (
	"html"
	"regexp"
	"strings"
)

// attrRun matches the attributes of a start tag. Quoted values may hold '>'.
const attrRun = `(?:[^>"']|"[^"]*"|'[^']*')*`

var (
	titlePattern = regexp.MustCompile(`(?is)<title\b` + attrRun + `>.*?</title\s*>`)
	metaPattern  = regexp.MustCompile(`(?is)<meta\b` + attrRun + `>`)
	linkPattern  = regexp.MustCompile(`(?is)<link\b` + attrRun + `>`)
)

// tagTarget names a tag to rewrite: the first start tag matched by pattern
// whose key attribute (one of keyAttrs) equals key gets its value attribute
// replaced.
type tagTarget struct {
	pattern   *regexp.Regexp
	keyAttrs  []string
	key       string
	valueAttr string
}

func metaTarget(key string) tagTarget {
	return tagTarget{pattern: metaPattern, keyAttrs: []string{"name", "property"}, key: key, valueAttr: "content"}
}

// substitute writes meta into the page's title, description, Open Graph,
// Twitter and canonical tags. Only the first occurrence of each tag is
// rewritten and missing tags are not added.
func substitute(page string, meta Meta) string {
	page = replaceTitle(page, meta.Title)

	values := []struct {
		target tagTarget
		value  string
	}{
		{metaTarget("description"), meta.Description},
		{metaTarget("og:title"), meta.Title},
		{metaTarget("og:description"), meta.Description},
		{metaTarget("og:image"), meta.Image},
		{metaTarget("og:url"), meta.URL},
		{metaTarget("twitter:title"), meta.Title},
		{metaTarget("twitter:description"), meta.Description},
		{metaTarget("twitter:image"), meta.Image},
		{tagTarget{pattern: linkPattern, keyAttrs: []string{"rel"}, key: "canonical", valueAttr: "href"}, meta.URL},
	}
	for _, v := range values {
		if v.value == "" {
			continue
		}
		page = replaceAttr(page, v.target, v.value)
	}
	return page
}

func replaceTitle(page, title string) string {
	loc := titlePattern.FindStringIndex(page)
	if loc == nil {
		return page
	}
	return page[:loc[0]] + "<title>" + html.EscapeString(title) + "</title>" + page[loc[1]:]
}

func replaceAttr(page string, t tagTarget, value string) string {
	for _, loc := range t.pattern.FindAllStringIndex(page, -1) {
		tag := page[loc[0]:loc[1]]
		if !hasKey(tag, t.keyAttrs, t.key) {
			continue
		}
		return page[:loc[0]] + setAttr(tag, t.valueAttr, value) + page[loc[1]:]
	}
	return page
}

func hasKey(tag string, attrs []string, key string) bool {
	for _, a := range attrs {
		if strings.EqualFold(attrValue(tag, a), key) {
			return true
		}
	}
	return false
}

// setAttr sets attribute name of a start tag to value, adding the attribute
// when the tag lacks it.
func setAttr(tag, name, value string) string {
	escaped := html.EscapeString(value)
	if loc := attrPattern(name).FindStringIndex(tag); loc != nil {
		// keep the leading whitespace the pattern consumed
		return tag[:loc[0]] + tag[loc[0]:loc[0]+1] + name + `="` + escaped + `"` + tag[loc[1]:]
	}

	end := len(tag) - 1
	if strings.HasSuffix(tag, "/>") {
		end = len(tag) - 2
	}
	head := strings.TrimRight(tag[:end], " \t\r\n")
	return head + ` ` + name + `="` + escaped + `"` + tag[len(head):end] + tag[end:]
}
