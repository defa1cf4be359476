package ruleset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	rs := Default()

	tests := []struct {
		path string
		name string
		slug string
		ok   bool
	}{
		{"/product/plc-1756-l71", "product", "plc-1756-l71", true},
		{"/product/plc-1756-l71/", "product", "plc-1756-l71", true},
		{"/product/servo%20drive", "product", "servo drive", true},
		{"/category/controllers", "category", "controllers", true},
		{"/brand/siemens", "brand", "siemens", true},
		{"/product/", "", "", false},
		{"/product", "", "", false},
		{"/product/a/b", "", "", false},
		{"/categories", "", "", false},
		{"/", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rule, slug, ok := rs.Match(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.name, rule.Name)
			assert.Equal(t, tt.slug, slug)
		})
	}
}

func TestMerge(t *testing.T) {
	rs := Default().Merge(RuleSet{
		{Name: "product", Path: "/p/:slug", Kind: "product"},
		{Name: "search", Path: "/search", Kind: "search", Title: "Search | {site}"},
	})

	require.Len(t, rs, 4)
	assert.Equal(t, "/p/:slug", rs[0].Path)
	assert.Equal(t, "search", rs[3].Name)
	assert.Equal(t, []string{"product", "category", "brand", "search"}, rs.Kinds())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(nested, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "quote.yaml"), []byte(`
- name: quote
  path: /quote
  kind: quote
  title: "Request a Quote | {site}"
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "brand.yml"), []byte(`
- name: brand
  path: /manufacturer/:slug
  kind: brand
  lookup: brand
  scrape:
    title:
      tag: h2
      class: brand-name
  injections:
    - position: head
      append: '<meta name="robots" content="index">'
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	rs, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, rs, 4)

	rule, slug, ok := rs.Match("/manufacturer/abb")
	require.True(t, ok)
	assert.Equal(t, "abb", slug)
	assert.Equal(t, Fragment{Tag: "h2", Class: "brand-name"}, rule.Scrape.Title)
	require.Len(t, rule.Injections, 1)
	assert.Equal(t, "head", rule.Injections[0].Position)

	_, _, ok = rs.Match("/brand/abb")
	assert.False(t, ok, "overridden built-in should no longer match")
}

func TestLoadEmptyReturnsDefaults(t *testing.T) {
	rs, err := Load("  ")
	require.NoError(t, err)
	assert.Equal(t, Default(), rs)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("- name: [unclosed"), 0o644))

	_, err := Load(bad + ";" + filepath.Join(dir, "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error in rules file")
	assert.Contains(t, err.Error(), "missing")

	relative := filepath.Join(dir, "relative.yaml")
	require.NoError(t, os.WriteFile(relative, []byte("- name: x\n  path: x/:slug\n  lookup: widget\n"), 0o644))
	_, err = Load(relative)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must start with '/'")
	assert.Contains(t, err.Error(), `unknown lookup "widget"`)
}

func TestMarshalRoundTrip(t *testing.T) {
	out, err := Default().Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(out), "/product/:slug")
	assert.Contains(t, string(out), "class: text-3xl font-bold")
}

func TestParse(t *testing.T) {
	out, err := Default().Marshal()
	require.NoError(t, err)

	rules, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, Default(), rules)

	_, err = Parse([]byte("name: not-a-list"))
	assert.Error(t, err)
}
