package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partssupplied/partsedge/pkg/catalog"
)

const savedPage = `<html><head>
<title>Parts Supplied</title>
<meta name="description" content="placeholder">
</head><body><div id="root"></div></body></html>`

func TestWithDefaultCommand(t *testing.T) {
	assert.Equal(t, []string{"partsedge", "serve"}, withDefaultCommand([]string{"partsedge"}))
	assert.Equal(t, []string{"partsedge", "serve", "-p", "9000"}, withDefaultCommand([]string{"partsedge", "-p", "9000"}))
	assert.Equal(t, []string{"partsedge", "rules"}, withDefaultCommand([]string{"partsedge", "rules"}))
}

func TestRunRules(t *testing.T) {
	dir := t.TempDir()
	extra := filepath.Join(dir, "support.yaml")
	require.NoError(t, os.WriteFile(extra, []byte("- name: support\n  path: /support/:slug\n"), 0o644))

	var out bytes.Buffer
	require.NoError(t, run([]string{"partsedge", "rules", "--ruleset", extra}, &out))
	assert.Contains(t, out.String(), "/product/:slug")
	assert.Contains(t, out.String(), "/support/:slug")
}

func TestRunInspectWithCatalog(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "catalog.db")
	store, err := catalog.OpenSQLStore(db)
	require.NoError(t, err)
	servo := catalog.Product{
		Name:        "ACS880 Servo Drive",
		Slug:        "acs880",
		Description: "Industrial drive for demanding applications",
	}
	require.NoError(t, store.InsertProduct(context.Background(), &servo))
	require.NoError(t, store.Close())

	file := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(file, []byte(savedPage), 0o644))

	var out bytes.Buffer
	err = run([]string{"partsedge", "inspect", "--path", "/product/acs880", "--file", file, "--catalog", db}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "kind: product")
	assert.Contains(t, out.String(), "slug: acs880")
	assert.Contains(t, out.String(), "ACS880 Servo Drive")
	assert.Contains(t, out.String(), "Industrial drive for demanding applications")
}

func TestRunErrors(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, run([]string{"partsedge", "inspect"}, &out), "path is required")
	assert.Error(t, run([]string{"partsedge", "rules", "--ruleset", filepath.Join(t.TempDir(), "missing")}, &out))
	assert.Error(t, run([]string{"partsedge", "serve", "--port", "http"}, &out))
}
