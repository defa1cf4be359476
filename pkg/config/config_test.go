package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, "Parts Supplied", cfg.SEOSite().Name)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partsedge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
site:
  name: Parts Staging
  baseURL: https://staging.partssupplied.com
server:
  port: 9000
  origin: https://storefront.netlify.app
  timeout: 5s
catalog:
  driver: sqlite
  path: /var/lib/partsedge/catalog.db
`), 0o644))

	t.Setenv("PORT", "9100")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Parts Staging", cfg.Site.Name)
	assert.Equal(t, Default().Site.DefaultTitle, cfg.Site.DefaultTitle)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.Timeout)
	assert.Equal(t, "sqlite", cfg.Catalog.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [1"), 0o644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "syntax error")
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"SUPABASE_URL":   "https://xyz.supabase.co",
		"SUPABASE_KEY":   "anon",
		"HTTP_TIMEOUT":   "30",
		"EXPOSE_RULESET": "false",
		"RULESET":        "rules/;extra.yaml",
		"ORIGIN_URL":     "https://origin.example.com",
	}))
	require.NoError(t, err)

	assert.Equal(t, "rest", cfg.Catalog.Driver, "driver inferred from SUPABASE_URL")
	assert.Equal(t, 30*time.Second, cfg.Server.Timeout)
	assert.False(t, cfg.Ruleset.Expose)
	assert.Equal(t, "rules/;extra.yaml", cfg.Ruleset.Paths)
	require.NoError(t, cfg.Validate())

	cfg = Default()
	require.NoError(t, cfg.ApplyEnv(envMap(map[string]string{"HTTP_TIMEOUT": "1m30s", "CATALOG_DB": "c.db"})))
	assert.Equal(t, 90*time.Second, cfg.Server.Timeout)
	assert.Equal(t, "sqlite", cfg.Catalog.Driver)

	cfg = Default()
	err = cfg.ApplyEnv(envMap(map[string]string{"PORT": "http", "EXPOSE_RULESET": "maybe", "HTTP_TIMEOUT": "soon"}))
	require.Error(t, err)
	assert.ErrorContains(t, err, "PORT")
	assert.ErrorContains(t, err, "EXPOSE_RULESET")
	assert.ErrorContains(t, err, "HTTP_TIMEOUT")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 0
	cfg.Server.Origin = "storefront"
	cfg.Server.Static = "./dist"
	cfg.Catalog.Driver = "rest"
	cfg.Log.Format = "xml"
	cfg.Site.BaseURL = "partssupplied.com"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"port", "mutually exclusive", "http(s) URL", "requires url and key", "log format", "absolute URL"} {
		assert.ErrorContains(t, err, want)
	}
}
