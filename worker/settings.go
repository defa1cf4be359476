package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/fastly/compute-sdk-go/configstore"
	"github.com/fastly/compute-sdk-go/fsthttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/partssupplied/partsedge/pkg/config"
	"github.com/partssupplied/partsedge/pkg/ruleset"
	"github.com/partssupplied/partsedge/pkg/seo"
)

type settings struct {
	site   seo.Site
	rules  ruleset.RuleSet
	expose bool
}

func defaultSettings() settings {
	cfg := config.Default()
	return settings{site: cfg.SEOSite(), rules: ruleset.Default(), expose: cfg.Ruleset.Expose}
}

// loadSettings overlays the defaults with the values found through lookup.
func loadSettings(lookup func(string) (string, bool)) (settings, error) {
	cfg := config.Default()
	if err := cfg.ApplyEnv(lookup); err != nil {
		return settings{}, err
	}

	rules := ruleset.Default()
	if extra, ok := lookup("RULES"); ok && extra != "" {
		parsed, err := ruleset.Parse([]byte(extra))
		if err != nil {
			return settings{}, fmt.Errorf("RULES: %w", err)
		}
		rules = rules.Merge(parsed)
		if err := rules.Validate(); err != nil {
			return settings{}, fmt.Errorf("RULES: %w", err)
		}
	}

	return settings{site: cfg.SEOSite(), rules: rules, expose: cfg.Ruleset.Expose}, nil
}

func storeLookup(store *configstore.Store) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if store == nil {
			return "", false
		}
		v, err := store.Get(key)
		if err != nil {
			return "", false
		}
		return v, true
	}
}

// newLogger writes JSON lines to stdout, which `fastly logs tail` streams.
func newLogger() *zap.Logger {
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(os.Stdout), zap.InfoLevel)
	return zap.New(core).With(zap.String("pop", os.Getenv("FASTLY_POP")))
}

func toHTTPHeader(h fsthttp.Header) http.Header {
	out := make(http.Header, len(h))
	for _, key := range h.Keys() {
		for _, v := range h.Values(key) {
			out.Add(key, v)
		}
	}
	return out
}

func toFastlyHeader(h http.Header) fsthttp.Header {
	out := fsthttp.NewHeader()
	for key, values := range h {
		for _, v := range values {
			out.Add(key, v)
		}
	}
	return out
}
