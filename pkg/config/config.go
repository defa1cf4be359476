// Package config loads partsedge settings from defaults, an optional YAML
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/partssupplied/partsedge/pkg/seo"
)

type Site struct {
	Name               string `yaml:"name"`
	BaseURL            string `yaml:"baseURL"`
	DefaultTitle       string `yaml:"defaultTitle"`
	DefaultDescription string `yaml:"defaultDescription"`
	DefaultImage       string `yaml:"defaultImage"`
}

type Server struct {
	Host    string        `yaml:"host"`
	Port    int           `yaml:"port"`
	Origin  string        `yaml:"origin,omitempty"`
	Static  string        `yaml:"static,omitempty"`
	Timeout time.Duration `yaml:"timeout"`
	Prefork bool          `yaml:"prefork,omitempty"`
}

type Catalog struct {
	// Driver is "rest", "sqlite" or "none".
	Driver string `yaml:"driver"`
	URL    string `yaml:"url,omitempty"`
	Key    string `yaml:"key,omitempty"`
	Path   string `yaml:"path,omitempty"`
}

type Ruleset struct {
	Paths  string `yaml:"paths,omitempty"`
	Watch  bool   `yaml:"watch"`
	Expose bool   `yaml:"expose"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	Site    Site    `yaml:"site"`
	Server  Server  `yaml:"server"`
	Catalog Catalog `yaml:"catalog"`
	Ruleset Ruleset `yaml:"ruleset"`
	Log     Log     `yaml:"log"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	site := seo.DefaultSite()
	return Config{
		Site: Site{
			Name:               site.Name,
			BaseURL:            site.BaseURL,
			DefaultTitle:       site.DefaultTitle,
			DefaultDescription: site.DefaultDescription,
			DefaultImage:       site.DefaultImage,
		},
		Server: Server{
			Host:    "0.0.0.0",
			Port:    8080,
			Timeout: 15 * time.Second,
		},
		Catalog: Catalog{Driver: "none"},
		Ruleset: Ruleset{Expose: true},
		Log:     Log{Level: "info", Format: "auto"},
	}
}

// Load returns the defaults overlaid with the YAML file at path (when path
// is not empty) and then with the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("syntax error in config file '%s': %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from environment variables read through
// lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("SITE_NAME", &c.Site.Name)
	str("SITE_URL", &c.Site.BaseURL)
	str("DEFAULT_TITLE", &c.Site.DefaultTitle)
	str("DEFAULT_DESCRIPTION", &c.Site.DefaultDescription)
	str("DEFAULT_OG_IMAGE", &c.Site.DefaultImage)

	str("HOST", &c.Server.Host)
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("PORT: %w", err))
		} else {
			c.Server.Port = port
		}
	}
	str("ORIGIN_URL", &c.Server.Origin)
	str("STATIC_DIR", &c.Server.Static)
	if v, ok := lookup("HTTP_TIMEOUT"); ok && v != "" {
		// plain integers are seconds
		if secs, err := strconv.Atoi(v); err == nil {
			c.Server.Timeout = time.Duration(secs) * time.Second
		} else if d, err := time.ParseDuration(v); err == nil {
			c.Server.Timeout = d
		} else {
			errs = append(errs, fmt.Errorf("HTTP_TIMEOUT: invalid duration %q", v))
		}
	}
	boolean("PREFORK", &c.Server.Prefork)

	str("SUPABASE_URL", &c.Catalog.URL)
	str("SUPABASE_KEY", &c.Catalog.Key)
	str("CATALOG_DB", &c.Catalog.Path)
	str("CATALOG_DRIVER", &c.Catalog.Driver)
	if _, ok := lookup("CATALOG_DRIVER"); !ok {
		switch {
		case c.Catalog.Driver == "none" && c.Catalog.URL != "":
			c.Catalog.Driver = "rest"
		case c.Catalog.Driver == "none" && c.Catalog.Path != "":
			c.Catalog.Driver = "sqlite"
		}
	}

	str("RULESET", &c.Ruleset.Paths)
	boolean("RULESET_WATCH", &c.Ruleset.Watch)
	boolean("EXPOSE_RULESET", &c.Ruleset.Expose)

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	return errors.Join(errs...)
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error

	if c.Site.BaseURL != "" {
		if u, err := url.Parse(c.Site.BaseURL); err != nil || !u.IsAbs() {
			errs = append(errs, fmt.Errorf("site.baseURL must be an absolute URL: %q", c.Site.BaseURL))
		}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Server.Origin != "" && c.Server.Static != "" {
		errs = append(errs, errors.New("server.origin and server.static are mutually exclusive"))
	}
	if c.Server.Origin != "" {
		if u, err := url.Parse(c.Server.Origin); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("server.origin must be an http(s) URL: %q", c.Server.Origin))
		}
	}
	if c.Server.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("server.timeout must be positive: %s", c.Server.Timeout))
	}

	switch c.Catalog.Driver {
	case "none":
	case "rest":
		if c.Catalog.URL == "" || c.Catalog.Key == "" {
			errs = append(errs, errors.New("catalog driver rest requires url and key"))
		}
	case "sqlite":
		if c.Catalog.Path == "" {
			errs = append(errs, errors.New("catalog driver sqlite requires path"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown catalog driver %q", c.Catalog.Driver))
	}

	switch strings.ToLower(c.Log.Format) {
	case "auto", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// SEOSite converts the site settings for the rewriter.
func (c Config) SEOSite() seo.Site {
	return seo.Site{
		Name:               c.Site.Name,
		BaseURL:            c.Site.BaseURL,
		DefaultTitle:       c.Site.DefaultTitle,
		DefaultDescription: c.Site.DefaultDescription,
		DefaultImage:       c.Site.DefaultImage,
	}
}

// Addr is the listen address of the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
