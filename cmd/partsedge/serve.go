package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/partssupplied/partsedge/handlers"
	"github.com/partssupplied/partsedge/pkg/catalog"
	"github.com/partssupplied/partsedge/pkg/config"
	"github.com/partssupplied/partsedge/pkg/logger"
	"github.com/partssupplied/partsedge/pkg/origin"
	"github.com/partssupplied/partsedge/pkg/ruleset"
	"github.com/partssupplied/partsedge/pkg/seo"
)

func serve(cfg config.Config) error {
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	rules, err := ruleset.Load(cfg.Ruleset.Paths)
	if err != nil {
		return err
	}
	rw := seo.NewRewriter(cfg.SEOSite(), rules, lookupFor(store), log)

	var o *origin.Client
	if cfg.Server.Origin != "" {
		if o, err = origin.NewClient(cfg.Server.Origin, cfg.Server.Timeout); err != nil {
			return err
		}
	}

	app := handlers.NewApp(handlers.Options{
		Rewriter:      rw,
		Origin:        o,
		Static:        cfg.Server.Static,
		Store:         store,
		ExposeRuleset: cfg.Ruleset.Expose,
		Prefork:       cfg.Server.Prefork,
		Log:           log,
	})

	if cfg.Ruleset.Watch && cfg.Ruleset.Paths != "" {
		w, err := ruleset.NewWatcher(cfg.Ruleset.Paths, rw.SetRules, log)
		if err != nil {
			return fmt.Errorf("could not watch rules: %w", err)
		}
		if err := w.Start(ctx); err != nil {
			w.Stop()
			return fmt.Errorf("could not watch rules: %w", err)
		}
		defer w.Stop()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("partsedge listening",
			zap.String("addr", cfg.Addr()),
			zap.String("origin", cfg.Server.Origin),
			zap.String("static", cfg.Server.Static),
			zap.String("catalog", cfg.Catalog.Driver),
			zap.Int("rules", rules.Count()))
		return app.Listen(cfg.Addr())
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		return app.Shutdown()
	})
	return g.Wait()
}

// inspect prints the page kind and meta computed for a saved page.
func inspect(cfg config.Config, path, file string, stdout io.Writer) error {
	var body []byte
	var err error
	if file == "-" {
		body, err = io.ReadAll(os.Stdin)
	} else {
		body, err = os.ReadFile(file)
	}
	if err != nil {
		return fmt.Errorf("could not read page: %w", err)
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	rules, err := ruleset.Load(cfg.Ruleset.Paths)
	if err != nil {
		return err
	}
	rw := seo.NewRewriter(cfg.SEOSite(), rules, lookupFor(store), nil)

	meta, page := rw.Meta(context.Background(), path, string(body))
	enc := yaml.NewEncoder(stdout)
	defer enc.Close()
	return enc.Encode(struct {
		Page seo.Page `yaml:"page"`
		Meta seo.Meta `yaml:"meta"`
	}{page, meta})
}

func printRules(cfg config.Config, stdout io.Writer) error {
	rules, err := ruleset.Load(cfg.Ruleset.Paths)
	if err != nil {
		return err
	}
	out, err := rules.Marshal()
	if err != nil {
		return err
	}
	_, err = stdout.Write(out)
	return err
}

// openStore opens the configured catalog. The returned store is nil for the
// "none" driver.
func openStore(cfg config.Config) (catalog.Store, func(), error) {
	switch cfg.Catalog.Driver {
	case "rest":
		s, err := catalog.NewRESTStore(cfg.Catalog.URL, cfg.Catalog.Key, cfg.Server.Timeout)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	case "sqlite":
		s, err := catalog.OpenSQLStore(cfg.Catalog.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	}
	return nil, func() {}, nil
}

func lookupFor(store catalog.Store) seo.LookupFunc {
	if store == nil {
		return nil
	}
	return func(ctx context.Context, kind, slug string) (seo.Entry, error) {
		s, err := catalog.Summarize(ctx, store, kind, slug)
		return seo.Entry(s), err
	}
}
