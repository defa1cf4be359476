package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/akamensky/argparse"

	"github.com/partssupplied/partsedge/pkg/config"
)

func main() {
	if err := run(withDefaultCommand(os.Args), os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withDefaultCommand inserts "serve" when no command is given.
func withDefaultCommand(args []string) []string {
	if len(args) > 1 && !strings.HasPrefix(args[1], "-") {
		return args
	}
	out := append([]string{args[0], "serve"}, args[1:]...)
	return out
}

func run(args []string, stdout io.Writer) error {
	parser := argparse.NewParser("partsedge", "Rewrites storefront meta tags at the edge")

	configPath := parser.String("c", "config", &argparse.Options{
		Required: false,
		Default:  os.Getenv("PARTSEDGE_CONFIG"),
		Help:     "Path to a YAML config file",
	})
	rulesetPath := parser.String("r", "ruleset", &argparse.Options{
		Required: false,
		Help:     "File, directory or ';'-separated list of rule files merged over the built-in rules",
	})
	catalogDB := parser.String("", "catalog", &argparse.Options{
		Required: false,
		Help:     "SQLite catalog database used for page lookups",
	})

	serveCmd := parser.NewCommand("serve", "Serve the storefront with rewritten meta tags")
	port := serveCmd.String("p", "port", &argparse.Options{
		Required: false,
		Help:     "Port the webserver will listen on",
	})
	host := serveCmd.String("", "host", &argparse.Options{
		Required: false,
		Help:     "Interface the webserver binds to",
	})
	originURL := serveCmd.String("o", "origin", &argparse.Options{
		Required: false,
		Help:     "Storefront origin to proxy",
	})
	staticDir := serveCmd.String("s", "static", &argparse.Options{
		Required: false,
		Help:     "Directory holding a built storefront to serve instead of proxying",
	})
	watch := serveCmd.Flag("w", "watch", &argparse.Options{
		Required: false,
		Help:     "Reload rules when the rule files change",
	})
	prefork := serveCmd.Flag("P", "prefork", &argparse.Options{
		Required: false,
		Help:     "Spawn multiple server processes",
	})

	inspectCmd := parser.NewCommand("inspect", "Print the meta computed for a saved page")
	inspectPath := inspectCmd.String("u", "path", &argparse.Options{
		Required: true,
		Help:     "Request path the page was served at, e.g. /product/1756-l71",
	})
	inspectFile := inspectCmd.String("f", "file", &argparse.Options{
		Required: false,
		Default:  "-",
		Help:     "Saved HTML page, '-' for stdin",
	})

	rulesCmd := parser.NewCommand("rules", "Print the merged ruleset as YAML")

	if err := parser.Parse(args); err != nil {
		return fmt.Errorf("%s", parser.Usage(err))
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *rulesetPath != "" {
		cfg.Ruleset.Paths = *rulesetPath
	}
	if *catalogDB != "" {
		cfg.Catalog.Driver = "sqlite"
		cfg.Catalog.Path = *catalogDB
	}

	switch {
	case serveCmd.Happened():
		if *port != "" {
			p, err := strconv.Atoi(*port)
			if err != nil {
				return fmt.Errorf("invalid port %q", *port)
			}
			cfg.Server.Port = p
		}
		if *host != "" {
			cfg.Server.Host = *host
		}
		if *originURL != "" {
			cfg.Server.Origin = *originURL
		}
		if *staticDir != "" {
			cfg.Server.Static = *staticDir
		}
		if *watch {
			cfg.Ruleset.Watch = true
		}
		if *prefork {
			cfg.Server.Prefork = true
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return serve(cfg)

	case inspectCmd.Happened():
		if err := cfg.Validate(); err != nil {
			return err
		}
		return inspect(cfg, *inspectPath, *inspectFile, stdout)

	case rulesCmd.Happened():
		return printRules(cfg, stdout)
	}
	return nil
}
