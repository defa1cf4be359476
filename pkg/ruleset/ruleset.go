package ruleset

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Fragment identifies an element in rendered markup by tag name and a
// fragment of its class attribute.
type Fragment struct {
	Tag   string `yaml:"tag,omitempty"`
	Class string `yaml:"class,omitempty"`
}

// IsZero reports whether the fragment selects nothing.
func (f Fragment) IsZero() bool {
	return f.Tag == "" && f.Class == ""
}

type Injection struct {
	Position string `yaml:"position,omitempty"`
	Append   string `yaml:"append,omitempty"`
	Prepend  string `yaml:"prepend,omitempty"`
	Replace  string `yaml:"replace,omitempty"`
}

type RuleSet []Rule

type Rule struct {
	Name   string `yaml:"name"`
	Path   string `yaml:"path"`
	Kind   string `yaml:"kind,omitempty"`
	Lookup string `yaml:"lookup,omitempty"`

	// Title and Description are templates; {name}, {slug} and {site} are
	// substituted before the value is written into the page.
	Title       string `yaml:"title,omitempty"`
	Description string `yaml:"description,omitempty"`

	Scrape struct {
		Title       Fragment `yaml:"title,omitempty"`
		Description Fragment `yaml:"description,omitempty"`
		Image       Fragment `yaml:"image,omitempty"`
	} `yaml:"scrape,omitempty"`

	Injections []Injection `yaml:"injections,omitempty"`
}

// Match returns the first rule whose path pattern matches path together with
// the decoded :slug segment.
func (rs RuleSet) Match(path string) (Rule, string, bool) {
	for _, rule := range rs {
		if slug, ok := matchPattern(rule.Path, path); ok {
			return rule, slug, true
		}
	}
	return Rule{}, "", false
}

// matchPattern matches a pattern such as /product/:slug against a request
// path. A trailing slash on the path is ignored and the :slug segment must be
// non-empty.
func matchPattern(pattern, path string) (string, bool) {
	if pattern == "" {
		return "", false
	}
	pp := strings.Split(strings.Trim(pattern, "/"), "/")
	rp := strings.Split(strings.Trim(path, "/"), "/")
	if len(pp) != len(rp) {
		return "", false
	}

	var slug string
	for i, seg := range pp {
		if strings.HasPrefix(seg, ":") {
			if rp[i] == "" {
				return "", false
			}
			v, err := url.PathUnescape(rp[i])
			if err != nil {
				v = rp[i]
			}
			if seg == ":slug" {
				slug = v
			}
			continue
		}
		if seg != rp[i] {
			return "", false
		}
	}
	return slug, true
}

func (rs RuleSet) Count() int {
	return len(rs)
}

// Kinds returns the distinct page kinds, in rule order.
func (rs RuleSet) Kinds() []string {
	var kinds []string
	seen := map[string]bool{}
	for _, rule := range rs {
		if rule.Kind == "" || seen[rule.Kind] {
			continue
		}
		seen[rule.Kind] = true
		kinds = append(kinds, rule.Kind)
	}
	return kinds
}

// Merge returns rs with extra applied on top: a rule whose name matches an
// existing rule replaces it in place, others are appended.
func (rs RuleSet) Merge(extra RuleSet) RuleSet {
	merged := make(RuleSet, len(rs), len(rs)+len(extra))
	copy(merged, rs)

	for _, rule := range extra {
		replaced := false
		for i := range merged {
			if rule.Name != "" && merged[i].Name == rule.Name {
				merged[i] = rule
				replaced = true
				break
			}
		}
		if !replaced {
			merged = append(merged, rule)
		}
	}
	return merged
}

// Validate checks that every rule carries a usable path pattern.
func (rs RuleSet) Validate() error {
	var errs []error
	for i, rule := range rs {
		if !strings.HasPrefix(rule.Path, "/") {
			errs = append(errs, fmt.Errorf("rule %d (%q): path must start with '/': %q", i, rule.Name, rule.Path))
		}
		switch rule.Lookup {
		case "", "product", "category", "brand":
		default:
			errs = append(errs, fmt.Errorf("rule %d (%q): unknown lookup %q", i, rule.Name, rule.Lookup))
		}
	}
	return errors.Join(errs...)
}

// Load reads rules from a ';'-separated list of files or directories and
// merges them over the built-in defaults. Directories are walked for
// .yml/.yaml files.
func Load(rulePaths string) (RuleSet, error) {
	rules := Default()
	if strings.TrimSpace(rulePaths) == "" {
		return rules, nil
	}

	var errs []error
	for _, rulePath := range SplitPaths(rulePaths) {
		loaded, err := loadPath(rulePath)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to load rules from '%s': %w", rulePath, err))
			continue
		}
		rules = rules.Merge(loaded)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return rules, nil
}

// SplitPaths splits a ';'-separated path list, dropping blanks.
func SplitPaths(rulePaths string) []string {
	var paths []string
	for _, p := range strings.Split(rulePaths, ";") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

func loadPath(root string) (RuleSet, error) {
	var rules RuleSet
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isRuleFile(path) {
			return nil
		}

		yamlFile, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read rules file '%s': %w", path, err)
		}
		r, err := Parse(yamlFile)
		if err != nil {
			return fmt.Errorf("syntax error in rules file '%s': %w", path, err)
		}
		rules = append(rules, r...)
		return nil
	})
	return rules, err
}

// Parse decodes a YAML list of rules.
func Parse(data []byte) (RuleSet, error) {
	var rules RuleSet
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

func isRuleFile(path string) bool {
	return strings.HasSuffix(path, ".yml") || strings.HasSuffix(path, ".yaml")
}

// Marshal renders the rule set as YAML.
func (rs RuleSet) Marshal() ([]byte, error) {
	return yaml.Marshal(rs)
}
