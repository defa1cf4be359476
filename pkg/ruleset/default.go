package ruleset

// Default returns the built-in rules for the storefront's catalog pages.
// Class fragments follow the markup the storefront renders for each page.
func Default() RuleSet {
	product := Rule{
		Name:        "product",
		Path:        "/product/:slug",
		Kind:        "product",
		Lookup:      "product",
		Title:       "{name} | {site}",
		Description: "Details about {slug} - Industrial Automation Parts",
	}
	product.Scrape.Title = Fragment{Tag: "h1", Class: "text-3xl font-bold"}
	product.Scrape.Description = Fragment{Tag: "p", Class: "text-muted-foreground mb-4"}
	product.Scrape.Image = Fragment{Tag: "img", Class: "object-contain"}

	category := Rule{
		Name:        "category",
		Path:        "/category/:slug",
		Kind:        "category",
		Lookup:      "category",
		Title:       "{name} | {site}",
		Description: "Browse {name} - Industrial Automation Parts",
	}
	category.Scrape.Title = Fragment{Tag: "h1", Class: "text-3xl font-bold mb-2"}
	category.Scrape.Description = Fragment{Tag: "p", Class: "text-muted-foreground mb-8"}

	brand := Rule{
		Name:        "brand",
		Path:        "/brand/:slug",
		Kind:        "brand",
		Lookup:      "brand",
		Title:       "{name} Products | {site}",
		Description: "Industrial automation parts from {name}",
	}
	brand.Scrape.Title = Fragment{Tag: "h1", Class: "text-3xl font-bold mb-2"}
	brand.Scrape.Description = Fragment{Tag: "p", Class: "text-muted-foreground"}

	return RuleSet{product, category, brand}
}
