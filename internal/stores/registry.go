// Package stores holds the storefront templates: one extractor per store
// plus the access metadata the engine needs to reach each site.
package stores

import (
	"net/http"
	"sort"

	"github.com/adv4nt4ge/grocery-scraper/internal/ingest"
)

// Registry maps store names onto their templates. Adding a storefront means
// registering one more template here; the engine is never touched.
type Registry struct {
	templates []ingest.Template
	byName    map[string]ingest.Template
}

// NewRegistry indexes the given templates. Later duplicates of a name win.
func NewRegistry(templates ...ingest.Template) *Registry {
	r := &Registry{byName: make(map[string]ingest.Template, len(templates))}
	for _, tpl := range templates {
		if _, dup := r.byName[tpl.Store]; !dup {
			r.templates = append(r.templates, tpl)
		}
		r.byName[tpl.Store] = tpl
	}
	for i, tpl := range r.templates {
		r.templates[i] = r.byName[tpl.Store]
	}
	return r
}

// All returns every registered template in registration order.
func (r *Registry) All() []ingest.Template {
	return append([]ingest.Template(nil), r.templates...)
}

// Get looks a template up by store name.
func (r *Registry) Get(name string) (ingest.Template, bool) {
	tpl, ok := r.byName[name]
	return tpl, ok
}

// Names returns the registered store names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Defaults returns the four storefront templates this engine ships with.
func Defaults() *Registry {
	return NewRegistry(
		silpoTemplate(),
		varusTemplate(),
		metroTemplate(),
		atbTemplate(),
	)
}

const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// browserHeaders is the header profile storefronts expect from a real
// browser. Origin and Referer are set per store on top of it.
func browserHeaders(origin string) http.Header {
	h := http.Header{}
	h.Set("User-Agent", browserUserAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", "uk-UA,uk;q=0.9,en-US;q=0.8,en;q=0.7")
	h.Set("Upgrade-Insecure-Requests", "1")
	if origin != "" {
		h.Set("Origin", origin)
		h.Set("Referer", origin+"/")
	}
	return h
}

func silpoTemplate() ingest.Template {
	return ingest.Template{
		Store:        "silpo",
		BaseURL:      "https://silpo.ua",
		Strategy:     ingest.StrategyRendered,
		WaitSelector: `[data-autotestid="shop-silpo-product-card"], .empty-results`,
		HasMoreProbe: `.pagination .pagination-item--next-page:not(.pagination-item--disabled)`,
		PageParam:    "page",
		CatalogURL:   "https://silpo.ua",
		Extractor:    NewSilpo("https://silpo.ua"),
	}
}

func varusTemplate() ingest.Template {
	return ingest.Template{
		Store:        "varus",
		BaseURL:      "https://varus.ua",
		Strategy:     ingest.StrategyRendered,
		WaitSelector: `.sf-product-card, .sf-product-card__wrapper, .empty-results`,
		HasMoreProbe: `[data-transaction-name="Pagination - Go To Last"]`,
		PageParam:    "page",
		CatalogURL:   "https://varus.ua",
		Extractor:    NewVarus("https://varus.ua"),
	}
}

func metroTemplate() ingest.Template {
	return ingest.Template{
		Store:        "metro",
		BaseURL:      "https://metro.zakaz.ua",
		Strategy:     ingest.StrategyRendered,
		WaitSelector: `[data-testid="product-tile"], .empty-results`,
		HasMoreProbe: `.Pagination [aria-label="Next page"]:not([disabled])`,
		PageParam:    "page",
		CatalogURL:   "https://metro.zakaz.ua/uk/",
		Extractor:    NewMetro("https://metro.zakaz.ua"),
	}
}

// atbTemplate reaches the bot-protected storefront over plain HTTP with a
// browser header profile and a warm-up request for session cookies. Its
// category tree is a curated seed list; the menu is not walkable without
// tripping the challenge.
func atbTemplate() ingest.Template {
	const base = "https://www.atbmarket.com"
	return ingest.Template{
		Store:        "atb",
		BaseURL:      base,
		Strategy:     ingest.StrategyDirect,
		PageParam:    "page",
		Headers:      browserHeaders(base),
		WarmupURL:    base,
		BotProtected: true,
		Seeds:        atbSeeds(base),
		Extractor:    NewATB(base),
	}
}

func atbSeeds(base string) []ingest.Category {
	slugs := []struct{ name, path string }{
		{"Бакалія", "/catalog/285-bakaliya"},
		{"М'ясо", "/catalog/maso"},
		{"Молочні продукти та яйця", "/catalog/molocni-produkti-ta-ajca"},
		{"Овочі та фрукти", "/catalog/287-ovochi-ta-frukti"},
		{"Хлібобулочні вироби", "/catalog/325-khlibobulochni-virobi"},
		{"Напої безалкогольні", "/catalog/294-napoi-bezalkogol-ni"},
		{"Кондитерські вироби", "/catalog/konditerski-virobi"},
		{"Заморожені продукти", "/catalog/zamorozheni-produkti"},
		{"Консерви", "/catalog/konservi"},
		{"Товари для дому", "/catalog/pobutova-khimiya"},
		{"Дитяче харчування", "/catalog/dityache-kharchuvannya"},
		{"Алкогольні напої", "/catalog/alkogolni-napoi"},
	}
	out := make([]ingest.Category, 0, len(slugs))
	for _, s := range slugs {
		out = append(out, ingest.Category{Store: "atb", Name: s.name, URL: base + s.path})
	}
	return out
}
