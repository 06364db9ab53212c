package stores

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/adv4nt4ge/grocery-scraper/internal/ingest"
)

// Silpo parses the silpo.ua SPA after rendering. Product cards carry
// autotest ids; the catalog menu exposes the category tree.
type Silpo struct {
	base string
}

// NewSilpo builds the silpo extractor.
func NewSilpo(base string) *Silpo {
	return &Silpo{base: base}
}

const (
	silpoCardSelector     = `[data-autotestid="shop-silpo-product-card"], .product-card-list__item, .product-card`
	silpoTitleSelector    = ".product-card__title"
	silpoPriceSelector    = ".product-card-price__displayPrice"
	silpoOldPriceSelector = ".product-card-price__displayOldPrice"
	silpoMenuSelector     = `a[data-autotestid="ssr-menu-categories__link"]`
)

// Extract implements ingest.Extractor.
func (e *Silpo) Extract(snap ingest.PageSnapshot, category ingest.Category) (ingest.ExtractResult, error) {
	doc, err := parseDoc(snap)
	if err != nil {
		return ingest.ExtractResult{}, err
	}

	res := ingest.ExtractResult{
		Categories: menuCategories(doc, "silpo", e.base, silpoMenuSelector),
	}
	if emptyListing(snap.Body) {
		return res, nil
	}

	seen := make(map[string]struct{})
	doc.Find(silpoCardSelector).Each(func(_ int, card *goquery.Selection) {
		name := textOf(card, silpoTitleSelector)
		price, ok := priceOf(card, silpoPriceSelector)
		if name == "" || !ok {
			return
		}
		link := resolveURL(e.base, attrOf(card, "a", "href"))
		if _, dup := seen[name+"|"+link]; dup {
			return
		}
		seen[name+"|"+link] = struct{}{}

		rec := ingest.ProductRecord{
			Store:    "silpo",
			Name:     name,
			Price:    price,
			Category: category.Name,
			URL:      link,
			ImageURL: resolveURL(e.base, attrOf(card, "img", "src")),
		}
		if old, ok := priceOf(card, silpoOldPriceSelector); ok {
			rec.OriginalPrice = &old
		}
		res.Products = append(res.Products, rec)
	})

	res.HasMore = snap.HasMore && len(res.Products) > 0
	return res, nil
}
