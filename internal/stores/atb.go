package stores

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/adv4nt4ge/grocery-scraper/internal/ingest"
)

// ATB parses atbmarket.com's server-rendered catalog listings fetched over
// the direct strategy. Prices are split into a whole part and a coin span;
// goquery text concatenation restores "86.90" before parsing.
type ATB struct {
	base string
}

// NewATB builds the atb extractor.
func NewATB(base string) *ATB {
	return &ATB{base: base}
}

const (
	atbItemSelector  = "article.catalog-item"
	atbNameSelector  = ".catalog-item__name, .catalog-item__title"
	atbPriceSelector = ".product-price__top, .catalog-item__product-price, .product-price"
	atbOldSelector   = ".product-price__bottom"
)

// Extract implements ingest.Extractor. The direct strategy has no rendered
// pagination probe, so has-more is derived from the payload: ATB paginates
// until a page comes back empty.
func (e *ATB) Extract(snap ingest.PageSnapshot, category ingest.Category) (ingest.ExtractResult, error) {
	doc, err := parseDoc(snap)
	if err != nil {
		return ingest.ExtractResult{}, err
	}

	var res ingest.ExtractResult
	if emptyListing(snap.Body) {
		return res, nil
	}

	doc.Find(atbItemSelector).Each(func(_ int, item *goquery.Selection) {
		name := textOf(item, atbNameSelector)
		if name == "" {
			// The product image alt text carries the name on some
			// listing variants; the currency badge uses the same tag.
			if alt := attrOf(item, "img.catalog-item__img", "alt"); alt != "" && alt != "Гривня" {
				name = ingest.CleanText(alt)
			}
		}
		price, ok := priceOf(item, atbPriceSelector)
		if name == "" || !ok {
			return
		}
		rec := ingest.ProductRecord{
			Store:    "atb",
			Name:     name,
			Price:    price,
			Category: category.Name,
			URL:      resolveURL(e.base, attrOf(item, "a", "href")),
			ImageURL: e.image(item),
		}
		if old, ok := priceOf(item, atbOldSelector); ok {
			rec.OriginalPrice = &old
		}
		res.Products = append(res.Products, rec)
	})

	res.HasMore = len(res.Products) > 0
	return res, nil
}

func (e *ATB) image(item *goquery.Selection) string {
	if src := attrOf(item, "img", "src"); src != "" {
		return resolveURL(e.base, src)
	}
	return resolveURL(e.base, attrOf(item, "img", "data-src"))
}
