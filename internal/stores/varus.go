package stores

import (
	"regexp"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"github.com/adv4nt4ge/grocery-scraper/internal/ingest"
)

// Varus parses the varus.ua SPA. Pagination exposes a "go to last page"
// control whose link carries the total page count.
type Varus struct {
	base string
}

// NewVarus builds the varus extractor.
func NewVarus(base string) *Varus {
	return &Varus{base: base}
}

const (
	varusCardSelector     = ".sf-product-card"
	varusTitleSelector    = ".sf-product-card__title"
	varusRegularSelector  = ".sf-price__regular"
	varusSpecialSelector  = ".sf-price__special"
	varusMenuSelector     = ".a-megamenu-item--main a"
	varusLastPageSelector = `[data-transaction-name="Pagination - Go To Last"]`
)

var pageParamRe = regexp.MustCompile(`[?&]page=(\d+)`)

// Extract implements ingest.Extractor.
func (e *Varus) Extract(snap ingest.PageSnapshot, category ingest.Category) (ingest.ExtractResult, error) {
	doc, err := parseDoc(snap)
	if err != nil {
		return ingest.ExtractResult{}, err
	}

	res := ingest.ExtractResult{
		Categories: menuCategories(doc, "varus", e.base, varusMenuSelector),
	}
	if emptyListing(snap.Body) {
		return res, nil
	}

	doc.Find(varusCardSelector).Each(func(_ int, card *goquery.Selection) {
		name := textOf(card, varusTitleSelector)
		if name == "" {
			return
		}
		// A discounted card shows the special price as current and the
		// regular one struck through; a plain card shows regular only.
		special, hasSpecial := priceOf(card, varusSpecialSelector)
		regular, hasRegular := priceOf(card, varusRegularSelector)

		rec := ingest.ProductRecord{
			Store:    "varus",
			Name:     name,
			Category: category.Name,
			URL:      resolveURL(e.base, attrOf(card, "a", "href")),
			ImageURL: resolveURL(e.base, attrOf(card, "img", "src")),
		}
		switch {
		case hasSpecial && hasRegular:
			rec.Price = special
			rec.OriginalPrice = &regular
		case hasSpecial:
			rec.Price = special
		case hasRegular:
			rec.Price = regular
		default:
			return
		}
		res.Products = append(res.Products, rec)
	})

	res.HasMore = e.hasMore(doc, snap)
	return res, nil
}

// hasMore prefers the total page count parsed from the "go to last" link and
// falls back to the fetcher's pagination probe.
func (e *Varus) hasMore(doc *goquery.Document, snap ingest.PageSnapshot) bool {
	if href, ok := doc.Find(varusLastPageSelector).First().Attr("href"); ok {
		if m := pageParamRe.FindStringSubmatch(href); m != nil {
			if total, err := strconv.Atoi(m[1]); err == nil {
				return snap.Page < total
			}
		}
	}
	return snap.HasMore
}
