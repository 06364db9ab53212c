package stores

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/adv4nt4ge/grocery-scraper/internal/ingest"
)

// Metro parses the metro.zakaz.ua storefront, one of the shared-platform
// zakaz.ua shops. Product tiles are themselves links and carry structured
// price markup.
type Metro struct {
	base string
}

// NewMetro builds the metro extractor.
func NewMetro(base string) *Metro {
	return &Metro{base: base}
}

const (
	metroTileSelector       = `[data-testid="product-tile"]`
	metroTitleSelector      = ".ProductTile__title"
	metroMenuSelector       = `a[href*="/categories/"]`
	metroBreadcrumbSelector = `[data-marker="Disabled Breadcrumb"]`
)

var metroPriceSelectors = []string{".Price__value_caption", ".Price__value_mobile", ".Price__value"}

// Extract implements ingest.Extractor.
func (e *Metro) Extract(snap ingest.PageSnapshot, category ingest.Category) (ingest.ExtractResult, error) {
	doc, err := parseDoc(snap)
	if err != nil {
		return ingest.ExtractResult{}, err
	}

	res := ingest.ExtractResult{
		Categories: e.categories(doc),
	}
	if emptyListing(snap.Body) {
		return res, nil
	}

	crumbCategory, crumbSub := breadcrumbs(doc, metroBreadcrumbSelector)
	doc.Find(metroTileSelector).Each(func(_ int, tile *goquery.Selection) {
		name := textOf(tile, metroTitleSelector)
		price, ok := priceOf(tile, metroPriceSelectors...)
		if name == "" || !ok {
			return
		}
		rec := ingest.ProductRecord{
			Store:    "metro",
			Name:     name,
			Price:    price,
			Category: category.Name,
			URL:      resolveURL(e.base, e.tileHref(tile)),
			ImageURL: resolveURL(e.base, attrOf(tile, "img", "src")),
		}
		if old, ok := priceOf(tile, ".Price__value_old"); ok {
			rec.OriginalPrice = &old
		}
		if crumbCategory != "" {
			rec.Category = crumbCategory
			rec.Subcategory = crumbSub
		}
		res.Products = append(res.Products, rec)
	})

	res.HasMore = snap.HasMore && len(res.Products) > 0
	return res, nil
}

// tileHref handles both tile shapes: the tile element being the anchor
// itself and the tile wrapping one.
func (e *Metro) tileHref(tile *goquery.Selection) string {
	if href, ok := tile.Attr("href"); ok {
		return href
	}
	return attrOf(tile, "a", "href")
}

// categories keeps only department links so arbitrary product anchors that
// happen to mention /categories/ don't pollute the tree.
func (e *Metro) categories(doc *goquery.Document) []ingest.Category {
	var out []ingest.Category
	seen := make(map[string]struct{})
	doc.Find(metroMenuSelector).Each(func(_ int, s *goquery.Selection) {
		name := ingest.CleanText(s.Text())
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if name == "" || href == "" {
			return
		}
		link := resolveURL(e.base, href)
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		out = append(out, ingest.Category{Store: "metro", Name: name, URL: link})
	})
	return out
}
