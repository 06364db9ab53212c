package stores

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/adv4nt4ge/grocery-scraper/internal/ingest"
)

// emptyListingMarkers are the strings storefronts render on an exhausted or
// out-of-range category page.
var emptyListingMarkers = []string{
	"no products found",
	"немає товарів",
	"empty-results",
	"no-results",
}

// parseDoc builds a goquery document from a page snapshot body.
func parseDoc(snap ingest.PageSnapshot) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(snap.Body))
	if err != nil {
		return nil, fmt.Errorf("parse snapshot for %s: %w", snap.URL, err)
	}
	return doc, nil
}

// emptyListing reports whether the page carries an exhausted-category marker.
func emptyListing(body []byte) bool {
	lowered := strings.ToLower(string(body))
	for _, marker := range emptyListingMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// resolveURL makes href absolute against base. Unparseable input comes back
// unchanged so a broken link degrades to a skipped record, not a lost page.
func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}

// textOf returns the cleaned text of the first match under sel.
func textOf(sel *goquery.Selection, selector string) string {
	return ingest.CleanText(sel.Find(selector).First().Text())
}

// attrOf returns the named attribute of the first match under sel.
func attrOf(sel *goquery.Selection, selector, attr string) string {
	value, _ := sel.Find(selector).First().Attr(attr)
	return strings.TrimSpace(value)
}

// priceOf tries the selectors in order and returns the first parseable price.
func priceOf(sel *goquery.Selection, selectors ...string) (float64, bool) {
	for _, s := range selectors {
		if price, ok := ingest.CleanPrice(textOf(sel, s)); ok {
			return price, true
		}
	}
	return 0, false
}

// breadcrumbs maps a product page's crumb trail onto (category, subcategory):
// the second-to-last crumb names the category, the last the subcategory.
func breadcrumbs(doc *goquery.Document, selector string) (category, subcategory string) {
	var crumbs []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if text := ingest.CleanText(s.Text()); text != "" {
			crumbs = append(crumbs, text)
		}
	})
	switch len(crumbs) {
	case 0:
	case 1:
		category = crumbs[0]
	default:
		category = crumbs[len(crumbs)-2]
		subcategory = crumbs[len(crumbs)-1]
	}
	return category, subcategory
}

// menuCategories collects category links from a navigation menu selector.
func menuCategories(doc *goquery.Document, store, base, selector string) []ingest.Category {
	var out []ingest.Category
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		name := ingest.CleanText(s.Text())
		href, _ := s.Attr("href")
		if name == "" || strings.TrimSpace(href) == "" {
			return
		}
		out = append(out, ingest.Category{
			Store: store,
			Name:  name,
			URL:   resolveURL(base, href),
		})
	})
	return out
}
