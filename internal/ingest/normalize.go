package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	priceNoiseRe = regexp.MustCompile(`[^\d,.]`)
)

// CleanText trims and collapses internal whitespace.
func CleanText(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// CleanPrice parses a storefront price string: currency symbols and grouping
// spaces are stripped, a decimal comma becomes a dot. Returns false when
// nothing parseable remains.
func CleanPrice(s string) (float64, bool) {
	cleaned := priceNoiseRe.ReplaceAllString(s, "")
	if cleaned == "" {
		return 0, false
	}
	// "1.299,99" and "1299,99" both mean comma-decimal; "1,299.99" means
	// dot-decimal with comma grouping. The last separator wins as the
	// decimal mark, everything before it is grouping noise.
	stripSeparators := strings.NewReplacer(",", "", ".", "")
	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")
	if sep := max(lastComma, lastDot); sep >= 0 {
		cleaned = stripSeparators.Replace(cleaned[:sep]) + "." + stripSeparators.Replace(cleaned[sep+1:])
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// FallbackID derives a stable external id from the product URL for stores
// that expose none. Truncated lowercase hex keeps keys index-friendly.
func FallbackID(store, url string) string {
	sum := sha256.Sum256([]byte(store + ":" + url))
	return hex.EncodeToString(sum[:])[:16]
}

// Validation errors reported by Normalize.
var (
	errMissingStore = errors.New("missing store")
	errMissingName  = errors.New("missing name")
	errMissingURL   = errors.New("missing url")
	errBadPrice     = errors.New("missing or non-positive price")
)

// Normalize cleans a candidate record in place and reports whether it is
// writable. Candidates missing store, name, url, or a positive price are
// rejected. An original price below the current price is dropped rather than
// rejecting the record: the listing itself is still good data, only the
// strike-through price is nonsense.
func Normalize(rec *ProductRecord) error {
	rec.Store = CleanText(rec.Store)
	rec.Name = CleanText(rec.Name)
	rec.Brand = CleanText(rec.Brand)
	rec.Category = CleanText(rec.Category)
	rec.Subcategory = CleanText(rec.Subcategory)
	rec.URL = strings.TrimSpace(rec.URL)

	if rec.Store == "" {
		return errMissingStore
	}
	if rec.Name == "" {
		return errMissingName
	}
	if rec.URL == "" {
		return errMissingURL
	}
	if rec.Price <= 0 {
		return fmt.Errorf("%w: %v", errBadPrice, rec.Price)
	}
	if rec.OriginalPrice != nil && *rec.OriginalPrice < rec.Price {
		rec.OriginalPrice = nil
	}
	if rec.ExternalID == "" {
		rec.ExternalID = FallbackID(rec.Store, rec.URL)
	}
	return nil
}
