package ingest

import (
	"fmt"
	"net/url"
	"strconv"
)

// PageURL returns the category URL with the pagination query parameter set.
// Page 1 stays untouched so it matches the store's canonical category link.
func PageURL(raw, param string, page int) (string, error) {
	if page <= 1 || param == "" {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse category url %q: %w", raw, err)
	}
	q := u.Query()
	q.Set(param, strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
