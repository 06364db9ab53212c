package stores

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adv4nt4ge/grocery-scraper/internal/ingest"
)

func TestMetroExtractListing(t *testing.T) {
	t.Parallel()

	e := NewMetro("https://metro.zakaz.ua")
	cat := ingest.Category{Store: "metro", Name: "Крупи та макарони"}
	snap := snapshot("https://metro.zakaz.ua/uk/categories/groceries/", 1, true, metroListingHTML)

	res, err := e.Extract(snap, cat)
	require.NoError(t, err)
	require.Len(t, res.Products, 2)
	require.True(t, res.HasMore)

	anchorTile := res.Products[0]
	require.Equal(t, "Рис Metro Chef довгозернистий 1кг", anchorTile.Name)
	require.Equal(t, 74.90, anchorTile.Price)
	require.Equal(t, "https://metro.zakaz.ua/uk/products/rys-metro-chef-1kg/", anchorTile.URL)
	// Breadcrumbs override the category: second-to-last crumb is the
	// category, last is the subcategory.
	require.Equal(t, "Бакалія", anchorTile.Category)
	require.Equal(t, "Крупи", anchorTile.Subcategory)

	wrappedTile := res.Products[1]
	require.Equal(t, 38.20, wrappedTile.Price)
	require.NotNil(t, wrappedTile.OriginalPrice)
	require.Equal(t, 45.0, *wrappedTile.OriginalPrice)
	require.Equal(t, "https://metro.zakaz.ua/uk/products/makarony-870g/", wrappedTile.URL)
}

func TestMetroCategoriesDeduped(t *testing.T) {
	t.Parallel()

	e := NewMetro("https://metro.zakaz.ua")
	snap := snapshot("https://metro.zakaz.ua/uk/", 1, false, metroListingHTML)

	res, err := e.Extract(snap, ingest.Category{Store: "metro"})
	require.NoError(t, err)
	// The duplicated dairy link collapses to one category.
	require.Len(t, res.Categories, 2)
	require.Equal(t, "Хлібобулочні вироби", res.Categories[0].Name)
	require.Equal(t, "https://metro.zakaz.ua/uk/categories/bakery-metro/", res.Categories[0].URL)
}
