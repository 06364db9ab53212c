package stores

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adv4nt4ge/grocery-scraper/internal/ingest"
)

func TestATBExtractListing(t *testing.T) {
	t.Parallel()

	e := NewATB("https://www.atbmarket.com")
	cat := ingest.Category{Store: "atb", Name: "Бакалія", URL: "https://www.atbmarket.com/catalog/285-bakaliya"}
	snap := ingest.PageSnapshot{
		Kind:       ingest.SnapshotPayload,
		URL:        cat.URL,
		Page:       1,
		StatusCode: 200,
		Body:       []byte(atbListingHTML),
	}

	res, err := e.Extract(snap, cat)
	require.NoError(t, err)
	require.Len(t, res.Products, 2)
	// Direct-strategy has-more comes from the payload: products present
	// means keep paginating until an empty page.
	require.True(t, res.HasMore)

	withDiscount := res.Products[0]
	require.Equal(t, "Крупа гречана Королівська 800г", withDiscount.Name)
	// Coin-span markup concatenates to 49.80.
	require.Equal(t, 49.80, withDiscount.Price)
	require.NotNil(t, withDiscount.OriginalPrice)
	require.Equal(t, 58.90, *withDiscount.OriginalPrice)
	require.Equal(t, "https://www.atbmarket.com/product/285-bakaliya/hrechka-korolivska-800g", withDiscount.URL)
	require.Equal(t, "https://www.atbmarket.com/img/hrechka.webp", withDiscount.ImageURL)

	// The second card has no name element; the image alt supplies it.
	fromAlt := res.Products[1]
	require.Equal(t, "Сіль кухонна Артемсіль 1кг", fromAlt.Name)
	require.Equal(t, 14.50, fromAlt.Price)
	require.Nil(t, fromAlt.OriginalPrice)
}

func TestATBExtractEmptyListing(t *testing.T) {
	t.Parallel()

	e := NewATB("https://www.atbmarket.com")
	snap := ingest.PageSnapshot{
		Kind:       ingest.SnapshotPayload,
		URL:        "https://www.atbmarket.com/catalog/285-bakaliya?page=30",
		Page:       30,
		StatusCode: 200,
		Body:       []byte(emptyListingHTML),
	}

	res, err := e.Extract(snap, ingest.Category{Store: "atb", Name: "Бакалія"})
	require.NoError(t, err)
	require.Empty(t, res.Products)
	require.False(t, res.HasMore)
}
