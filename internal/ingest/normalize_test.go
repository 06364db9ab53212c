package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"  Кава  мелена\n Lavazza ", "Кава мелена Lavazza"},
		{"Молоко\t2,5%", "Молоко 2,5%"},
		{"plain", "plain"},
		{"   ", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := CleanText(tc.in); got != tc.want {
			t.Fatalf("CleanText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCleanPrice(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"129.99", 129.99, true},
		{"129,99", 129.99, true},
		{"120", 120, true},
		{"95,5 грн", 95.5, true},
		{"1 299,99 ₴", 1299.99, true},
		{"1,299.99", 1299.99, true},
		{"1.299,99", 1299.99, true},
		{"1,299,99", 1299.99, true},
		{"₴ 45", 45, true},
		{"", 0, false},
		{"ціну уточнюйте", 0, false},
		{",.", 0, false},
	}
	for _, tc := range cases {
		got, ok := CleanPrice(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("CleanPrice(%q) = (%v, %v), want (%v, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestFallbackID(t *testing.T) {
	t.Parallel()

	a := FallbackID("silpo", "https://silpo.ua/product/1")
	b := FallbackID("silpo", "https://silpo.ua/product/1")
	c := FallbackID("silpo", "https://silpo.ua/product/2")
	d := FallbackID("varus", "https://silpo.ua/product/1")

	require.Len(t, a, 16)
	require.Equal(t, a, b, "same store and url must map to the same id")
	require.NotEqual(t, a, c)
	require.NotEqual(t, a, d, "store participates in the key")
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	valid := func() ProductRecord {
		return ProductRecord{
			Store: "silpo",
			Name:  "  Кава  в зернах ",
			URL:   "https://silpo.ua/product/kava-1",
			Price: 319.99,
		}
	}

	t.Run("cleans and fills fallback id", func(t *testing.T) {
		rec := valid()
		require.NoError(t, Normalize(&rec))
		require.Equal(t, "Кава в зернах", rec.Name)
		require.Equal(t, FallbackID("silpo", "https://silpo.ua/product/kava-1"), rec.ExternalID)
	})

	t.Run("keeps stable external id", func(t *testing.T) {
		rec := valid()
		rec.ExternalID = "sku-100500"
		require.NoError(t, Normalize(&rec))
		require.Equal(t, "sku-100500", rec.ExternalID)
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		rec := valid()
		rec.Store = " "
		require.ErrorIs(t, Normalize(&rec), errMissingStore)

		rec = valid()
		rec.Name = ""
		require.ErrorIs(t, Normalize(&rec), errMissingName)

		rec = valid()
		rec.URL = "   "
		require.ErrorIs(t, Normalize(&rec), errMissingURL)
	})

	t.Run("rejects non-positive price", func(t *testing.T) {
		rec := valid()
		rec.Price = 0
		require.ErrorIs(t, Normalize(&rec), errBadPrice)

		rec = valid()
		rec.Price = -5
		require.ErrorIs(t, Normalize(&rec), errBadPrice)
	})

	t.Run("drops original price below current", func(t *testing.T) {
		rec := valid()
		orig := 250.0
		rec.OriginalPrice = &orig
		require.NoError(t, Normalize(&rec))
		require.Nil(t, rec.OriginalPrice)
	})

	t.Run("keeps original price above current", func(t *testing.T) {
		rec := valid()
		orig := 399.99
		rec.OriginalPrice = &orig
		require.NoError(t, Normalize(&rec))
		require.NotNil(t, rec.OriginalPrice)
		require.Equal(t, 399.99, *rec.OriginalPrice)
	})
}
