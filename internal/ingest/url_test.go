package ingest

import "testing"

func TestPageURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		raw   string
		param string
		page  int
		want  string
	}{
		{"first page untouched", "https://varus.ua/kava", "page", 1, "https://varus.ua/kava"},
		{"zero page untouched", "https://varus.ua/kava", "page", 0, "https://varus.ua/kava"},
		{"no param untouched", "https://silpo.ua/category/kava", "", 4, "https://silpo.ua/category/kava"},
		{"param appended", "https://varus.ua/kava", "page", 3, "https://varus.ua/kava?page=3"},
		{"param replaced", "https://varus.ua/kava?page=2", "page", 5, "https://varus.ua/kava?page=5"},
		// url.Values.Encode emits keys in sorted order.
		{"existing query kept", "https://varus.ua/kava?sort=price", "page", 2, "https://varus.ua/kava?page=2&sort=price"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := PageURL(tc.raw, tc.param, tc.page)
			if err != nil {
				t.Fatalf("PageURL: %v", err)
			}
			if got != tc.want {
				t.Fatalf("PageURL(%q, %q, %d) = %q, want %q", tc.raw, tc.param, tc.page, got, tc.want)
			}
		})
	}
}

func TestPageURLBadInput(t *testing.T) {
	t.Parallel()

	if _, err := PageURL("://not-a-url", "page", 2); err == nil {
		t.Fatal("expected parse error")
	}
}
