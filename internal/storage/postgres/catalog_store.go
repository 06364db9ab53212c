package postgres

import (
	"context"
	"fmt"

	"github.com/adv4nt4ge/grocery-scraper/internal/ingest"
)

// CatalogStore persists categories and products in Postgres. Upserts key on
// the natural key so concurrent writers converge on the latest row.
type CatalogStore struct {
	db db
}

// NewCatalogStore builds a CatalogStore on the shared pool.
func NewCatalogStore(p *Pool) *CatalogStore {
	return &CatalogStore{db: p.db}
}

const upsertProductSQL = `
INSERT INTO products (
	store, external_id, name, price, original_price,
	category, subcategory, url, image_url, brand,
	in_stock, rating, scraped_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
)
ON CONFLICT (store, external_id) DO UPDATE SET
	name = EXCLUDED.name,
	price = EXCLUDED.price,
	original_price = EXCLUDED.original_price,
	category = EXCLUDED.category,
	subcategory = EXCLUDED.subcategory,
	url = EXCLUDED.url,
	image_url = EXCLUDED.image_url,
	brand = EXCLUDED.brand,
	in_stock = EXCLUDED.in_stock,
	rating = EXCLUDED.rating,
	scraped_at = EXCLUDED.scraped_at,
	updated_at = now()`

// UpsertProduct inserts or refreshes one product row.
func (s *CatalogStore) UpsertProduct(ctx context.Context, rec ingest.ProductRecord) error {
	if rec.Store == "" || rec.ExternalID == "" {
		return fmt.Errorf("product store and external id are required")
	}
	_, err := s.db.Exec(ctx, upsertProductSQL,
		rec.Store, rec.ExternalID, rec.Name, rec.Price, rec.OriginalPrice,
		rec.Category, rec.Subcategory, rec.URL, rec.ImageURL, rec.Brand,
		rec.InStock, rec.Rating, rec.ScrapedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

const upsertCategorySQL = `
INSERT INTO categories (store, name, parent_name, url)
VALUES ($1,$2,$3,$4)
ON CONFLICT (store, name) DO UPDATE SET
	parent_name = EXCLUDED.parent_name,
	url = EXCLUDED.url,
	updated_at = now()`

// UpsertCategory inserts or refreshes one category node.
func (s *CatalogStore) UpsertCategory(ctx context.Context, cat ingest.Category) error {
	if cat.Store == "" || cat.Name == "" {
		return fmt.Errorf("category store and name are required")
	}
	if _, err := s.db.Exec(ctx, upsertCategorySQL, cat.Store, cat.Name, cat.ParentName, cat.URL); err != nil {
		return fmt.Errorf("upsert category: %w", err)
	}
	return nil
}

// ListCategories returns a store's cached category tree ordered by name.
func (s *CatalogStore) ListCategories(ctx context.Context, store string) ([]ingest.Category, error) {
	rows, err := s.db.Query(ctx,
		`SELECT store, name, parent_name, url FROM categories WHERE store = $1 ORDER BY name`, store)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []ingest.Category
	for rows.Next() {
		var c ingest.Category
		if err := rows.Scan(&c.Store, &c.Name, &c.ParentName, &c.URL); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// DeleteCategories clears a store's cached tree ahead of a forced rediscovery.
func (s *CatalogStore) DeleteCategories(ctx context.Context, store string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM categories WHERE store = $1`, store); err != nil {
		return fmt.Errorf("delete categories: %w", err)
	}
	return nil
}
