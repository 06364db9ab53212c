// Package memory provides in-memory store implementations for
// development and testing.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/adv4nt4ge/grocery-scraper/internal/ingest"
)

type productKey struct {
	store      string
	externalID string
}

type categoryKey struct {
	store string
	name  string
}

// CatalogStore keeps categories and products in maps keyed by natural key.
type CatalogStore struct {
	mu         sync.RWMutex
	products   map[productKey]ingest.ProductRecord
	categories map[categoryKey]ingest.Category
}

// NewCatalogStore constructs an empty CatalogStore.
func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		products:   make(map[productKey]ingest.ProductRecord),
		categories: make(map[categoryKey]ingest.Category),
	}
}

// UpsertProduct inserts or replaces a product row.
func (s *CatalogStore) UpsertProduct(_ context.Context, rec ingest.ProductRecord) error {
	if rec.Store == "" || rec.ExternalID == "" {
		return errors.New("product store and external id are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[productKey{rec.Store, rec.ExternalID}] = rec
	return nil
}

// UpsertCategory inserts or replaces a category node.
func (s *CatalogStore) UpsertCategory(_ context.Context, cat ingest.Category) error {
	if cat.Store == "" || cat.Name == "" {
		return errors.New("category store and name are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[categoryKey{cat.Store, cat.Name}] = cat
	return nil
}

// ListCategories returns a store's categories ordered by name.
func (s *CatalogStore) ListCategories(_ context.Context, store string) ([]ingest.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var cats []ingest.Category
	for key, cat := range s.categories {
		if key.store == store {
			cats = append(cats, cat)
		}
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].Name < cats[j].Name })
	return cats, nil
}

// DeleteCategories removes every category of one store.
func (s *CatalogStore) DeleteCategories(_ context.Context, store string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.categories {
		if key.store == store {
			delete(s.categories, key)
		}
	}
	return nil
}

// Products returns a copy of every stored product, for test assertions.
func (s *CatalogStore) Products() []ingest.ProductRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ingest.ProductRecord, 0, len(s.products))
	for _, rec := range s.products {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Store != out[j].Store {
			return out[i].Store < out[j].Store
		}
		return out[i].ExternalID < out[j].ExternalID
	})
	return out
}
