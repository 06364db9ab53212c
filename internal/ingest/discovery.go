package ingest

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// visitedCapacity bounds the per-walk seen set; far larger than any real
// storefront menu.
const visitedCapacity = 1024

// Discoverer resolves a store's category tree. Cached categories are
// canonical; a walk or seed load happens only when the cache is empty or the
// caller forces rediscovery.
type Discoverer struct {
	catalog CatalogStore
	depth   int
	log     *zap.Logger
}

// NewDiscoverer builds a discoverer. depth is how many menu levels beyond
// the catalog entry page a walk may fetch; values below 1 mean the entry
// page only.
func NewDiscoverer(catalog CatalogStore, depth int, logger *zap.Logger) *Discoverer {
	if depth < 1 {
		depth = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{catalog: catalog, depth: depth, log: logger}
}

// Discover returns the category set for tpl's store, persisting anything
// newly found. Zero categories is terminal for the store's run.
func (d *Discoverer) Discover(ctx context.Context, tpl Template, fetch Fetcher, force bool) ([]Category, error) {
	if force {
		if err := d.catalog.DeleteCategories(ctx, tpl.Store); err != nil {
			return nil, fmt.Errorf("clear cached categories for %s: %w", tpl.Store, err)
		}
	} else {
		cached, err := d.catalog.ListCategories(ctx, tpl.Store)
		if err != nil {
			return nil, fmt.Errorf("list cached categories for %s: %w", tpl.Store, err)
		}
		if len(cached) > 0 {
			d.log.Debug("using cached category tree",
				zap.String("store", tpl.Store), zap.Int("categories", len(cached)))
			return cached, nil
		}
	}

	var (
		found []Category
		err   error
	)
	if len(tpl.Seeds) > 0 {
		found = seedCategories(tpl)
	} else {
		found, err = d.walk(ctx, tpl, fetch)
		if err != nil {
			return nil, &DiscoveryFailedError{Store: tpl.Store, Err: err}
		}
	}
	found = dedupeCategories(found)
	if len(found) == 0 {
		return nil, &DiscoveryFailedError{Store: tpl.Store}
	}

	for _, cat := range found {
		if err := d.catalog.UpsertCategory(ctx, cat); err != nil {
			return nil, fmt.Errorf("persist category %s/%s: %w", cat.Store, cat.Name, err)
		}
	}
	d.log.Info("category tree discovered",
		zap.String("store", tpl.Store), zap.Int("categories", len(found)))
	return found, nil
}

// walk does a breadth-first crawl of the store's menu starting from the
// catalog entry page. The visited set is an LRU so a cyclic menu cannot loop
// the walk.
func (d *Discoverer) walk(ctx context.Context, tpl Template, fetch Fetcher) ([]Category, error) {
	if tpl.CatalogURL == "" {
		return nil, fmt.Errorf("store %s has no catalog url and no seeds", tpl.Store)
	}
	visited, err := lru.New[string, struct{}](visitedCapacity)
	if err != nil {
		return nil, fmt.Errorf("init visited set: %w", err)
	}

	type frontierItem struct {
		url   string
		depth int
	}
	frontier := []frontierItem{{url: tpl.CatalogURL, depth: 0}}
	var out []Category

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := frontier[0]
		frontier = frontier[1:]
		if seen, _ := visited.ContainsOrAdd(item.url, struct{}{}); seen {
			continue
		}

		snap, err := fetch.Fetch(ctx, FetchRequest{
			Store:        tpl.Store,
			URL:          item.url,
			Page:         1,
			WaitSelector: tpl.WaitSelector,
			Headers:      tpl.Headers,
			Cookies:      tpl.Cookies,
			BotProtected: tpl.BotProtected,
		})
		if err != nil {
			if item.depth == 0 {
				return nil, err
			}
			d.log.Warn("discovery fetch failed, skipping branch",
				zap.String("store", tpl.Store), zap.String("url", item.url), zap.Error(err))
			continue
		}
		res, err := tpl.Extractor.Extract(snap, Category{Store: tpl.Store})
		if err != nil {
			if item.depth == 0 {
				return nil, err
			}
			d.log.Warn("discovery extract failed, skipping branch",
				zap.String("store", tpl.Store), zap.String("url", item.url), zap.Error(err))
			continue
		}
		out = append(out, res.Categories...)
		if item.depth+1 < d.depth {
			for _, cat := range res.Categories {
				frontier = append(frontier, frontierItem{url: cat.URL, depth: item.depth + 1})
			}
		}
	}
	return out, nil
}

func seedCategories(tpl Template) []Category {
	out := make([]Category, 0, len(tpl.Seeds))
	for _, seed := range tpl.Seeds {
		if seed.Store == "" {
			seed.Store = tpl.Store
		}
		out = append(out, seed)
	}
	return out
}

// dedupeCategories keeps the first occurrence per name: the name already
// seen is canonical. The input is never modified; callers may pass a slice
// they still read from.
func dedupeCategories(cats []Category) []Category {
	seen := make(map[string]struct{}, len(cats))
	out := make([]Category, 0, len(cats))
	for _, cat := range cats {
		if cat.Name == "" || cat.URL == "" {
			continue
		}
		if _, dup := seen[cat.Name]; dup {
			continue
		}
		seen[cat.Name] = struct{}{}
		out = append(out, cat)
	}
	return out
}
