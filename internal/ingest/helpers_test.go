package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// fetcherFunc adapts a function to the Fetcher interface.
type fetcherFunc func(ctx context.Context, req FetchRequest) (PageSnapshot, error)

func (f fetcherFunc) Fetch(ctx context.Context, req FetchRequest) (PageSnapshot, error) {
	return f(ctx, req)
}

// extractorFunc adapts a function to the Extractor interface.
type extractorFunc func(snap PageSnapshot, category Category) (ExtractResult, error)

func (f extractorFunc) Extract(snap PageSnapshot, category Category) (ExtractResult, error) {
	return f(snap, category)
}

// fakeCatalog is an in-memory CatalogStore that records every write.
type fakeCatalog struct {
	mu         sync.Mutex
	products   map[string]ProductRecord
	categories map[string][]Category
	upserts    []ProductRecord
	upsertErr  error
	deletes    []string
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products:   make(map[string]ProductRecord),
		categories: make(map[string][]Category),
	}
}

func (c *fakeCatalog) UpsertProduct(_ context.Context, rec ProductRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.upsertErr != nil {
		return c.upsertErr
	}
	c.products[rec.Store+"|"+rec.ExternalID] = rec
	c.upserts = append(c.upserts, rec)
	return nil
}

func (c *fakeCatalog) UpsertCategory(_ context.Context, cat Category) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.categories[cat.Store] {
		if existing.Name == cat.Name {
			c.categories[cat.Store][i] = cat
			return nil
		}
	}
	c.categories[cat.Store] = append(c.categories[cat.Store], cat)
	return nil
}

func (c *fakeCatalog) ListCategories(_ context.Context, store string) ([]Category, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Category(nil), c.categories[store]...), nil
}

func (c *fakeCatalog) DeleteCategories(_ context.Context, store string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes = append(c.deletes, store)
	delete(c.categories, store)
	return nil
}

func (c *fakeCatalog) productCount(store string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for key := range c.products {
		if rec := c.products[key]; rec.Store == store {
			n++
		}
	}
	return n
}

// fakeRuns records run lifecycle calls.
type fakeRuns struct {
	mu       sync.Mutex
	started  []ScrapeRun
	finished []ScrapeRun
}

func (r *fakeRuns) StartRun(_ context.Context, run ScrapeRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, run)
	return nil
}

func (r *fakeRuns) FinishRun(_ context.Context, run ScrapeRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, run)
	return nil
}

func (r *fakeRuns) GetRun(_ context.Context, id string) (ScrapeRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, run := range r.finished {
		if run.ID == id {
			return run, nil
		}
	}
	return ScrapeRun{}, ErrRunNotFound
}

func (r *fakeRuns) ListRuns(_ context.Context, store string, limit int) ([]ScrapeRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ScrapeRun, 0, limit)
	for _, run := range r.finished {
		if store == "" || run.Store == store {
			out = append(out, run)
		}
	}
	return out, nil
}

func (r *fakeRuns) lastFinished() (ScrapeRun, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.finished) == 0 {
		return ScrapeRun{}, false
	}
	return r.finished[len(r.finished)-1], true
}

// stubClock returns a strictly advancing time so scraped_at ordering is
// observable without sleeping.
type stubClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newStubClock() *stubClock {
	return &stubClock{
		now:  time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC),
		step: time.Second,
	}
}

func (c *stubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

// seqIDs mints deterministic run ids.
type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) NewID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("run-%d", s.n), nil
}

// listingPage fabricates n product candidates for one fixture page.
func listingPage(store string, page, n int, hasMore bool) ExtractResult {
	res := ExtractResult{HasMore: hasMore}
	for i := 0; i < n; i++ {
		res.Products = append(res.Products, ProductRecord{
			Store: store,
			Name:  fmt.Sprintf("Product %d-%d", page, i),
			Price: 10 + float64(i),
			URL:   fmt.Sprintf("https://%s.example/p/%d-%d", store, page, i),
		})
	}
	return res
}
