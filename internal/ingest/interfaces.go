package ingest

import (
	"context"
	"time"
)

// Fetcher retrieves one listing page using a store's access strategy.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (PageSnapshot, error)
}

// Extractor maps one page snapshot into normalized product candidates and
// discovered category links. Implementations are pure: no network I/O, no
// retries, unit-testable against a fixed snapshot fixture.
type Extractor interface {
	Extract(snap PageSnapshot, category Category) (ExtractResult, error)
}

// ResourceFilter decides whether a subrequest issued during rendering may
// proceed. Consulted only by the rendered fetcher.
type ResourceFilter interface {
	Allow(url string, resourceType ResourceType) bool
}

// CatalogStore persists categories and product records. Upserts must be safe
// for concurrent callers on the natural key.
type CatalogStore interface {
	UpsertProduct(ctx context.Context, rec ProductRecord) error
	UpsertCategory(ctx context.Context, cat Category) error
	ListCategories(ctx context.Context, store string) ([]Category, error)
	// DeleteCategories clears a store's cached tree ahead of a forced
	// rediscovery.
	DeleteCategories(ctx context.Context, store string) error
}

// RunStore appends and finalizes scrape-run audit records.
type RunStore interface {
	StartRun(ctx context.Context, run ScrapeRun) error
	FinishRun(ctx context.Context, run ScrapeRun) error
	GetRun(ctx context.Context, id string) (ScrapeRun, error)
	ListRuns(ctx context.Context, store string, limit int) ([]ScrapeRun, error)
}

// Clock returns the current time (injectable for tests).
type Clock interface {
	Now() time.Time
}

// IDGenerator mints run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}
