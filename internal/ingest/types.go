// Package ingest defines the core types and pipeline of the multi-strategy
// storefront ingestion engine.
package ingest

import (
	"net/http"
	"time"
)

// Category is one node of a store's navigation tree. Unique per (store, name).
type Category struct {
	Store      string `json:"store"`
	Name       string `json:"name"`
	ParentName string `json:"parent_name,omitempty"`
	URL        string `json:"url"`
}

// ProductRecord is one normalized listing row written to the shared store.
// Optional fields are pointers so that "absent" survives the round trip to
// storage and downstream consumers.
type ProductRecord struct {
	Store         string    `json:"store"`
	ExternalID    string    `json:"external_id"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	OriginalPrice *float64  `json:"original_price,omitempty"`
	Category      string    `json:"category"`
	Subcategory   string    `json:"subcategory,omitempty"`
	URL           string    `json:"url"`
	ImageURL      string    `json:"image_url,omitempty"`
	Brand         string    `json:"brand,omitempty"`
	InStock       *bool     `json:"in_stock,omitempty"`
	Rating        *float64  `json:"rating,omitempty"`
	ScrapedAt     time.Time `json:"scraped_at"`
}

// Discount reports the fractional discount when an original price is present.
func (p ProductRecord) Discount() float64 {
	if p.OriginalPrice == nil || *p.OriginalPrice <= 0 {
		return 0
	}
	return (*p.OriginalPrice - p.Price) / *p.OriginalPrice
}

// SnapshotKind discriminates how a page snapshot was produced.
type SnapshotKind string

// Snapshot kinds, one per fetch strategy.
const (
	SnapshotDOM     SnapshotKind = "dom"     // serialized DOM after rendering
	SnapshotPayload SnapshotKind = "payload" // decoded body of a direct fetch
)

// PageSnapshot is the ephemeral result of fetching one listing page. It is
// owned by the fetch call that produced it and consumed once by an Extractor.
type PageSnapshot struct {
	Kind       SnapshotKind
	URL        string
	Page       int
	StatusCode int
	Body       []byte
	// HasMore reports a pagination control observed by the fetcher itself
	// (rendered strategy only; direct-strategy extractors derive it from the
	// payload instead).
	HasMore   bool
	FetchedAt time.Time
	Duration  time.Duration
}

// ExtractResult is the outcome of mapping one snapshot into normalized data.
type ExtractResult struct {
	Products   []ProductRecord
	Categories []Category
	HasMore    bool
}

// FetchStrategy selects which fetcher a store template uses.
type FetchStrategy string

// Supported fetch strategies.
const (
	StrategyRendered FetchStrategy = "rendered"
	StrategyDirect   FetchStrategy = "direct"
)

// FetchRequest captures everything a fetcher needs for one listing page.
type FetchRequest struct {
	Store string
	URL   string
	Page  int
	// WaitSelector is the rendered-strategy completion predicate: the CSS
	// selector that must be visible before the DOM is snapshotted.
	WaitSelector string
	// HasMoreProbe is a CSS selector evaluated in the rendered page; its
	// presence sets PageSnapshot.HasMore.
	HasMoreProbe string
	Headers      http.Header
	Cookies      []*http.Cookie
	// BotProtected marks a store behind an anti-bot layer: a bare 403 from
	// it means the access method stopped working, not a server fault.
	BotProtected bool
}

// Template describes one storefront: how to reach it, how long to wait, and
// how to parse what comes back. Adding a store means registering one new
// template, not touching the engine.
type Template struct {
	Store        string
	BaseURL      string
	Strategy     FetchStrategy
	WaitSelector string
	HasMoreProbe string
	// PageParam is the query parameter that selects a listing page.
	PageParam string
	Headers   http.Header
	Cookies   []*http.Cookie
	// WarmupURL, when set, is fetched once before the first listing page to
	// establish session cookies with the storefront.
	WarmupURL string
	// BotProtected propagates to every FetchRequest for this store.
	BotProtected bool
	// CatalogURL is the discovery entry point for stores whose category tree
	// is walkable from a menu page.
	CatalogURL string
	// Seeds is a curated category list for stores whose navigation cannot be
	// walked; it bypasses the discovery fetch but still goes through the
	// persist/cache path.
	Seeds     []Category
	Extractor Extractor
}

// ResourceType labels a subrequest observed while rendering a page.
type ResourceType string

// Resource types as reported by the browser's network layer.
const (
	ResourceDocument   ResourceType = "document"
	ResourceStylesheet ResourceType = "stylesheet"
	ResourceImage      ResourceType = "image"
	ResourceMedia      ResourceType = "media"
	ResourceFont       ResourceType = "font"
	ResourceScript     ResourceType = "script"
	ResourceXHR        ResourceType = "xhr"
	ResourceFetch      ResourceType = "fetch"
	ResourcePing       ResourceType = "ping"
	ResourceOther      ResourceType = "other"
)

// RunStatus is the lifecycle state of a scrape run.
type RunStatus string

// Run status values persisted in the run store.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// ScrapeRun is the append-only audit record for one store run. It is created
// when the StoreJob starts and finalized exactly once at completion.
type ScrapeRun struct {
	ID              string     `json:"id"`
	Store           string     `json:"store"`
	Category        string     `json:"category,omitempty"`
	Status          RunStatus  `json:"status"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	PagesFetched    int        `json:"pages_fetched"`
	ProductsWritten int        `json:"products_written"`
	ProductsDropped int        `json:"products_dropped"`
	Errors          []string   `json:"errors,omitempty"`
}

// JobState is one phase of the per-category pipeline state machine.
type JobState string

// StoreJob states. Exhausted and Failed are terminal.
const (
	StateDiscovering JobState = "discovering"
	StatePaginating  JobState = "paginating"
	StateExtracting  JobState = "extracting"
	StateWriting     JobState = "writing"
	StateNextPage    JobState = "next_page"
	StateExhausted   JobState = "exhausted"
	StateFailed      JobState = "failed"
)

// Scope narrows an engine invocation to a subset of stores, optionally to a
// single category shared by every selected store.
type Scope struct {
	Stores   []string
	Category string
}

// StoreSummary reports one store's outcome inside an invocation summary.
type StoreSummary struct {
	Store           string    `json:"store"`
	RunID           string    `json:"run_id"`
	Status          RunStatus `json:"status"`
	PagesFetched    int       `json:"pages_fetched"`
	ProductsWritten int       `json:"products_written"`
	Errors          []string  `json:"errors,omitempty"`
}

// Summary aggregates every store's outcome for one engine invocation. It is
// always complete: failed stores appear alongside successful ones.
type Summary struct {
	StartedAt       time.Time               `json:"started_at"`
	FinishedAt      time.Time               `json:"finished_at"`
	ProductsWritten int                     `json:"products_written"`
	StoresSucceeded int                     `json:"stores_succeeded"`
	StoresFailed    int                     `json:"stores_failed"`
	Stores          map[string]StoreSummary `json:"stores"`
}
