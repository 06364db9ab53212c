package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/adv4nt4ge/grocery-scraper/internal/progress"
)

// RunExporter archives one finished run's normalized records.
type RunExporter interface {
	ExportRun(ctx context.Context, run ScrapeRun, records []ProductRecord) error
}

// RunNotifier announces a finished run to downstream consumers.
type RunNotifier interface {
	NotifyRunCompleted(ctx context.Context, run ScrapeRun) error
}

// Config bounds one engine invocation. It is built by the caller and scoped
// to that invocation; nothing here is global.
type Config struct {
	// Concurrency caps store jobs in flight.
	Concurrency int
	// MaxPages, PageDelay, CategoryDelay, and ForceDiscovery apply to every
	// store job in the invocation.
	MaxPages       int
	PageDelay      time.Duration
	CategoryDelay  time.Duration
	ForceDiscovery bool
	// DiscoveryDepth is how many menu levels a discovery walk may follow.
	DiscoveryDepth int
	// Retry is the per-page retry policy.
	Retry RetryPolicy
	// CollectRecords retains normalized records per run for the exporter.
	CollectRecords bool
}

// Deps carries the orchestrator's collaborators. Exporter and Notifier are
// optional; everything else is required.
type Deps struct {
	Fetchers map[FetchStrategy]Fetcher
	Catalog  CatalogStore
	Runs     RunStore
	Clock    Clock
	IDs      IDGenerator
	Emitter  progress.Emitter
	Exporter RunExporter
	Notifier RunNotifier
	Logger   *zap.Logger
}

// Orchestrator fans store jobs out over the requested scope under a bounded
// concurrency budget and aggregates their run summaries. One store's failure
// never cancels a sibling's job.
type Orchestrator struct {
	cfg        Config
	templates  []Template
	deps       Deps
	discoverer *Discoverer
	retry      *RetryScheduler
	log        *zap.Logger
}

// NewOrchestrator validates the wiring up front: every template's strategy
// must have a fetcher, and the stores must be reachable.
func NewOrchestrator(cfg Config, templates []Template, deps Deps) (*Orchestrator, error) {
	if len(templates) == 0 {
		return nil, errors.New("no store templates registered")
	}
	if deps.Catalog == nil {
		return nil, errors.New("catalog store is required")
	}
	if deps.Runs == nil {
		return nil, errors.New("run store is required")
	}
	if deps.Clock == nil {
		return nil, errors.New("clock is required")
	}
	if deps.IDs == nil {
		return nil, errors.New("id generator is required")
	}
	for _, tpl := range templates {
		if tpl.Extractor == nil {
			return nil, fmt.Errorf("store %s has no extractor", tpl.Store)
		}
		if _, ok := deps.Fetchers[tpl.Strategy]; !ok {
			return nil, fmt.Errorf("store %s needs a %q fetcher, none wired", tpl.Store, tpl.Strategy)
		}
	}
	if deps.Emitter == nil {
		deps.Emitter = progress.Discard{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	return &Orchestrator{
		cfg:        cfg,
		templates:  append([]Template(nil), templates...),
		deps:       deps,
		discoverer: NewDiscoverer(deps.Catalog, cfg.DiscoveryDepth, deps.Logger),
		retry:      NewRetryScheduler(cfg.Retry, deps.Logger),
		log:        deps.Logger,
	}, nil
}

// Run executes every store job in scope and always returns a complete
// summary; the error is non-nil only when the scope itself is invalid.
func (o *Orchestrator) Run(ctx context.Context, scope Scope) (Summary, error) {
	templates, err := o.resolveScope(scope)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		StartedAt: o.deps.Clock.Now().UTC(),
		Stores:    make(map[string]StoreSummary, len(templates)),
	}
	o.log.Info("ingestion run starting",
		zap.Int("stores", len(templates)),
		zap.Int("concurrency", o.cfg.Concurrency),
		zap.String("category", scope.Category))

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, o.cfg.Concurrency)
	)
	for _, tpl := range templates {
		wg.Add(1)
		go func(tpl Template) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			store := o.runStore(ctx, tpl, scope.Category)
			mu.Lock()
			summary.Stores[tpl.Store] = store
			mu.Unlock()
		}(tpl)
	}
	wg.Wait()

	summary.FinishedAt = o.deps.Clock.Now().UTC()
	for _, store := range summary.Stores {
		summary.ProductsWritten += store.ProductsWritten
		if store.Status == RunStatusSucceeded {
			summary.StoresSucceeded++
		} else {
			summary.StoresFailed++
		}
	}
	o.log.Info("ingestion run finished",
		zap.Int("products_written", summary.ProductsWritten),
		zap.Int("stores_succeeded", summary.StoresSucceeded),
		zap.Int("stores_failed", summary.StoresFailed),
		zap.Duration("dur", summary.FinishedAt.Sub(summary.StartedAt)))
	return summary, nil
}

// runStore executes one store job end to end, then hands the finished run to
// the exporter and notifier. Their failures are reported, never fatal.
func (o *Orchestrator) runStore(ctx context.Context, tpl Template, category string) StoreSummary {
	writer := NewWriter(o.deps.Catalog, o.deps.Clock, o.log, o.cfg.CollectRecords)
	job := NewStoreJob(tpl, JobConfig{
		Category:       category,
		MaxPages:       o.cfg.MaxPages,
		PageDelay:      o.cfg.PageDelay,
		CategoryDelay:  o.cfg.CategoryDelay,
		ForceDiscovery: o.cfg.ForceDiscovery,
	}, JobDeps{
		Fetcher:    o.deps.Fetchers[tpl.Strategy],
		Writer:     writer,
		Discoverer: o.discoverer,
		Retry:      o.retry,
		Runs:       o.deps.Runs,
		Clock:      o.deps.Clock,
		IDs:        o.deps.IDs,
		Emitter:    o.deps.Emitter,
		Logger:     o.log,
	})
	run := job.Run(ctx)

	postCtx := context.WithoutCancel(ctx)
	if o.deps.Exporter != nil && o.cfg.CollectRecords {
		if records := writer.Records(); len(records) > 0 {
			if err := o.deps.Exporter.ExportRun(postCtx, run, records); err != nil {
				o.log.Warn("run export failed",
					zap.String("store", run.Store), zap.String("run_id", run.ID), zap.Error(err))
				run.Errors = append(run.Errors, fmt.Sprintf("export: %v", err))
			}
		}
	}
	if o.deps.Notifier != nil {
		if err := o.deps.Notifier.NotifyRunCompleted(postCtx, run); err != nil {
			o.log.Warn("run notification failed",
				zap.String("store", run.Store), zap.String("run_id", run.ID), zap.Error(err))
			run.Errors = append(run.Errors, fmt.Sprintf("notify: %v", err))
		}
	}

	return StoreSummary{
		Store:           run.Store,
		RunID:           run.ID,
		Status:          run.Status,
		PagesFetched:    run.PagesFetched,
		ProductsWritten: run.ProductsWritten,
		Errors:          run.Errors,
	}
}

// resolveScope maps the requested store names onto registered templates.
// Unknown names are an invocation error, caught before any job starts.
func (o *Orchestrator) resolveScope(scope Scope) ([]Template, error) {
	if len(scope.Stores) == 0 {
		return o.templates, nil
	}
	byName := make(map[string]Template, len(o.templates))
	for _, tpl := range o.templates {
		byName[tpl.Store] = tpl
	}
	out := make([]Template, 0, len(scope.Stores))
	for _, name := range scope.Stores {
		tpl, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown store %q", name)
		}
		out = append(out, tpl)
	}
	return out, nil
}
