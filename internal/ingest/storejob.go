package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/adv4nt4ge/grocery-scraper/internal/progress"
)

// JobConfig bounds one store job.
type JobConfig struct {
	// Category narrows the job to one named category when non-empty.
	Category string
	// MaxPages stops pagination cooperatively after this many pages per
	// category; 0 means unbounded.
	MaxPages int
	// PageDelay separates consecutive page fetches on the happy path.
	PageDelay time.Duration
	// CategoryDelay separates consecutive categories.
	CategoryDelay time.Duration
	// ForceDiscovery ignores the cached category tree.
	ForceDiscovery bool
}

// JobDeps carries the collaborators one StoreJob needs.
type JobDeps struct {
	Fetcher    Fetcher
	Writer     *Writer
	Discoverer *Discoverer
	Retry      *RetryScheduler
	Runs       RunStore
	Clock      Clock
	IDs        IDGenerator
	Emitter    progress.Emitter
	Logger     *zap.Logger
}

// StoreJob runs one store's pipeline: resolve categories, then paginate each
// category sequentially through fetch → extract → write. Page failures are
// terminal for their category only; the job carries on with the next one.
type StoreJob struct {
	tpl   Template
	cfg   JobConfig
	deps  JobDeps
	log   *zap.Logger
	state JobState
}

// NewStoreJob wires a job for one store.
func NewStoreJob(tpl Template, cfg JobConfig, deps JobDeps) *StoreJob {
	if deps.Emitter == nil {
		deps.Emitter = progress.Discard{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreJob{
		tpl:  tpl,
		cfg:  cfg,
		deps: deps,
		log:  logger.With(zap.String("store", tpl.Store)),
	}
}

// State exposes the current pipeline phase.
func (j *StoreJob) State() JobState { return j.state }

// Run executes the job and always returns a finalized ScrapeRun; failures
// are carried in the run's status and error list, never panics or partial
// audit records.
func (j *StoreJob) Run(ctx context.Context) ScrapeRun {
	started := j.deps.Clock.Now().UTC()
	run := ScrapeRun{
		Store:     j.tpl.Store,
		Category:  j.cfg.Category,
		Status:    RunStatusRunning,
		StartedAt: started,
	}
	id, err := j.deps.IDs.NewID()
	if err != nil {
		run.Errors = append(run.Errors, fmt.Sprintf("mint run id: %v", err))
		return j.finish(ctx, run, RunStatusFailed)
	}
	run.ID = id

	if err := j.deps.Runs.StartRun(ctx, run); err != nil {
		j.log.Error("append run record", zap.String("run_id", run.ID), zap.Error(err))
		run.Errors = append(run.Errors, fmt.Sprintf("append run record: %v", err))
	}
	j.emit(progress.Event{RunID: run.ID, Stage: progress.StageRunStart})
	j.log.Info("store run started", zap.String("run_id", run.ID))

	j.warmup(ctx)

	j.setState(StateDiscovering)
	cats, err := j.deps.Discoverer.Discover(ctx, j.tpl, j.deps.Fetcher, j.cfg.ForceDiscovery)
	if err != nil {
		j.setState(StateFailed)
		run.Errors = append(run.Errors, fmt.Sprintf("%s: %v", ErrorClass(err), err))
		return j.finish(ctx, run, RunStatusFailed)
	}
	if j.cfg.Category != "" {
		cats = filterByName(cats, j.cfg.Category)
		if len(cats) == 0 {
			run.Errors = append(run.Errors, fmt.Sprintf("category %q not found for store %s", j.cfg.Category, j.tpl.Store))
			return j.finish(ctx, run, RunStatusFailed)
		}
	}

	failed := 0
	for i, cat := range cats {
		if err := ctx.Err(); err != nil {
			run.Errors = append(run.Errors, fmt.Sprintf("canceled: %v", err))
			return j.finish(ctx, run, RunStatusFailed)
		}
		if i > 0 {
			if err := j.pause(ctx, j.cfg.CategoryDelay); err != nil {
				run.Errors = append(run.Errors, fmt.Sprintf("canceled: %v", err))
				return j.finish(ctx, run, RunStatusFailed)
			}
		}
		if err := j.runCategory(ctx, &run, cat); err != nil {
			failed++
			run.Errors = append(run.Errors, fmt.Sprintf("%s [%s]: %v", cat.Name, ErrorClass(err), err))
			j.log.Warn("category failed, continuing with siblings",
				zap.String("category", cat.Name),
				zap.String("class", ErrorClass(err)),
				zap.Error(err))
		}
	}

	status := RunStatusSucceeded
	if len(cats) > 0 && failed == len(cats) {
		status = RunStatusFailed
	}
	return j.finish(ctx, run, status)
}

// runCategory drives the per-category state machine. The returned error is
// terminal for this category; nil means Exhausted.
func (j *StoreJob) runCategory(ctx context.Context, run *ScrapeRun, cat Category) error {
	log := j.log.With(zap.String("category", cat.Name))
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			j.setState(StateFailed)
			return err
		}
		if j.cfg.MaxPages > 0 && page > j.cfg.MaxPages {
			log.Debug("page budget reached", zap.Int("max_pages", j.cfg.MaxPages))
			j.setState(StateExhausted)
			return nil
		}

		j.setState(StatePaginating)
		pageURL, err := PageURL(cat.URL, j.tpl.PageParam, page)
		if err != nil {
			j.setState(StateFailed)
			return err
		}

		var res ExtractResult
		start := j.deps.Clock.Now()
		ferr := j.deps.Retry.Do(ctx, func(ctx context.Context) error {
			snap, err := j.deps.Fetcher.Fetch(ctx, FetchRequest{
				Store:        j.tpl.Store,
				URL:          pageURL,
				Page:         page,
				WaitSelector: j.tpl.WaitSelector,
				HasMoreProbe: j.tpl.HasMoreProbe,
				Headers:      j.tpl.Headers,
				Cookies:      j.tpl.Cookies,
				BotProtected: j.tpl.BotProtected,
			})
			if err != nil {
				return err
			}
			j.setState(StateExtracting)
			out, err := j.tpl.Extractor.Extract(snap, cat)
			if err != nil {
				return fmt.Errorf("extract %s: %w", pageURL, err)
			}
			res = out
			return nil
		})
		dur := j.deps.Clock.Now().Sub(start)
		if ferr != nil {
			j.setState(StateFailed)
			j.emit(progress.Event{
				RunID: run.ID, Stage: progress.StagePageDone, Category: cat.Name,
				Page: page, Class: ErrorClass(ferr), Dur: dur,
			})
			return ferr
		}
		run.PagesFetched++
		j.emit(progress.Event{
			RunID: run.ID, Stage: progress.StagePageDone, Category: cat.Name,
			Page: page, Class: "ok", Dur: dur,
		})

		// Sub-category links surfaced by the listing are persisted for
		// future runs; failures here never stop the pipeline.
		for _, sub := range res.Categories {
			if sub.Store == "" {
				sub.Store = j.tpl.Store
			}
			if err := j.deps.Writer.catalog.UpsertCategory(ctx, sub); err != nil {
				log.Warn("persist discovered category", zap.String("name", sub.Name), zap.Error(err))
			}
		}

		j.setState(StateWriting)
		before, _ := j.deps.Writer.Stats()
		for _, rec := range res.Products {
			if rec.Store == "" {
				rec.Store = j.tpl.Store
			}
			if rec.Category == "" {
				rec.Category = cat.Name
			}
			if err := j.deps.Writer.Write(ctx, rec); err != nil {
				j.setState(StateFailed)
				return err
			}
		}
		after, _ := j.deps.Writer.Stats()
		if delta := after - before; delta > 0 {
			j.emit(progress.Event{
				RunID: run.ID, Stage: progress.StageWrite, Category: cat.Name,
				Products: delta,
			})
		}

		// Zero products after a clean fetch means the category ran out,
		// as does the extractor reporting no further pages.
		if len(res.Products) == 0 || !res.HasMore {
			j.setState(StateExhausted)
			return nil
		}
		j.setState(StateNextPage)
		if err := j.pause(ctx, j.cfg.PageDelay); err != nil {
			j.setState(StateFailed)
			return err
		}
	}
}

// warmup fetches the template's session-establishment URL once, best effort.
func (j *StoreJob) warmup(ctx context.Context) {
	if j.tpl.WarmupURL == "" {
		return
	}
	_, err := j.deps.Fetcher.Fetch(ctx, FetchRequest{
		Store:        j.tpl.Store,
		URL:          j.tpl.WarmupURL,
		Page:         1,
		Headers:      j.tpl.Headers,
		Cookies:      j.tpl.Cookies,
		BotProtected: j.tpl.BotProtected,
	})
	if err != nil {
		j.log.Warn("session warmup failed", zap.String("url", j.tpl.WarmupURL), zap.Error(err))
	}
}

// finish finalizes the audit record exactly once and emits the terminal
// progress event. Finalization survives a canceled run context.
func (j *StoreJob) finish(ctx context.Context, run ScrapeRun, status RunStatus) ScrapeRun {
	written, dropped := j.deps.Writer.Stats()
	run.ProductsWritten = written
	run.ProductsDropped = dropped
	now := j.deps.Clock.Now().UTC()
	run.FinishedAt = &now
	run.Status = status

	finishCtx := context.WithoutCancel(ctx)
	if err := j.deps.Runs.FinishRun(finishCtx, run); err != nil {
		j.log.Error("finalize run record", zap.String("run_id", run.ID), zap.Error(err))
	}

	stage := progress.StageRunDone
	if status == RunStatusFailed {
		stage = progress.StageRunError
	}
	j.emit(progress.Event{
		RunID: run.ID, Stage: stage, Products: written,
		Dur: now.Sub(run.StartedAt),
	})
	j.log.Info("store run finished",
		zap.String("run_id", run.ID),
		zap.String("status", string(status)),
		zap.Int("pages_fetched", run.PagesFetched),
		zap.Int("products_written", written),
		zap.Int("products_dropped", dropped),
		zap.Int("errors", len(run.Errors)))
	return run
}

func (j *StoreJob) setState(s JobState) {
	j.state = s
}

// pause sleeps cooperatively, returning early only on cancellation.
func (j *StoreJob) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (j *StoreJob) emit(evt progress.Event) {
	evt.Store = j.tpl.Store
	evt.TS = j.deps.Clock.Now().UTC()
	j.deps.Emitter.Emit(evt)
}

// filterByName copies rather than filtering in place: the input may be a
// slice the catalog store hands out to other callers too.
func filterByName(cats []Category, name string) []Category {
	out := make([]Category, 0, len(cats))
	for _, cat := range cats {
		if cat.Name == name {
			out = append(out, cat)
		}
	}
	return out
}
