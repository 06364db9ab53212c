package ingest

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Writer normalizes, validates, and idempotently upserts product records.
// One Writer serves one store run. Candidates that fail validation are
// counted and dropped, never surfaced as errors: a broken tile must not
// sink the rest of the page.
type Writer struct {
	catalog CatalogStore
	clock   Clock
	log     *zap.Logger
	collect bool

	mu      sync.Mutex
	written int
	dropped int
	records []ProductRecord
}

// NewWriter builds a Writer. With collect set, every written record is
// retained for the run's archive export.
func NewWriter(catalog CatalogStore, clock Clock, logger *zap.Logger, collect bool) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{catalog: catalog, clock: clock, log: logger, collect: collect}
}

// Write normalizes one candidate and upserts it. scraped_at is always
// advanced to the write time so downstream freshness checks hold.
func (w *Writer) Write(ctx context.Context, rec ProductRecord) error {
	if err := Normalize(&rec); err != nil {
		w.mu.Lock()
		w.dropped++
		w.mu.Unlock()
		w.log.Debug("dropping candidate record",
			zap.String("store", rec.Store), zap.String("url", rec.URL), zap.Error(err))
		return nil
	}
	rec.ScrapedAt = w.clock.Now().UTC()
	if err := w.catalog.UpsertProduct(ctx, rec); err != nil {
		return fmt.Errorf("upsert product %s/%s: %w", rec.Store, rec.ExternalID, err)
	}
	w.mu.Lock()
	w.written++
	if w.collect {
		w.records = append(w.records, rec)
	}
	w.mu.Unlock()
	return nil
}

// Stats reports how many records were written and dropped so far.
func (w *Writer) Stats() (written, dropped int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written, w.dropped
}

// Records returns a copy of the collected records, nil unless collection was
// enabled.
func (w *Writer) Records() []ProductRecord {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.records == nil {
		return nil
	}
	return append([]ProductRecord(nil), w.records...)
}
