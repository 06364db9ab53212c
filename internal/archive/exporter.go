// Package archive persists finished-run exports to object storage.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/adv4nt4ge/grocery-scraper/internal/ingest"
)

// ObjectStore writes one object and returns its URI.
type ObjectStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// runDocument is the export payload written per finished run.
type runDocument struct {
	RunID      string                 `json:"run_id"`
	Store      string                 `json:"store"`
	Category   string                 `json:"category,omitempty"`
	Status     string                 `json:"status"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt *time.Time             `json:"finished_at,omitempty"`
	Products   []ingest.ProductRecord `json:"products"`
}

// Exporter archives each finished run as one JSON object under
// exports/<store>/<run_id>.json.
type Exporter struct {
	objects ObjectStore
	log     *zap.Logger
}

// NewExporter builds an Exporter on the given object store.
func NewExporter(objects ObjectStore, logger *zap.Logger) (*Exporter, error) {
	if objects == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{objects: objects, log: logger}, nil
}

// ExportRun implements ingest.RunExporter.
func (e *Exporter) ExportRun(ctx context.Context, run ingest.ScrapeRun, records []ingest.ProductRecord) error {
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	doc := runDocument{
		RunID:      run.ID,
		Store:      run.Store,
		Category:   run.Category,
		Status:     string(run.Status),
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Products:   records,
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal run export: %w", err)
	}
	path := ExportPath(run.Store, run.ID)
	uri, err := e.objects.PutObject(ctx, path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("put run export: %w", err)
	}
	e.log.Info("run exported",
		zap.String("store", run.Store),
		zap.String("run_id", run.ID),
		zap.String("uri", uri),
		zap.Int("products", len(records)))
	return nil
}

// ExportPath is the object key for one run export.
func ExportPath(store, runID string) string {
	return fmt.Sprintf("exports/%s/%s.json", store, runID)
}
