// Package notify announces finished scrape runs to downstream consumers.
package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/adv4nt4ge/grocery-scraper/internal/ingest"
)

// Publisher delivers one payload to a named topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// runCompletedEvent is the payload published per finished run.
type runCompletedEvent struct {
	RunID           string     `json:"run_id"`
	Store           string     `json:"store"`
	Category        string     `json:"category,omitempty"`
	Status          string     `json:"status"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	PagesFetched    int        `json:"pages_fetched"`
	ProductsWritten int        `json:"products_written"`
	ProductsDropped int        `json:"products_dropped"`
}

// Notifier publishes a run-completed event for every finished run.
type Notifier struct {
	pub   Publisher
	topic string
	log   *zap.Logger
}

// NewNotifier builds a Notifier on the given publisher.
func NewNotifier(pub Publisher, topic string, logger *zap.Logger) (*Notifier, error) {
	if pub == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{pub: pub, topic: topic, log: logger}, nil
}

// NotifyRunCompleted implements ingest.RunNotifier.
func (n *Notifier) NotifyRunCompleted(ctx context.Context, run ingest.ScrapeRun) error {
	event := runCompletedEvent{
		RunID:           run.ID,
		Store:           run.Store,
		Category:        run.Category,
		Status:          string(run.Status),
		StartedAt:       run.StartedAt,
		FinishedAt:      run.FinishedAt,
		PagesFetched:    run.PagesFetched,
		ProductsWritten: run.ProductsWritten,
		ProductsDropped: run.ProductsDropped,
	}
	id, err := n.pub.Publish(ctx, n.topic, event)
	if err != nil {
		return fmt.Errorf("publish run completed: %w", err)
	}
	n.log.Debug("run completion published",
		zap.String("store", run.Store),
		zap.String("run_id", run.ID),
		zap.String("message_id", id))
	return nil
}
