// Package sinks provides progress.Sink implementations for logs and metrics.
package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/adv4nt4ge/grocery-scraper/internal/progress"
)

// LogSink mirrors the progress stream into structured logs. Handy during
// development and when chasing a misbehaving storefront.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("run_id", evt.RunID),
			zap.String("stage", string(evt.Stage)),
			zap.String("store", evt.Store),
		}
		if evt.Category != "" {
			fields = append(fields, zap.String("category", evt.Category))
		}
		if evt.Page > 0 {
			fields = append(fields, zap.Int("page", evt.Page))
		}
		if evt.Products > 0 {
			fields = append(fields, zap.Int("products", evt.Products))
		}
		if evt.Class != "" {
			fields = append(fields, zap.String("class", evt.Class))
		}
		if evt.Dur > 0 {
			fields = append(fields, zap.Duration("dur", evt.Dur))
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}
		s.logger.Info("scrape progress", fields...)
	}
	return nil
}

// Close implements the Sink interface; nothing to release.
func (s *LogSink) Close(context.Context) error {
	return nil
}
