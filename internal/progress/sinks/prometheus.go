package sinks

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/adv4nt4ge/grocery-scraper/internal/progress"
)

// PrometheusSink exports scrape progress as Prometheus metrics. It owns the
// run lifecycle collectors and the per-store page/product counters.
type PrometheusSink struct {
	runsStarted   prometheus.Counter
	runsCompleted *prometheus.CounterVec
	runsRunning   prometheus.Gauge
	runDuration   *prometheus.HistogramVec

	pagesFetched    *prometheus.CounterVec
	pageDuration    *prometheus.HistogramVec
	productsWritten *prometheus.CounterVec

	tracker *runTracker
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grocery_runs_started_total",
			Help: "Store runs started.",
		}),
		runsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grocery_runs_completed_total",
			Help: "Store runs completed, partitioned by result.",
		}, []string{"result"}),
		runsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "grocery_runs_running",
			Help: "Store runs currently in flight.",
		}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grocery_run_duration_seconds",
			Help:    "Wall time per completed store run.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}, []string{"result"}),
		pagesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grocery_pages_fetched_total",
			Help: "Listing pages fetched, partitioned by store and outcome class.",
		}, []string{"store", "class"}),
		pageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grocery_page_duration_seconds",
			Help:    "Fetch+extract duration per page, partitioned by store.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"store"}),
		productsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grocery_products_written_total",
			Help: "Normalized product records written, partitioned by store.",
		}, []string{"store"}),
		tracker: newRunTracker(),
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.runsCompleted,
		s.runsRunning,
		s.runDuration,
		s.pagesFetched,
		s.pageDuration,
		s.productsWritten,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from the batch. Safe for concurrent use.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageRunStart:
		s.runsStarted.Inc()
		if s.tracker.start(evt.RunID) {
			s.runsRunning.Inc()
		}
	case progress.StageRunDone:
		s.completeRun(evt, "success")
	case progress.StageRunError:
		s.completeRun(evt, "error")
	case progress.StagePageDone:
		s.pagesFetched.WithLabelValues(evt.Store, evt.Class).Inc()
		if evt.Dur > 0 {
			s.pageDuration.WithLabelValues(evt.Store).Observe(evt.Dur.Seconds())
		}
	case progress.StageWrite:
		s.productsWritten.WithLabelValues(evt.Store).Add(float64(evt.Products))
	}
}

func (s *PrometheusSink) completeRun(evt progress.Event, result string) {
	s.runsCompleted.WithLabelValues(result).Inc()
	if evt.Dur > 0 {
		s.runDuration.WithLabelValues(result).Observe(evt.Dur.Seconds())
	}
	if s.tracker.complete(evt.RunID) {
		s.runsRunning.Dec()
	}
}

// Close implements the Sink interface; collectors stay registered.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

// runTracker deduplicates start/complete transitions so the running gauge
// survives replayed or reordered events.
type runTracker struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func newRunTracker() *runTracker {
	return &runTracker{active: make(map[string]struct{})}
}

func (t *runTracker) start(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.active[id]; ok {
		return false
	}
	t.active[id] = struct{}{}
	return true
}

func (t *runTracker) complete(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.active[id]; !ok {
		return false
	}
	delete(t.active, id)
	return true
}
