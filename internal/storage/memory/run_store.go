package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/adv4nt4ge/grocery-scraper/internal/ingest"
)

// RunStore keeps scrape-run records in a map keyed by run id.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]ingest.ScrapeRun
}

// NewRunStore constructs an empty RunStore.
func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[string]ingest.ScrapeRun)}
}

// StartRun records the initial running row.
func (s *RunStore) StartRun(_ context.Context, run ingest.ScrapeRun) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; exists {
		return errors.New("run already exists")
	}
	s.runs[run.ID] = run
	return nil
}

// FinishRun replaces the row written by StartRun.
func (s *RunStore) FinishRun(_ context.Context, run ingest.ScrapeRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.ID]; !ok {
		return ingest.ErrRunNotFound
	}
	s.runs[run.ID] = run
	return nil
}

// GetRun fetches a run by id.
func (s *RunStore) GetRun(_ context.Context, id string) (ingest.ScrapeRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return ingest.ScrapeRun{}, ingest.ErrRunNotFound
	}
	return run, nil
}

// ListRuns returns the most recent runs, optionally filtered to one store.
func (s *RunStore) ListRuns(_ context.Context, store string, limit int) ([]ingest.ScrapeRun, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var runs []ingest.ScrapeRun
	for _, run := range s.runs {
		if store == "" || run.Store == store {
			runs = append(runs, run)
		}
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
