package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/adv4nt4ge/grocery-scraper/internal/ingest"
)

// RunStore persists scrape-run audit records in Postgres.
type RunStore struct {
	db db
}

// NewRunStore builds a RunStore on the shared pool.
func NewRunStore(p *Pool) *RunStore {
	return &RunStore{db: p.db}
}

// StartRun inserts the initial running row.
func (s *RunStore) StartRun(ctx context.Context, run ingest.ScrapeRun) error {
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	errsJSON, err := marshalErrors(run.Errors)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
INSERT INTO scrape_runs (
	id, store, category, status, started_at,
	pages_fetched, products_written, products_dropped, errors
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		run.ID, run.Store, run.Category, string(run.Status), run.StartedAt,
		run.PagesFetched, run.ProductsWritten, run.ProductsDropped, errsJSON,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun finalizes the row written by StartRun.
func (s *RunStore) FinishRun(ctx context.Context, run ingest.ScrapeRun) error {
	errsJSON, err := marshalErrors(run.Errors)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `
UPDATE scrape_runs SET
	status = $2,
	finished_at = $3,
	pages_fetched = $4,
	products_written = $5,
	products_dropped = $6,
	errors = $7
WHERE id = $1`,
		run.ID, string(run.Status), run.FinishedAt,
		run.PagesFetched, run.ProductsWritten, run.ProductsDropped, errsJSON,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ingest.ErrRunNotFound
	}
	return nil
}

const selectRunSQL = `
SELECT id, store, category, status, started_at, finished_at,
	pages_fetched, products_written, products_dropped, errors
FROM scrape_runs`

// GetRun returns one run by id.
func (s *RunStore) GetRun(ctx context.Context, id string) (ingest.ScrapeRun, error) {
	row := s.db.QueryRow(ctx, selectRunSQL+` WHERE id = $1`, id)
	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ingest.ScrapeRun{}, ingest.ErrRunNotFound
	}
	if err != nil {
		return ingest.ScrapeRun{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, optionally filtered to one store.
func (s *RunStore) ListRuns(ctx context.Context, store string, limit int) ([]ingest.ScrapeRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx,
		selectRunSQL+` WHERE ($1 = '' OR store = $1) ORDER BY started_at DESC LIMIT $2`,
		store, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []ingest.ScrapeRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

func scanRun(row pgx.Row) (ingest.ScrapeRun, error) {
	var (
		run      ingest.ScrapeRun
		status   string
		errsJSON []byte
	)
	err := row.Scan(
		&run.ID, &run.Store, &run.Category, &status, &run.StartedAt, &run.FinishedAt,
		&run.PagesFetched, &run.ProductsWritten, &run.ProductsDropped, &errsJSON,
	)
	if err != nil {
		return ingest.ScrapeRun{}, err
	}
	run.Status = ingest.RunStatus(status)
	if len(errsJSON) > 0 {
		if err := json.Unmarshal(errsJSON, &run.Errors); err != nil {
			return ingest.ScrapeRun{}, fmt.Errorf("decode run errors: %w", err)
		}
	}
	return run, nil
}

func marshalErrors(errs []string) ([]byte, error) {
	if errs == nil {
		errs = []string{}
	}
	out, err := json.Marshal(errs)
	if err != nil {
		return nil, fmt.Errorf("marshal run errors: %w", err)
	}
	return out, nil
}
