package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/adv4nt4ge/grocery-scraper/internal/ingest"
)

func TestStartRun(t *testing.T) {
	t.Parallel()

	mock, pool := newMockPool(t)
	store := NewRunStore(pool)

	started := time.Unix(1700000000, 0).UTC()
	run := ingest.ScrapeRun{
		ID:        "run-1",
		Store:     "silpo",
		Status:    ingest.RunStatusRunning,
		StartedAt: started,
	}

	mock.ExpectExec("INSERT INTO scrape_runs").
		WithArgs(run.ID, run.Store, run.Category, "running", run.StartedAt,
			0, 0, 0, []byte("[]")).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.StartRun(context.Background(), run))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFinishRun(t *testing.T) {
	t.Parallel()

	mock, pool := newMockPool(t)
	store := NewRunStore(pool)

	finished := time.Unix(1700003600, 0).UTC()
	run := ingest.ScrapeRun{
		ID:              "run-1",
		Store:           "silpo",
		Status:          ingest.RunStatusSucceeded,
		FinishedAt:      &finished,
		PagesFetched:    7,
		ProductsWritten: 312,
		ProductsDropped: 4,
		Errors:          []string{"http 502 at page 3"},
	}

	mock.ExpectExec("UPDATE scrape_runs").
		WithArgs(run.ID, "succeeded", run.FinishedAt, 7, 312, 4,
			[]byte(`["http 502 at page 3"]`)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.FinishRun(context.Background(), run))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFinishRunUnknownID(t *testing.T) {
	t.Parallel()

	mock, pool := newMockPool(t)
	store := NewRunStore(pool)

	mock.ExpectExec("UPDATE scrape_runs").
		WithArgs("missing", "succeeded", (*time.Time)(nil), 0, 0, 0, []byte("[]")).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.FinishRun(context.Background(), ingest.ScrapeRun{
		ID:     "missing",
		Status: ingest.RunStatusSucceeded,
	})
	require.ErrorIs(t, err, ingest.ErrRunNotFound)
}

func TestGetRun(t *testing.T) {
	t.Parallel()

	mock, pool := newMockPool(t)
	store := NewRunStore(pool)

	started := time.Unix(1700000000, 0).UTC()
	finished := started.Add(time.Hour)
	rows := pgxmock.NewRows([]string{
		"id", "store", "category", "status", "started_at", "finished_at",
		"pages_fetched", "products_written", "products_dropped", "errors",
	}).AddRow("run-1", "varus", "Бакалія", "failed", started, &finished,
		3, 120, 0, []byte(`["render timeout"]`))
	mock.ExpectQuery("SELECT (.+) FROM scrape_runs").
		WithArgs("run-1").
		WillReturnRows(rows)

	run, err := store.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	require.Equal(t, ingest.RunStatusFailed, run.Status)
	require.Equal(t, []string{"render timeout"}, run.Errors)
	require.NotNil(t, run.FinishedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRunNotFound(t *testing.T) {
	t.Parallel()

	mock, pool := newMockPool(t)
	store := NewRunStore(pool)

	mock.ExpectQuery("SELECT (.+) FROM scrape_runs").
		WithArgs("nope").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "store", "category", "status", "started_at", "finished_at",
			"pages_fetched", "products_written", "products_dropped", "errors",
		}))

	_, err := store.GetRun(context.Background(), "nope")
	require.ErrorIs(t, err, ingest.ErrRunNotFound)
}

func TestListRuns(t *testing.T) {
	t.Parallel()

	mock, pool := newMockPool(t)
	store := NewRunStore(pool)

	started := time.Unix(1700000000, 0).UTC()
	rows := pgxmock.NewRows([]string{
		"id", "store", "category", "status", "started_at", "finished_at",
		"pages_fetched", "products_written", "products_dropped", "errors",
	}).
		AddRow("run-2", "atb", "", "running", started.Add(time.Minute), (*time.Time)(nil), 1, 40, 0, []byte("[]")).
		AddRow("run-1", "atb", "", "succeeded", started, (*time.Time)(nil), 5, 200, 2, []byte("[]"))
	mock.ExpectQuery("SELECT (.+) FROM scrape_runs").
		WithArgs("atb", 10).
		WillReturnRows(rows)

	runs, err := store.ListRuns(context.Background(), "atb", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "run-2", runs[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListRunsDefaultLimit(t *testing.T) {
	t.Parallel()

	mock, pool := newMockPool(t)
	store := NewRunStore(pool)

	mock.ExpectQuery("SELECT (.+) FROM scrape_runs").
		WithArgs("", 50).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "store", "category", "status", "started_at", "finished_at",
			"pages_fetched", "products_written", "products_dropped", "errors",
		}))

	runs, err := store.ListRuns(context.Background(), "", 0)
	require.NoError(t, err)
	require.Empty(t, runs)
	require.NoError(t, mock.ExpectationsWereMet())
}
