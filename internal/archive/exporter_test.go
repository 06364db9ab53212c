package archive

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adv4nt4ge/grocery-scraper/internal/ingest"
)

func TestExportRunWritesDocument(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	exporter, err := NewExporter(store, nil)
	require.NoError(t, err)

	started := time.Unix(1700000000, 0).UTC()
	finished := started.Add(time.Minute)
	run := ingest.ScrapeRun{
		ID:         "run-7",
		Store:      "silpo",
		Category:   "Молочні продукти",
		Status:     ingest.RunStatusSucceeded,
		StartedAt:  started,
		FinishedAt: &finished,
	}
	records := []ingest.ProductRecord{
		{Store: "silpo", ExternalID: "1", Name: "Кефір", Price: 38.9, ScrapedAt: started},
	}

	require.NoError(t, exporter.ExportRun(context.Background(), run, records))

	payload, ok := store.Object("exports/silpo/run-7.json")
	require.True(t, ok, "export object missing")

	var doc struct {
		RunID    string                 `json:"run_id"`
		Store    string                 `json:"store"`
		Category string                 `json:"category"`
		Status   string                 `json:"status"`
		Products []ingest.ProductRecord `json:"products"`
	}
	require.NoError(t, json.Unmarshal(payload, &doc))
	assert.Equal(t, "run-7", doc.RunID)
	assert.Equal(t, "succeeded", doc.Status)
	require.Len(t, doc.Products, 1)
	assert.Equal(t, "Кефір", doc.Products[0].Name)
}

func TestExportRunRequiresID(t *testing.T) {
	t.Parallel()

	exporter, err := NewExporter(NewMemoryStore(), nil)
	require.NoError(t, err)

	err = exporter.ExportRun(context.Background(), ingest.ScrapeRun{}, nil)
	require.Error(t, err)
}

func TestNewExporterRequiresStore(t *testing.T) {
	t.Parallel()

	_, err := NewExporter(nil, nil)
	require.Error(t, err)
}

func TestLocalStorePutObject(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)

	uri, err := store.PutObject(context.Background(),
		ExportPath("atb", "run-1"), "application/json", strings.NewReader(`{"ok":true}`))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "file://"))

	data, err := os.ReadFile(filepath.Join(dir, "exports", "atb", "run-1.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(data))
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	t.Parallel()

	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.PutObject(context.Background(), "../escape.json", "", strings.NewReader("x"))
	require.Error(t, err)
}

func TestNewLocalStoreCreatesBaseDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "exports")
	_, err := NewLocalStore(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
