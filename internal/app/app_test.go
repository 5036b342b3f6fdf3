package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ListingSweeper/internal/database"
	"ListingSweeper/internal/logger"
	"ListingSweeper/internal/models"
	"ListingSweeper/internal/scraper/scrapertest"
	"ListingSweeper/internal/store"
	"ListingSweeper/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testApp(t *testing.T) *App {
	t.Helper()
	cfg := &config.Config{Storage: config.StorageConfig{Dir: t.TempDir()}}
	cfg.Timeouts = config.TimeoutsConfig{
		Login: time.Millisecond, Table: time.Millisecond, PageChange: time.Millisecond,
		PageChangeFallback: time.Millisecond, NextSettle: time.Millisecond, ScrollPause: time.Millisecond,
		Confirm: time.Millisecond, Result: time.Millisecond, DialogDetach: time.Millisecond,
		Absence: time.Millisecond, AbsenceFallback: time.Millisecond,
	}
	cfg.ScrollPasses = 1
	cfg.ApplyDefaults()
	return &App{Config: cfg, Log: logger.Nop()}
}

func console() *scrapertest.Console {
	return scrapertest.New(
		[]scrapertest.Row{
			{Title: "A", Code: "货号：1", Marker: "库存紧张", Deletable: true},
			{Title: "B", Code: "货号：2", Status: "在售"},
		},
		[]scrapertest.Row{
			{Title: "C", Code: "货号：3", Status: "已下架", Deletable: true},
		},
	)
}

func TestSweepThenExportThenIndex(t *testing.T) {
	a := testApp(t)
	st, err := store.Open(a.Config.Storage.Dir, nil)
	require.NoError(t, err)

	c := console()
	require.NoError(t, a.Sweep(context.Background(), c, st, false, a.Log))
	assert.NotContains(t, c.Actions, "delete 0")

	records, err := st.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "https://console.test/start", records[0].SourceURL)
	assert.Equal(t, models.Identity{Title: "A", GoodsNo: "1"}, records[0].Identity())

	var buf bytes.Buffer
	require.NoError(t, a.RunExport(&buf))
	assert.FileExists(t, filepath.Join(a.Config.Storage.Dir, "results.xlsx"))
	assert.Contains(t, buf.String(), "Records")

	n, err := a.RunIndex()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	repo, err := database.InitDB(a.IndexPath())
	require.NoError(t, err)
	defer repo.Close()
	count, err := repo.CountFindings(models.FindingFilters{Flag: "taken_down"})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSweepWithDeletion(t *testing.T) {
	a := testApp(t)
	st, err := store.Open(a.Config.Storage.Dir, nil)
	require.NoError(t, err)

	c := console()
	require.NoError(t, a.Sweep(context.Background(), c, st, true, a.Log))

	records, err := st.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, r := range records {
		require.NotNil(t, r.Deleted)
		assert.True(t, *r.Deleted, r.Title)
	}
}

func TestBadPatternIsReported(t *testing.T) {
	a := testApp(t)
	a.Config.Risk.TakenDownPattern = "("
	st, err := store.Open(a.Config.Storage.Dir, nil)
	require.NoError(t, err)

	err = a.Sweep(context.Background(), console(), st, false, a.Log)
	assert.ErrorContains(t, err, "taken_down_pattern")
}

func TestExportWithoutResultsFails(t *testing.T) {
	a := testApp(t)
	assert.ErrorIs(t, a.RunExport(&bytes.Buffer{}), store.ErrNoArtifacts)
}

func TestNewLoadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  dir: "+dir+"\n"), 0o644))

	a, err := New(path)
	require.NoError(t, err)
	assert.Equal(t, dir, a.Config.Storage.Dir)
	assert.Equal(t, filepath.Join(dir, database.IndexFile), a.IndexPath())
}
