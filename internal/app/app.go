package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"

	"ListingSweeper/internal/database"
	"ListingSweeper/internal/export"
	"ListingSweeper/internal/extractor"
	"ListingSweeper/internal/logger"
	"ListingSweeper/internal/mutation"
	"ListingSweeper/internal/navigator"
	"ListingSweeper/internal/pipeline"
	"ListingSweeper/internal/scraper"
	"ListingSweeper/internal/scraper/erp"
	"ListingSweeper/internal/store"
	"ListingSweeper/pkg/config"

	"github.com/google/uuid"
)

// App is the main application structure holding all dependencies.
type App struct {
	Config *config.Config
	Log    *logger.Logger
}

// New loads the config at path and returns an application instance.
func New(path string) (*App, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return &App{Config: cfg, Log: logger.New("sweeper")}, nil
}

// IndexPath is where RunIndex writes the findings index.
func (a *App) IndexPath() string {
	return filepath.Join(a.Config.Storage.Dir, database.IndexFile)
}

// RunSweep opens the goods console in a browser and sweeps it.
func (a *App) RunSweep(ctx context.Context, performDelete bool) error {
	log := a.Log.With("run", uuid.NewString())
	log.LogInfof("--- Starting sweep (delete=%t) ---", performDelete)

	st, err := store.Open(a.Config.Storage.Dir, log)
	if err != nil {
		return err
	}

	session := erp.NewSession(a.Config, log)
	defer session.Close()
	console, err := session.Open(ctx)
	if err != nil {
		return err
	}
	return a.Sweep(ctx, console, st, performDelete, log)
}

// Sweep runs the pipeline over an already opened console and logs the run
// summary read back from st.
func (a *App) Sweep(ctx context.Context, console scraper.ListingConsole, st *store.Store, performDelete bool, log *logger.Logger) error {
	driver, err := a.buildPipeline(console, st, performDelete, log)
	if err != nil {
		return err
	}

	res, runErr := driver.Run(ctx)
	log.LogInfof("Visited %d pages, saved %d at-risk listings", res.Pages, res.Appended)

	records, err := st.ReadAll()
	if err != nil {
		log.LogError("Reading results back failed", err)
	} else {
		s := store.Summarize(records)
		log.Info().
			Int("records", s.Records).
			Int("tight", s.Tight).
			Int("taken_down", s.TakenDown).
			Int("deleted", s.Deleted).
			Int("delete_failed", s.DeleteFailed).
			Msg("Sweep summary")
	}
	if runErr != nil {
		return fmt.Errorf("sweep stopped: %w", runErr)
	}
	log.LogInfof("--- Sweep finished ---")
	return nil
}

func (a *App) buildPipeline(console scraper.ListingConsole, st *store.Store, performDelete bool, log *logger.Logger) (*pipeline.Driver, error) {
	cfg := a.Config
	takenDown, err := regexp.Compile(cfg.Risk.TakenDownPattern)
	if err != nil {
		return nil, fmt.Errorf("risk.taken_down_pattern: %w", err)
	}
	removed, err := regexp.Compile(cfg.Risk.RemovedPattern)
	if err != nil {
		return nil, fmt.Errorf("risk.removed_pattern: %w", err)
	}

	t := cfg.Timeouts
	executor := mutation.New(console, mutation.Timeouts{
		Confirm:         t.Confirm,
		Result:          t.Result,
		DialogDetach:    t.DialogDetach,
		Absence:         t.Absence,
		AbsenceFallback: t.AbsenceFallback,
	}, removed, log)

	ext := extractor.New(console, executor, extractor.Options{
		TightMarker:  cfg.Risk.TightMarker,
		TakenDown:    takenDown,
		ScrollPasses: cfg.ScrollPasses,
		ScrollDelta:  cfg.ScrollDelta,
		ScrollPause:  t.ScrollPause,
		TableTimeout: t.Table,
	}, log)

	nav := navigator.New(console, navigator.Options{
		NextSettle:         t.NextSettle,
		PageChange:         t.PageChange,
		PageChangeFallback: t.PageChangeFallback,
	}, log)

	return pipeline.New(pipeline.Components{Navigator: nav, Extractor: ext, Store: st}, console.SourceURL(), performDelete, log), nil
}

// RunExport writes the spreadsheet and prints the summary table to w.
func (a *App) RunExport(w io.Writer) error {
	out, records, err := export.Run(a.Config.Storage.Dir)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	a.Log.LogInfof("Wrote Excel to %s", out)
	export.RenderSummary(w, store.Summarize(records))
	return nil
}

// RunIndex rebuilds the findings index from the stored results and returns
// the number of findings indexed.
func (a *App) RunIndex() (int, error) {
	st, err := store.Open(a.Config.Storage.Dir, a.Log)
	if err != nil {
		return 0, err
	}
	records, err := st.ReadAll()
	if err != nil {
		return 0, err
	}

	repo, err := database.InitDB(a.IndexPath())
	if err != nil {
		return 0, err
	}
	defer repo.Close()
	if err := repo.ReplaceFindings(records); err != nil {
		return 0, fmt.Errorf("rebuilding findings index: %w", err)
	}
	a.Log.LogInfof("Indexed %d findings into %s", len(records), a.IndexPath())
	return len(records), nil
}
