// Package pipeline ties the navigator, the extractor and the result store
// into one sweep over the listing console.
package pipeline

import (
	"context"
	"fmt"

	"ListingSweeper/internal/extractor"
	"ListingSweeper/internal/logger"
	"ListingSweeper/internal/models"
	"ListingSweeper/internal/navigator"
	"ListingSweeper/internal/store"
)

// Scanner extracts the at-risk rows of the page shown.
type Scanner interface {
	Scan(ctx context.Context, sourceURL string, performDelete bool) ([]models.ListingRecord, error)
}

// Walker visits pages; see navigator.Navigator.
type Walker interface {
	Run(ctx context.Context, visit navigator.VisitFunc) error
}

// Sink persists a page's batch; see store.Store.
type Sink interface {
	Append(batch []models.ListingRecord) error
}

// Driver runs one sweep.
type Driver struct {
	Walker    Walker
	Scanner   Scanner
	Sink      Sink
	SourceURL string
	Delete    bool
	Log       *logger.Logger
}

// Result reports what a sweep visited. Record totals come from reading the
// store back, not from this struct.
type Result struct {
	Pages    int
	Appended int
}

// Run walks every page, scanning it and appending its batch before moving on,
// so a crash after N pages leaves N pages on disk.
func (d *Driver) Run(ctx context.Context) (Result, error) {
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}

	var res Result
	err := d.Walker.Run(ctx, func(ctx context.Context, page navigator.Page) error {
		batch, scanErr := d.Scanner.Scan(ctx, d.SourceURL, d.Delete)
		// Rows read before an interrupted scan may already be deleted on the
		// console, so they are persisted either way.
		if len(batch) > 0 {
			if err := d.Sink.Append(batch); err != nil {
				return fmt.Errorf("persisting page %d: %w", page.Current, err)
			}
			res.Appended += len(batch)
		}
		if scanErr != nil {
			return fmt.Errorf("scanning page %d: %w", page.Current, scanErr)
		}
		res.Pages++
		log.LogInfof("Page %d: %d at-risk listings saved", page.Current, len(batch))
		return nil
	})
	return res, err
}

// Components are the parts New wires together.
type Components struct {
	Navigator *navigator.Navigator
	Extractor *extractor.Extractor
	Store     *store.Store
}

// New builds a driver from concrete components.
func New(c Components, sourceURL string, performDelete bool, log *logger.Logger) *Driver {
	return &Driver{
		Walker:    c.Navigator,
		Scanner:   c.Extractor,
		Sink:      c.Store,
		SourceURL: sourceURL,
		Delete:    performDelete,
		Log:       log,
	}
}
