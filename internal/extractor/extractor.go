// Package extractor scans one page of the listing console and turns its
// at-risk rows into records.
package extractor

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"ListingSweeper/internal/logger"
	"ListingSweeper/internal/models"
	"ListingSweeper/internal/scraper"
	"ListingSweeper/utils"
)

// Deleter removes a row; see mutation.Executor.
type Deleter interface {
	Delete(ctx context.Context, row int, id models.Identity) bool
}

// Options tunes a scan.
type Options struct {
	TightMarker  string
	TakenDown    *regexp.Regexp
	ScrollPasses int
	ScrollDelta  float64
	ScrollPause  time.Duration
	TableTimeout time.Duration
}

// Extractor reads rows through a scraper.ListingConsole.
type Extractor struct {
	console scraper.ListingConsole
	deleter Deleter
	opts    Options
	log     *logger.Logger
}

func New(console scraper.ListingConsole, deleter Deleter, opts Options, log *logger.Logger) *Extractor {
	if log == nil {
		log = logger.Nop()
	}
	return &Extractor{console: console, deleter: deleter, opts: opts, log: log}
}

// Classify applies the risk predicate to a row's marker and status text.
func Classify(tight bool, status string, takenDown *regexp.Regexp) models.Flags {
	return models.Flags{
		TightInventory: tight,
		TakenDown:      takenDown != nil && takenDown.MatchString(status),
	}
}

// Scan returns the at-risk rows of the page currently shown, visited from the
// last row to the first. Deleting a row only shifts the rows below it, so
// every index still to be visited stays valid.
func (e *Extractor) Scan(ctx context.Context, sourceURL string, performDelete bool) ([]models.ListingRecord, error) {
	if err := e.console.WaitTable(ctx, e.opts.TableTimeout); err != nil {
		return nil, fmt.Errorf("waiting for listing table: %w", err)
	}

	e.materializeRows(ctx)

	count, err := e.console.RowCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting rows: %w", err)
	}

	var records []models.ListingRecord
	for i := count - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		rec, ok := e.scanRow(ctx, i, sourceURL, performDelete)
		if ok {
			records = append(records, rec)
		}
	}
	e.log.LogDebugf("scanned %d rows, %d at risk", count, len(records))
	return records, nil
}

// materializeRows scrolls a few times so lazily rendered rows get attached.
// There is no signal for "all rows loaded", so this is best effort.
func (e *Extractor) materializeRows(ctx context.Context) {
	for i := 0; i < e.opts.ScrollPasses; i++ {
		if err := e.console.ScrollBy(ctx, e.opts.ScrollDelta); err != nil {
			e.log.LogDebugf("scroll pass %d failed: %v", i+1, err)
		}
		if err := utils.Sleep(ctx, e.opts.ScrollPause); err != nil {
			return
		}
	}
}

func (e *Extractor) scanRow(ctx context.Context, i int, sourceURL string, performDelete bool) (models.ListingRecord, bool) {
	tight, err := e.console.HasMarker(ctx, i, e.opts.TightMarker)
	if err != nil {
		e.log.LogDebugf("row %d: marker check failed: %v", i, err)
	}
	status, _ := e.fieldText(ctx, i, scraper.FieldStatus)

	flags := Classify(tight, status, e.opts.TakenDown)
	if !flags.AtRisk() {
		return models.ListingRecord{}, false
	}

	title, _ := e.fieldText(ctx, i, scraper.FieldTitle)
	rawCode, _ := e.fieldText(ctx, i, scraper.FieldGoodsNo)

	rec := models.ListingRecord{
		SourceURL: sourceURL,
		Title:     title,
		GoodsNo:   utils.ParseGoodsNo(rawCode),
		Status:    status,
		Flags:     flags,
	}

	if performDelete {
		rec.Deleted = models.Bool(e.deleteRow(ctx, i, rec.Identity()))
	}
	return rec, true
}

func (e *Extractor) deleteRow(ctx context.Context, i int, id models.Identity) bool {
	if e.deleter == nil {
		return false
	}
	has, err := e.console.HasDeleteAction(ctx, i)
	if err != nil {
		e.log.LogWarnf("Delete control check failed for %s: %v", id.Title, err)
		return false
	}
	if !has {
		return false
	}
	return e.deleter.Delete(ctx, i, id)
}

// fieldText is the single read-or-empty accessor for row cells: a failed read
// yields "" and false, never an error.
func (e *Extractor) fieldText(ctx context.Context, i int, field scraper.Field) (string, bool) {
	text, err := e.console.RowText(ctx, i, field)
	if err != nil {
		e.log.LogDebugf("row %d: reading %s failed: %v", i, field, err)
		return "", false
	}
	return utils.CollapseSpace(text), true
}
