// Package navigator walks the pages of the listing console.
package navigator

import (
	"context"
	"time"

	"ListingSweeper/internal/logger"
	"ListingSweeper/internal/scraper"
	"ListingSweeper/utils"
)

// Page identifies the page being visited.
type Page struct {
	Current int
	Total   int
}

// PageState is the pagination state of one console session.
type PageState struct {
	Current int
	Total   int
	Visited map[int]bool
}

// VisitFunc handles the page currently shown. An error stops the walk.
type VisitFunc func(ctx context.Context, page Page) error

// Options bounds the waits around the "next" click.
type Options struct {
	NextSettle         time.Duration
	PageChange         time.Duration
	PageChangeFallback time.Duration
}

// Navigator drives the pagination bar. It is not safe for concurrent use.
type Navigator struct {
	console PagerConsole
	opts    Options
	state   PageState
	log     *logger.Logger
}

// PagerConsole is the part of the console the navigator needs.
type PagerConsole interface {
	scraper.Pager
	RowText(ctx context.Context, row int, field scraper.Field) (string, error)
}

func New(console PagerConsole, opts Options, log *logger.Logger) *Navigator {
	if log == nil {
		log = logger.Nop()
	}
	return &Navigator{
		console: console,
		opts:    opts,
		state:   PageState{Visited: make(map[int]bool)},
		log:     log,
	}
}

// State returns a copy of the pagination state.
func (n *Navigator) State() PageState {
	visited := make(map[int]bool, len(n.state.Visited))
	for k, v := range n.state.Visited {
		visited[k] = v
	}
	return PageState{Current: n.state.Current, Total: n.state.Total, Visited: visited}
}

// Run visits pages until the navigator reports the last one.
func (n *Navigator) Run(ctx context.Context, visit VisitFunc) error {
	for {
		terminal, err := n.Advance(ctx, visit)
		if err != nil {
			return err
		}
		if terminal {
			return nil
		}
	}
}

// Advance handles the page currently shown and moves to the next one. It
// returns terminal=true when there is nothing left to visit; in that case the
// current page may or may not have been visited (a repeated page is not).
func (n *Navigator) Advance(ctx context.Context, visit VisitFunc) (bool, error) {
	page := n.readIndicator(ctx)
	if n.state.Visited[page.Current] {
		n.log.LogInfof("Page %d already visited, stopping", page.Current)
		return true, nil
	}
	n.state.Visited[page.Current] = true
	n.state.Current, n.state.Total = page.Current, page.Total

	n.log.LogInfof("Scanning page %d of %d", page.Current, page.Total)
	if err := visit(ctx, page); err != nil {
		return true, err
	}

	if page.Current >= page.Total {
		return true, nil
	}
	enabled, err := n.console.NextEnabled(ctx)
	if err != nil || !enabled {
		return true, nil
	}

	before := n.firstRowKey(ctx)
	if err := utils.Sleep(ctx, n.opts.NextSettle); err != nil {
		return true, err
	}
	if err := n.console.ClickNext(ctx); err != nil {
		n.log.LogWarnf("Clicking next page failed: %v", err)
		return true, nil
	}
	if err := n.console.WaitFirstRowChange(ctx, before, n.opts.PageChange); err != nil {
		if ctx.Err() != nil {
			return true, ctx.Err()
		}
		// The table can lag behind the pager; carry on after a fixed pause.
		n.log.LogDebugf("first row did not change after next: %v", err)
		if err := utils.Sleep(ctx, n.opts.PageChangeFallback); err != nil {
			return true, err
		}
	}
	return false, nil
}

// readIndicator parses the "current / total" display, falling back to the
// highlighted and the last page controls. Anything unreadable degrades to a
// single page.
func (n *Navigator) readIndicator(ctx context.Context) Page {
	if text, err := n.console.IndicatorText(ctx); err == nil {
		if current, total, ok := utils.ParsePageIndicator(text); ok {
			return Page{Current: current, Total: total}
		}
	}

	current := 1
	if text, err := n.console.CurrentPageText(ctx); err == nil {
		if v, ok := utils.ParsePageNumber(text); ok {
			current = v
		}
	}
	total := current
	if text, err := n.console.LastPageText(ctx); err == nil {
		if v, ok := utils.ParsePageNumber(text); ok {
			total = v
		}
	}
	return Page{Current: current, Total: total}
}

func (n *Navigator) firstRowKey(ctx context.Context) string {
	title, _ := n.console.RowText(ctx, 0, scraper.FieldTitle)
	code, _ := n.console.RowText(ctx, 0, scraper.FieldGoodsNo)
	return utils.RowKey(title, code)
}
