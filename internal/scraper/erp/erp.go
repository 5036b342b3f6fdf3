package erp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ListingSweeper/internal/logger"
	"ListingSweeper/internal/scraper"

	"github.com/go-rod/rod"
)

// Selectors of the ERP goods table (Fusion "next" components).
const (
	tableBodySelector = "tbody.next-table-body"
	rowSelector       = "tbody.next-table-body tr.next-table-row"
	markerSelector    = ".col-second-row"
	statusSelector    = ".col-status .col-value"
	titleSelector     = ".td-product .info .subject"
	numberSelector    = ".td-product .info .number"
	deleteSelector    = "a, button"
	deleteText        = "删除商品"

	displaySelector  = ".next-pagination-display"
	currentSelector  = ".next-pagination-list .next-current .next-btn-helper"
	pageItemSelector = ".next-pagination-list button.next-pagination-item"
	helperSelector   = ".next-btn-helper"
	nextSelector     = "button.next-next"

	confirmPrimarySelector = `div.next-dialog[aria-hidden="false"] .next-dialog-footer button.next-btn-primary`
	confirmAnySelector     = `div.next-dialog[aria-hidden="false"] .next-dialog-footer button`
	confirmText            = "确认"
	alertSelector          = `div[role="alertdialog"].next-dialog[aria-hidden="false"]`
	alertButtonSelector    = ".next-dialog-footer button"
	alertCloseSelector     = "a.next-dialog-close"

	clickTimeout = 5 * time.Second
)

// Console implements scraper.ListingConsole on the ERP goods tab.
type Console struct {
	Page      *rod.Page
	sourceURL string
	log       *logger.Logger
}

var _ scraper.ListingConsole = (*Console)(nil)

// NewConsole wraps the page that shows the goods table. sourceURL is the page
// the console was reached from and is recorded on every finding.
func NewConsole(page *rod.Page, sourceURL string, log *logger.Logger) *Console {
	if log == nil {
		log = logger.Nop()
	}
	return &Console{Page: page, sourceURL: sourceURL, log: log}
}

func (c *Console) SourceURL() string { return c.sourceURL }

// page returns the page bound to ctx.
func (c *Console) page(ctx context.Context) *rod.Page {
	return c.Page.Context(ctx)
}

// lookup returns the page bound to ctx that fails fast when an element is
// missing instead of retrying until the deadline.
func (c *Console) lookup(ctx context.Context) *rod.Page {
	return c.Page.Context(ctx).Sleeper(rod.NotFoundSleeper)
}

// waitJS polls js in the page until it returns true or timeout elapses.
func (c *Console) waitJS(ctx context.Context, timeout time.Duration, js string, args ...interface{}) error {
	err := c.page(ctx).Timeout(timeout).Wait(rod.Eval(js, args...))
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %v", scraper.ErrTimeout, err)
}

// notFound maps rod's missing-element error onto scraper.ErrNotFound.
func notFound(what string, err error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return fmt.Errorf("%s: %w", what, scraper.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func isNotFound(err error) bool {
	var nf *rod.ElementNotFoundError
	return errors.As(err, &nf)
}

// isMissing reports whether err means the element is simply not there.
func isMissing(err error) bool {
	return isNotFound(err) || errors.Is(err, scraper.ErrNotFound)
}
