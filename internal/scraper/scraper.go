package scraper

import (
	"context"
	"errors"
	"time"

	"ListingSweeper/internal/models"
)

// ErrNotFound is returned when a control the caller asked for is not on the
// page. It is an expected condition, not a failure of the browser.
var ErrNotFound = errors.New("element not found")

// ErrTimeout is returned by the bounded waits when their condition did not
// hold in time.
var ErrTimeout = errors.New("wait timed out")

// Field names a text cell of a table row.
type Field int

const (
	FieldTitle Field = iota
	FieldGoodsNo
	FieldStatus
)

func (f Field) String() string {
	switch f {
	case FieldTitle:
		return "title"
	case FieldGoodsNo:
		return "goodsNo"
	case FieldStatus:
		return "status"
	}
	return "unknown"
}

// Table gives index-based access to the rows of the listing table. Row
// indices refer to the live table, so they shift when a row is removed.
type Table interface {
	// WaitTable blocks until the table body is attached.
	WaitTable(ctx context.Context, timeout time.Duration) error
	// ScrollBy scrolls the page by dy pixels.
	ScrollBy(ctx context.Context, dy float64) error
	RowCount(ctx context.Context) (int, error)
	// HasMarker reports whether the row's marker column contains marker.
	HasMarker(ctx context.Context, row int, marker string) (bool, error)
	// RowText reads the trimmed text of one field of the row.
	RowText(ctx context.Context, row int, field Field) (string, error)
	// WaitRowGone blocks until no row has the identity's title and a goods
	// number field containing its code.
	WaitRowGone(ctx context.Context, id models.Identity, timeout time.Duration) error
}

// Pager reads and drives the pagination bar.
type Pager interface {
	// IndicatorText returns the "current / total" display.
	IndicatorText(ctx context.Context) (string, error)
	// CurrentPageText returns the label of the highlighted page control.
	CurrentPageText(ctx context.Context) (string, error)
	// LastPageText returns the label of the last page control.
	LastPageText(ctx context.Context) (string, error)
	// NextEnabled reports whether the "next" control exists and is enabled.
	NextEnabled(ctx context.Context) (bool, error)
	ClickNext(ctx context.Context) error
	// WaitFirstRowChange blocks until the first row's key differs from before.
	WaitFirstRowChange(ctx context.Context, before string, timeout time.Duration) error
}

// AlertDialog is a visible result/alert dialog.
type AlertDialog struct {
	Index      int
	Text       string
	HasConfirm bool
}

// Dialogs drives the row delete action and the dialogs it opens.
type Dialogs interface {
	// HasDeleteAction reports whether the row offers a delete control.
	HasDeleteAction(ctx context.Context, row int) (bool, error)
	// ClickDelete clicks the row's delete control; ErrNotFound if absent.
	ClickDelete(ctx context.Context, row int) error
	WaitConfirmDialog(ctx context.Context, timeout time.Duration) error
	// ClickConfirm clicks the primary button of the confirmation dialog.
	ClickConfirm(ctx context.Context) error
	WaitAlertDialog(ctx context.Context, timeout time.Duration) error
	AlertDialogs(ctx context.Context) ([]AlertDialog, error)
	ClickAlertConfirm(ctx context.Context, index int) error
	ClickAlertClose(ctx context.Context, index int) error
	WaitAlertGone(ctx context.Context, index int, timeout time.Duration) error
}

// ListingConsole is everything the sweep pipeline needs from the site. The
// pipeline depends on nothing else, so a scripted implementation can stand in
// for the browser.
type ListingConsole interface {
	Table
	Pager
	Dialogs
	// SourceURL is the address of the page the console was opened from.
	SourceURL() string
}
