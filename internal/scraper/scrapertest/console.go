// Package scrapertest provides a scripted scraper.ListingConsole for tests.
package scrapertest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"ListingSweeper/internal/models"
	"ListingSweeper/internal/scraper"
	"ListingSweeper/utils"
)

// Row is one scripted table row.
type Row struct {
	Title string
	// Code is the raw goods-number cell, label included.
	Code   string
	Status string
	// Marker is the text of the second-row marker column.
	Marker    string
	Deletable bool
	// Broken fields fail to read.
	Broken []scraper.Field
	// DeleteErr is returned when the delete control is clicked.
	DeleteErr error
}

// Console is an in-memory listing console. Pages are 0-based internally; the
// indicator reports them 1-based as the real console does.
type Console struct {
	mu sync.Mutex

	Pages [][]Row
	page  int

	URL string

	// Indicator, when set, replaces the "current/total" display.
	Indicator *string
	// HighlightText and LastText back the fallback page controls.
	HighlightText *string
	LastText      *string
	// NextDisabled hides the next control entirely.
	NextDisabled bool
	// StuckNext makes ClickNext a no-op, as if the click was swallowed.
	StuckNext bool

	// ConfirmDialog makes a delete open a confirmation dialog.
	ConfirmDialog bool
	// ResultDialogText, when set, opens a result dialog after the delete
	// is confirmed (or right away when there is no confirmation).
	ResultDialogText *string
	// ResultDialogs, when set, replaces ResultDialogText with several result
	// dialogs shown at once, in this order.
	ResultDialogs []string
	// ResultNoConfirm leaves the result dialog with only a close control.
	ResultNoConfirm bool
	// KeepRows keeps deleted rows in the table.
	KeepRows bool

	pending     int
	confirmOpen bool
	alertOpen   bool

	// Recorded interactions. AlertClicks holds the index of every alert
	// dialog clicked.
	Actions     []string
	AlertClicks []int
	Scrolls     int
}

var _ scraper.ListingConsole = (*Console)(nil)

// New returns a console showing pages.
func New(pages ...[]Row) *Console {
	return &Console{Pages: pages, URL: "https://console.test/start", pending: -1}
}

func (c *Console) record(format string, args ...interface{}) {
	c.Actions = append(c.Actions, fmt.Sprintf(format, args...))
}

// Page returns the 1-based page currently shown.
func (c *Console) Page() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page + 1
}

// CurrentRows returns a copy of the rows of the page shown.
func (c *Console) CurrentRows() []Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Row(nil), c.rows()...)
}

func (c *Console) rows() []Row {
	if c.page >= len(c.Pages) {
		return nil
	}
	return c.Pages[c.page]
}

func (c *Console) row(i int) (Row, error) {
	rows := c.rows()
	if i < 0 || i >= len(rows) {
		return Row{}, fmt.Errorf("row %d: %w", i, scraper.ErrNotFound)
	}
	return rows[i], nil
}

func (c *Console) SourceURL() string { return c.URL }

func (c *Console) WaitTable(ctx context.Context, timeout time.Duration) error {
	if len(c.Pages) == 0 {
		return fmt.Errorf("table body: %w", scraper.ErrTimeout)
	}
	return nil
}

func (c *Console) ScrollBy(ctx context.Context, dy float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Scrolls++
	return nil
}

func (c *Console) RowCount(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rows()), nil
}

func (c *Console) HasMarker(ctx context.Context, i int, marker string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, err := c.row(i)
	if err != nil {
		return false, err
	}
	return marker != "" && strings.Contains(r.Marker, marker), nil
}

func (c *Console) RowText(ctx context.Context, i int, field scraper.Field) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, err := c.row(i)
	if err != nil {
		return "", err
	}
	for _, f := range r.Broken {
		if f == field {
			return "", fmt.Errorf("reading %s: %w", field, scraper.ErrNotFound)
		}
	}
	switch field {
	case scraper.FieldTitle:
		return r.Title, nil
	case scraper.FieldGoodsNo:
		return r.Code, nil
	case scraper.FieldStatus:
		return r.Status, nil
	}
	return "", fmt.Errorf("unknown field %d", field)
}

func (c *Console) WaitRowGone(ctx context.Context, id models.Identity, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.rows() {
		if utils.CollapseSpace(r.Title) == id.Title && strings.Contains(utils.CollapseSpace(r.Code), id.GoodsNo) {
			return fmt.Errorf("row %q still present: %w", id.Title, scraper.ErrTimeout)
		}
	}
	return nil
}

func (c *Console) IndicatorText(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Indicator != nil {
		return *c.Indicator, nil
	}
	return fmt.Sprintf("%d/%d", c.page+1, len(c.Pages)), nil
}

func (c *Console) CurrentPageText(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.HighlightText != nil {
		return *c.HighlightText, nil
	}
	return fmt.Sprint(c.page + 1), nil
}

func (c *Console) LastPageText(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.LastText != nil {
		return *c.LastText, nil
	}
	return "", scraper.ErrNotFound
}

func (c *Console) NextEnabled(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.NextDisabled {
		return false, nil
	}
	return c.page+1 < len(c.Pages) || c.StuckNext, nil
}

func (c *Console) ClickNext(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("next")
	if c.StuckNext {
		return nil
	}
	if c.page+1 >= len(c.Pages) {
		return errors.New("next control is disabled")
	}
	c.page++
	return nil
}

func (c *Console) firstKey() string {
	rows := c.rows()
	if len(rows) == 0 {
		return ""
	}
	return utils.RowKey(rows[0].Title, rows[0].Code)
}

// FirstRowKey is the key WaitFirstRowChange compares against.
func (c *Console) FirstRowKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.firstKey()
}

func (c *Console) WaitFirstRowChange(ctx context.Context, before string, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur := c.firstKey(); cur != "" && cur != before {
		return nil
	}
	return fmt.Errorf("first row unchanged: %w", scraper.ErrTimeout)
}

func (c *Console) HasDeleteAction(ctx context.Context, i int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, err := c.row(i)
	if err != nil {
		return false, err
	}
	return r.Deletable, nil
}

func (c *Console) ClickDelete(ctx context.Context, i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, err := c.row(i)
	if err != nil {
		return err
	}
	if !r.Deletable {
		return fmt.Errorf("delete control: %w", scraper.ErrNotFound)
	}
	c.record("delete %d", i)
	if r.DeleteErr != nil {
		return r.DeleteErr
	}
	c.pending = i
	switch {
	case c.ConfirmDialog:
		c.confirmOpen = true
	case len(c.resultDialogs()) > 0:
		c.alertOpen = true
	default:
		c.removePending()
	}
	return nil
}

func (c *Console) removePending() {
	if c.pending < 0 {
		return
	}
	if !c.KeepRows {
		rows := c.Pages[c.page]
		c.Pages[c.page] = append(rows[:c.pending:c.pending], rows[c.pending+1:]...)
	}
	c.pending = -1
}

func (c *Console) WaitConfirmDialog(ctx context.Context, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.confirmOpen {
		return fmt.Errorf("confirm dialog: %w", scraper.ErrTimeout)
	}
	return nil
}

func (c *Console) ClickConfirm(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.confirmOpen {
		return fmt.Errorf("confirm button: %w", scraper.ErrNotFound)
	}
	c.record("confirm")
	c.confirmOpen = false
	if len(c.resultDialogs()) > 0 {
		c.alertOpen = true
		return nil
	}
	c.removePending()
	return nil
}

func (c *Console) WaitAlertDialog(ctx context.Context, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.alertOpen {
		return fmt.Errorf("alert dialog: %w", scraper.ErrTimeout)
	}
	return nil
}

func (c *Console) resultDialogs() []string {
	if len(c.ResultDialogs) > 0 {
		return c.ResultDialogs
	}
	if c.ResultDialogText != nil {
		return []string{*c.ResultDialogText}
	}
	return nil
}

func (c *Console) AlertDialogs(ctx context.Context) ([]scraper.AlertDialog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.alertOpen {
		return nil, nil
	}
	var out []scraper.AlertDialog
	for i, text := range c.resultDialogs() {
		out = append(out, scraper.AlertDialog{Index: i, Text: text, HasConfirm: !c.ResultNoConfirm})
	}
	return out, nil
}

// closeAlert dismisses every result dialog through the one at index.
func (c *Console) closeAlert(action string, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.alertOpen || index < 0 || index >= len(c.resultDialogs()) {
		return fmt.Errorf("alert dialog %d: %w", index, scraper.ErrNotFound)
	}
	if action == "alert-confirm" && c.ResultNoConfirm {
		return fmt.Errorf("alert confirm: %w", scraper.ErrNotFound)
	}
	c.record(action)
	c.AlertClicks = append(c.AlertClicks, index)
	c.alertOpen = false
	c.removePending()
	return nil
}

func (c *Console) ClickAlertConfirm(ctx context.Context, index int) error {
	return c.closeAlert("alert-confirm", index)
}

func (c *Console) ClickAlertClose(ctx context.Context, index int) error {
	return c.closeAlert("alert-close", index)
}

func (c *Console) WaitAlertGone(ctx context.Context, index int, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.alertOpen {
		return fmt.Errorf("alert dialog still open: %w", scraper.ErrTimeout)
	}
	return nil
}

// String returns a pointer to s, for the optional text fields.
func String(s string) *string { return &s }
