package erp

import (
	"context"
	"fmt"
	"time"

	"ListingSweeper/internal/scraper"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

func (c *Console) deleteControl(ctx context.Context, i int) (*rod.Element, error) {
	row, err := c.row(ctx, i)
	if err != nil {
		return nil, err
	}
	btn, err := row.Sleeper(rod.NotFoundSleeper).ElementR(deleteSelector, deleteText)
	if err != nil {
		return nil, notFound("delete control", err)
	}
	return btn, nil
}

func (c *Console) HasDeleteAction(ctx context.Context, i int) (bool, error) {
	_, err := c.deleteControl(ctx, i)
	if err == nil {
		return true, nil
	}
	if isMissing(err) {
		return false, nil
	}
	return false, err
}

func (c *Console) ClickDelete(ctx context.Context, i int) error {
	btn, err := c.deleteControl(ctx, i)
	if err != nil {
		return err
	}
	if err := btn.ScrollIntoView(); err != nil {
		return fmt.Errorf("scrolling to delete control: %w", err)
	}
	return btn.Timeout(clickTimeout).Click(proto.InputMouseButtonLeft, 1)
}

func (c *Console) WaitConfirmDialog(ctx context.Context, timeout time.Duration) error {
	btn, err := c.page(ctx).Timeout(timeout).ElementR(confirmPrimarySelector, confirmText)
	if err == nil {
		err = btn.Timeout(timeout).WaitVisible()
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("confirm dialog: %w: %v", scraper.ErrTimeout, err)
	}
	return nil
}

func (c *Console) ClickConfirm(ctx context.Context) error {
	btn, err := c.lookup(ctx).ElementR(confirmPrimarySelector, confirmText)
	if err != nil {
		btn, err = c.lookup(ctx).ElementR(confirmAnySelector, confirmText)
	}
	if err != nil {
		return notFound("confirm button", err)
	}
	return btn.Timeout(clickTimeout).Click(proto.InputMouseButtonLeft, 1)
}

func (c *Console) WaitAlertDialog(ctx context.Context, timeout time.Duration) error {
	el, err := c.page(ctx).Timeout(timeout).Element(alertSelector)
	if err == nil {
		err = el.Timeout(timeout).WaitVisible()
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("alert dialog: %w: %v", scraper.ErrTimeout, err)
	}
	return nil
}

func (c *Console) alerts(ctx context.Context) (rod.Elements, error) {
	els, err := c.page(ctx).Elements(alertSelector)
	if err != nil {
		return nil, fmt.Errorf("alert dialogs: %w", err)
	}
	return els, nil
}

func (c *Console) alert(ctx context.Context, index int) (*rod.Element, error) {
	els, err := c.alerts(ctx)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(els) {
		return nil, fmt.Errorf("alert dialog %d: %w", index, scraper.ErrNotFound)
	}
	return els[index], nil
}

func (c *Console) AlertDialogs(ctx context.Context) ([]scraper.AlertDialog, error) {
	els, err := c.alerts(ctx)
	if err != nil {
		return nil, err
	}
	var out []scraper.AlertDialog
	for i, el := range els {
		if visible, err := el.Visible(); err != nil || !visible {
			continue
		}
		text, _ := el.Text()
		_, btnErr := el.Sleeper(rod.NotFoundSleeper).ElementR(alertButtonSelector, confirmText)
		out = append(out, scraper.AlertDialog{Index: i, Text: text, HasConfirm: btnErr == nil})
	}
	return out, nil
}

func (c *Console) ClickAlertConfirm(ctx context.Context, index int) error {
	el, err := c.alert(ctx, index)
	if err != nil {
		return err
	}
	btn, err := el.Sleeper(rod.NotFoundSleeper).ElementR(alertButtonSelector, confirmText)
	if err != nil {
		return notFound("alert confirm button", err)
	}
	return btn.Timeout(clickTimeout).Click(proto.InputMouseButtonLeft, 1)
}

func (c *Console) ClickAlertClose(ctx context.Context, index int) error {
	el, err := c.alert(ctx, index)
	if err != nil {
		return err
	}
	btn, err := el.Sleeper(rod.NotFoundSleeper).Element(alertCloseSelector)
	if err != nil {
		return notFound("alert close control", err)
	}
	return btn.Timeout(clickTimeout).Click(proto.InputMouseButtonLeft, 1)
}

const alertsGoneJS = `(sel) => !Array.from(document.querySelectorAll(sel)).some((d) => d.offsetParent !== null)`

// WaitAlertGone waits until no alert dialog is visible. Dialog indices shift
// as soon as one closes, so the wait covers all of them.
func (c *Console) WaitAlertGone(ctx context.Context, index int, timeout time.Duration) error {
	return c.waitJS(ctx, timeout, alertsGoneJS, alertSelector)
}
