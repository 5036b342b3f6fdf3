package erp

import (
	"context"
	"time"

	"ListingSweeper/internal/scraper"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

func (c *Console) IndicatorText(ctx context.Context) (string, error) {
	el, err := c.lookup(ctx).Element(displaySelector)
	if err != nil {
		return "", notFound("pagination display", err)
	}
	return el.Text()
}

func (c *Console) CurrentPageText(ctx context.Context) (string, error) {
	el, err := c.lookup(ctx).Element(currentSelector)
	if err != nil {
		return "", notFound("current page control", err)
	}
	return el.Text()
}

func (c *Console) LastPageText(ctx context.Context) (string, error) {
	items, err := c.page(ctx).Elements(pageItemSelector)
	if err != nil {
		return "", err
	}
	if items.Empty() {
		return "", notFound("page controls", scraper.ErrNotFound)
	}
	helper, err := items.Last().Sleeper(rod.NotFoundSleeper).Element(helperSelector)
	if err != nil {
		return "", notFound("last page control", err)
	}
	return helper.Text()
}

func (c *Console) NextEnabled(ctx context.Context) (bool, error) {
	el, err := c.lookup(ctx).Element(nextSelector)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	disabled, err := el.Disabled()
	if err != nil {
		return false, err
	}
	if disabled {
		return false, nil
	}
	attr, err := el.Attribute("disabled")
	if err != nil {
		return false, err
	}
	return attr == nil, nil
}

func (c *Console) ClickNext(ctx context.Context) error {
	el, err := c.lookup(ctx).Element(nextSelector)
	if err != nil {
		return notFound("next control", err)
	}
	return el.Timeout(clickTimeout).Click(proto.InputMouseButtonLeft, 1)
}

const firstRowChangedJS = `(titleSel, numberSel, key) => {
	const titleEl = document.querySelector(titleSel);
	const numEl = document.querySelector(numberSel);
	const title = titleEl ? titleEl.textContent.trim() : '';
	const code = numEl ? numEl.textContent.trim() : '';
	const cur = title + '||' + code;
	return cur !== '||' && cur !== key;
}`

func (c *Console) WaitFirstRowChange(ctx context.Context, before string, timeout time.Duration) error {
	return c.waitJS(ctx, timeout, firstRowChangedJS,
		rowSelector+" "+titleSelector, rowSelector+" "+numberSelector, before)
}
