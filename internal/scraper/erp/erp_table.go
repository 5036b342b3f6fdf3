package erp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ListingSweeper/internal/models"
	"ListingSweeper/internal/scraper"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
)

func (c *Console) WaitTable(ctx context.Context, timeout time.Duration) error {
	if _, err := c.page(ctx).Timeout(timeout).Element(tableBodySelector); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("table body %s: %w: %v", tableBodySelector, scraper.ErrTimeout, err)
	}
	return nil
}

func (c *Console) ScrollBy(ctx context.Context, dy float64) error {
	return c.page(ctx).Mouse.Scroll(0, dy, 1)
}

func (c *Console) rows(ctx context.Context) (rod.Elements, error) {
	rows, err := c.page(ctx).Elements(rowSelector)
	if err != nil {
		return nil, fmt.Errorf("listing rows: %w", err)
	}
	return rows, nil
}

func (c *Console) row(ctx context.Context, i int) (*rod.Element, error) {
	rows, err := c.rows(ctx)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(rows) {
		return nil, fmt.Errorf("row %d of %d: %w", i, len(rows), scraper.ErrNotFound)
	}
	return rows[i], nil
}

func (c *Console) RowCount(ctx context.Context) (int, error) {
	rows, err := c.rows(ctx)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// rowDoc snapshots one row's markup so all of its cells can be read with a
// single round trip to the browser.
func (c *Console) rowDoc(ctx context.Context, i int) (*goquery.Selection, error) {
	row, err := c.row(ctx, i)
	if err != nil {
		return nil, err
	}
	html, err := row.HTML()
	if err != nil {
		return nil, fmt.Errorf("row %d html: %w", i, err)
	}
	sel, err := parseRow(html)
	if err != nil {
		return nil, fmt.Errorf("parsing row %d: %w", i, err)
	}
	return sel, nil
}

// parseRow parses the outer HTML of a table row.
func parseRow(html string) (*goquery.Selection, error) {
	// A bare <tr> is dropped by the HTML parser outside of a table.
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<table><tbody>" + html + "</tbody></table>"))
	if err != nil {
		return nil, err
	}
	return doc.Find("tr").First(), nil
}

func hasMarker(row *goquery.Selection, marker string) bool {
	found := false
	row.Find(markerSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		found = strings.Contains(s.Text(), marker)
		return !found
	})
	return found
}

var fieldSelectors = map[scraper.Field]string{
	scraper.FieldTitle:   titleSelector,
	scraper.FieldGoodsNo: numberSelector,
	scraper.FieldStatus:  statusSelector,
}

func cellText(row *goquery.Selection, field scraper.Field) (string, error) {
	selector, ok := fieldSelectors[field]
	if !ok {
		return "", fmt.Errorf("unknown field %d", field)
	}
	cell := row.Find(selector).First()
	if cell.Length() == 0 {
		return "", fmt.Errorf("%s: %w", field, scraper.ErrNotFound)
	}
	return strings.TrimSpace(cell.Text()), nil
}

func (c *Console) HasMarker(ctx context.Context, i int, marker string) (bool, error) {
	sel, err := c.rowDoc(ctx, i)
	if err != nil {
		return false, err
	}
	return hasMarker(sel, marker), nil
}

func (c *Console) RowText(ctx context.Context, i int, field scraper.Field) (string, error) {
	sel, err := c.rowDoc(ctx, i)
	if err != nil {
		return "", err
	}
	text, err := cellText(sel, field)
	if err != nil {
		return "", fmt.Errorf("row %d %w", i, err)
	}
	return text, nil
}

// rowGoneJS folds whitespace the way utils.CollapseSpace does, since the
// identity it looks for was read through it.
const rowGoneJS = `(sel, titleSel, numberSel, t, g) => {
	const norm = (el) => el ? el.textContent.replace(/\u00a0/g, ' ').replace(/\s+/g, ' ').trim() : '';
	const rows = Array.from(document.querySelectorAll(sel));
	return !rows.some((tr) => norm(tr.querySelector(titleSel)) === t && norm(tr.querySelector(numberSel)).includes(g));
}`

func (c *Console) WaitRowGone(ctx context.Context, id models.Identity, timeout time.Duration) error {
	return c.waitJS(ctx, timeout, rowGoneJS, rowSelector, titleSelector, numberSelector, id.Title, id.GoodsNo)
}
