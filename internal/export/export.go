// Package export turns stored findings into a spreadsheet and a terminal summary.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"ListingSweeper/internal/models"
	"ListingSweeper/internal/store"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/xuri/excelize/v2"
)

const (
	SheetName = "results"
	FileName  = "results.xlsx"
)

// Columns is the header row of the sheet.
var Columns = []string{"sourceUrl", "title", "goodsNo", "status", "tightInventory", "takenDown"}

// Row is one normalised spreadsheet row.
type Row struct {
	SourceURL      string
	Title          string
	GoodsNo        string
	Status         string
	TightInventory string
	TakenDown      string
}

func (r Row) cells() []interface{} {
	return []interface{}{r.SourceURL, r.Title, r.GoodsNo, r.Status, r.TightInventory, r.TakenDown}
}

func yes(b bool) string {
	if b {
		return "Y"
	}
	return ""
}

// Normalize maps records onto rows, flags becoming "Y" or "".
func Normalize(records []models.ListingRecord) []Row {
	rows := make([]Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, Row{
			SourceURL:      r.SourceURL,
			Title:          r.Title,
			GoodsNo:        r.GoodsNo,
			Status:         r.Status,
			TightInventory: yes(r.Flags.TightInventory),
			TakenDown:      yes(r.Flags.TakenDown),
		})
	}
	return rows
}

// WriteXLSX writes rows to path as a single "results" sheet.
func WriteXLSX(path string, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		cells := r.cells()
		if err := f.SetSheetRow(SheetName, cell, &cells); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

// RenderSummary prints the totals of a sweep as a table.
func RenderSummary(w io.Writer, s store.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Records", "Tight inventory", "Taken down", "Deleted", "Delete failed"})
	t.AppendRow(table.Row{s.Records, s.Tight, s.TakenDown, s.Deleted, s.DeleteFailed})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

// Run reads the artifacts in dir and writes dir/results.xlsx. It returns the
// output path and the records read.
func Run(dir string) (string, []models.ListingRecord, error) {
	records, err := store.LoadForExport(dir)
	if err != nil {
		return "", nil, err
	}
	out := filepath.Join(dir, FileName)
	if err := WriteXLSX(out, Normalize(records)); err != nil {
		return "", nil, err
	}
	return out, records, nil
}
