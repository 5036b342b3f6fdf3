package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ListingSweeper/internal/models"

	_ "modernc.org/sqlite"
)

// IndexFile is the findings index inside the storage dir.
const IndexFile = "findings.db"

// DBRepository wraps the findings index connection.
type DBRepository struct {
	DB *sql.DB
}

const createFindingsTableSQL = `
CREATE TABLE IF NOT EXISTS findings (
	"id" INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
	"seq" INTEGER NOT NULL,
	"source_url" TEXT,
	"title" TEXT,
	"goods_no" TEXT,
	"status" TEXT,
	"tight_inventory" BOOLEAN DEFAULT 0,
	"taken_down" BOOLEAN DEFAULT 0,
	"deleted" TEXT DEFAULT ''
);`

// InitDB opens the index at path and creates its table if needed.
func InitDB(path string) (*DBRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if _, err = db.Exec(createFindingsTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating findings table: %w", err)
	}
	return &DBRepository{DB: db}, nil
}

func (repo *DBRepository) Close() {
	repo.DB.Close()
}

// ReplaceFindings swaps the whole table for records in one transaction. Row
// order is kept in seq.
func (repo *DBRepository) ReplaceFindings(records []models.ListingRecord) (err error) {
	tx, err := repo.DB.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.Exec("DELETE FROM findings"); err != nil {
		return fmt.Errorf("clearing findings: %w", err)
	}
	stmt, err := tx.Prepare(`
	INSERT INTO findings (seq, source_url, title, goods_no, status, tight_inventory, taken_down, deleted)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err = stmt.Exec(i, r.SourceURL, r.Title, r.GoodsNo, r.Status,
			r.Flags.TightInventory, r.Flags.TakenDown, deletedText(r.Deleted)); err != nil {
			return fmt.Errorf("inserting finding %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func deletedText(d *bool) string {
	switch {
	case d == nil:
		return ""
	case *d:
		return "yes"
	default:
		return "no"
	}
}

func flagCondition(flag string) (string, error) {
	switch flag {
	case "":
		return "", nil
	case "tight":
		return " WHERE tight_inventory = 1", nil
	case "taken_down":
		return " WHERE taken_down = 1", nil
	default:
		return "", fmt.Errorf("unknown flag %q", flag)
	}
}

// CountFindings returns how many findings match filters.Flag.
func (repo *DBRepository) CountFindings(filters models.FindingFilters) (int, error) {
	where, err := flagCondition(filters.Flag)
	if err != nil {
		return 0, err
	}
	var count int
	if err := repo.DB.QueryRow("SELECT COUNT(*) FROM findings" + where).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting findings: %w", err)
	}
	return count, nil
}

// GetFindings returns one page of findings in sweep order.
func (repo *DBRepository) GetFindings(filters models.FindingFilters) ([]models.Finding, error) {
	where, err := flagCondition(filters.Flag)
	if err != nil {
		return nil, err
	}
	var args []interface{}
	var b strings.Builder
	b.WriteString(`SELECT id, seq, source_url, title, goods_no, status, tight_inventory, taken_down, deleted
	FROM findings`)
	b.WriteString(where)
	b.WriteString(" ORDER BY seq ASC")
	if filters.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, filters.Limit)
		if filters.Offset > 0 {
			b.WriteString(" OFFSET ?")
			args = append(args, filters.Offset)
		}
	}

	rows, err := repo.DB.Query(b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute findings query: %w", err)
	}
	defer rows.Close()

	findings := []models.Finding{}
	for rows.Next() {
		var f models.Finding
		if err := rows.Scan(&f.ID, &f.Seq, &f.SourceURL, &f.Title, &f.GoodsNo, &f.Status,
			&f.TightInventory, &f.TakenDown, &f.Deleted); err != nil {
			return nil, fmt.Errorf("scanning finding row: %w", err)
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}
