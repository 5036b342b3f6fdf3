package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"ListingSweeper/internal/models"
)

// shape is the on-disk layout of an artifact.
type shape int

const (
	shapeEmpty shape = iota
	shapeArray
	shapeLines
)

// decodeRecords parses either a JSON array or one JSON object per line.
// The array form is tried first; if it does not parse, the content is read
// line by line and unparsable lines are skipped, whatever their length.
func decodeRecords(data []byte) ([]models.ListingRecord, shape) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, shapeEmpty
	}
	if trimmed[0] == '[' {
		var records []models.ListingRecord
		if err := json.Unmarshal(trimmed, &records); err == nil {
			return records, shapeArray
		}
	}

	var records []models.ListingRecord
	for _, line := range bytes.Split(trimmed, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var rec models.ListingRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, shapeLines
}

// readRecords reads the artifact at path. A missing file yields no records and
// exists=false.
func readRecords(path string) (records []models.ListingRecord, sh shape, exists bool, err error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, shapeEmpty, false, nil
	}
	if err != nil {
		return nil, shapeEmpty, false, fmt.Errorf("reading %s: %w", path, err)
	}
	records, sh = decodeRecords(data)
	return records, sh, true, nil
}

// encodeLines renders records as line-delimited JSON.
func encodeLines(records []models.ListingRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("encoding record %q: %w", rec.Title, err)
		}
	}
	return buf.Bytes(), nil
}

// encodeArray renders records as a two-space indented JSON array.
func encodeArray(records []models.ListingRecord) ([]byte, error) {
	if records == nil {
		records = []models.ListingRecord{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// writeAtomic replaces path with data using the temp-file, fsync, rename
// pattern, so readers see either the old or the new content.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// appendFile adds data at the end of path, creating it if needed. Existing
// bytes are never touched.
func appendFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s for append: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("appending to %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("syncing %s: %w", path, err)
	}
	return f.Close()
}
