// Package store persists sweep findings as an append-only line-delimited log
// plus a pretty-printed array snapshot derived from it.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ListingSweeper/internal/logger"
	"ListingSweeper/internal/models"
)

const (
	LogFile      = "results.ndjson"
	SnapshotFile = "results.json"
)

// ErrNoArtifacts is returned when neither the log nor the snapshot can be read.
var ErrNoArtifacts = errors.New("no readable result artifacts")

// Store owns the two result artifacts of one storage directory. It assumes a
// single writer process; the mutex only serialises callers inside it.
type Store struct {
	mu           sync.Mutex
	dir          string
	logPath      string
	snapshotPath string
	log          *logger.Logger
}

// Open creates dir if needed and reconciles the artifacts found there.
func Open(dir string, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.Nop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage dir %s: %w", dir, err)
	}
	s := &Store{
		dir:          dir,
		logPath:      filepath.Join(dir, LogFile),
		snapshotPath: filepath.Join(dir, SnapshotFile),
		log:          log,
	}
	if err := s.Reconcile(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Dir() string          { return s.dir }
func (s *Store) LogPath() string      { return s.logPath }
func (s *Store) SnapshotPath() string { return s.snapshotPath }

// Reconcile brings both artifacts to the same logical content. A log left in
// the legacy array layout is converted to one record per line; a missing or
// blank log is rebuilt from the snapshot; the snapshot is then rewritten from
// the log. A log that has content but no readable record is moved aside
// untouched before a new one is started.
func (s *Store) Reconcile() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, sh, exists, err := readRecords(s.logPath)
	if err != nil {
		return err
	}

	if exists && sh != shapeEmpty && len(records) == 0 {
		aside, err := s.moveAside()
		if err != nil {
			return err
		}
		s.log.LogWarnf("%s has no readable records, moved to %s", LogFile, aside)
		exists, sh = false, shapeEmpty
	}

	switch {
	case !exists || sh == shapeEmpty:
		snap, _, _, err := readRecords(s.snapshotPath)
		if err != nil {
			return err
		}
		if len(snap) > 0 {
			s.log.LogInfof("Rebuilding %s from %d snapshot records", LogFile, len(snap))
			records = snap
		}
		if err := s.rewriteLog(records); err != nil {
			return err
		}
	case sh == shapeArray:
		s.log.LogInfof("Migrating %s from array layout (%d records)", LogFile, len(records))
		if err := s.rewriteLog(records); err != nil {
			return err
		}
	}

	return s.writeSnapshot(records)
}

// moveAside renames the log to results.ndjson.corrupt-<timestamp>.
func (s *Store) moveAside() (string, error) {
	aside := fmt.Sprintf("%s.corrupt-%s", s.logPath, time.Now().Format("20060102T150405"))
	if err := os.Rename(s.logPath, aside); err != nil {
		return "", fmt.Errorf("moving %s aside: %w", s.logPath, err)
	}
	return aside, nil
}

// Append persists one page's batch. The batch goes to the end of the log as
// new lines, then the snapshot is rewritten as prior content plus the batch.
func (s *Store) Append(batch []models.ListingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.logPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading %s: %w", s.logPath, err)
	}
	prior, sh := decodeRecords(data)
	if sh == shapeArray {
		// Another writer left the legacy layout behind.
		if err := s.rewriteLog(prior); err != nil {
			return err
		}
		data, _ = encodeLines(prior)
	}

	if len(batch) > 0 {
		lines, err := encodeLines(batch)
		if err != nil {
			return err
		}
		// A torn final line from an interrupted write must not swallow the
		// first record of this batch.
		if len(data) > 0 && !bytes.HasSuffix(data, []byte("\n")) {
			lines = append([]byte("\n"), lines...)
		}
		if err := appendFile(s.logPath, lines); err != nil {
			return err
		}
	}

	merged := make([]models.ListingRecord, 0, len(prior)+len(batch))
	merged = append(merged, prior...)
	merged = append(merged, batch...)
	return s.writeSnapshot(merged)
}

// ReadAll returns every persisted record in append order. The log is the
// source of truth; the snapshot is only consulted when the log is missing.
func (s *Store) ReadAll() ([]models.ListingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, _, exists, err := readRecords(s.logPath)
	if err != nil {
		return nil, err
	}
	if exists {
		return records, nil
	}
	records, _, _, err = readRecords(s.snapshotPath)
	return records, err
}

func (s *Store) rewriteLog(records []models.ListingRecord) error {
	data, err := encodeLines(records)
	if err != nil {
		return err
	}
	if err := writeAtomic(s.logPath, data); err != nil {
		return fmt.Errorf("writing %s: %w", s.logPath, err)
	}
	return nil
}

func (s *Store) writeSnapshot(records []models.ListingRecord) error {
	data, err := encodeArray(records)
	if err != nil {
		return err
	}
	if err := writeAtomic(s.snapshotPath, data); err != nil {
		return fmt.Errorf("writing %s: %w", s.snapshotPath, err)
	}
	return nil
}

// LoadForExport reads the findings of dir without modifying anything. The
// snapshot is preferred; if it is missing or not a valid array the log is
// read instead.
func LoadForExport(dir string) ([]models.ListingRecord, error) {
	snapPath := filepath.Join(dir, SnapshotFile)
	records, sh, exists, err := readRecords(snapPath)
	if err == nil && exists && sh == shapeArray {
		return records, nil
	}

	logPath := filepath.Join(dir, LogFile)
	records, _, exists, err = readRecords(logPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoArtifacts, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w in %s", ErrNoArtifacts, dir)
	}
	return records, nil
}
