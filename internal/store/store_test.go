package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ListingSweeper/internal/models"
)

func sampleRecords() []models.ListingRecord {
	return []models.ListingRecord{
		{SourceURL: "https://a.test", Title: "Mug", GoodsNo: "M-1", Status: "在售", Flags: models.Flags{TightInventory: true}},
		{SourceURL: "https://a.test", Title: "Lamp", GoodsNo: "L-2", Status: "已下架", Flags: models.Flags{TakenDown: true}, Deleted: models.Bool(true)},
		{SourceURL: "https://a.test", Title: "Desk", GoodsNo: "D-3", Status: "已下架", Flags: models.Flags{TightInventory: true, TakenDown: true}, Deleted: models.Bool(false)},
	}
}

func readSnapshot(t *testing.T, s *Store) []models.ListingRecord {
	t.Helper()
	data, err := os.ReadFile(s.SnapshotPath())
	require.NoError(t, err)
	var records []models.ListingRecord
	require.NoError(t, json.Unmarshal(data, &records))
	return records
}

func TestOpenCreatesBothArtifacts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "storage")

	s, err := Open(dir, nil)
	require.NoError(t, err)

	for _, p := range []string{s.LogPath(), s.SnapshotPath()} {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}
	assert.Empty(t, readSnapshot(t, s))
}

func TestAppendThenReadAll(t *testing.T) {
	s, err := Open(t.TempDir(), nil)
	require.NoError(t, err)

	records := sampleRecords()
	require.NoError(t, s.Append(records[:1]))
	require.NoError(t, s.Append(records[1:]))

	got, err := s.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, records, got)
	assert.Equal(t, records, readSnapshot(t, s))

	data, err := os.ReadFile(s.LogPath())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 3)
}

func TestAppendOnlyAddsBytesToLog(t *testing.T) {
	s, err := Open(t.TempDir(), nil)
	require.NoError(t, err)

	records := sampleRecords()
	require.NoError(t, s.Append(records[:2]))
	before, err := os.ReadFile(s.LogPath())
	require.NoError(t, err)

	require.NoError(t, s.Append(records[2:]))
	after, err := os.ReadFile(s.LogPath())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(after), string(before)))
	assert.Greater(t, len(after), len(before))
}

func TestAppendEmptyBatchKeepsContent(t *testing.T) {
	s, err := Open(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, s.Append(sampleRecords()))

	logBefore, err := os.ReadFile(s.LogPath())
	require.NoError(t, err)
	snapBefore := readSnapshot(t, s)

	require.NoError(t, s.Append(nil))
	require.NoError(t, s.Append([]models.ListingRecord{}))

	logAfter, err := os.ReadFile(s.LogPath())
	require.NoError(t, err)
	assert.Equal(t, logBefore, logAfter)
	assert.Equal(t, snapBefore, readSnapshot(t, s))
}

func TestSnapshotIsPrettyArray(t *testing.T) {
	s, err := Open(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, s.Append(sampleRecords()[:1]))

	data, err := os.ReadFile(s.SnapshotPath())
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.HasPrefix(text, "[\n  {\n"))
	assert.Contains(t, text, `"sourceUrl": "https://a.test"`)
	assert.Contains(t, text, `"tightInventory": true`)
	assert.NotContains(t, text, `"deleted"`)
}

func TestBothShapesReadEqual(t *testing.T) {
	records := sampleRecords()

	linesDir := t.TempDir()
	lines, err := encodeLines(records)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(linesDir, LogFile), lines, 0o644))

	arrayDir := t.TempDir()
	array, err := encodeArray(records)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(arrayDir, LogFile), array, 0o644))

	fromLines, err := Open(linesDir, nil)
	require.NoError(t, err)
	fromArray, err := Open(arrayDir, nil)
	require.NoError(t, err)

	a, err := fromLines.ReadAll()
	require.NoError(t, err)
	b, err := fromArray.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, records, a)
	assert.Equal(t, a, b)
}

func TestDecodeRecords(t *testing.T) {
	records := sampleRecords()
	array, err := encodeArray(records)
	require.NoError(t, err)
	lines, err := encodeLines(records)
	require.NoError(t, err)

	got, sh := decodeRecords(array)
	assert.Equal(t, shapeArray, sh)
	assert.Equal(t, records, got)

	got, sh = decodeRecords(lines)
	assert.Equal(t, shapeLines, sh)
	assert.Equal(t, records, got)

	_, sh = decodeRecords([]byte("  \n"))
	assert.Equal(t, shapeEmpty, sh)
}

func TestLegacyArrayLogIsMigrated(t *testing.T) {
	dir := t.TempDir()
	records := sampleRecords()
	array, err := encodeArray(records)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, LogFile), array, 0o644))

	s, err := Open(dir, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(s.LogPath())
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), len(records))
	assert.Equal(t, records, readSnapshot(t, s))

	require.NoError(t, s.Append(records[:1]))
	got, err := s.ReadAll()
	require.NoError(t, err)
	assert.Len(t, got, len(records)+1)
}

func TestUnparsableLinesAreSkipped(t *testing.T) {
	dir := t.TempDir()
	content := `{"sourceUrl":"u","title":"A","goodsNo":"1","status":"","flags":{"tightInventory":true,"takenDown":false}}
not json at all
{"sourceUrl":"u","title":"B",
{"sourceUrl":"u","title":"C","goodsNo":"3","status":"已下架","flags":{"tightInventory":false,"takenDown":true}}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, LogFile), []byte(content), 0o644))

	s, err := Open(dir, nil)
	require.NoError(t, err)
	got, err := s.ReadAll()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Title)
	assert.Equal(t, "C", got[1].Title)
}

func TestTornLastLineDoesNotEatNextRecord(t *testing.T) {
	s, err := Open(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, s.Append(sampleRecords()[:1]))

	f, err := os.OpenFile(s.LogPath(), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"sourceUrl":"u","tit`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, s.Append(sampleRecords()[1:2]))

	got, err := s.ReadAll()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Lamp", got[1].Title)
}

func TestMissingLogIsRebuiltFromSnapshot(t *testing.T) {
	dir := t.TempDir()
	records := sampleRecords()
	array, err := encodeArray(records)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, SnapshotFile), array, 0o644))

	s, err := Open(dir, nil)
	require.NoError(t, err)
	got, err := s.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, records, got)

	_, err = os.Stat(s.LogPath())
	assert.NoError(t, err)
}

func TestUnreadableLogIsMovedAsideNotWiped(t *testing.T) {
	dir := t.TempDir()
	array, err := encodeArray(sampleRecords())
	require.NoError(t, err)
	torn := array[:len(array)/2]
	require.NoError(t, os.WriteFile(filepath.Join(dir, LogFile), torn, 0o644))

	s, err := Open(dir, nil)
	require.NoError(t, err)

	aside, err := filepath.Glob(filepath.Join(dir, LogFile+".corrupt-*"))
	require.NoError(t, err)
	require.Len(t, aside, 1)
	kept, err := os.ReadFile(aside[0])
	require.NoError(t, err)
	assert.Equal(t, torn, kept)

	require.NoError(t, s.Append(sampleRecords()[:1]))
	got, err := s.ReadAll()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Mug", got[0].Title)
}

func TestOversizedLineIsSkippedAlone(t *testing.T) {
	dir := t.TempDir()
	lines, err := encodeLines(sampleRecords()[:1])
	require.NoError(t, err)
	huge := `{"title":"` + strings.Repeat("x", 5*1024*1024) + "\n"
	tail, err := encodeLines(sampleRecords()[1:])
	require.NoError(t, err)
	content := string(lines) + huge + string(tail)
	require.NoError(t, os.WriteFile(filepath.Join(dir, LogFile), []byte(content), 0o644))

	s, err := Open(dir, nil)
	require.NoError(t, err)
	got, err := s.ReadAll()
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"Mug", "Lamp", "Desk"}, []string{got[0].Title, got[1].Title, got[2].Title})
}

func TestLoadForExport(t *testing.T) {
	t.Run("prefers snapshot", func(t *testing.T) {
		dir := t.TempDir()
		records := sampleRecords()
		array, _ := encodeArray(records[:1])
		lines, _ := encodeLines(records)
		require.NoError(t, os.WriteFile(filepath.Join(dir, SnapshotFile), array, 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, LogFile), lines, 0o644))

		got, err := LoadForExport(dir)
		require.NoError(t, err)
		assert.Equal(t, records[:1], got)
	})

	t.Run("falls back to log on broken snapshot", func(t *testing.T) {
		dir := t.TempDir()
		records := sampleRecords()
		lines, _ := encodeLines(records)
		require.NoError(t, os.WriteFile(filepath.Join(dir, SnapshotFile), []byte("[{broken"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, LogFile), lines, 0o644))

		got, err := LoadForExport(dir)
		require.NoError(t, err)
		assert.Equal(t, records, got)
	})

	t.Run("nothing readable", func(t *testing.T) {
		_, err := LoadForExport(t.TempDir())
		assert.ErrorIs(t, err, ErrNoArtifacts)
	})
}

func TestSummarize(t *testing.T) {
	sum := Summarize(sampleRecords())
	assert.Equal(t, Summary{Records: 3, Tight: 2, TakenDown: 2, Deleted: 1, DeleteFailed: 1}, sum)
}
