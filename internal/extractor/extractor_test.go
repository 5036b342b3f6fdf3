package extractor

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ListingSweeper/internal/models"
	"ListingSweeper/internal/mutation"
	"ListingSweeper/internal/scraper"
	"ListingSweeper/internal/scraper/scrapertest"
)

const tightMarker = "库存紧张"

func testOptions() Options {
	return Options{
		TightMarker:  tightMarker,
		TakenDown:    regexp.MustCompile("已下架"),
		ScrollPasses: 5,
		ScrollDelta:  2000,
		ScrollPause:  0,
		TableTimeout: time.Millisecond,
	}
}

func newExecutor(c *scrapertest.Console) *mutation.Executor {
	return mutation.New(c, mutation.Timeouts{
		Confirm:         time.Millisecond,
		Result:          time.Millisecond,
		DialogDetach:    time.Millisecond,
		Absence:         time.Millisecond,
		AbsenceFallback: time.Millisecond,
	}, regexp.MustCompile("移除成功"), nil)
}

func TestScanDescendingOrder(t *testing.T) {
	c := scrapertest.New([]scrapertest.Row{
		{Title: "Row0", Code: "货号：C0", Status: "在售", Marker: "库存紧张"},
		{Title: "Row1", Code: "货号:C1", Status: "已下架"},
		{Title: "Row2", Code: "C2", Status: "在售", Marker: "剩余 库存紧张 "},
	})

	records, err := New(c, nil, testOptions(), nil).Scan(context.Background(), "https://src.test", false)
	require.NoError(t, err)

	assert.Equal(t, []models.ListingRecord{
		{SourceURL: "https://src.test", Title: "Row2", GoodsNo: "C2", Status: "在售", Flags: models.Flags{TightInventory: true}},
		{SourceURL: "https://src.test", Title: "Row1", GoodsNo: "C1", Status: "已下架", Flags: models.Flags{TakenDown: true}},
		{SourceURL: "https://src.test", Title: "Row0", GoodsNo: "C0", Status: "在售", Flags: models.Flags{TightInventory: true}},
	}, records)
	for _, r := range records {
		assert.Nil(t, r.Deleted)
	}
	assert.Equal(t, 5, c.Scrolls)
}

func TestScanSkipsRowsWithoutRisk(t *testing.T) {
	c := scrapertest.New([]scrapertest.Row{
		{Title: "Healthy", Code: "H1", Status: "在售", Marker: "库存充足"},
		{Title: "Both", Code: "B1", Status: "已下架", Marker: "库存紧张"},
	})

	records, err := New(c, nil, testOptions(), nil).Scan(context.Background(), "u", false)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Both", records[0].Title)
	assert.Equal(t, models.Flags{TightInventory: true, TakenDown: true}, records[0].Flags)
}

func TestScanFieldFailureYieldsEmptyString(t *testing.T) {
	c := scrapertest.New([]scrapertest.Row{
		{Title: "Lost", Code: "货号：Z9", Status: "已下架", Broken: []scraper.Field{scraper.FieldTitle}},
		{Title: "NoCode", Code: "X", Marker: "库存紧张", Broken: []scraper.Field{scraper.FieldGoodsNo, scraper.FieldStatus}},
	})

	records, err := New(c, nil, testOptions(), nil).Scan(context.Background(), "u", false)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "NoCode", records[0].Title)
	assert.Equal(t, "", records[0].GoodsNo)
	assert.Equal(t, "", records[0].Status)

	assert.Equal(t, "", records[1].Title)
	assert.Equal(t, "Z9", records[1].GoodsNo)
}

func TestScanWithDeletion(t *testing.T) {
	c := scrapertest.New([]scrapertest.Row{
		{Title: "A", Code: "货号：A1", Marker: "库存紧张", Deletable: true},
		{Title: "Keep", Code: "K1", Status: "在售"},
		{Title: "B", Code: "货号：B1", Status: "已下架", Deletable: true},
		{Title: "C", Code: "货号：C1", Status: "已下架"},
	})
	c.ConfirmDialog = true
	c.ResultDialogText = scrapertest.String("移除成功")

	records, err := New(c, newExecutor(c), testOptions(), nil).Scan(context.Background(), "u", true)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "C", records[0].Title)
	require.NotNil(t, records[0].Deleted)
	assert.False(t, *records[0].Deleted)

	assert.Equal(t, "B", records[1].Title)
	require.NotNil(t, records[1].Deleted)
	assert.True(t, *records[1].Deleted)

	assert.Equal(t, "A", records[2].Title)
	require.NotNil(t, records[2].Deleted)
	assert.True(t, *records[2].Deleted)

	var left []string
	for _, r := range c.CurrentRows() {
		left = append(left, r.Title)
	}
	assert.Equal(t, []string{"Keep", "C"}, left)
	assert.Equal(t, []string{
		"delete 2", "confirm", "alert-confirm",
		"delete 0", "confirm", "alert-confirm",
	}, c.Actions)
}

func TestRecordedIdentityFindsRowWithInnerWhitespace(t *testing.T) {
	c := scrapertest.New([]scrapertest.Row{
		{Title: "Red  Shoe\u00a0XL", Code: "货号：\n RS-9", Status: "已下架", Deletable: true},
	})
	c.KeepRows = true

	records, err := New(c, nil, testOptions(), nil).Scan(context.Background(), "u", false)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.Identity{Title: "Red Shoe XL", GoodsNo: "RS-9"}, records[0].Identity())

	err = c.WaitRowGone(context.Background(), records[0].Identity(), 0)
	assert.ErrorIs(t, err, scraper.ErrTimeout)
}

func TestScanMissingDeleteControlDoesNotTouchDialogs(t *testing.T) {
	c := scrapertest.New([]scrapertest.Row{
		{Title: "A", Code: "A1", Marker: "库存紧张"},
	})
	c.ConfirmDialog = true

	records, err := New(c, newExecutor(c), testOptions(), nil).Scan(context.Background(), "u", true)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].Deleted)
	assert.False(t, *records[0].Deleted)
	assert.Empty(t, c.Actions)
}

func TestScanWithoutTable(t *testing.T) {
	c := scrapertest.New()
	_, err := New(c, nil, testOptions(), nil).Scan(context.Background(), "u", false)
	assert.ErrorIs(t, err, scraper.ErrTimeout)
}

func TestClassify(t *testing.T) {
	re := regexp.MustCompile("已下架")
	assert.False(t, Classify(false, "在售", re).AtRisk())
	assert.True(t, Classify(true, "", re).TightInventory)
	assert.True(t, Classify(false, "商品已下架", re).TakenDown)
	assert.False(t, Classify(false, "已下架", nil).AtRisk())
}
