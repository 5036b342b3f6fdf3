package navigator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ListingSweeper/internal/scraper/scrapertest"
)

var fastOptions = Options{
	NextSettle:         0,
	PageChange:         time.Millisecond,
	PageChangeFallback: time.Millisecond,
}

func pages(n int) [][]scrapertest.Row {
	out := make([][]scrapertest.Row, n)
	for i := range out {
		out[i] = []scrapertest.Row{{Title: string(rune('A' + i)), Code: "C"}}
	}
	return out
}

func collect(t *testing.T, n *Navigator) []Page {
	t.Helper()
	var visited []Page
	err := n.Run(context.Background(), func(ctx context.Context, p Page) error {
		visited = append(visited, p)
		return nil
	})
	require.NoError(t, err)
	return visited
}

func TestRunVisitsEveryPage(t *testing.T) {
	c := scrapertest.New(pages(3)...)
	nav := New(c, fastOptions, nil)

	visited := collect(t, nav)

	assert.Equal(t, []Page{{1, 3}, {2, 3}, {3, 3}}, visited)
	assert.Equal(t, []string{"next", "next"}, c.Actions)
	state := nav.State()
	assert.Equal(t, 3, state.Current)
	assert.Len(t, state.Visited, 3)
}

func TestCycleGuardStopsOnRepeatedIndicator(t *testing.T) {
	c := scrapertest.New(pages(3)...)
	c.StuckNext = true

	visited := collect(t, New(c, fastOptions, nil))

	assert.Equal(t, []Page{{1, 3}}, visited)
	assert.Equal(t, []string{"next"}, c.Actions)
}

func TestBrokenIndicatorIsSinglePage(t *testing.T) {
	c := scrapertest.New(pages(3)...)
	c.Indicator = scrapertest.String("loading…")
	c.HighlightText = scrapertest.String("")

	visited := collect(t, New(c, fastOptions, nil))

	assert.Equal(t, []Page{{1, 1}}, visited)
	assert.Empty(t, c.Actions)
}

func TestFallbackPageControls(t *testing.T) {
	c := scrapertest.New(pages(1)...)
	c.Indicator = scrapertest.String("")
	c.HighlightText = scrapertest.String(" 2 ")
	c.LastText = scrapertest.String("4")
	c.NextDisabled = true

	visited := collect(t, New(c, fastOptions, nil))

	assert.Equal(t, []Page{{2, 4}}, visited)
}

func TestDisabledNextIsTerminal(t *testing.T) {
	c := scrapertest.New(pages(3)...)
	c.NextDisabled = true

	visited := collect(t, New(c, fastOptions, nil))

	assert.Len(t, visited, 1)
	assert.Empty(t, c.Actions)
}

func TestUnchangedFirstRowFallsBackAndContinues(t *testing.T) {
	same := []scrapertest.Row{{Title: "Same", Code: "S"}}
	c := scrapertest.New(same, same)

	visited := collect(t, New(c, fastOptions, nil))

	assert.Equal(t, []Page{{1, 2}, {2, 2}}, visited)
}

func TestVisitErrorStopsRun(t *testing.T) {
	c := scrapertest.New(pages(3)...)
	boom := errors.New("disk full")

	err := New(c, fastOptions, nil).Run(context.Background(), func(ctx context.Context, p Page) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Empty(t, c.Actions)
}
