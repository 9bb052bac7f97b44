package mosaic

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/infinipic/pkg/corpus"
	"github.com/ssargent/infinipic/pkg/raster"
	"github.com/ssargent/infinipic/pkg/thumbnail"
)

// levelsCorpus holds uniform thumbnails at 0, 16, 32, ... 240
func levelsCorpus(t *testing.T) *corpus.Corpus {
	t.Helper()
	c := corpus.New()
	for v := 0; v < 256; v += 16 {
		px := thumbnail.Fill(byte(v))
		th, err := thumbnail.New(fmt.Sprintf("level-%03d", v), px[:])
		require.NoError(t, err)
		c.Add(th)
	}
	return c
}

// gradientSource fills each tile with a uniform value derived from its cell
func gradientSource(grid Grid, value func(r, c int) byte) *raster.Raster {
	w, h := grid.SourceSize()
	src := raster.New(w, h)
	stride := src.Stride()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := value(y/thumbnail.Height, x/thumbnail.Width)
			for ch := 0; ch < raster.Channels; ch++ {
				src.Pix[y*stride+x*raster.Channels+ch] = v
			}
		}
	}
	return src
}

func TestGrid(t *testing.T) {
	w, h := DefaultGrid.SourceSize()
	assert.Equal(t, 1600, w)
	assert.Equal(t, 1200, h)
	assert.Equal(t, 6400, DefaultGrid.Cells())

	assert.NoError(t, DefaultGrid.Validate())
	assert.ErrorIs(t, Grid{Rows: 0, Cols: 3}.Validate(), ErrGrid)
}

func TestBuild_CanonicalShape(t *testing.T) {
	c := levelsCorpus(t)
	src := gradientSource(DefaultGrid, func(r, col int) byte { return byte((r + col) % 256) })

	m, err := Build(context.Background(), src, c, Options{})
	require.NoError(t, err)

	assert.Equal(t, DefaultGrid, m.Grid())
	assert.Same(t, c, m.Corpus())
	for r := 0; r < 80; r++ {
		for col := 0; col < 80; col++ {
			th, err := m.Cell(r, col)
			require.NoError(t, err)
			require.NotNil(t, th)

			idx, err := m.Index(r, col)
			require.NoError(t, err)
			assert.True(t, idx >= 0 && idx < c.Len())
		}
	}
}

func TestBuild_PicksNearestPerTile(t *testing.T) {
	grid := Grid{Rows: 4, Cols: 4}
	c := levelsCorpus(t)
	src := gradientSource(grid, func(r, col int) byte { return byte(16 * (r*grid.Cols + col)) })

	m, err := Build(context.Background(), src, c, Options{Grid: grid})
	require.NoError(t, err)

	for r := 0; r < grid.Rows; r++ {
		for col := 0; col < grid.Cols; col++ {
			th, err := m.Cell(r, col)
			require.NoError(t, err)
			assert.Equal(t, fmt.Sprintf("level-%03d", 16*(r*grid.Cols+col)), th.DisplayName())

			score, err := m.Score(r, col)
			require.NoError(t, err)
			assert.Equal(t, uint64(0), score)
		}
	}
	assert.Equal(t, uint64(0), m.TotalScore())
	assert.Equal(t, 16, m.Distinct())
}

func TestBuild_TieBreakFollowsCorpusOrder(t *testing.T) {
	grid := Grid{Rows: 1, Cols: 1}
	c := corpus.New()
	for _, name := range []string{"first", "second"} {
		px := thumbnail.Fill(10)
		th, err := thumbnail.New(name, px[:])
		require.NoError(t, err)
		c.Add(th)
	}

	m, err := Build(context.Background(), gradientSource(grid, func(int, int) byte { return 10 }), c, Options{Grid: grid})
	require.NoError(t, err)
	th, err := m.Cell(0, 0)
	require.NoError(t, err)
	assert.Equal(t, "first", th.DisplayName())
}

func TestBuild_ParallelMatchesSequential(t *testing.T) {
	grid := Grid{Rows: 12, Cols: 9}
	c := levelsCorpus(t)
	src := gradientSource(grid, func(r, col int) byte { return byte(r*29 + col*13) })

	seq, err := Build(context.Background(), src, c, Options{Grid: grid, Workers: 1})
	require.NoError(t, err)
	par, err := Build(context.Background(), src, c, Options{Grid: grid, Workers: 8})
	require.NoError(t, err)

	assert.Equal(t, seq.cells, par.cells)
	assert.Equal(t, seq.scores, par.scores)
	assert.NotEqual(t, seq.ID(), par.ID())
}

func TestBuild_EmptyCorpus(t *testing.T) {
	grid := Grid{Rows: 2, Cols: 2}
	m, err := Build(context.Background(), gradientSource(grid, func(int, int) byte { return 0 }), corpus.New(), Options{Grid: grid})
	assert.ErrorIs(t, err, corpus.ErrEmptyCorpus)
	assert.Nil(t, m)
}

func TestBuild_SourceSizeMismatch(t *testing.T) {
	_, err := Build(context.Background(), raster.New(1600, 1199), levelsCorpus(t), Options{})
	assert.ErrorIs(t, err, ErrSourceSize)
}

func TestBuild_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	grid := Grid{Rows: 3, Cols: 3}
	_, err := Build(ctx, gradientSource(grid, func(int, int) byte { return 0 }), levelsCorpus(t), Options{Grid: grid})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCell_OutOfRange(t *testing.T) {
	grid := Grid{Rows: 2, Cols: 3}
	m, err := Build(context.Background(), gradientSource(grid, func(int, int) byte { return 0 }), levelsCorpus(t), Options{Grid: grid})
	require.NoError(t, err)

	for _, rc := range [][2]int{{-1, 0}, {2, 0}, {0, 3}, {0, -1}} {
		_, err := m.Cell(rc[0], rc[1])
		assert.ErrorIs(t, err, ErrCellOutOfRange)
		_, err = m.Index(rc[0], rc[1])
		assert.ErrorIs(t, err, ErrCellOutOfRange)
		_, err = m.Score(rc[0], rc[1])
		assert.ErrorIs(t, err, ErrCellOutOfRange)
	}
}
