// Package mosaic approximates a source raster with a grid of corpus thumbnails.
package mosaic

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"
	"golang.org/x/sync/errgroup"

	"github.com/ssargent/infinipic/pkg/corpus"
	"github.com/ssargent/infinipic/pkg/metrics"
	"github.com/ssargent/infinipic/pkg/raster"
	"github.com/ssargent/infinipic/pkg/thumbnail"
)

// Errors
var (
	ErrSourceSize     = errors.New("source raster does not match grid")
	ErrCellOutOfRange = errors.New("mosaic cell out of range")
	ErrGrid           = errors.New("grid must have at least one row and column")
)

// Grid is the number of tile rows and columns
type Grid struct {
	Rows int `yaml:"rows"`
	Cols int `yaml:"cols"`
}

// DefaultGrid tiles a 1600x1200 source with 20x15 thumbnails
var DefaultGrid = Grid{Rows: 80, Cols: 80}

// SourceSize returns the source raster dimensions the grid expects
func (g Grid) SourceSize() (width, height int) {
	return g.Cols * thumbnail.Width, g.Rows * thumbnail.Height
}

// Cells returns the number of cells in the grid
func (g Grid) Cells() int {
	return g.Rows * g.Cols
}

// Validate checks the grid has a positive size
func (g Grid) Validate() error {
	if g.Rows <= 0 || g.Cols <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrGrid, g.Rows, g.Cols)
	}
	return nil
}

// Options configures Build
type Options struct {
	Grid    Grid
	Workers int // 0 means runtime.NumCPU()
	Logger  *zerolog.Logger
	Metrics *metrics.Metrics
}

// Mosaic is a grid of corpus indices. It keeps the corpus it was built from
// alive; the corpus must not be restored while the mosaic is in use.
type Mosaic struct {
	id        ksuid.KSUID
	grid      Grid
	corpus    *corpus.Corpus
	cells     []int
	scores    []uint64
	createdAt time.Time
}

// Build matches every tile of src against c. Row 0 of the grid is the bottom
// tile row, matching the stored row order of src.
func Build(ctx context.Context, src *raster.Raster, c *corpus.Corpus, opts Options) (*Mosaic, error) {
	grid := opts.Grid
	if grid == (Grid{}) {
		grid = DefaultGrid
	}
	if err := grid.Validate(); err != nil {
		return nil, err
	}

	w, h := grid.SourceSize()
	if src.Width != w || src.Height != h {
		return nil, fmt.Errorf("%w: got %dx%d, want %dx%d", ErrSourceSize, src.Width, src.Height, w, h)
	}
	if c.Len() == 0 {
		return nil, fmt.Errorf("cannot build mosaic: %w", corpus.ErrEmptyCorpus)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	start := time.Now()
	m := &Mosaic{
		id:     ksuid.New(),
		grid:   grid,
		corpus: c,
		cells:  make([]int, grid.Cells()),
		scores: make([]uint64, grid.Cells()),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for r := 0; r < grid.Rows; r++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return m.buildRow(src, r)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m.createdAt = time.Now()
	elapsed := m.createdAt.Sub(start)
	opts.Metrics.ObserveMosaicBuild(elapsed)
	if opts.Logger != nil {
		opts.Logger.Info().
			Str("mosaic", m.id.String()).
			Int("rows", grid.Rows).
			Int("cols", grid.Cols).
			Int("corpus", c.Len()).
			Int("distinct", m.Distinct()).
			Dur("duration", elapsed).
			Msg("mosaic built")
	}
	return m, nil
}

// buildRow resolves every cell of tile row r. Each row writes a disjoint
// slice of cells and scores.
func (m *Mosaic) buildRow(src *raster.Raster, r int) error {
	var tile thumbnail.Pixels
	for col := 0; col < m.grid.Cols; col++ {
		if err := src.Tile(col*thumbnail.Width, r*thumbnail.Height, thumbnail.Width, thumbnail.Height, tile[:]); err != nil {
			return err
		}
		match, err := m.corpus.FindClosest(&tile)
		if err != nil {
			return fmt.Errorf("cell (%d,%d): %w", r, col, err)
		}
		i := r*m.grid.Cols + col
		m.cells[i] = match.Index
		m.scores[i] = match.Score
	}
	return nil
}

// ID returns the unique id of the mosaic
func (m *Mosaic) ID() ksuid.KSUID {
	return m.id
}

// Grid returns the grid dimensions
func (m *Mosaic) Grid() Grid {
	return m.grid
}

// Corpus returns the corpus the cells index into
func (m *Mosaic) Corpus() *corpus.Corpus {
	return m.corpus
}

// CreatedAt returns when the build finished
func (m *Mosaic) CreatedAt() time.Time {
	return m.createdAt
}

func (m *Mosaic) offset(r, c int) (int, error) {
	if r < 0 || r >= m.grid.Rows || c < 0 || c >= m.grid.Cols {
		return 0, fmt.Errorf("%w: (%d,%d) in %dx%d", ErrCellOutOfRange, r, c, m.grid.Rows, m.grid.Cols)
	}
	return r*m.grid.Cols + c, nil
}

// Index returns the corpus index chosen for cell (r, c)
func (m *Mosaic) Index(r, c int) (int, error) {
	i, err := m.offset(r, c)
	if err != nil {
		return 0, err
	}
	return m.cells[i], nil
}

// Score returns the distance between cell (r, c) and its thumbnail
func (m *Mosaic) Score(r, c int) (uint64, error) {
	i, err := m.offset(r, c)
	if err != nil {
		return 0, err
	}
	return m.scores[i], nil
}

// Cell returns the thumbnail chosen for cell (r, c)
func (m *Mosaic) Cell(r, c int) (*thumbnail.Thumbnail, error) {
	idx, err := m.Index(r, c)
	if err != nil {
		return nil, err
	}
	return m.corpus.At(idx)
}

// TotalScore sums the scores of every cell
func (m *Mosaic) TotalScore() uint64 {
	var total uint64
	for _, s := range m.scores {
		total += s
	}
	return total
}

// Distinct returns how many different thumbnails the mosaic uses
func (m *Mosaic) Distinct() int {
	seen := make(map[int]struct{}, len(m.cells))
	for _, idx := range m.cells {
		seen[idx] = struct{}{}
	}
	return len(seen)
}
