// Package render turns mosaics and thumbnails back into displayable images.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/nfnt/resize"

	"github.com/ssargent/infinipic/pkg/mosaic"
	"github.com/ssargent/infinipic/pkg/raster"
	"github.com/ssargent/infinipic/pkg/thumbnail"
)

// MaxOutputPixels bounds the size of a rendered image
const MaxOutputPixels = 1 << 25

var (
	ErrScale          = errors.New("scale must be positive")
	ErrOutputTooLarge = fmt.Errorf("rendered image must not exceed %d pixels", MaxOutputPixels)
)

// Render draws every cell's thumbnail at its grid position and scales the
// result. Grid row 0 ends up at the bottom of the picture.
func Render(m *mosaic.Mosaic, scale float64, interp resize.InterpolationFunction) (*image.RGBA, error) {
	if !(scale > 0) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("%w: %v", ErrScale, scale)
	}

	grid := m.Grid()
	w, h := grid.SourceSize()
	sw := math.Max(1, math.Round(float64(w)*scale))
	sh := math.Max(1, math.Round(float64(h)*scale))
	if sw*sh > MaxOutputPixels {
		return nil, fmt.Errorf("%w: %.0fx%.0f", ErrOutputTooLarge, sw, sh)
	}

	canvas := raster.New(w, h)
	for r := 0; r < grid.Rows; r++ {
		for c := 0; c < grid.Cols; c++ {
			t, err := m.Cell(r, c)
			if err != nil {
				return nil, err
			}
			if err := canvas.Put(c*thumbnail.Width, r*thumbnail.Height, thumbnail.Width, thumbnail.Height, t.Pixels[:]); err != nil {
				return nil, err
			}
		}
	}

	img := canvas.ToImage()
	if scale == 1 {
		return img, nil
	}

	return toRGBA(resize.Resize(uint(sw), uint(sh), img, interp)), nil
}

// Thumbnail unpacks a single thumbnail into a top-down image
func Thumbnail(t *thumbnail.Thumbnail) *image.RGBA {
	r := &raster.Raster{Width: thumbnail.Width, Height: thumbnail.Height, Pix: t.Pixels[:]}
	return r.ToImage()
}

// WritePNG encodes img to w
func WritePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// SavePNG writes img to path, creating parent directories as needed
func SavePNG(path string, img image.Image) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return WritePNG(f, img)
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Rect, img, b.Min, draw.Src)
	return out
}
