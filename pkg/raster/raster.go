// Package raster holds packed BGR pixel buffers in the row order used by the
// thumbnail corpus: rows run bottom-to-top.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// Channels is the number of bytes per pixel (B, G, R)
const Channels = 3

var ErrBounds = errors.New("tile outside raster bounds")

// Raster is a packed BGR image. Row 0 of Pix is the bottom row of the picture.
type Raster struct {
	Width  int
	Height int
	Pix    []byte
}

// New allocates a black raster
func New(width, height int) *Raster {
	return &Raster{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*Channels),
	}
}

// Stride returns the number of bytes per row
func (r *Raster) Stride() int {
	return r.Width * Channels
}

// FromImage packs img into a raster of the same size, flipping rows so the
// bottom of the picture comes first.
func FromImage(img image.Image) *Raster {
	b := img.Bounds()
	src, ok := img.(*image.RGBA)
	if !ok || src.Rect.Min != (image.Point{}) {
		src = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(src, src.Rect, img, b.Min, draw.Src)
	}

	r := New(b.Dx(), b.Dy())
	stride := r.Stride()
	for y := 0; y < r.Height; y++ {
		in := src.Pix[y*src.Stride : y*src.Stride+r.Width*4]
		out := r.Pix[(r.Height-1-y)*stride : (r.Height-y)*stride]
		for x := 0; x < r.Width; x++ {
			out[x*3+0] = in[x*4+2]
			out[x*3+1] = in[x*4+1]
			out[x*3+2] = in[x*4+0]
		}
	}
	return r
}

// ToImage unpacks the raster into a top-down RGBA image
func (r *Raster) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	stride := r.Stride()
	for y := 0; y < r.Height; y++ {
		row := r.Pix[(r.Height-1-y)*stride : (r.Height-y)*stride]
		for x := 0; x < r.Width; x++ {
			img.SetRGBA(x, y, color.RGBA{R: row[x*3+2], G: row[x*3+1], B: row[x*3+0], A: 0xff})
		}
	}
	return img
}

// Tile copies the w x h block whose lower-left pixel is (x, y), counted in
// stored row order, into dst. dst uses the same layout and must hold
// w*h*Channels bytes.
func (r *Raster) Tile(x, y, w, h int, dst []byte) error {
	if x < 0 || y < 0 || x+w > r.Width || y+h > r.Height {
		return fmt.Errorf("%w: %dx%d at (%d,%d) in %dx%d", ErrBounds, w, h, x, y, r.Width, r.Height)
	}
	if len(dst) != w*h*Channels {
		return fmt.Errorf("tile buffer holds %d bytes, need %d", len(dst), w*h*Channels)
	}

	stride := r.Stride()
	rowBytes := w * Channels
	for ty := 0; ty < h; ty++ {
		start := (y+ty)*stride + x*Channels
		copy(dst[ty*rowBytes:(ty+1)*rowBytes], r.Pix[start:start+rowBytes])
	}
	return nil
}

// Put is the inverse of Tile: it copies src into the w x h block whose
// lower-left pixel is (x, y).
func (r *Raster) Put(x, y, w, h int, src []byte) error {
	if x < 0 || y < 0 || x+w > r.Width || y+h > r.Height {
		return fmt.Errorf("%w: %dx%d at (%d,%d) in %dx%d", ErrBounds, w, h, x, y, r.Width, r.Height)
	}
	if len(src) != w*h*Channels {
		return fmt.Errorf("tile buffer holds %d bytes, need %d", len(src), w*h*Channels)
	}

	stride := r.Stride()
	rowBytes := w * Channels
	for ty := 0; ty < h; ty++ {
		start := (y+ty)*stride + x*Channels
		copy(r.Pix[start:start+rowBytes], src[ty*rowBytes:(ty+1)*rowBytes])
	}
	return nil
}
