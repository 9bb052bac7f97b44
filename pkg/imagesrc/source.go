// Package imagesrc decodes image files and resamples them into the packed
// rasters and thumbnails the corpus and the mosaic work with.
package imagesrc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/ssargent/infinipic/pkg/raster"
	"github.com/ssargent/infinipic/pkg/thumbnail"
)

// DefaultMaxPixels bounds the decoded size of a single image
const DefaultMaxPixels = 1 << 26

var (
	// ErrAspectMismatch marks images whose shape differs from the thumbnail shape
	ErrAspectMismatch = errors.New("image aspect ratio does not match thumbnail")
	// ErrTooLarge marks images whose header declares more pixels than the source accepts
	ErrTooLarge = errors.New("image dimensions too large")
)

var interpolations = map[string]resize.InterpolationFunction{
	"nearest":  resize.NearestNeighbor,
	"bilinear": resize.Bilinear,
	"bicubic":  resize.Bicubic,
	"mitchell": resize.MitchellNetravali,
	"lanczos2": resize.Lanczos2,
	"lanczos3": resize.Lanczos3,
}

// ParseInterpolation maps a configuration name to a resampling function
func ParseInterpolation(name string) (resize.InterpolationFunction, error) {
	interp, ok := interpolations[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("unknown interpolation %q", name)
	}
	return interp, nil
}

// Source loads images from disk or memory
type Source struct {
	interp      resize.InterpolationFunction
	respectEXIF bool
	maxPixels   int
}

// Option configures a Source
type Option func(*Source)

// WithInterpolation sets the resampling function
func WithInterpolation(interp resize.InterpolationFunction) Option {
	return func(s *Source) {
		s.interp = interp
	}
}

// WithEXIFOrientation makes the source rotate images according to their EXIF
// orientation tag before any size check or resampling.
func WithEXIFOrientation(enabled bool) Option {
	return func(s *Source) {
		s.respectEXIF = enabled
	}
}

// WithMaxPixels sets the largest width*height the source will decode
func WithMaxPixels(n int) Option {
	return func(s *Source) {
		if n > 0 {
			s.maxPixels = n
		}
	}
}

// NewSource creates a source using bilinear resampling
func NewSource(opts ...Option) *Source {
	s := &Source{interp: resize.Bilinear, maxPixels: DefaultMaxPixels}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load decodes the image at path and resamples it to exactly width x height
func (s *Source) Load(path string, width, height int) (*raster.Raster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return s.decodeBytes(data, width, height)
}

// Decode reads an encoded image from r and resamples it to exactly width x height
func (s *Source) Decode(r io.Reader, width, height int) (*raster.Raster, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return s.decodeBytes(data, width, height)
}

// Thumbnail builds a corpus thumbnail from the image at path. Images whose
// aspect ratio is not Width:Height fail with ErrAspectMismatch before being
// fully decoded.
func (s *Source) Thumbnail(path string) (thumbnail.Thumbnail, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return thumbnail.Thumbnail{}, fmt.Errorf("failed to read image: %w", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return thumbnail.Thumbnail{}, fmt.Errorf("failed to decode image header: %w", err)
	}
	o := s.orientation(data)
	w, h := cfg.Width, cfg.Height
	if o.swapsAxes() {
		w, h = h, w
	}
	if !MatchesAspect(w, h) {
		return thumbnail.Thumbnail{}, fmt.Errorf("%w: %dx%d", ErrAspectMismatch, w, h)
	}

	r, err := s.decodeBytes(data, thumbnail.Width, thumbnail.Height)
	if err != nil {
		return thumbnail.Thumbnail{}, err
	}
	return thumbnail.New(path, r.Pix)
}

// MatchesAspect reports whether a width x height image has the thumbnail shape
func MatchesAspect(width, height int) bool {
	return width*thumbnail.Height == height*thumbnail.Width
}

func (s *Source) decodeBytes(data []byte, width, height int) (*raster.Raster, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > s.maxPixels/cfg.Height {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, cfg.Width, cfg.Height, s.maxPixels)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	img = s.orientation(data).apply(img)

	if b := img.Bounds(); b.Dx() != width || b.Dy() != height {
		img = resize.Resize(uint(width), uint(height), img, s.interp)
	}
	return raster.FromImage(img), nil
}

func (s *Source) orientation(data []byte) orientation {
	if !s.respectEXIF {
		return orientationNormal
	}
	return readOrientation(bytes.NewReader(data))
}
