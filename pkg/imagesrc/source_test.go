package imagesrc

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nfnt/resize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/infinipic/pkg/thumbnail"
)

// twoTone is red on the top half and blue on the bottom half
func twoTone(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		c := color.RGBA{R: 255, A: 255}
		if y >= h/2 {
			c = color.RGBA{B: 255, A: 255}
		}
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestParseInterpolation(t *testing.T) {
	for name, want := range map[string]resize.InterpolationFunction{
		"nearest":  resize.NearestNeighbor,
		"Bilinear": resize.Bilinear,
		"lanczos3": resize.Lanczos3,
	} {
		got, err := ParseInterpolation(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseInterpolation("sinc")
	assert.Error(t, err)
}

func TestMatchesAspect(t *testing.T) {
	assert.True(t, MatchesAspect(20, 15))
	assert.True(t, MatchesAspect(4000, 3000))
	assert.True(t, MatchesAspect(1600, 1200))
	assert.False(t, MatchesAspect(3000, 4000))
	assert.False(t, MatchesAspect(1920, 1080))
}

func TestLoad_ResizesAndPacks(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "imagesrc_load_test")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	path := writePNG(t, tmpDir, "two-tone.png", twoTone(64, 48))

	src := NewSource(WithInterpolation(resize.NearestNeighbor))
	r, err := src.Load(path, 16, 12)
	require.NoError(t, err)
	require.Equal(t, 16, r.Width)
	require.Equal(t, 12, r.Height)

	// First stored row is the bottom of the picture: blue, stored B first
	assert.Equal(t, []byte{255, 0, 0}, r.Pix[0:3])
	last := (r.Height - 1) * r.Stride()
	assert.Equal(t, []byte{0, 0, 255}, r.Pix[last:last+3])
}

func TestLoad_KeepsExactSize(t *testing.T) {
	img := twoTone(20, 15)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	r, err := NewSource().Decode(&buf, 20, 15)
	require.NoError(t, err)
	assert.Equal(t, 20*15*3, len(r.Pix))
}

func TestDecode_Garbage(t *testing.T) {
	_, err := NewSource().Decode(strings.NewReader("not an image"), 10, 10)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrAspectMismatch)
}

// withDimensions rewrites the IHDR chunk of an encoded png to declare w x h
func withDimensions(t *testing.T, img image.Image, w, h uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	data := buf.Bytes()
	require.Equal(t, "IHDR", string(data[12:16]))
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestDecode_TooLarge(t *testing.T) {
	src := NewSource()

	huge := withDimensions(t, twoTone(40, 30), 100000, 100000)
	_, err := src.Decode(bytes.NewReader(huge), 40, 30)
	assert.ErrorIs(t, err, ErrTooLarge)

	// a header that fits the budget still decodes
	fits := withDimensions(t, twoTone(40, 30), 40, 30)
	r, err := src.Decode(bytes.NewReader(fits), 40, 30)
	require.NoError(t, err)
	assert.Equal(t, 40, r.Width)
}

func TestWithMaxPixels(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "imagesrc_limit_test")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)
	path := writePNG(t, tmpDir, "photo.png", twoTone(40, 30))

	small := NewSource(WithMaxPixels(40*30 - 1))
	_, err = small.Load(path, 20, 15)
	assert.ErrorIs(t, err, ErrTooLarge)
	_, err = small.Thumbnail(path)
	assert.ErrorIs(t, err, ErrTooLarge)

	exact := NewSource(WithMaxPixels(40 * 30))
	_, err = exact.Thumbnail(path)
	assert.NoError(t, err)

	// non-positive limits keep the default
	assert.Equal(t, DefaultMaxPixels, NewSource(WithMaxPixels(0)).maxPixels)
}

func TestThumbnail(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "imagesrc_thumbnail_test")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	src := NewSource()

	t.Run("accepts 4:3", func(t *testing.T) {
		path := writePNG(t, tmpDir, "landscape.png", twoTone(80, 60))
		th, err := src.Thumbnail(path)
		require.NoError(t, err)
		assert.Equal(t, path, th.DisplayName())
		assert.Len(t, th.Pixels, thumbnail.PixelBytes)
	})

	t.Run("accepts jpeg", func(t *testing.T) {
		path := filepath.Join(tmpDir, "photo.jpg")
		f, err := os.Create(path)
		require.NoError(t, err)
		require.NoError(t, jpeg.Encode(f, twoTone(40, 30), nil))
		require.NoError(t, f.Close())

		_, err = src.Thumbnail(path)
		assert.NoError(t, err)
	})

	t.Run("rejects portrait", func(t *testing.T) {
		path := writePNG(t, tmpDir, "portrait.png", twoTone(60, 80))
		_, err := src.Thumbnail(path)
		assert.ErrorIs(t, err, ErrAspectMismatch)
	})

	t.Run("rejects widescreen", func(t *testing.T) {
		path := writePNG(t, tmpDir, "wide.png", twoTone(160, 90))
		_, err := src.Thumbnail(path)
		assert.ErrorIs(t, err, ErrAspectMismatch)
	})

	t.Run("undecodable file is an error", func(t *testing.T) {
		path := filepath.Join(tmpDir, "broken.jpg")
		require.NoError(t, os.WriteFile(path, []byte("garbage"), 0600))
		_, err := src.Thumbnail(path)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrAspectMismatch)
	})

	t.Run("long path is truncated", func(t *testing.T) {
		dir := filepath.Join(tmpDir, strings.Repeat("d", 120), strings.Repeat("e", 120))
		require.NoError(t, os.MkdirAll(dir, 0750))
		path := writePNG(t, dir, "photo.png", twoTone(20, 15))

		th, err := src.Thumbnail(path)
		require.NoError(t, err)
		assert.Equal(t, path[:thumbnail.NameSize-1], th.DisplayName())
	})
}

func TestOrientation_Apply(t *testing.T) {
	img := twoTone(4, 2) // red top row, blue bottom row

	testCases := []struct {
		o        orientation
		w, h     int
		swapAxes bool
	}{
		{orientationNormal, 4, 2, false},
		{3, 4, 2, false},
		{6, 2, 4, true},
		{8, 2, 4, true},
	}

	for _, tc := range testCases {
		out := tc.o.apply(img)
		assert.Equal(t, tc.w, out.Bounds().Dx(), "orientation %d", tc.o)
		assert.Equal(t, tc.h, out.Bounds().Dy(), "orientation %d", tc.o)
		assert.Equal(t, tc.swapAxes, tc.o.swapsAxes(), "orientation %d", tc.o)
	}

	flipped := orientation(3).apply(img)
	r, _, b, _ := flipped.At(0, 0).RGBA()
	assert.Equal(t, uint32(0), r)
	assert.Equal(t, uint32(0xffff), b)
}

func TestReadOrientation_NoEXIF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, twoTone(4, 3)))
	assert.Equal(t, orientationNormal, readOrientation(&buf))
}
