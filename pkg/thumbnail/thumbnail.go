// Package thumbnail defines the fixed-layout thumbnail record stored in the
// corpus file and the pixel distance used to compare thumbnails.
//
// # Layout
//
// A thumbnail encodes to exactly EncodedSize bytes with no padding:
//
//	[Name(256)][Pixels(900)]
//
// Name is NUL padded and holds at most 255 bytes. Pixels holds Width x Height
// pixels of Channels bytes each, in B, G, R order. Rows run bottom-to-top: the
// first Width*Channels bytes are the bottom row of the picture.
package thumbnail

import (
	"bytes"
	"fmt"
)

const (
	Width      = 20
	Height     = 15
	Channels   = 3
	PixelBytes = Width * Height * Channels

	// NameSize is the capacity of the name field, including the terminating NUL.
	NameSize = 256

	// EncodedSize is the size of one thumbnail record payload.
	EncodedSize = NameSize + PixelBytes
)

// Errors
var (
	ErrPixelSize   = fmt.Errorf("thumbnail pixel buffer must be %d bytes", PixelBytes)
	ErrEncodedSize = fmt.Errorf("encoded thumbnail must be %d bytes", EncodedSize)
)

// Pixels is a BGR, bottom-to-top raster of one thumbnail or tile
type Pixels = [PixelBytes]byte

// Thumbnail is a named fixed-size pixel raster
type Thumbnail struct {
	Name   [NameSize]byte
	Pixels Pixels
}

// New builds a thumbnail. Names longer than NameSize-1 bytes are truncated.
func New(name string, pixels []byte) (Thumbnail, error) {
	var t Thumbnail
	if len(pixels) != PixelBytes {
		return t, fmt.Errorf("%w: got %d", ErrPixelSize, len(pixels))
	}
	t.SetName(name)
	copy(t.Pixels[:], pixels)
	return t, nil
}

// SetName stores name, truncated so the field stays NUL terminated
func (t *Thumbnail) SetName(name string) {
	t.Name = [NameSize]byte{}
	copy(t.Name[:NameSize-1], name)
}

// DisplayName returns the name up to the first NUL
func (t *Thumbnail) DisplayName() string {
	if i := bytes.IndexByte(t.Name[:], 0); i >= 0 {
		return string(t.Name[:i])
	}
	return string(t.Name[:])
}

// AppendBinary appends the encoded thumbnail to b
func (t *Thumbnail) AppendBinary(b []byte) ([]byte, error) {
	b = append(b, t.Name[:]...)
	return append(b, t.Pixels[:]...), nil
}

// MarshalBinary encodes the thumbnail into EncodedSize bytes
func (t *Thumbnail) MarshalBinary() ([]byte, error) {
	return t.AppendBinary(make([]byte, 0, EncodedSize))
}

// UnmarshalBinary decodes exactly EncodedSize bytes
func (t *Thumbnail) UnmarshalBinary(data []byte) error {
	if len(data) != EncodedSize {
		return fmt.Errorf("%w: got %d", ErrEncodedSize, len(data))
	}
	*t = Decode((*[EncodedSize]byte)(data))
	return nil
}

// Decode splits an encoded record into its name and pixel fields
func Decode(data *[EncodedSize]byte) Thumbnail {
	var t Thumbnail
	copy(t.Name[:], data[:NameSize])
	copy(t.Pixels[:], data[NameSize:])
	return t
}

// Distance is the sum over every channel byte of the squared difference
func Distance(a, b *Pixels) uint64 {
	var sum uint64
	for i := range a {
		d := int32(a[i]) - int32(b[i])
		sum += uint64(d * d)
	}
	return sum
}

// Fill returns pixels with every channel byte set to v
func Fill(v byte) Pixels {
	var p Pixels
	for i := range p {
		p[i] = v
	}
	return p
}
