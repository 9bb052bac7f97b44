package imagesrc

import (
	"image"
	"io"

	"github.com/disintegration/gift"
	"github.com/rwcarlsen/goexif/exif"
)

// orientation is the value of the EXIF Orientation tag
type orientation int

const orientationNormal orientation = 1

// readOrientation returns the EXIF orientation of an encoded image, or
// orientationNormal when there is none
func readOrientation(r io.Reader) orientation {
	x, err := exif.Decode(r)
	if err != nil {
		return orientationNormal
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return orientationNormal
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return orientationNormal
	}
	return orientation(v)
}

// swapsAxes reports whether displaying the image swaps width and height
func (o orientation) swapsAxes() bool {
	return o >= 5 && o <= 8
}

func (o orientation) filter() gift.Filter {
	switch o {
	case 2:
		return gift.FlipHorizontal()
	case 3:
		return gift.Rotate180()
	case 4:
		return gift.FlipVertical()
	case 5:
		return gift.Transpose()
	case 6:
		return gift.Rotate270()
	case 7:
		return gift.Transverse()
	case 8:
		return gift.Rotate90()
	}
	return nil
}

// apply returns img as it should be displayed
func (o orientation) apply(img image.Image) image.Image {
	f := o.filter()
	if f == nil {
		return img
	}
	g := gift.New(f)
	dst := image.NewRGBA(g.Bounds(img.Bounds()))
	g.Draw(dst, img)
	return dst
}
