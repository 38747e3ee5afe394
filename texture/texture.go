// Package texture turns texture files into pixels and pixels into preview images.
package texture

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"github.com/pkg/errors"
	"golang.org/x/image/bmp"
)

type ImageDecoder interface {
	// Decode returns the size and 8 bit RGBA pixels of an encoded image.
	Decode(b []byte) (w, h int, rgba []byte, err error)
}

type ImageEncoder interface {
	Encode(w, h int, rgba []byte) ([]byte, error)
	MimeType() string
}

var (
	pngMagic = []byte("\x89PNG\r\n\x1a\n")
	bmpMagic = []byte("BM")
)

// sniff picks a decoder by magic. tga has none, so it takes everything else.
// The image.Decode registry is not used: tga registers an empty magic that
// matches any input.
func sniff(b []byte) (string, func(io.Reader) (image.Image, error)) {
	switch {
	case bytes.HasPrefix(b, pngMagic):
		return "png", png.Decode
	case bytes.HasPrefix(b, bmpMagic):
		return "bmp", bmp.Decode
	}
	return "tga", tga.Decode
}

// StdDecoder reads png, bmp and tga.
type StdDecoder struct{}

func (StdDecoder) Decode(b []byte) (int, int, []byte, error) {
	format, decode := sniff(b)
	img, err := decode(bytes.NewReader(b))
	if err != nil {
		return 0, 0, nil, errors.Wrapf(err, "texture: decode %s", format)
	}
	n := toNRGBA(img)
	r := n.Bounds()
	if r.Empty() {
		return 0, 0, nil, errors.Errorf("texture: empty %s image", format)
	}
	return r.Dx(), r.Dy(), n.Pix, nil
}

// toNRGBA converts any image to a tightly packed NRGBA image at the origin.
func toNRGBA(src image.Image) *image.NRGBA {
	b := src.Bounds()
	if n, ok := src.(*image.NRGBA); ok && b.Min == (image.Point{}) && n.Stride == 4*b.Dx() {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	switch src.(type) {
	case *image.YCbCr, *image.Gray:
		// no alpha
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	default:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				dst.SetNRGBA(x, y, color.NRGBAModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA))
			}
		}
	}
	return dst
}

func fromRGBA(w, h int, rgba []byte) (*image.NRGBA, error) {
	if w <= 0 || h <= 0 || len(rgba) != w*h*4 {
		return nil, errors.Errorf("texture: %d bytes for %dx%d pixels", len(rgba), w, h)
	}
	return &image.NRGBA{Pix: rgba, Stride: w * 4, Rect: image.Rect(0, 0, w, h)}, nil
}

type PNGEncoder struct{}

func (PNGEncoder) Encode(w, h int, rgba []byte) ([]byte, error) {
	img, err := fromRGBA(w, h, rgba)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, errors.Wrap(err, "texture: png encode")
	}
	return buf.Bytes(), nil
}

func (PNGEncoder) MimeType() string {
	return "image/png"
}

// WebPEncoder writes lossless WebP, used for previews served over http.
type WebPEncoder struct{}

func (WebPEncoder) Encode(w, h int, rgba []byte) ([]byte, error) {
	img, err := fromRGBA(w, h, rgba)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := nativewebp.Encode(&buf, img, nil); err != nil {
		return nil, errors.Wrap(err, "texture: webp encode")
	}
	return buf.Bytes(), nil
}

func (WebPEncoder) MimeType() string {
	return "image/webp"
}
