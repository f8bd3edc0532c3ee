// Package yuv wraps decoded picture planes as a planar 4:2:0 image.
package yuv

import (
	"image"
	"image/color"

	"github.com/ugparu/godec"
	"golang.org/x/image/draw"
)

// Image represents a planar 4:2:0 frame.
type Image struct {
	Y, Cb, Cr []byte
	YStride   int
	CStride   int
	Rect      image.Rectangle
}

// FromPicture wraps a picture's planes without copying. The wrapped
// planes stay owned by the engine: the image is only valid as long as
// the picture is. Use Clone to keep it longer.
func FromPicture(pic *godec.Picture) *Image {
	return &Image{
		Y:       pic.Planes[0],
		Cb:      pic.Planes[1],
		Cr:      pic.Planes[2],
		YStride: pic.Strides[0],
		CStride: pic.Strides[1],
		Rect:    image.Rect(0, 0, pic.Width, pic.Height),
	}
}

// ColorModel returns the YCbCr color model.
func (*Image) ColorModel() color.Model {
	return color.YCbCrModel
}

// Bounds returns the rectangle of the image.
func (img *Image) Bounds() image.Rectangle {
	return img.Rect
}

// At returns the color at the specified pixel coordinates (x, y).
func (img *Image) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(img.Rect)) {
		return color.YCbCr{}
	}
	yi := (y-img.Rect.Min.Y)*img.YStride + (x - img.Rect.Min.X)
	ci := (y-img.Rect.Min.Y)/2*img.CStride + (x-img.Rect.Min.X)/2
	return color.YCbCr{Y: img.Y[yi], Cb: img.Cb[ci], Cr: img.Cr[ci]}
}

// Opaque reports whether the image is opaque.
func (*Image) Opaque() bool {
	return true
}

// Clone copies the planes into caller-owned memory, detaching the image
// from the engine's buffer ring.
func (img *Image) Clone() *Image {
	cl := &Image{
		Y:       make([]byte, len(img.Y)),
		Cb:      make([]byte, len(img.Cb)),
		Cr:      make([]byte, len(img.Cr)),
		YStride: img.YStride,
		CStride: img.CStride,
		Rect:    img.Rect,
	}
	copy(cl.Y, img.Y)
	copy(cl.Cb, img.Cb)
	copy(cl.Cr, img.Cr)
	return cl
}

// Thumbnail scales src into an RGBA image that fits maxW by maxH while
// keeping its aspect ratio. Images already inside the box are converted
// at their original size.
func Thumbnail(src image.Image, maxW, maxH int) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > maxW {
		h = h * maxW / w
		w = maxW
	}
	if h > maxH {
		w = w * maxH / h
		h = maxH
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
