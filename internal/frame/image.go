package frame

import (
	"fmt"
	"image"
)

// ReadRow fills dst from row y of img. The image width must equal the frame length.
func ReadRow(img *image.RGBA, y int, dst *Frame) error {
	b := img.Bounds()
	if b.Dx() != dst.Len() {
		return fmt.Errorf("row width %d does not match frame length %d", b.Dx(), dst.Len())
	}
	if y < b.Min.Y || y >= b.Max.Y {
		return fmt.Errorf("row %d outside image bounds %v", y, b)
	}
	off := img.PixOffset(b.Min.X, y)
	for x := 0; x < dst.Len(); x++ {
		p := off + x*4
		dst.R[x] = img.Pix[p]
		dst.G[x] = img.Pix[p+1]
		dst.B[x] = img.Pix[p+2]
	}
	return nil
}

// WriteRow stores src as opaque pixels in row y of img.
func WriteRow(img *image.RGBA, y int, src *Frame) error {
	b := img.Bounds()
	if b.Dx() != src.Len() {
		return fmt.Errorf("frame length %d does not match row width %d", src.Len(), b.Dx())
	}
	if y < b.Min.Y || y >= b.Max.Y {
		return fmt.Errorf("row %d outside image bounds %v", y, b)
	}
	off := img.PixOffset(b.Min.X, y)
	for x := 0; x < src.Len(); x++ {
		p := off + x*4
		img.Pix[p] = src.R[x]
		img.Pix[p+1] = src.G[x]
		img.Pix[p+2] = src.B[x]
		img.Pix[p+3] = 0xff
	}
	return nil
}
