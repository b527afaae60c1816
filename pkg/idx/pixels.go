package idx

import (
	"image"
	"image/color"
	"strconv"
)

// PixelBuffer is an opaque grayscale image stored as packed ARGB words,
// row-major. Each gray value is the inverted raw intensity, so ink is dark
// on a white background.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []uint32
}

// InvertGray maps a raw IDX intensity to its displayed gray value.
func InvertGray(raw byte) uint8 {
	return 255 - raw
}

// PackGray packs a gray value as an opaque ARGB word.
func PackGray(g uint8) uint32 {
	v := uint32(g)
	return 0xFF000000 | v<<16 | v<<8 | v
}

func newPixelBuffer(raw []byte, width, height int) PixelBuffer {
	pix := make([]uint32, len(raw))
	for i, b := range raw {
		pix[i] = PackGray(InvertGray(b))
	}
	return PixelBuffer{Width: width, Height: height, Pix: pix}
}

// At returns the packed pixel at column x, row y.
func (p PixelBuffer) At(x, y int) uint32 {
	return p.Pix[y*p.Width+x]
}

// Gray returns the gray value of the i-th pixel.
func (p PixelBuffer) Gray(i int) uint8 {
	return uint8(p.Pix[i])
}

// Image converts the buffer to an image.Gray for encoders.
func (p PixelBuffer) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, p.Width, p.Height))
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(p.At(x, y))})
		}
	}
	return img
}

// Record is one decoded image with its label.
type Record struct {
	Index  int
	Pixels PixelBuffer
	Label  string
	Digit  uint8
}

func labelString(b byte) string {
	return strconv.Itoa(int(b))
}
