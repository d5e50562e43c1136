package ax206

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// encodeRGB565 packs one rectangle of the image into the panel's byte order:
// high byte first, r5 g6 b5. This is the packing the controller expects on
// the blit payload.
func encodeRGB565(img image.Image, rect image.Rectangle) []byte {
	out := make([]byte, rect.Dx()*rect.Dy()*2)
	n := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			r8 := byte(r >> 8)
			g8 := byte(g >> 8)
			b8 := byte(b >> 8)
			out[n] = (r8 & 0xf8) | ((g8 & 0xe0) >> 5)
			out[n+1] = ((g8 & 0x1c) << 3) | ((b8 & 0xf8) >> 3)
			n += 2
		}
	}
	return out
}

// fitToPanel rescales the frame to the negotiated panel size when the
// configured canvas differs, preserving aspect ratio and centering on black
// bars. Nearest-neighbor keeps 1-px widget borders crisp.
func fitToPanel(img image.Image, width, height int) (image.Image, bool) {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height && b.Min == (image.Point{}) {
		return img, false
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.RGBA{A: 0xff}), image.Point{}, draw.Src)

	scale := math.Min(float64(width)/float64(b.Dx()), float64(height)/float64(b.Dy()))
	w := int(float64(b.Dx())*scale + 0.5)
	h := int(float64(b.Dy())*scale + 0.5)
	x0 := (width - w) / 2
	y0 := (height - h) / 2
	draw.NearestNeighbor.Scale(dst, image.Rect(x0, y0, x0+w, y0+h), img, b, draw.Src, nil)
	return dst, b.Dx() != width || b.Dy() != height
}
