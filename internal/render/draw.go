package render

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Rasterization primitives. Everything paints straight into the frame's RGBA
// buffer; clipping is the caller's job via widget rect validation.

func fillRect(img *image.RGBA, rect image.Rectangle, c color.RGBA) {
	draw.Draw(img, rect.Intersect(img.Bounds()), image.NewUniform(c), image.Point{}, draw.Src)
}

func strokeRect(img *image.RGBA, rect image.Rectangle, c color.RGBA) {
	if rect.Empty() {
		return
	}
	hLine(img, rect.Min.X, rect.Max.X-1, rect.Min.Y, c)
	hLine(img, rect.Min.X, rect.Max.X-1, rect.Max.Y-1, c)
	vLine(img, rect.Min.X, rect.Min.Y, rect.Max.Y-1, c)
	vLine(img, rect.Max.X-1, rect.Min.Y, rect.Max.Y-1, c)
}

func hLine(img *image.RGBA, x0, x1, y int, c color.RGBA) {
	for x := x0; x <= x1; x++ {
		setPixel(img, x, y, c)
	}
}

func vLine(img *image.RGBA, x, y0, y1 int, c color.RGBA) {
	for y := y0; y <= y1; y++ {
		setPixel(img, x, y, c)
	}
}

// line draws between two arbitrary points (Bresenham).
func line(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		setPixel(img, x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// polyline connects consecutive points left to right.
func polyline(img *image.RGBA, pts []image.Point, c color.RGBA) {
	for i := 1; i < len(pts); i++ {
		line(img, pts[i-1].X, pts[i-1].Y, pts[i].X, pts[i].Y, c)
	}
}

// progressBar paints a bordered bar filled proportionally to frac in [0,1].
func progressBar(img *image.RGBA, rect image.Rectangle, frac float64, fill color.RGBA) {
	bg := color.RGBA{R: 0x1e, G: 0x1e, B: 0x1e, A: 0xff}
	border := color.RGBA{R: 0x64, G: 0x64, B: 0x64, A: 0xff}

	fillRect(img, rect, bg)
	if frac > 0 {
		w := int(frac*float64(rect.Dx()) + 0.5)
		if w > rect.Dx() {
			w = rect.Dx()
		}
		fillRect(img, image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+w, rect.Max.Y), fill)
	}
	strokeRect(img, rect, border)
}

// drawText renders s with the baseline anchored inside rect's top-left, and
// reports the advance width in pixels.
func drawText(img *image.RGBA, rect image.Rectangle, face font.Face, c color.RGBA, s string) int {
	metrics := face.Metrics()
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(rect.Min.X),
			Y: fixed.I(rect.Min.Y) + metrics.Ascent,
		},
	}
	d.DrawString(s)
	return (d.Dot.X - fixed.I(rect.Min.X)).Ceil()
}

func setPixel(img *image.RGBA, x, y int, c color.RGBA) {
	if (image.Point{X: x, Y: y}).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
