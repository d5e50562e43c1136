package render

import (
	"image"
	"image/color"
	"image/draw"
)

// Frame is one rendered dashboard raster. It is produced by a single render
// cycle and handed to the transport; nothing mutates it after Render returns.
type Frame struct {
	*image.RGBA
}

func NewFrame(width, height int, bg color.RGBA) *Frame {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	return &Frame{RGBA: img}
}

// DiffRect returns the bounding rectangle of pixels that changed between two
// frames of equal dimensions, for partial uploads. ok is false when the
// frames are identical or not comparable (nil or mismatched sizes), in which
// case the caller should upload the full frame or nothing.
func DiffRect(prev, cur *Frame) (image.Rectangle, bool) {
	if prev == nil || cur == nil || prev.Bounds() != cur.Bounds() {
		return image.Rectangle{}, false
	}

	b := cur.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X-1, b.Min.Y-1

	for y := b.Min.Y; y < b.Max.Y; y++ {
		rowStart := cur.PixOffset(b.Min.X, y)
		rowEnd := cur.PixOffset(b.Max.X, y)
		prevRow := prev.Pix[rowStart:rowEnd]
		curRow := cur.Pix[rowStart:rowEnd]
		for x := b.Min.X; x < b.Max.X; x++ {
			off := (x - b.Min.X) * 4
			if prevRow[off] != curRow[off] ||
				prevRow[off+1] != curRow[off+1] ||
				prevRow[off+2] != curRow[off+2] {
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
				if y < minY {
					minY = y
				}
				maxY = y
			}
		}
	}

	if maxX < minX {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}
