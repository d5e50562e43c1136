package ax206

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitToPanelPassthrough(t *testing.T) {
	img := solidFrame(480, 320, color.RGBA{R: 0xff})
	out, scaled := fitToPanel(img, 480, 320)
	assert.False(t, scaled)
	assert.Equal(t, image.Image(img), out, "matching frames pass through unscaled")
}

func TestFitToPanelSameAspectFills(t *testing.T) {
	img := solidFrame(240, 160, color.RGBA{B: 0xff})
	out, scaled := fitToPanel(img, 480, 320)
	require.True(t, scaled)

	dst, ok := out.(*image.RGBA)
	require.True(t, ok)
	assert.Equal(t, image.Rect(0, 0, 480, 320), dst.Bounds())

	blue := color.RGBA{B: 0xff, A: 0xff}
	assert.Equal(t, blue, dst.RGBAAt(0, 0))
	assert.Equal(t, blue, dst.RGBAAt(240, 160))
	assert.Equal(t, blue, dst.RGBAAt(479, 319))
}

func TestFitToPanelLetterboxesMismatchedAspect(t *testing.T) {
	// A square canvas on a 3:2 panel scales to 320x320 centered, with 80-px
	// black pillars either side.
	img := solidFrame(240, 240, color.RGBA{B: 0xff})
	out, scaled := fitToPanel(img, 480, 320)
	require.True(t, scaled)

	dst, ok := out.(*image.RGBA)
	require.True(t, ok)

	black := color.RGBA{A: 0xff}
	blue := color.RGBA{B: 0xff, A: 0xff}
	assert.Equal(t, black, dst.RGBAAt(10, 160), "left pillar")
	assert.Equal(t, black, dst.RGBAAt(470, 160), "right pillar")
	assert.Equal(t, blue, dst.RGBAAt(240, 160), "scaled content centered")
	assert.Equal(t, blue, dst.RGBAAt(100, 10))
	assert.Equal(t, blue, dst.RGBAAt(390, 310))
}
