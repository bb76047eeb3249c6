package imageprocessor

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func squareRegion(r image.Rectangle) Region {
	var reg Region
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			reg.Pixels = append(reg.Pixels, image.Pt(x, y))
		}
	}
	return reg
}

func TestSummarizeDrawsOutlineOnCopy(t *testing.T) {
	bg := color.RGBA{R: 10, G: 20, B: 30, A: 255}
	img := solidRGBA(50, 50, bg)
	before := append([]uint8(nil), img.Pix...)
	style := DefaultConfig().Style

	out, boxes := Summarize(img, []Region{squareRegion(image.Rect(10, 10, 20, 20))}, style)

	assert.Equal(t, before, img.Pix, "input must not be modified")
	require.Equal(t, []image.Rectangle{image.Rect(10, 10, 20, 20)}, boxes)

	green := color.RGBA{G: 255, A: 255}
	for _, p := range []image.Point{{10, 10}, {9, 9}, {20, 20}, {19, 15}, {20, 15}, {15, 9}, {15, 20}} {
		assert.Equal(t, green, out.RGBAAt(p.X, p.Y), "outline at %v", p)
	}
	for _, p := range []image.Point{{15, 15}, {11, 11}, {18, 18}, {21, 15}, {15, 21}, {8, 8}} {
		assert.Equal(t, bg, out.RGBAAt(p.X, p.Y), "untouched at %v", p)
	}
}

func TestSummarizeNoRegionsCopiesImage(t *testing.T) {
	img := texturedRGBA(30, 30, 4)
	out, boxes := Summarize(img, nil, DefaultConfig().Style)
	assert.Empty(t, boxes)
	assert.Equal(t, img.Pix, out.Pix)
	assert.NotSame(t, img, out)
}

func TestSummarizeClipsAtImageEdge(t *testing.T) {
	img := solidRGBA(20, 20, color.RGBA{A: 255})
	style := BoxStyle{Color: color.RGBA{R: 255, A: 255}, Thickness: 2}

	out, boxes := Summarize(img, []Region{squareRegion(image.Rect(0, 0, 5, 5))}, style)
	require.Len(t, boxes, 1)
	assert.Equal(t, style.Color, out.RGBAAt(0, 0))
	assert.Equal(t, style.Color, out.RGBAAt(4, 2))
	assert.Equal(t, color.RGBA{A: 255}, out.RGBAAt(2, 2))
}

func TestSummarizeStrokesFarEdgeOutsideBox(t *testing.T) {
	img := solidRGBA(30, 30, color.RGBA{A: 255})
	style := BoxStyle{Color: color.RGBA{G: 255, A: 255}, Thickness: 1}

	// A 5x4 box at (10,10) has its far corner at (15,14).
	out, err := NativeAnnotator{}.Annotate(img, []image.Rectangle{image.Rect(10, 10, 15, 14)}, style)
	require.NoError(t, err)

	assert.Equal(t, style.Color, out.RGBAAt(15, 12))
	assert.Equal(t, style.Color, out.RGBAAt(12, 14))
	assert.Equal(t, style.Color, out.RGBAAt(15, 14))
	assert.Equal(t, color.RGBA{A: 255}, out.RGBAAt(14, 12), "inside the box")
	assert.Equal(t, color.RGBA{A: 255}, out.RGBAAt(16, 12))
}

func TestSummarizeOverlappingBoxesOverdraw(t *testing.T) {
	img := solidRGBA(40, 40, color.RGBA{A: 255})
	regions := []Region{
		squareRegion(image.Rect(5, 5, 20, 20)),
		squareRegion(image.Rect(10, 10, 30, 30)),
	}
	_, boxes := Summarize(img, regions, DefaultConfig().Style)
	assert.Equal(t, []image.Rectangle{image.Rect(5, 5, 20, 20), image.Rect(10, 10, 30, 30)}, boxes)
}
