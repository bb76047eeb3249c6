package imageprocessor

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWarpIdentityReproducesImage(t *testing.T) {
	src := texturedRGBA(40, 30, 3)
	out, err := Warp(src, Identity(), src.Bounds().Size(), NativeWarper{})
	require.NoError(t, err)
	assert.Equal(t, src.Pix, out.Pix)
}

func TestWarpTranslationFillsBackground(t *testing.T) {
	src := solidRGBA(20, 20, color.RGBA{R: 200, G: 100, B: 50, A: 255})
	shift := Homography{1, 0, 5, 0, 1, 0, 0, 0, 1}

	out, err := Warp(src, shift, image.Pt(20, 20), NativeWarper{})
	require.NoError(t, err)

	assert.Equal(t, color.RGBA{A: 255}, out.RGBAAt(2, 10), "uncovered pixels are black")
	assert.Equal(t, color.RGBA{R: 200, G: 100, B: 50, A: 255}, out.RGBAAt(10, 10))
}

func TestWarpOutputTakesTargetSize(t *testing.T) {
	src := texturedRGBA(30, 20, 1)
	out, err := Warp(src, Identity(), image.Pt(50, 10), NativeWarper{})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 50, 10), out.Bounds())

	_, err = Warp(src, Identity(), image.Pt(0, 10), NativeWarper{})
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestWarpRoundTrip(t *testing.T) {
	const size = 120
	src := gradientRGBA(size, size)

	theta := 3 * math.Pi / 180
	c, s := math.Cos(theta), math.Sin(theta)
	center := float64(size) / 2
	h := Homography{
		c, -s, center - c*center + s*center + 2.5,
		s, c, center - s*center - c*center - 1.5,
		0, 0, 1,
	}
	inv, err := h.Inverse()
	require.NoError(t, err)

	forward, err := Warp(src, h, src.Bounds().Size(), NativeWarper{})
	require.NoError(t, err)
	back, err := Warp(forward, inv, src.Bounds().Size(), NativeWarper{})
	require.NoError(t, err)

	for y := 30; y < 90; y++ {
		for x := 30; x < 90; x++ {
			want := src.RGBAAt(x, y)
			got := back.RGBAAt(x, y)
			assert.LessOrEqual(t, absDiff(want.R, got.R), uint8(2), "R at %d,%d", x, y)
			assert.LessOrEqual(t, absDiff(want.G, got.G), uint8(2), "G at %d,%d", x, y)
			assert.LessOrEqual(t, absDiff(want.B, got.B), uint8(2), "B at %d,%d", x, y)
		}
	}
}

func TestWarpNonInvertibleIsBlack(t *testing.T) {
	src := solidRGBA(10, 10, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	out, err := NativeWarper{}.WarpPerspective(src, Homography{}, image.Pt(10, 10))
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{A: 255}, out.RGBAAt(5, 5))
}

type brokenWarper struct{}

func (brokenWarper) WarpPerspective(src image.Image, h Homography, size image.Point) (*image.RGBA, error) {
	return nil, errors.New("conversion failed")
}

type shortWarper struct{}

func (shortWarper) WarpPerspective(src image.Image, h Homography, size image.Point) (*image.RGBA, error) {
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

func TestWarpPropagatesWarperFailure(t *testing.T) {
	src := solidRGBA(10, 10, color.RGBA{A: 255})

	_, err := Warp(src, Identity(), image.Pt(10, 10), brokenWarper{})
	assert.ErrorContains(t, err, "conversion failed")

	_, err = Warp(src, Identity(), image.Pt(10, 10), shortWarper{})
	assert.Error(t, err)
}
