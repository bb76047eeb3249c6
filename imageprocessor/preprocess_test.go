package imageprocessor

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGaussianKernelSmallSizes(t *testing.T) {
	assert.Equal(t, []float64{0.0625, 0.25, 0.375, 0.25, 0.0625}, GaussianKernel(5))

	k := GaussianKernel(9)
	require.Len(t, k, 9)
	var sum float64
	for _, v := range k {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
	assert.Equal(t, k[0], k[8])
	assert.Greater(t, k[4], k[3])
}

func TestMedianBlurRemovesImpulseNoise(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 12, 12))
	for i := range src.Pix {
		src.Pix[i] = 100
	}
	src.SetGray(6, 6, color.Gray{Y: 255})
	src.SetGray(0, 0, color.Gray{Y: 0})

	out := NativeSmoother{}.MedianBlur(src, 5)
	for _, v := range out.Pix {
		assert.Equal(t, uint8(100), v)
	}
	assert.Equal(t, uint8(255), src.GrayAt(6, 6).Y, "source is untouched")
}

func TestGaussianBlurKeepsFlatImage(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 9, 7))
	for i := range src.Pix {
		src.Pix[i] = 77
	}
	out := NativeSmoother{}.GaussianBlur(src, 5)
	assert.Equal(t, src.Pix, out.Pix)
}

func TestGaussianBlurSpreadsImpulse(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 9, 9))
	src.SetGray(4, 4, color.Gray{Y: 255})
	out := NativeSmoother{}.GaussianBlur(src, 5)

	assert.Equal(t, uint8(36), out.GrayAt(4, 4).Y) // 255 * 0.375^2
	assert.Equal(t, out.GrayAt(3, 4), out.GrayAt(5, 4))
	assert.Equal(t, uint8(0), out.GrayAt(0, 0).Y)
}

func TestReflect101(t *testing.T) {
	assert.Equal(t, 1, reflect101(-1, 5))
	assert.Equal(t, 2, reflect101(-2, 5))
	assert.Equal(t, 3, reflect101(5, 5))
	assert.Equal(t, 2, reflect101(6, 5))
	assert.Equal(t, 0, reflect101(-3, 1))
}

func TestPreprocessProducesGray(t *testing.T) {
	img := texturedRGBA(32, 24, 5)
	gray, err := Preprocess(img, DefaultConfig(), NativeSmoother{})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 32, 24), gray.Bounds())

	cfg := DefaultConfig()
	cfg.MedianKernel, cfg.GaussianKernel = 1, 1
	plain, err := Preprocess(img, cfg, NativeSmoother{})
	require.NoError(t, err)
	want, err := ToGray(img)
	require.NoError(t, err)
	assert.Equal(t, want.Pix, plain.Pix)
}

func TestPreprocessRejectsEmptyImage(t *testing.T) {
	_, err := Preprocess(image.NewRGBA(image.Rectangle{}), DefaultConfig(), NativeSmoother{})
	assert.ErrorIs(t, err, ErrInvalidImage)

	_, err = Preprocess(nil, DefaultConfig(), NativeSmoother{})
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestToGrayUsesLumaWeights(t *testing.T) {
	img := image.NewRGBA(image.Rect(5, 5, 8, 6))
	img.SetRGBA(5, 5, color.RGBA{R: 255, A: 255})
	img.SetRGBA(6, 5, color.RGBA{G: 255, A: 255})
	img.SetRGBA(7, 5, color.RGBA{R: 90, G: 90, B: 90, A: 255})

	gray, err := ToGray(img)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 1), gray.Bounds())
	assert.Equal(t, uint8(76), gray.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(150), gray.GrayAt(1, 0).Y)
	assert.Equal(t, uint8(90), gray.GrayAt(2, 0).Y)
}
