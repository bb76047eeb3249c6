package cv

import (
	"image"
	"image/color"
	"testing"

	"reefwatch/imageprocessor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPattern(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 3), G: uint8(y * 5), B: uint8((x ^ y) * 7), A: 255})
		}
	}
	return img
}

func TestBGRRoundTrip(t *testing.T) {
	img := testPattern(37, 23)
	m, err := ImageToBGR(img)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, 23, m.Rows())
	assert.Equal(t, 37, m.Cols())
	assert.Equal(t, 3, m.Channels())

	back, err := MatToRGBA(m)
	require.NoError(t, err)
	assert.Equal(t, img.Pix, back.Pix)
}

func TestGrayRoundTripFromSubImage(t *testing.T) {
	full := image.NewGray(image.Rect(0, 0, 20, 20))
	for i := range full.Pix {
		full.Pix[i] = uint8(i)
	}
	sub := full.SubImage(image.Rect(5, 5, 15, 12)).(*image.Gray)

	m, err := GrayToMat(sub)
	require.NoError(t, err)
	defer m.Close()

	back, err := MatToGray(m)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 10, 7), back.Bounds())
	assert.Equal(t, sub.GrayAt(5, 5), back.GrayAt(0, 0))
	assert.Equal(t, sub.GrayAt(14, 11), back.GrayAt(9, 6))
}

func TestRansacHomographyRecoversShift(t *testing.T) {
	shift := imageprocessor.Homography{1, 0, 4, 0, 1, -3, 0, 0, 1}
	var src, dst []imageprocessor.Point
	for i := 0; i < 25; i++ {
		p := imageprocessor.Point{X: float64(10 + (i*37)%180), Y: float64(7 + (i*53)%140)}
		q, _ := shift.Apply(p)
		src = append(src, p)
		dst = append(dst, q)
	}

	h, mask, err := RansacHomography{MaxIters: 2000, Confidence: 0.995}.Estimate(src, dst, 5.0)
	require.NoError(t, err)
	require.Len(t, mask, len(src))
	for i := range shift {
		assert.InDelta(t, shift[i], h[i], 1e-3)
	}
}

func TestPerspectiveWarperIdentity(t *testing.T) {
	img := testPattern(30, 20)
	out, err := PerspectiveWarper{}.WarpPerspective(img, imageprocessor.Identity(), image.Pt(30, 20))
	require.NoError(t, err)
	assert.Equal(t, img.Pix, out.Pix)
}

func TestPerspectiveWarperReportsEmptySource(t *testing.T) {
	_, err := PerspectiveWarper{}.WarpPerspective(image.NewRGBA(image.Rect(0, 0, 0, 0)), imageprocessor.Identity(), image.Pt(5, 5))
	assert.Error(t, err)
}

func TestFlannMatcherRejectsMixedDescriptorLengths(t *testing.T) {
	query := []imageprocessor.Descriptor{{1, 2, 3}, {4, 5}}
	train := []imageprocessor.Descriptor{{1, 2, 3}, {3, 2, 1}}
	_, err := FlannMatcher{}.KnnMatch(query, train, 2)
	assert.Error(t, err)
}

func fill(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func blackRGBA(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	fill(img, img.Rect, color.RGBA{A: 255})
	return img
}

func TestChangeDetectorMatchesNative(t *testing.T) {
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	before := blackRGBA(64, 48)
	after := blackRGBA(64, 48)
	// A ring with a blob in its hole, plus a separate square.
	fill(after, image.Rect(10, 12, 30, 32), white)
	fill(after, image.Rect(13, 15, 27, 29), color.RGBA{A: 255})
	fill(after, image.Rect(19, 21, 21, 23), white)
	fill(after, image.Rect(40, 5, 45, 10), white)
	// Sits exactly where 14-bit and 16-bit luma rounding disagree.
	after.SetRGBA(50, 40, color.RGBA{R: 0, G: 17, B: 180, A: 255})

	mask, regions, err := ChangeDetector{}.DetectChanges(before, after, 30)
	require.NoError(t, err)
	wantMask, wantRegions, err := imageprocessor.NativeChangeDetector{}.DetectChanges(before, after, 30)
	require.NoError(t, err)

	assert.Equal(t, wantMask.Pix, mask.Pix)
	assert.Equal(t, uint8(255), mask.GrayAt(50, 40).Y)

	require.Len(t, regions, len(wantRegions))
	require.Len(t, regions, 3)
	for i := range regions {
		assert.Equal(t, wantRegions[i].Bounds(), regions[i].Bounds(), "region %d", i)
		assert.Equal(t, wantRegions[i].Area(), regions[i].Area(), "region %d", i)
	}
	assert.Equal(t, image.Rect(40, 5, 45, 10), regions[0].Bounds())
	assert.Equal(t, image.Rect(10, 12, 30, 32), regions[1].Bounds())
	assert.Equal(t, image.Rect(50, 40, 51, 41), regions[2].Bounds())
}

func TestChangeDetectorDimensionMismatch(t *testing.T) {
	_, _, err := ChangeDetector{}.DetectChanges(blackRGBA(10, 8), blackRGBA(8, 10), 30)
	var mismatch *imageprocessor.DimensionMismatchError
	assert.ErrorAs(t, err, &mismatch)
}

func TestAnnotatorMatchesNative(t *testing.T) {
	img := testPattern(40, 30)
	boxes := []image.Rectangle{image.Rect(5, 4, 12, 9), image.Rect(20, 10, 39, 29)}
	style := imageprocessor.BoxStyle{Color: color.RGBA{G: 255, A: 255}, Thickness: 1}

	got, err := Annotator{}.Annotate(img, boxes, style)
	require.NoError(t, err)
	want, err := imageprocessor.NativeAnnotator{}.Annotate(img, boxes, style)
	require.NoError(t, err)

	assert.Equal(t, want.Pix, got.Pix)
	assert.Equal(t, style.Color, got.RGBAAt(12, 6), "far edge at x+w")
	assert.NotEqual(t, style.Color, img.RGBAAt(12, 6), "input untouched")
}

func TestSmootherMatchesNativeOnFlatImage(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 16, 16))
	for i := range src.Pix {
		src.Pix[i] = 90
	}
	assert.Equal(t, src.Pix, Smoother{}.MedianBlur(src, 5).Pix)
	assert.Equal(t, src.Pix, Smoother{}.GaussianBlur(src, 5).Pix)
}

func TestNewBackend(t *testing.T) {
	cfg := imageprocessor.DefaultConfig()
	caps, err := NewBackend(BackendNative, cfg)
	require.NoError(t, err)
	assert.IsType(t, imageprocessor.BruteForceMatcher{}, caps.Matcher)
	assert.IsType(t, imageprocessor.NativeChangeDetector{}, caps.Detector)
	assert.IsType(t, imageprocessor.NativeAnnotator{}, caps.Annotator)

	caps, err = NewBackend("", cfg)
	require.NoError(t, err)
	assert.IsType(t, FlannMatcher{}, caps.Matcher)
	assert.IsType(t, ChangeDetector{}, caps.Detector)
	assert.IsType(t, Annotator{}, caps.Annotator)

	_, err = NewBackend("cuda", cfg)
	assert.Error(t, err)
}
