package imageprocessor

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(t *testing.T, cfg Config, width, height int) *Pipeline {
	t.Helper()
	extractor := gridExtractor{cols: 6, rows: 5, width: width, height: height}
	p, err := NewPipeline(cfg, NativeCapabilities(extractor, cfg))
	require.NoError(t, err)
	return p
}

func TestPipelineIdenticalImages(t *testing.T) {
	img := texturedRGBA(160, 120, 11)
	p := newTestPipeline(t, DefaultConfig(), 160, 120)

	res, err := p.Run(img, img)
	require.NoError(t, err)

	assert.Empty(t, res.Regions)
	assert.Empty(t, res.Boxes)
	assert.Equal(t, img.Pix, res.Annotated.Pix, "output equals the current image")
	assert.Equal(t, 30, res.KeypointsA)
	assert.Equal(t, 30, res.GoodMatches)
	assert.Equal(t, 30, res.InlierCount)
}

func TestPipelineSingleChangedSquare(t *testing.T) {
	black := color.RGBA{A: 255}
	a := solidRGBA(300, 300, black)
	b := solidRGBA(300, 300, black)
	fillSquare(b, image.Rect(100, 100, 150, 150), color.RGBA{R: 255, G: 255, B: 255, A: 255})

	for _, parallel := range []bool{true, false} {
		cfg := DefaultConfig()
		cfg.ParallelExtraction = parallel
		p := newTestPipeline(t, cfg, 300, 300)

		res, err := p.Run(a, b)
		require.NoError(t, err)
		require.Len(t, res.Regions, 1)
		assert.Equal(t, image.Rect(100, 100, 150, 150), res.Boxes[0])
		assert.Equal(t, 2500, res.ChangedPixels)

		green := cfg.Style.Color
		assert.Equal(t, green, res.Annotated.RGBAAt(100, 100))
		assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, res.Annotated.RGBAAt(125, 125))
		assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, b.RGBAAt(100, 100), "current image untouched")
	}
}

func TestPipelineSuppliedMatchesIdentity(t *testing.T) {
	a := solidRGBA(300, 300, color.RGBA{A: 255})
	b := solidRGBA(300, 300, color.RGBA{A: 255})
	fillSquare(b, image.Rect(100, 100, 150, 150), color.RGBA{R: 255, G: 255, B: 255, A: 255})

	f, err := gridExtractor{cols: 4, rows: 4, width: 300, height: 300}.Extract(nil)
	require.NoError(t, err)
	matches := make([]Match, f.Len())
	for i := range matches {
		matches[i] = Match{QueryIdx: i, TrainIdx: i}
	}

	p := newTestPipeline(t, DefaultConfig(), 300, 300)
	res, err := p.RunWithMatches(a, b, f.Keypoints, f.Keypoints, matches)
	require.NoError(t, err)
	require.Len(t, res.Boxes, 1)
	assert.Equal(t, image.Rect(100, 100, 150, 150), res.Boxes[0])
}

func TestPipelineTooFewMatches(t *testing.T) {
	img := texturedRGBA(100, 100, 2)
	kps := []Keypoint{{X: 1, Y: 1}, {X: 20, Y: 5}, {X: 40, Y: 60}, {X: 70, Y: 10}, {X: 90, Y: 90}}
	matches := []Match{{0, 0, 0}, {1, 1, 0}, {2, 2, 0}, {3, 3, 0}, {4, 4, 0}}

	p := newTestPipeline(t, DefaultConfig(), 100, 100)
	res, err := p.RunWithMatches(img, img, kps, kps, matches)
	require.NotNil(t, res)
	assert.Nil(t, res.Annotated, "no output on refusal")
	assert.Equal(t, 5, res.KeypointsA)
	assert.Equal(t, 5, res.GoodMatches)

	var insufficient *InsufficientEvidenceError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 5, insufficient.Count)
	assert.Equal(t, 10, insufficient.Threshold)
	assert.Contains(t, err.Error(), "5/10")
}

func TestPipelineTooFewKeypoints(t *testing.T) {
	cfg := DefaultConfig()
	p, err := NewPipeline(cfg, NativeCapabilities(gridExtractor{cols: 3, rows: 3, width: 100, height: 100}, cfg))
	require.NoError(t, err)

	img := texturedRGBA(100, 100, 2)
	res, err := p.Run(img, img)
	var insufficient *InsufficientEvidenceError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 9, insufficient.Count)

	require.NotNil(t, res)
	assert.Nil(t, res.Annotated)
	assert.Equal(t, 9, res.KeypointsA)
	assert.Equal(t, 9, res.KeypointsB)
	assert.Equal(t, 9, res.GoodMatches)
}

type failingExtractor struct{}

func (failingExtractor) Extract(img *image.Gray) (Features, error) {
	return Features{Keypoints: make([]Keypoint, 2), Descriptors: make([]Descriptor, 1)}, nil
}

func TestPipelineRejectsMismatchedFeatures(t *testing.T) {
	cfg := DefaultConfig()
	p, err := NewPipeline(cfg, NativeCapabilities(failingExtractor{}, cfg))
	require.NoError(t, err)

	img := texturedRGBA(20, 20, 1)
	_, err = p.Run(img, img)
	assert.ErrorContains(t, err, "2 keypoints but 1 descriptors")
}

func TestNewPipelineValidation(t *testing.T) {
	cfg := DefaultConfig()
	_, err := NewPipeline(cfg, NativeCapabilities(nil, cfg))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	caps := NativeCapabilities(gridExtractor{}, cfg)
	caps.Detector = nil
	_, err = NewPipeline(cfg, caps)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	caps = NativeCapabilities(gridExtractor{}, cfg)
	caps.Annotator = nil
	_, err = NewPipeline(cfg, caps)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg.MedianKernel = 4
	_, err = NewPipeline(cfg, NativeCapabilities(gridExtractor{}, cfg))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

// fixedDetector reports one prepared region and counts its calls.
type fixedDetector struct {
	region Region
	calls  *int
}

func (d fixedDetector) DetectChanges(aligned, current image.Image, threshold int) (*image.Gray, []Region, error) {
	*d.calls++
	b := current.Bounds()
	mask := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for _, p := range d.region.Pixels {
		mask.SetGray(p.X, p.Y, color.Gray{Y: 255})
	}
	return mask, []Region{d.region}, nil
}

type failingAnnotator struct{}

func (failingAnnotator) Annotate(img image.Image, boxes []image.Rectangle, style BoxStyle) (*image.RGBA, error) {
	return nil, errors.New("draw failed")
}

func TestPipelineUsesConfiguredDetectorAndAnnotator(t *testing.T) {
	img := texturedRGBA(120, 90, 5)
	cfg := DefaultConfig()
	calls := 0
	region := Region{Pixels: []image.Point{{30, 20}, {31, 20}, {31, 21}}}

	caps := NativeCapabilities(gridExtractor{cols: 5, rows: 4, width: 120, height: 90}, cfg)
	caps.Detector = fixedDetector{region: region, calls: &calls}
	p, err := NewPipeline(cfg, caps)
	require.NoError(t, err)

	res, err := p.Run(img, img)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []image.Rectangle{image.Rect(30, 20, 32, 22)}, res.Boxes)
	assert.Equal(t, 3, res.ChangedPixels)
	assert.Equal(t, cfg.Style.Color, res.Annotated.RGBAAt(32, 21), "outline at x+w")

	caps.Annotator = failingAnnotator{}
	p, err = NewPipeline(cfg, caps)
	require.NoError(t, err)
	res, err = p.Run(img, img)
	assert.ErrorContains(t, err, "draw failed")
	assert.Nil(t, res)
}

func TestPipelineRejectsEmptyInput(t *testing.T) {
	p := newTestPipeline(t, DefaultConfig(), 10, 10)
	_, err := p.Run(nil, texturedRGBA(10, 10, 1))
	assert.ErrorIs(t, err, ErrInvalidImage)
}
