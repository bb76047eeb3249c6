package imageprocessor

import (
	"fmt"
	"image/color"
)

// BoxStyle is how changed regions are outlined on the output image.
type BoxStyle struct {
	Color     color.RGBA
	Thickness int
}

// Config holds every tunable of the pipeline.
type Config struct {
	MedianKernel          int
	GaussianKernel        int
	MatchRatio            float64
	DiffThreshold         int
	MinMatchCount         int
	RansacReprojThreshold float64
	RansacMaxIters        int
	RansacConfidence      float64
	RansacSeed            int64

	// Optional checks on the fitted homography; zero disables them.
	MinInlierRatio     float64
	MaxConditionNumber float64

	ParallelExtraction bool
	Style              BoxStyle
}

// DefaultConfig returns the standard reef-survey settings.
func DefaultConfig() Config {
	return Config{
		MedianKernel:          5,
		GaussianKernel:        5,
		MatchRatio:            0.7,
		DiffThreshold:         30,
		MinMatchCount:         10,
		RansacReprojThreshold: 5.0,
		RansacMaxIters:        2000,
		RansacConfidence:      0.995,
		RansacSeed:            1,
		ParallelExtraction:    true,
		Style: BoxStyle{
			Color:     color.RGBA{R: 0, G: 255, B: 0, A: 255},
			Thickness: 2,
		},
	}
}

// Validate reports the first unusable setting.
func (c Config) Validate() error {
	switch {
	case !validKernel(c.MedianKernel):
		return fmt.Errorf("%w: median kernel %d must be 1 or an odd number >= 3", ErrInvalidConfig, c.MedianKernel)
	case !validKernel(c.GaussianKernel):
		return fmt.Errorf("%w: gaussian kernel %d must be 1 or an odd number >= 3", ErrInvalidConfig, c.GaussianKernel)
	case c.MatchRatio <= 0 || c.MatchRatio > 1:
		return fmt.Errorf("%w: match ratio %g must be in (0, 1]", ErrInvalidConfig, c.MatchRatio)
	case c.DiffThreshold < 0 || c.DiffThreshold > 254:
		return fmt.Errorf("%w: difference threshold %d must be in [0, 254]", ErrInvalidConfig, c.DiffThreshold)
	case c.MinMatchCount < 3:
		return fmt.Errorf("%w: minimum match count %d is below the 4 points a homography needs", ErrInvalidConfig, c.MinMatchCount)
	case c.RansacReprojThreshold <= 0:
		return fmt.Errorf("%w: reprojection threshold %g must be positive", ErrInvalidConfig, c.RansacReprojThreshold)
	case c.RansacMaxIters <= 0:
		return fmt.Errorf("%w: RANSAC iterations %d must be positive", ErrInvalidConfig, c.RansacMaxIters)
	case c.RansacConfidence <= 0 || c.RansacConfidence >= 1:
		return fmt.Errorf("%w: RANSAC confidence %g must be in (0, 1)", ErrInvalidConfig, c.RansacConfidence)
	case c.MinInlierRatio < 0 || c.MinInlierRatio > 1:
		return fmt.Errorf("%w: minimum inlier ratio %g must be in [0, 1]", ErrInvalidConfig, c.MinInlierRatio)
	case c.MaxConditionNumber < 0:
		return fmt.Errorf("%w: maximum condition number %g must not be negative", ErrInvalidConfig, c.MaxConditionNumber)
	case c.Style.Thickness < 1:
		return fmt.Errorf("%w: box thickness %d must be at least 1", ErrInvalidConfig, c.Style.Thickness)
	}
	return nil
}

func validKernel(k int) bool {
	return k == 1 || (k >= 3 && k%2 == 1)
}
