// Package imageprocessor aligns two photographs of the same reef scene and
// reports the regions that changed between them.
//
// The pipeline is Preprocess -> Extract (x2) -> MatchFeatures ->
// SolveHomography -> Warp -> DetectDifferences -> Summarize. Vision
// primitives are consumed through the small interfaces below so the
// orchestration can run against OpenCV (package cv), the pure-Go reference
// implementations in this package, or test fakes.
package imageprocessor

import "image"

// Smoother applies the denoising filters used by Preprocess.
type Smoother interface {
	MedianBlur(src *image.Gray, ksize int) *image.Gray
	GaussianBlur(src *image.Gray, ksize int) *image.Gray
}

// FeatureExtractor detects keypoints and computes one descriptor per keypoint.
type FeatureExtractor interface {
	Extract(img *image.Gray) (Features, error)
}

// DescriptorMatcher finds the k nearest train descriptors of every query
// descriptor. Row i belongs to query i and holds at most k matches sorted by
// ascending distance.
type DescriptorMatcher interface {
	KnnMatch(query, train []Descriptor, k int) ([][]Match, error)
}

// HomographyEstimator robustly fits a transform mapping src onto dst. The
// returned mask flags the correspondences consistent with the model.
type HomographyEstimator interface {
	Estimate(src, dst []Point, reprojThreshold float64) (Homography, []bool, error)
}

// Warper resamples src through h into a canvas of the given size.
type Warper interface {
	WarpPerspective(src image.Image, h Homography, size image.Point) (*image.RGBA, error)
}

// ChangeDetector thresholds the difference of two same-sized images and
// returns the binary change mask with its outer connected regions.
type ChangeDetector interface {
	DetectChanges(aligned, current image.Image, threshold int) (*image.Gray, []Region, error)
}

// Annotator outlines boxes on a copy of img.
type Annotator interface {
	Annotate(img image.Image, boxes []image.Rectangle, style BoxStyle) (*image.RGBA, error)
}

// Capabilities bundles the vision primitives a Pipeline depends on.
type Capabilities struct {
	Smoother  Smoother
	Extractor FeatureExtractor
	Matcher   DescriptorMatcher
	Estimator HomographyEstimator
	Warper    Warper
	Detector  ChangeDetector
	Annotator Annotator
}

// NativeCapabilities returns the pure-Go primitives of this package around
// the given feature extractor.
func NativeCapabilities(extractor FeatureExtractor, cfg Config) Capabilities {
	return Capabilities{
		Smoother:  NativeSmoother{},
		Extractor: extractor,
		Matcher:   BruteForceMatcher{},
		Estimator: &RansacEstimator{
			MaxIters:   cfg.RansacMaxIters,
			Confidence: cfg.RansacConfidence,
			Seed:       cfg.RansacSeed,
		},
		Warper:    NativeWarper{},
		Detector:  NativeChangeDetector{},
		Annotator: NativeAnnotator{},
	}
}

func (c Capabilities) validate() error {
	switch {
	case c.Smoother == nil:
		return missingCapability("smoother")
	case c.Extractor == nil:
		return missingCapability("feature extractor")
	case c.Matcher == nil:
		return missingCapability("descriptor matcher")
	case c.Estimator == nil:
		return missingCapability("homography estimator")
	case c.Warper == nil:
		return missingCapability("warper")
	case c.Detector == nil:
		return missingCapability("change detector")
	case c.Annotator == nil:
		return missingCapability("annotator")
	}
	return nil
}
