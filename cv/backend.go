package cv

import (
	"fmt"

	"reefwatch/imageprocessor"
)

// Backend names accepted by NewBackend.
const (
	BackendOpenCV = "opencv"
	BackendNative = "native"
)

// NewCapabilities returns the OpenCV implementation of every pipeline
// capability.
func NewCapabilities(cfg imageprocessor.Config) imageprocessor.Capabilities {
	return imageprocessor.Capabilities{
		Smoother:  Smoother{},
		Extractor: SIFTExtractor{},
		Matcher:   FlannMatcher{},
		Estimator: RansacHomography{MaxIters: cfg.RansacMaxIters, Confidence: cfg.RansacConfidence},
		Warper:    PerspectiveWarper{},
		Detector:  ChangeDetector{},
		Annotator: Annotator{},
	}
}

// NewBackend picks the capability set by name. The native backend still
// needs OpenCV for SIFT; every other stage runs in Go.
func NewBackend(name string, cfg imageprocessor.Config) (imageprocessor.Capabilities, error) {
	switch name {
	case "", BackendOpenCV:
		return NewCapabilities(cfg), nil
	case BackendNative:
		return imageprocessor.NativeCapabilities(SIFTExtractor{}, cfg), nil
	default:
		return imageprocessor.Capabilities{}, fmt.Errorf("unknown backend %q (want %s or %s)", name, BackendOpenCV, BackendNative)
	}
}

var (
	_ imageprocessor.Smoother            = Smoother{}
	_ imageprocessor.FeatureExtractor    = SIFTExtractor{}
	_ imageprocessor.DescriptorMatcher   = FlannMatcher{}
	_ imageprocessor.HomographyEstimator = RansacHomography{}
	_ imageprocessor.Warper              = PerspectiveWarper{}
	_ imageprocessor.ChangeDetector      = ChangeDetector{}
	_ imageprocessor.Annotator           = Annotator{}
)
