package imageprocessor

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"reefwatch/logging"
	"reefwatch/signalhandler"

	"github.com/sirupsen/logrus"
)

// Pipeline compares a baseline photograph with a current one. It holds no
// state between runs and is safe for concurrent use when its capabilities
// are.
type Pipeline struct {
	cfg  Config
	caps Capabilities
}

// NewPipeline validates the configuration and capabilities.
func NewPipeline(cfg Config, caps Capabilities) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := caps.validate(); err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg, caps: caps}, nil
}

// Config returns the settings the pipeline was built with.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Run aligns baseline onto current and outlines what changed. The annotated
// output has the dimensions of current. When alignment is refused the
// returned Result carries only the keypoint and match counts, next to the
// error.
func (p *Pipeline) Run(baseline, current image.Image) (*Result, error) {
	if err := checkImage(baseline); err != nil {
		return nil, fmt.Errorf("baseline image: %w", err)
	}
	if err := checkImage(current); err != nil {
		return nil, fmt.Errorf("current image: %w", err)
	}

	start := time.Now()
	featsA, featsB, err := p.extractPair(baseline, current)
	if err != nil {
		return nil, err
	}

	good, err := MatchFeatures(featsA.Descriptors, featsB.Descriptors, p.cfg.MatchRatio, p.caps.Matcher)
	if err != nil {
		return &Result{KeypointsA: featsA.Len(), KeypointsB: featsB.Len()}, err
	}
	logging.WithFields(logrus.Fields{
		"keypoints_baseline": featsA.Len(),
		"keypoints_current":  featsB.Len(),
		"good_matches":       len(good),
		"elapsed":            time.Since(start).Round(time.Millisecond),
	}).Debug("pipeline: features matched")

	return p.RunWithMatches(baseline, current, featsA.Keypoints, featsB.Keypoints, good)
}

// RunWithMatches enters the pipeline after matching, for callers that
// already hold correspondences.
func (p *Pipeline) RunWithMatches(baseline, current image.Image, kpA, kpB []Keypoint, good []Match) (*Result, error) {
	if err := checkImage(baseline); err != nil {
		return nil, fmt.Errorf("baseline image: %w", err)
	}
	if err := checkImage(current); err != nil {
		return nil, fmt.Errorf("current image: %w", err)
	}

	res := &Result{
		KeypointsA:  len(kpA),
		KeypointsB:  len(kpB),
		GoodMatches: len(good),
	}

	h, inliers, err := SolveHomography(kpA, kpB, good, p.cfg, p.caps.Estimator)
	if err != nil {
		var degenerate *DegenerateTransformError
		if errors.As(err, &degenerate) {
			res.InlierCount = degenerate.Inliers
		}
		return res, err
	}

	size := current.Bounds().Size()
	aligned, err := Warp(baseline, h, size, p.caps.Warper)
	if err != nil {
		return nil, fmt.Errorf("warp: %w", err)
	}

	mask, regions, err := p.caps.Detector.DetectChanges(aligned, current, p.cfg.DiffThreshold)
	if err != nil {
		return nil, fmt.Errorf("change detection: %w", err)
	}
	boxes := BoundingBoxes(regions, image.Rect(0, 0, size.X, size.Y))
	annotated, err := p.caps.Annotator.Annotate(current, boxes, p.cfg.Style)
	if err != nil {
		return nil, fmt.Errorf("annotation: %w", err)
	}

	res.Annotated = annotated
	res.Regions = regions
	res.Boxes = boxes
	res.Homography = h
	res.Inliers = inliers
	res.InlierCount = countTrue(inliers)
	res.ChangedPixels = CountNonZero(mask)

	logging.WithFields(logrus.Fields{
		"inliers":        res.InlierCount,
		"regions":        len(regions),
		"changed_pixels": res.ChangedPixels,
		"homography":     h.String(),
	}).Debug("pipeline: differences extracted")
	return res, nil
}

// extractPair preprocesses and extracts both images, concurrently when
// allowed. The two tasks share nothing.
func (p *Pipeline) extractPair(baseline, current image.Image) (Features, Features, error) {
	var featsA, featsB Features
	var errA, errB error

	if p.cfg.ParallelExtraction && signalhandler.GetOptimalProcs() > 1 {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			featsA, errA = p.extract(baseline)
		}()
		go func() {
			defer wg.Done()
			featsB, errB = p.extract(current)
		}()
		wg.Wait()
	} else {
		featsA, errA = p.extract(baseline)
		if errA == nil {
			featsB, errB = p.extract(current)
		}
	}

	if errA != nil {
		return Features{}, Features{}, fmt.Errorf("baseline image: %w", errA)
	}
	if errB != nil {
		return Features{}, Features{}, fmt.Errorf("current image: %w", errB)
	}
	return featsA, featsB, nil
}

func (p *Pipeline) extract(img image.Image) (Features, error) {
	gray, err := Preprocess(img, p.cfg, p.caps.Smoother)
	if err != nil {
		return Features{}, err
	}
	feats, err := p.caps.Extractor.Extract(gray)
	if err != nil {
		return Features{}, fmt.Errorf("feature extraction: %w", err)
	}
	if err := feats.Validate(); err != nil {
		return Features{}, fmt.Errorf("feature extraction: %w", err)
	}
	return feats, nil
}
