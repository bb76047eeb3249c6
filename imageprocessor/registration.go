package imageprocessor

import (
	"fmt"
	"math"
)

// SolveHomography fits the transform mapping baseline keypoints onto current
// keypoints from the good matches. It refuses to fit when the matches do not
// exceed cfg.MinMatchCount, and rejects any model that cannot be inverted.
// The mask flags the matches the estimator kept as inliers.
func SolveHomography(kpA, kpB []Keypoint, good []Match, cfg Config, estimator HomographyEstimator) (Homography, []bool, error) {
	if len(good) <= cfg.MinMatchCount {
		return Homography{}, nil, &InsufficientEvidenceError{Count: len(good), Threshold: cfg.MinMatchCount}
	}

	src := make([]Point, len(good))
	dst := make([]Point, len(good))
	for i, m := range good {
		if m.QueryIdx < 0 || m.QueryIdx >= len(kpA) || m.TrainIdx < 0 || m.TrainIdx >= len(kpB) {
			return Homography{}, nil, fmt.Errorf("%w: match %d (%d -> %d) with %d and %d keypoints",
				ErrInvalidMatch, i, m.QueryIdx, m.TrainIdx, len(kpA), len(kpB))
		}
		src[i] = kpA[m.QueryIdx].Pt()
		dst[i] = kpB[m.TrainIdx].Pt()
	}

	h, mask, err := estimator.Estimate(src, dst, cfg.RansacReprojThreshold)
	if err != nil {
		return Homography{}, nil, &DegenerateTransformError{Reason: "estimator failed", Matches: len(good), Err: err}
	}
	inliers := countTrue(mask)
	degenerate := func(reason string) error {
		return &DegenerateTransformError{Reason: reason, Matches: len(good), Inliers: inliers}
	}

	switch {
	case h.IsZero():
		return Homography{}, mask, degenerate("estimator returned an empty model")
	case !h.IsFinite():
		return Homography{}, mask, degenerate("non-finite coefficients")
	}
	h = h.Normalized()
	if det := h.Det(); math.Abs(det) < 1e-12 || math.IsNaN(det) {
		return Homography{}, mask, degenerate(fmt.Sprintf("singular transform (det %g)", det))
	}
	if _, err := h.Inverse(); err != nil {
		return Homography{}, mask, degenerate(err.Error())
	}
	if cfg.MinInlierRatio > 0 {
		if ratio := float64(inliers) / float64(len(good)); ratio < cfg.MinInlierRatio {
			return Homography{}, mask, degenerate(fmt.Sprintf("inlier ratio %.3f below %.3f", ratio, cfg.MinInlierRatio))
		}
	}
	if cfg.MaxConditionNumber > 0 {
		if cond := h.Cond(); cond > cfg.MaxConditionNumber {
			return Homography{}, mask, degenerate(fmt.Sprintf("condition number %.3g above %.3g", cond, cfg.MaxConditionNumber))
		}
	}
	return h, mask, nil
}

func countTrue(mask []bool) int {
	n := 0
	for _, v := range mask {
		if v {
			n++
		}
	}
	return n
}
