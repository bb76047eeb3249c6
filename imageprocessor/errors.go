package imageprocessor

import (
	"errors"
	"fmt"
	"image"
)

var (
	// ErrInvalidImage is returned for nil or zero-sized input images.
	ErrInvalidImage = errors.New("invalid image")
	// ErrInvalidMatch is returned when a match points outside its keypoint set.
	ErrInvalidMatch = errors.New("match references a missing keypoint")
	// ErrInvalidConfig is returned when a Config or Capabilities value is unusable.
	ErrInvalidConfig = errors.New("invalid pipeline configuration")
)

// InsufficientEvidenceError means too few good matches survived the ratio
// test to attempt an alignment.
type InsufficientEvidenceError struct {
	Count     int
	Threshold int
}

func (e *InsufficientEvidenceError) Error() string {
	return fmt.Sprintf("cannot align images: not enough matches are found - %d/%d", e.Count, e.Threshold)
}

// DegenerateTransformError means the estimator produced no usable homography
// even though enough matches were available.
type DegenerateTransformError struct {
	Reason  string
	Matches int
	Inliers int
	Err     error
}

func (e *DegenerateTransformError) Error() string {
	msg := fmt.Sprintf("degenerate transform from %d matches (%d inliers): %s", e.Matches, e.Inliers, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DegenerateTransformError) Unwrap() error {
	return e.Err
}

// DimensionMismatchError means two images that must share a size do not.
type DimensionMismatchError struct {
	A image.Point
	B image.Point
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: aligned image is %dx%d, comparison image is %dx%d",
		e.A.X, e.A.Y, e.B.X, e.B.Y)
}

func missingCapability(name string) error {
	return fmt.Errorf("%w: no %s configured", ErrInvalidConfig, name)
}
