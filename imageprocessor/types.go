package imageprocessor

import (
	"fmt"
	"image"
)

// Point is a sub-pixel image coordinate.
type Point struct {
	X, Y float64
}

// Keypoint is a detected feature location with its scale and orientation.
type Keypoint struct {
	X        float64
	Y        float64
	Size     float64
	Angle    float64
	Response float64
	Octave   int
}

// Pt returns the keypoint location.
func (k Keypoint) Pt() Point {
	return Point{X: k.X, Y: k.Y}
}

// Descriptor is the appearance vector of one keypoint.
type Descriptor []float32

// Features holds the keypoints of one image and their descriptors, index
// for index.
type Features struct {
	Keypoints   []Keypoint
	Descriptors []Descriptor
}

// Len returns the number of keypoints.
func (f Features) Len() int {
	return len(f.Keypoints)
}

// Validate checks that every keypoint has exactly one descriptor.
func (f Features) Validate() error {
	if len(f.Keypoints) != len(f.Descriptors) {
		return fmt.Errorf("feature set has %d keypoints but %d descriptors", len(f.Keypoints), len(f.Descriptors))
	}
	return nil
}

// Match relates keypoint QueryIdx of the baseline image to keypoint TrainIdx
// of the current image.
type Match struct {
	QueryIdx int
	TrainIdx int
	Distance float64
}

// Region is one connected set of changed pixels. Box is set by detectors
// that already know the bounding rectangle.
type Region struct {
	Pixels []image.Point
	Box    image.Rectangle
}

// Bounds returns the smallest rectangle enclosing every pixel of the region.
func (r Region) Bounds() image.Rectangle {
	if !r.Box.Empty() {
		return r.Box
	}
	if len(r.Pixels) == 0 {
		return image.Rectangle{}
	}
	minX, minY := r.Pixels[0].X, r.Pixels[0].Y
	maxX, maxY := minX, minY
	for _, p := range r.Pixels[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// Area returns the number of pixels in the region.
func (r Region) Area() int {
	return len(r.Pixels)
}

// Result is everything one pipeline run produces.
type Result struct {
	Annotated     *image.RGBA
	Regions       []Region
	Boxes         []image.Rectangle
	Homography    Homography
	Inliers       []bool
	KeypointsA    int
	KeypointsB    int
	GoodMatches   int
	InlierCount   int
	ChangedPixels int
}
