package cv

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"reefwatch/imageprocessor"

	"gocv.io/x/gocv"
)

// RansacHomography fits homographies with cv::findHomography(RANSAC).
type RansacHomography struct {
	MaxIters   int
	Confidence float64
}

// Estimate implements imageprocessor.HomographyEstimator.
func (e RansacHomography) Estimate(src, dst []imageprocessor.Point, reprojThreshold float64) (imageprocessor.Homography, []bool, error) {
	if len(src) != len(dst) {
		return imageprocessor.Homography{}, nil, fmt.Errorf("point sets differ in length: %d vs %d", len(src), len(dst))
	}
	if len(src) < 4 {
		return imageprocessor.Homography{}, nil, fmt.Errorf("need at least 4 correspondences, got %d", len(src))
	}

	srcMat := pointsToMat(src)
	defer srcMat.Close()
	dstMat := pointsToMat(dst)
	defer dstMat.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	hMat := gocv.FindHomography(srcMat, &dstMat, gocv.HomograpyMethodRANSAC, reprojThreshold, &mask, e.MaxIters, e.Confidence)
	defer hMat.Close()

	if hMat.Empty() || hMat.Rows() != 3 || hMat.Cols() != 3 {
		return imageprocessor.Homography{}, nil, errors.New("OpenCV found no homography")
	}

	var h imageprocessor.Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			h[r*3+c] = hMat.GetDoubleAt(r, c)
		}
	}

	inliers := make([]bool, len(src))
	if mask.Rows()*mask.Cols() == len(src) {
		for i := range inliers {
			inliers[i] = mask.GetUCharAt(i, 0) != 0
		}
	}
	return h, inliers, nil
}

func pointsToMat(pts []imageprocessor.Point) gocv.Mat {
	m := gocv.NewMatWithSize(len(pts), 2, gocv.MatTypeCV64F)
	for i, p := range pts {
		m.SetDoubleAt(i, 0, p.X)
		m.SetDoubleAt(i, 1, p.Y)
	}
	return m
}

func homographyToMat(h imageprocessor.Homography) gocv.Mat {
	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m.SetDoubleAt(r, c, h[r*3+c])
		}
	}
	return m
}

// PerspectiveWarper resamples with cv::warpPerspective, bilinear
// interpolation and a black constant border.
type PerspectiveWarper struct{}

// WarpPerspective implements imageprocessor.Warper.
func (PerspectiveWarper) WarpPerspective(src image.Image, h imageprocessor.Homography, size image.Point) (*image.RGBA, error) {
	srcMat, err := ImageToBGR(src)
	if err != nil {
		return nil, fmt.Errorf("source conversion: %w", err)
	}
	defer srcMat.Close()

	hMat := homographyToMat(h)
	defer hMat.Close()

	warped := gocv.NewMat()
	defer warped.Close()

	gocv.WarpPerspectiveWithParams(srcMat, &warped, hMat, size, gocv.InterpolationLinear, gocv.BorderConstant, color.RGBA{})

	out, err := MatToRGBA(warped)
	if err != nil {
		return nil, fmt.Errorf("warped image conversion: %w", err)
	}
	return out, nil
}
