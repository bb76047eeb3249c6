package cv

import (
	"fmt"
	"image"

	"reefwatch/imageprocessor"
	"reefwatch/logging"

	"gocv.io/x/gocv"
)

// Smoother runs cv::medianBlur and cv::GaussianBlur (sigma 0). If a Mat
// conversion fails the pure-Go filters produce the result instead.
type Smoother struct{}

// MedianBlur implements imageprocessor.Smoother.
func (Smoother) MedianBlur(src *image.Gray, ksize int) *image.Gray {
	out, err := filterGray(src, func(in gocv.Mat, out *gocv.Mat) {
		gocv.MedianBlur(in, out, ksize)
	})
	if err != nil {
		logging.LogWarning("OpenCV median blur unavailable, using native filter: %v", err)
		return imageprocessor.NativeSmoother{}.MedianBlur(src, ksize)
	}
	return out
}

// GaussianBlur implements imageprocessor.Smoother.
func (Smoother) GaussianBlur(src *image.Gray, ksize int) *image.Gray {
	out, err := filterGray(src, func(in gocv.Mat, out *gocv.Mat) {
		gocv.GaussianBlur(in, out, image.Pt(ksize, ksize), 0, 0, gocv.BorderDefault)
	})
	if err != nil {
		logging.LogWarning("OpenCV gaussian blur unavailable, using native filter: %v", err)
		return imageprocessor.NativeSmoother{}.GaussianBlur(src, ksize)
	}
	return out
}

func filterGray(src *image.Gray, apply func(in gocv.Mat, out *gocv.Mat)) (*image.Gray, error) {
	in, err := GrayToMat(src)
	if err != nil {
		return nil, fmt.Errorf("input conversion: %w", err)
	}
	defer in.Close()

	out := gocv.NewMat()
	defer out.Close()

	apply(in, &out)

	gray, err := MatToGray(out)
	if err != nil {
		return nil, fmt.Errorf("output conversion: %w", err)
	}
	return gray, nil
}
