package imageprocessor

import (
	"fmt"
	"image"
)

// Preprocess turns a raw photograph into the denoised intensity image
// features are detected on: grayscale, then median, then Gaussian.
// A kernel size of 1 skips that filter.
func Preprocess(img image.Image, cfg Config, smoother Smoother) (*image.Gray, error) {
	gray, err := ToGray(img)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}
	if cfg.MedianKernel > 1 {
		gray = smoother.MedianBlur(gray, cfg.MedianKernel)
	}
	if cfg.GaussianKernel > 1 {
		gray = smoother.GaussianBlur(gray, cfg.GaussianKernel)
	}
	return gray, nil
}
