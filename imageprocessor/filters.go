package imageprocessor

import (
	"image"
	"math"
	"slices"
)

// NativeSmoother implements Smoother without OpenCV, reproducing
// cv::medianBlur and cv::GaussianBlur border handling for 8-bit images.
type NativeSmoother struct{}

// MedianBlur replaces each pixel by the median of its ksize x ksize
// neighbourhood, replicating edge pixels outside the image.
func (NativeSmoother) MedianBlur(src *image.Gray, ksize int) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	r := ksize / 2
	window := make([]uint8, 0, ksize*ksize)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			window = window[:0]
			for dy := -r; dy <= r; dy++ {
				sy := clampIndex(y+dy, h)
				row := src.PixOffset(b.Min.X, b.Min.Y+sy)
				for dx := -r; dx <= r; dx++ {
					window = append(window, src.Pix[row+clampIndex(x+dx, w)])
				}
			}
			slices.Sort(window)
			out.Pix[y*out.Stride+x] = window[len(window)/2]
		}
	}
	return out
}

// GaussianBlur applies a separable ksize x ksize Gaussian with the sigma
// derived from the kernel size, reflecting (101) at the borders.
func (NativeSmoother) GaussianBlur(src *image.Gray, ksize int) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	kernel := GaussianKernel(ksize)
	r := ksize / 2

	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := src.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < w; x++ {
			var sum float64
			for i, k := range kernel {
				sum += k * float64(src.Pix[row+reflect101(x+i-r, w)])
			}
			tmp[y*w+x] = sum
		}
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for i, k := range kernel {
				sum += k * tmp[reflect101(y+i-r, h)*w+x]
			}
			out.Pix[y*out.Stride+x] = clampUint8(sum)
		}
	}
	return out
}

var smallGaussianTab = map[int][]float64{
	1: {1},
	3: {0.25, 0.5, 0.25},
	5: {0.0625, 0.25, 0.375, 0.25, 0.0625},
	7: {0.03125, 0.109375, 0.21875, 0.28125, 0.21875, 0.109375, 0.03125},
}

// GaussianKernel returns the normalised 1-D kernel OpenCV uses for the given
// size when sigma is zero.
func GaussianKernel(ksize int) []float64 {
	if tab, ok := smallGaussianTab[ksize]; ok {
		return slices.Clone(tab)
	}
	sigma := 0.3*(float64(ksize-1)*0.5-1) + 0.8
	kernel := make([]float64, ksize)
	var sum float64
	for i := range kernel {
		d := float64(i - ksize/2)
		kernel[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// reflect101 maps an out-of-range index the way BORDER_REFLECT_101 does:
// gfedcb|abcdefgh|gfedcba.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

func clampUint8(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
