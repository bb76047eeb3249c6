package imageprocessor

import "image"

// DifferenceMask marks every pixel whose absolute colour difference, reduced
// to intensity, exceeds threshold. Changed pixels are 255, the rest 0. A
// difference equal to the threshold is not a change.
func DifferenceMask(a, b image.Image, threshold int) (*image.Gray, error) {
	if err := checkImage(a); err != nil {
		return nil, err
	}
	if err := checkImage(b); err != nil {
		return nil, err
	}
	sa, sb := a.Bounds().Size(), b.Bounds().Size()
	if sa != sb {
		return nil, &DimensionMismatchError{A: sa, B: sb}
	}

	ra, rb := asRGBA(a), asRGBA(b)
	mask := image.NewGray(image.Rect(0, 0, sa.X, sa.Y))
	for y := 0; y < sa.Y; y++ {
		ia := y * ra.Stride
		ib := y * rb.Stride
		for x := 0; x < sa.X; x++ {
			d := luma(
				absDiff(ra.Pix[ia], rb.Pix[ib]),
				absDiff(ra.Pix[ia+1], rb.Pix[ib+1]),
				absDiff(ra.Pix[ia+2], rb.Pix[ib+2]),
			)
			if int(d) > threshold {
				mask.Pix[y*mask.Stride+x] = 255
			}
			ia += 4
			ib += 4
		}
	}
	return mask, nil
}

// DetectDifferences returns the outer connected regions of change between
// the aligned baseline and the current image.
func DetectDifferences(aligned, current image.Image, threshold int) ([]Region, error) {
	_, regions, err := NativeChangeDetector{}.DetectChanges(aligned, current, threshold)
	return regions, err
}

// NativeChangeDetector implements ChangeDetector with DifferenceMask and
// ExternalRegions.
type NativeChangeDetector struct{}

// DetectChanges implements ChangeDetector.
func (NativeChangeDetector) DetectChanges(aligned, current image.Image, threshold int) (*image.Gray, []Region, error) {
	mask, err := DifferenceMask(aligned, current, threshold)
	if err != nil {
		return nil, nil, err
	}
	return mask, ExternalRegions(mask), nil
}

// CountNonZero returns the number of set pixels in a mask.
func CountNonZero(mask *image.Gray) int {
	n := 0
	b := mask.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := mask.Pix[mask.PixOffset(b.Min.X, y) : mask.PixOffset(b.Min.X, y)+b.Dx()]
		for _, v := range row {
			if v != 0 {
				n++
			}
		}
	}
	return n
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}
