package cv

import (
	"fmt"
	"image"

	"reefwatch/imageprocessor"

	"gocv.io/x/gocv"
)

// ChangeDetector runs cv::absdiff, cvtColor(BGR2GRAY) and a binary
// threshold, then finds outer regions with cv::findContours(RETR_EXTERNAL).
type ChangeDetector struct{}

// DetectChanges implements imageprocessor.ChangeDetector.
func (ChangeDetector) DetectChanges(aligned, current image.Image, threshold int) (*image.Gray, []imageprocessor.Region, error) {
	sa, sb := aligned.Bounds().Size(), current.Bounds().Size()
	if sa != sb {
		return nil, nil, &imageprocessor.DimensionMismatchError{A: sa, B: sb}
	}

	a, err := ImageToBGR(aligned)
	if err != nil {
		return nil, nil, fmt.Errorf("aligned image conversion: %w", err)
	}
	defer a.Close()
	b, err := ImageToBGR(current)
	if err != nil {
		return nil, nil, fmt.Errorf("current image conversion: %w", err)
	}
	defer b.Close()

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(a, b, &diff)

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(diff, &gray, gocv.ColorBGRToGray)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(gray, &thresh, float32(threshold), 255, gocv.ThresholdBinary)

	mask, err := MatToGray(thresh)
	if err != nil {
		return nil, nil, fmt.Errorf("mask conversion: %w", err)
	}

	regions, err := externalRegions(thresh)
	if err != nil {
		return nil, nil, err
	}
	return mask, regions, nil
}

// externalRegions returns the pixels of every 8-connected component that
// has an external contour, in raster order of each component's first pixel.
func externalRegions(mask gocv.Mat) ([]imageprocessor.Region, error) {
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()
	if contours.Size() == 0 {
		return nil, nil
	}

	labels := gocv.NewMat()
	defer labels.Close()
	gocv.ConnectedComponents(mask, &labels)

	lab, err := labels.DataPtrInt32()
	if err != nil {
		return nil, fmt.Errorf("reading component labels: %w", err)
	}
	cols := labels.Cols()

	// Contour points lie on their component, so any one of them names it.
	boxes := make(map[int32]image.Rectangle, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		if contour.Size() == 0 {
			continue
		}
		p := contour.At(0)
		label := lab[p.Y*cols+p.X]
		if label == 0 {
			return nil, fmt.Errorf("contour %d starts on background at %v", i, p)
		}
		boxes[label] = gocv.BoundingRect(contour)
	}

	order := make(map[int32]int, len(boxes))
	var regions []imageprocessor.Region
	for idx, label := range lab {
		box, ok := boxes[label]
		if !ok {
			continue
		}
		n, seen := order[label]
		if !seen {
			n = len(regions)
			order[label] = n
			regions = append(regions, imageprocessor.Region{Box: box})
		}
		regions[n].Pixels = append(regions[n].Pixels, image.Pt(idx%cols, idx/cols))
	}
	return regions, nil
}

// Annotator outlines boxes with cv::rectangle.
type Annotator struct{}

// Annotate implements imageprocessor.Annotator. Each outline runs through
// (x, y) and (x+w, y+h).
func (Annotator) Annotate(img image.Image, boxes []image.Rectangle, style imageprocessor.BoxStyle) (*image.RGBA, error) {
	m, err := ImageToBGR(img)
	if err != nil {
		return nil, fmt.Errorf("image conversion: %w", err)
	}
	defer m.Close()

	for _, box := range boxes {
		if box.Empty() {
			continue
		}
		// cv::rectangle stops one pixel short of the Rect's far corner.
		gocv.Rectangle(&m, image.Rect(box.Min.X, box.Min.Y, box.Max.X+1, box.Max.Y+1), style.Color, style.Thickness)
	}

	out, err := MatToRGBA(m)
	if err != nil {
		return nil, fmt.Errorf("annotated image conversion: %w", err)
	}
	return out, nil
}
