package imageprocessor

import (
	"image"
	"image/color"
)

// BoundingBoxes reduces each region to its bounding rectangle, clipped to
// bounds. Order follows regions.
func BoundingBoxes(regions []Region, bounds image.Rectangle) []image.Rectangle {
	boxes := make([]image.Rectangle, 0, len(regions))
	for _, r := range regions {
		boxes = append(boxes, r.Bounds().Intersect(bounds))
	}
	return boxes
}

// Summarize draws the bounding box of every region onto a copy of img and
// returns the copy with the boxes. img itself is never modified. Boxes are
// drawn in region order; overlaps simply overdraw.
func Summarize(img image.Image, regions []Region, style BoxStyle) (*image.RGBA, []image.Rectangle) {
	b := img.Bounds()
	// Region coordinates are relative to the origin-anchored mask.
	boxes := BoundingBoxes(regions, image.Rect(0, 0, b.Dx(), b.Dy()))
	out, _ := NativeAnnotator{}.Annotate(img, boxes, style)
	return out, boxes
}

// NativeAnnotator implements Annotator by stroking outlines directly into
// an RGBA copy.
type NativeAnnotator struct{}

// Annotate implements Annotator. It never fails.
func (NativeAnnotator) Annotate(img image.Image, boxes []image.Rectangle, style BoxStyle) (*image.RGBA, error) {
	out := cloneRGBA(img)
	for _, box := range boxes {
		drawOutline(out, box, style)
	}
	return out, nil
}

// drawOutline strokes the rectangle with corners (x, y) and (x+w, y+h), the
// corners cv::rectangle is given for a box of size w x h, with a band of
// style.Thickness pixels straddling each edge.
func drawOutline(img *image.RGBA, box image.Rectangle, style BoxStyle) {
	if box.Empty() {
		return
	}
	t := style.Thickness
	if t < 1 {
		t = 1
	}
	lo := -(t / 2)
	hi := lo + t

	x0, y0 := box.Min.X, box.Min.Y
	x1, y1 := box.Max.X, box.Max.Y

	fillRect(img, image.Rect(x0+lo, y0+lo, x1+hi, y0+hi), style.Color)
	fillRect(img, image.Rect(x0+lo, y1+lo, x1+hi, y1+hi), style.Color)
	fillRect(img, image.Rect(x0+lo, y0+lo, x0+hi, y1+hi), style.Color)
	fillRect(img, image.Rect(x1+lo, y0+lo, x1+hi, y1+hi), style.Color)
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := img.PixOffset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x++ {
			img.Pix[i] = c.R
			img.Pix[i+1] = c.G
			img.Pix[i+2] = c.B
			img.Pix[i+3] = c.A
			i += 4
		}
	}
}
