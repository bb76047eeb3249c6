// Package cv implements the imageprocessor capabilities on top of OpenCV.
package cv

import (
	"fmt"
	"image"
	"image/draw"

	"gocv.io/x/gocv"
)

// GrayToMat copies a Go grayscale image into a single-channel Mat. The
// caller owns the returned Mat.
func GrayToMat(img *image.Gray) (gocv.Mat, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return gocv.NewMat(), fmt.Errorf("cannot convert empty image")
	}

	pix := img.Pix
	if img.Stride != w || b.Min != (image.Point{}) {
		pix = make([]byte, w*h)
		for y := 0; y < h; y++ {
			copy(pix[y*w:(y+1)*w], img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):])
		}
	}

	view, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC1, pix)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to wrap gray pixels: %w", err)
	}
	defer view.Close()

	return view.Clone(), nil
}

// ImageToBGR copies any Go image into a 3-channel BGR Mat. The caller owns
// the returned Mat.
func ImageToBGR(img image.Image) (gocv.Mat, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return gocv.NewMat(), fmt.Errorf("cannot convert empty image")
	}

	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != w*4 || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}

	view, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC4, rgba.Pix)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to wrap RGBA pixels: %w", err)
	}
	defer view.Close()

	bgr := gocv.NewMat()
	gocv.CvtColor(view, &bgr, gocv.ColorRGBAToBGR)
	return bgr, nil
}

// MatToRGBA copies a 1-, 3- or 4-channel 8-bit Mat into a new RGBA image.
func MatToRGBA(m gocv.Mat) (*image.RGBA, error) {
	if m.Empty() {
		return nil, fmt.Errorf("cannot convert empty Mat")
	}

	rgbaMat := gocv.NewMat()
	defer rgbaMat.Close()

	switch m.Channels() {
	case 1:
		gocv.CvtColor(m, &rgbaMat, gocv.ColorGrayToRGBA)
	case 3:
		gocv.CvtColor(m, &rgbaMat, gocv.ColorBGRToRGBA)
	case 4:
		gocv.CvtColor(m, &rgbaMat, gocv.ColorBGRAToRGBA)
	default:
		return nil, fmt.Errorf("unsupported channel count %d", m.Channels())
	}

	if rgbaMat.Type() != gocv.MatTypeCV8UC4 {
		return nil, fmt.Errorf("unsupported Mat depth (type %v)", m.Type())
	}

	out := image.NewRGBA(image.Rect(0, 0, rgbaMat.Cols(), rgbaMat.Rows()))
	copy(out.Pix, rgbaMat.ToBytes())
	return out, nil
}

// MatToGray copies a single-channel 8-bit Mat into a new gray image.
func MatToGray(m gocv.Mat) (*image.Gray, error) {
	if m.Empty() {
		return nil, fmt.Errorf("cannot convert empty Mat")
	}
	if m.Type() != gocv.MatTypeCV8UC1 {
		return nil, fmt.Errorf("expected 8-bit single-channel Mat, got type %v", m.Type())
	}
	out := image.NewGray(image.Rect(0, 0, m.Cols(), m.Rows()))
	copy(out.Pix, m.ToBytes())
	return out, nil
}
