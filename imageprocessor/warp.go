package imageprocessor

import (
	"fmt"
	"image"
	"math"
)

// NativeWarper implements Warper with inverse mapping and bilinear
// interpolation against a constant black border, matching
// cv::warpPerspective with INTER_LINEAR and BORDER_CONSTANT.
type NativeWarper struct{}

// WarpPerspective implements Warper. A transform that cannot be inverted
// yields an all-black canvas.
func (NativeWarper) WarpPerspective(src image.Image, h Homography, size image.Point) (*image.RGBA, error) {
	out := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 0xff
	}

	inv, err := h.Inverse()
	if err != nil {
		return out, nil
	}
	s := asRGBA(src)
	sw, sh := s.Rect.Dx(), s.Rect.Dy()

	for y := 0; y < size.Y; y++ {
		for x := 0; x < size.X; x++ {
			p, ok := inv.Apply(Point{X: float64(x), Y: float64(y)})
			if !ok || p.X <= -1 || p.Y <= -1 || p.X >= float64(sw) || p.Y >= float64(sh) {
				continue
			}
			x0 := int(math.Floor(p.X))
			y0 := int(math.Floor(p.Y))
			fx := p.X - float64(x0)
			fy := p.Y - float64(y0)

			var acc [3]float64
			weights := [4]float64{(1 - fx) * (1 - fy), fx * (1 - fy), (1 - fx) * fy, fx * fy}
			corners := [4]image.Point{{x0, y0}, {x0 + 1, y0}, {x0, y0 + 1}, {x0 + 1, y0 + 1}}
			for i, c := range corners {
				if c.X < 0 || c.Y < 0 || c.X >= sw || c.Y >= sh || weights[i] == 0 {
					continue
				}
				si := c.Y*s.Stride + c.X*4
				acc[0] += weights[i] * float64(s.Pix[si])
				acc[1] += weights[i] * float64(s.Pix[si+1])
				acc[2] += weights[i] * float64(s.Pix[si+2])
			}

			di := y*out.Stride + x*4
			out.Pix[di] = clampUint8(acc[0])
			out.Pix[di+1] = clampUint8(acc[1])
			out.Pix[di+2] = clampUint8(acc[2])
		}
	}
	return out, nil
}

// Warp resamples the baseline image into the current image's frame.
func Warp(img image.Image, h Homography, size image.Point, warper Warper) (*image.RGBA, error) {
	if err := checkImage(img); err != nil {
		return nil, err
	}
	if size.X <= 0 || size.Y <= 0 {
		return nil, ErrInvalidImage
	}
	out, err := warper.WarpPerspective(img, h, size)
	if err != nil {
		return nil, err
	}
	if out.Bounds().Size() != size {
		return nil, fmt.Errorf("warper returned %v, want %v", out.Bounds().Size(), size)
	}
	return out, nil
}
