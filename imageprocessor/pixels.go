package imageprocessor

import (
	"image"
	"image/color"
	"image/draw"
)

// luma converts 8-bit RGB to intensity with ITU-R 601 weights in OpenCV's
// 14-bit fixed point, so results equal cv::cvtColor(BGR2GRAY) bit for bit.
func luma(r, g, b uint8) uint8 {
	y := (4899*uint32(r) + 9617*uint32(g) + 1868*uint32(b) + 1<<13) >> 14
	if y > 255 {
		y = 255
	}
	return uint8(y)
}

func checkImage(img image.Image) error {
	if img == nil || img.Bounds().Empty() {
		return ErrInvalidImage
	}
	return nil
}

// ToGray returns a new single-channel copy of img anchored at the origin.
func ToGray(img image.Image) (*image.Gray, error) {
	if err := checkImage(img); err != nil {
		return nil, err
	}
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < b.Dy(); y++ {
			copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()], src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):])
		}
	case *image.RGBA:
		for y := 0; y < b.Dy(); y++ {
			si := src.PixOffset(b.Min.X, b.Min.Y+y)
			di := y * out.Stride
			for x := 0; x < b.Dx(); x++ {
				out.Pix[di+x] = luma(src.Pix[si], src.Pix[si+1], src.Pix[si+2])
				si += 4
			}
		}
	default:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				c := color.RGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)
				out.Pix[y*out.Stride+x] = luma(c.R, c.G, c.B)
			}
		}
	}
	return out, nil
}

// cloneRGBA returns a new RGBA copy of img anchored at the origin.
func cloneRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// asRGBA returns img itself when it already is an origin-anchored RGBA, a
// copy otherwise. The result must be treated as read-only.
func asRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	return cloneRGBA(img)
}
