package imageprocessor

import (
	"image"
	"image/color"
	"math/rand"
)

// gridExtractor ignores pixel content and reports the same jittered grid of
// keypoints, each with a unique descriptor, for every image.
type gridExtractor struct {
	cols, rows int
	width      int
	height     int
}

func (g gridExtractor) Extract(img *image.Gray) (Features, error) {
	var f Features
	for j := 0; j < g.rows; j++ {
		for i := 0; i < g.cols; i++ {
			x := 10 + float64(i)*float64(g.width-20)/float64(g.cols) + float64((j*3)%7)
			y := 10 + float64(j)*float64(g.height-20)/float64(g.rows) + float64((i*5)%11)
			f.Keypoints = append(f.Keypoints, Keypoint{X: x, Y: y, Size: 4})
			f.Descriptors = append(f.Descriptors, uniqueDescriptor(j*g.cols+i))
		}
	}
	return f, nil
}

func uniqueDescriptor(i int) Descriptor {
	d := make(Descriptor, 16)
	for k := range d {
		d[k] = float32((i*31 + k*17) % 97)
	}
	d[i%16] += 200
	return d
}

func solidRGBA(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img
}

func fillSquare(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func texturedRGBA(w, h int, seed int64) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8((x*7 + y*3) % 256),
				G: uint8(rng.Intn(256)),
				B: uint8((x * y) % 256),
				A: 255,
			})
		}
	}
	return img
}

func gradientRGBA(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(2 * x), G: uint8(2 * y), B: 128, A: 255})
		}
	}
	return img
}

func maskFromPoints(w, h int, pts ...image.Point) *image.Gray {
	m := image.NewGray(image.Rect(0, 0, w, h))
	for _, p := range pts {
		m.SetGray(p.X, p.Y, color.Gray{Y: 255})
	}
	return m
}

func rectOutline(r image.Rectangle) []image.Point {
	var pts []image.Point
	for x := r.Min.X; x < r.Max.X; x++ {
		pts = append(pts, image.Pt(x, r.Min.Y), image.Pt(x, r.Max.Y-1))
	}
	for y := r.Min.Y + 1; y < r.Max.Y-1; y++ {
		pts = append(pts, image.Pt(r.Min.X, y), image.Pt(r.Max.X-1, y))
	}
	return pts
}
