package imageprocessor

import "image"

// ExternalRegions extracts the 8-connected components of non-zero pixels in
// mask, keeping only outer components: those touching the image border or
// bordering background that is 4-connected to the border. Components lying
// inside the hole of another component are dropped, as cv::findContours
// does with RETR_EXTERNAL. Regions are returned in raster order of their
// first pixel.
func ExternalRegions(mask *image.Gray) []Region {
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}
	fg := make([]bool, w*h)
	for y := 0; y < h; y++ {
		off := mask.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < w; x++ {
			fg[y*w+x] = mask.Pix[off+x] != 0
		}
	}

	outside := floodBackground(fg, w, h)

	visited := make([]bool, w*h)
	var regions []Region
	var queue []int
	for start := range fg {
		if !fg[start] || visited[start] {
			continue
		}
		visited[start] = true
		queue = append(queue[:0], start)
		var pixels []image.Point
		external := false

		for len(queue) > 0 {
			idx := queue[0]
			queue = queue[1:]
			x, y := idx%w, idx/w
			pixels = append(pixels, image.Pt(b.Min.X+x, b.Min.Y+y))

			if x == 0 || y == 0 || x == w-1 || y == h-1 {
				external = true
			}
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					n := ny*w + nx
					if fg[n] {
						if !visited[n] {
							visited[n] = true
							queue = append(queue, n)
						}
					} else if (dx == 0 || dy == 0) && outside[n] {
						external = true
					}
				}
			}
		}

		if external {
			regions = append(regions, Region{Pixels: pixels})
		}
	}
	return regions
}

// floodBackground marks background pixels reachable from the image border
// through 4-connected background.
func floodBackground(fg []bool, w, h int) []bool {
	outside := make([]bool, w*h)
	var queue []int
	seed := func(idx int) {
		if !fg[idx] && !outside[idx] {
			outside[idx] = true
			queue = append(queue, idx)
		}
	}
	for x := 0; x < w; x++ {
		seed(x)
		seed((h-1)*w + x)
	}
	for y := 0; y < h; y++ {
		seed(y * w)
		seed(y*w + w - 1)
	}

	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		x, y := idx%w, idx/w
		if x > 0 {
			seed(idx - 1)
		}
		if x < w-1 {
			seed(idx + 1)
		}
		if y > 0 {
			seed(idx - w)
		}
		if y < h-1 {
			seed(idx + w)
		}
	}
	return outside
}
