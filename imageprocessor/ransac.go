package imageprocessor

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// RansacEstimator fits a homography by random sampling of minimal
// four-point sets, consensus scoring by reprojection error and a final
// least-squares refit over the consensus set. The seed makes runs repeatable.
type RansacEstimator struct {
	MaxIters   int
	Confidence float64
	Seed       int64
}

// Estimate implements HomographyEstimator.
func (e *RansacEstimator) Estimate(src, dst []Point, reprojThreshold float64) (Homography, []bool, error) {
	if len(src) != len(dst) {
		return Homography{}, nil, fmt.Errorf("point sets differ in length: %d vs %d", len(src), len(dst))
	}
	n := len(src)
	if n < 4 {
		return Homography{}, nil, fmt.Errorf("need at least 4 correspondences, got %d", n)
	}

	maxIters := e.MaxIters
	if maxIters <= 0 {
		maxIters = 2000
	}
	confidence := e.Confidence
	if confidence <= 0 || confidence >= 1 {
		confidence = 0.995
	}
	rng := rand.New(rand.NewSource(e.Seed))

	var best Homography
	bestCount := 0
	sample := make([]int, 4)
	sampleSrc := make([]Point, 4)
	sampleDst := make([]Point, 4)

	for iter := 0; iter < maxIters; iter++ {
		pickDistinct(rng, n, sample)
		for i, idx := range sample {
			sampleSrc[i] = src[idx]
			sampleDst[i] = dst[idx]
		}
		if hasCollinearTriple(sampleSrc) || hasCollinearTriple(sampleDst) {
			continue
		}

		h, err := fitHomography(sampleSrc, sampleDst)
		if err != nil {
			continue
		}

		count := countInliers(h, src, dst, reprojThreshold, nil)
		if count > bestCount {
			best = h
			bestCount = count
			if count == n {
				break
			}
			if needed := ransacIterations(confidence, float64(count)/float64(n)); needed < maxIters {
				maxIters = needed
			}
		}
	}

	if bestCount < 4 {
		return Homography{}, nil, errors.New("no consensus set of 4 or more points found")
	}

	mask := make([]bool, n)
	countInliers(best, src, dst, reprojThreshold, mask)

	inSrc := make([]Point, 0, bestCount)
	inDst := make([]Point, 0, bestCount)
	for i, ok := range mask {
		if ok {
			inSrc = append(inSrc, src[i])
			inDst = append(inDst, dst[i])
		}
	}

	refined, err := fitHomography(inSrc, inDst)
	if err != nil {
		return best, mask, nil
	}
	refinedMask := make([]bool, n)
	if countInliers(refined, src, dst, reprojThreshold, refinedMask) < bestCount {
		return best, mask, nil
	}
	return refined, refinedMask, nil
}

// ransacIterations is the number of draws needed to pick an all-inlier
// sample with the given confidence when a fraction w of points are inliers.
func ransacIterations(confidence, w float64) int {
	p := math.Pow(w, 4)
	if p >= 1 {
		return 0
	}
	if p <= 0 {
		return math.MaxInt32
	}
	num := math.Log(1 - confidence)
	den := math.Log(1 - p)
	if den >= 0 {
		return math.MaxInt32
	}
	return int(math.Ceil(num / den))
}

func pickDistinct(rng *rand.Rand, n int, out []int) {
	for i := range out {
		for {
			v := rng.Intn(n)
			if !slices.Contains(out[:i], v) {
				out[i] = v
				break
			}
		}
	}
}

func countInliers(h Homography, src, dst []Point, threshold float64, mask []bool) int {
	count := 0
	for i := range src {
		ok := h.ReprojectionError(src[i], dst[i]) <= threshold
		if ok {
			count++
		}
		if mask != nil {
			mask[i] = ok
		}
	}
	return count
}

func hasCollinearTriple(pts []Point) bool {
	for i := 0; i < len(pts); i++ {
		for j := i + 1; j < len(pts); j++ {
			for k := j + 1; k < len(pts); k++ {
				ax, ay := pts[j].X-pts[i].X, pts[j].Y-pts[i].Y
				bx, by := pts[k].X-pts[i].X, pts[k].Y-pts[i].Y
				cross := ax*by - ay*bx
				if math.Abs(cross) <= 1e-6*math.Max(1, math.Hypot(ax, ay)*math.Hypot(bx, by)) {
					return true
				}
			}
		}
	}
	return false
}

// fitHomography solves the normalised direct linear transform for four or
// more correspondences. The solution is the right singular vector of the
// smallest singular value of the design matrix.
func fitHomography(src, dst []Point) (Homography, error) {
	n := len(src)
	if n < 4 || len(dst) != n {
		return Homography{}, fmt.Errorf("need at least 4 correspondences, got %d", n)
	}
	tSrc, err := normalizingTransform(src)
	if err != nil {
		return Homography{}, err
	}
	tDst, err := normalizingTransform(dst)
	if err != nil {
		return Homography{}, err
	}

	a := mat.NewDense(2*n, 9, nil)
	for i := 0; i < n; i++ {
		s, _ := tSrc.Apply(src[i])
		d, _ := tDst.Apply(dst[i])
		a.SetRow(2*i, []float64{-s.X, -s.Y, -1, 0, 0, 0, d.X * s.X, d.X * s.Y, d.X})
		a.SetRow(2*i+1, []float64{0, 0, 0, -s.X, -s.Y, -1, d.Y * s.X, d.Y * s.Y, d.Y})
	}

	var ata mat.Dense
	ata.Mul(a.T(), a)

	var svd mat.SVD
	if !svd.Factorize(&ata, mat.SVDFull) {
		return Homography{}, errors.New("SVD of the design matrix did not converge")
	}
	var v mat.Dense
	svd.VTo(&v)

	var hn Homography
	for i := 0; i < 9; i++ {
		hn[i] = v.At(i, 8)
	}

	tDstInv, err := tDst.Inverse()
	if err != nil {
		return Homography{}, err
	}
	h := tDstInv.Mul(hn).Mul(tSrc)
	if math.Abs(h[8]) < 1e-12 || !h.IsFinite() {
		return Homography{}, errors.New("fitted homography is degenerate")
	}
	return h.Normalized(), nil
}

// normalizingTransform moves the centroid of pts to the origin and scales
// their mean distance from it to sqrt(2).
func normalizingTransform(pts []Point) (Homography, error) {
	var cx, cy float64
	for _, p := range pts {
		cx += p.X
		cy += p.Y
	}
	cx /= float64(len(pts))
	cy /= float64(len(pts))

	var meanDist float64
	for _, p := range pts {
		meanDist += math.Hypot(p.X-cx, p.Y-cy)
	}
	meanDist /= float64(len(pts))
	if meanDist < 1e-12 {
		return Homography{}, errors.New("all points coincide")
	}

	s := math.Sqrt2 / meanDist
	return Homography{s, 0, -s * cx, 0, s, -s * cy, 0, 0, 1}, nil
}
