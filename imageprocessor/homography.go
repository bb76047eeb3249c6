package imageprocessor

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Homography is a 3x3 projective transform stored row-major. It maps
// baseline coordinates onto current-image coordinates.
type Homography [9]float64

// Identity returns the transform that leaves every point in place.
func Identity() Homography {
	return Homography{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// Dense returns a gonum copy of the matrix.
func (h Homography) Dense() *mat.Dense {
	data := make([]float64, 9)
	copy(data, h[:])
	return mat.NewDense(3, 3, data)
}

func homographyFromDense(m mat.Matrix) Homography {
	var h Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			h[r*3+c] = m.At(r, c)
		}
	}
	return h
}

// Apply maps p through the transform. It reports false when p lands on the
// line at infinity.
func (h Homography) Apply(p Point) (Point, bool) {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	if math.Abs(w) < 1e-12 {
		return Point{}, false
	}
	return Point{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}, true
}

// Det returns the determinant.
func (h Homography) Det() float64 {
	return mat.Det(h.Dense())
}

// Cond returns the 2-norm condition number.
func (h Homography) Cond() float64 {
	return mat.Cond(h.Dense(), 2)
}

// Normalized scales the matrix so its bottom-right entry is 1. Matrices whose
// bottom-right entry is zero are returned unchanged.
func (h Homography) Normalized() Homography {
	if math.Abs(h[8]) < 1e-15 {
		return h
	}
	s := h[8]
	for i := range h {
		h[i] /= s
	}
	return h
}

// IsFinite reports whether every coefficient is a finite number.
func (h Homography) IsFinite() bool {
	for _, v := range h {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// IsZero reports whether h is the zero matrix, which estimators return when
// they give up.
func (h Homography) IsZero() bool {
	return h == Homography{}
}

// Inverse returns the transform mapping current-image coordinates back onto
// the baseline.
func (h Homography) Inverse() (Homography, error) {
	if !h.IsFinite() {
		return Homography{}, errors.New("homography has non-finite coefficients")
	}
	var inv mat.Dense
	if err := inv.Inverse(h.Dense()); err != nil {
		return Homography{}, fmt.Errorf("homography is not invertible: %w", err)
	}
	return homographyFromDense(&inv).Normalized(), nil
}

// Mul returns the composition h * o, that is o applied first.
func (h Homography) Mul(o Homography) Homography {
	var m mat.Dense
	m.Mul(h.Dense(), o.Dense())
	return homographyFromDense(&m)
}

// ReprojectionError is the distance between h(src) and dst, or +Inf when
// src maps to infinity.
func (h Homography) ReprojectionError(src, dst Point) float64 {
	p, ok := h.Apply(src)
	if !ok {
		return math.Inf(1)
	}
	return math.Hypot(p.X-dst.X, p.Y-dst.Y)
}

// String formats the matrix on one line for logs.
func (h Homography) String() string {
	return fmt.Sprintf("[%.6g %.6g %.6g; %.6g %.6g %.6g; %.6g %.6g %.6g]",
		h[0], h[1], h[2], h[3], h[4], h[5], h[6], h[7], h[8])
}
