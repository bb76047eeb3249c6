package imageprocessor

import (
	"fmt"
	"math"
)

// BruteForceMatcher is an exact L2 nearest-neighbour search. Equal distances
// keep the lower train index first, so results are deterministic.
type BruteForceMatcher struct{}

// KnnMatch implements DescriptorMatcher.
func (BruteForceMatcher) KnnMatch(query, train []Descriptor, k int) ([][]Match, error) {
	out := make([][]Match, len(query))
	if k <= 0 {
		return out, nil
	}
	for qi, q := range query {
		row := make([]Match, 0, k)
		for ti, t := range train {
			d := l2Distance(q, t)
			if len(row) == k && d >= row[k-1].Distance {
				continue
			}
			m := Match{QueryIdx: qi, TrainIdx: ti, Distance: d}
			pos := len(row)
			for pos > 0 && row[pos-1].Distance > d {
				pos--
			}
			if len(row) < k {
				row = append(row, Match{})
			}
			copy(row[pos+1:], row[pos:len(row)-1])
			row[pos] = m
		}
		out[qi] = row
	}
	return out, nil
}

func l2Distance(a, b Descriptor) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// MatchFeatures pairs every baseline descriptor with its nearest current
// descriptor and keeps the pair only when it passes Lowe's ratio test:
// nearest < ratio * second nearest. Accepted matches keep the order of the
// baseline descriptors.
func MatchFeatures(a, b []Descriptor, ratio float64, matcher DescriptorMatcher) ([]Match, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, nil
	}
	rows, err := matcher.KnnMatch(a, b, 2)
	if err != nil {
		return nil, fmt.Errorf("descriptor matching: %w", err)
	}
	good := make([]Match, 0, len(a)/4)
	for _, row := range rows {
		// A single neighbour gives nothing to compare against.
		if len(row) < 2 {
			continue
		}
		if row[0].Distance < ratio*row[1].Distance {
			good = append(good, row[0])
		}
	}
	return good, nil
}
