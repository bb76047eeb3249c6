package cv

import (
	"fmt"
	"image"

	"reefwatch/imageprocessor"

	"gocv.io/x/gocv"
)

// SIFTExtractor detects SIFT keypoints and 128-float descriptors. Each call
// builds its own detector, so one value can serve concurrent extractions.
type SIFTExtractor struct{}

// Extract implements imageprocessor.FeatureExtractor.
func (SIFTExtractor) Extract(img *image.Gray) (imageprocessor.Features, error) {
	src, err := GrayToMat(img)
	if err != nil {
		return imageprocessor.Features{}, err
	}
	defer src.Close()

	sift := gocv.NewSIFT()
	defer sift.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	kps, desc := sift.DetectAndCompute(src, mask)
	defer desc.Close()

	feats := imageprocessor.Features{
		Keypoints: make([]imageprocessor.Keypoint, len(kps)),
	}
	for i, kp := range kps {
		feats.Keypoints[i] = imageprocessor.Keypoint{
			X:        kp.X,
			Y:        kp.Y,
			Size:     kp.Size,
			Angle:    kp.Angle,
			Response: kp.Response,
			Octave:   kp.Octave,
		}
	}

	if len(kps) == 0 {
		return feats, nil
	}
	if desc.Rows() != len(kps) {
		return imageprocessor.Features{}, fmt.Errorf("SIFT returned %d keypoints but %d descriptors", len(kps), desc.Rows())
	}

	data, err := desc.DataPtrFloat32()
	if err != nil {
		return imageprocessor.Features{}, fmt.Errorf("failed to read SIFT descriptors: %w", err)
	}
	cols := desc.Cols()
	feats.Descriptors = make([]imageprocessor.Descriptor, len(kps))
	for i := range feats.Descriptors {
		d := make(imageprocessor.Descriptor, cols)
		copy(d, data[i*cols:(i+1)*cols])
		feats.Descriptors[i] = d
	}
	return feats, nil
}

// FlannMatcher runs OpenCV's FLANN-based approximate nearest-neighbour
// search over descriptors.
type FlannMatcher struct{}

// KnnMatch implements imageprocessor.DescriptorMatcher.
func (FlannMatcher) KnnMatch(query, train []imageprocessor.Descriptor, k int) ([][]imageprocessor.Match, error) {
	out := make([][]imageprocessor.Match, len(query))
	if len(query) == 0 || len(train) == 0 || k <= 0 {
		return out, nil
	}
	if k > len(train) {
		k = len(train)
	}

	q, err := descriptorsToMat(query)
	if err != nil {
		return nil, fmt.Errorf("query descriptors: %w", err)
	}
	defer q.Close()
	t, err := descriptorsToMat(train)
	if err != nil {
		return nil, fmt.Errorf("train descriptors: %w", err)
	}
	defer t.Close()

	matcher := gocv.NewFlannBasedMatcher()
	defer matcher.Close()

	for _, row := range matcher.KnnMatch(q, t, k) {
		for _, m := range row {
			if m.QueryIdx < 0 || m.QueryIdx >= len(query) || m.TrainIdx < 0 || m.TrainIdx >= len(train) {
				return nil, fmt.Errorf("FLANN returned match %d->%d outside %d query / %d train descriptors",
					m.QueryIdx, m.TrainIdx, len(query), len(train))
			}
			out[m.QueryIdx] = append(out[m.QueryIdx], imageprocessor.Match{
				QueryIdx: m.QueryIdx,
				TrainIdx: m.TrainIdx,
				Distance: m.Distance,
			})
		}
	}
	return out, nil
}

func descriptorsToMat(descs []imageprocessor.Descriptor) (gocv.Mat, error) {
	cols := len(descs[0])
	if cols == 0 {
		return gocv.NewMat(), fmt.Errorf("empty descriptor")
	}
	m := gocv.NewMatWithSize(len(descs), cols, gocv.MatTypeCV32F)
	for r, d := range descs {
		if len(d) != cols {
			m.Close()
			return gocv.NewMat(), fmt.Errorf("descriptor %d has length %d, want %d", r, len(d), cols)
		}
		for c, v := range d {
			m.SetFloatAt(r, c, v)
		}
	}
	return m, nil
}
