package processor

import (
	"errors"
	"fmt"
	"image"
	"runtime/debug"
	"time"

	"reefwatch/imageio"
	"reefwatch/imageprocessor"
	"reefwatch/logging"
	"reefwatch/types"
)

// ImageLoader decodes a photo from disk
type ImageLoader interface {
	LoadImage(path string) (image.Image, error)
}

// PairRequest names one baseline/current comparison
type PairRequest struct {
	Site               string
	BaselinePath       string
	CurrentPath        string
	OutputPath         string // empty skips writing the annotated image
	BaselineCapturedAt string
	CurrentCapturedAt  string
}

// PairOutcome is the result of processing one pair. Run is filled in on
// failure too so the attempt can be recorded.
type PairOutcome struct {
	Run     types.RunRecord
	Regions []types.RegionRecord
	Result  *imageprocessor.Result
	Err     error
}

// PairProcessor is an adapter that loads a pair of photos, runs the change
// detection pipeline and writes the annotated result
type PairProcessor struct {
	Pipeline    *imageprocessor.Pipeline
	Loader      ImageLoader
	Backend     string
	JPEGQuality int
	DebugMode   bool
}

// NewPairProcessor creates a processor using the default image loaders
func NewPairProcessor(pipeline *imageprocessor.Pipeline, backend string, jpegQuality int, debugMode bool) *PairProcessor {
	return &PairProcessor{
		Pipeline:    pipeline,
		Loader:      imageio.NewImageLoaderRegistry(),
		Backend:     backend,
		JPEGQuality: jpegQuality,
		DebugMode:   debugMode,
	}
}

// Process runs one comparison. Panics raised inside image decoding or
// OpenCV are turned into errors.
func (p *PairProcessor) Process(req PairRequest) (out PairOutcome) {
	start := time.Now()
	// Counts known before a failed run, for the history record
	var partial *imageprocessor.Result

	defer func() {
		if r := recover(); r != nil {
			stackTrace := debug.Stack()
			logging.LogError("Panic while comparing %s and %s: %v\nStack trace: %s", req.BaselinePath, req.CurrentPath, r, string(stackTrace))
			out.Result = nil
			out.Regions = nil
			out.Err = fmt.Errorf("panic during comparison: %v", r)
		}
		counts := out.Result
		if counts == nil {
			counts = partial
		}
		out.Run = BuildRunRecord(req, counts, out.Err, p.Backend, time.Since(start))
		if out.Err != nil {
			// Output is only reported when it was written
			out.Run.OutputPath = ""
		}
	}()

	baseline, err := p.Loader.LoadImage(req.BaselinePath)
	if err != nil {
		out.Err = fmt.Errorf("failed to load baseline image %s: %w", req.BaselinePath, err)
		return out
	}
	current, err := p.Loader.LoadImage(req.CurrentPath)
	if err != nil {
		out.Err = fmt.Errorf("failed to load current image %s: %w", req.CurrentPath, err)
		return out
	}

	if p.DebugMode {
		logging.DebugLog("Comparing %s (%dx%d) against %s (%dx%d)",
			req.BaselinePath, baseline.Bounds().Dx(), baseline.Bounds().Dy(),
			req.CurrentPath, current.Bounds().Dx(), current.Bounds().Dy())
	}

	res, err := p.Pipeline.Run(baseline, current)
	if err != nil {
		partial = res
		out.Err = err
		return out
	}
	out.Result = res
	out.Regions = RegionRecords(res)

	if req.OutputPath != "" {
		if err := imageio.SaveImage(req.OutputPath, res.Annotated, p.JPEGQuality); err != nil {
			out.Err = fmt.Errorf("failed to save annotated image: %w", err)
			return out
		}
	}

	return out
}

// BuildRunRecord converts a pipeline outcome into a history record. res may
// be nil when err is set.
func BuildRunRecord(req PairRequest, res *imageprocessor.Result, err error, backend string, elapsed time.Duration) types.RunRecord {
	run := types.RunRecord{
		Site:               req.Site,
		BaselinePath:       req.BaselinePath,
		CurrentPath:        req.CurrentPath,
		OutputPath:         req.OutputPath,
		BaselineCapturedAt: req.BaselineCapturedAt,
		CurrentCapturedAt:  req.CurrentCapturedAt,
		Backend:            backend,
		DurationMillis:     elapsed.Milliseconds(),
		Status:             types.StatusSucceeded,
	}

	if res != nil {
		if res.Annotated != nil {
			run.Width = res.Annotated.Bounds().Dx()
			run.Height = res.Annotated.Bounds().Dy()
		}
		run.KeypointsBaseline = res.KeypointsA
		run.KeypointsCurrent = res.KeypointsB
		run.GoodMatches = res.GoodMatches
		run.Inliers = res.InlierCount
		run.Homography = res.Homography
		run.RegionCount = len(res.Boxes)
		run.ChangedPixels = res.ChangedPixels
	}

	if err != nil {
		run.Status = types.StatusFailed
		run.Error = err.Error()

		var insufficient *imageprocessor.InsufficientEvidenceError
		if errors.As(err, &insufficient) {
			run.GoodMatches = insufficient.Count
		}
		var degenerate *imageprocessor.DegenerateTransformError
		if errors.As(err, &degenerate) {
			run.GoodMatches = degenerate.Matches
			run.Inliers = degenerate.Inliers
		}
	}

	return run
}

// RegionRecords lists the bounding box of every changed region in drawing
// order
func RegionRecords(res *imageprocessor.Result) []types.RegionRecord {
	if res == nil {
		return nil
	}
	out := make([]types.RegionRecord, len(res.Boxes))
	for i, box := range res.Boxes {
		area := box.Dx() * box.Dy()
		if i < len(res.Regions) {
			area = res.Regions[i].Area()
		}
		out[i] = types.RegionRecord{
			Index:  i,
			X:      box.Min.X,
			Y:      box.Min.Y,
			Width:  box.Dx(),
			Height: box.Dy(),
			Area:   area,
		}
	}
	return out
}
