package types

// Run statuses stored in the history
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// RunRecord holds one baseline/current comparison and its outcome
type RunRecord struct {
	ID                 string     `json:"id"`
	Site               string     `json:"site"`
	BaselinePath       string     `json:"baseline_path"`
	CurrentPath        string     `json:"current_path"`
	OutputPath         string     `json:"output_path"`
	BaselineCapturedAt string     `json:"baseline_captured_at"`
	CurrentCapturedAt  string     `json:"current_captured_at"`
	Width              int        `json:"width"`
	Height             int        `json:"height"`
	KeypointsBaseline  int        `json:"keypoints_baseline"`
	KeypointsCurrent   int        `json:"keypoints_current"`
	GoodMatches        int        `json:"good_matches"`
	Inliers            int        `json:"inliers"`
	Homography         [9]float64 `json:"homography"`
	RegionCount        int        `json:"region_count"`
	ChangedPixels      int        `json:"changed_pixels"`
	Status             string     `json:"status"`
	Error              string     `json:"error,omitempty"`
	Backend            string     `json:"backend"`
	DurationMillis     int64      `json:"duration_ms"`
	CreatedAt          string     `json:"created_at"`
}

// RegionRecord is the bounding box of one changed region
type RegionRecord struct {
	RunID  string `json:"run_id"`
	Index  int    `json:"index"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Area   int    `json:"area"`
}

// CaptureInfo holds what is known about when and where a photo was taken
type CaptureInfo struct {
	Path       string  `json:"path"`
	CapturedAt string  `json:"captured_at"` // RFC 3339
	FromExif   bool    `json:"from_exif"`
	Make       string  `json:"make,omitempty"`
	Model      string  `json:"model,omitempty"`
	Latitude   float64 `json:"latitude,omitempty"`
	Longitude  float64 `json:"longitude,omitempty"`
	Altitude   float64 `json:"altitude,omitempty"` // negative below the surface
	HasGPS     bool    `json:"has_gps"`
}

// SurveyPair is the baseline and current photo chosen for one site
type SurveyPair struct {
	Site     string
	Baseline CaptureInfo
	Current  CaptureInfo
	Images   int
}
