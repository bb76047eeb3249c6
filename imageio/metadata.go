package imageio

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"reefwatch/logging"
	"reefwatch/types"

	"github.com/barasher/go-exiftool"
)

// Exif date tags in order of preference
var captureTimeTags = []string{"DateTimeOriginal", "CreateDate", "ModifyDate"}

var exifTimeLayouts = []string{
	"2006:01:02 15:04:05.999999999-07:00",
	"2006:01:02 15:04:05-07:00",
	"2006:01:02 15:04:05.999999999",
	"2006:01:02 15:04:05",
}

// MetadataReader reads capture metadata through a long-running exiftool
// process. Without exiftool it falls back to file modification times.
type MetadataReader struct {
	et *exiftool.Exiftool
	mu sync.Mutex
}

// NewMetadataReader starts exiftool if it is installed
func NewMetadataReader() *MetadataReader {
	r := &MetadataReader{}
	if !hasExiftool() {
		logging.LogWarning("exiftool not found, capture times will come from file modification times")
		return r
	}

	et, err := exiftool.NewExiftool(exiftool.NoPrintConversion())
	if err != nil {
		logging.LogWarning("Failed to start exiftool: %v", err)
		return r
	}
	r.et = et
	return r
}

// Close stops the exiftool process
func (r *MetadataReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.et == nil {
		return nil
	}
	err := r.et.Close()
	r.et = nil
	return err
}

// Read returns when and where the photo at path was taken
func (r *MetadataReader) Read(path string) (types.CaptureInfo, error) {
	infos, err := r.ReadAll(path)
	if err != nil {
		return types.CaptureInfo{Path: path}, err
	}
	return infos[path], nil
}

// ReadAll reads every path with one exiftool invocation. Any unreadable
// path fails the whole call; missing exif data only drops the exif fields.
func (r *MetadataReader) ReadAll(paths ...string) (map[string]types.CaptureInfo, error) {
	infos := make(map[string]types.CaptureInfo, len(paths))
	for _, path := range paths {
		stat, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("cannot stat %s: %w", path, err)
		}
		infos[path] = types.CaptureInfo{
			Path:       path,
			CapturedAt: stat.ModTime().UTC().Format(time.RFC3339),
		}
	}

	for _, fm := range r.extract(paths) {
		info, ok := infos[fm.File]
		if !ok {
			continue
		}
		if fm.Err != nil {
			logging.DebugLog("No exif metadata for %s: %v", fm.File, fm.Err)
			continue
		}
		applyExifFields(&info, fm)
		infos[fm.File] = info
	}
	return infos, nil
}

func (r *MetadataReader) extract(paths []string) []exiftool.FileMetadata {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.et == nil || len(paths) == 0 {
		return nil
	}
	return r.et.ExtractMetadata(paths...)
}

// ReadCaptureInfo reads the given files with a short-lived reader
func ReadCaptureInfo(paths ...string) (map[string]types.CaptureInfo, error) {
	r := NewMetadataReader()
	defer r.Close()
	return r.ReadAll(paths...)
}

func applyExifFields(info *types.CaptureInfo, fm exiftool.FileMetadata) {
	for _, tag := range captureTimeTags {
		s, err := fm.GetString(tag)
		if err != nil {
			continue
		}
		if t, ok := ParseExifTime(s); ok {
			info.CapturedAt = t.Format(time.RFC3339)
			info.FromExif = true
			break
		}
	}

	info.Make, _ = fm.GetString("Make")
	info.Model, _ = fm.GetString("Model")

	lat, latErr := fm.GetFloat("GPSLatitude")
	lon, lonErr := fm.GetFloat("GPSLongitude")
	if latErr == nil && lonErr == nil {
		if ref, err := fm.GetString("GPSLatitudeRef"); err == nil && strings.HasPrefix(strings.ToUpper(ref), "S") && lat > 0 {
			lat = -lat
		}
		if ref, err := fm.GetString("GPSLongitudeRef"); err == nil && strings.HasPrefix(strings.ToUpper(ref), "W") && lon > 0 {
			lon = -lon
		}
		info.Latitude, info.Longitude, info.HasGPS = lat, lon, true
	}

	if alt, err := fm.GetFloat("GPSAltitude"); err == nil {
		// AltitudeRef 1 means below sea level
		if ref, err := fm.GetFloat("GPSAltitudeRef"); err == nil && ref == 1 && alt > 0 {
			alt = -alt
		}
		info.Altitude = alt
	}
}

// ParseExifTime parses the date formats exiftool reports. Times without an
// offset are taken as UTC.
func ParseExifTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "0000") {
		return time.Time{}, false
	}
	s = strings.TrimSuffix(s, "Z")
	for _, layout := range exifTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
