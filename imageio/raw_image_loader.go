package imageio

import (
	"errors"
	"fmt"
	"image"
	"os"

	"reefwatch/logging"
)

// RawImageLoader converts camera RAW files to a decodable image. It tries the
// embedded previews first, since they are already rendered with the camera's
// colour settings, then a full dcraw conversion.
type RawImageLoader struct {
	BaseImageLoader
	TempDir string
}

// NewRawImageLoader creates a new RAW image loader
func NewRawImageLoader() *RawImageLoader {
	return &RawImageLoader{
		BaseImageLoader: BaseImageLoader{
			SupportedFormats: []FormatType{
				FormatRAW,
				FormatCR2,
				FormatCR3,
				FormatNEF,
				FormatARW,
				FormatDNG,
				FormatORF,
				FormatRW2,
			},
		},
		TempDir: os.TempDir(),
	}
}

type rawConversion struct {
	name string
	run  func(path, outputPath string) error
}

func (l *RawImageLoader) conversions() []rawConversion {
	return []rawConversion{
		{"exiftool preview", tryExiftoolPreviewExtraction},
		{"embedded preview scan", extractEmbeddedPreview},
		{"dcraw camera white balance", tryDcrawCameraWB},
		{"dcraw auto brightness", tryDcrawAutoBright},
	}
}

// LoadImage tries each conversion in order until one yields a decodable file
func (l *RawImageLoader) LoadImage(path string) (image.Image, error) {
	if !fileExists(path) {
		return nil, newImageLoadError("RAW file does not exist", path, os.ErrNotExist)
	}

	var errs []error
	for _, conv := range l.conversions() {
		img, err := l.convert(path, conv)
		if err == nil {
			logging.DebugLog("Loaded RAW %s via %s", path, conv.name)
			return img, nil
		}
		logging.DebugLog("RAW conversion %q failed for %s: %v", conv.name, path, err)
		errs = append(errs, fmt.Errorf("%s: %w", conv.name, err))
	}

	return nil, newImageLoadError("failed to load RAW image after trying all methods", path, errors.Join(errs...))
}

func (l *RawImageLoader) convert(path string, conv rawConversion) (image.Image, error) {
	tmp, err := os.CreateTemp(l.TempDir, "reefwatch-raw-*")
	if err != nil {
		return nil, err
	}
	tempPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tempPath)

	if err := conv.run(path, tempPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(tempPath)
	if err != nil {
		return nil, err
	}
	// dcraw writes PPM, which only OpenCV decodes
	return DecodeBytes(data)
}

// tryExiftoolPreviewExtraction extracts the largest embedded preview with exiftool
func tryExiftoolPreviewExtraction(path, outputPath string) error {
	if !hasExiftool() {
		return errors.New("exiftool not available")
	}

	var lastErr error
	for _, tag := range []string{"-LargestImagePreview", "-JpgFromRaw", "-PreviewImage", "-ThumbnailImage"} {
		if lastErr = runToFile(outputPath, "exiftool", "-b", tag, path); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("all exiftool preview tags failed: %w", lastErr)
}

// tryDcrawCameraWB converts with dcraw using camera white balance
func tryDcrawCameraWB(path, outputPath string) error {
	if !hasDcraw() {
		return errors.New("dcraw not available")
	}
	return runToFile(outputPath, "dcraw", "-c", "-w", "-q", "3", path)
}

// tryDcrawAutoBright converts with dcraw using auto-brightness
func tryDcrawAutoBright(path, outputPath string) error {
	if !hasDcraw() {
		return errors.New("dcraw not available")
	}
	return runToFile(outputPath, "dcraw", "-c", "-a", "-q", "3", path)
}
