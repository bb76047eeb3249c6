package imageio

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"reefwatch/cv"
	"reefwatch/logging"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// StandardImageLoader decodes common formats with Go's image decoders
type StandardImageLoader struct {
	BaseImageLoader
}

// NewStandardImageLoader creates a new loader for standard image formats
func NewStandardImageLoader() *StandardImageLoader {
	return &StandardImageLoader{
		BaseImageLoader: BaseImageLoader{
			SupportedFormats: []FormatType{
				FormatJPEG,
				FormatPNG,
				FormatGIF,
				FormatBMP,
				FormatWEBP,
				FormatTIFF,
			},
		},
	}
}

// LoadImage decodes the file by sniffing its content
func (l *StandardImageLoader) LoadImage(path string) (image.Image, error) {
	img, format, err := decodeFile(path)
	if err != nil {
		return nil, newImageLoadError("failed to decode image", path, err)
	}
	logging.DebugLog("Decoded %s as %s (%dx%d)", path, format, img.Bounds().Dx(), img.Bounds().Dy())
	return img, nil
}

func decodeFile(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	return image.Decode(f)
}

// OpenCVImageLoader reads anything cv::imread understands. It covers
// variants the Go decoders reject, such as 16-bit or CMYK TIFFs.
type OpenCVImageLoader struct{}

// NewOpenCVImageLoader creates the fallback loader
func NewOpenCVImageLoader() *OpenCVImageLoader {
	return &OpenCVImageLoader{}
}

// CanLoad accepts any existing file; imread decides by content
func (l *OpenCVImageLoader) CanLoad(path string) bool {
	return fileExists(path)
}

// LoadImage reads the file in colour and converts it to RGBA
func (l *OpenCVImageLoader) LoadImage(path string) (image.Image, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	defer mat.Close()

	if mat.Empty() {
		return nil, newImageLoadError("OpenCV could not read image", path, nil)
	}

	img, err := cv.MatToRGBA(mat)
	if err != nil {
		return nil, newImageLoadError("OpenCV image conversion failed", path, err)
	}
	return img, nil
}

// DecodeBytes decodes an in-memory image, trying Go decoders before OpenCV
func DecodeBytes(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err == nil {
		return img, nil
	}

	mat, cvErr := gocv.IMDecode(data, gocv.IMReadColor)
	if cvErr != nil {
		return nil, fmt.Errorf("cannot decode image data: %v (OpenCV: %w)", err, cvErr)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("cannot decode image data: %w", err)
	}
	return cv.MatToRGBA(mat)
}
