package imageio

import (
	"fmt"
	"image"
)

// ImageLoader is the interface that all image loaders must implement
type ImageLoader interface {
	// CanLoad determines if this loader can handle the given file
	CanLoad(path string) bool

	// LoadImage loads an image with its original colours
	LoadImage(path string) (image.Image, error)
}

// BaseImageLoader provides common functionality for all image loaders
type BaseImageLoader struct {
	// Formats this loader can handle
	SupportedFormats []FormatType
}

// CanLoad checks if this loader supports the file's format
func (l *BaseImageLoader) CanLoad(path string) bool {
	format := GetFileFormat(path)

	for _, supported := range l.SupportedFormats {
		if format == supported {
			return fileExists(path)
		}
	}

	return false
}

// ImageLoadError reports a file no loader could decode
type ImageLoadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ImageLoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Path)
}

func (e *ImageLoadError) Unwrap() error { return e.Err }

func newImageLoadError(reason, path string, err error) error {
	return &ImageLoadError{Path: path, Reason: reason, Err: err}
}
