package imageio

import (
	"bufio"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// DefaultJPEGQuality is used when a non-positive quality is requested
const DefaultJPEGQuality = 95

// OutputExtensions lists the extensions SaveImage can encode
var OutputExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".tif", ".tiff"}

// SaveImage encodes img in the format implied by the path's extension,
// creating parent directories as needed. An existing file is replaced.
func SaveImage(path string, img image.Image, jpegQuality int) error {
	if img == nil {
		return fmt.Errorf("cannot save nil image to %s", path)
	}

	encode, err := encoderFor(path, jpegQuality)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// A failed encode leaves any existing file untouched
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	w := bufio.NewWriter(tmp)
	if err := encode(w, img); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

type encodeFunc func(w *bufio.Writer, img image.Image) error

func encoderFor(path string, jpegQuality int) (encodeFunc, error) {
	if jpegQuality <= 0 || jpegQuality > 100 {
		jpegQuality = DefaultJPEGQuality
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return func(w *bufio.Writer, img image.Image) error {
			return jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
		}, nil
	case ".png":
		return func(w *bufio.Writer, img image.Image) error {
			return png.Encode(w, img)
		}, nil
	case ".bmp":
		return func(w *bufio.Writer, img image.Image) error {
			return bmp.Encode(w, img)
		}, nil
	case ".tif", ".tiff":
		return func(w *bufio.Writer, img image.Image) error {
			return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
		}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (want one of %s)", filepath.Ext(path), strings.Join(OutputExtensions, ", "))
	}
}
