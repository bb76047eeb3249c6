package imageio

import (
	"bytes"
	"errors"
	"image/jpeg"
	"os"
)

var (
	jpegSOI = []byte{0xFF, 0xD8, 0xFF}

	// ErrNoPreview means a file holds no decodable embedded JPEG
	ErrNoPreview = errors.New("no embedded JPEG preview found")
)

// maxPreviewCandidates bounds how many SOI markers are tried per file
const maxPreviewCandidates = 64

// FindEmbeddedPreview scans raw file data for embedded JPEG streams and
// returns the offset of the one with the largest pixel area. RAW containers
// usually carry a full-size or near full-size preview next to thumbnails.
func FindEmbeddedPreview(data []byte) (int, error) {
	best, bestArea := -1, 0
	candidates := 0

	for pos := 0; pos < len(data) && candidates < maxPreviewCandidates; {
		i := bytes.Index(data[pos:], jpegSOI)
		if i < 0 {
			break
		}
		start := pos + i
		candidates++

		cfg, err := jpeg.DecodeConfig(bytes.NewReader(data[start:]))
		if err == nil && cfg.Width*cfg.Height > bestArea {
			best, bestArea = start, cfg.Width*cfg.Height
		}
		pos = start + len(jpegSOI)
	}

	if best < 0 {
		return -1, ErrNoPreview
	}
	return best, nil
}

// extractEmbeddedPreview writes the largest embedded JPEG of path to
// outputPath without any external tool
func extractEmbeddedPreview(path, outputPath string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	start, err := FindEmbeddedPreview(data)
	if err != nil {
		return err
	}

	img, err := jpeg.Decode(bytes.NewReader(data[start:]))
	if err != nil {
		return err
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()
	return jpeg.Encode(out, img, &jpeg.Options{Quality: 95})
}
