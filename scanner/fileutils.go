package scanner

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"reefwatch/imageio"
)

// ListSiteImages returns the loadable images directly inside dir, sorted by
// name
func ListSiteImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var images []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if imageio.IsImageFile(e.Name()) {
			images = append(images, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(images)
	return images, nil
}

// SiteName derives a site name from a directory below the survey root
func SiteName(root, dir string) string {
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == "." {
		return filepath.Base(filepath.Clean(root))
	}
	return strings.ReplaceAll(filepath.ToSlash(rel), "/", "_")
}

// OutputPathFor returns where the annotated image of a site is written. The
// current image's extension is kept when it can be encoded, else JPEG is used.
func OutputPathFor(outputDir, site, suffix, currentPath string) string {
	ext := strings.ToLower(filepath.Ext(currentPath))
	writable := false
	for _, out := range imageio.OutputExtensions {
		if ext == out {
			writable = true
			break
		}
	}
	if !writable {
		ext = ".jpg"
	}
	return filepath.Join(outputDir, site+suffix+ext)
}
