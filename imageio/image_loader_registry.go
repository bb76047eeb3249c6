package imageio

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"sync"

	"reefwatch/logging"
)

// ImageLoaderRegistry maintains a registry of image loaders
type ImageLoaderRegistry struct {
	loaders        map[string]ImageLoader
	fallbackLoader ImageLoader
	mutex          sync.RWMutex
}

// NewImageLoaderRegistry creates a registry with the standard, RAW and
// OpenCV fallback loaders registered
func NewImageLoaderRegistry() *ImageLoaderRegistry {
	registry := &ImageLoaderRegistry{
		loaders: make(map[string]ImageLoader),
	}

	standardLoader := NewStandardImageLoader()
	for _, ext := range extensionsFor(standardLoader.SupportedFormats...) {
		registry.RegisterLoader(ext, standardLoader)
	}

	rawLoader := NewRawImageLoader()
	for _, ext := range extensionsFor(rawLoader.SupportedFormats...) {
		registry.RegisterLoader(ext, rawLoader)
	}

	registry.fallbackLoader = NewOpenCVImageLoader()
	return registry
}

// RegisterLoader registers a new loader for a specific file extension
func (r *ImageLoaderRegistry) RegisterLoader(ext string, loader ImageLoader) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	r.loaders[ext] = loader
}

// SetFallbackLoader replaces the loader used when the registered one fails
// or no loader matches. A nil loader disables the fallback.
func (r *ImageLoaderRegistry) SetFallbackLoader(loader ImageLoader) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.fallbackLoader = loader
}

// GetLoader returns the loader registered for the path's extension, or the
// fallback loader
func (r *ImageLoaderRegistry) GetLoader(path string) ImageLoader {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	ext := strings.ToLower(filepath.Ext(path))
	if loader, ok := r.loaders[ext]; ok {
		return loader
	}

	return r.fallbackLoader
}

// CanLoadFile checks if a loader is registered for the file's extension
func (r *ImageLoaderRegistry) CanLoadFile(path string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	ext := strings.ToLower(filepath.Ext(path))
	_, ok := r.loaders[ext]
	return ok
}

// LoadImage loads an image using the appropriate registered loader. When
// that loader fails the fallback loader gets one attempt.
func (r *ImageLoaderRegistry) LoadImage(path string) (image.Image, error) {
	loader := r.GetLoader(path)

	r.mutex.RLock()
	fallback := r.fallbackLoader
	r.mutex.RUnlock()

	if loader == nil {
		return nil, fmt.Errorf("no suitable loader found for: %s", path)
	}

	img, err := loader.LoadImage(path)
	if err == nil {
		return img, nil
	}
	if fallback == nil || loader == fallback {
		return nil, err
	}

	logging.DebugLog("Primary loader failed for %s (%v), trying fallback", path, err)
	img, fbErr := fallback.LoadImage(path)
	if fbErr != nil {
		return nil, err
	}
	return img, nil
}

var defaultRegistry = sync.OnceValue(NewImageLoaderRegistry)

// LoadImage loads path with the shared default registry
func LoadImage(path string) (image.Image, error) {
	return defaultRegistry().LoadImage(path)
}
