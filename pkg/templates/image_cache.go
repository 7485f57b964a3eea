package templates

import (
	"fmt"
	"image"
	"os"
	"sync"

	// Decoders for template files
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ImageCache decodes template files once and shares the result
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
	stats  CacheStats
}

// CacheStats tracks cache performance
type CacheStats struct {
	Hits    int64 // Served from memory
	Misses  int64 // Had to decode
	Unloads int64
}

// NewImageCache creates a new image cache
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]image.Image),
	}
}

// Get returns the decoded image at path, loading it on first use
func (ic *ImageCache) Get(path string) (image.Image, error) {
	// Fast path: image already loaded
	ic.mu.RLock()
	img, ok := ic.images[path]
	ic.mu.RUnlock()
	if ok {
		ic.mu.Lock()
		ic.stats.Hits++
		ic.mu.Unlock()
		return img, nil
	}

	ic.mu.Lock()
	defer ic.mu.Unlock()

	// Double-check after acquiring write lock
	if img, ok := ic.images[path]; ok {
		ic.stats.Hits++
		return img, nil
	}

	img, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	ic.images[path] = img
	ic.stats.Misses++
	return img, nil
}

// Unload drops a cached image so the next Get decodes it again
func (ic *ImageCache) Unload(path string) {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	if _, ok := ic.images[path]; ok {
		delete(ic.images, path)
		ic.stats.Unloads++
	}
}

// IsLoaded returns true if the image is currently in memory
func (ic *ImageCache) IsLoaded(path string) bool {
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	_, ok := ic.images[path]
	return ok
}

// Stats returns cache statistics
func (ic *ImageCache) Stats() CacheStats {
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	return ic.stats
}

func decodeFile(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open template: %w", err)
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode template %s: %w", path, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("template %s (%s) has no pixels", path, format)
	}
	return img, nil
}
