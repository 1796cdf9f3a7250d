package render

import (
	"image"
	"sync"

	"github.com/disintegration/imaging"
)

// imageCache caches decoded member images by path. Exporting several
// collections from one session touches the same parent files over and
// over; decoding large TIFF scans once is the difference between
// seconds and minutes.
//
// Safe for concurrent use.
type imageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
}

func newImageCache() *imageCache {
	return &imageCache{images: make(map[string]image.Image)}
}

// load returns the decoded image at path, reading from disk only on
// the first request.
func (c *imageCache) load(path string) (image.Image, error) {
	c.mu.RLock()
	img, ok := c.images[path]
	c.mu.RUnlock()
	if ok {
		return img, nil
	}

	img, err := imaging.Open(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()
	return img, nil
}

// clear drops every cached image.
func (c *imageCache) clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.mu.Unlock()
}
