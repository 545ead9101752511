package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ImageCache provides thread-safe caching of decoded sheet images.
//
// The MCP server runs several tools against the same scan (orientation
// check, rectification preview, grading). The cache keeps the decoded image
// keyed by its path so each tool call does not hit the disk again.
//
// Cached images remain in memory until Evict or Clear is called.
type ImageCache struct {
	mu      sync.RWMutex
	images  map[string]image.Image
	formats map[string]string
}

// NewImageCache creates an empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images:  make(map[string]image.Image),
		formats: make(map[string]string),
	}
}

// Load returns the cached image for path, decoding it from disk on first use.
//
// Paths are used verbatim as keys, so a relative and an absolute path to the
// same file produce two entries.
func (c *ImageCache) Load(path string) (image.Image, error) {
	img, _, err := c.load(path)
	return img, err
}

func (c *ImageCache) load(path string) (image.Image, string, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		format := c.formats[path]
		c.mu.RUnlock()
		return img, format, nil
	}
	c.mu.RUnlock()

	img, format, err := Open(path)
	if err != nil {
		return nil, "", err
	}

	c.mu.Lock()
	c.images[path] = img
	c.formats[path] = format
	c.mu.Unlock()

	return img, format, nil
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.formats = make(map[string]string)
	c.mu.Unlock()
}

// Evict removes one image from the cache. Unknown paths are ignored.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	delete(c.formats, path)
	c.mu.Unlock()
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Decode reads a PNG, JPEG or GIF image from r.
//
// Returns the decoded image and the format name reported by the decoder
// ("png", "jpeg" or "gif").
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// Open decodes the image file at path.
func Open(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// ImageInfo contains metadata about a loaded sheet image.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the decoder's format name: "png", "jpeg" or "gif".
	Format string `json:"format"`

	// Landscape is true when the image is wider than it is tall. Answer
	// sheets are portrait, so a landscape scan usually needs a quarter turn.
	Landscape bool `json:"landscape"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads an image through cache and describes it.
//
// Unlike a plain extension check, the format comes from the decoder, so a
// JPEG saved with a .png suffix is reported as "jpeg".
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, format, err := cache.load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	b := img.Bounds()
	return &ImageInfo{
		Width:         b.Dx(),
		Height:        b.Dy(),
		Format:        format,
		Landscape:     b.Dx() > b.Dy(),
		FileSizeBytes: stat.Size(),
	}, nil
}

// ImageFiles lists the PNG, JPEG and GIF files directly inside dir, sorted
// by name.
func ImageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg", ".gif":
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}
