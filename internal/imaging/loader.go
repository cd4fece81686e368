package imaging

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

// FrameCache provides thread-safe caching of decoded frames to avoid
// redundant disk reads.
//
// Frames are keyed by file path and decoded with EXIF auto-orientation, so a
// phone photo taken in portrait comes back upright. Every cached frame has
// already passed ValidateFrame.
//
// Cached frames remain in memory until removed via Evict or Clear. Callers
// must treat returned frames as read-only; the pipeline never writes to them.
type FrameCache struct {
	mu     sync.RWMutex
	frames map[string]image.Image
}

// NewFrameCache creates an empty frame cache.
func NewFrameCache() *FrameCache {
	return &FrameCache{
		frames: make(map[string]image.Image),
	}
}

// Load returns the frame for path, decoding it from disk on first use.
//
// Supported formats are JPEG, PNG, GIF, BMP and TIFF. Different spellings of
// the same path produce separate cache entries.
//
// # Errors
//
//   - the file does not exist or cannot be decoded
//   - the decoded image fails ValidateFrame (wraps ErrMalformedInput)
func (c *FrameCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.frames[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to load frame: %w", err)
	}
	if err := ValidateFrame(img); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	c.mu.Lock()
	c.frames[path] = img
	c.mu.Unlock()

	return img, nil
}

// Len returns the number of cached frames.
func (c *FrameCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.frames)
}

// Clear removes all frames from the cache.
func (c *FrameCache) Clear() {
	c.mu.Lock()
	c.frames = make(map[string]image.Image)
	c.mu.Unlock()
}

// Evict removes the frame cached under path, if any.
func (c *FrameCache) Evict(path string) {
	c.mu.Lock()
	delete(c.frames, path)
	c.mu.Unlock()
}

// FrameInfo describes a frame file.
type FrameInfo struct {
	Path          string `json:"path"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Format        string `json:"format"`
	FileSizeBytes int64  `json:"file_size_bytes"`
}

// LoadFrameInfo loads path through cache and reports its dimensions (after
// orientation correction), format and file size. The format is derived from
// the file extension.
func LoadFrameInfo(cache *FrameCache, path string) (*FrameInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "unknown"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		format = "png"
	case ".jpg", ".jpeg":
		format = "jpeg"
	case ".gif":
		format = "gif"
	case ".bmp":
		format = "bmp"
	case ".tif", ".tiff":
		format = "tiff"
	}

	b := img.Bounds()
	return &FrameInfo{
		Path:          path,
		Width:         b.Dx(),
		Height:        b.Dy(),
		Format:        format,
		FileSizeBytes: stat.Size(),
	}, nil
}

// IsFrameFile reports whether path has an extension FrameCache can decode.
func IsFrameFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff":
		return true
	}
	return false
}
