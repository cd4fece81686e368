package preview

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ironsheep/doc-scanner-mcp/internal/imaging"
)

// FrameSource supplies frames to a preview loop.
//
// Next returns the frame that is current at the time of the call. A source
// with no more frames returns io.EOF.
type FrameSource interface {
	Next(ctx context.Context) (image.Image, error)
}

// StillSource repeats one frame forever, like a camera pointed at a page
// that does not move.
type StillSource struct {
	Frame image.Image
}

// Next implements FrameSource.
func (s StillSource) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Frame, nil
}

// DirSource replays the image files of a directory in name order. Frames
// are decoded through a FrameCache, so a looping source decodes each file
// once.
type DirSource struct {
	cache *imaging.FrameCache
	paths []string
	loop  bool

	mu   sync.Mutex
	next int
	last image.Image
}

// NewDirSource lists the frame files in dir. With loop set the source wraps
// around instead of returning io.EOF after the last file.
func NewDirSource(dir string, cache *imaging.FrameCache, loop bool) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !imaging.IsFrameFile(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no frame files in %s", dir)
	}
	sort.Strings(paths)

	if cache == nil {
		cache = imaging.NewFrameCache()
	}
	return &DirSource{cache: cache, paths: paths, loop: loop}, nil
}

// Len returns the number of frame files.
func (s *DirSource) Len() int {
	return len(s.paths)
}

// Next implements FrameSource.
func (s *DirSource) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.next >= len(s.paths) {
		if !s.loop {
			return nil, io.EOF
		}
		s.next = 0
	}
	path := s.paths[s.next]
	s.next++

	img, err := s.cache.Load(path)
	if err != nil {
		return nil, err
	}
	s.last = img
	return img, nil
}

// Last returns the most recently delivered frame, or nil before the first
// call to Next.
func (s *DirSource) Last() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
