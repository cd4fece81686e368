package scanner

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ironsheep/doc-scanner-mcp/internal/geometry"
)

var (
	// ErrPageIndex is returned for a page index outside the list.
	ErrPageIndex = errors.New("page index out of range")

	// ErrPageLimit is returned when appending to a full list.
	ErrPageLimit = errors.New("page limit reached")
)

// Page is one captured, rectified document page.
type Page struct {
	// ID is unique within a PageList and never reused, so a page keeps its
	// ID when earlier pages are deleted.
	ID int `json:"id"`

	Width  int `json:"width"`
	Height int `json:"height"`

	// Quad is the outline the page was cut from, in frame coordinates and
	// traced order.
	Quad geometry.Quad `json:"quad"`

	// Paper is the dominant colour of the page interior as #rrggbb.
	Paper string `json:"paper,omitempty"`

	// Data is the JPEG-encoded page.
	Data []byte `json:"-"`

	CapturedAt time.Time `json:"captured_at"`
}

// Size returns the encoded size in bytes.
func (p Page) Size() int {
	return len(p.Data)
}

// PageList is the ordered set of captured pages. Indices are zero-based and
// shift down when a page is deleted. It is safe for concurrent use.
type PageList struct {
	mu     sync.RWMutex
	pages  []Page
	max    int
	nextID int
}

// NewPageList creates an empty list holding at most max pages; max <= 0
// means no limit.
func NewPageList(max int) *PageList {
	return &PageList{max: max, nextID: 1}
}

// Append adds p at the end and returns its index. p.ID is assigned by the
// list.
func (l *PageList) Append(p Page) (int, Page, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.max > 0 && len(l.pages) >= l.max {
		return -1, Page{}, fmt.Errorf("%w: %d pages", ErrPageLimit, l.max)
	}
	p.ID = l.nextID
	l.nextID++
	l.pages = append(l.pages, p)
	return len(l.pages) - 1, p, nil
}

// Get returns the page at index i.
func (l *PageList) Get(i int) (Page, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if i < 0 || i >= len(l.pages) {
		return Page{}, fmt.Errorf("%w: %d (have %d)", ErrPageIndex, i, len(l.pages))
	}
	return l.pages[i], nil
}

// Delete removes the page at index i and returns it.
func (l *PageList) Delete(i int) (Page, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if i < 0 || i >= len(l.pages) {
		return Page{}, fmt.Errorf("%w: %d (have %d)", ErrPageIndex, i, len(l.pages))
	}
	p := l.pages[i]
	l.pages = append(l.pages[:i:i], l.pages[i+1:]...)
	return p, nil
}

// Clear removes every page and returns how many there were.
func (l *PageList) Clear() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.pages)
	l.pages = nil
	return n
}

// Len returns the number of pages.
func (l *PageList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.pages)
}

// Max returns the page limit, 0 when unlimited.
func (l *PageList) Max() int {
	return l.max
}

// Snapshot returns a copy of the current pages in order. Page data is
// shared and must not be modified.
func (l *PageList) Snapshot() []Page {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Page, len(l.pages))
	copy(out, l.pages)
	return out
}
