package scanner

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/doc-scanner-mcp/internal/detection"
	"github.com/ironsheep/doc-scanner-mcp/internal/geometry"
	"github.com/ironsheep/doc-scanner-mcp/internal/imaging"
	"github.com/ironsheep/doc-scanner-mcp/internal/preview"
	"github.com/ironsheep/doc-scanner-mcp/internal/rectify"
)

var (
	// ErrInvalidTransition is returned when an operation is not allowed in
	// the session's current state.
	ErrInvalidTransition = errors.New("invalid session state transition")

	// ErrNoDocumentFound is returned by Capture when the frame has no
	// four-cornered outline. No page is added.
	ErrNoDocumentFound = errors.New("no document outline found")

	// ErrNoFrame is returned by Capture when it is given no frame and no
	// preview is running to take one from.
	ErrNoFrame = errors.New("no frame to capture")
)

// State is the session lifecycle state.
type State int

const (
	StateIdle State = iota
	StatePreviewing
	StateCapturing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreviewing:
		return "previewing"
	case StateCapturing:
		return "capturing"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText renders the state by name in JSON output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name written by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for _, st := range []State{StateIdle, StatePreviewing, StateCapturing} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", text)
}

// Options configures a Session.
type Options struct {
	Detection   detection.Options
	Rectify     rectify.Options
	JPEGQuality int
	MaxPages    int
	PreviewFPS  int
}

// DefaultOptions returns the standard scanner settings: the fixed detection
// pipeline, black fill, JPEG quality 80, no page limit and a 30 fps preview.
func DefaultOptions() Options {
	return Options{
		Detection:   detection.DefaultOptions(),
		Rectify:     rectify.DefaultOptions(),
		JPEGQuality: imaging.DefaultJPEGQuality,
		PreviewFPS:  preview.DefaultFPS,
	}
}

// Capture is the outcome of a successful capture.
type Capture struct {
	Index     int               `json:"index"`
	Page      Page              `json:"page"`
	Detection *detection.Result `json:"detection"`
}

// Status describes a session at one point in time.
type Status struct {
	State    State         `json:"state"`
	Pages    int           `json:"pages"`
	MaxPages int           `json:"max_pages"`
	Preview  preview.Stats `json:"preview"`

	// LastSeq and Outline describe the newest preview detection. Outline
	// is nil when that frame had no four-cornered outline.
	LastSeq uint64         `json:"last_seq"`
	Outline *geometry.Quad `json:"outline,omitempty"`
}

// Session ties together the preview loop, the capture pipeline and the page
// list.
//
//	Idle --StartPreview--> Previewing --StopPreview--> Idle
//	Idle, Previewing --Capture--> Capturing --> previous state
//
// Capture pauses a running preview and resumes it afterwards, whether or not
// a page was produced.
type Session struct {
	opts     Options
	detector *detection.Detector
	pages    *PageList
	logger   logrus.FieldLogger

	mu        sync.Mutex
	state     State
	parent    context.Context
	src       preview.FrameSource
	loop      *preview.Loop
	cancel    context.CancelFunc
	done      chan struct{}
	lastStats preview.Stats
	last      *preview.Detection
}

// NewSession creates an idle session with an empty page list. A nil logger
// discards log output.
func NewSession(opts Options, logger logrus.FieldLogger) *Session {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Session{
		opts:     opts,
		detector: detection.NewDetector(opts.Detection, logger),
		pages:    NewPageList(opts.MaxPages),
		logger:   logger,
	}
}

// Pages returns the session's page list.
func (s *Session) Pages() *PageList {
	return s.pages
}

// Detector returns the detector used for preview and capture.
func (s *Session) Detector() *detection.Detector {
	return s.detector
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StartPreview starts detecting outlines on frames from src. The preview
// runs until StopPreview, until ctx is cancelled, or until src is
// exhausted.
func (s *Session) StartPreview(ctx context.Context, src preview.FrameSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return fmt.Errorf("%w: cannot start preview while %s", ErrInvalidTransition, s.state)
	}
	s.parent = ctx
	s.src = src
	s.startLocked()
	return nil
}

// StopPreview stops a running preview and waits for the loop to exit.
func (s *Session) StopPreview() error {
	s.mu.Lock()
	if s.state != StatePreviewing {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot stop preview while %s", ErrInvalidTransition, state)
	}
	cancel, done := s.detachLocked()
	s.state = StateIdle
	s.src = nil
	s.mu.Unlock()

	cancel()
	<-done
	return nil
}

// Capture runs the full pipeline on frame and appends the resulting page.
//
// A nil frame means "the current preview frame": the newest frame the
// preview processed, or a fresh one from the source when none has been
// processed yet.
//
// # Errors
//
//   - ErrInvalidTransition while another capture is in progress
//   - ErrNoFrame for a nil frame without a running preview
//   - imaging.ErrMalformedInput for an unusable frame
//   - ErrNoDocumentFound when the largest outline is not a quadrilateral
//   - rectify.ErrInvalidGeometry when the quadrilateral is degenerate
//   - ErrPageLimit when the page list is full
func (s *Session) Capture(frame image.Image) (*Capture, error) {
	s.mu.Lock()
	if s.state == StateCapturing {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: capture already in progress", ErrInvalidTransition)
	}
	resume := s.state == StatePreviewing
	if frame == nil && !resume {
		s.mu.Unlock()
		return nil, ErrNoFrame
	}

	var (
		cancel context.CancelFunc
		done   chan struct{}
		loop   *preview.Loop
	)
	if resume {
		loop = s.loop
		cancel, done = s.detachLocked()
	}
	s.state = StateCapturing
	s.mu.Unlock()

	if resume {
		cancel()
		<-done
	}

	var (
		c   *Capture
		err error
	)
	if frame == nil {
		frame, err = s.previewFrame(loop)
	}
	if err == nil {
		c, err = s.capture(frame)
	}

	s.mu.Lock()
	if resume {
		s.startLocked()
	} else {
		s.state = StateIdle
	}
	s.mu.Unlock()

	return c, err
}

func (s *Session) previewFrame(loop *preview.Loop) (image.Image, error) {
	if d, ok := loop.Latest(); ok {
		return d.Frame, nil
	}
	frame, err := s.src.Next(s.parent)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoFrame, err)
	}
	return frame, nil
}

func (s *Session) capture(frame image.Image) (*Capture, error) {
	start := time.Now()

	res, err := s.detector.Detect(frame)
	if err != nil {
		return nil, err
	}
	q, ok := res.Quad()
	if !ok {
		return nil, fmt.Errorf("%w: largest outline has %d vertices", ErrNoDocumentFound, len(res.Approx))
	}

	page, err := rectify.Rectify(frame, q, s.opts.Rectify)
	if err != nil {
		return nil, err
	}
	data, err := imaging.EncodeBytes(page, imaging.FormatJPEG, s.opts.JPEGQuality)
	if err != nil {
		return nil, err
	}

	b := page.Bounds()
	p := Page{
		Width:      b.Dx(),
		Height:     b.Dy(),
		Quad:       q,
		Data:       data,
		CapturedAt: time.Now(),
	}
	if tone, err := imaging.PaperTone(page); err == nil {
		p.Paper = tone.Hex
	}
	idx, p, err := s.pages.Append(p)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"page":    idx + 1,
		"width":   p.Width,
		"height":  p.Height,
		"bytes":   len(data),
		"paper":   p.Paper,
		"elapsed": time.Since(start),
	}).Info("page captured")

	return &Capture{Index: idx, Page: p, Detection: res}, nil
}

// Status reports the session state, page count and preview counters.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:    s.state,
		Pages:    s.pages.Len(),
		MaxPages: s.pages.Max(),
		Preview:  s.lastStats,
	}
	last := s.last
	if s.loop != nil {
		st.Preview = s.loop.Stats()
		if d, ok := s.loop.Latest(); ok {
			last = &d
		}
	}
	if last != nil {
		st.LastSeq = last.Seq
		if q, ok := last.Result.Quad(); ok {
			st.Outline = &q
		}
	}
	return st
}

// startLocked launches a loop over s.src. s.mu must be held.
func (s *Session) startLocked() {
	ctx, cancel := context.WithCancel(s.parent)
	loop := preview.NewLoop(s.src, s.detector, s.opts.PreviewFPS, nil, s.logger)
	done := make(chan struct{})

	s.state = StatePreviewing
	s.loop = loop
	s.cancel = cancel
	s.done = done

	go func() {
		defer close(done)
		err := loop.Run(ctx)
		if err != nil {
			s.logger.WithError(err).Warn("preview stopped")
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		s.lastStats = loop.Stats()
		if d, ok := loop.Latest(); ok {
			s.last = &d
		}
		// The source ran dry or ctx ended without StopPreview.
		if s.loop == loop {
			s.loop = nil
			s.cancel = nil
			s.done = nil
			s.state = StateIdle
			cancel()
		}
	}()
}

// detachLocked disowns the running loop so that its exit does not change
// the session state. s.mu must be held.
func (s *Session) detachLocked() (context.CancelFunc, chan struct{}) {
	cancel, done := s.cancel, s.done
	s.loop = nil
	s.cancel = nil
	s.done = nil
	return cancel, done
}
