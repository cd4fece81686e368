package preview

import (
	"context"
	"errors"
	"image"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/doc-scanner-mcp/internal/detection"
)

// DefaultFPS is the preview rate used when none is configured.
const DefaultFPS = 30

// Detection is one processed preview frame.
type Detection struct {
	// Seq numbers frames in the order they were taken from the source,
	// starting at 1. Dropped frames leave gaps.
	Seq    uint64
	Frame  image.Image
	Result *detection.Result
}

// Handler receives every processed frame. It runs on the loop's worker
// goroutine; while it runs, new frames are dropped.
type Handler func(Detection)

// Stats counts what the loop did with the frames it took from the source.
type Stats struct {
	Frames    uint64 `json:"frames"`
	Processed uint64 `json:"processed"`
	Dropped   uint64 `json:"dropped"`
	Failed    uint64 `json:"failed"`
}

// Loop pulls frames from a source at a fixed rate and runs outline detection
// on them.
//
// Detection runs on a single worker. A frame that arrives while the worker
// is still busy is dropped rather than queued, so the overlay always
// reflects a recent frame instead of falling further behind.
type Loop struct {
	src      FrameSource
	detector *detection.Detector
	interval time.Duration
	handler  Handler
	logger   logrus.FieldLogger

	frames    atomic.Uint64
	processed atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64

	mu     sync.RWMutex
	latest *Detection
}

// NewLoop creates a loop running at fps frames per second. fps <= 0 selects
// DefaultFPS. handler may be nil.
func NewLoop(src FrameSource, detector *detection.Detector, fps int, handler Handler, logger logrus.FieldLogger) *Loop {
	if fps <= 0 {
		fps = DefaultFPS
	}
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Loop{
		src:      src,
		detector: detector,
		interval: time.Second / time.Duration(fps),
		handler:  handler,
		logger:   logger,
	}
}

// Run drives the loop until ctx is cancelled or the source is exhausted.
// Cancellation is checked between ticks; a detection in progress always
// completes. Run returns nil on cancellation and at io.EOF, and the source's
// error otherwise.
func (l *Loop) Run(ctx context.Context) error {
	work := make(chan Detection)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for d := range work {
			l.process(d)
		}
	}()
	defer func() {
		close(work)
		wg.Wait()
	}()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		frame, err := l.src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		d := Detection{Seq: l.frames.Add(1), Frame: frame}
		select {
		case work <- d:
		default:
			l.dropped.Add(1)
		}
	}
}

func (l *Loop) process(d Detection) {
	res, err := l.detector.Detect(d.Frame)
	if err != nil {
		l.failed.Add(1)
		l.logger.WithError(err).WithField("seq", d.Seq).Warn("preview frame rejected")
		return
	}
	l.processed.Add(1)

	d.Result = res
	l.mu.Lock()
	l.latest = &d
	l.mu.Unlock()

	if l.handler != nil {
		l.handler(d)
	}
}

// Latest returns the most recently processed frame, if any.
func (l *Loop) Latest() (Detection, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.latest == nil {
		return Detection{}, false
	}
	return *l.latest, true
}

// Stats returns a snapshot of the loop counters.
func (l *Loop) Stats() Stats {
	return Stats{
		Frames:    l.frames.Load(),
		Processed: l.processed.Load(),
		Dropped:   l.dropped.Load(),
		Failed:    l.failed.Load(),
	}
}
