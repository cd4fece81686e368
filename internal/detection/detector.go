package detection

import (
	"image"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/doc-scanner-mcp/internal/geometry"
	"github.com/ironsheep/doc-scanner-mcp/internal/imaging"
)

// Options configures the outline detector. The zero value is not useful;
// start from DefaultOptions.
type Options struct {
	// Edges selects the blur kernel and the Canny thresholds.
	Edges imaging.EdgeOptions

	// EpsilonRatio scales the closed arc length of the selected contour to
	// obtain the polygon approximation tolerance.
	EpsilonRatio float64
}

// DefaultOptions returns the fixed document-scanner pipeline parameters:
// 5x5 blur, Canny 75/200 and an approximation tolerance of 2% of the
// contour perimeter.
func DefaultOptions() Options {
	return Options{
		Edges:        imaging.DefaultEdgeOptions(),
		EpsilonRatio: 0.02,
	}
}

// Result is the outcome of one detection pass.
//
// A nil Contour means no candidate outline was found in the frame; that is
// an ordinary outcome, not an error.
type Result struct {
	// Contour is the largest-area border found in the edge map.
	Contour geometry.Contour `json:"contour,omitempty"`

	// Approx is Contour simplified with Douglas-Peucker. It may have any
	// number of vertices; only 4-vertex polygons are document candidates.
	Approx geometry.Contour `json:"approx,omitempty"`

	// Area is the enclosed area of Contour in square pixels.
	Area float64 `json:"area"`

	// Contours is the number of borders the tracer produced.
	Contours int `json:"contours"`

	// Elapsed is the wall time spent in Detect.
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Found reports whether a candidate outline exists.
func (r *Result) Found() bool {
	return r != nil && len(r.Contour) > 0
}

// Quad returns the approximated polygon as a Quad when it has exactly four
// vertices, in traced order.
func (r *Result) Quad() (geometry.Quad, bool) {
	if r == nil {
		return geometry.Quad{}, false
	}
	q, err := geometry.QuadFromContour(r.Approx)
	return q, err == nil
}

// Detector finds the most prominent quadrilateral outline in a frame.
//
// A Detector holds only configuration; Detect allocates fresh buffers on
// every call, so one Detector may serve several goroutines.
type Detector struct {
	opts   Options
	logger logrus.FieldLogger
}

// NewDetector creates a detector. A nil logger discards log output.
func NewDetector(opts Options, logger logrus.FieldLogger) *Detector {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Detector{opts: opts, logger: logger}
}

// Options returns the detector's configuration.
func (d *Detector) Options() Options {
	return d.opts
}

// Detect runs the outline pipeline on frame:
//
//  1. grayscale, Gaussian blur and Canny edge map
//  2. border tracing with outer/hole hierarchy
//  3. selection of the largest enclosed area (first one wins ties)
//  4. Douglas-Peucker approximation with epsilon = EpsilonRatio * perimeter
//
// The frame is never modified. The only error is imaging.ErrMalformedInput;
// a frame without any outline yields a Result whose Contour is nil.
func (d *Detector) Detect(frame image.Image) (*Result, error) {
	start := time.Now()

	edges, err := imaging.EdgeMap(frame, d.opts.Edges)
	if err != nil {
		return nil, err
	}

	borders := FindContours(edges)
	res := &Result{Contours: len(borders)}

	best := -1
	for i, b := range borders {
		if a := geometry.Area(b.Points); a > res.Area {
			res.Area = a
			best = i
		}
	}

	if best >= 0 {
		res.Contour = borders[best].Points
		eps := d.opts.EpsilonRatio * geometry.ArcLength(res.Contour, true)
		res.Approx = geometry.ApproxPolyDP(res.Contour, eps)
	}
	res.Elapsed = time.Since(start)

	bounds := frame.Bounds()
	d.logger.WithFields(logrus.Fields{
		"frame_w":  bounds.Dx(),
		"frame_h":  bounds.Dy(),
		"contours": res.Contours,
		"area":     res.Area,
		"vertices": len(res.Approx),
		"elapsed":  res.Elapsed,
	}).Debug("outline detection")

	return res, nil
}
