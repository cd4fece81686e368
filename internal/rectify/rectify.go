package rectify

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/ironsheep/doc-scanner-mcp/internal/geometry"
	"github.com/ironsheep/doc-scanner-mcp/internal/imaging"
)

// ErrInvalidGeometry is returned when a quadrilateral cannot define a
// perspective transform: repeated corners, three collinear corners, or a
// bounding box with zero width or height.
var ErrInvalidGeometry = errors.New("invalid quadrilateral geometry")

// snapTolerance is how close a mapped coordinate must be to a whole pixel to
// be sampled exactly instead of interpolated.
const snapTolerance = 1e-6

// Options controls resampling.
type Options struct {
	// Fill is written wherever the inverse-mapped sample lies outside the
	// source frame.
	Fill color.NRGBA
}

// DefaultOptions fills out-of-frame samples with opaque black.
func DefaultOptions() Options {
	return Options{Fill: color.NRGBA{A: 255}}
}

// OutputSize returns the width and height of the rectified image for q: the
// extents of the quad's axis-aligned bounding box.
func OutputSize(q geometry.Quad) (int, int) {
	r := geometry.BoundingRect(q[:])
	return r.Dx(), r.Dy()
}

// DestinationCorners returns the output rectangle corners that quad vertices
// 0..3 are paired with: (0,0), (W,0), (W,H), (0,H).
func DestinationCorners(w, h int) [4]Vec {
	fw, fh := float64(w), float64(h)
	return [4]Vec{{0, 0}, {fw, 0}, {fw, fh}, {0, fh}}
}

// Validate reports whether q can be rectified. The returned error wraps
// ErrInvalidGeometry.
func Validate(q geometry.Quad) error {
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			if q[i] == q[j] {
				return fmt.Errorf("%w: corners %d and %d coincide at %v", ErrInvalidGeometry, i, j, q[i])
			}
		}
	}
	for i := 0; i < 4; i++ {
		a, b, c := q[i], q[(i+1)%4], q[(i+2)%4]
		if geometry.Cross(a, b, c) == 0 {
			return fmt.Errorf("%w: corners %v %v %v are collinear", ErrInvalidGeometry, a, b, c)
		}
	}
	if w, h := OutputSize(q); w == 0 || h == 0 {
		return fmt.Errorf("%w: empty output %dx%d", ErrInvalidGeometry, w, h)
	}
	return nil
}

// Transform returns the homography taking quad vertex i to destination
// corner i, together with the output size.
func Transform(q geometry.Quad) (Homography, int, int, error) {
	if err := Validate(q); err != nil {
		return Homography{}, 0, 0, err
	}
	w, h := OutputSize(q)

	var src [4]Vec
	for i, p := range q {
		src[i] = Vec{float64(p.X), float64(p.Y)}
	}
	m, err := QuadToQuad(src, DestinationCorners(w, h))
	if err != nil {
		return Homography{}, 0, 0, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	return m, w, h, nil
}

// Rectify flattens the region of frame bounded by q into a W x H image,
// where W and H are the extents of q's bounding box.
//
// The vertices are used in the order given: q[0] lands on the output's
// top-left corner, q[1] top-right, q[2] bottom-right, q[3] bottom-left.
// A quad traced in the other rotational direction produces a mirrored page.
//
// Each output pixel is inverse-mapped into the frame and sampled
// bilinearly; samples outside the frame take opts.Fill. The frame is not
// modified.
//
// # Errors
//
//   - imaging.ErrMalformedInput when frame fails validation
//   - ErrInvalidGeometry for degenerate quads or a singular transform
func Rectify(frame image.Image, q geometry.Quad, opts Options) (*image.NRGBA, error) {
	src, err := imaging.ToNRGBA(frame)
	if err != nil {
		return nil, err
	}

	m, w, h, err := Transform(q)
	if err != nil {
		return nil, err
	}
	inv, err := m.Inverse()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}

	return Warp(src, inv, w, h, opts.Fill), nil
}

// Warp builds a w x h image whose pixel (u, v) is src sampled at inv(u, v).
func Warp(src *image.NRGBA, inv Homography, w, h int, fill color.NRGBA) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	for v := 0; v < h; v++ {
		row := dst.Pix[v*dst.Stride : v*dst.Stride+w*4]
		for u := 0; u < w; u++ {
			c := fill
			if sx, sy, ok := inv.Apply(float64(u), float64(v)); ok {
				c = bilinear(src, sx, sy, fill)
			}
			row[u*4+0] = c.R
			row[u*4+1] = c.G
			row[u*4+2] = c.B
			row[u*4+3] = c.A
		}
	}
	return dst
}

// bilinear samples src at (x, y). Neighbours outside the image contribute
// the fill colour.
func bilinear(src *image.NRGBA, x, y float64, fill color.NRGBA) color.NRGBA {
	if math.IsNaN(x) || math.IsNaN(y) {
		return fill
	}
	x, y = snap(x), snap(y)

	b := src.Bounds()
	x0, y0 := math.Floor(x), math.Floor(y)
	if x0 < float64(b.Min.X-1) || y0 < float64(b.Min.Y-1) || x0 >= float64(b.Max.X) || y0 >= float64(b.Max.Y) {
		return fill
	}
	fx, fy := x-x0, y-y0
	ix, iy := int(x0), int(y0)

	at := func(px, py int) [4]float64 {
		if px < b.Min.X || py < b.Min.Y || px >= b.Max.X || py >= b.Max.Y {
			return [4]float64{float64(fill.R), float64(fill.G), float64(fill.B), float64(fill.A)}
		}
		i := src.PixOffset(px, py)
		p := src.Pix[i : i+4 : i+4]
		return [4]float64{float64(p[0]), float64(p[1]), float64(p[2]), float64(p[3])}
	}

	p00 := at(ix, iy)
	if fx == 0 && fy == 0 {
		return color.NRGBA{uint8(p00[0]), uint8(p00[1]), uint8(p00[2]), uint8(p00[3])}
	}
	p10 := at(ix+1, iy)
	p01 := at(ix, iy+1)
	p11 := at(ix+1, iy+1)

	var out [4]uint8
	for c := 0; c < 4; c++ {
		top := p00[c]*(1-fx) + p10[c]*fx
		bottom := p01[c]*(1-fx) + p11[c]*fx
		out[c] = uint8(math.Max(0, math.Min(255, math.Round(top*(1-fy)+bottom*fy))))
	}
	return color.NRGBA{out[0], out[1], out[2], out[3]}
}

func snap(v float64) float64 {
	if r := math.Round(v); math.Abs(v-r) < snapTolerance {
		return r
	}
	return v
}
