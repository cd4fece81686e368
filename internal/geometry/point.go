package geometry

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// Point represents a pixel position in frame space.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y int) Point {
	return Point{X: x, Y: y}
}

// ImagePoint converts p to an image.Point.
func (p Point) ImagePoint() image.Point {
	return image.Pt(p.X, p.Y)
}

// String renders the point as "(x,y)".
func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Contour is an ordered closed polygon. The last point connects to the first.
type Contour []Point

// Clone returns an independent copy of c.
func (c Contour) Clone() Contour {
	if c == nil {
		return nil
	}
	out := make(Contour, len(c))
	copy(out, c)
	return out
}

// ErrNotQuad is returned when a polygon does not have exactly four vertices.
var ErrNotQuad = errors.New("polygon does not have exactly 4 vertices")

// Quad is a four-vertex polygon in traced order. The order is significant:
// vertex i is paired with output corner i during rectification.
type Quad [4]Point

// QuadFromContour converts a 4-point polygon into a Quad, preserving order.
func QuadFromContour(c Contour) (Quad, error) {
	var q Quad
	if len(c) != 4 {
		return q, fmt.Errorf("%w: got %d", ErrNotQuad, len(c))
	}
	copy(q[:], c)
	return q, nil
}

// Contour returns the quad as a 4-point Contour.
func (q Quad) Contour() Contour {
	return Contour{q[0], q[1], q[2], q[3]}
}

// Rotate returns the quad with its vertex list rotated left by n positions.
func (q Quad) Rotate(n int) Quad {
	var out Quad
	for i := range q {
		out[i] = q[((i+n)%4+4)%4]
	}
	return out
}

// Area returns the enclosed area of a closed contour using the shoelace
// formula. The result is always non-negative; use SignedArea when the
// traversal direction matters.
func Area(c Contour) float64 {
	return math.Abs(SignedArea(c))
}

// SignedArea returns the shoelace area of c. With Y pointing down, a
// counterclockwise traversal on screen yields a negative value.
func SignedArea(c Contour) float64 {
	n := len(c)
	if n < 3 {
		return 0
	}
	var sum int64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += int64(c[i].X)*int64(c[j].Y) - int64(c[j].X)*int64(c[i].Y)
	}
	return float64(sum) / 2.0
}

// ArcLength returns the length of the polyline through c. When closed is
// true the segment from the last point back to the first is included.
func ArcLength(c Contour, closed bool) float64 {
	n := len(c)
	if n < 2 {
		return 0
	}
	var length float64
	for i := 0; i < n-1; i++ {
		length += distance(c[i], c[i+1])
	}
	if closed {
		length += distance(c[n-1], c[0])
	}
	return length
}

// BoundingRect returns the smallest axis-aligned rectangle containing every
// point. Max is the largest point coordinate, not one past it, so Dx and Dy
// are the coordinate extents.
func BoundingRect(pts []Point) image.Rectangle {
	if len(pts) == 0 {
		return image.Rectangle{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return image.Rect(minX, minY, maxX, maxY)
}

// Cross returns the z component of (b-a) x (c-a). Zero means collinear.
func Cross(a, b, c Point) int64 {
	return int64(b.X-a.X)*int64(c.Y-a.Y) - int64(b.Y-a.Y)*int64(c.X-a.X)
}

func distance(a, b Point) float64 {
	return math.Hypot(float64(b.X-a.X), float64(b.Y-a.Y))
}
