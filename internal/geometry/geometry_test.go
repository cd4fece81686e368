package geometry

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(x, y, side int) Contour {
	return Contour{Pt(x, y), Pt(x, y+side), Pt(x+side, y+side), Pt(x+side, y)}
}

func TestArea(t *testing.T) {
	tests := []struct {
		name string
		c    Contour
		want float64
	}{
		{"empty", nil, 0},
		{"two points", Contour{Pt(0, 0), Pt(5, 5)}, 0},
		{"square", square(10, 10, 20), 400},
		{"triangle", Contour{Pt(0, 0), Pt(10, 0), Pt(0, 10)}, 50},
		{"collinear", Contour{Pt(0, 0), Pt(5, 5), Pt(10, 10)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Area(tt.c), 1e-9)
		})
	}
}

func TestSignedArea_Orientation(t *testing.T) {
	ccw := square(0, 0, 10) // down the left side first
	cw := Contour{ccw[0], ccw[3], ccw[2], ccw[1]}

	assert.Less(t, SignedArea(ccw), 0.0)
	assert.Greater(t, SignedArea(cw), 0.0)
	assert.Equal(t, Area(ccw), Area(cw))
}

func TestArcLength(t *testing.T) {
	sq := square(0, 0, 10)
	assert.InDelta(t, 40.0, ArcLength(sq, true), 1e-9)
	assert.InDelta(t, 30.0, ArcLength(sq, false), 1e-9)
	assert.InDelta(t, 0.0, ArcLength(Contour{Pt(3, 3)}, true), 1e-9)

	diag := Contour{Pt(0, 0), Pt(3, 4)}
	assert.InDelta(t, 10.0, ArcLength(diag, true), 1e-9)
}

func TestBoundingRect(t *testing.T) {
	pts := []Point{Pt(5, 9), Pt(1, 3), Pt(7, 2), Pt(4, 4)}
	r := BoundingRect(pts)
	assert.Equal(t, image.Rect(1, 2, 7, 9), r)
	assert.Equal(t, 6, r.Dx())
	assert.Equal(t, 7, r.Dy())

	assert.True(t, BoundingRect(nil).Empty())
}

func TestQuadFromContour(t *testing.T) {
	q, err := QuadFromContour(square(0, 0, 4))
	require.NoError(t, err)
	assert.Equal(t, Pt(0, 0), q[0])
	assert.Equal(t, Pt(4, 0), q[3])

	_, err = QuadFromContour(Contour{Pt(0, 0), Pt(1, 1), Pt(2, 0)})
	assert.ErrorIs(t, err, ErrNotQuad)
}

func TestQuad_Rotate(t *testing.T) {
	q := Quad{Pt(0, 0), Pt(1, 0), Pt(1, 1), Pt(0, 1)}
	assert.Equal(t, Quad{Pt(1, 0), Pt(1, 1), Pt(0, 1), Pt(0, 0)}, q.Rotate(1))
	assert.Equal(t, q, q.Rotate(4))
	assert.Equal(t, q.Rotate(3), q.Rotate(-1))
}

func TestApproxPolyDP_SquareCorners(t *testing.T) {
	// Densely sampled square outline, traced down the left side first.
	var c Contour
	for y := 0; y < 100; y++ {
		c = append(c, Pt(0, y))
	}
	for x := 0; x < 100; x++ {
		c = append(c, Pt(x, 100))
	}
	for y := 100; y > 0; y-- {
		c = append(c, Pt(100, y))
	}
	for x := 100; x > 0; x-- {
		c = append(c, Pt(x, 0))
	}

	approx := ApproxPolyDP(c, 0.02*ArcLength(c, true))
	require.Len(t, approx, 4)
	assert.Equal(t, Contour{Pt(0, 0), Pt(0, 100), Pt(100, 100), Pt(100, 0)}, approx)
}

func TestApproxPolyDP_RemovesJitter(t *testing.T) {
	c := Contour{
		Pt(0, 0), Pt(0, 50), Pt(1, 51), Pt(0, 100),
		Pt(50, 101), Pt(100, 100), Pt(101, 50), Pt(100, 0), Pt(50, 1),
	}
	approx := ApproxPolyDP(c, 0.02*ArcLength(c, true))
	require.Len(t, approx, 4)
	for _, p := range approx {
		assert.Contains(t, []Point{Pt(0, 0), Pt(0, 100), Pt(100, 100), Pt(100, 0)}, p)
	}
}

func TestApproxPolyDP_Triangle(t *testing.T) {
	c := Contour{Pt(0, 0), Pt(25, 0), Pt(50, 0), Pt(25, 40)}
	approx := ApproxPolyDP(c, 1)
	assert.Len(t, approx, 3)
	assert.NotContains(t, approx, Pt(25, 0))
}

func TestApproxPolyDP_SmallInputs(t *testing.T) {
	assert.Nil(t, ApproxPolyDP(nil, 1))
	assert.Equal(t, Contour{Pt(1, 1)}, ApproxPolyDP(Contour{Pt(1, 1)}, 1))

	same := Contour{Pt(2, 2), Pt(2, 2), Pt(2, 2)}
	assert.Equal(t, Contour{Pt(2, 2)}, ApproxPolyDP(same, 0))
}

func TestApproxPolyDP_WithinEpsilon(t *testing.T) {
	// Points on a circle: every input point must stay within epsilon of the
	// simplified polygon's edges.
	var c Contour
	for i := 0; i < 360; i += 3 {
		a := float64(i) * math.Pi / 180
		c = append(c, Pt(200+int(math.Round(100*math.Cos(a))), 200+int(math.Round(100*math.Sin(a)))))
	}
	eps := 4.0
	approx := ApproxPolyDP(c, eps)
	require.GreaterOrEqual(t, len(approx), 3)

	for _, p := range c {
		best := math.Inf(1)
		for i := range approx {
			best = math.Min(best, segmentDistance(p, approx[i], approx[(i+1)%len(approx)]))
		}
		assert.LessOrEqual(t, best, eps+1e-9, "point %v too far from polygon", p)
	}
}

func segmentDistance(p, a, b Point) float64 {
	ax, ay := float64(a.X), float64(a.Y)
	dx, dy := float64(b.X)-ax, float64(b.Y)-ay
	px, py := float64(p.X), float64(p.Y)
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Hypot(px-ax, py-ay)
	}
	t := ((px-ax)*dx + (py-ay)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(px-(ax+t*dx), py-(ay+t*dy))
}
