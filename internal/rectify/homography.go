package rectify

import (
	"errors"
	"math"

	"golang.org/x/image/math/f64"
)

// errSingular is wrapped into ErrInvalidGeometry by callers.
var errSingular = errors.New("singular perspective transform")

// Vec is a point with sub-pixel precision.
type Vec struct {
	X, Y float64
}

// Homography is a 3x3 projective transform stored row-major:
//
//	x' = (H[0]*x + H[1]*y + H[2]) / (H[6]*x + H[7]*y + H[8])
//	y' = (H[3]*x + H[4]*y + H[5]) / (H[6]*x + H[7]*y + H[8])
type Homography f64.Mat3

// Identity is the transform that maps every point to itself.
var Identity = Homography{1, 0, 0, 0, 1, 0, 0, 0, 1}

// Apply maps (x, y) through h. ok is false when the point maps to infinity.
func (h Homography) Apply(x, y float64) (float64, float64, bool) {
	w := h[6]*x + h[7]*y + h[8]
	if w == 0 {
		return 0, 0, false
	}
	return (h[0]*x + h[1]*y + h[2]) / w, (h[3]*x + h[4]*y + h[5]) / w, true
}

// Mul returns h*o, the transform that applies o first and then h.
func (h Homography) Mul(o Homography) Homography {
	var r Homography
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i*3+j] = h[i*3]*o[j] + h[i*3+1]*o[3+j] + h[i*3+2]*o[6+j]
		}
	}
	return r
}

// Det returns the determinant of h.
func (h Homography) Det() float64 {
	return h[0]*(h[4]*h[8]-h[5]*h[7]) -
		h[1]*(h[3]*h[8]-h[5]*h[6]) +
		h[2]*(h[3]*h[7]-h[4]*h[6])
}

// Adjoint returns the adjugate of h. For a projective transform the adjugate
// is an inverse up to scale, which is all a homography needs.
func (h Homography) Adjoint() Homography {
	return Homography{
		h[4]*h[8] - h[5]*h[7], h[2]*h[7] - h[1]*h[8], h[1]*h[5] - h[2]*h[4],
		h[5]*h[6] - h[3]*h[8], h[0]*h[8] - h[2]*h[6], h[2]*h[3] - h[0]*h[5],
		h[3]*h[7] - h[4]*h[6], h[1]*h[6] - h[0]*h[7], h[0]*h[4] - h[1]*h[3],
	}
}

// Inverse returns the inverse transform, normalised so its last element is 1
// when possible.
func (h Homography) Inverse() (Homography, error) {
	det := h.Det()
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return Homography{}, errSingular
	}
	inv := h.Adjoint()
	scale := 1 / det
	if inv[8] != 0 {
		scale = 1 / inv[8]
	}
	for i := range inv {
		inv[i] *= scale
	}
	return inv, nil
}

// SquareToQuad returns the transform taking the unit square corners
// (0,0), (1,0), (1,1), (0,1) to q[0], q[1], q[2], q[3].
func SquareToQuad(q [4]Vec) (Homography, error) {
	dx3 := q[0].X - q[1].X + q[2].X - q[3].X
	dy3 := q[0].Y - q[1].Y + q[2].Y - q[3].Y
	if dx3 == 0 && dy3 == 0 {
		// Parallelogram: the transform is affine.
		return Homography{
			q[1].X - q[0].X, q[3].X - q[0].X, q[0].X,
			q[1].Y - q[0].Y, q[3].Y - q[0].Y, q[0].Y,
			0, 0, 1,
		}, nil
	}

	dx1 := q[1].X - q[2].X
	dx2 := q[3].X - q[2].X
	dy1 := q[1].Y - q[2].Y
	dy2 := q[3].Y - q[2].Y
	den := dx1*dy2 - dx2*dy1
	if den == 0 {
		return Homography{}, errSingular
	}
	g := (dx3*dy2 - dx2*dy3) / den
	k := (dx1*dy3 - dx3*dy1) / den

	return Homography{
		q[1].X - q[0].X + g*q[1].X, q[3].X - q[0].X + k*q[3].X, q[0].X,
		q[1].Y - q[0].Y + g*q[1].Y, q[3].Y - q[0].Y + k*q[3].Y, q[0].Y,
		g, k, 1,
	}, nil
}

// QuadToQuad returns the transform taking src[i] to dst[i] for all four
// corners, composed as square->dst after src->square.
func QuadToQuad(src, dst [4]Vec) (Homography, error) {
	sToSrc, err := SquareToQuad(src)
	if err != nil {
		return Homography{}, err
	}
	srcToS, err := sToSrc.Inverse()
	if err != nil {
		return Homography{}, err
	}
	sToDst, err := SquareToQuad(dst)
	if err != nil {
		return Homography{}, err
	}

	h := sToDst.Mul(srcToS)
	if h[8] != 0 {
		scale := 1 / h[8]
		for i := range h {
			h[i] *= scale
		}
	}
	if d := h.Det(); d == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return Homography{}, errSingular
	}
	return h, nil
}
