package geometry

import "math"

type slice struct {
	start, end int
}

// ApproxPolyDP simplifies a closed contour with the Douglas-Peucker
// algorithm. Every point of the input lies within epsilon of the returned
// polygon, and the returned vertices are a subset of the input in the same
// cyclic order.
//
// The split starts from a pair of mutually distant points: three rounds of
// "find the point farthest from the current start" settle on a start vertex
// and its far partner, and the two arcs between them are simplified
// independently. A final pass drops vertices that sit almost exactly on the
// diagonal chord between their neighbours.
//
// Contours with fewer than three points are returned unchanged.
func ApproxPolyDP(c Contour, epsilon float64) Contour {
	n := len(c)
	if n < 3 {
		return c.Clone()
	}
	if epsilon < 0 {
		epsilon = 0
	}
	eps2 := epsilon * epsilon

	start, far := 0, 0
	var maxDist int64
	for iter := 0; iter < 3; iter++ {
		start = (start + far) % n
		maxDist, far = 0, 0
		origin := c[start]
		for j := 1; j < n; j++ {
			p := c[(start+j)%n]
			dx, dy := int64(p.X-origin.X), int64(p.Y-origin.Y)
			if d := dx*dx + dy*dy; d > maxDist {
				maxDist = d
				far = j
			}
		}
	}
	if float64(maxDist) <= eps2 {
		return Contour{c[start]}
	}
	far = (start + far) % n

	out := make(Contour, 0, 16)
	stack := []slice{{start: far, end: start}, {start: start, end: far}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		a, b := c[s.start], c[s.end]
		keep := true
		split := -1
		if (s.start+1)%n != s.end {
			dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
			var best float64
			for i := (s.start + 1) % n; i != s.end; i = (i + 1) % n {
				p := c[i]
				d := math.Abs(float64(p.Y-a.Y)*dx - float64(p.X-a.X)*dy)
				if d > best {
					best = d
					split = i
				}
			}
			keep = best*best <= eps2*(dx*dx+dy*dy)
		}

		if keep {
			out = append(out, a)
			continue
		}
		stack = append(stack, slice{start: split, end: s.end}, slice{start: s.start, end: split})
	}

	return dropChordPoints(out, eps2)
}

// dropChordPoints removes vertices lying within epsilon/sqrt(2) of the
// diagonal chord joining their neighbours, provided the vertex falls between
// them.
func dropChordPoints(pts Contour, eps2 float64) Contour {
	for i := 0; len(pts) > 2 && i < len(pts); {
		n := len(pts)
		prev, cur, next := pts[(i+n-1)%n], pts[i], pts[(i+1)%n]
		dx, dy := float64(next.X-prev.X), float64(next.Y-prev.Y)
		cross := float64(cur.X-prev.X)*dy - float64(cur.Y-prev.Y)*dx
		inner := float64(cur.X-prev.X)*float64(next.X-cur.X) + float64(cur.Y-prev.Y)*float64(next.Y-cur.Y)
		if dx != 0 && dy != 0 && inner >= 0 && cross*cross <= 0.5*eps2*(dx*dx+dy*dy) {
			pts = append(pts[:i], pts[i+1:]...)
			continue
		}
		i++
	}
	return pts
}
