package detection

import (
	"image"

	"github.com/ironsheep/doc-scanner-mcp/internal/geometry"
)

// Border is one traced contour together with its place in the two-level
// hierarchy.
type Border struct {
	// Points is the border polygon with straight runs compressed to their
	// endpoints.
	Points geometry.Contour

	// Hole is true when the border separates a foreground region from a
	// background hole inside it.
	Hole bool

	// Parent is the index of the enclosing outer border for holes, or -1 for
	// outer borders. Outer borders nested inside holes are flattened to the
	// top level.
	Parent int
}

// chain-code directions, counter-clockwise on screen starting east.
var directions = [8]image.Point{
	{1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1}, {0, 1}, {1, 1},
}

// FindContours traces every border in a binary image (non-zero pixels are
// foreground) using Suzuki-Abe border following.
//
// Borders are returned in the order their starting pixel is met by a
// row-major raster scan. Each outer border starts at its top-left pixel and
// is traversed counter-clockwise on screen; holes run the other way.
//
// The image is treated as if surrounded by a one-pixel background frame, so
// foreground touching the image edge still yields closed borders.
func FindContours(bin *image.Gray) []Border {
	b := bin.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 {
		return nil
	}

	// Labels: 0 background, 1 unvisited foreground, +/-nbd visited border.
	stride := width + 2
	f := make([]int32, stride*(height+2))
	for y := 0; y < height; y++ {
		row := bin.Pix[y*bin.Stride : y*bin.Stride+width]
		for x, v := range row {
			if v != 0 {
				f[(y+1)*stride+x+1] = 1
			}
		}
	}

	offsets := [8]int{}
	for d, p := range directions {
		offsets[d] = p.Y*stride + p.X
	}

	// info[nbd-2] describes the border labelled nbd; label 1 is the frame.
	type borderInfo struct {
		hole   bool
		parent int // border index, -1 for the frame
	}
	var (
		borders []Border
		info    []borderInfo
	)

	nbd := int32(1)
	for y := 1; y <= height; y++ {
		lnbd := int32(1)
		for x := 1; x <= width; x++ {
			i := y*stride + x
			fi := f[i]
			if fi == 0 {
				continue
			}

			var (
				isHole bool
				from   int
			)
			switch {
			case fi == 1 && f[i-1] == 0:
				from = 4 // west
			case fi >= 1 && f[i+1] == 0:
				isHole = true
				from = 0 // east
				if fi > 1 {
					lnbd = fi
				}
			default:
				if fi != 1 {
					lnbd = abs32(fi)
				}
				continue
			}

			nbd++

			// Parent from the border most recently met on this row.
			parent := -1
			if lnbd > 1 {
				li := int(lnbd - 2)
				if info[li].hole == isHole {
					parent = info[li].parent
				} else {
					parent = li
				}
			}
			info = append(info, borderInfo{hole: isHole, parent: parent})

			pts := traceBorder(f, offsets, i, from, nbd, stride)
			outParent := -1
			if isHole {
				outParent = parent
			}
			borders = append(borders, Border{
				Points: compressChain(pts),
				Hole:   isHole,
				Parent: outParent,
			})

			if f[i] != 1 {
				lnbd = abs32(f[i])
			}
		}
	}

	return borders
}

// traceBorder follows one border starting at pixel start whose background
// neighbour lies in direction from. Visited pixels are relabelled with nbd
// (or -nbd where the border has background directly to the east).
func traceBorder(f []int32, offsets [8]int, start, from int, nbd int32, stride int) []geometry.Point {
	toPoint := func(i int) geometry.Point {
		return geometry.Pt(i%stride-1, i/stride-1)
	}

	// Clockwise search for the first foreground neighbour.
	first := -1
	firstDir := 0
	for k := 0; k < 8; k++ {
		d := (from - k + 8) % 8
		if f[start+offsets[d]] != 0 {
			first = start + offsets[d]
			firstDir = d
			break
		}
	}
	if first < 0 {
		f[start] = -nbd
		return []geometry.Point{toPoint(start)}
	}

	pts := []geometry.Point{}
	prevDir := firstDir // direction from current pixel back to the previous one
	cur := start
	for {
		pts = append(pts, toPoint(cur))

		// Counter-clockwise search starting just after the previous pixel.
		eastZero := false
		next, nextDir := -1, 0
		for k := 1; k <= 8; k++ {
			d := (prevDir + k) % 8
			n := cur + offsets[d]
			if f[n] != 0 {
				next, nextDir = n, d
				break
			}
			if d == 0 {
				eastZero = true
			}
		}

		if eastZero {
			f[cur] = -nbd
		} else if f[cur] == 1 {
			f[cur] = nbd
		}

		if next == start && cur == first {
			break
		}
		prevDir = (nextDir + 4) % 8
		cur = next
	}

	return pts
}

// compressChain drops points in the middle of straight horizontal, vertical
// or diagonal runs, keeping only the points where the direction changes.
func compressChain(pts []geometry.Point) geometry.Contour {
	n := len(pts)
	if n <= 2 {
		return geometry.Contour(pts).Clone()
	}
	step := func(a, b geometry.Point) image.Point {
		return image.Pt(b.X-a.X, b.Y-a.Y)
	}
	out := make(geometry.Contour, 0, n/4+4)
	for i := 0; i < n; i++ {
		prev, cur, next := pts[(i+n-1)%n], pts[i], pts[(i+1)%n]
		if step(prev, cur) != step(cur, next) {
			out = append(out, cur)
		}
	}
	if len(out) == 0 {
		// A closed chain always turns somewhere; keep the start just in case.
		out = append(out, pts[0])
	}
	return out
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
