package overlay

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/doc-scanner-mcp/internal/detection"
	"github.com/ironsheep/doc-scanner-mcp/internal/geometry"
	"github.com/ironsheep/doc-scanner-mcp/internal/imaging"
)

// DefaultColor is the outline colour used by the scanner preview.
const DefaultColor = "#00FF00"

// DefaultThickness is the outline stroke width in pixels.
const DefaultThickness = 2

// Style controls how a detection is drawn.
type Style struct {
	Color     color.NRGBA
	Thickness int

	// Labels draws the index of each approximated vertex next to it, which
	// shows the order the corners will be paired in when rectifying.
	Labels bool
}

// DefaultStyle draws a 2px green outline with vertex labels.
func DefaultStyle() Style {
	c, _ := ParseColor(DefaultColor)
	return Style{Color: c, Thickness: DefaultThickness, Labels: true}
}

// ParseColor parses "#RRGGBB" or "#RGB"; the leading '#' is optional.
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	if len(s) != 7 && len(s) != 4 {
		return color.NRGBA{}, fmt.Errorf("invalid hex colour %q", s)
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex colour %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// Draw returns a copy of frame with the detected outline drawn on it. A
// result without an outline yields a plain copy. The frame is not modified.
func Draw(frame image.Image, res *detection.Result, style Style) (*image.NRGBA, error) {
	dst, err := imaging.ToNRGBA(frame)
	if err != nil {
		return nil, err
	}
	if !res.Found() {
		return dst, nil
	}

	thickness := style.Thickness
	if thickness < 1 {
		thickness = 1
	}

	Polyline(dst, res.Contour, true, style.Color, thickness)
	if style.Labels {
		for i, p := range res.Approx {
			Label(dst, p, strconv.Itoa(i), style.Color)
		}
	}
	return dst, nil
}

// Polyline strokes the segments joining pts, and the closing segment when
// closed is set.
func Polyline(dst *image.NRGBA, pts geometry.Contour, closed bool, c color.NRGBA, thickness int) {
	switch len(pts) {
	case 0:
		return
	case 1:
		stamp(dst, pts[0].X, pts[0].Y, c, thickness)
		return
	}
	for i := 0; i+1 < len(pts); i++ {
		Line(dst, pts[i], pts[i+1], c, thickness)
	}
	if closed {
		Line(dst, pts[len(pts)-1], pts[0], c, thickness)
	}
}

// Line draws a segment with Bresenham's algorithm, stamping a square brush
// of the given width at every step.
func Line(dst *image.NRGBA, a, b geometry.Point, c color.NRGBA, thickness int) {
	dx, dy := abs(b.X-a.X), -abs(b.Y-a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	e := dx + dy
	x, y := a.X, a.Y
	for {
		stamp(dst, x, y, c, thickness)
		if x == b.X && y == b.Y {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

// stamp paints a thickness x thickness square centred on (x, y). The
// coordinates are relative to dst's top-left corner.
func stamp(dst *image.NRGBA, x, y int, c color.NRGBA, thickness int) {
	b := dst.Bounds()
	x0 := x - (thickness-1)/2
	y0 := y - (thickness-1)/2
	for py := y0; py < y0+thickness; py++ {
		for px := x0; px < x0+thickness; px++ {
			ax, ay := b.Min.X+px, b.Min.Y+py
			if image.Pt(ax, ay).In(b) {
				dst.SetNRGBA(ax, ay, c)
			}
		}
	}
}

// Label writes text just below and to the right of p on a dark box, moving
// it inside the image when p is near the right or bottom edge.
func Label(dst *image.NRGBA, p geometry.Point, text string, fg color.NRGBA) {
	face := basicfont.Face7x13
	b := dst.Bounds()

	w := font.MeasureString(face, text).Ceil() + 2
	h := face.Metrics().Height.Ceil() + 2

	x, y := p.X+3, p.Y+3
	if x+w > b.Dx() {
		x = p.X - w - 3
	}
	if y+h > b.Dy() {
		y = p.Y - h - 3
	}
	x = max(0, x)
	y = max(0, y)

	bg := color.NRGBA{0, 0, 0, 200}
	box := image.Rect(x, y, x+w, y+h).Add(b.Min).Intersect(b)
	for py := box.Min.Y; py < box.Max.Y; py++ {
		for px := box.Min.X; px < box.Max.X; px++ {
			dst.SetNRGBA(px, py, blend(dst.NRGBAAt(px, py), bg))
		}
	}

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.P(b.Min.X+x+1, b.Min.Y+y+1+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)
}

// blend composites src over dst.
func blend(dst, src color.NRGBA) color.NRGBA {
	a := uint32(src.A)
	mix := func(d, s uint8) uint8 {
		return uint8((uint32(s)*a + uint32(d)*(255-a) + 127) / 255)
	}
	return color.NRGBA{mix(dst.R, src.R), mix(dst.G, src.G), mix(dst.B, src.B), 255}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
