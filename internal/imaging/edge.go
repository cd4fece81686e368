package imaging

import (
	"image"
)

// tan(22.5°), the boundary between horizontal and diagonal gradient sectors.
const tan22 = 0.41421356237309504880

// EdgeDetectResult contains an edge map encoded as base64 PNG.
//
// The result is a grayscale image where white pixels (255) mark edges and
// black pixels (0) mark everything else.
type EdgeDetectResult struct {
	// Width of the edge map in pixels (same as the frame).
	Width int `json:"width"`

	// Height of the edge map in pixels (same as the frame).
	Height int `json:"height"`

	// EdgePixels is the number of pixels marked as edges.
	EdgePixels int `json:"edge_pixels"`

	// ImageBase64 is the edge map encoded as base64 PNG.
	ImageBase64 string `json:"image_base64"`

	// MimeType is always "image/png".
	MimeType string `json:"mime_type"`
}

// EdgeOptions selects the preprocessing and Canny parameters.
type EdgeOptions struct {
	// BlurKernel is the odd Gaussian kernel size applied before Canny.
	BlurKernel int

	// Low and High are the hysteresis thresholds on the L1 gradient
	// magnitude of 8-bit data.
	Low  int
	High int
}

// DefaultEdgeOptions returns the detector's fixed parameters: 5x5 blur and
// thresholds 75/200.
func DefaultEdgeOptions() EdgeOptions {
	return EdgeOptions{BlurKernel: 5, Low: 75, High: 200}
}

// EdgeMap runs the full preprocessing chain on a frame: grayscale, Gaussian
// blur and Canny. Each stage allocates its own buffer; img is not modified.
//
// Returns ErrMalformedInput if img fails ValidateFrame.
func EdgeMap(img image.Image, opts EdgeOptions) (*image.Gray, error) {
	if err := ValidateFrame(img); err != nil {
		return nil, err
	}
	gray := Grayscale(img)
	blurred := GaussianBlur(gray, opts.BlurKernel)
	return Canny(blurred, opts.Low, opts.High), nil
}

// EdgeDetect computes the edge map of img and encodes it as PNG, for
// inspecting what the outline detector sees.
func EdgeDetect(img image.Image, opts EdgeOptions) (*EdgeDetectResult, error) {
	edges, err := EdgeMap(img, opts)
	if err != nil {
		return nil, err
	}

	count := 0
	for _, v := range edges.Pix {
		if v != 0 {
			count++
		}
	}

	enc, err := Encode(edges, FormatPNG, 0)
	if err != nil {
		return nil, err
	}

	return &EdgeDetectResult{
		Width:       edges.Bounds().Dx(),
		Height:      edges.Bounds().Dy(),
		EdgePixels:  count,
		ImageBase64: enc.ImageBase64,
		MimeType:    enc.MimeType,
	}, nil
}

// Canny performs Canny edge detection on a blurred grayscale plane.
//
// Parameters:
//   - gray: 8-bit luminance plane, usually the output of GaussianBlur.
//   - low: Pixels whose gradient magnitude does not exceed low are never edges.
//   - high: Pixels whose magnitude exceeds high seed edges.
//
// Returns a new plane with edges set to 255 and everything else 0.
//
// # Algorithm
//
//  1. Gradients: 3x3 Sobel in X and Y with replicated borders.
//     magnitude = |Gx| + |Gy|
//
//  2. Non-maximum suppression: the gradient direction is quantised into
//     horizontal, vertical and the two diagonals. A pixel survives when it
//     beats its two neighbours along that direction. On horizontal and
//     vertical sectors ties with the following neighbour are allowed, so a
//     two-pixel plateau keeps exactly its first pixel and edges stay
//     one pixel wide.
//
//  3. Hysteresis: surviving pixels above high are strong. Surviving pixels
//     above low become edges only if they are 8-connected, through any chain
//     of such pixels, to a strong pixel.
func Canny(gray *image.Gray, low, high int) *image.Gray {
	b := gray.Bounds()
	width, height := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, width, height))
	if width == 0 || height == 0 {
		return out
	}

	at := func(x, y int) int {
		x = clamp(x, 0, width-1)
		y = clamp(y, 0, height-1)
		return int(gray.Pix[y*gray.Stride+x])
	}

	// Magnitudes live in a buffer padded by one zero pixel on every side so
	// the suppression step never needs bounds checks.
	stride := width + 2
	mag := make([]int, stride*(height+2))
	gradX := make([]int, width*height)
	gradY := make([]int, width*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			gx := (at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1)) -
				(at(x-1, y-1) + 2*at(x-1, y) + at(x-1, y+1))
			gy := (at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)) -
				(at(x-1, y-1) + 2*at(x, y-1) + at(x+1, y-1))
			gradX[y*width+x] = gx
			gradY[y*width+x] = gy
			mag[(y+1)*stride+x+1] = abs(gx) + abs(gy)
		}
	}

	const (
		none = iota
		weak
		strong
	)
	state := make([]uint8, width*height)
	var stack []int

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y+1)*stride + x + 1
			m := mag[i]
			if m <= low {
				continue
			}

			gx, gy := gradX[y*width+x], gradY[y*width+x]
			ax, ay := float64(abs(gx)), float64(abs(gy))

			var keep bool
			switch {
			case ay < tan22*ax:
				keep = m > mag[i-1] && m >= mag[i+1]
			case ay > (tan22+2)*ax:
				keep = m > mag[i-stride] && m >= mag[i+stride]
			default:
				s := 1
				if (gx < 0) != (gy < 0) {
					s = -1
				}
				keep = m > mag[i-stride-s] && m > mag[i+stride+s]
			}
			if !keep {
				continue
			}

			p := y*width + x
			if m > high {
				state[p] = strong
				stack = append(stack, p)
			} else {
				state[p] = weak
			}
		}
	}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out.Pix[(p/width)*out.Stride+p%width] = 255

		px, py := p%width, p/width
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := px+dx, py+dy
				if nx < 0 || ny < 0 || nx >= width || ny >= height {
					continue
				}
				q := ny*width + nx
				if state[q] == weak {
					state[q] = strong
					stack = append(stack, q)
				}
			}
		}
	}

	return out
}

// clamp constrains an integer value to the range [lo, hi].
func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
