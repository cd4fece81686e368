package imaging

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/convolution"
	"github.com/anthonynsimon/bild/effect"
)

// ITU-R BT.601 luma weights.
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// Grayscale converts img into a single-channel luminance plane using
// BT.601 weights, rounding to the nearest level. The returned image has its
// origin at (0,0) regardless of img's bounds.
func Grayscale(img image.Image) *image.Gray {
	rgba := effect.GrayscaleWithWeights(img, lumaR, lumaG, lumaB)
	return grayPlane(rgba)
}

// GaussianBlur smooths a grayscale plane with a ksize x ksize Gaussian whose
// sigma is derived from the kernel size. Borders replicate the edge pixel.
//
// For ksize 5 the kernel is the binomial 1-4-6-4-1 row in both directions,
// normalised to 256, so uniform regions stay exactly uniform.
func GaussianBlur(gray *image.Gray, ksize int) *image.Gray {
	if ksize <= 1 {
		out := image.NewGray(image.Rect(0, 0, gray.Bounds().Dx(), gray.Bounds().Dy()))
		copyGray(out, gray)
		return out
	}

	row := gaussianKernel1D(ksize)
	k := convolution.NewKernel(ksize, ksize)
	for y := 0; y < ksize; y++ {
		for x := 0; x < ksize; x++ {
			k.Matrix[y*ksize+x] = row[y] * row[x]
		}
	}

	// A bias of 0.5 turns the library's truncation into round-to-nearest.
	blurred := convolution.Convolve(gray, k, &convolution.Options{Bias: 0.5, KeepAlpha: true})
	return grayPlane(blurred)
}

// gaussianKernel1D returns a normalised 1-D Gaussian of length ksize.
// Small odd sizes use fixed binomial tables; larger ones derive sigma as
// 0.3*((ksize-1)*0.5-1)+0.8.
func gaussianKernel1D(ksize int) []float64 {
	switch ksize {
	case 3:
		return []float64{0.25, 0.5, 0.25}
	case 5:
		return []float64{1.0 / 16, 4.0 / 16, 6.0 / 16, 4.0 / 16, 1.0 / 16}
	case 7:
		return []float64{0.03125, 0.109375, 0.21875, 0.28125, 0.21875, 0.109375, 0.03125}
	}

	sigma := 0.3*(float64(ksize-1)*0.5-1) + 0.8
	scale := -0.5 / (sigma * sigma)
	row := make([]float64, ksize)
	var sum float64
	for i := range row {
		x := float64(i) - float64(ksize-1)*0.5
		row[i] = math.Exp(scale * x * x)
		sum += row[i]
	}
	for i := range row {
		row[i] /= sum
	}
	return row
}

// grayPlane extracts the red channel of an already-gray RGBA image.
func grayPlane(rgba *image.RGBA) *image.Gray {
	b := rgba.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := rgba.Pix[y*rgba.Stride : y*rgba.Stride+w*4]
		dst := out.Pix[y*out.Stride : y*out.Stride+w]
		for x := range dst {
			dst[x] = src[x*4]
		}
	}
	return out
}

func copyGray(dst, src *image.Gray) {
	b := src.Bounds()
	for y := 0; y < b.Dy(); y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+b.Dx()], src.Pix[y*src.Stride:y*src.Stride+b.Dx()])
	}
}
