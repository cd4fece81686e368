package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// ErrMalformedInput is returned when a frame cannot be processed: it is nil,
// has zero width or height, or uses a colour model without RGB or gray
// channels.
var ErrMalformedInput = errors.New("malformed input frame")

// ValidateFrame checks that img is usable as a pipeline input.
//
// Accepted colour models are the 8- and 16-bit gray, RGB(A), NRGB(A),
// YCbCr and paletted models from the standard library. CMYK and alpha-only
// images are rejected because their channels do not map onto luminance the
// way the detector expects.
func ValidateFrame(img image.Image) error {
	if img == nil {
		return fmt.Errorf("%w: nil frame", ErrMalformedInput)
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return fmt.Errorf("%w: empty frame %dx%d", ErrMalformedInput, b.Dx(), b.Dy())
	}

	switch img.ColorModel() {
	case color.CMYKModel:
		return fmt.Errorf("%w: unsupported channel layout cmyk", ErrMalformedInput)
	case color.AlphaModel, color.Alpha16Model:
		return fmt.Errorf("%w: unsupported channel layout alpha-only", ErrMalformedInput)
	}
	return nil
}

// ToNRGBA returns a validated copy of img as *image.NRGBA with its origin
// moved to (0,0). The source image is never modified.
func ToNRGBA(img image.Image) (*image.NRGBA, error) {
	if err := ValidateFrame(img); err != nil {
		return nil, err
	}
	return imaging.Clone(img), nil
}
