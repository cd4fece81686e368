package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
)

// Format selects the output encoding for rendered frames and pages.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
)

// DefaultJPEGQuality matches the quality used for captured pages.
const DefaultJPEGQuality = 80

// ParseFormat accepts "jpeg", "jpg" or "png" in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	}
	return "", fmt.Errorf("unsupported image format %q", s)
}

// MimeType returns the media type for the format.
func (f Format) MimeType() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/jpeg"
}

// Extension returns the file extension for the format, including the dot.
func (f Format) Extension() string {
	if f == FormatPNG {
		return ".png"
	}
	return ".jpg"
}

// EncodedImage holds an encoded image and its dimensions.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`

	// Data is the raw encoded bytes; it is not serialised.
	Data []byte `json:"-"`
}

// EncodeBytes encodes img in the given format. quality applies to JPEG only;
// values outside 1..100 fall back to DefaultJPEGQuality.
func EncodeBytes(img image.Image, format Format, quality int) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case FormatPNG:
		err = imaging.Encode(&buf, img, imaging.PNG)
	case FormatJPEG:
		if quality < 1 || quality > 100 {
			quality = DefaultJPEGQuality
		}
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality))
	default:
		return nil, fmt.Errorf("unsupported image format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s image: %w", format, err)
	}
	return buf.Bytes(), nil
}

// Encode encodes img and wraps the result with its base64 form.
func Encode(img image.Image, format Format, quality int) (*EncodedImage, error) {
	data, err := EncodeBytes(img, format, quality)
	if err != nil {
		return nil, err
	}
	return &EncodedImage{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		MimeType:    format.MimeType(),
		Data:        data,
	}, nil
}

// DecodeBytes decodes an encoded image held in memory.
func DecodeBytes(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Thumbnail scales img down to fit within maxW x maxH, keeping the aspect
// ratio. Images already inside the box are returned as an unscaled copy.
func Thumbnail(img image.Image, maxW, maxH int) *image.NRGBA {
	if maxW <= 0 || maxH <= 0 {
		return imaging.Clone(img)
	}
	return imaging.Fit(img, maxW, maxH, imaging.Lanczos)
}

// Crop returns a copy of the rectangle r of img. r is given relative to the
// image's top-left corner and is clipped to the image.
func Crop(img image.Image, r image.Rectangle) *image.NRGBA {
	min := img.Bounds().Min
	return imaging.Crop(img, r.Add(min))
}
