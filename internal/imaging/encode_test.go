package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"jpeg", FormatJPEG, false},
		{"JPG", FormatJPEG, false},
		{"png", FormatPNG, false},
		{"gif", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestEncode_PNG(t *testing.T) {
	img := createStepImage(20, 10, 10)

	enc, err := Encode(img, FormatPNG, 0)
	require.NoError(t, err)
	assert.Equal(t, 20, enc.Width)
	assert.Equal(t, 10, enc.Height)
	assert.Equal(t, "image/png", enc.MimeType)

	raw, err := base64.StdEncoding.DecodeString(enc.ImageBase64)
	require.NoError(t, err)
	assert.Equal(t, enc.Data, raw)

	decoded, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	r, _, _, _ := decoded.At(15, 5).RGBA()
	assert.Equal(t, uint32(0xffff), r)
}

func TestEncode_JPEGQuality(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x * 4), uint8(y * 4), uint8((x + y) * 2), 255})
		}
	}

	low, err := EncodeBytes(img, FormatJPEG, 10)
	require.NoError(t, err)
	high, err := EncodeBytes(img, FormatJPEG, 95)
	require.NoError(t, err)
	assert.Less(t, len(low), len(high))

	_, err = jpeg.Decode(bytes.NewReader(high))
	require.NoError(t, err)

	// Out-of-range quality falls back to the default instead of failing.
	def, err := EncodeBytes(img, FormatJPEG, 0)
	require.NoError(t, err)
	q80, err := EncodeBytes(img, FormatJPEG, DefaultJPEGQuality)
	require.NoError(t, err)
	assert.Equal(t, q80, def)
}

func TestEncode_UnknownFormat(t *testing.T) {
	_, err := Encode(image.NewGray(image.Rect(0, 0, 2, 2)), Format("webp"), 0)
	assert.Error(t, err)
}

func TestThumbnail(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 400, 200))

	th := Thumbnail(img, 100, 100)
	assert.Equal(t, 100, th.Bounds().Dx())
	assert.Equal(t, 50, th.Bounds().Dy())

	same := Thumbnail(img, 0, 0)
	assert.Equal(t, img.Bounds(), same.Bounds())
}

func TestCrop(t *testing.T) {
	img := createStepImage(40, 20, 20)
	sub := img.SubImage(image.Rect(10, 5, 40, 20))

	out := Crop(sub, image.Rect(5, 0, 15, 10))
	require.Equal(t, image.Rect(0, 0, 10, 10), out.Bounds())
	// Column 0 of the crop is frame column 15 (black), column 9 is 24 (white).
	assert.Equal(t, uint8(0), out.NRGBAAt(0, 0).R)
	assert.Equal(t, uint8(255), out.NRGBAAt(9, 0).R)
}

func TestDecodeBytes(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 12, 7))
	src.Set(3, 2, color.NRGBA{200, 10, 10, 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	img, err := DecodeBytes(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 12, img.Bounds().Dx())
	assert.Equal(t, 7, img.Bounds().Dy())
	r, _, _, _ := img.At(3, 2).RGBA()
	assert.Equal(t, uint32(200), r>>8)

	_, err = DecodeBytes([]byte("not an image"))
	assert.Error(t, err)
}
