package imaging

import (
	"fmt"
	"image"
	"image/color"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
)

// quantStep groups colours whose components differ by less than this.
const quantStep = 16

// ColorShare is one quantized colour and the share of pixels it covers.
type ColorShare struct {
	Hex        string  `json:"hex"`
	Percentage float64 `json:"percentage"`

	// Lightness is the CIE L* of the colour, 0 (black) to 1 (white).
	Lightness float64 `json:"lightness"`
}

// DominantColors returns up to count of the most common colours in r,
// most common first. Components are quantized to multiples of 16 before
// counting. An empty r means the whole image.
func DominantColors(img image.Image, count int, r image.Rectangle) ([]ColorShare, error) {
	if count < 1 {
		return nil, fmt.Errorf("color count must be positive, got %d", count)
	}
	if r.Empty() {
		r = img.Bounds()
	}
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("region %v lies outside the image", r)
	}

	counts := make(map[color.RGBA]int)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			cr, cg, cb, _ := img.At(x, y).RGBA()
			counts[color.RGBA{
				R: uint8(cr>>8) / quantStep * quantStep,
				G: uint8(cg>>8) / quantStep * quantStep,
				B: uint8(cb>>8) / quantStep * quantStep,
				A: 0xff,
			}]++
		}
	}

	total := float64(r.Dx() * r.Dy())
	shares := make([]ColorShare, 0, len(counts))
	for c, n := range counts {
		cf, _ := colorful.MakeColor(c)
		l, _, _ := cf.Lab()
		shares = append(shares, ColorShare{
			Hex:        cf.Hex(),
			Percentage: float64(n) / total * 100,
			Lightness:  l,
		})
	}

	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Percentage != shares[j].Percentage {
			return shares[i].Percentage > shares[j].Percentage
		}
		return shares[i].Hex < shares[j].Hex
	})
	if len(shares) > count {
		shares = shares[:count]
	}
	return shares, nil
}

// PaperTone estimates the background colour of a rectified page: the most
// common colour of its inner area, away from the margins where fill and
// desk pixels collect.
func PaperTone(page image.Image) (ColorShare, error) {
	b := page.Bounds()
	inner := b.Inset(min(b.Dx(), b.Dy()) / 10)
	if inner.Empty() {
		inner = b
	}
	shares, err := DominantColors(page, 1, inner)
	if err != nil {
		return ColorShare{}, err
	}
	return shares[0], nil
}
