package captcha

import (
	"image"
	"image/color"
	"sort"
)

// paletteSize is the number of dominant colors considered per captcha: the
// single most frequent color is the background, the rest are ink.
const paletteSize = 5

// Segment remaps every pixel of img to either its original color, if that
// color is among the dominant ink colors, or to pure white. The most frequent
// color is treated as background and is blanked along with the noise colors;
// captcha ink is drawn from a small fixed palette, so anti-aliasing artifacts
// and background speckle never make the cut.
//
// Output bounds equal input bounds.
func Segment(img image.Image) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(b)

	counts := make(map[color.NRGBA]int)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			counts[toNRGBA(img.At(x, y))]++
		}
	}

	ink := dominantInk(counts)

	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := toNRGBA(img.At(x, y))
			if _, ok := ink[c]; ok {
				out.SetNRGBA(x, y, c)
			} else {
				out.SetNRGBA(x, y, white)
			}
		}
	}
	return out
}

// dominantInk returns the top paletteSize-1 colors by frequency, skipping the
// single most frequent one. With fewer distinct colors than the palette size,
// every non-background color is kept.
func dominantInk(counts map[color.NRGBA]int) map[color.NRGBA]struct{} {
	if len(counts) == 0 {
		return nil
	}
	ranked := make([]color.NRGBA, 0, len(counts))
	for c := range counts {
		ranked = append(ranked, c)
	}
	// Frequency ties broken by channel value so the ranking is stable.
	sort.Slice(ranked, func(i, j int) bool {
		ci, cj := ranked[i], ranked[j]
		if counts[ci] != counts[cj] {
			return counts[ci] > counts[cj]
		}
		return packNRGBA(ci) < packNRGBA(cj)
	})

	if len(ranked) > paletteSize {
		ranked = ranked[:paletteSize]
	}
	ink := make(map[color.NRGBA]struct{}, len(ranked))
	for _, c := range ranked[1:] {
		ink[c] = struct{}{}
	}
	return ink
}

func toNRGBA(c color.Color) color.NRGBA {
	r, g, b, _ := c.RGBA()
	return color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 255}
}

func packNRGBA(c color.NRGBA) uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}
