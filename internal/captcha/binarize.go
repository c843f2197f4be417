package captcha

import (
	"image"

	"github.com/disintegration/imaging"
)

// DefaultThreshold is tuned for the ink/background contrast of the BBDC
// captcha palette.
const DefaultThreshold = 225

// boxKernel is a 3x3 box blur; it closes the 1-pixel gaps the segmenter
// leaves behind when it blanks anti-aliased edge pixels.
var boxKernel = [9]float64{
	1, 1, 1,
	1, 1, 1,
	1, 1, 1,
}

// Binarize blurs img, converts it to grayscale luminance and thresholds the
// result into a black-ink-on-white bitmap. Luminance above threshold becomes
// background (255), everything else ink (0).
func Binarize(img image.Image, threshold uint8) *image.Gray {
	blurred := imaging.Convolve3x3(img, boxKernel, &imaging.ConvolveOptions{Normalize: true})
	gray := imaging.Grayscale(blurred)

	b := gray.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			// Grayscale output has R=G=B, any channel is the luminance.
			lum := gray.NRGBAAt(x, y).R
			i := out.PixOffset(x, y)
			if lum > threshold {
				out.Pix[i] = 255
			} else {
				out.Pix[i] = 0
			}
		}
	}
	return out
}
