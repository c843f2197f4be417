package captcha

import (
	"bytes"
	"fmt"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// expectedLength is the token length of the BBDC captcha family.
const expectedLength = 4

// confidenceFloor is the minimum OCR confidence worth submitting. The same
// gate applies to login and booking captchas.
const confidenceFloor = 70

// Decoder composes the segment -> binarize -> recognize pipeline into one
// pure decode step. Retrying belongs to the caller: only the session layer
// can fetch a fresh challenge.
type Decoder struct {
	Recognizer Recognizer
	Threshold  uint8
}

func NewDecoder() *Decoder {
	return &Decoder{Recognizer: TesseractRecognizer{}, Threshold: DefaultThreshold}
}

// Decode turns raw encoded image bytes into a text guess with confidence.
func (d *Decoder) Decode(raw []byte) (Result, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Result{}, fmt.Errorf("decode captcha image: %w", err)
	}
	return d.Recognizer.Recognize(Binarize(Segment(img), d.Threshold))
}

// Validate reports whether a decoded captcha is worth submitting: exactly
// four characters and confidence above 70. Confidence correlates with but
// does not guarantee correctness, so the server-side retry loop still applies
// after this gate passes.
func Validate(text string, confidence int) bool {
	return len(text) == expectedLength && confidence > confidenceFloor
}
