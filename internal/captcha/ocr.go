package captcha

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Result is one OCR reading of a captcha bitmap. Confidence is the engine's
// self-reported certainty on a 0-100 scale.
type Result struct {
	Text       string
	Confidence int
}

// Recognizer turns a preprocessed captcha bitmap into a text guess. An empty
// Result with a nil error means the engine found no token at all; callers
// treat that as a retry, not a failure.
type Recognizer interface {
	Recognize(bitmap image.Image) (Result, error)
}

const charWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
const charBlacklist = "!?"

// TesseractRecognizer runs Tesseract in single-token mode with the captcha
// alphabet locked to [A-Za-z0-9].
type TesseractRecognizer struct{}

func (TesseractRecognizer) Recognize(bitmap image.Image) (Result, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, bitmap); err != nil {
		return Result{}, fmt.Errorf("encode bitmap: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return Result{}, fmt.Errorf("tesseract set image: %w", err)
	}
	if err := client.SetWhitelist(charWhitelist); err != nil {
		return Result{}, fmt.Errorf("tesseract whitelist: %w", err)
	}
	if err := client.SetBlacklist(charBlacklist); err != nil {
		return Result{}, fmt.Errorf("tesseract blacklist: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_CHAR); err != nil {
		return Result{}, fmt.Errorf("tesseract page seg mode: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return Result{}, fmt.Errorf("tesseract recognize: %w", err)
	}
	if len(boxes) == 0 {
		return Result{}, nil
	}
	first := boxes[0]
	return Result{
		Text:       strings.TrimSpace(first.Word),
		Confidence: int(first.Confidence),
	}, nil
}
