package captcha

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	// ErrUnsolved means this challenge did not produce a submittable guess;
	// the caller should fetch a fresh challenge and try again.
	ErrUnsolved = errors.New("captcha not solved")

	// ErrSkipped means a human operator chose to skip the captcha entirely.
	ErrSkipped = errors.New("captcha skipped")
)

// Solver produces the answer text for one captcha image. Implementations are
// interchangeable inside the session retry loop: automatic OCR and a
// human-in-the-loop prompt follow the same contract.
type Solver interface {
	Solve(ctx context.Context, image []byte) (string, error)
}

// AutoSolver decodes the captcha with the OCR pipeline and applies the
// acceptance gate before letting the guess through.
type AutoSolver struct {
	Decoder *Decoder
}

func (s AutoSolver) Solve(_ context.Context, image []byte) (string, error) {
	res, err := s.Decoder.Decode(image)
	if err != nil {
		return "", err
	}
	if !Validate(res.Text, res.Confidence) {
		return "", fmt.Errorf("%w: %q at %d%%", ErrUnsolved, res.Text, res.Confidence)
	}
	return res.Text, nil
}

// ManualSolver writes the captcha image to disk and asks a human to type the
// answer. With AllowSkip set an answer of "n" skips the challenge; that is
// only offered for booking captchas, a login can never be skipped.
type ManualSolver struct {
	In        io.Reader
	Out       io.Writer
	AllowSkip bool
}

func NewManualSolver(allowSkip bool) *ManualSolver {
	return &ManualSolver{In: os.Stdin, Out: os.Stderr, AllowSkip: allowSkip}
}

func (s *ManualSolver) Solve(_ context.Context, image []byte) (string, error) {
	f, err := os.CreateTemp("", "bbdc-captcha-*.png")
	if err != nil {
		return "", fmt.Errorf("write captcha image: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(image); err != nil {
		return "", fmt.Errorf("write captcha image: %w", err)
	}

	fmt.Fprintf(s.Out, "Captcha saved to %s\n", f.Name())
	if s.AllowSkip {
		fmt.Fprint(s.Out, "Solve captcha (n to skip): ")
	} else {
		fmt.Fprint(s.Out, "Solve captcha: ")
	}

	line, err := bufio.NewReader(s.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read captcha answer: %w", err)
	}
	answer := strings.TrimSpace(line)
	if s.AllowSkip && answer == "n" {
		return "", ErrSkipped
	}
	if answer == "" {
		return "", ErrUnsolved
	}
	return answer, nil
}
