package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// Recognizer turns one rendered page image (PNG bytes) into plain text.
type Recognizer interface {
	Recognize(ctx context.Context, png []byte) (string, error)
}

// TesseractRecognizer recognizes page text with a local Tesseract install.
type TesseractRecognizer struct {
	languages []string
}

func NewTesseract(languages []string) *TesseractRecognizer {
	return &TesseractRecognizer{languages: languages}
}

// Recognize runs Tesseract over the PNG image. A fresh client per call keeps
// the recognizer safe for concurrent pages.
func (t *TesseractRecognizer) Recognize(ctx context.Context, png []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.languages...); err != nil {
		return "", fmt.Errorf("setting OCR languages: %w", err)
	}
	if err := client.SetImageFromBytes(png); err != nil {
		return "", fmt.Errorf("loading page image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("recognizing page text: %w", err)
	}
	return text, nil
}
