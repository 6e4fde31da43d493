package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// PageSource is a lazy, finite sequence of recognized page texts. Pages that
// fail to render or recognize are skipped; Next only yields pages with usable
// text. Restart by calling Scanner.Pages again.
type PageSource interface {
	Next() (page int, text string, ok bool)
	Close() error
}

// Scanner renders PDF pages at a fixed DPI and feeds them to a Recognizer.
type Scanner struct {
	rec    Recognizer
	dpi    float64
	logger *zap.Logger
}

func NewScanner(rec Recognizer, dpi float64, logger *zap.Logger) *Scanner {
	return &Scanner{
		rec:    rec,
		dpi:    dpi,
		logger: logger,
	}
}

// Pages opens the PDF and returns the page text sequence. The caller must
// Close the returned source.
func (s *Scanner) Pages(ctx context.Context, pdf []byte) (PageSource, error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}

	return &pageSeq{
		ctx:     ctx,
		doc:     doc,
		scanner: s,
		total:   doc.NumPage(),
	}, nil
}

type pageSeq struct {
	ctx     context.Context
	doc     *fitz.Document
	scanner *Scanner
	next    int
	total   int
}

func (p *pageSeq) Next() (int, string, bool) {
	for p.next < p.total {
		i := p.next
		p.next++

		if p.ctx.Err() != nil {
			return 0, "", false
		}

		img, err := p.doc.ImageDPI(i, p.scanner.dpi)
		if err != nil {
			p.scanner.logger.Warn("Failed to render PDF page, skipping",
				zap.Int("page", i),
				zap.Error(err))
			continue
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			p.scanner.logger.Warn("Failed to encode page image, skipping",
				zap.Int("page", i),
				zap.Error(err))
			continue
		}

		text, err := p.scanner.rec.Recognize(p.ctx, buf.Bytes())
		if err != nil {
			p.scanner.logger.Warn("Failed to recognize page text, skipping",
				zap.Int("page", i),
				zap.Error(err))
			continue
		}

		if strings.TrimSpace(text) == "" {
			continue
		}

		return i, text, true
	}

	return 0, "", false
}

func (p *pageSeq) Close() error {
	return p.doc.Close()
}
