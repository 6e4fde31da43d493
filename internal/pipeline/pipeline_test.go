package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"chekbot/internal/check"
	"chekbot/internal/domain"
	"chekbot/internal/export"
	"chekbot/internal/extract"
	"chekbot/internal/ocr"
	"chekbot/internal/session"

	"go.uber.org/zap"
)

const minAmount = 7900

type stubPages struct {
	texts []string
	idx   int
}

func (s *stubPages) Next() (int, string, bool) {
	if s.idx >= len(s.texts) {
		return 0, "", false
	}
	page := s.idx
	text := s.texts[s.idx]
	s.idx++
	return page, text, true
}

func (s *stubPages) Close() error { return nil }

type stubScanner struct {
	texts []string
	err   error
}

func (s *stubScanner) Pages(ctx context.Context, pdf []byte) (ocr.PageSource, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &stubPages{texts: s.texts}, nil
}

type stubArchive struct {
	saved []domain.UserRecord
}

func (a *stubArchive) SaveRecord(rec *domain.UserRecord) error {
	a.saved = append(a.saved, *rec)
	return nil
}

func newPipeline(t *testing.T, scanner DocumentScanner, archive RecordArchiver) *Pipeline {
	t.Helper()
	logger := zap.NewNop()
	exporter := export.NewAggregator(filepath.Join(t.TempDir(), "userdata.xlsx"), "UserData", logger)
	return New(
		logger,
		scanner,
		extract.NewExtractor(logger),
		check.NewValidator(minAmount, logger),
		session.NewStore(minAmount, logger),
		exporter,
		archive,
		2,
		time.Minute,
	)
}

func receiptText(number string, amount string) string {
	return "Кассовый чек\nИтого: " + amount + "\n№ чека " + number
}

func TestPipeline_DocumentToCompletedRecord(t *testing.T) {
	ctx := context.Background()
	archive := &stubArchive{}
	p := newPipeline(t, &stubScanner{texts: []string{receiptText("111", "7 900,00")}}, archive)

	accepted, err := p.SubmitDocument(ctx, 1, []byte("%PDF"))
	if err != nil {
		t.Fatalf("SubmitDocument: %v", err)
	}
	if accepted.CheckNumber != "111" || accepted.Amount != 7900 {
		t.Fatalf("unexpected acceptance: %+v", accepted)
	}

	for _, answer := range []string{"Ivan Ivanov", "Main St 1"} {
		if _, err := p.SubmitText(ctx, 1, answer); err != nil {
			t.Fatalf("SubmitText(%q): %v", answer, err)
		}
	}

	res, err := p.SubmitText(ctx, 1, "555-1234")
	if err != nil {
		t.Fatalf("SubmitText(phone): %v", err)
	}
	if res.Record == nil || len(res.Record.UIDs) != 1 {
		t.Fatalf("expected a completed record with 1 UID, got %+v", res.Record)
	}

	if len(archive.saved) != 1 || archive.saved[0].CheckNumber != "111" {
		t.Errorf("completed record not archived: %+v", archive.saved)
	}
}

func TestPipeline_DuplicateDocument(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, &stubScanner{texts: []string{receiptText("111", "8 000")}}, &stubArchive{})

	if _, err := p.SubmitDocument(ctx, 1, []byte("%PDF")); err != nil {
		t.Fatalf("first submission: %v", err)
	}
	if _, err := p.SubmitDocument(ctx, 2, []byte("%PDF")); !errors.Is(err, check.ErrDuplicateReceipt) {
		t.Errorf("expected ErrDuplicateReceipt, got %v", err)
	}
}

func TestPipeline_AmountTooLow(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, &stubScanner{texts: []string{receiptText("112", "500")}}, &stubArchive{})

	if _, err := p.SubmitDocument(ctx, 1, []byte("%PDF")); !errors.Is(err, check.ErrAmountTooLow) {
		t.Errorf("expected ErrAmountTooLow, got %v", err)
	}

	// The rejection leaves the submitter without a session.
	if _, err := p.SubmitText(ctx, 1, "Ivan"); !errors.Is(err, session.ErrNoActiveSession) {
		t.Errorf("expected ErrNoActiveSession, got %v", err)
	}
}

// A document with no amount-shaped line anywhere extracts amount zero, which
// always fails the threshold check.
func TestPipeline_NoAmountAlwaysRejected(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, &stubScanner{texts: []string{"Кассовый чек\nСпасибо за покупку!\n№ чека 113"}}, &stubArchive{})

	if _, err := p.SubmitDocument(ctx, 1, []byte("%PDF")); !errors.Is(err, check.ErrAmountTooLow) {
		t.Errorf("expected ErrAmountTooLow, got %v", err)
	}
}

func TestPipeline_ExtractionFailures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		scanner DocumentScanner
	}{
		{name: "scanner error", scanner: &stubScanner{err: errors.New("broken PDF")}},
		{name: "no readable pages", scanner: &stubScanner{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPipeline(t, tt.scanner, &stubArchive{})
			if _, err := p.SubmitDocument(ctx, 1, []byte("%PDF")); !errors.Is(err, ErrExtractionFailed) {
				t.Errorf("expected ErrExtractionFailed, got %v", err)
			}
		})
	}
}

func TestPipeline_TextBeforeDocument(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, &stubScanner{}, &stubArchive{})

	if _, err := p.SubmitText(ctx, 1, "hello"); !errors.Is(err, session.ErrNoActiveSession) {
		t.Errorf("expected ErrNoActiveSession, got %v", err)
	}
}

func TestPipeline_ExportAll(t *testing.T) {
	ctx := context.Background()
	archive := &stubArchive{}
	p := newPipeline(t, &stubScanner{texts: []string{receiptText("111", "15 800")}}, archive)

	if _, err := p.SubmitDocument(ctx, 1, []byte("%PDF")); err != nil {
		t.Fatalf("SubmitDocument: %v", err)
	}
	for _, answer := range []string{"Ivan Ivanov", "Main St 1", "555-1234"} {
		if _, err := p.SubmitText(ctx, 1, answer); err != nil {
			t.Fatalf("SubmitText(%q): %v", answer, err)
		}
	}

	path, err := p.ExportAll(ctx)
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	if path == "" {
		t.Fatal("expected a file path")
	}

	// Second run with no new completions is a no-op for records.
	if _, err := p.ExportAll(ctx); err != nil {
		t.Fatalf("second ExportAll: %v", err)
	}

	records := p.Records()
	if len(records) != 1 || len(records[0].UIDs) != 2 {
		t.Errorf("expected 1 record with 2 UIDs after export, got %+v", records)
	}
}
