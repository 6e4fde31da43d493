package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chekbot/internal/check"
	"chekbot/internal/domain"
	"chekbot/internal/export"
	"chekbot/internal/extract"
	"chekbot/internal/ocr"
	"chekbot/internal/session"

	"go.uber.org/zap"
)

// ErrExtractionFailed covers every failure of the OCR/PDF boundary: unreadable
// documents, engine errors, timeouts. Nothing below this error propagates to
// the conversation layer.
var ErrExtractionFailed = errors.New("receipt extraction failed")

// DocumentScanner is the OCR boundary consumed by the pipeline.
type DocumentScanner interface {
	Pages(ctx context.Context, pdf []byte) (ocr.PageSource, error)
}

// RecordArchiver persists completed records outside the in-memory store.
type RecordArchiver interface {
	SaveRecord(rec *domain.UserRecord) error
}

// Pipeline wires the receipt flow together: scan → extract → validate → open
// session, and the questionnaire/export operations on top of it.
type Pipeline struct {
	logger     *zap.Logger
	scanner    DocumentScanner
	extractor  *extract.Extractor
	validator  *check.Validator
	sessions   *session.Store
	exporter   *export.Aggregator
	archive    RecordArchiver
	ocrTimeout time.Duration

	// slots bounds concurrent OCR jobs so one submitter's scan does not
	// stall every other conversation.
	slots chan struct{}
}

func New(
	logger *zap.Logger,
	scanner DocumentScanner,
	extractor *extract.Extractor,
	validator *check.Validator,
	sessions *session.Store,
	exporter *export.Aggregator,
	archive RecordArchiver,
	workers int,
	ocrTimeout time.Duration,
) *Pipeline {
	if workers <= 0 {
		workers = 1
	}
	return &Pipeline{
		logger:     logger,
		scanner:    scanner,
		extractor:  extractor,
		validator:  validator,
		sessions:   sessions,
		exporter:   exporter,
		archive:    archive,
		ocrTimeout: ocrTimeout,
		slots:      make(chan struct{}, workers),
	}
}

// SubmitDocument scans one PDF and runs the extracted receipt through
// validation. On acceptance a questionnaire session is opened for the
// submitter, keyed by their identity.
func (p *Pipeline) SubmitDocument(ctx context.Context, submitterID int64, pdf []byte) (*domain.AcceptedReceipt, error) {
	select {
	case p.slots <- struct{}{}:
		defer func() { <-p.slots }()
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, ctx.Err())
	}

	receipt, err := p.extractReceipt(ctx, pdf)
	if err != nil {
		p.logger.Warn("Receipt extraction failed",
			zap.Int64("submitter_id", submitterID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	accepted, err := p.validator.Accept(receipt)
	if err != nil {
		p.logger.Info("Receipt rejected",
			zap.Int64("submitter_id", submitterID),
			zap.String("check_number", receipt.CheckNumber),
			zap.Float64("amount", receipt.Amount),
			zap.Error(err))
		return nil, err
	}

	p.sessions.Open(submitterID, accepted)

	return accepted, nil
}

func (p *Pipeline) extractReceipt(ctx context.Context, pdf []byte) (*domain.ExtractedReceipt, error) {
	scanCtx := ctx
	if p.ocrTimeout > 0 {
		var cancel context.CancelFunc
		scanCtx, cancel = context.WithTimeout(ctx, p.ocrTimeout)
		defer cancel()
	}

	pages, err := p.scanner.Pages(scanCtx, pdf)
	if err != nil {
		return nil, err
	}
	defer pages.Close()

	receipt, err := p.extractor.Extract(pages)
	if err != nil {
		return nil, err
	}
	if err := scanCtx.Err(); err != nil {
		return nil, err
	}
	return receipt, nil
}

// SubmitText routes one text message into the submitter's open session. When
// the message completes the questionnaire, the finished record is archived.
func (p *Pipeline) SubmitText(ctx context.Context, submitterID int64, text string) (*domain.StepResult, error) {
	res, err := p.sessions.Submit(submitterID, text)
	if err != nil {
		return nil, err
	}

	if res.Record != nil && p.archive != nil {
		if err := p.archive.SaveRecord(res.Record); err != nil {
			// The in-memory store stays authoritative; losing an archive
			// write must not fail the conversation.
			p.logger.Error("Failed to archive completed record",
				zap.String("check_number", res.Record.CheckNumber),
				zap.Error(err))
		}
	}

	return res, nil
}

// ExportAll assigns any missing identifiers and writes every complete record
// to the export file. Returns the file path.
func (p *Pipeline) ExportAll(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	changed := p.sessions.AssignMissingUIDs()
	records := p.sessions.Records()

	path, err := p.exporter.Export(records)
	if err != nil {
		return "", err
	}

	if p.archive != nil {
		for i := range changed {
			if err := p.archive.SaveRecord(&changed[i]); err != nil {
				p.logger.Error("Failed to archive record after UID assignment",
					zap.String("check_number", changed[i].CheckNumber),
					zap.Error(err))
			}
		}
	}

	return path, nil
}

// Records exposes the current record snapshot for the conversation layer.
func (p *Pipeline) Records() []domain.UserRecord {
	return p.sessions.Records()
}
