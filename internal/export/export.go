package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"chekbot/internal/domain"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

var columns = []string{"Unique Number", "FIO", "Address", "Phone", "UID"}

// Aggregator serializes complete user records into an xlsx table. Rows are
// keyed by check number with append-or-update semantics: re-running the
// export never duplicates or loses rows for unchanged records. Records
// missing any questionnaire field are skipped.
type Aggregator struct {
	path   string
	sheet  string
	logger *zap.Logger
}

func NewAggregator(path, sheet string, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		path:   path,
		sheet:  sheet,
		logger: logger,
	}
}

// Export writes the eligible records and returns the file path.
func (a *Aggregator) Export(records []domain.UserRecord) (string, error) {
	f, err := a.openWorkbook()
	if err != nil {
		return "", err
	}
	defer f.Close()

	rows, err := f.GetRows(a.sheet)
	if err != nil {
		return "", fmt.Errorf("reading sheet %q: %w", a.sheet, err)
	}

	// Map existing check numbers to their row index (1-based, row 1 is the
	// header) so repeated exports update in place.
	existing := make(map[string]int, len(rows))
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		existing[row[0]] = i + 1
	}

	nextRow := len(rows) + 1
	written := 0
	for _, rec := range records {
		if !rec.IsComplete() {
			continue
		}

		rowIdx, ok := existing[rec.CheckNumber]
		if !ok {
			rowIdx = nextRow
			nextRow++
		}

		values := []interface{}{
			rec.CheckNumber,
			rec.FIO,
			rec.Address,
			rec.Phone,
			strings.Join(rec.UIDs, ","),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx)
			if err != nil {
				return "", fmt.Errorf("building cell reference: %w", err)
			}
			if err := f.SetCellValue(a.sheet, cell, v); err != nil {
				return "", fmt.Errorf("writing cell %s: %w", cell, err)
			}
		}
		written++
	}

	if err := os.MkdirAll(filepath.Dir(a.path), 0755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}
	if err := f.SaveAs(a.path); err != nil {
		return "", fmt.Errorf("saving export file: %w", err)
	}

	a.logger.Info("Export written",
		zap.String("path", a.path),
		zap.Int("rows", written),
		zap.Int("skipped", len(records)-written))

	return a.path, nil
}

// openWorkbook opens the existing export file or creates a new one with the
// header row in place.
func (a *Aggregator) openWorkbook() (*excelize.File, error) {
	if _, err := os.Stat(a.path); err == nil {
		f, err := excelize.OpenFile(a.path)
		if err != nil {
			return nil, fmt.Errorf("opening export file: %w", err)
		}
		if idx, err := f.GetSheetIndex(a.sheet); err == nil && idx < 0 {
			if _, err := f.NewSheet(a.sheet); err != nil {
				f.Close()
				return nil, fmt.Errorf("creating sheet %q: %w", a.sheet, err)
			}
			if err := a.writeHeader(f); err != nil {
				f.Close()
				return nil, err
			}
		}
		return f, nil
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", a.sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("naming sheet %q: %w", a.sheet, err)
	}
	if err := a.writeHeader(f); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func (a *Aggregator) writeHeader(f *excelize.File) error {
	for col, name := range columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("building header reference: %w", err)
		}
		if err := f.SetCellValue(a.sheet, cell, name); err != nil {
			return fmt.Errorf("writing header cell %s: %w", cell, err)
		}
	}
	return nil
}
