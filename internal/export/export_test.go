package export

import (
	"path/filepath"
	"reflect"
	"testing"

	"chekbot/internal/domain"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const sheet = "UserData"

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("opening export file: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("reading sheet: %v", err)
	}
	return rows
}

func TestAggregator_SkipsIncompleteRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "userdata.xlsx")
	a := NewAggregator(path, sheet, zap.NewNop())

	records := []domain.UserRecord{
		{
			CheckNumber: "100",
			FIO:         "Ivan Ivanov",
			Address:     "Main St 1",
			Phone:       "555-1234",
			UIDs:        []string{"uid-1", "uid-2"},
		},
		{
			CheckNumber: "200",
			FIO:         "Petr Petrov",
			// no address or phone: questionnaire never finished
		},
	}

	if _, err := a.Export(records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows := readRows(t, path)
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d rows", len(rows))
	}
	want := []string{"100", "Ivan Ivanov", "Main St 1", "555-1234", "uid-1,uid-2"}
	if !reflect.DeepEqual(rows[1], want) {
		t.Errorf("row = %v, want %v", rows[1], want)
	}
}

// Re-running the export with no new completions must produce the same row
// set: no duplicates, no losses.
func TestAggregator_RepeatedExportIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "userdata.xlsx")
	a := NewAggregator(path, sheet, zap.NewNop())

	records := []domain.UserRecord{
		{CheckNumber: "100", FIO: "Ivan", Address: "A", Phone: "1", UIDs: []string{"u1"}},
		{CheckNumber: "200", FIO: "Petr", Address: "B", Phone: "2", UIDs: []string{"u2"}},
	}

	if _, err := a.Export(records); err != nil {
		t.Fatalf("first export: %v", err)
	}
	first := readRows(t, path)

	if _, err := a.Export(records); err != nil {
		t.Fatalf("second export: %v", err)
	}
	second := readRows(t, path)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated export changed rows:\nfirst:  %v\nsecond: %v", first, second)
	}
}

// New completions append; changed records update their existing row in place.
func TestAggregator_UpsertByCheckNumber(t *testing.T) {
	path := filepath.Join(t.TempDir(), "userdata.xlsx")
	a := NewAggregator(path, sheet, zap.NewNop())

	base := domain.UserRecord{CheckNumber: "100", FIO: "Ivan", Address: "A", Phone: "1", UIDs: []string{"u1"}}
	if _, err := a.Export([]domain.UserRecord{base}); err != nil {
		t.Fatalf("first export: %v", err)
	}

	updated := base
	updated.Phone = "2"
	fresh := domain.UserRecord{CheckNumber: "200", FIO: "Petr", Address: "B", Phone: "3", UIDs: []string{"u2"}}

	if _, err := a.Export([]domain.UserRecord{updated, fresh}); err != nil {
		t.Fatalf("second export: %v", err)
	}

	rows := readRows(t, path)
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[1][0] != "100" || rows[1][3] != "2" {
		t.Errorf("existing row not updated in place: %v", rows[1])
	}
	if rows[2][0] != "200" {
		t.Errorf("new record not appended: %v", rows[2])
	}
}

func TestAggregator_HeaderColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "userdata.xlsx")
	a := NewAggregator(path, sheet, zap.NewNop())

	if _, err := a.Export(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows := readRows(t, path)
	want := []string{"Unique Number", "FIO", "Address", "Phone", "UID"}
	if len(rows) != 1 || !reflect.DeepEqual(rows[0], want) {
		t.Errorf("header = %v, want %v", rows, want)
	}
}
