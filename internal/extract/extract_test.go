package extract

import (
	"errors"
	"testing"

	"go.uber.org/zap"
)

type fakePages struct {
	texts []string
	idx   int
}

func (f *fakePages) Next() (int, string, bool) {
	if f.idx >= len(f.texts) {
		return 0, "", false
	}
	page := f.idx
	text := f.texts[f.idx]
	f.idx++
	return page, text, true
}

func TestNormalizeAmount(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    float64
		wantErr bool
	}{
		{name: "plain integer", line: "7900", want: 7900},
		{name: "spaced thousands", line: "7 900", want: 7900},
		{name: "comma decimal", line: "7900,50", want: 7900.5},
		{name: "keyword line with label", line: "ИТОГО: 7 900,00", want: 7900},
		{name: "currency suffix", line: "15 800,00 руб", want: 15800},
		{name: "no digits", line: "Итоговая скидка", wantErr: true},
		{name: "empty", line: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeAmount(tt.line)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("NormalizeAmount(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestExtract_AmountMatchers(t *testing.T) {
	tests := []struct {
		name       string
		pages      []string
		wantAmount float64
		wantFound  bool
	}{
		{
			name:       "keyword line wins",
			pages:      []string{"Кассовый чек\nИтого: 7 900,00\n№ чека 100"},
			wantAmount: 7900,
			wantFound:  true,
		},
		{
			name:       "currency shaped line",
			pages:      []string{"Кассовый чек\n8 500,00\n№ чека 101"},
			wantAmount: 8500,
			wantFound:  true,
		},
		{
			name: "line after ignore marker used regardless of shape",
			pages: []string{
				"ООО РОМАШКА\n= 9 400.00 RUB\n№ чека 102",
			},
			wantAmount: 9400,
			wantFound:  true,
		},
		{
			name: "unparsable keyword line does not stop the scan",
			pages: []string{
				"Итоговая скидка\n7900\n№ чека 103",
			},
			wantAmount: 7900,
			wantFound:  true,
		},
		{
			name:       "no amount anywhere reports zero",
			pages:      []string{"Кассовый чек\nСпасибо за покупку!\n№ чека 104"},
			wantAmount: 0,
			wantFound:  false,
		},
		{
			name: "amount on a later page",
			pages: []string{
				"Кассовый чек\n№ чека 105",
				"Total: 12 345",
			},
			wantAmount: 12345,
			wantFound:  true,
		},
	}

	e := NewExtractor(zap.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			receipt, err := e.Extract(&fakePages{texts: tt.pages})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if receipt.AmountFound != tt.wantFound {
				t.Errorf("AmountFound = %v, want %v", receipt.AmountFound, tt.wantFound)
			}
			if receipt.Amount != tt.wantAmount {
				t.Errorf("Amount = %v, want %v", receipt.Amount, tt.wantAmount)
			}
		})
	}
}

func TestExtract_CheckNumber(t *testing.T) {
	e := NewExtractor(zap.NewNop())

	receipt, err := e.Extract(&fakePages{texts: []string{"Итого: 7900\n№ чека: 00123"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receipt.CheckNumber != "00123" {
		t.Errorf("CheckNumber = %q, want %q", receipt.CheckNumber, "00123")
	}
	if receipt.NumberSynthesized {
		t.Error("NumberSynthesized = true for a printed number")
	}
}

// Receipts without a printed number get a fresh random identifier, so they
// always pass the duplicate gate. Two extractions of the same document must
// therefore yield different numbers.
func TestExtract_SynthesizedCheckNumber(t *testing.T) {
	e := NewExtractor(zap.NewNop())
	pages := []string{"Итого: 7900\nСпасибо за покупку!"}

	first, err := e.Extract(&fakePages{texts: pages})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := e.Extract(&fakePages{texts: pages})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !first.NumberSynthesized || !second.NumberSynthesized {
		t.Fatal("expected synthesized check numbers")
	}
	if first.CheckNumber == "" || first.CheckNumber == second.CheckNumber {
		t.Errorf("synthesized numbers must be unique, got %q and %q",
			first.CheckNumber, second.CheckNumber)
	}
}

func TestExtract_NoReadablePages(t *testing.T) {
	e := NewExtractor(zap.NewNop())

	_, err := e.Extract(&fakePages{})
	if !errors.Is(err, ErrNoPages) {
		t.Errorf("expected ErrNoPages, got %v", err)
	}
}
