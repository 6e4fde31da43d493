package extract

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"chekbot/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoPages is returned when no page of the document produced usable text.
var ErrNoPages = errors.New("document produced no readable text")

// PageSource yields recognized page texts in page order.
type PageSource interface {
	Next() (page int, text string, ok bool)
}

var (
	// Merchant-name artifacts on some registers: the line itself is noise,
	// but the total is printed on the line right below it.
	ignoreMarkerRe = regexp.MustCompile(`(?i)^\s*(?:ооо|ао|зао|ип|тоо)\b`)

	// Digit groups optionally split by single spaces, optional 2-digit
	// decimal part after a comma.
	currencyShapeRe = regexp.MustCompile(`^\d+(?: \d{3})*(?:,\d{2})?$`)

	checkNumberRe = regexp.MustCompile(`(?i)№\s*чека|чек\s*№`)
	nonDigitRe    = regexp.MustCompile(`\D`)
	nonAmountRe   = regexp.MustCompile(`[^0-9, .]`)
)

var amountKeywords = []string{"сумма", "итого", "total"}

// scanState carries the cross-line flag set by an ignore-marker line.
type scanState struct {
	afterIgnoreMarker bool
}

// amountMatcher is one named rule of the amount scan: a pure predicate over
// the current line (plus scan state). Matchers are evaluated in priority
// order; the first match makes the line the amount source.
type amountMatcher struct {
	name  string
	match func(st *scanState, line string) bool
}

var amountMatchers = []amountMatcher{
	{
		name: "ignore-marker-follower",
		match: func(st *scanState, line string) bool {
			if !st.afterIgnoreMarker {
				return false
			}
			st.afterIgnoreMarker = false
			return true
		},
	},
	{
		name: "amount-keyword",
		match: func(st *scanState, line string) bool {
			lower := strings.ToLower(line)
			for _, kw := range amountKeywords {
				if strings.Contains(lower, kw) {
					return true
				}
			}
			return false
		},
	},
	{
		name: "currency-shape",
		match: func(st *scanState, line string) bool {
			return currencyShapeRe.MatchString(strings.TrimSpace(line))
		},
	},
}

// Extractor scans OCR page text for a receipt amount and check number.
type Extractor struct {
	logger *zap.Logger
}

func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract runs the amount and number scans over the page sequence, first
// match wins for each. Scanning stops early once both are found. When no
// check number is printed anywhere, a fresh random one is synthesized, which
// makes the receipt always count as new.
func (e *Extractor) Extract(src PageSource) (*domain.ExtractedReceipt, error) {
	receipt := &domain.ExtractedReceipt{}
	pages := 0
	st := &scanState{}

	for {
		page, text, ok := src.Next()
		if !ok {
			break
		}
		pages++

		for _, line := range strings.Split(text, "\n") {
			if !receipt.AmountFound {
				e.scanAmountLine(st, line, page, receipt)
			}
			if receipt.CheckNumber == "" {
				e.scanNumberLine(line, receipt)
			}
		}

		if receipt.AmountFound && receipt.CheckNumber != "" {
			break
		}
	}

	if pages == 0 {
		return nil, ErrNoPages
	}

	if receipt.CheckNumber == "" {
		receipt.CheckNumber = uuid.New().String()
		receipt.NumberSynthesized = true
		e.logger.Info("No check number found, synthesized a fallback",
			zap.String("check_number", receipt.CheckNumber))
	}

	return receipt, nil
}

func (e *Extractor) scanAmountLine(st *scanState, line string, page int, receipt *domain.ExtractedReceipt) {
	matched := ""
	for _, m := range amountMatchers {
		if m.match(st, line) {
			matched = m.name
			break
		}
	}

	if ignoreMarkerRe.MatchString(line) {
		st.afterIgnoreMarker = true
	}

	if matched == "" {
		return
	}

	amount, err := NormalizeAmount(line)
	if err != nil {
		e.logger.Debug("Amount source line did not parse, continuing scan",
			zap.String("matcher", matched),
			zap.String("line", line),
			zap.Error(err))
		return
	}

	receipt.Amount = amount
	receipt.AmountFound = true
	receipt.Page = page
	e.logger.Debug("Amount found",
		zap.String("matcher", matched),
		zap.Float64("amount", amount),
		zap.Int("page", page))
}

func (e *Extractor) scanNumberLine(line string, receipt *domain.ExtractedReceipt) {
	if !checkNumberRe.MatchString(line) {
		return
	}
	digits := nonDigitRe.ReplaceAllString(line, "")
	if digits == "" {
		return
	}
	receipt.CheckNumber = digits
}

// NormalizeAmount turns an amount source line into a decimal value: strip
// everything but digits, comma, space and dot; drop the spaces between digit
// groups (thousands separators); comma becomes the decimal dot.
func NormalizeAmount(line string) (float64, error) {
	s := nonAmountRe.ReplaceAllString(line, "")
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	return strconv.ParseFloat(s, 64)
}
