package domain

import "time"

// ExtractedReceipt is the result of scanning one PDF document: the first
// amount and receipt number found across its pages. It only lives long enough
// to go through validation.
type ExtractedReceipt struct {
	Amount            float64
	AmountFound       bool
	CheckNumber       string
	NumberSynthesized bool
	Page              int
}

// AcceptedReceipt is the token returned by the validator once a receipt has
// passed the duplicate and minimum-amount checks.
type AcceptedReceipt struct {
	CheckNumber string
	Amount      float64
}

// UserRecord holds the questionnaire answers collected for one accepted
// receipt, keyed by its check number.
type UserRecord struct {
	CheckNumber string
	FIO         string
	Address     string
	Phone       string
	Amount      float64
	UIDs        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsComplete reports whether all three questionnaire fields are present.
// Only complete records are export-eligible.
func (r *UserRecord) IsComplete() bool {
	return r.FIO != "" && r.Address != "" && r.Phone != ""
}
