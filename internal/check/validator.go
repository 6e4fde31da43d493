package check

import (
	"errors"
	"sync"

	"chekbot/internal/domain"

	"go.uber.org/zap"
)

var (
	// ErrDuplicateReceipt means the check number was already accepted before.
	ErrDuplicateReceipt = errors.New("receipt already processed")

	// ErrAmountTooLow means the receipt amount is below the configured minimum.
	ErrAmountTooLow = errors.New("receipt amount below minimum")
)

// Validator applies the acceptance rules to extracted receipts: duplicate
// check first, then the minimum-amount threshold. The processed set only ever
// grows, and a check number enters it exactly once, at acceptance.
type Validator struct {
	mu        sync.Mutex
	minAmount float64
	processed map[string]struct{}
	logger    *zap.Logger
}

func NewValidator(minAmount float64, logger *zap.Logger) *Validator {
	return &Validator{
		minAmount: minAmount,
		processed: make(map[string]struct{}),
		logger:    logger,
	}
}

// Accept validates the receipt and, on success, atomically marks its check
// number as processed. Two submissions racing on the same number can never
// both succeed.
func (v *Validator) Accept(receipt *domain.ExtractedReceipt) (*domain.AcceptedReceipt, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.processed[receipt.CheckNumber]; ok {
		return nil, ErrDuplicateReceipt
	}

	if receipt.Amount < v.minAmount {
		return nil, ErrAmountTooLow
	}

	v.processed[receipt.CheckNumber] = struct{}{}

	v.logger.Info("Receipt accepted",
		zap.String("check_number", receipt.CheckNumber),
		zap.Float64("amount", receipt.Amount),
		zap.Bool("number_synthesized", receipt.NumberSynthesized))

	return &domain.AcceptedReceipt{
		CheckNumber: receipt.CheckNumber,
		Amount:      receipt.Amount,
	}, nil
}

// Processed reports whether a check number has already been accepted.
func (v *Validator) Processed(checkNumber string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	_, ok := v.processed[checkNumber]
	return ok
}
