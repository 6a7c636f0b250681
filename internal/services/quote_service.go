package services

import (
	"log"

	"github.com/shopspring/decimal"
)

// QuoteService exposes the fee calculator for pre-checkout estimates. No
// persistence, no idempotency key, no splits.
type QuoteService struct {
	calculator *CalculationService
}

func NewQuoteService() *QuoteService {
	return &QuoteService{
		calculator: NewCalculationService(),
	}
}

// Quote returns the fee breakdown a confirmation with the same inputs would
// produce.
func (s *QuoteService) Quote(amount decimal.Decimal, paymentMethod string, installments int) (*CalculationResult, error) {
	result, err := s.calculator.Calculate(amount, paymentMethod, installments)
	if err != nil {
		return nil, err
	}

	log.Printf("[QUOTE] %s x%d: gross=%s fee=%s net=%s",
		paymentMethod, installments,
		result.GrossAmount.StringFixed(2), result.PlatformFeeAmount.StringFixed(2), result.NetAmount.StringFixed(2))
	return result, nil
}
