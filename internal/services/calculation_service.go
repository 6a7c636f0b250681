package services

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pagsplit/backend/internal/models"
)

// Platform fee rates. Card purchases in a single installment pay a flat rate;
// each extra installment adds a fixed step on top of the installment base.
var (
	cardSingleRate          = decimal.RequireFromString("0.0399")
	cardInstallmentBaseRate = decimal.RequireFromString("0.0499")
	cardInstallmentStepRate = decimal.RequireFromString("0.02")
)

// CalculationResult carries the fee breakdown for a gross amount. All three
// amounts are quantized to 2 decimal places.
type CalculationResult struct {
	GrossAmount       decimal.Decimal `json:"gross_amount"`
	PlatformFeeAmount decimal.Decimal `json:"platform_fee_amount"`
	NetAmount         decimal.Decimal `json:"net_amount"`
}

// CalculationService computes platform fees. It is pure and holds no state.
type CalculationService struct{}

func NewCalculationService() *CalculationService {
	return &CalculationService{}
}

// Calculate resolves the fee rate for the payment method and installment
// count, then derives fee and net. Fee and net are rounded half-up to 2
// decimals in independent steps; net is never the unrounded subtraction.
func (s *CalculationService) Calculate(amount decimal.Decimal, paymentMethod string, installments int) (*CalculationResult, error) {
	rate, err := s.feeRate(paymentMethod, installments)
	if err != nil {
		return nil, err
	}

	// decimal.Round is half away from zero, which equals half-up for the
	// strictly positive amounts accepted here.
	fee := amount.Mul(rate).Round(2)
	net := amount.Sub(fee).Round(2)

	return &CalculationResult{
		GrossAmount:       amount,
		PlatformFeeAmount: fee,
		NetAmount:         net,
	}, nil
}

func (s *CalculationService) feeRate(paymentMethod string, installments int) (decimal.Decimal, error) {
	switch strings.ToLower(paymentMethod) {
	case models.PaymentMethodPix:
		if installments != 1 {
			return decimal.Zero, fmt.Errorf("%w: pix does not support installments", ErrInvalidInstallments)
		}
		return decimal.Zero, nil

	case models.PaymentMethodCard:
		if installments < 1 || installments > 12 {
			return decimal.Zero, fmt.Errorf("%w: card installments must be between 1 and 12", ErrInvalidInstallments)
		}
		if installments == 1 {
			return cardSingleRate, nil
		}
		extra := decimal.NewFromInt(int64(installments - 1))
		return cardInstallmentBaseRate.Add(cardInstallmentStepRate.Mul(extra)), nil
	}

	return decimal.Zero, fmt.Errorf("%w: %s", ErrUnsupportedPaymentMethod, paymentMethod)
}
