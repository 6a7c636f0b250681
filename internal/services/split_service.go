package services

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// SplitInput is one recipient/percent pair of a revenue split.
type SplitInput struct {
	RecipientID string
	Role        string
	Percent     int
}

// SplitResult is a SplitInput with its allocated share of the net amount.
type SplitResult struct {
	RecipientID string
	Role        string
	Percent     int
	Amount      decimal.Decimal
}

// SplitService divides a net amount across recipients. It is pure and holds
// no state.
type SplitService struct{}

func NewSplitService() *SplitService {
	return &SplitService{}
}

// Allocate computes each recipient's share of netAmount, preserving input
// order. Raw shares are truncated down to 2 decimals; the cumulative
// truncation remainder, if any, goes entirely to the first split holding the
// highest percent. The returned amounts always sum exactly to netAmount.
//
// The truncate-down-then-assign-remainder policy is deliberately asymmetric
// with the half-up fee rounding; downstream reconciliation depends on it.
func (s *SplitService) Allocate(netAmount decimal.Decimal, splits []SplitInput) ([]SplitResult, error) {
	if len(splits) == 0 {
		return nil, ErrEmptySplit
	}

	totalPercent := 0
	for _, split := range splits {
		if split.Percent <= 0 || split.Percent > 100 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidSplitPercentage, split.Percent)
		}
		totalPercent += split.Percent
	}
	if totalPercent != 100 {
		return nil, fmt.Errorf("%w: percentages must sum to 100, got %d", ErrInvalidSplitPercentage, totalPercent)
	}

	results := make([]SplitResult, 0, len(splits))
	distributed := decimal.Zero

	for _, split := range splits {
		raw := netAmount.Mul(decimal.NewFromInt(int64(split.Percent))).Div(oneHundred)
		amount := raw.Truncate(2)

		results = append(results, SplitResult{
			RecipientID: split.RecipientID,
			Role:        split.Role,
			Percent:     split.Percent,
			Amount:      amount,
		})
		distributed = distributed.Add(amount)
	}

	remainder := netAmount.Sub(distributed).Round(2)
	if remainder.IsPositive() {
		// First split at the maximum percent wins the tie.
		target := 0
		for i := 1; i < len(results); i++ {
			if results[i].Percent > results[target].Percent {
				target = i
			}
		}
		results[target].Amount = results[target].Amount.Add(remainder)
	}

	return results, nil
}
