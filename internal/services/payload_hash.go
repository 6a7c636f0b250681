package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// paymentFingerprint digests the canonical structural form of a confirmation
// request. Amounts are rendered as fixed 2-decimal strings so that logically
// equal requests hash identically regardless of how the caller spelled the
// number, and encoding/json emits map keys sorted with no whitespace, which
// makes the encoding stable across transports.
func paymentFingerprint(amount decimal.Decimal, currency, paymentMethod string, installments int, splits []SplitInput) (string, error) {
	splitPayloads := make([]map[string]any, 0, len(splits))
	for _, split := range splits {
		splitPayloads = append(splitPayloads, map[string]any{
			"recipient_id": split.RecipientID,
			"role":         split.Role,
			"percent":      split.Percent,
		})
	}

	canonical := map[string]any{
		"amount":         amount.StringFixed(2),
		"currency":       currency,
		"payment_method": paymentMethod,
		"installments":   installments,
		"splits":         splitPayloads,
	}

	raw, err := json.Marshal(canonical)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
