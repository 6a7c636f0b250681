package services

import (
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPaymentFingerprint(t *testing.T) {
	splits := []SplitInput{
		{RecipientID: "producer_1", Role: "producer", Percent: 70},
		{RecipientID: "affiliate_1", Role: "affiliate", Percent: 30},
	}

	t.Run("is a lowercase sha256 hex digest", func(t *testing.T) {
		digest, err := paymentFingerprint(decimal.RequireFromString("100.00"), "BRL", "pix", 1, splits)
		assert.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), digest)
	})

	t.Run("identical requests hash identically", func(t *testing.T) {
		first, err := paymentFingerprint(decimal.RequireFromString("100.00"), "BRL", "card", 3, splits)
		assert.NoError(t, err)
		second, err := paymentFingerprint(decimal.RequireFromString("100.00"), "BRL", "card", 3, splits)
		assert.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("amount spelling does not matter", func(t *testing.T) {
		first, err := paymentFingerprint(decimal.RequireFromString("100.0"), "BRL", "pix", 1, splits)
		assert.NoError(t, err)
		second, err := paymentFingerprint(decimal.RequireFromString("100.00"), "BRL", "pix", 1, splits)
		assert.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("every field is significant", func(t *testing.T) {
		base, err := paymentFingerprint(decimal.RequireFromString("100.00"), "BRL", "card", 3, splits)
		assert.NoError(t, err)

		changedAmount, _ := paymentFingerprint(decimal.RequireFromString("100.01"), "BRL", "card", 3, splits)
		assert.NotEqual(t, base, changedAmount)

		changedMethod, _ := paymentFingerprint(decimal.RequireFromString("100.00"), "BRL", "pix", 3, splits)
		assert.NotEqual(t, base, changedMethod)

		changedInstallments, _ := paymentFingerprint(decimal.RequireFromString("100.00"), "BRL", "card", 4, splits)
		assert.NotEqual(t, base, changedInstallments)

		changedSplits, _ := paymentFingerprint(decimal.RequireFromString("100.00"), "BRL", "card", 3, []SplitInput{
			{RecipientID: "producer_1", Role: "producer", Percent: 60},
			{RecipientID: "affiliate_1", Role: "affiliate", Percent: 40},
		})
		assert.NotEqual(t, base, changedSplits)
	})

	t.Run("split order is significant", func(t *testing.T) {
		reversed := []SplitInput{splits[1], splits[0]}

		base, err := paymentFingerprint(decimal.RequireFromString("100.00"), "BRL", "card", 3, splits)
		assert.NoError(t, err)
		swapped, err := paymentFingerprint(decimal.RequireFromString("100.00"), "BRL", "card", 3, reversed)
		assert.NoError(t, err)
		assert.NotEqual(t, base, swapped)
	})
}
