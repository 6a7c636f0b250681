package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSplitService_Allocate(t *testing.T) {
	service := NewSplitService()

	t.Run("single recipient gets everything", func(t *testing.T) {
		results, err := service.Allocate(decimal.RequireFromString("100.00"), []SplitInput{
			{RecipientID: "producer_1", Role: "producer", Percent: 100},
		})
		assert.NoError(t, err)
		assert.Len(t, results, 1)
		assert.Equal(t, "100.00", results[0].Amount.StringFixed(2))
	})

	t.Run("empty split list", func(t *testing.T) {
		_, err := service.Allocate(decimal.RequireFromString("100.00"), nil)
		assert.ErrorIs(t, err, ErrEmptySplit)
	})

	t.Run("percent out of range", func(t *testing.T) {
		_, err := service.Allocate(decimal.RequireFromString("100.00"), []SplitInput{
			{RecipientID: "producer_1", Role: "producer", Percent: 0},
			{RecipientID: "affiliate_1", Role: "affiliate", Percent: 100},
		})
		assert.ErrorIs(t, err, ErrInvalidSplitPercentage)
	})

	t.Run("percents must sum to 100", func(t *testing.T) {
		_, err := service.Allocate(decimal.RequireFromString("100.00"), []SplitInput{
			{RecipientID: "producer_1", Role: "producer", Percent: 60},
			{RecipientID: "affiliate_1", Role: "affiliate", Percent: 30},
		})
		assert.ErrorIs(t, err, ErrInvalidSplitPercentage)
	})

	t.Run("shares truncate down and preserve order", func(t *testing.T) {
		// 91.01: 70% -> 63.707 -> 63.70, 30% -> 27.303 -> 27.30,
		// remainder 0.01 goes to the 70% split.
		results, err := service.Allocate(decimal.RequireFromString("91.01"), []SplitInput{
			{RecipientID: "producer_1", Role: "producer", Percent: 70},
			{RecipientID: "affiliate_1", Role: "affiliate", Percent: 30},
		})
		assert.NoError(t, err)
		assert.Len(t, results, 2)
		assert.Equal(t, "producer_1", results[0].RecipientID)
		assert.Equal(t, "63.71", results[0].Amount.StringFixed(2))
		assert.Equal(t, "affiliate_1", results[1].RecipientID)
		assert.Equal(t, "27.30", results[1].Amount.StringFixed(2))
	})

	t.Run("remainder goes to highest percent", func(t *testing.T) {
		// 10.01: 7.007 -> 7.00 and 3.003 -> 3.00, remainder 0.01.
		results, err := service.Allocate(decimal.RequireFromString("10.01"), []SplitInput{
			{RecipientID: "producer_1", Role: "producer", Percent: 70},
			{RecipientID: "affiliate_1", Role: "affiliate", Percent: 30},
		})
		assert.NoError(t, err)
		assert.Equal(t, "7.01", results[0].Amount.StringFixed(2))
		assert.Equal(t, "3.00", results[1].Amount.StringFixed(2))
	})

	t.Run("tie break picks first split in input order", func(t *testing.T) {
		results, err := service.Allocate(decimal.RequireFromString("0.03"), []SplitInput{
			{RecipientID: "affiliate_1", Role: "affiliate", Percent: 50},
			{RecipientID: "producer_1", Role: "producer", Percent: 50},
		})
		assert.NoError(t, err)
		// 0.015 truncates to 0.01 each, remainder 0.01 lands on the first.
		assert.Equal(t, "0.02", results[0].Amount.StringFixed(2))
		assert.Equal(t, "0.01", results[1].Amount.StringFixed(2))
	})

	t.Run("amounts always sum to net", func(t *testing.T) {
		nets := []string{"0.01", "0.10", "10.01", "91.01", "33.33", "12345.67", "999999.99"}
		splits := []SplitInput{
			{RecipientID: "a", Role: "producer", Percent: 33},
			{RecipientID: "b", Role: "affiliate", Percent: 33},
			{RecipientID: "c", Role: "affiliate", Percent: 34},
		}

		for _, net := range nets {
			netAmount := decimal.RequireFromString(net)
			results, err := service.Allocate(netAmount, splits)
			assert.NoError(t, err)

			total := decimal.Zero
			for _, result := range results {
				total = total.Add(result.Amount)
			}
			assert.True(t, total.Equal(netAmount), "net %s allocated %s", net, total.StringFixed(2))
		}
	})
}
