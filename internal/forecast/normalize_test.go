package forecast

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDescription(t *testing.T) {
	cases := map[string]string{
		"STARBUCKS PURCHASE #4421":  "starbucks 4421",
		"Payment - Rent  July!!":    "rent july",
		"  Multiple   Spaces  Here": "multiple spaces here",
	}
	for input, want := range cases {
		assert.Equal(t, want, NormalizeDescription(input), "input=%q", input)
	}
}

func TestIsInternalTransfer(t *testing.T) {
	assert.True(t, IsInternalTransfer(NormalizeDescription("Account Transfer to Savings")))
	assert.True(t, IsInternalTransfer(NormalizeDescription("Online Transfer to checking")))
	assert.False(t, IsInternalTransfer(NormalizeDescription("Payroll Direct Deposit")))
	assert.False(t, IsInternalTransfer(NormalizeDescription("Starbucks Coffee")))
}

func TestNormalizeDropsTransfersAndDedupes(t *testing.T) {
	date := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	transactions := []Transaction{
		{Date: date, Description: "Account Transfer to Savings", Amount: decimal.NewFromInt(-500)},
		{Date: date, Description: "Starbucks Purchase", Amount: decimal.NewFromInt(-5)},
		{Date: date, Description: "Starbucks Purchase", Amount: decimal.NewFromInt(-5)},
		{Date: date, Description: "Starbucks Purchase", Amount: decimal.NewFromInt(-6)},
	}

	events := Normalize(transactions)
	require.Len(t, events, 2)
	assert.Equal(t, "starbucks", events[0].NormalizedDescription)
}

func TestNormalizeTruncatesToDay(t *testing.T) {
	dt := time.Date(2026, 3, 2, 14, 32, 0, 0, time.UTC)
	events := Normalize([]Transaction{{Date: dt, Description: "Groceries", Amount: decimal.NewFromInt(-20)}})
	require.Len(t, events, 1)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), events[0].Date)
}
