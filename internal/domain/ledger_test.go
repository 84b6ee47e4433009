package domain

import (
	"testing"

	"github.com/dafibh/fortuna/fortuna-backend/internal/forecast"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestLedgerCarriesForecastInputsUnchanged(t *testing.T) {
	l := Ledger{
		Name:           "Checking",
		OpeningBalance: decimal.NewFromInt(1000),
		Transactions: []forecast.Transaction{
			{Description: "Payroll", Amount: decimal.NewFromInt(2500)},
		},
	}
	assert.Equal(t, "Checking", l.Name)
	assert.Len(t, l.Transactions, 1)
	assert.True(t, l.OpeningBalance.Equal(decimal.NewFromInt(1000)))
}

func TestCreateLedgerInputDefaultsToZeroBalance(t *testing.T) {
	var input CreateLedgerInput
	assert.True(t, input.OpeningBalance.IsZero())
}
