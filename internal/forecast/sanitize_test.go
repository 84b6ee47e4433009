package forecast

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeDecimalOverflowToInf(t *testing.T) {
	// A decimal cannot hold NaN/Inf; ±1e400 converts to ±Inf as float64.
	posInf := decimal.New(1, 400)
	negInf := decimal.New(-1, 400)
	assert.True(t, sanitizeDecimal(posInf).IsZero())
	assert.True(t, sanitizeDecimal(negInf).IsZero())
	assert.True(t, sanitizeDecimal(decimal.NewFromInt(42)).Equal(decimal.NewFromInt(42)))
}

func TestSanitizeDateTruncatesAndNilsZero(t *testing.T) {
	withTime := time.Date(2026, 4, 1, 13, 45, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), sanitizeDate(withTime))

	var zero time.Time
	assert.Nil(t, sanitizeDateRef(&zero))

	d := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	ref := sanitizeDateRef(&d)
	assert.NotNil(t, ref)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), *ref)
}

func TestSanitizeResultRecursesThroughStructure(t *testing.T) {
	result := Result{
		Summary: Summary{
			OpeningBalance: decimal.New(1, 400),
		},
		Forecast: []DailySummaryEntry{
			{Date: time.Date(2026, 1, 1, 5, 0, 0, 0, time.UTC), Amount: decimal.New(-1, 400), Balance: decimal.NewFromInt(10)},
		},
	}
	sanitized := Sanitize(result)
	assert.True(t, sanitized.Summary.OpeningBalance.IsZero())
	assert.True(t, sanitized.Forecast[0].Amount.IsZero())
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), sanitized.Forecast[0].Date)
}
