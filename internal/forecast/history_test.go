package forecast

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(offset int) time.Time {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, offset)
}

func TestBuildHistorySortsAndFillsGaps(t *testing.T) {
	events := []Event{
		{Date: day(5), Amount: decimal.NewFromInt(-10), Category: CategoryGroceries},
		{Date: day(0), Amount: decimal.NewFromInt(-20), Category: CategoryGroceries},
	}
	h := BuildHistory(events, decimal.NewFromInt(1000))

	require.True(t, h.HasData)
	assert.True(t, h.Ledger[0].Date.Equal(day(0)))
	assert.True(t, h.Ledger[1].Date.Equal(day(5)))

	series := h.CategorySeries[CategoryGroceries]
	require.Len(t, series, 6) // days 0..5 inclusive, gaps zero-filled
	assert.True(t, series[1].Amount.IsZero())
	assert.True(t, series[5].Amount.Equal(decimal.NewFromInt(-10)))
}

func TestHistoryRunningBalance(t *testing.T) {
	events := []Event{
		{Date: day(0), Amount: decimal.NewFromInt(-100)},
		{Date: day(1), Amount: decimal.NewFromInt(50)},
	}
	h := BuildHistory(events, decimal.NewFromInt(1000))
	assert.True(t, h.RunningBalance().Equal(decimal.NewFromInt(950)))
}

func TestBuildHistoryEmpty(t *testing.T) {
	h := BuildHistory(nil, decimal.NewFromInt(500))
	assert.False(t, h.HasData)
	assert.Empty(t, h.CategorySeries)
}
