package forecast

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func buildDailySeries(start time.Time, days int, amount func(i int) float64) []DailyPoint {
	out := make([]DailyPoint, days)
	for i := 0; i < days; i++ {
		out[i] = DailyPoint{Date: start.AddDate(0, 0, i), Amount: decimal.NewFromFloat(amount(i))}
	}
	return out
}

func TestTrendEligibleRequiresMinimumPoints(t *testing.T) {
	series := buildDailySeries(day(0), 10, func(i int) float64 { return -5 })
	assert.False(t, trendEligible(series, 30))
}

func TestTrendEligibleAcceptsSustainedExpense(t *testing.T) {
	series := buildDailySeries(day(0), 200, func(i int) float64 {
		if i%4 == 0 {
			return -30
		}
		return 0
	})
	assert.True(t, trendEligible(series, 30))
}

func TestLeastSquaresTrendFlat(t *testing.T) {
	series := buildDailySeries(day(0), 50, func(i int) float64 { return -10 })
	level, slope := leastSquaresTrend(series)
	assert.InDelta(t, -10, level, 0.5)
	assert.InDelta(t, 0, slope, 0.1)
}

func TestProjectTrendSkipsIneligibleCategories(t *testing.T) {
	events := []Event{
		{Date: day(0), Amount: decimal.NewFromInt(-5), Category: CategoryShopping, Type: EventTypeHistorical},
	}
	h := BuildHistory(events, decimal.NewFromInt(100))
	out := ProjectTrend(h, nil, day(1), 30, prophetStyleModel{}, map[Category]map[time.Month]float64{})
	assert.Empty(t, out)
}

func TestProjectTrendProducesNegativeEventsForExpenseCategory(t *testing.T) {
	start := day(-200)
	var events []Event
	for i := 0; i < 200; i++ {
		d := start.AddDate(0, 0, i)
		if i%3 == 0 {
			events = append(events, Event{Date: d, Amount: decimal.NewFromInt(-40), Category: CategoryDining, Description: "Local Diner", Type: EventTypeHistorical})
		}
	}
	h := BuildHistory(events, decimal.NewFromInt(1000))
	out := ProjectTrend(h, nil, day(1), 30, prophetStyleModel{}, map[Category]map[time.Month]float64{})
	for _, e := range out {
		assert.True(t, e.Amount.IsNegative())
		assert.Equal(t, SourceProphet, e.Source)
	}
}

func TestLinearModelForecastShapeMatchesHorizon(t *testing.T) {
	series := buildDailySeries(day(0), 40, func(i int) float64 { return -float64(i) })
	values, ok := linearModel{}.Forecast(series, day(40), 10, TrendParams{})
	assert.True(t, ok)
	assert.Len(t, values, 10)
}
