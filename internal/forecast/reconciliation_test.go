package forecast

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileSkipsCategoriesWithoutHistory(t *testing.T) {
	history := BuildHistory(nil, decimal.Zero)
	events := []Event{}
	injected, warnings := Reconcile(events, history, day(0), 30)
	assert.Empty(t, injected)
	assert.Empty(t, warnings)
}

func TestReconcileInjectsWhenUnderTarget(t *testing.T) {
	start := day(-180)
	var historyEvents []Event
	for m := 0; m < 6; m++ {
		historyEvents = append(historyEvents, Event{
			Date:        start.AddDate(0, m, 0),
			Description: "Safeway",
			Amount:      decimal.NewFromInt(-400),
			Category:    CategoryGroceries,
			Type:        EventTypeHistorical,
		})
	}
	history := BuildHistory(historyEvents, decimal.NewFromInt(2000))
	history.LastDate = start.AddDate(0, 5, 0)

	// Forecast events badly under-represent groceries relative to history.
	forecast := []Event{
		{Date: day(1), Amount: decimal.NewFromInt(-20), Category: CategoryGroceries, Type: EventTypeForecast, Source: SourceBehavior},
	}

	injected, _ := Reconcile(forecast, history, day(0), 30)

	total := decimal.Zero
	for _, e := range forecast {
		total = total.Add(e.Amount)
	}
	for _, e := range injected {
		total = total.Add(e.Amount)
	}
	assert.True(t, total.IsNegative(), "reconciliation should keep groceries net negative, got %s", total)
}

func TestReconcileZeroesWrongSignEvents(t *testing.T) {
	start := day(-180)
	var historyEvents []Event
	for m := 0; m < 6; m++ {
		historyEvents = append(historyEvents, Event{
			Date:        start.AddDate(0, m, 0),
			Amount:      decimal.NewFromInt(3000),
			Category:    CategoryIncome,
			Type:        EventTypeHistorical,
		})
	}
	history := BuildHistory(historyEvents, decimal.NewFromInt(2000))
	history.LastDate = start.AddDate(0, 5, 0)

	forecast := []Event{
		{Date: day(1), Amount: decimal.NewFromInt(-500), Category: CategoryIncome, Type: EventTypeForecast, Source: SourceBehavior},
	}
	_, _ = Reconcile(forecast, history, day(0), 30)
	assert.True(t, forecast[0].Amount.GreaterThanOrEqual(decimal.Zero), "wrong-sign income forecast event should be zeroed, got %s", forecast[0].Amount)
}

func TestTargetTotalMonotonicWithHistory(t *testing.T) {
	start := day(-180)
	low := []Event{
		{Date: start, Amount: decimal.NewFromInt(-100)},
		{Date: start.AddDate(0, 1, 0), Amount: decimal.NewFromInt(-100)},
	}
	high := []Event{
		{Date: start, Amount: decimal.NewFromInt(-500)},
		{Date: start.AddDate(0, 1, 0), Amount: decimal.NewFromInt(-500)},
	}
	lowTarget := targetTotal(low, start.AddDate(0, 1, 0), 30)
	highTarget := targetTotal(high, start.AddDate(0, 1, 0), 30)
	require.True(t, highTarget < lowTarget, "higher-magnitude history should produce a larger-magnitude (more negative) target")
}
