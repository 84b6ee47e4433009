package forecast

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeBalanceContinuity(t *testing.T) {
	history := BuildHistory([]Event{
		{Date: day(-2), Amount: decimal.NewFromInt(-50), Category: CategoryGroceries, Type: EventTypeHistorical},
	}, decimal.NewFromInt(1000))

	forecastEvents := []Event{
		{Date: day(1), Amount: decimal.NewFromInt(-100), Category: CategoryGroceries, Type: EventTypeForecast, Source: SourceRecurring},
		{Date: day(5), Amount: decimal.NewFromInt(2500), Category: CategoryIncome, Type: EventTypeForecast, Source: SourceRecurring},
	}

	result := Compose(MethodRecurring, history, day(0), 30, nil, forecastEvents, nil, nil, nil, nil, nil)

	total := history.OpeningBalance
	for _, e := range result.Transactions {
		total = total.Add(e.Amount)
	}
	require.NotEmpty(t, result.Forecast)
	last := result.Forecast[len(result.Forecast)-1]
	assert.True(t, total.Equal(last.Balance), "expected %s got %s", total, last.Balance)
}

func TestComposeCalendarIsAlways30Days(t *testing.T) {
	history := BuildHistory(nil, decimal.NewFromInt(500))
	result := Compose(MethodBaseline, history, day(0), 7, nil, nil, nil, nil, nil, nil, nil)
	assert.Len(t, result.Calendar, 30)
}

func TestComposeCategoryBreakdownSplitsSigns(t *testing.T) {
	history := BuildHistory(nil, decimal.NewFromInt(0))
	events := []Event{
		{Date: day(1), Amount: decimal.NewFromInt(-30), Category: CategoryDining, Type: EventTypeForecast},
		{Date: day(2), Amount: decimal.NewFromInt(2000), Category: CategoryIncome, Type: EventTypeForecast},
	}
	result := Compose(MethodRecurring, history, day(0), 30, events, nil, nil, nil, nil, nil, nil)

	require.Len(t, result.Summary.CategoryBreakdown.Expenses, 1)
	require.Len(t, result.Summary.CategoryBreakdown.Income, 1)
	assert.True(t, result.Summary.CategoryBreakdown.Expenses[0].Amount.IsPositive(), "expense breakdown should hold positive magnitudes")
}

func TestDominantAliasLabelFallsBackToCategoryName(t *testing.T) {
	history := BuildHistory([]Event{
		{Date: day(0), NormalizedDescription: "vendor a", Category: CategoryShopping},
		{Date: day(1), NormalizedDescription: "vendor b", Category: CategoryShopping},
		{Date: day(2), NormalizedDescription: "vendor c", Category: CategoryShopping},
	}, decimal.Zero)

	label := dominantAliasLabel(history, CategoryShopping, "")
	assert.Equal(t, string(CategoryShopping), label)
}

func TestDominantAliasLabelUsesMajorityDescription(t *testing.T) {
	history := BuildHistory([]Event{
		{Date: day(0), NormalizedDescription: "netflix", Category: CategorySubscriptions},
		{Date: day(30), NormalizedDescription: "netflix", Category: CategorySubscriptions},
		{Date: day(60), NormalizedDescription: "netflix", Category: CategorySubscriptions},
		{Date: day(90), NormalizedDescription: "other vendor", Category: CategorySubscriptions},
	}, decimal.Zero)

	label := dominantAliasLabel(history, CategorySubscriptions, "")
	assert.Equal(t, "netflix", label)
}
