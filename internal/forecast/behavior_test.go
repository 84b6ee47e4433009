package forecast

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weeklyDiningEvents(start time.Time, weeks int) []Event {
	var out []Event
	for i := 0; i < weeks; i++ {
		out = append(out, Event{
			Date:                  start.AddDate(0, 0, i*7),
			Description:           "Local Diner",
			NormalizedDescription: "local diner",
			Amount:                decimal.NewFromInt(-35),
			Category:              CategoryDining,
			Type:                  EventTypeHistorical,
		})
	}
	return out
}

func TestProjectBehaviorEmitsWeeklyDining(t *testing.T) {
	start := day(-90)
	events := weeklyDiningEvents(start, 13)
	h := BuildHistory(events, decimal.NewFromInt(500))

	out := ProjectBehavior(h, nil, day(1), 30, map[Category]map[time.Month]float64{})

	require.NotEmpty(t, out)
	for _, e := range out {
		assert.Equal(t, CategoryDining, e.Category)
		assert.Equal(t, SourceBehavior, e.Source)
		assert.True(t, e.Amount.IsNegative())
	}
}

func TestProjectBehaviorSkipsCoveredCategories(t *testing.T) {
	start := day(-90)
	events := weeklyDiningEvents(start, 13)
	h := BuildHistory(events, decimal.NewFromInt(500))

	covered := []RecurringTemplate{{Category: CategoryDining}}
	out := ProjectBehavior(h, covered, day(1), 30, map[Category]map[time.Month]float64{})
	assert.Empty(t, out)
}

func TestProjectBehaviorSkipsExcludedCategories(t *testing.T) {
	start := day(-90)
	var events []Event
	for i := 0; i < 5; i++ {
		events = append(events, Event{
			Date:     start.AddDate(0, 0, i*14),
			Amount:   decimal.NewFromInt(-200),
			Category: CategoryHealthcare,
			Type:     EventTypeHistorical,
		})
	}
	h := BuildHistory(events, decimal.NewFromInt(500))
	out := ProjectBehavior(h, nil, day(1), 30, map[Category]map[time.Month]float64{})
	assert.Empty(t, out)
}

func TestProjectBehaviorReturnsNilOnLowSupport(t *testing.T) {
	events := []Event{
		{Date: day(-60), Amount: decimal.NewFromInt(-20), Category: CategoryShopping, Type: EventTypeHistorical},
	}
	h := BuildHistory(events, decimal.NewFromInt(500))
	out := ProjectBehavior(h, nil, day(1), 30, map[Category]map[time.Month]float64{})
	assert.Empty(t, out)
}

func TestCadenceFromMedianInterval(t *testing.T) {
	assert.Equal(t, PatternWeekly, cadenceFromMedianInterval(6))
	assert.Equal(t, PatternBiweekly, cadenceFromMedianInterval(14))
	assert.Equal(t, PatternMonthly, cadenceFromMedianInterval(30))
}
