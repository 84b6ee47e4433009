package forecast

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func monthlyRentEvents(start time.Time, months int, amount decimal.Decimal) []Event {
	var out []Event
	cursor := start
	for i := 0; i < months; i++ {
		out = append(out, Event{
			Date:                  cursor,
			Description:           "Landlord Rent",
			NormalizedDescription: NormalizeDescription("Landlord Rent"),
			Amount:                amount,
			Category:              CategoryRent,
			Type:                  EventTypeHistorical,
		})
		cursor = cursor.AddDate(0, 1, 0)
	}
	return out
}

func TestDetectRecurringTemplatesMonthlyRent(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	events := monthlyRentEvents(start, 8, decimal.NewFromInt(-1500))
	h := BuildHistory(events, decimal.NewFromInt(5000))

	asOf := start.AddDate(0, 8, 0)
	templates := DetectRecurringTemplates(h, asOf)

	require.NotEmpty(t, templates)
	var rent *RecurringTemplate
	for i := range templates {
		if templates[i].Category == CategoryRent {
			rent = &templates[i]
		}
	}
	require.NotNil(t, rent)
	assert.Equal(t, PatternMonthly, rent.Pattern)
	assert.Equal(t, "expense", rent.Type)
}

func TestDetectRecurringTemplatesRejectsInconsistentIntervals(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	events := []Event{
		{Date: start, Description: "Sporadic Vendor", NormalizedDescription: "sporadic vendor", Amount: decimal.NewFromInt(-40), Category: CategoryShopping},
		{Date: start.AddDate(0, 0, 3), Description: "Sporadic Vendor", NormalizedDescription: "sporadic vendor", Amount: decimal.NewFromInt(-40), Category: CategoryShopping},
		{Date: start.AddDate(0, 0, 97), Description: "Sporadic Vendor", NormalizedDescription: "sporadic vendor", Amount: decimal.NewFromInt(-40), Category: CategoryShopping},
	}
	h := BuildHistory(events, decimal.NewFromInt(1000))
	templates := DetectRecurringTemplates(h, start.AddDate(0, 0, 100))

	for _, tmpl := range templates {
		assert.NotEqual(t, "sporadic vendor", tmpl.NormalizedDescription)
	}
}

func TestProjectRecurringAppliesRentEscalation(t *testing.T) {
	lastDate := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	template := RecurringTemplate{
		NormalizedDescription: "landlord rent",
		Description:           "Landlord Rent",
		Category:               CategoryRent,
		Pattern:                PatternMonthly,
		Amount:                 decimal.NewFromInt(-1500),
		LastAmount:             decimal.NewFromInt(-1500),
		DayMode:                MonthDay{Day: 1, Set: true},
		LastDate:               lastDate,
		Type:                   "expense",
		Confidence:             1.0,
		Occurrences:            12,
	}

	startDate := lastDate.AddDate(1, 1, 0) // over a year after last_date
	events := ProjectRecurring([]RecurringTemplate{template}, nil, startDate, 30, map[Category]map[time.Month]float64{})

	require.NotEmpty(t, events)
	// Rent should have escalated by (1+0.03)^years relative to the base
	// amount, i.e. strictly more negative in magnitude than -1500.
	for _, e := range events {
		assert.True(t, e.Amount.LessThan(decimal.NewFromInt(-1500)), "expected escalated rent, got %s", e.Amount)
	}
}

func TestProjectRecurringRespectsHorizonContainment(t *testing.T) {
	lastDate := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	template := RecurringTemplate{
		NormalizedDescription: "weekly gym",
		Description:           "Weekly Gym",
		Category:               CategoryEntertainment,
		Pattern:                PatternWeekly,
		Amount:                 decimal.NewFromInt(-20),
		LastDate:               lastDate,
		Type:                   "expense",
	}
	startDate := lastDate.AddDate(0, 0, 1)
	horizon := 14
	events := ProjectRecurring([]RecurringTemplate{template}, nil, startDate, horizon, map[Category]map[time.Month]float64{})

	end := startDate.AddDate(0, 0, horizon)
	for _, e := range events {
		assert.False(t, e.Date.Before(startDate))
		assert.True(t, e.Date.Before(end))
	}
}
