package forecast

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Sanitize walks the composed result and normalizes numerical
// degeneracies and date representations for JSON output (spec.md §4.10):
// NaN/Inf amounts become 0, zero-value dates become nil, all dates
// truncate to the day.
func Sanitize(result Result) Result {
	result.Summary.OpeningBalance = sanitizeDecimal(result.Summary.OpeningBalance)
	result.Summary.FinalBalance = sanitizeDecimal(result.Summary.FinalBalance)
	result.Summary.NetChange = sanitizeDecimal(result.Summary.NetChange)
	result.Summary.MinimumBalance = sanitizeDecimal(result.Summary.MinimumBalance)
	result.Summary.MinimumBalanceDate = sanitizeDateRef(result.Summary.MinimumBalanceDate)
	result.Summary.StartDate = truncateDay(result.Summary.StartDate)

	for i := range result.Summary.CategoryBreakdown.Expenses {
		result.Summary.CategoryBreakdown.Expenses[i].Amount = sanitizeDecimal(result.Summary.CategoryBreakdown.Expenses[i].Amount)
	}
	for i := range result.Summary.CategoryBreakdown.Income {
		result.Summary.CategoryBreakdown.Income[i].Amount = sanitizeDecimal(result.Summary.CategoryBreakdown.Income[i].Amount)
	}

	for i := range result.Forecast {
		result.Forecast[i].Date = sanitizeDate(result.Forecast[i].Date)
		result.Forecast[i].Amount = sanitizeDecimal(result.Forecast[i].Amount)
		result.Forecast[i].Balance = sanitizeDecimal(result.Forecast[i].Balance)
	}

	for i := range result.Transactions {
		result.Transactions[i].Date = sanitizeDate(result.Transactions[i].Date)
		result.Transactions[i].Amount = sanitizeDecimal(result.Transactions[i].Amount)
	}

	for i := range result.Calendar {
		result.Calendar[i].Date = sanitizeDate(result.Calendar[i].Date)
		result.Calendar[i].Net = sanitizeDecimal(result.Calendar[i].Net)
		result.Calendar[i].Income = sanitizeDecimal(result.Calendar[i].Income)
		result.Calendar[i].Expenses = sanitizeDecimal(result.Calendar[i].Expenses)
		result.Calendar[i].Balance = sanitizeDecimal(result.Calendar[i].Balance)
		for j := range result.Calendar[i].TopExpenses {
			result.Calendar[i].TopExpenses[j].Amount = sanitizeDecimal(result.Calendar[i].TopExpenses[j].Amount)
		}
	}

	for i := range result.Habits {
		result.Habits[i].AverageAmount = sanitizeDecimal(result.Habits[i].AverageAmount)
		result.Habits[i].NextOccurrence = sanitizeDateRef(result.Habits[i].NextOccurrence)
	}

	return result
}

// sanitizeDecimal converts a decimal whose float64 value is NaN/Inf back
// to zero. The shopspring/decimal type cannot itself represent NaN/Inf
// (decimal.NewFromFloat panics on them), so in practice this catches
// magnitudes too large for float64, which convert to ±Inf.
func sanitizeDecimal(d decimal.Decimal) decimal.Decimal {
	f, _ := d.Float64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return d
}

func sanitizeDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return truncateDay(t)
}

func sanitizeDateRef(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	d := truncateDay(*t)
	return &d
}
