package forecast

import (
	"time"

	"github.com/shopspring/decimal"
)

// Seasonality clamp bounds (spec.md §4.3).
var (
	expenseSeasonalityBounds = [2]float64{0.65, 1.5}
	incomeSeasonalityBounds  = [2]float64{0.7, 1.8}
)

// SeasonalityFactors computes, for each (category, calendar-month), the
// ratio of that month's mean absolute amount to the category's overall
// mean absolute amount (spec.md §4.3, glossary "Seasonality factor").
// Extended-history categories bypass seasonal adjustment entirely (factor
// forced to 1.0).
func SeasonalityFactors(categorySeries map[Category][]DailyPoint) map[Category]map[time.Month]float64 {
	out := make(map[Category]map[time.Month]float64, len(categorySeries))

	for category, series := range categorySeries {
		monthly := make(map[time.Month]float64)

		if extendedHistoryCategories[category] {
			for m := time.January; m <= time.December; m++ {
				monthly[m] = 1.0
			}
			out[category] = monthly
			continue
		}

		overallSum := 0.0
		overallCount := 0
		monthSum := make(map[time.Month]float64)
		monthCount := make(map[time.Month]int)

		for _, point := range series {
			if point.Amount.IsZero() {
				continue
			}
			mag, _ := absDecimal(point.Amount).Float64()
			overallSum += mag
			overallCount++
			monthSum[point.Date.Month()] += mag
			monthCount[point.Date.Month()]++
		}

		overallMean := 0.0
		if overallCount > 0 {
			overallMean = overallSum / float64(overallCount)
		}

		for m := time.January; m <= time.December; m++ {
			if monthCount[m] == 0 || overallMean == 0 {
				monthly[m] = 1.0
				continue
			}
			monthly[m] = (monthSum[m] / float64(monthCount[m])) / overallMean
		}

		out[category] = monthly
	}

	return out
}

// ApplySeasonality clamps and applies the seasonality factor for a
// category/month to an amount, preserving sign.
func ApplySeasonality(amount decimal.Decimal, category Category, month time.Month, factors map[Category]map[time.Month]float64) decimal.Decimal {
	monthly, ok := factors[category]
	if !ok {
		return amount
	}
	factor, ok := monthly[month]
	if !ok {
		return amount
	}

	bounds := expenseSeasonalityBounds
	if category == CategoryIncome {
		bounds = incomeSeasonalityBounds
	}
	if factor < bounds[0] {
		factor = bounds[0]
	}
	if factor > bounds[1] {
		factor = bounds[1]
	}

	return amount.Mul(decimal.NewFromFloat(factor))
}
