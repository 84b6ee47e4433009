package forecast

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ReconciliationRule is one row of the fixed reconciliation table (spec.md
// §4.8).
type ReconciliationRule struct {
	Category       Category
	Polarity       float64 // +1 income, -1 expense
	MinAbs         float64
	SatisfiedRatio float64
	OnlyIncrease   bool
	MaxScale       float64
	IntervalDays   int
	MaxEvents      int
}

// reconciliationTable is the fixed set of categories reconciliation
// touches (spec.md §4.8).
var reconciliationTable = []ReconciliationRule{
	{Category: CategoryIncome, Polarity: 1, MinAbs: 200, SatisfiedRatio: 0.8, OnlyIncrease: false, MaxScale: 2.0, IntervalDays: 14, MaxEvents: 4},
	{Category: CategoryRent, Polarity: -1, MinAbs: 100, SatisfiedRatio: 0.9, OnlyIncrease: true, MaxScale: 1.5, IntervalDays: 30, MaxEvents: 1},
	{Category: CategoryGroceries, Polarity: -1, MinAbs: 50, SatisfiedRatio: 0.75, OnlyIncrease: false, MaxScale: 1.8, IntervalDays: 7, MaxEvents: 4},
	{Category: CategoryDining, Polarity: -1, MinAbs: 30, SatisfiedRatio: 0.7, OnlyIncrease: false, MaxScale: 1.8, IntervalDays: 5, MaxEvents: 6},
	{Category: CategoryBankFee, Polarity: -1, MinAbs: 5, SatisfiedRatio: 0.7, OnlyIncrease: false, MaxScale: 2.0, IntervalDays: 30, MaxEvents: 2},
	{Category: CategoryGas, Polarity: -1, MinAbs: 30, SatisfiedRatio: 0.75, OnlyIncrease: false, MaxScale: 1.8, IntervalDays: 10, MaxEvents: 3},
	{Category: CategoryShopping, Polarity: -1, MinAbs: 30, SatisfiedRatio: 0.7, OnlyIncrease: false, MaxScale: 1.8, IntervalDays: 10, MaxEvents: 4},
	{Category: CategorySubscriptions, Polarity: -1, MinAbs: 10, SatisfiedRatio: 0.9, OnlyIncrease: true, MaxScale: 1.5, IntervalDays: 30, MaxEvents: 2},
	{Category: CategoryHealthcare, Polarity: -1, MinAbs: 20, SatisfiedRatio: 0.7, OnlyIncrease: false, MaxScale: 1.8, IntervalDays: 20, MaxEvents: 2},
	{Category: CategoryOther, Polarity: -1, MinAbs: 20, SatisfiedRatio: 0.7, OnlyIncrease: false, MaxScale: 1.6, IntervalDays: 15, MaxEvents: 3},
}

// monthlyTotals buckets a category's ledger events into calendar-month
// totals, most recent first, limited to the last `months` calendar months
// seen.
func monthlyTotals(events []Event, asOf time.Time, months int) []float64 {
	sums := make(map[string]float64)
	for _, e := range events {
		key := e.Date.Format("2006-01")
		f, _ := e.Amount.Float64()
		sums[key] += f
	}
	keys := make([]string, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	if len(keys) > months {
		keys = keys[:months]
	}
	out := make([]float64, len(keys))
	for i, k := range keys {
		out[i] = sums[k]
	}
	return out
}

func percentileOf(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}

// targetTotal implements spec.md §4.8 step 1: a median across three
// independent estimators (monthly-totals median, recent-window
// extrapolation, median-event-gap extrapolation). It applies no
// percentile skew; targetTotalSkewed adds that on top of it.
func targetTotal(events []Event, asOf time.Time, horizonDays int) float64 {
	months := monthlyTotals(events, asOf, 6)
	monthlyEstimate := median(months) * float64(horizonDays) / 30.0

	cutoff := asOf.AddDate(0, 0, -90)
	recentSum := 0.0
	recentDays := 0.0
	earliest := asOf
	for _, e := range events {
		if e.Date.Before(cutoff) {
			continue
		}
		f, _ := e.Amount.Float64()
		recentSum += f
		if e.Date.Before(earliest) {
			earliest = e.Date
		}
	}
	recentDays = math.Max(1, asOf.Sub(earliest).Hours()/24)
	recentWindowEstimate := recentSum / recentDays * float64(horizonDays)

	sorted := make([]time.Time, 0, len(events))
	for _, e := range events {
		sorted = append(sorted, e.Date)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })
	gapEstimate := monthlyEstimate
	if len(sorted) >= 2 {
		gaps := make([]float64, 0, len(sorted)-1)
		for i := 1; i < len(sorted); i++ {
			gaps = append(gaps, sorted[i].Sub(sorted[i-1]).Hours()/24)
		}
		medianGap := math.Max(1, median(gaps))
		amounts := make([]float64, len(events))
		for i, e := range events {
			amounts[i], _ = e.Amount.Float64()
		}
		perEvent := median(amounts)
		events_in_horizon := float64(horizonDays) / medianGap
		gapEstimate = perEvent * events_in_horizon
	}

	estimates := []float64{monthlyEstimate, recentWindowEstimate, gapEstimate}
	sort.Float64s(estimates)
	return estimates[1]
}

// targetTotalSkewed applies the percentile skew: instead of a flat median
// across calendar-month totals, income targets lean toward the 70th
// percentile month and expense targets toward the 30th percentile month,
// and the result is the mean of that skewed figure and targetTotal's
// median-of-three estimate.
func targetTotalSkewed(events []Event, asOf time.Time, horizonDays int, polarity float64) float64 {
	months := monthlyTotals(events, asOf, 6)
	if len(months) == 0 {
		return targetTotal(events, asOf, horizonDays)
	}
	p := 0.3
	if polarity > 0 {
		p = 0.7
	}
	skewedMonthly := percentileOf(months, p) * float64(horizonDays) / 30.0

	base := targetTotal(events, asOf, horizonDays)
	estimates := []float64{skewedMonthly, base}
	sort.Float64s(estimates)
	return (estimates[0] + estimates[1]) / 2
}

// Reconcile implements spec.md §4.8: per fixed-table category, compare the
// composed forecast total against a history-derived target and scale or
// inject events to close the gap. Returns additional reconciliation-
// sourced events (scaling is applied in place to `events`) plus warnings.
func Reconcile(events []Event, history History, startDate time.Time, horizonDays int) ([]Event, []string) {
	byCategory := make(map[Category][]int)
	for i, e := range events {
		if e.Type != EventTypeForecast {
			continue
		}
		byCategory[e.Category] = append(byCategory[e.Category], i)
	}

	var injected []Event
	var warnings []string

	for _, rule := range reconciliationTable {
		historyEvents := history.EventsByCategory()[rule.Category]
		if len(historyEvents) == 0 {
			continue
		}

		target := targetTotalSkewed(historyEvents, history.LastDate, horizonDays, rule.Polarity)
		if math.Abs(target) < rule.MinAbs {
			continue
		}

		indices := byCategory[rule.Category]
		predicted := 0.0
		for _, i := range indices {
			f, _ := events[i].Amount.Float64()
			predicted += f
		}

		if predicted*target < 0 {
			for _, i := range indices {
				events[i].Amount = decimal.Zero
			}
			predicted = 0
		}

		if math.Abs(predicted) >= rule.SatisfiedRatio*math.Abs(target) && sameSign(predicted, target) {
			continue
		}

		if predicted != 0 {
			scale := target / predicted
			if scale > rule.MaxScale {
				scale = rule.MaxScale
			}
			if scale < -rule.MaxScale {
				scale = -rule.MaxScale
			}
			if rule.OnlyIncrease && math.Abs(scale) < 1 {
				scale = 1
			}
			for _, i := range indices {
				events[i].Amount = events[i].Amount.Mul(decimal.NewFromFloat(scale))
			}
			predicted *= scale
		}

		residual := target - predicted
		if math.Abs(residual) < rule.MinAbs*0.1 {
			continue
		}

		recentCutoff := history.LastDate.AddDate(0, 0, -90)
		recentTotal := 0.0
		for _, e := range historyEvents {
			if e.Date.Before(recentCutoff) {
				continue
			}
			f, _ := e.Amount.Float64()
			recentTotal += f
		}

		n := rule.MaxEvents
		if n < 1 {
			n = 1
		}
		perEvent := residual / float64(n)
		cap := math.Max(math.Abs(residual), math.Abs(recentTotal)) * 2.0
		capped := false
		if math.Abs(perEvent) > cap {
			perEvent = math.Copysign(cap, perEvent)
			capped = true
		}

		description := lastDescriptionForCategory(history, rule.Category)
		for i := 0; i < n; i++ {
			date := startDate.AddDate(0, 0, i*rule.IntervalDays)
			if !date.Before(startDate.AddDate(0, 0, horizonDays)) {
				break
			}
			injected = append(injected, Event{
				Date:                  date,
				Description:           description,
				NormalizedDescription: NormalizeDescription(description),
				Amount:                decimal.NewFromFloat(perEvent),
				Category:              rule.Category,
				Type:                  EventTypeForecast,
				Source:                SourceReconciliation,
			})
		}

		if capped {
			warnings = append(warnings, fmt.Sprintf("reconciliation: injection for %s capped at %.2fx residual/recent magnitude", rule.Category, 2.0))
		}
	}

	return injected, warnings
}

func sameSign(a, b float64) bool {
	if a == 0 || b == 0 {
		return true
	}
	return (a < 0) == (b < 0)
}
