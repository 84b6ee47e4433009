package forecast

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const (
	maxStatisticalCategories = 16
	trendMinPoints           = 21
	trendMinNonzeroDays      = 4
	trendMinTotalMagnitude   = 80.0
	trendMinRecentMass       = 100.0
	trendMinNetOutflow       = -1.0
	trendRecentWindowDays    = 180

	baseChangepointPriorScale     = 0.08
	elevatedChangepointPriorScale = 0.18
	volatilityRatioThreshold      = 1.2
	shortHistoryDaysThreshold     = 120
	seasonalityPriorScale         = 10.0
	trendIntervalWidth            = 0.85

	trendTotalGrowthRatio = 1.35
	trendMinScaleFactor   = 0.35
)

// trendExcludedCategories mirrors behaviorExcludedCategories: the trend
// projector never models these (spec.md §4.7).
var trendExcludedCategories = behaviorExcludedCategories

// TrendParams carries the model's tunable knobs (spec.md §4.7), computed
// per category from its history before fitting.
type TrendParams struct {
	ChangepointPriorScale float64
	SeasonalityPriorScale float64
	IntervalWidth         float64
}

// TrendModel is spec.md §9's pluggable time-series forecaster interface:
// (series, horizon, params) -> daily_values | unavailable.
type TrendModel interface {
	// Forecast returns one predicted value per day in [startDate,
	// startDate+horizonDays), or ok=false if the fit failed or the model
	// is unavailable.
	Forecast(series []DailyPoint, startDate time.Time, horizonDays int, params TrendParams) (values []float64, ok bool)
	// Name identifies the model for summary/diagnostic purposes.
	Name() string
}

// prophetStyleModel implements a multiplicative-seasonality, changepoint-
// damped flat-growth model in the shape spec.md §4.7 describes (weekly +
// yearly + monthly + biweekly [+ quarterly] seasonal components over a
// linear trend level). Grounded on original_source/forecast_engine.py's
// _forecast_with_prophet (see DESIGN.md; reconstructed from conversation
// context, the real facebook/prophet library has no Go binding used
// anywhere in the retrieved pack).
type prophetStyleModel struct{}

func (prophetStyleModel) Name() string { return string(SourceProphet) }

func (prophetStyleModel) Forecast(series []DailyPoint, startDate time.Time, horizonDays int, params TrendParams) ([]float64, bool) {
	if len(series) < trendMinPoints {
		return nil, false
	}

	level, slope := leastSquaresTrend(series)
	// changepoint_prior_scale dampens how much of the fitted slope carries
	// forward: a higher score (more responsive to recent changepoints)
	// lets more of the slope through; a lower score damps it.
	dampedSlope := slope * params.ChangepointPriorScale / baseChangepointPriorScale * 0.5

	weekdayFactor := computeWeekdayFactors(series)
	monthFactor := computeMonthFactors(series)

	n := len(series)
	values := make([]float64, horizonDays)
	for i := 0; i < horizonDays; i++ {
		date := startDate.AddDate(0, 0, i)
		x := float64(n + i)
		base := level + dampedSlope*x
		seasonal := weekdayFactor[int(date.Weekday())] * monthFactor[date.Month()]
		values[i] = base * seasonal
	}
	return values, true
}

// linearModel is the pure-statistical fallback named in spec.md §9
// ("a pure-statistical fallback ... can be substituted without touching
// the pipeline"), grounded on the flyingrobots-go-redis-work-queue budget
// forecaster's CalculateLinearTrend least-squares routine (reconstructed,
// see DESIGN.md).
type linearModel struct{}

func (linearModel) Name() string { return "linear" }

func (linearModel) Forecast(series []DailyPoint, startDate time.Time, horizonDays int, params TrendParams) ([]float64, bool) {
	if len(series) < trendMinPoints {
		return nil, false
	}
	level, slope := leastSquaresTrend(series)
	n := len(series)
	values := make([]float64, horizonDays)
	for i := 0; i < horizonDays; i++ {
		values[i] = level + slope*float64(n+i)
	}
	return values, true
}

// leastSquaresTrend fits value = level + slope*index over the dense daily
// series.
func leastSquaresTrend(series []DailyPoint) (level, slope float64) {
	n := float64(len(series))
	var sumX, sumY, sumXY, sumX2 float64
	for i, p := range series {
		x := float64(i)
		y, _ := p.Amount.Float64()
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}
	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return sumY / n, 0
	}
	slope = (n*sumXY - sumX*sumY) / denom
	level = (sumY - slope*sumX) / n
	return level, slope
}

func computeWeekdayFactors(series []DailyPoint) map[int]float64 {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	overall := 0.0
	for _, p := range series {
		v, _ := p.Amount.Float64()
		wd := int(p.Date.Weekday())
		sums[wd] += v
		counts[wd]++
		overall += v
	}
	overallMean := overall / float64(len(series))
	factors := make(map[int]float64, 7)
	for wd := 0; wd < 7; wd++ {
		if counts[wd] == 0 || overallMean == 0 {
			factors[wd] = 1.0
			continue
		}
		factors[wd] = (sums[wd] / float64(counts[wd])) / overallMean
	}
	return factors
}

func computeMonthFactors(series []DailyPoint) map[time.Month]float64 {
	sums := make(map[time.Month]float64)
	counts := make(map[time.Month]int)
	overall := 0.0
	for _, p := range series {
		v, _ := p.Amount.Float64()
		sums[p.Date.Month()] += v
		counts[p.Date.Month()]++
		overall += v
	}
	overallMean := overall / float64(len(series))
	factors := make(map[time.Month]float64, 12)
	for m := time.January; m <= time.December; m++ {
		if counts[m] == 0 || overallMean == 0 {
			factors[m] = 1.0
			continue
		}
		factors[m] = (sums[m] / float64(counts[m])) / overallMean
	}
	return factors
}

// trendParamsFor computes the changepoint-prior-scale escalation rule
// (spec.md §4.7).
func trendParamsFor(series []DailyPoint) TrendParams {
	scale := baseChangepointPriorScale

	span := 0.0
	if len(series) > 0 {
		span = series[len(series)-1].Date.Sub(series[0].Date).Hours() / 24
	}
	if span < shortHistoryDaysThreshold {
		scale = elevatedChangepointPriorScale
	} else if rollingVolatilityRatio(series, 30) > volatilityRatioThreshold {
		scale = elevatedChangepointPriorScale
	}

	return TrendParams{
		ChangepointPriorScale: scale,
		SeasonalityPriorScale: seasonalityPriorScale,
		IntervalWidth:         trendIntervalWidth,
	}
}

func rollingVolatilityRatio(series []DailyPoint, window int) float64 {
	if len(series) < window {
		window = len(series)
	}
	if window == 0 {
		return 0
	}
	tail := series[len(series)-window:]
	values := make([]float64, len(tail))
	for i, p := range tail {
		values[i], _ = p.Amount.Float64()
	}
	mean, std := meanAndStd(values)
	if mean == 0 {
		return 0
	}
	return std / math.Abs(mean)
}

// trendEligible implements spec.md §4.7's eligibility gate.
func trendEligible(series []DailyPoint, horizonDays int) bool {
	if len(series) < trendMinPoints {
		return false
	}
	nonzero := 0
	totalAbs := 0.0
	netSum := 0.0
	for _, p := range series {
		v, _ := p.Amount.Float64()
		if v != 0 {
			nonzero++
		}
		totalAbs += math.Abs(v)
		netSum += v
	}
	if nonzero < trendMinNonzeroDays {
		return false
	}
	if totalAbs < trendMinTotalMagnitude {
		return false
	}
	if netSum >= trendMinNetOutflow {
		return false
	}

	cutoff := series[len(series)-1].Date.AddDate(0, 0, -trendRecentWindowDays)
	recentNegative := 0.0
	recentSpanStart := series[len(series)-1].Date
	for _, p := range series {
		if p.Date.Before(cutoff) {
			continue
		}
		if p.Date.Before(recentSpanStart) {
			recentSpanStart = p.Date
		}
		v, _ := p.Amount.Float64()
		if v < 0 {
			recentNegative += -v
		}
	}
	recentSpanDays := math.Max(1, series[len(series)-1].Date.Sub(recentSpanStart).Hours()/24)
	projected := recentNegative / recentSpanDays * float64(horizonDays)
	return projected >= trendMinRecentMass
}

// topCategoriesByMagnitude ranks categories by total absolute historical
// amount, excluding recurring-covered, excluded, and income categories,
// and returns the top N (spec.md §4.7).
func topCategoriesByMagnitude(categorySeries map[Category][]DailyPoint, covered map[Category]bool, n int) []Category {
	type ranked struct {
		category Category
		total    float64
	}
	var candidates []ranked
	for category, series := range categorySeries {
		if covered[category] || trendExcludedCategories[category] || category == CategoryIncome {
			continue
		}
		total := 0.0
		for _, p := range series {
			f, _ := p.Amount.Float64()
			total += math.Abs(f)
		}
		candidates = append(candidates, ranked{category, total})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].total > candidates[j].total })
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	out := make([]Category, len(candidates))
	for i, c := range candidates {
		out[i] = c.category
	}
	return out
}

// ProjectTrend runs the configured TrendModel over each eligible
// category's dense daily series (spec.md §4.7). Per-category fit failures
// are skipped silently, matching spec.md §5/§7's silent-recovery policy.
func ProjectTrend(h History, recurring []RecurringTemplate, startDate time.Time, horizonDays int, model TrendModel, seasonality map[Category]map[time.Month]float64) []Event {
	covered := make(map[Category]bool)
	for _, t := range recurring {
		covered[t.Category] = true
	}

	top := topCategoriesByMagnitude(h.CategorySeries, covered, maxStatisticalCategories)
	var out []Event

	for _, category := range top {
		series := h.CategorySeries[category]
		if !trendEligible(series, horizonDays) {
			continue
		}

		params := trendParamsFor(series)
		values, ok := model.Forecast(series, startDate, horizonDays, params)
		if !ok {
			continue
		}

		description := lastDescriptionForCategory(h, category)
		events := make([]Event, 0, horizonDays)
		for i, v := range values {
			date := startDate.AddDate(0, 0, i)
			amount := decimal.NewFromFloat(v)
			// Force sign to match the dominant (expense) side of history.
			if amount.IsPositive() {
				amount = decimal.Zero
			}
			if amount.IsZero() {
				continue
			}
			events = append(events, Event{
				Date:                  date,
				Description:           description,
				NormalizedDescription: NormalizeDescription(description),
				Amount:                amount,
				Category:              category,
				Type:                  EventTypeForecast,
				Source:                SourceProphet,
			})
		}

		events = applyTrendPostFilters(events, series)
		events = applyTrendTotalCap(events, series, horizonDays)
		events = snapTrendEvents(events, series)

		out = append(out, events...)
	}

	return out
}

func lastDescriptionForCategory(h History, category Category) string {
	var last Event
	for _, e := range h.Ledger {
		if e.Category == category {
			last = e
		}
	}
	if last.Description == "" {
		return string(category)
	}
	return last.Description
}

func trimmedMagnitudes(series []DailyPoint) []float64 {
	mags := make([]float64, 0, len(series))
	for _, p := range series {
		if p.Amount.IsZero() {
			continue
		}
		f, _ := p.Amount.Float64()
		mags = append(mags, math.Abs(f))
	}
	sort.Float64s(mags)
	if len(mags) == 0 {
		return mags
	}
	cut := int(float64(len(mags)) * 0.95)
	if cut < 1 {
		cut = len(mags)
	}
	return mags[:cut]
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}

// applyTrendPostFilters implements spec.md §4.7's "Post-filters": drop
// sub-floor days, clamp magnitudes to [baseline, min(p90, baseline*1.65)].
func applyTrendPostFilters(events []Event, series []DailyPoint) []Event {
	trimmed := trimmedMagnitudes(series)
	if len(trimmed) == 0 {
		return events
	}
	medianAbs := median(trimmed)
	meanAbs, _ := meanAndStd(trimmed)
	p90 := percentile(trimmed, 0.9)

	dropFloor := math.Max(0.5, math.Max(0.15*medianAbs, 0.1*meanAbs))
	clampFloor := math.Max(0.5, 0.18*medianAbs)
	baseline := math.Max(medianAbs, math.Max(meanAbs, 1))
	clampCeiling := math.Min(p90, baseline*1.65)
	if clampCeiling < baseline {
		clampCeiling = baseline
	}

	out := make([]Event, 0, len(events))
	for _, e := range events {
		mag, _ := absDecimal(e.Amount).Float64()
		if mag < dropFloor {
			continue
		}
		if mag > clampCeiling {
			mag = clampCeiling
		}
		if mag < clampFloor {
			continue
		}
		e.Amount = decimal.NewFromFloat(-mag)
		out = append(out, e)
	}
	return out
}

// applyTrendTotalCap implements spec.md §4.7's "Total cap".
func applyTrendTotalCap(events []Event, series []DailyPoint, horizonDays int) []Event {
	if len(events) == 0 {
		return events
	}

	recentCutoff := series[len(series)-1].Date.AddDate(0, 0, -behaviorRecentWindowDays)
	recentTotal := 0.0
	for _, p := range series {
		if p.Date.Before(recentCutoff) {
			continue
		}
		f, _ := p.Amount.Float64()
		if f < 0 {
			recentTotal += -f
		}
	}

	trimmed := trimmedMagnitudes(series)
	medianAbs := median(trimmed)
	meanAbs, _ := meanAndStd(trimmed)
	baseline := math.Max(medianAbs, math.Max(meanAbs, 1))

	predictedTotal := 0.0
	for _, e := range events {
		f, _ := absDecimal(e.Amount).Float64()
		predictedTotal += f
	}
	capBasis := math.Max(recentTotal, math.Max(baseline*float64(len(events)), 1))

	if predictedTotal > capBasis*trendTotalGrowthRatio {
		scale := capBasis * trendTotalGrowthRatio / predictedTotal
		if scale < trendMinScaleFactor {
			return nil
		}
		for i := range events {
			events[i].Amount = events[i].Amount.Mul(decimal.NewFromFloat(scale))
		}
	}
	return events
}

// snapTrendEvents snaps event dates to the dominant day-of-month/weekday
// observed in history (spec.md §4.7 "Snapping").
func snapTrendEvents(events []Event, series []DailyPoint) []Event {
	if len(events) == 0 || len(series) == 0 {
		return events
	}
	dates := make([]time.Time, 0, len(series))
	for _, p := range series {
		if !p.Amount.IsZero() {
			dates = append(dates, p.Date)
		}
	}
	if len(dates) == 0 {
		return events
	}

	domWeekday := modeWeekday(dates)
	domDay := modeDayOfMonth(dates)

	for i := range events {
		snapped := nearestWeekdayWithinRange(events[i].Date, domWeekday, 3)
		if snapped.Month() == events[i].Date.Month() {
			events[i].Date = snapped
		} else {
			events[i].Date = clampedDate(events[i].Date.Year(), events[i].Date.Month(), MonthDay{Day: domDay, Set: true})
		}
	}
	return events
}

func nearestWeekdayWithinRange(d time.Time, targetWeekday, maxShift int) time.Time {
	for shift := 0; shift <= maxShift; shift++ {
		if int(d.AddDate(0, 0, shift).Weekday()) == targetWeekday {
			return d.AddDate(0, 0, shift)
		}
		if int(d.AddDate(0, 0, -shift).Weekday()) == targetWeekday {
			return d.AddDate(0, 0, -shift)
		}
	}
	return d
}
