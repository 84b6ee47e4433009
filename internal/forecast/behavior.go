package forecast

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// behaviorExcludedCategories never receive behavior projections: "other"
// is too heterogeneous to model, and healthcare/travel/gifts are
// inherently lumpy one-offs best left to the trend projector or ignored
// (spec.md §4.6).
var behaviorExcludedCategories = map[Category]bool{
	CategoryOther:       true,
	CategoryHealthcare:  true,
	CategoryTravel:      true,
	CategoryGifts:       true,
}

// categoryDeclaredFrequency promotes a weekly cadence classification to
// monthly for categories that behave as monthly bills even when not
// caught by the recurrence detector (spec.md §4.6 "If category's declared
// frequency is monthly, promote weekly -> monthly"). Which categories
// count as declared-monthly is not otherwise specified by spec.md.
var categoryDeclaredFrequency = map[Category]Pattern{
	CategorySubscriptions: PatternMonthly,
	CategoryCarPayment:    PatternMonthly,
	CategoryCreditCardFee: PatternMonthly,
	CategoryBankFee:       PatternMonthly,
}

const (
	behaviorRecentWindowDays    = 120
	behaviorExtendedWindowDays  = 365
	behaviorMinSupport          = 3
	behaviorMinSupportLow       = 2
	behaviorExpenseStdMultiplier = 1.6
	behaviorIncomeStdMultiplier  = 3.25
	behaviorMaxLastOccurrenceAge = 240
	behaviorTotalGrowthRatio     = 1.35
	behaviorMinScaleFactor       = 0.35
	behaviorMinRecentCount       = 3
	behaviorMinRecentTotal       = 90.0
)

// ProjectBehavior synthesizes variable (habitual) spending for categories
// not covered by recurring templates (spec.md §4.6).
func ProjectBehavior(h History, recurring []RecurringTemplate, startDate time.Time, horizonDays int, seasonality map[Category]map[time.Month]float64) []Event {
	covered := make(map[Category]bool)
	for _, t := range recurring {
		covered[t.Category] = true
	}

	byCategory := h.EventsByCategory()
	var out []Event

	for category, events := range byCategory {
		if covered[category] || behaviorExcludedCategories[category] {
			continue
		}

		expenseEvents, incomeEvents := partitionBySign(events)

		if category == CategoryIncome {
			out = append(out, projectBehaviorSide(incomeEvents, category, "income", startDate, horizonDays, h, seasonality)...)
			continue
		}

		out = append(out, projectBehaviorSide(expenseEvents, category, "expense", startDate, horizonDays, h, seasonality)...)
	}

	return out
}

func partitionBySign(events []Event) (expense, income []Event) {
	for _, e := range events {
		if e.Amount.IsNegative() {
			expense = append(expense, e)
		} else if e.Amount.IsPositive() {
			income = append(income, e)
		}
	}
	return expense, income
}

func projectBehaviorSide(events []Event, category Category, side string, startDate time.Time, horizonDays int, h History, seasonality map[Category]map[time.Month]float64) []Event {
	if len(events) == 0 {
		return nil
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Date.Before(events[j].Date) })

	window := behaviorRecentWindowDays
	if extendedHistoryCategories[category] {
		window = behaviorExtendedWindowDays
	}
	cutoff := startDate.AddDate(0, 0, -window)

	var windowed []Event
	for _, e := range events {
		if !e.Date.Before(cutoff) {
			windowed = append(windowed, e)
		}
	}

	minSupport := behaviorMinSupport
	if side == "income" {
		minSupport = behaviorMinSupportLow
	}
	if len(windowed) < minSupport {
		// low-support fallback still requires at least the reduced count
		if len(windowed) < behaviorMinSupportLow {
			return nil
		}
	}

	amounts := make([]float64, len(windowed))
	for i, e := range windowed {
		amounts[i], _ = e.Amount.Float64()
	}
	mean, std := meanAndStd(amounts)

	multiplier := behaviorExpenseStdMultiplier
	if side == "income" {
		multiplier = behaviorIncomeStdMultiplier
	}
	if math.Abs(std) > multiplier*math.Abs(mean) {
		return nil
	}

	lastOccurrence := events[len(events)-1].Date
	if startDate.Sub(lastOccurrence).Hours()/24 > behaviorMaxLastOccurrenceAge {
		return nil
	}

	dates := make([]time.Time, len(windowed))
	for i, e := range windowed {
		dates[i] = e.Date
	}
	medianIntervalDays := medianInterval(dates)

	pattern := cadenceFromMedianInterval(medianIntervalDays)
	if declared, ok := categoryDeclaredFrequency[category]; ok && pattern == PatternWeekly && declared == PatternMonthly {
		pattern = PatternMonthly
	}

	var events2 []Event
	switch pattern {
	case PatternWeekly:
		events2 = emitWeeklyBehavior(windowed, category, startDate, horizonDays, seasonality)
	case PatternBiweekly:
		events2 = emitBiweeklyBehavior(windowed, category, startDate, horizonDays, seasonality, medianIntervalDays)
	default:
		events2 = emitMonthlyBehavior(windowed, category, startDate, horizonDays, seasonality)
	}

	if side == "expense" {
		events2 = applyBehaviorGuardrail(events2, windowed, startDate, horizonDays)
	}

	return events2
}

func medianInterval(dates []time.Time) float64 {
	if len(dates) < 2 {
		return 0
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	intervals := make([]float64, 0, len(dates)-1)
	for i := 1; i < len(dates); i++ {
		intervals = append(intervals, dates[i].Sub(dates[i-1]).Hours()/24)
	}
	return median(intervals)
}

func cadenceFromMedianInterval(days float64) Pattern {
	switch {
	case days >= 21:
		return PatternMonthly
	case days >= 11:
		return PatternBiweekly
	default:
		return PatternWeekly
	}
}

// weekdayRanking returns weekdays sorted from most to least frequently
// observed.
func weekdayRanking(dates []time.Time) []int {
	counts := make(map[int]int)
	for _, d := range dates {
		counts[int(d.Weekday())]++
	}
	ranked := make([]int, 0, 7)
	for wd := 0; wd < 7; wd++ {
		if counts[wd] > 0 {
			ranked = append(ranked, wd)
		}
	}
	sort.Slice(ranked, func(i, j int) bool { return counts[ranked[i]] > counts[ranked[j]] })
	return ranked
}

func avgAmount(events []Event) decimal.Decimal {
	if len(events) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, e := range events {
		sum = sum.Add(e.Amount)
	}
	return sum.Div(decimal.NewFromInt(int64(len(events))))
}

func emitWeeklyBehavior(events []Event, category Category, startDate time.Time, horizonDays int, seasonality map[Category]map[time.Month]float64) []Event {
	dates := make([]time.Time, len(events))
	for i, e := range events {
		dates[i] = e.Date
	}
	span := math.Max(1, dates[len(dates)-1].Sub(dates[0]).Hours()/24/7)
	perWeek := math.Ceil(float64(len(events)) / span)
	if perWeek > 3 {
		perWeek = 3
	}
	if perWeek < 0.3 {
		return nil
	}
	n := int(math.Round(perWeek))
	if n < 1 {
		n = 1
	}

	ranking := weekdayRanking(dates)
	if len(ranking) == 0 {
		ranking = []int{int(startDate.Weekday())}
	}
	if n > len(ranking) {
		n = len(ranking)
	}
	topWeekdays := ranking[:n]

	amount := avgAmount(events)
	description := events[len(events)-1].Description
	normalized := events[len(events)-1].NormalizedDescription

	var out []Event
	endDate := startDate.AddDate(0, 0, horizonDays)
	for d := startOfWeek(startDate); d.Before(endDate); d = d.AddDate(0, 0, 7) {
		for _, wd := range topWeekdays {
			day := alignToWeekday(d, wd)
			if day.Before(startDate) || !day.Before(endDate) {
				continue
			}
			adjusted := ApplySeasonality(amount, category, day.Month(), seasonality)
			out = append(out, behaviorEvent(description, normalized, day, adjusted, category))
		}
	}
	return out
}

func startOfWeek(t time.Time) time.Time {
	offset := int(t.Weekday())
	return t.AddDate(0, 0, -offset)
}

func alignToWeekday(weekStart time.Time, weekday int) time.Time {
	return weekStart.AddDate(0, 0, weekday)
}

func emitBiweeklyBehavior(events []Event, category Category, startDate time.Time, horizonDays int, seasonality map[Category]map[time.Month]float64, medianIntervalDays float64) []Event {
	dates := make([]time.Time, len(events))
	for i, e := range events {
		dates[i] = e.Date
	}
	step := int(math.Max(14, medianIntervalDays))
	modalWeekday := modeWeekday(dates)
	amount := avgAmount(events)
	description := events[len(events)-1].Description
	normalized := events[len(events)-1].NormalizedDescription
	lastDate := dates[len(dates)-1]
	endDate := startDate.AddDate(0, 0, horizonDays)

	var out []Event
	for d := lastDate.AddDate(0, 0, step); d.Before(endDate); d = d.AddDate(0, 0, step) {
		aligned := nearestWeekday(d, modalWeekday)
		if aligned.Before(startDate) {
			continue
		}
		adjusted := ApplySeasonality(amount, category, aligned.Month(), seasonality)
		out = append(out, behaviorEvent(description, normalized, aligned, adjusted, category))
	}
	return out
}

// nearestWeekday shifts a date to the closest occurrence of the target
// weekday, moving at most 3 days either way (which may cross into the
// previous or next week).
func nearestWeekday(d time.Time, targetWeekday int) time.Time {
	delta := targetWeekday - int(d.Weekday())
	if delta > 3 {
		delta -= 7
	}
	if delta < -3 {
		delta += 7
	}
	return d.AddDate(0, 0, delta)
}

func emitMonthlyBehavior(events []Event, category Category, startDate time.Time, horizonDays int, seasonality map[Category]map[time.Month]float64) []Event {
	dates := make([]time.Time, len(events))
	for i, e := range events {
		dates[i] = e.Date
	}
	dayMode := MonthDay{Day: modeDayOfMonth(dates), Set: true}
	amount := avgAmount(events)
	description := events[len(events)-1].Description
	normalized := events[len(events)-1].NormalizedDescription
	lastDate := dates[len(dates)-1]
	endDate := startDate.AddDate(0, 0, horizonDays)

	var out []Event
	cursor := lastDate
	for {
		cursor = addMonthsClamped(cursor, 1, dayMode)
		if !cursor.Before(endDate) {
			break
		}
		if cursor.Before(startDate) {
			continue
		}
		adjusted := ApplySeasonality(amount, category, cursor.Month(), seasonality)
		out = append(out, behaviorEvent(description, normalized, cursor, adjusted, category))
	}
	return out
}

func behaviorEvent(description, normalizedDescription string, date time.Time, amount decimal.Decimal, category Category) Event {
	return Event{
		Date:                  date,
		Description:           description,
		NormalizedDescription: normalizedDescription,
		Amount:                amount,
		Category:              category,
		Type:                  EventTypeForecast,
		Source:                SourceBehavior,
	}
}

// applyBehaviorGuardrail enforces the per-category growth-ratio cap and
// minimum-support retention rule (spec.md §4.6 "Per-category guardrail").
func applyBehaviorGuardrail(events, windowed []Event, startDate time.Time, horizonDays int) []Event {
	if len(events) == 0 {
		return events
	}

	recentCutoff := startDate.AddDate(0, 0, -behaviorRecentWindowDays)
	var recent []Event
	for _, e := range windowed {
		if !e.Date.Before(recentCutoff) {
			recent = append(recent, e)
		}
	}
	if len(recent) < behaviorMinRecentCount {
		return nil
	}

	recentTotal := 0.0
	for _, e := range recent {
		f, _ := e.Amount.Float64()
		recentTotal += math.Abs(f)
	}
	if recentTotal < behaviorMinRecentTotal {
		return nil
	}

	span := math.Max(1, recent[len(recent)-1].Date.Sub(recent[0].Date).Hours()/24)
	projectedRecentTotal := recentTotal / span * float64(horizonDays)

	predictedTotal := 0.0
	for _, e := range events {
		f, _ := e.Amount.Float64()
		predictedTotal += math.Abs(f)
	}

	amounts := make([]float64, len(windowed))
	for i, e := range windowed {
		amounts[i], _ = e.Amount.Float64()
	}
	medianAmount := math.Abs(median(amounts))
	capBasis := math.Max(projectedRecentTotal, math.Max(medianAmount*float64(len(events)), 1))

	if predictedTotal > capBasis*behaviorTotalGrowthRatio {
		scale := capBasis * behaviorTotalGrowthRatio / predictedTotal
		if scale < behaviorMinScaleFactor {
			return nil
		}
		for i := range events {
			events[i].Amount = events[i].Amount.Mul(decimal.NewFromFloat(scale))
		}
	}

	return events
}
