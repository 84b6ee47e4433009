package forecast

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Pattern classification thresholds and minimum occurrence counts
// (spec.md §4.4).
const (
	recurrenceMinMedianInterval = 5
	recurrenceConsistencyRatio  = 0.6
	recurrenceAmountStdRatio    = 0.75
	recurrenceMinAbsMean        = 1.0
	recurrenceMaxStaleDays      = 120
	recurrenceStalenessMult     = 1.4
	recurrenceRecencyDays       = 180
	rentEscalationRate          = 0.03
)

func classifyPattern(medianIntervalDays float64) (Pattern, bool) {
	switch {
	case medianIntervalDays <= 8:
		return PatternWeekly, true
	case medianIntervalDays <= 16:
		return PatternBiweekly, true
	case medianIntervalDays <= 35:
		return PatternMonthly, true
	case medianIntervalDays <= 95:
		return PatternQuarterly, true
	case medianIntervalDays <= 400:
		return PatternYearly, true
	default:
		return "", false
	}
}

func minOccurrences(p Pattern) int {
	switch p {
	case PatternWeekly, PatternBiweekly, PatternMonthly, PatternQuarterly, PatternYearly:
		return 3
	default:
		return 3
	}
}

// toleranceDays is the interval-consistency tolerance per pattern bucket
// (spec.md §4.4 step 5: "tolerance = 1/2/5/10 days depending on pattern
// bucket"). Quarterly and yearly share the largest (10-day) tolerance,
// the spec giving only four values for five buckets.
func toleranceDays(p Pattern) float64 {
	switch p {
	case PatternWeekly:
		return 1
	case PatternBiweekly:
		return 2
	case PatternMonthly:
		return 5
	default:
		return 10
	}
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func meanAndStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))

	sqSum := 0.0
	for _, v := range values {
		sqSum += (v - mean) * (v - mean)
	}
	std = math.Sqrt(sqSum / float64(len(values)))
	return mean, std
}

func modeCategory(events []Event) Category {
	counts := make(map[Category]int)
	for _, e := range events {
		counts[e.Category]++
	}
	best := CategoryOther
	bestCount := -1
	for c, n := range counts {
		if n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

func modeWeekday(dates []time.Time) int {
	counts := make(map[int]int)
	for _, d := range dates {
		counts[int(d.Weekday())]++
	}
	best, bestCount := 0, -1
	for wd, n := range counts {
		if n > bestCount {
			best, bestCount = wd, n
		}
	}
	return best
}

func modeDayOfMonth(dates []time.Time) int {
	counts := make(map[int]int)
	for _, d := range dates {
		counts[d.Day()]++
	}
	best, bestCount := 1, -1
	for day, n := range counts {
		if n > bestCount {
			best, bestCount = day, n
		}
	}
	return best
}

// lastDayOfMonth returns the last calendar day of the given year/month.
func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// clampedDate returns the calendar date in (year, month) for the given
// day mode, clamped to the last valid day of that month (spec.md §4.5).
func clampedDate(year int, month time.Month, dayMode MonthDay) time.Time {
	last := lastDayOfMonth(year, month)
	day := dayMode.Day
	if dayMode.Last || day <= 0 || day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// addMonthsClamped advances a date by n months preserving a day-of-month
// mode, clamped to the last valid day.
func addMonthsClamped(from time.Time, n int, dayMode MonthDay) time.Time {
	y, m, _ := from.AddDate(0, n, 0).Date()
	return clampedDate(y, m, dayMode)
}

// DetectRecurringTemplates discovers per-description series with
// consistent intervals and stable amounts (spec.md §4.4).
func DetectRecurringTemplates(h History, asOf time.Time) []RecurringTemplate {
	var templates []RecurringTemplate

	for normalizedDescription, events := range h.EventsByNormalizedDescription() {
		if normalizedDescription == "" {
			continue
		}
		sort.Slice(events, func(i, j int) bool { return events[i].Date.Before(events[j].Date) })

		distinctDays := make(map[time.Time]bool)
		for _, e := range events {
			distinctDays[e.Date] = true
		}
		if len(events) < 2 || len(distinctDays) < 2 {
			continue
		}

		dates := make([]time.Time, 0, len(distinctDays))
		for d := range distinctDays {
			dates = append(dates, d)
		}
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

		intervals := make([]float64, 0, len(dates)-1)
		for i := 1; i < len(dates); i++ {
			intervals = append(intervals, dates[i].Sub(dates[i-1]).Hours()/24)
		}

		medianInterval := median(intervals)
		pattern, ok := classifyPattern(medianInterval)
		if !ok {
			continue
		}
		if len(events) < minOccurrences(pattern) {
			continue
		}
		if medianInterval < recurrenceMinMedianInterval {
			continue
		}

		tolerance := toleranceDays(pattern)
		withinTolerance := 0
		for _, iv := range intervals {
			if math.Abs(iv-medianInterval) <= tolerance {
				withinTolerance++
			}
		}
		if float64(withinTolerance)/float64(len(intervals)) < recurrenceConsistencyRatio {
			continue
		}

		amounts := make([]float64, len(events))
		for i, e := range events {
			f, _ := e.Amount.Float64()
			amounts[i] = f
		}
		meanAmount, stdAmount := meanAndStd(amounts)
		if math.Abs(stdAmount) > recurrenceAmountStdRatio*math.Abs(meanAmount) {
			continue
		}
		if math.Abs(meanAmount) < recurrenceMinAbsMean {
			continue
		}

		lastDate := dates[len(dates)-1]
		staleLimit := math.Min(recurrenceMaxStaleDays, recurrenceStalenessMult*medianInterval)
		if asOf.Sub(lastDate).Hours()/24 > staleLimit {
			continue
		}

		recencyCutoff := asOf.AddDate(0, 0, -recurrenceRecencyDays)
		recentCount := 0
		for _, d := range dates {
			if !d.Before(recencyCutoff) {
				recentCount++
			}
		}
		if recentCount < 2 {
			continue
		}

		category := modeCategory(events)
		txType := "expense"
		if meanAmount > 0 {
			category = CategoryIncome
			txType = "income"
		}

		medianAmount := medianDecimal(events)
		lastAmount := events[len(events)-1].Amount

		templates = append(templates, RecurringTemplate{
			NormalizedDescription: normalizedDescription,
			Description:           events[len(events)-1].Description,
			Category:              category,
			Pattern:                pattern,
			Amount:                 medianAmount,
			LastAmount:             lastAmount,
			WeekdayMode:            modeWeekday(dates),
			DayMode:                MonthDay{Day: modeDayOfMonth(dates), Set: true},
			LastDate:               lastDate,
			StdAmount:              decimal.NewFromFloat(stdAmount),
			Type:                   txType,
			Confidence:             1.0,
			Occurrences:            len(events),
		})
	}

	templates = append(templates, augmentRecurringTemplates(h, asOf, templates)...)
	return templates
}

func medianDecimal(events []Event) decimal.Decimal {
	amounts := make([]float64, len(events))
	for i, e := range events {
		f, _ := e.Amount.Float64()
		amounts[i] = f
	}
	return decimal.NewFromFloat(median(amounts))
}

// augmentRecurringTemplates synthesizes low-confidence templates for
// extended-history categories not already covered by a detected series
// (spec.md §4.4 "Augmentation"; original_source/forecast_engine.py's
// _augment_recurring_templates, see DESIGN.md).
func augmentRecurringTemplates(h History, asOf time.Time, detected []RecurringTemplate) []RecurringTemplate {
	covered := make(map[Category]bool)
	for _, t := range detected {
		covered[t.Category] = true
	}

	var augmented []RecurringTemplate
	byCategory := h.EventsByCategory()

	for category := range extendedHistoryCategories {
		if covered[category] {
			continue
		}
		events := byCategory[category]
		if len(events) == 0 {
			continue
		}
		sort.Slice(events, func(i, j int) bool { return events[i].Date.Before(events[j].Date) })

		recencyCutoff := asOf.AddDate(0, 0, -recurrenceRecencyDays)
		var recent []Event
		for _, e := range events {
			if !e.Date.Before(recencyCutoff) {
				recent = append(recent, e)
			}
		}
		if len(recent) == 0 {
			recent = events
		}

		var amount decimal.Decimal
		if category == CategoryIncome {
			monthlyTotals := make(map[string]decimal.Decimal)
			for _, e := range recent {
				key := e.Date.Format("2006-01")
				monthlyTotals[key] = monthlyTotals[key].Add(e.Amount)
			}
			vals := make([]float64, 0, len(monthlyTotals))
			for _, v := range monthlyTotals {
				f, _ := v.Float64()
				vals = append(vals, f)
			}
			amount = decimal.NewFromFloat(median(vals))
		} else {
			amount = recent[0].Amount
			for _, e := range recent {
				if absDecimal(e.Amount).LessThan(absDecimal(amount)) {
					amount = e.Amount
				}
			}
		}

		dates := make([]time.Time, len(recent))
		for i, e := range recent {
			dates[i] = e.Date
		}

		txType := "expense"
		if category == CategoryIncome {
			txType = "income"
		}

		augmented = append(augmented, RecurringTemplate{
			NormalizedDescription: events[len(events)-1].NormalizedDescription,
			Description:           events[len(events)-1].Description,
			Category:               category,
			Pattern:                PatternMonthly,
			Amount:                 amount,
			LastAmount:             amount,
			WeekdayMode:            modeWeekday(dates),
			DayMode:                MonthDay{Day: modeDayOfMonth(dates), Set: true},
			LastDate:               events[len(events)-1].Date,
			Type:                   txType,
			Confidence:             0.5,
			Occurrences:            len(events),
		})
	}

	return augmented
}

// scheduledSignature returns the (category, sign) pair used for recurring
// template suppression (spec.md §4.5).
func scheduledSignature(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return "expense"
	}
	return "income"
}

// suppressedByScheduled reports whether a template should be dropped
// because a scheduled event already covers it (spec.md §4.5).
func suppressedByScheduled(t RecurringTemplate, scheduled []Event) bool {
	for _, s := range scheduled {
		if s.NormalizedDescription == t.NormalizedDescription {
			return true
		}
		if s.Category == t.Category && scheduledSignature(s.Amount) == scheduledSignature(t.Amount) {
			return true
		}
	}
	return false
}

// ProjectRecurring extends each surviving template forward through the
// horizon (spec.md §4.5).
func ProjectRecurring(templates []RecurringTemplate, scheduled []Event, startDate time.Time, horizonDays int, seasonality map[Category]map[time.Month]float64) []Event {
	endDate := startDate.AddDate(0, 0, horizonDays)
	var out []Event

	for _, t := range templates {
		if suppressedByScheduled(t, scheduled) {
			continue
		}

		switch t.Pattern {
		case PatternWeekly, PatternBiweekly:
			step := 7
			if t.Pattern == PatternBiweekly {
				step = 14
			}
			for d := t.LastDate.AddDate(0, 0, step); d.Before(endDate); d = d.AddDate(0, 0, step) {
				if d.Before(startDate) {
					continue
				}
				amount := ApplySeasonality(t.Amount, t.Category, d.Month(), seasonality)
				out = append(out, recurringEvent(t, d, amount))
			}

		case PatternMonthly:
			isRent := t.Category == CategoryRent || t.Category == CategoryMortgage
			isSubscription := t.Category == CategorySubscriptions

			cursor := t.LastDate
			years := 0
			for {
				cursor = addMonthsClamped(cursor, 1, t.DayMode)
				if !cursor.Before(endDate) {
					break
				}
				if cursor.Before(startDate) {
					continue
				}
				var amount decimal.Decimal
				switch {
				case isRent:
					years = yearsElapsed(t.LastDate, cursor)
					amount = t.Amount.Mul(decimal.NewFromFloat(math.Pow(1+rentEscalationRate, float64(years))))
				case isSubscription:
					amount = t.LastAmount
				default:
					amount = ApplySeasonality(t.Amount, t.Category, cursor.Month(), seasonality)
				}
				out = append(out, recurringEvent(t, cursor, amount))
			}

		case PatternQuarterly, PatternYearly:
			months := 3
			if t.Pattern == PatternYearly {
				months = 12
			}
			cursor := t.LastDate
			for {
				cursor = addMonthsClamped(cursor, months, t.DayMode)
				if !cursor.Before(endDate) {
					break
				}
				if cursor.Before(startDate) {
					continue
				}
				amount := ApplySeasonality(t.Amount, t.Category, cursor.Month(), seasonality)
				out = append(out, recurringEvent(t, cursor, amount))
			}
		}
	}

	return out
}

func yearsElapsed(from, to time.Time) int {
	years := to.Year() - from.Year()
	anniversary := time.Date(to.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	if to.Before(anniversary) {
		years--
	}
	if years < 0 {
		years = 0
	}
	return years
}

func recurringEvent(t RecurringTemplate, date time.Time, amount decimal.Decimal) Event {
	return Event{
		Date:                  date,
		Description:           t.Description,
		NormalizedDescription: t.NormalizedDescription,
		Amount:                amount,
		Category:              t.Category,
		Type:                  EventTypeForecast,
		Source:                SourceRecurring,
	}
}
