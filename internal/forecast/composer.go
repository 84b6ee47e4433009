package forecast

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const calendarDays = 30

// habitAliasShareThreshold is the minimum share a category's dominant
// normalized description must hold before it's used as the human-readable
// label for a habit insight (spec.md §4.9).
const habitAliasShareThreshold = 0.35

// Compose merges every event source into the final daily balance series,
// 30-day calendar, category breakdown, and habit insights (spec.md §4.9).
func Compose(method Method, history History, startDate time.Time, horizonDays int, scheduled, recurring, behavior, trend, reconciliation []Event, templates []RecurringTemplate, warnings []string) Result {
	all := make([]Event, 0, len(history.Ledger)+len(scheduled)+len(recurring)+len(behavior)+len(trend)+len(reconciliation))
	all = append(all, history.Ledger...)
	all = append(all, scheduled...)
	all = append(all, recurring...)
	all = append(all, behavior...)
	all = append(all, trend...)
	all = append(all, reconciliation...)

	sort.SliceStable(all, func(i, j int) bool { return all[i].Date.Before(all[j].Date) })

	forecastSeries := buildDailySummary(all, history.OpeningBalance)
	calendar := buildCalendar(all, history.OpeningBalance, startDate, calendarDays)
	breakdown := buildCategoryBreakdown(all, startDate, horizonDays)
	habits := buildHabitInsights(history, templates, recurring, behavior, trend)

	summary := buildSummary(method, history.OpeningBalance, forecastSeries, startDate, horizonDays, breakdown, warnings)

	result := Result{
		Summary:      summary,
		Forecast:     forecastSeries,
		Transactions: all,
		Calendar:     calendar,
		Habits:       habits,
	}
	return Sanitize(result)
}

// buildDailySummary groups events by date and computes a running balance
// from opening_balance (spec.md §4.9, §8 invariant 1).
func buildDailySummary(events []Event, openingBalance decimal.Decimal) []DailySummaryEntry {
	if len(events) == 0 {
		return nil
	}

	byDate := make(map[time.Time]decimal.Decimal)
	var dates []time.Time
	for _, e := range events {
		if _, ok := byDate[e.Date]; !ok {
			dates = append(dates, e.Date)
		}
		byDate[e.Date] = byDate[e.Date].Add(e.Amount)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	out := make([]DailySummaryEntry, 0, len(dates))
	balance := openingBalance
	for _, d := range dates {
		balance = balance.Add(byDate[d])
		out = append(out, DailySummaryEntry{Date: d, Amount: byDate[d], Balance: balance})
	}
	return out
}

// buildCalendar produces a fixed 30-day calendar view starting at
// start_date, independent of the requested horizon (spec.md §4.9).
func buildCalendar(events []Event, openingBalance decimal.Decimal, startDate time.Time, days int) []CalendarDay {
	byDate := make(map[time.Time][]Event)
	for _, e := range events {
		byDate[e.Date] = append(byDate[e.Date], e)
	}

	// Running balance must account for everything before start_date too.
	balance := openingBalance
	for _, e := range events {
		if e.Date.Before(startDate) {
			balance = balance.Add(e.Amount)
		}
	}

	out := make([]CalendarDay, 0, days)
	for i := 0; i < days; i++ {
		date := startDate.AddDate(0, 0, i)
		dayEvents := byDate[date]

		income := decimal.Zero
		expenses := decimal.Zero
		net := decimal.Zero
		for _, e := range dayEvents {
			net = net.Add(e.Amount)
			if e.Amount.IsPositive() {
				income = income.Add(e.Amount)
			} else {
				expenses = expenses.Add(e.Amount)
			}
		}
		balance = balance.Add(net)

		top := topExpenses(dayEvents, 3)
		out = append(out, CalendarDay{
			Date:        date,
			Net:         net,
			Income:      income,
			Expenses:    expenses,
			Balance:     balance,
			TopExpenses: top,
		})
	}
	return out
}

func topExpenses(events []Event, n int) []TopExpense {
	expenses := make([]Event, 0, len(events))
	for _, e := range events {
		if e.Amount.IsNegative() {
			expenses = append(expenses, e)
		}
	}
	sort.Slice(expenses, func(i, j int) bool {
		return absDecimal(expenses[i].Amount).GreaterThan(absDecimal(expenses[j].Amount))
	})
	if len(expenses) > n {
		expenses = expenses[:n]
	}
	out := make([]TopExpense, len(expenses))
	for i, e := range expenses {
		out[i] = TopExpense{Description: e.Description, Amount: e.Amount}
	}
	return out
}

// buildCategoryBreakdown totals events within [start_date, start_date +
// horizon) split into expense magnitudes and income (spec.md §4.9).
func buildCategoryBreakdown(events []Event, startDate time.Time, horizonDays int) CategoryBreakdown {
	end := startDate.AddDate(0, 0, horizonDays)
	expenseTotals := make(map[Category]decimal.Decimal)
	incomeTotals := make(map[Category]decimal.Decimal)

	for _, e := range events {
		if e.Date.Before(startDate) || !e.Date.Before(end) {
			continue
		}
		if e.Amount.IsNegative() {
			expenseTotals[e.Category] = expenseTotals[e.Category].Add(absDecimal(e.Amount))
		} else {
			incomeTotals[e.Category] = incomeTotals[e.Category].Add(e.Amount)
		}
	}

	return CategoryBreakdown{
		Expenses: sortedTotals(expenseTotals),
		Income:   sortedTotals(incomeTotals),
	}
}

func sortedTotals(totals map[Category]decimal.Decimal) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(totals))
	for c, amt := range totals {
		out = append(out, CategoryTotal{Category: c, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Amount.GreaterThan(out[j].Amount) })
	return out
}

// buildSummary derives the top-level response metadata (spec.md §4.9).
func buildSummary(method Method, openingBalance decimal.Decimal, forecast []DailySummaryEntry, startDate time.Time, horizonDays int, breakdown CategoryBreakdown, warnings []string) Summary {
	finalBalance := openingBalance
	minBalance := openingBalance
	var minDate *time.Time
	var daysToZero *int

	for _, entry := range forecast {
		if entry.Date.Before(startDate) {
			continue
		}
		finalBalance = entry.Balance
		if entry.Balance.LessThan(minBalance) || minDate == nil {
			minBalance = entry.Balance
			d := entry.Date
			minDate = &d
		}
		if daysToZero == nil && entry.Balance.LessThanOrEqual(decimal.Zero) {
			days := int(entry.Date.Sub(startDate).Hours() / 24)
			daysToZero = &days
		}
	}
	if minDate == nil {
		minBalance = openingBalance
	}

	daysToMin := 0
	if minDate != nil {
		daysToMin = int(minDate.Sub(startDate).Hours() / 24)
	}

	return Summary{
		Method:             method,
		OpeningBalance:     openingBalance,
		FinalBalance:       finalBalance,
		NetChange:          finalBalance.Sub(openingBalance),
		MinimumBalance:     minBalance,
		MinimumBalanceDate: minDate,
		DaysToMin:          daysToMin,
		DaysToZero:         daysToZero,
		StartDate:          startDate,
		HorizonDays:        horizonDays,
		CategoryBreakdown:  breakdown,
		Warnings:           warnings,
	}
}

// buildHabitInsights renders a human-readable insight per recurring,
// behavior, and trend source (spec.md §4.9).
func buildHabitInsights(history History, templates []RecurringTemplate, recurring, behavior, trend []Event) []HabitInsight {
	var out []HabitInsight

	for _, t := range templates {
		label := dominantAliasLabel(history, t.Category, t.NormalizedDescription)
		next := nextOccurrenceFor(recurring, t.Category, t.NormalizedDescription)
		out = append(out, HabitInsight{
			Category:       t.Category,
			Source:         SourceRecurring,
			Pattern:        t.Pattern,
			AverageAmount:  t.Amount,
			NextOccurrence: next,
			Label:          label,
			Description:    fmt.Sprintf("%s recurs %s, averaging %s", label, t.Pattern, t.Amount.StringFixed(2)),
		})
	}

	for category, events := range groupBySourceCategory(behavior) {
		label := dominantAliasLabel(history, category, "")
		avg := averageAmount(events)
		next := earliestDate(events)
		out = append(out, HabitInsight{
			Category:       category,
			Source:         SourceBehavior,
			Pattern:        PatternOneoff,
			AverageAmount:  avg,
			NextOccurrence: next,
			Label:          label,
			Description:    fmt.Sprintf("%s shows habitual spending in %s, averaging %s", label, category, avg.StringFixed(2)),
		})
	}

	for category, events := range groupBySourceCategory(trend) {
		label := dominantAliasLabel(history, category, "")
		avg := averageAmount(events)
		next := earliestDate(events)
		out = append(out, HabitInsight{
			Category:       category,
			Source:         SourceProphet,
			Pattern:        PatternOneoff,
			AverageAmount:  avg,
			NextOccurrence: next,
			Label:          label,
			Description:    fmt.Sprintf("%s trend model projects ongoing %s activity, averaging %s", label, category, avg.StringFixed(2)),
		})
	}

	return out
}

func groupBySourceCategory(events []Event) map[Category][]Event {
	out := make(map[Category][]Event)
	for _, e := range events {
		out[e.Category] = append(out[e.Category], e)
	}
	return out
}

func averageAmount(events []Event) decimal.Decimal {
	if len(events) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, e := range events {
		sum = sum.Add(e.Amount)
	}
	return sum.Div(decimal.NewFromInt(int64(len(events))))
}

func earliestDate(events []Event) *time.Time {
	if len(events) == 0 {
		return nil
	}
	earliest := events[0].Date
	for _, e := range events {
		if e.Date.Before(earliest) {
			earliest = e.Date
		}
	}
	return &earliest
}

func nextOccurrenceFor(recurring []Event, category Category, normalizedDescription string) *time.Time {
	var next *time.Time
	for _, e := range recurring {
		if e.Category != category {
			continue
		}
		if normalizedDescription != "" && e.NormalizedDescription != normalizedDescription {
			continue
		}
		if next == nil || e.Date.Before(*next) {
			d := e.Date
			next = &d
		}
	}
	return next
}

// dominantAliasLabel returns the category's dominant normalized
// description when its share of that category's history reaches
// habitAliasShareThreshold, else the category name itself (spec.md §4.9).
func dominantAliasLabel(history History, category Category, preferDescription string) string {
	events := history.EventsByCategory()[category]
	if len(events) == 0 {
		if preferDescription != "" {
			return preferDescription
		}
		return string(category)
	}

	counts := make(map[string]int)
	for _, e := range events {
		counts[e.NormalizedDescription]++
	}
	bestDesc, bestCount := "", 0
	for d, n := range counts {
		if n > bestCount {
			bestDesc, bestCount = d, n
		}
	}
	if float64(bestCount)/float64(len(events)) >= habitAliasShareThreshold {
		return bestDesc
	}
	return string(category)
}
