package forecast

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// statisticalMaxHistoryDays truncates the dense per-category series built
// for statistical modeling (spec.md §4.3).
const statisticalMaxHistoryDays = 365

// History is the date-sorted, categorized ledger plus the derived
// per-category daily series every downstream projector consumes.
type History struct {
	Ledger         []Event
	OpeningBalance decimal.Decimal
	LastDate       time.Time
	HasData        bool
	// CategorySeries holds, per category, a dense (gap zero-filled) daily
	// series between that category's first and last observed day,
	// truncated to statisticalMaxHistoryDays.
	CategorySeries map[Category][]DailyPoint
}

// BuildHistory sorts the categorized ledger by date and derives the dense
// per-category daily series (spec.md §4.3).
func BuildHistory(events []Event, openingBalance decimal.Decimal) History {
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	h := History{
		Ledger:         sorted,
		OpeningBalance: openingBalance,
		CategorySeries: make(map[Category][]DailyPoint),
	}

	if len(sorted) == 0 {
		return h
	}

	h.HasData = true
	h.LastDate = sorted[len(sorted)-1].Date

	byCategory := make(map[Category]map[time.Time]decimal.Decimal)
	for _, e := range sorted {
		if byCategory[e.Category] == nil {
			byCategory[e.Category] = make(map[time.Time]decimal.Decimal)
		}
		byCategory[e.Category][e.Date] = byCategory[e.Category][e.Date].Add(e.Amount)
	}

	for category, dayTotals := range byCategory {
		var first, last time.Time
		for d := range dayTotals {
			if first.IsZero() || d.Before(first) {
				first = d
			}
			if last.IsZero() || d.After(last) {
				last = d
			}
		}

		// Truncate from the front if the span exceeds the statistical
		// history cap, keeping the most recent window.
		if last.Sub(first).Hours()/24 > statisticalMaxHistoryDays {
			first = last.AddDate(0, 0, -statisticalMaxHistoryDays)
		}

		series := make([]DailyPoint, 0, int(last.Sub(first).Hours()/24)+1)
		for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
			series = append(series, DailyPoint{Date: d, Amount: dayTotals[d]})
		}
		h.CategorySeries[category] = series
	}

	return h
}

// RunningBalance returns the balance after the last historical event: the
// opening balance plus every ledger amount, used to satisfy spec.md §3's
// balance continuity invariant.
func (h History) RunningBalance() decimal.Decimal {
	balance := h.OpeningBalance
	for _, e := range h.Ledger {
		balance = balance.Add(e.Amount)
	}
	return balance
}

// EventsByCategory groups the ledger's events by category.
func (h History) EventsByCategory() map[Category][]Event {
	out := make(map[Category][]Event)
	for _, e := range h.Ledger {
		out[e.Category] = append(out[e.Category], e)
	}
	return out
}

// EventsByNormalizedDescription groups the ledger's events by their
// normalized description, the unit of recurrence detection.
func (h History) EventsByNormalizedDescription() map[string][]Event {
	out := make(map[string][]Event)
	for _, e := range h.Ledger {
		out[e.NormalizedDescription] = append(out[e.NormalizedDescription], e)
	}
	return out
}
