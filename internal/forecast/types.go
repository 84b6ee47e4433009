// Package forecast implements the cash-flow forecast engine: the pure,
// stateless pipeline that turns an opening balance, a historical
// transaction ledger, and a set of user-declared scheduled events into a
// forward daily balance projection.
package forecast

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DailyPoint is one day of a dense, gap zero-filled per-category amount
// series, the unit consumed by the seasonality and trend models.
type DailyPoint struct {
	Date   time.Time
	Amount decimal.Decimal
}

// Category is an element of the closed, fixed taxonomy transactions are
// classified into. It is never extended at runtime.
type Category string

const (
	CategoryRent           Category = "rent"
	CategoryMortgage       Category = "mortgage"
	CategoryUtilities      Category = "utilities"
	CategoryInternet       Category = "internet"
	CategoryPhone          Category = "phone"
	CategoryInsurance      Category = "insurance"
	CategoryCarPayment     Category = "car_payment"
	CategorySubscriptions  Category = "subscriptions"
	CategoryCreditCardFee  Category = "credit_card_fee"
	CategoryBankFee        Category = "bank_fee"
	CategoryGroceries      Category = "groceries"
	CategoryGas            Category = "gas"
	CategoryDining         Category = "dining"
	CategoryEntertainment  Category = "entertainment"
	CategoryShopping       Category = "shopping"
	CategoryHealthcare     Category = "healthcare"
	CategoryGifts          Category = "gifts"
	CategoryTravel         Category = "travel"
	CategoryIncome         Category = "income"
	CategoryOther          Category = "other"
)

// categories is the complete, ordered taxonomy. Anything not in this list
// is a programmer error, not a runtime input error.
var categories = []Category{
	CategoryRent, CategoryMortgage, CategoryUtilities, CategoryInternet,
	CategoryPhone, CategoryInsurance, CategoryCarPayment, CategorySubscriptions,
	CategoryCreditCardFee, CategoryBankFee, CategoryGroceries, CategoryGas,
	CategoryDining, CategoryEntertainment, CategoryShopping, CategoryHealthcare,
	CategoryGifts, CategoryTravel, CategoryIncome, CategoryOther,
}

// extendedHistoryCategories bypass seasonal adjustment and use a longer
// lookback window in the behavior projector and recurrence augmentation.
var extendedHistoryCategories = map[Category]bool{
	CategoryRent:      true,
	CategoryMortgage:  true,
	CategoryInsurance: true,
	CategoryInternet:  true,
	CategoryPhone:     true,
	CategoryUtilities: true,
	CategoryIncome:    true,
}

func isValidCategory(c Category) bool {
	for _, known := range categories {
		if known == c {
			return true
		}
	}
	return false
}

// Pattern is the cadence of a scheduled event or a detected recurring
// template.
type Pattern string

const (
	PatternWeekly    Pattern = "weekly"
	PatternBiweekly  Pattern = "biweekly"
	PatternMonthly   Pattern = "monthly"
	PatternQuarterly Pattern = "quarterly"
	PatternYearly    Pattern = "yearly"
	PatternOneoff    Pattern = "oneoff"
)

// EventType classifies a composed event by provenance stage.
type EventType string

const (
	EventTypeHistorical EventType = "historical"
	EventTypeScheduled  EventType = "scheduled"
	EventTypeForecast   EventType = "forecast"
)

// ProjectionSource tags which projector produced a forecast-typed event.
// Modeled as spec.md §9's tagged variant; the composer is oblivious to
// provenance except when assembling habit insights.
type ProjectionSource string

const (
	SourceRecurring      ProjectionSource = "recurring"
	SourceBehavior       ProjectionSource = "behavior"
	SourceProphet        ProjectionSource = "prophet"
	SourceScheduled      ProjectionSource = "scheduled"
	SourceReconciliation ProjectionSource = "reconciliation"
)

// MonthDay represents a scheduled event's day-of-month anchor: either a
// concrete day 1..31 or the sentinel "last day of month".
type MonthDay struct {
	Day  int
	Last bool
	Set  bool
}

// UnmarshalJSON accepts either a JSON number (1..31) or the string "last".
func (m *MonthDay) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		if strings.EqualFold(strings.TrimSpace(asString), "last") {
			*m = MonthDay{Last: true, Set: true}
			return nil
		}
		n, err := strconv.Atoi(asString)
		if err != nil {
			return fmt.Errorf("invalid day value %q: %w", asString, err)
		}
		*m = MonthDay{Day: n, Set: true}
		return nil
	}
	var asInt int
	if err := json.Unmarshal(data, &asInt); err != nil {
		return fmt.Errorf("day must be an integer or \"last\": %w", err)
	}
	*m = MonthDay{Day: asInt, Set: true}
	return nil
}

// MarshalJSON renders the day as a number, or the string "last".
func (m MonthDay) MarshalJSON() ([]byte, error) {
	if !m.Set {
		return json.Marshal(nil)
	}
	if m.Last {
		return json.Marshal("last")
	}
	return json.Marshal(m.Day)
}

// Transaction is a single historical-ledger input record (spec.md §3).
// Sign convention: negative = expense, positive = income.
type Transaction struct {
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    *Category       `json:"category,omitempty"`
}

// ScheduledEvent is a user-declared recurring or one-off event (spec.md §3).
type ScheduledEvent struct {
	Pattern     Pattern         `json:"pattern"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Weekday     *int            `json:"weekday,omitempty"`
	Day         *MonthDay       `json:"day,omitempty"`
	Date        *time.Time      `json:"date,omitempty"`
}

// Event is a single composed transaction flowing through and out of the
// pipeline: a historical record, a materialized scheduled event, or a
// forecast-typed projection from one of the four projectors.
type Event struct {
	Date                   time.Time        `json:"date"`
	Description            string           `json:"description"`
	NormalizedDescription  string           `json:"-"`
	Amount                 decimal.Decimal  `json:"amount"`
	Category               Category         `json:"category"`
	Type                   EventType        `json:"type"`
	Source                 ProjectionSource `json:"projection_source,omitempty"`
}

// RecurringTemplate is a detected (or augmented) periodic series, the
// internal form described in spec.md §3.
type RecurringTemplate struct {
	NormalizedDescription string
	Description           string
	Category               Category
	Pattern                Pattern
	Amount                 decimal.Decimal // median of recent occurrences
	LastAmount             decimal.Decimal
	WeekdayMode            int
	DayMode                MonthDay
	LastDate               time.Time
	StdAmount              decimal.Decimal
	Type                   string // "income" | "expense"
	Confidence             float64
	Occurrences            int
}

// Request is the full input to Run: the forecast engine's sole entry
// point, a pure function of (Request, alias cache).
type Request struct {
	OpeningBalance decimal.Decimal  `json:"opening_balance"`
	Transactions   []Transaction    `json:"transactions"`
	Scheduled      []ScheduledEvent `json:"scheduled"`
	HorizonDays    int              `json:"horizon_days"`
	Method         string           `json:"method"`
	// Now overrides "today" for deterministic tests and backtesting. If
	// zero, time.Now() is used.
	Now time.Time `json:"-"`
}

// Method is the resolved projection mode after spec.md §6's mode mapping.
type Method string

const (
	MethodProphet   Method = "prophet"
	MethodBehavior  Method = "behavior"
	MethodRecurring Method = "recurring"
	MethodBaseline  Method = "baseline"
	MethodHybrid    Method = "hybrid"
)

// resolveMethod implements spec.md §6's mode mapping: "statistical" is an
// alias for "prophet"; anything unrecognized defaults to "prophet".
func resolveMethod(raw string) Method {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "prophet", "statistical":
		return MethodProphet
	case "behavior":
		return MethodBehavior
	case "recurring":
		return MethodRecurring
	case "baseline":
		return MethodBaseline
	case "hybrid":
		return MethodHybrid
	default:
		return MethodProphet
	}
}

// DailySummaryEntry is one day's net movement and end-of-day balance
// (spec.md §3 "Daily summary entry").
type DailySummaryEntry struct {
	Date    time.Time       `json:"date"`
	Amount  decimal.Decimal `json:"amount"`
	Balance decimal.Decimal `json:"balance"`
}

// TopExpense is one of a calendar day's top-3 expenses by magnitude.
type TopExpense struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// CalendarDay is one entry of the fixed 30-day calendar view.
type CalendarDay struct {
	Date        time.Time       `json:"date"`
	Net         decimal.Decimal `json:"net"`
	Income      decimal.Decimal `json:"income"`
	Expenses    decimal.Decimal `json:"expenses"`
	Balance     decimal.Decimal `json:"balance"`
	TopExpenses []TopExpense    `json:"top_expenses"`
}

// CategoryTotal is one line of a category breakdown.
type CategoryTotal struct {
	Category Category        `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// CategoryBreakdown splits totals into expense magnitudes and income.
type CategoryBreakdown struct {
	Expenses []CategoryTotal `json:"expenses"`
	Income   []CategoryTotal `json:"income"`
}

// HabitInsight is a human-readable description of a recurring or
// behavioral pattern (spec.md §4.9, glossary "Habit insight").
type HabitInsight struct {
	Category       Category         `json:"category"`
	Source         ProjectionSource `json:"source"`
	Pattern        Pattern          `json:"pattern"`
	AverageAmount  decimal.Decimal  `json:"average_amount"`
	NextOccurrence *time.Time       `json:"next_occurrence,omitempty"`
	Label          string           `json:"label"`
	Description    string           `json:"description"`
}

// Summary is the top-level response metadata (spec.md §4.9, §6).
type Summary struct {
	Method             Method            `json:"method"`
	OpeningBalance     decimal.Decimal   `json:"opening_balance"`
	FinalBalance       decimal.Decimal   `json:"final_balance"`
	NetChange          decimal.Decimal   `json:"net_change"`
	MinimumBalance     decimal.Decimal   `json:"minimum_balance"`
	MinimumBalanceDate *time.Time        `json:"minimum_balance_date,omitempty"`
	DaysToMin          int               `json:"days_to_min"`
	DaysToZero         *int              `json:"days_to_zero,omitempty"`
	StartDate          time.Time         `json:"start_date"`
	HorizonDays        int               `json:"horizon_days"`
	CategoryBreakdown  CategoryBreakdown `json:"category_breakdown"`
	Warnings           []string          `json:"warnings,omitempty"`
}

// Result is the full engine output (spec.md §6 /forecast response shape).
type Result struct {
	Summary      Summary              `json:"summary"`
	Forecast     []DailySummaryEntry  `json:"forecast"`
	Transactions []Event              `json:"transactions"`
	Calendar     []CalendarDay        `json:"calendar"`
	Habits       []HabitInsight       `json:"habits"`
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func absDecimal(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return d.Neg()
	}
	return d
}
