package forecast

import (
	"fmt"
	"time"
)

// Engine runs the full forecast pipeline: normalize -> categorize ->
// history/seasonality -> recurrence -> behavior -> trend -> reconciliation
// -> compose -> sanitize (spec.md §3-§4.10). It holds the process-wide
// alias cache (spec.md §5) and is safe for concurrent use across requests.
type Engine struct {
	categorizer *Categorizer
	trendModel  TrendModel
	// ModelAvailable simulates the presence of the trend model's backing
	// library (spec.md §5, §7, §8 invariant 6 "Degraded mode"). Always
	// true in production; tests can flip it to exercise degradation.
	ModelAvailable bool
}

// NewEngine constructs an Engine with a fresh alias cache and the
// Prophet-style trend model (spec.md §9's pluggable TrendModel interface).
func NewEngine() *Engine {
	return &Engine{
		categorizer:    NewCategorizer(),
		trendModel:     prophetStyleModel{},
		ModelAvailable: true,
	}
}

// Run executes the pipeline for a single request (spec.md §3, §6). It is a
// pure function of (req, alias cache): repeated identical requests against
// the same Engine produce identical results except for alias-cache growth,
// which is itself idempotent by value (spec.md §5).
func (e *Engine) Run(req Request) (Result, error) {
	if req.HorizonDays < 0 {
		return Result{}, ErrInvalidHorizon
	}
	horizonDays := req.HorizonDays
	if horizonDays == 0 {
		horizonDays = 30
	}

	if len(req.Transactions) == 0 && len(req.Scheduled) == 0 && req.OpeningBalance.IsZero() {
		return Result{}, ErrEmptyRequest
	}

	now := req.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	today := truncateDay(now)

	method := resolveMethod(req.Method)

	normalized := Normalize(req.Transactions)
	e.categorizer.CategorizeEvents(normalized, nil)
	history := BuildHistory(normalized, req.OpeningBalance)

	// start_date = max(today, last_history_date + 1 day) (spec.md glossary).
	startDate := today
	if history.HasData {
		dayAfterHistory := history.LastDate.AddDate(0, 0, 1)
		if dayAfterHistory.After(startDate) {
			startDate = dayAfterHistory
		}
	}

	scheduledEvents, err := materializeScheduled(req.Scheduled, e.categorizer, startDate, horizonDays)
	if err != nil {
		return Result{}, err
	}

	var warnings []string

	if method == MethodBaseline {
		result := Compose(method, history, startDate, horizonDays, scheduledEvents, nil, nil, nil, nil, nil, warnings)
		return result, nil
	}

	seasonality := SeasonalityFactors(history.CategorySeries)
	templates := DetectRecurringTemplates(history, startDate)
	recurringEvents := ProjectRecurring(templates, scheduledEvents, startDate, horizonDays, seasonality)

	if method == MethodRecurring {
		result := Compose(method, history, startDate, horizonDays, scheduledEvents, recurringEvents, nil, nil, nil, templates, warnings)
		return result, nil
	}

	behaviorEvents := ProjectBehavior(history, templates, startDate, horizonDays, seasonality)

	if method == MethodBehavior {
		result := Compose(method, history, startDate, horizonDays, scheduledEvents, recurringEvents, behaviorEvents, nil, nil, templates, warnings)
		return result, nil
	}

	var trendEvents []Event
	switch method {
	case MethodProphet:
		if !e.ModelAvailable {
			return Result{}, ErrModelUnavailable
		}
		trendEvents = ProjectTrend(history, templates, startDate, horizonDays, e.trendModel, seasonality)
	case MethodHybrid:
		if !e.ModelAvailable {
			warnings = append(warnings, "trend model unavailable: degraded to recurring + behavior")
		} else {
			trendEvents = ProjectTrend(history, templates, startDate, horizonDays, e.trendModel, seasonality)
		}
	}

	composedForReconciliation := make([]Event, 0, len(scheduledEvents)+len(recurringEvents)+len(behaviorEvents)+len(trendEvents))
	composedForReconciliation = append(composedForReconciliation, scheduledEvents...)
	composedForReconciliation = append(composedForReconciliation, recurringEvents...)
	composedForReconciliation = append(composedForReconciliation, behaviorEvents...)
	composedForReconciliation = append(composedForReconciliation, trendEvents...)

	injected, reconWarnings := Reconcile(composedForReconciliation, history, startDate, horizonDays)
	warnings = append(warnings, reconWarnings...)

	result := Compose(method, history, startDate, horizonDays, scheduledEvents, recurringEvents, behaviorEvents, trendEvents, injected, templates, warnings)
	return result, nil
}

// materializeScheduled expands each ScheduledEvent declaration into
// concrete forecast-typed events within the horizon (spec.md §3, §4.5).
func materializeScheduled(scheduled []ScheduledEvent, categorizer *Categorizer, startDate time.Time, horizonDays int) ([]Event, error) {
	endDate := startDate.AddDate(0, 0, horizonDays)
	var out []Event

	for _, s := range scheduled {
		normalized := NormalizeDescription(s.Description)
		category := categorizer.CategorizeDescription(s.Description, normalized, s.Amount)

		switch s.Pattern {
		case PatternOneoff:
			if s.Date == nil {
				return nil, fmt.Errorf("%w: oneoff scheduled event requires date", ErrInvalidScheduled)
			}
			d := truncateDay(*s.Date)
			if d.Before(startDate) || !d.Before(endDate) {
				continue
			}
			out = append(out, scheduledEvent(s, normalized, category, d))

		case PatternWeekly, PatternBiweekly:
			if s.Weekday == nil {
				return nil, fmt.Errorf("%w: %s scheduled event requires weekday", ErrInvalidScheduled, s.Pattern)
			}
			step := 7
			if s.Pattern == PatternBiweekly {
				step = 14
			}
			cursor := alignToWeekday(startOfWeek(startDate), *s.Weekday)
			for ; cursor.Before(endDate); cursor = cursor.AddDate(0, 0, step) {
				if cursor.Before(startDate) {
					continue
				}
				out = append(out, scheduledEvent(s, normalized, category, cursor))
			}

		case PatternMonthly, PatternQuarterly, PatternYearly:
			if s.Day == nil {
				return nil, fmt.Errorf("%w: %s scheduled event requires day", ErrInvalidScheduled, s.Pattern)
			}
			months := 1
			if s.Pattern == PatternQuarterly {
				months = 3
			} else if s.Pattern == PatternYearly {
				months = 12
			}
			cursor := clampedDate(startDate.Year(), startDate.Month(), *s.Day)
			if cursor.Before(startDate) {
				cursor = addMonthsClamped(cursor, months, *s.Day)
			}
			for ; cursor.Before(endDate); cursor = addMonthsClamped(cursor, months, *s.Day) {
				if cursor.Before(startDate) {
					continue
				}
				out = append(out, scheduledEvent(s, normalized, category, cursor))
			}

		default:
			return nil, fmt.Errorf("%w: unknown pattern %q", ErrInvalidScheduled, s.Pattern)
		}
	}

	return out, nil
}

func scheduledEvent(s ScheduledEvent, normalized string, category Category, date time.Time) Event {
	return Event{
		Date:                  date,
		Description:           s.Description,
		NormalizedDescription: normalized,
		Amount:                s.Amount,
		Category:              category,
		Type:                  EventTypeForecast,
		Source:                SourceScheduled,
	}
}
