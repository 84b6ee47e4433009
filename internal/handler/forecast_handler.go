package handler

import (
	"errors"
	"net/http"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/dafibh/fortuna/fortuna-backend/internal/forecast"
	"github.com/dafibh/fortuna/fortuna-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ForecastHandler serves POST /api/v1/forecast (spec.md §6).
type ForecastHandler struct {
	engine    *forecast.Engine
	ledgers   domain.LedgerRepository
	publisher websocket.EventPublisher
}

// NewForecastHandler constructs a ForecastHandler. ledgers may be nil if
// the deployment never wires a LedgerRepository; in that case requests
// must supply a full payload rather than a ledger_id.
func NewForecastHandler(engine *forecast.Engine, ledgers domain.LedgerRepository, publisher websocket.EventPublisher) *ForecastHandler {
	return &ForecastHandler{engine: engine, ledgers: ledgers, publisher: publisher}
}

// forecastRequestBody is the wire shape of POST /forecast. It accepts
// either a ledger_id (looked up via LedgerRepository) or an inline
// payload matching forecast.Request.
type forecastRequestBody struct {
	LedgerID       string                    `json:"ledger_id,omitempty"`
	OpeningBalance decimal.Decimal           `json:"opening_balance,omitempty"`
	Transactions   []forecast.Transaction    `json:"transactions,omitempty"`
	Scheduled      []forecast.ScheduledEvent `json:"scheduled,omitempty"`
	HorizonDays    int                       `json:"horizon_days,omitempty"`
	Method         string                    `json:"method,omitempty"`
}

// Forecast handles POST /api/v1/forecast.
func (h *ForecastHandler) Forecast(c echo.Context) error {
	var body forecastRequestBody
	if err := c.Bind(&body); err != nil {
		return NewValidationError(c, "malformed request body: "+err.Error(), nil)
	}

	req := forecast.Request{
		OpeningBalance: body.OpeningBalance,
		Transactions:   body.Transactions,
		Scheduled:      body.Scheduled,
		HorizonDays:    body.HorizonDays,
		Method:         body.Method,
	}

	var ledgerID uuid.UUID
	if body.LedgerID != "" {
		if h.ledgers == nil {
			return NewValidationError(c, "ledger_id lookup is not available on this deployment", nil)
		}
		id, err := uuid.Parse(body.LedgerID)
		if err != nil {
			return NewValidationError(c, "ledger_id is not a valid UUID", nil)
		}
		ledgerID = id

		ledger, err := h.ledgers.GetByID(id)
		if err != nil {
			if errors.Is(err, domain.ErrLedgerNotFound) {
				return NewNotFoundError(c, "ledger not found")
			}
			log.Error().Err(err).Str("ledger_id", body.LedgerID).Msg("failed to load ledger")
			return NewInternalError(c, "failed to load ledger")
		}

		req.OpeningBalance = ledger.OpeningBalance
		req.Transactions = ledger.Transactions
		req.Scheduled = ledger.Scheduled
	}

	result, err := h.engine.Run(req)
	if err != nil {
		if h.publisher != nil && ledgerID != uuid.Nil {
			h.publisher.Publish(ledgerID.String(), websocket.ForecastFailed(map[string]interface{}{
				"error": err.Error(),
			}))
		}
		return forecastRunError(c, err)
	}

	if h.publisher != nil && ledgerID != uuid.Nil {
		h.publisher.Publish(ledgerID.String(), websocket.ForecastCompleted(map[string]interface{}{
			"final_balance": result.Summary.FinalBalance.String(),
			"method":        result.Summary.Method,
		}))
	}

	return c.JSON(http.StatusOK, result)
}

// forecastRunError maps internal/forecast's sentinel errors to RFC 7807
// responses without internal/forecast importing anything HTTP-aware.
func forecastRunError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, forecast.ErrInvalidHorizon),
		errors.Is(err, forecast.ErrEmptyRequest),
		errors.Is(err, forecast.ErrInvalidScheduled),
		errors.Is(err, forecast.ErrInvalidTransaction):
		return NewValidationError(c, err.Error(), nil)
	case errors.Is(err, forecast.ErrModelUnavailable):
		return c.JSON(http.StatusServiceUnavailable, ProblemDetails{
			Type:     ErrorTypeInternal,
			Title:    "Trend Model Unavailable",
			Status:   http.StatusServiceUnavailable,
			Detail:   err.Error(),
			Instance: c.Request().URL.Path,
		})
	default:
		log.Error().Err(err).Msg("forecast engine run failed")
		return NewInternalError(c, "forecast computation failed")
	}
}
