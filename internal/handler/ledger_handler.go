package handler

import (
	"errors"
	"net/http"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/dafibh/fortuna/fortuna-backend/internal/forecast"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// LedgerHandler serves POST /api/v1/ledgers and GET /api/v1/ledgers/{id}
// (SPEC_FULL.md §5): a named, persisted snapshot of a forecast.Request's
// inputs so callers don't have to resend full history on every /forecast
// call.
type LedgerHandler struct {
	ledgers domain.LedgerRepository
}

// NewLedgerHandler constructs a LedgerHandler.
func NewLedgerHandler(ledgers domain.LedgerRepository) *LedgerHandler {
	return &LedgerHandler{ledgers: ledgers}
}

type createLedgerBody struct {
	Name           string                    `json:"name"`
	OpeningBalance decimal.Decimal           `json:"opening_balance"`
	Transactions   []forecast.Transaction    `json:"transactions"`
	Scheduled      []forecast.ScheduledEvent `json:"scheduled"`
}

// Create handles POST /api/v1/ledgers.
func (h *LedgerHandler) Create(c echo.Context) error {
	var body createLedgerBody
	if err := c.Bind(&body); err != nil {
		return NewValidationError(c, "malformed request body: "+err.Error(), nil)
	}
	if body.Name == "" {
		return NewValidationError(c, domain.ErrNameRequired.Error(), []ValidationError{
			{Field: "name", Message: domain.ErrNameRequired.Error()},
		})
	}
	if len(body.Name) > domain.MaxLedgerNameLength {
		return NewValidationError(c, "name exceeds maximum length", []ValidationError{
			{Field: "name", Message: "must be at most 255 characters"},
		})
	}

	ledger, err := h.ledgers.Create(domain.CreateLedgerInput{
		Name:           body.Name,
		OpeningBalance: body.OpeningBalance,
		Transactions:   body.Transactions,
		Scheduled:      body.Scheduled,
	})
	if err != nil {
		log.Error().Err(err).Str("name", body.Name).Msg("failed to create ledger")
		return NewInternalError(c, "failed to create ledger")
	}

	return c.JSON(http.StatusCreated, ledger)
}

// Get handles GET /api/v1/ledgers/{id}.
func (h *LedgerHandler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "id is not a valid UUID", nil)
	}

	ledger, err := h.ledgers.GetByID(id)
	if err != nil {
		if errors.Is(err, domain.ErrLedgerNotFound) {
			return NewNotFoundError(c, "ledger not found")
		}
		log.Error().Err(err).Str("ledger_id", id.String()).Msg("failed to load ledger")
		return NewInternalError(c, "failed to load ledger")
	}

	return c.JSON(http.StatusOK, ledger)
}

// List handles GET /api/v1/ledgers.
func (h *LedgerHandler) List(c echo.Context) error {
	ledgers, err := h.ledgers.List()
	if err != nil {
		log.Error().Err(err).Msg("failed to list ledgers")
		return NewInternalError(c, "failed to list ledgers")
	}
	return c.JSON(http.StatusOK, ledgers)
}

type updateLedgerBody struct {
	Name           string                    `json:"name"`
	OpeningBalance decimal.Decimal           `json:"opening_balance"`
	Transactions   []forecast.Transaction    `json:"transactions"`
	Scheduled      []forecast.ScheduledEvent `json:"scheduled"`
}

// Update handles PUT /api/v1/ledgers/{id}.
func (h *LedgerHandler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "id is not a valid UUID", nil)
	}

	var body updateLedgerBody
	if err := c.Bind(&body); err != nil {
		return NewValidationError(c, "malformed request body: "+err.Error(), nil)
	}

	ledger, err := h.ledgers.Update(id, domain.UpdateLedgerInput{
		Name:           body.Name,
		OpeningBalance: body.OpeningBalance,
		Transactions:   body.Transactions,
		Scheduled:      body.Scheduled,
	})
	if err != nil {
		if errors.Is(err, domain.ErrLedgerNotFound) {
			return NewNotFoundError(c, "ledger not found")
		}
		log.Error().Err(err).Str("ledger_id", id.String()).Msg("failed to update ledger")
		return NewInternalError(c, "failed to update ledger")
	}

	return c.JSON(http.StatusOK, ledger)
}

// Delete handles DELETE /api/v1/ledgers/{id}.
func (h *LedgerHandler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "id is not a valid UUID", nil)
	}

	if err := h.ledgers.Delete(id); err != nil {
		if errors.Is(err, domain.ErrLedgerNotFound) {
			return NewNotFoundError(c, "ledger not found")
		}
		log.Error().Err(err).Str("ledger_id", id.String()).Msg("failed to delete ledger")
		return NewInternalError(c, "failed to delete ledger")
	}

	return c.NoContent(http.StatusNoContent)
}
