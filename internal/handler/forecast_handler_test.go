package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/dafibh/fortuna/fortuna-backend/internal/forecast"
	"github.com/dafibh/fortuna/fortuna-backend/internal/testutil"
	"github.com/dafibh/fortuna/fortuna-backend/internal/websocket"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newForecastRequest(body string) (*http.Request, *httptest.ResponseRecorder, echo.Context) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/forecast", bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return req, rec, e.NewContext(req, rec)
}

func TestForecastHandler_Forecast_InlinePayload(t *testing.T) {
	h := NewForecastHandler(forecast.NewEngine(), nil, &websocket.NoOpPublisher{})

	body := `{
		"opening_balance": "1000",
		"transactions": [{"date": "2026-01-01T00:00:00Z", "description": "Payroll", "amount": "3000"}],
		"horizon_days": 30,
		"method": "baseline"
	}`
	_, rec, c := newForecastRequest(body)

	err := h.Forecast(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestForecastHandler_Forecast_MalformedBody(t *testing.T) {
	h := NewForecastHandler(forecast.NewEngine(), nil, &websocket.NoOpPublisher{})

	_, rec, c := newForecastRequest(`{"opening_balance": not-json}`)

	err := h.Forecast(c)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForecastHandler_Forecast_UnknownLedgerID(t *testing.T) {
	ledgers := testutil.NewMockLedgerRepository()
	h := NewForecastHandler(forecast.NewEngine(), ledgers, &websocket.NoOpPublisher{})

	_, rec, c := newForecastRequest(`{"ledger_id": "00000000-0000-0000-0000-000000000001"}`)

	err := h.Forecast(c)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestForecastHandler_Forecast_LedgerIDNotUUID(t *testing.T) {
	ledgers := testutil.NewMockLedgerRepository()
	h := NewForecastHandler(forecast.NewEngine(), ledgers, &websocket.NoOpPublisher{})

	_, rec, c := newForecastRequest(`{"ledger_id": "not-a-uuid"}`)

	err := h.Forecast(c)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForecastHandler_Forecast_LedgerIDWithoutRepository(t *testing.T) {
	h := NewForecastHandler(forecast.NewEngine(), nil, &websocket.NoOpPublisher{})

	_, rec, c := newForecastRequest(`{"ledger_id": "00000000-0000-0000-0000-000000000001"}`)

	err := h.Forecast(c)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForecastHandler_Forecast_SavedLedger(t *testing.T) {
	ledgers := testutil.NewMockLedgerRepository()
	ledger, err := ledgers.Create(domain.CreateLedgerInput{
		Name:           "checking",
		OpeningBalance: decimal.NewFromInt(500),
		Transactions: []forecast.Transaction{
			{Description: "Payroll", Amount: decimal.NewFromInt(2000)},
		},
	})
	require.NoError(t, err)

	h := NewForecastHandler(forecast.NewEngine(), ledgers, &websocket.NoOpPublisher{})

	_, rec, c := newForecastRequest(`{"ledger_id": "` + ledger.ID.String() + `", "method": "baseline", "horizon_days": 10}`)

	runErr := h.Forecast(c)
	require.NoError(t, runErr)
	assert.Equal(t, http.StatusOK, rec.Code)
}
