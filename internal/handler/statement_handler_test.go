package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/dafibh/fortuna/fortuna-backend/internal/testutil"
	"github.com/dafibh/fortuna/fortuna-backend/internal/websocket"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "Date,Description,Amount\n" +
	"2026-01-03,Payroll Direct Deposit,2500.00\n" +
	"2026-01-05,Safeway Groceries,-85.12\n"

func TestStatementHandler_Import_RawBodyNoLedger(t *testing.T) {
	h := NewStatementHandler(nil, nil, &websocket.NoOpPublisher{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/import/statement?filename=checking.csv", bytes.NewBufferString(sampleCSV))
	req.Header.Set(echo.HeaderContentType, "text/csv")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Import(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatementHandler_Import_UnparsableBody(t *testing.T) {
	h := NewStatementHandler(nil, nil, &websocket.NoOpPublisher{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/import/statement", bytes.NewBufferString(""))
	req.Header.Set(echo.HeaderContentType, "text/csv")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Import(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatementHandler_Import_MergesIntoLedger(t *testing.T) {
	repo := testutil.NewMockLedgerRepository()
	ledger, err := repo.Create(domain.CreateLedgerInput{Name: "checking", OpeningBalance: decimal.NewFromInt(100)})
	require.NoError(t, err)

	h := NewStatementHandler(repo, nil, &websocket.NoOpPublisher{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/import/statement?ledger_id="+ledger.ID.String()+"&filename=checking.csv", bytes.NewBufferString(sampleCSV))
	req.Header.Set(echo.HeaderContentType, "text/csv")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	importErr := h.Import(c)
	require.NoError(t, importErr)
	assert.Equal(t, http.StatusOK, rec.Code)

	updated, err := repo.GetByID(ledger.ID)
	require.NoError(t, err)
	assert.Len(t, updated.Transactions, 2)
}

func TestStatementHandler_Import_Multipart(t *testing.T) {
	h := NewStatementHandler(nil, nil, &websocket.NoOpPublisher{})

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "checking.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(sampleCSV))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/import/statement", &buf)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	importErr := h.Import(c)
	require.NoError(t, importErr)
	assert.Equal(t, http.StatusOK, rec.Code)
}
