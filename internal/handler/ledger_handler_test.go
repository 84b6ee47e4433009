package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dafibh/fortuna/fortuna-backend/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedgerContext(method, path, body string) (*httptest.ResponseRecorder, echo.Context) {
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	return rec, e.NewContext(req, rec)
}

func TestLedgerHandler_Create_RequiresName(t *testing.T) {
	h := NewLedgerHandler(testutil.NewMockLedgerRepository())
	rec, c := newLedgerContext(http.MethodPost, "/api/v1/ledgers", `{"opening_balance": "100"}`)

	err := h.Create(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLedgerHandler_CreateThenGet(t *testing.T) {
	repo := testutil.NewMockLedgerRepository()
	h := NewLedgerHandler(repo)

	rec, c := newLedgerContext(http.MethodPost, "/api/v1/ledgers", `{"name": "checking", "opening_balance": "500"}`)
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	ledgers, err := repo.List()
	require.NoError(t, err)
	require.Len(t, ledgers, 1)

	getRec, getCtx := newLedgerContext(http.MethodGet, "/api/v1/ledgers/"+ledgers[0].ID.String(), "")
	getCtx.SetParamNames("id")
	getCtx.SetParamValues(ledgers[0].ID.String())

	require.NoError(t, h.Get(getCtx))
	assert.Equal(t, http.StatusOK, getRec.Code)
}

func TestLedgerHandler_Get_NotFound(t *testing.T) {
	h := NewLedgerHandler(testutil.NewMockLedgerRepository())
	rec, c := newLedgerContext(http.MethodGet, "/api/v1/ledgers/00000000-0000-0000-0000-000000000001", "")
	c.SetParamNames("id")
	c.SetParamValues("00000000-0000-0000-0000-000000000001")

	err := h.Get(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLedgerHandler_Get_InvalidUUID(t *testing.T) {
	h := NewLedgerHandler(testutil.NewMockLedgerRepository())
	rec, c := newLedgerContext(http.MethodGet, "/api/v1/ledgers/not-a-uuid", "")
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	err := h.Get(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLedgerHandler_Delete(t *testing.T) {
	repo := testutil.NewMockLedgerRepository()
	h := NewLedgerHandler(repo)

	createRec, createCtx := newLedgerContext(http.MethodPost, "/api/v1/ledgers", `{"name": "checking", "opening_balance": "0"}`)
	require.NoError(t, h.Create(createCtx))
	require.Equal(t, http.StatusCreated, createRec.Code)

	ledgers, err := repo.List()
	require.NoError(t, err)
	require.Len(t, ledgers, 1)

	delRec, delCtx := newLedgerContext(http.MethodDelete, "/api/v1/ledgers/"+ledgers[0].ID.String(), "")
	delCtx.SetParamNames("id")
	delCtx.SetParamValues(ledgers[0].ID.String())

	require.NoError(t, h.Delete(delCtx))
	assert.Equal(t, http.StatusNoContent, delRec.Code)

	remaining, err := repo.List()
	require.NoError(t, err)
	assert.Empty(t, remaining)
}
