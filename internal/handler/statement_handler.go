package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/dafibh/fortuna/fortuna-backend/internal/repository/storage"
	"github.com/dafibh/fortuna/fortuna-backend/internal/statement"
	"github.com/dafibh/fortuna/fortuna-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// StatementArchive persists raw uploaded statement files, independent of
// the parsing step (SPEC_FULL.md §3, internal/repository/storage).
type StatementArchive interface {
	Upload(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64) (string, error)
}

// StatementHandler serves POST /api/v1/import/statement (spec.md §6).
type StatementHandler struct {
	ledgers   domain.LedgerRepository
	archive   StatementArchive
	publisher websocket.EventPublisher
}

// NewStatementHandler constructs a StatementHandler. ledgers and archive
// may both be nil, in which case the endpoint only parses and returns
// transactions without persisting them.
func NewStatementHandler(ledgers domain.LedgerRepository, archive StatementArchive, publisher websocket.EventPublisher) *StatementHandler {
	return &StatementHandler{ledgers: ledgers, archive: archive, publisher: publisher}
}

// Import handles POST /api/v1/import/statement. It accepts either a
// multipart/form-data upload with one or more "file" fields, or a raw
// body with Content-Type text/csv (or any non-multipart type), per
// SPEC_FULL.md §5.
func (h *StatementHandler) Import(c echo.Context) error {
	ledgerIDParam := c.QueryParam("ledger_id")
	statementType := statement.Type(c.QueryParam("statement_type"))
	if statementType != statement.TypeCreditCard {
		statementType = statement.TypeBankAccount
	}
	opts := statement.Options{StatementType: statementType}

	var results []statement.Result

	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return NewValidationError(c, "malformed multipart form: "+err.Error(), nil)
		}
		files := form.File["file"]
		if len(files) == 0 {
			return NewValidationError(c, "no \"file\" field present in multipart form", nil)
		}
		for _, fh := range files {
			result, err := h.parseUploadedFile(c, fh, opts, ledgerIDParam)
			if err != nil {
				return err
			}
			results = append(results, result)
		}
	} else {
		raw, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return NewValidationError(c, "failed to read request body", nil)
		}
		filename := c.QueryParam("filename")
		if filename == "" {
			filename = "upload.csv"
		}
		result, err := statement.Parse(filename, raw, opts)
		if err != nil {
			return statementParseError(c, filename, err)
		}
		if h.archive != nil {
			h.archiveUpload(c, ledgerIDParam, filename, raw)
		}
		results = append(results, result)
	}

	aggregated := statement.Aggregate(results)

	if ledgerIDParam != "" {
		if h.ledgers == nil {
			return NewValidationError(c, "ledger_id merge is not available on this deployment", nil)
		}
		id, err := uuid.Parse(ledgerIDParam)
		if err != nil {
			return NewValidationError(c, "ledger_id is not a valid UUID", nil)
		}
		ledger, err := h.ledgers.AppendTransactions(id, aggregated.Transactions)
		if err != nil {
			if errors.Is(err, domain.ErrLedgerNotFound) {
				return NewNotFoundError(c, "ledger not found")
			}
			log.Error().Err(err).Str("ledger_id", ledgerIDParam).Msg("failed to append imported transactions")
			return NewInternalError(c, "failed to merge imported transactions")
		}

		if h.publisher != nil {
			h.publisher.Publish(ledgerIDParam, websocket.StatementImported(map[string]interface{}{
				"rows": len(aggregated.Transactions),
			}))
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"ledger": ledger,
			"files":  aggregated.Summaries,
		})
	}

	return c.JSON(http.StatusOK, aggregated)
}

func (h *StatementHandler) parseUploadedFile(c echo.Context, fh *multipart.FileHeader, opts statement.Options, ledgerID string) (statement.Result, error) {
	src, err := fh.Open()
	if err != nil {
		return statement.Result{}, NewValidationError(c, "failed to open uploaded file: "+err.Error(), nil)
	}
	defer src.Close()

	raw, err := io.ReadAll(src)
	if err != nil {
		return statement.Result{}, NewValidationError(c, "failed to read uploaded file: "+err.Error(), nil)
	}

	result, err := statement.Parse(fh.Filename, raw, opts)
	if err != nil {
		return statement.Result{}, statementParseError(c, fh.Filename, err)
	}

	if h.archive != nil {
		h.archiveUpload(c, ledgerID, fh.Filename, raw)
	}

	return result, nil
}

func (h *StatementHandler) archiveUpload(c echo.Context, ledgerID string, filename string, raw []byte) {
	if ledgerID == "" {
		ledgerID = "unassigned"
	}
	key := storage.ArchiveKey(ledgerID, time.Now().UTC(), filename)
	if _, err := h.archive.Upload(c.Request().Context(), key, bytes.NewReader(raw), "text/csv", int64(len(raw))); err != nil {
		log.Warn().Err(err).Str("filename", filename).Msg("failed to archive uploaded statement")
	}
}

func statementParseError(c echo.Context, filename string, err error) error {
	var noRows *statement.ErrNoParsedRows
	switch {
	case errors.As(err, &noRows):
		return NewValidationError(c, filename+": "+err.Error(), nil)
	case errors.Is(err, statement.ErrEmptyFile), errors.Is(err, statement.ErrNoColumns):
		return NewValidationError(c, filename+": "+err.Error(), nil)
	default:
		log.Error().Err(err).Str("filename", filename).Msg("statement parse failed")
		return NewInternalError(c, "failed to parse statement file")
	}
}
