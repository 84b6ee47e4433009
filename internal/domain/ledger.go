package domain

import (
	"time"

	"github.com/dafibh/fortuna/fortuna-backend/internal/forecast"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger is a named, persisted snapshot of a forecast.Request's inputs:
// an opening balance, historical transactions, and user-declared
// scheduled events. Saving one lets `/forecast` be called with a
// `ledger_id` instead of the full payload, and lets the backtest harness
// replay real history (spec.md §3, SPEC_FULL.md §3 "LedgerRepository").
type Ledger struct {
	ID             uuid.UUID                `json:"id"`
	Name           string                   `json:"name"`
	OpeningBalance decimal.Decimal          `json:"openingBalance"`
	Transactions   []forecast.Transaction   `json:"transactions"`
	Scheduled      []forecast.ScheduledEvent `json:"scheduled"`
	CreatedAt      time.Time                `json:"createdAt"`
	UpdatedAt      time.Time                `json:"updatedAt"`
}

// CreateLedgerInput is the input to LedgerRepository.Create.
type CreateLedgerInput struct {
	Name           string
	OpeningBalance decimal.Decimal
	Transactions   []forecast.Transaction
	Scheduled      []forecast.ScheduledEvent
}

// UpdateLedgerInput is the input to LedgerRepository.Update. A nil slice
// leaves the corresponding column untouched.
type UpdateLedgerInput struct {
	Name           string
	OpeningBalance decimal.Decimal
	Transactions   []forecast.Transaction
	Scheduled      []forecast.ScheduledEvent
}

// LedgerRepository persists named ledgers so the forecast and backtest
// surfaces can address history by ID instead of carrying it on every
// request.
type LedgerRepository interface {
	Create(input CreateLedgerInput) (*Ledger, error)
	GetByID(id uuid.UUID) (*Ledger, error)
	Update(id uuid.UUID, input UpdateLedgerInput) (*Ledger, error)
	Delete(id uuid.UUID) error
	List() ([]*Ledger, error)
	// AppendTransactions merges newly imported statement transactions
	// into an existing ledger's history (POST /import/statement with a
	// ledger_id target), deduplicating by (date, description, amount).
	AppendTransactions(id uuid.UUID, transactions []forecast.Transaction) (*Ledger, error)
}
