package domain

import "errors"

// Domain errors. Handlers translate these to RFC 7807 Problem Details via
// errors.Is (SPEC_FULL.md §2.2); internal/forecast itself stays HTTP-unaware
// and returns its own sentinel errors (see internal/forecast/errors.go).
var (
	ErrNotFound        = errors.New("resource not found")
	ErrLedgerNotFound  = errors.New("ledger not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrNameRequired    = errors.New("name is required")
	ErrInternalError   = errors.New("internal error")
	ErrEmptyHistory    = errors.New("ledger has no transaction history")
	ErrStatementFailed = errors.New("statement could not be parsed")
)

// Validation constants
const (
	MaxLedgerNameLength = 255
)
