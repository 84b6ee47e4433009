package forecast

import "errors"

// Engine-level sentinel errors. internal/forecast has no HTTP awareness;
// internal/handler translates these to RFC 7807 responses via errors.Is.
var (
	ErrInvalidHorizon    = errors.New("forecast: horizon_days must be positive")
	ErrEmptyRequest      = errors.New("forecast: opening balance, transactions, or scheduled events required")
	ErrModelUnavailable  = errors.New("forecast: prophet-style model unavailable for prophet-only request")
	ErrInvalidScheduled  = errors.New("forecast: invalid scheduled event")
	ErrInvalidTransaction = errors.New("forecast: invalid transaction")
)
