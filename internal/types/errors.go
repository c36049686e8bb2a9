package types

import "errors"

// Ledger error taxonomy. Callers match with errors.Is; the HTTP adapter
// maps each sentinel to a status code.
var (
	// ErrInvalidInput marks malformed sizes, prices or directions.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAccountNotFound marks a missing account referent.
	ErrAccountNotFound = errors.New("account not found")

	// ErrTradeNotFound marks a missing trade referent.
	ErrTradeNotFound = errors.New("trade not found")

	// ErrInvalidState marks an operation against a trade or account not in
	// the expected state, e.g. closing an already-closed trade. Surfaced
	// distinctly so callers cannot mistake it for success.
	ErrInvalidState = errors.New("invalid state")

	// ErrConcurrencyConflict is the transient loss of a balance-update
	// race. The ledger retries a bounded number of times before wrapping
	// it in ErrUnavailable.
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	// ErrUnavailable is returned when conflict retries are exhausted.
	ErrUnavailable = errors.New("unavailable")
)
