package ledger

import "errors"

var (
	// ErrNotFound is returned when a statement, line or owner does not exist.
	ErrNotFound = errors.New("ledger: not found")
	// ErrInvalidState is returned when an operation is illegal for the statement status.
	ErrInvalidState = errors.New("ledger: invalid statement state")
	// ErrDuplicatePeriod is returned when a partner period already has a statement.
	ErrDuplicatePeriod = errors.New("ledger: period already has a statement")
	// ErrValidation is returned for bad input before any write happens.
	ErrValidation = errors.New("ledger: invalid input")
	// ErrConflict is returned when a concurrent transition won the race. Safe to retry once.
	ErrConflict = errors.New("ledger: concurrent update conflict")
	// ErrStorageUnavailable is returned when the underlying store call failed.
	// The operation left no partial state and may be retried with backoff.
	ErrStorageUnavailable = errors.New("ledger: storage unavailable")
)
