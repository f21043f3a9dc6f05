package domain

import (
	"errors"
	"fmt"
)

// Error types for consistent error handling across the ledger core.

// ErrNotFound indicates a referenced record does not exist.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates a local record failed field/shape rules before any
// network call. Never retried automatically.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrDuplicate indicates a unique field collides with an existing record.
type ErrDuplicate struct {
	Field string
	Value string
}

func (e *ErrDuplicate) Error() string {
	return fmt.Sprintf("duplicate %s: %s", e.Field, e.Value)
}

// ErrExternalSync indicates a remote ledger call failed. It is recorded into
// the record's sync error trail and the record stays eligible for retry.
type ErrExternalSync struct {
	Code    string
	Message string
	Err     error
}

func (e *ErrExternalSync) Error() string {
	return fmt.Sprintf("remote ledger error [%s]: %s", e.Code, e.Message)
}

func (e *ErrExternalSync) Unwrap() error {
	return e.Err
}

// ErrStorage indicates the persistence layer failed. Distinct from
// ErrExternalSync: "we couldn't save the outcome" is not "the remote
// rejected this", and it is never written to the sync error trail.
type ErrStorage struct {
	Op  string
	Err error
}

func (e *ErrStorage) Error() string {
	return fmt.Sprintf("storage error [%s]: %v", e.Op, e.Err)
}

func (e *ErrStorage) Unwrap() error {
	return e.Err
}

// ErrConflict indicates an optimistic-concurrency version check failed:
// another writer persisted the record since this copy was read.
type ErrConflict struct {
	Resource string
	ID       string
}

func (e *ErrConflict) Error() string {
	return fmt.Sprintf("stale write on %s: %s", e.Resource, e.ID)
}

// ErrCircuitOpen indicates the remote ledger circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// SyncFailureCode maps an error to the code stored in a record's sync error
// trail. Unrecognized errors get "UNKNOWN".
func SyncFailureCode(err error) string {
	var external *ErrExternalSync
	var circuitOpen *ErrCircuitOpen
	var timeout *ErrTimeout

	switch {
	case errors.As(err, &external):
		if external.Code != "" {
			return external.Code
		}
		return "UNKNOWN"
	case errors.As(err, &circuitOpen):
		return "CIRCUIT_OPEN"
	case errors.As(err, &timeout):
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}
