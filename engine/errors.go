/*
errors.go - Centralized error types for the engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers classify with errors.Is/errors.As; mutation paths are
  all-or-nothing, so any error here means nothing was persisted.

ERROR CATEGORIES:
  1. Validation errors - invalid entry fields, rejected before any mutation
  2. Stock errors      - FIFO pool exhausted or lot consumed elsewhere
  3. Consistency errors - internal invariant violations, hard failures
  4. Decryption errors - wrong backup key or corrupted payload
  5. Not-found errors  - missing or already hard-deleted records
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned when an entry or request is rejected before
	// it reaches persistence.
	ErrValidation = errors.New("validation failed")

	// ErrStockUnavailable is returned when a sale finds no unsold lot of the
	// requested type, or a restore references a lot consumed in the interim.
	ErrStockUnavailable = errors.New("no stock available")

	// ErrConsistency is returned on internal invariant violations. These
	// should not occur and are surfaced rather than silently patched.
	ErrConsistency = errors.New("ledger consistency violation")

	// ErrDecryption is returned when a backup payload cannot be opened with
	// the provided key. Distinct from generic I/O failures so the caller can
	// prompt for the key again.
	ErrDecryption = errors.New("bad key or corrupt backup data")

	// ErrNotFound is returned when operating on an id that does not exist or
	// was already hard-deleted.
	ErrNotFound = errors.New("record not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports which entry field made valuation impossible.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid entry: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// StockUnavailableError reports which item type (and, if pre-selected, which
// lot) could not be consumed or restored.
type StockUnavailableError struct {
	Item  ItemType
	LotID LotID
}

func (e *StockUnavailableError) Error() string {
	if e.LotID != "" {
		return fmt.Sprintf("no stock available: lot %s (%s) missing or already sold", e.LotID, e.Item)
	}
	return fmt.Sprintf("no stock available: no unsold %s lot", e.Item)
}

func (e *StockUnavailableError) Unwrap() error { return ErrStockUnavailable }

// ConsistencyError reports a broken internal invariant, e.g. a money-ledger
// sum diverging from the transaction's settled amount after sync.
type ConsistencyError struct {
	Tx     TxKey
	Detail string
}

func (e *ConsistencyError) Error() string {
	if e.Tx.IsZero() {
		return "consistency violation: " + e.Detail
	}
	return fmt.Sprintf("consistency violation on %s: %s", e.Tx, e.Detail)
}

func (e *ConsistencyError) Unwrap() error { return ErrConsistency }

// NotFoundError reports the kind and id of the missing record.
type NotFoundError struct {
	Kind string // "customer", "transaction", "lot", ...
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input
// rather than an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrStockUnavailable) ||
		errors.Is(err, ErrDecryption)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
