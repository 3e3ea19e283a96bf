/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers match with errors.Is on the sentinels and errors.As on the
  structured types when they need the numbers.

ERROR CATEGORIES:
  1. Lookup errors - referenced employee does not exist
  2. Business rule errors - credit limit, invalid amount, adjustments
  3. User management errors - duplicate or malformed system users
  4. Store errors - missing snapshot, concurrent modification

FAILURE GUARANTEE:
  Every operation that returns one of these errors also returns the State
  it was given, untouched. Nothing is ever partially applied.

SEE ALSO:
  - processor.go: raises EmployeeNotFound / CreditLimitExceeded
  - users.go: raises ErrDuplicateUser
  - store.go: raises ErrSnapshotNotFound / ErrConcurrentModification
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEmployeeNotFound is returned when a referenced employee doesn't exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrCreditLimitExceeded is returned when a DEBIT would push the balance
	// above the credit limit.
	ErrCreditLimitExceeded = errors.New("credit limit exceeded")

	// ErrInvalidAmount is returned for amounts that are not positive, carry
	// more than AmountScale decimals or reach MaxAmount.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrAdjustmentUnsupported is returned for ADJUSTMENT transactions while
	// the engine runs in AdjustmentReject mode.
	ErrAdjustmentUnsupported = errors.New("adjustment transactions are not supported")

	// ErrUnknownTransactionType is returned for a type outside DEBIT/CREDIT/ADJUSTMENT.
	ErrUnknownTransactionType = errors.New("unknown transaction type")

	// ErrDuplicateUser is returned when a system user with the same
	// username already exists.
	ErrDuplicateUser = errors.New("user already exists")

	// ErrInvalidUser is returned for a system user without a username,
	// password hash or known role.
	ErrInvalidUser = errors.New("invalid system user")

	// ErrSnapshotNotFound is returned by a SnapshotStore that holds no state yet.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrConcurrentModification is returned when a snapshot is saved on top of
	// a version other than the one it was derived from.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// EmployeeNotFoundError names the employee that could not be resolved.
type EmployeeNotFoundError struct {
	EmployeeID string
	ExternalID string
}

func (e *EmployeeNotFoundError) Error() string {
	if e.ExternalID != "" {
		return fmt.Sprintf("employee not found: external id %s", e.ExternalID)
	}
	return fmt.Sprintf("employee not found: %s", e.EmployeeID)
}

func (e *EmployeeNotFoundError) Unwrap() error {
	return ErrEmployeeNotFound
}

// CreditLimitExceededError carries the numbers an operator needs to act on
// a rejected charge. The message is meant to be shown verbatim.
type CreditLimitExceededError struct {
	EmployeeID string
	Limit      decimal.Decimal
	Current    decimal.Decimal
	Requested  decimal.Decimal
}

func (e *CreditLimitExceededError) Error() string {
	return fmt.Sprintf("credit limit exceeded. Limit: %s, Current: %s, Requested: %s",
		e.Limit.StringFixed(2), e.Current.StringFixed(2), e.Requested.StringFixed(2))
}

func (e *CreditLimitExceededError) Unwrap() error {
	return ErrCreditLimitExceeded
}

// InvalidAmountError reports the rejected amount.
type InvalidAmountError struct {
	Amount decimal.Decimal
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount %s: must be positive, below %s, with at most %d decimals",
		AmountString(e.Amount), MaxAmount.String(), AmountScale)
}

func (e *InvalidAmountError) Unwrap() error {
	return ErrInvalidAmount
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrAdjustmentUnsupported) ||
		errors.Is(err, ErrUnknownTransactionType) ||
		errors.Is(err, ErrInvalidUser)
}

// IsConflict returns true if the request clashes with the current state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrCreditLimitExceeded) ||
		errors.Is(err, ErrDuplicateUser) ||
		errors.Is(err, ErrConcurrentModification)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrSnapshotNotFound)
}
