/*
processor.go - Debit/credit processing against one employee

PURPOSE:
  Validates and applies a single balance change. The employee's new balance
  and the new Transaction record are produced in the same returned State;
  there is no path that yields one without the other.

RULES:
  DEBIT:      balance + amount must not exceed the credit limit (exact check)
  CREDIT:     balance - amount, no floor; a negative balance is overpayment
  ADJUSTMENT: see AdjustmentMode
  AMOUNT:     positive, at most AmountScale decimals, below MaxAmount

FAILURES:
  EmployeeNotFoundError, InvalidAmountError, CreditLimitExceededError,
  ErrAdjustmentUnsupported. The input State is returned unchanged. Logging a
  failure is the caller's job.

EXAMPLE:
  next, err := engine.Apply(state, emp.ID, decimal.NewFromInt(12), ledger.TxDebit, "lunch", "admin")
  if errors.Is(err, ledger.ErrCreditLimitExceeded) {
      // show err.Error() to the operator
  }
*/
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of decimals an amount may carry.
const AmountScale = 2

// MaxAmount bounds transaction amounts and credit limits.
var MaxAmount = decimal.New(1, 9)

// maxExponent is the largest exponent a value below MaxAmount can have.
const maxExponent = 9

// ValidAmount reports whether d is usable as a transaction amount.
func ValidAmount(d decimal.Decimal) bool {
	return d.IsPositive() && inRange(d)
}

// inRange checks magnitude and scale. The exponent is checked first so huge
// values are rejected without big-number arithmetic.
func inRange(d decimal.Decimal) bool {
	exp := d.Exponent()
	if exp > maxExponent || exp < -2*maxExponent {
		return false
	}
	return d.Abs().LessThan(MaxAmount) && d.Truncate(AmountScale).Equal(d)
}

// AmountString renders d for messages. Values with an out-of-range exponent
// are shown in exponent form instead of being expanded.
func AmountString(d decimal.Decimal) string {
	if exp := d.Exponent(); exp > maxExponent || exp < -2*maxExponent {
		return fmt.Sprintf("%se%d", d.Coefficient().String(), exp)
	}
	return d.String()
}

// Apply records one transaction for employeeID and returns the new State.
func (e *Engine) Apply(
	s State,
	employeeID string,
	amount decimal.Decimal,
	txType TransactionType,
	note string,
	actor string,
) (State, error) {
	idx := s.employeeIndex(employeeID)
	if idx < 0 {
		return s, &EmployeeNotFoundError{EmployeeID: employeeID}
	}
	if !ValidAmount(amount) {
		return s, &InvalidAmountError{Amount: amount}
	}

	emp := s.Employees[idx]
	balance := emp.CurrentBalance

	switch txType {
	case TxDebit:
		balance = balance.Add(amount)
		if balance.GreaterThan(emp.CreditLimit) {
			return s, &CreditLimitExceededError{
				EmployeeID: emp.ID,
				Limit:      emp.CreditLimit,
				Current:    emp.CurrentBalance,
				Requested:  amount,
			}
		}
	case TxCredit:
		balance = balance.Sub(amount)
	case TxAdjustment:
		if e.opts.AdjustmentMode != AdjustmentRecord {
			return s, ErrAdjustmentUnsupported
		}
	default:
		return s, fmt.Errorf("%w: %q", ErrUnknownTransactionType, txType)
	}

	tx := Transaction{
		ID:          e.newID(),
		EmployeeID:  emp.ID,
		Amount:      amount,
		Type:        txType,
		Timestamp:   e.now(),
		PerformedBy: s.actor(actor, ActorUnknown),
		Note:        note,
	}

	employees := append([]Employee{}, s.Employees...)
	emp.CurrentBalance = balance
	employees[idx] = emp

	next := s
	next.Employees = employees
	next.Transactions = prepend(tx, s.Transactions, 0)
	return next, nil
}

// Debit is Apply with TxDebit.
func (e *Engine) Debit(s State, employeeID string, amount decimal.Decimal, note, actor string) (State, error) {
	return e.Apply(s, employeeID, amount, TxDebit, note, actor)
}

// Credit is Apply with TxCredit.
func (e *Engine) Credit(s State, employeeID string, amount decimal.Decimal, note, actor string) (State, error) {
	return e.Apply(s, employeeID, amount, TxCredit, note, actor)
}
