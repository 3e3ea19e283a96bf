/*
balance.go - Balance reconstruction from the transaction history

PURPOSE:
  The stored CurrentBalance is a cache of the history. Folding an employee's
  transactions oldest to newest from zero (+DEBIT, -CREDIT, ADJUSTMENT
  contributes nothing) must give the same number. VerifyBalances checks that
  for every employee and reports any drift.

SEE ALSO:
  - api/scheduler.go: periodic integrity runs built on VerifyBalances
*/
package ledger

import "github.com/shopspring/decimal"

// Delta returns the signed effect of tx on the owed balance.
func (tx Transaction) Delta() decimal.Decimal {
	switch tx.Type {
	case TxDebit:
		return tx.Amount
	case TxCredit:
		return tx.Amount.Neg()
	default:
		return decimal.Zero
	}
}

// ReconstructBalance folds the history of employeeID. txs is newest first,
// as stored in State.
func ReconstructBalance(txs []Transaction, employeeID string) decimal.Decimal {
	balance := decimal.Zero
	for i := len(txs) - 1; i >= 0; i-- {
		if txs[i].EmployeeID == employeeID {
			balance = balance.Add(txs[i].Delta())
		}
	}
	return balance
}

// BalanceDrift describes an employee whose stored balance disagrees with
// the history.
type BalanceDrift struct {
	EmployeeID    string
	ExternalID    string
	Recorded      decimal.Decimal
	Reconstructed decimal.Decimal
}

// Difference returns Recorded - Reconstructed.
func (d BalanceDrift) Difference() decimal.Decimal {
	return d.Recorded.Sub(d.Reconstructed)
}

// VerifyBalances returns one BalanceDrift per inconsistent employee.
func VerifyBalances(s State) []BalanceDrift {
	sums := make(map[string]decimal.Decimal, len(s.Employees))
	for i := len(s.Transactions) - 1; i >= 0; i-- {
		tx := s.Transactions[i]
		sums[tx.EmployeeID] = sums[tx.EmployeeID].Add(tx.Delta())
	}

	var drifts []BalanceDrift
	for _, emp := range s.Employees {
		rebuilt := sums[emp.ID]
		if !rebuilt.Equal(emp.CurrentBalance) {
			drifts = append(drifts, BalanceDrift{
				EmployeeID:    emp.ID,
				ExternalID:    emp.ExternalID,
				Recorded:      emp.CurrentBalance,
				Reconstructed: rebuilt,
			})
		}
	}
	return drifts
}
