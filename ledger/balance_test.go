package ledger_test

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/canteen-ledger/ledger"
)

func TestReconstructBalance_MatchesAfterRandomActivity(t *testing.T) {
	// GIVEN: three employees and a few hundred random debits/credits
	// THEN: folding each history from zero equals the stored balance,
	//       and no successful debit left a balance above its limit

	engine := newTestEngine(ledger.Options{AdjustmentMode: ledger.AdjustmentRecord})
	s, _ := engine.ImportTable(ledger.NewState(nil), "h\n1,A,X,100\n2,B,X,50.5\n3,C,X,0")
	rng := rand.New(rand.NewSource(42))
	types := []ledger.TransactionType{ledger.TxDebit, ledger.TxDebit, ledger.TxCredit, ledger.TxAdjustment}

	for i := 0; i < 300; i++ {
		emp := s.Employees[rng.Intn(len(s.Employees))]
		amount := decimal.New(int64(rng.Intn(4000)+1), -2)
		next, err := engine.Apply(s, emp.ID, amount, types[rng.Intn(len(types))], "", "")
		if err != nil {
			assert.ErrorIs(t, err, ledger.ErrCreditLimitExceeded)
			assert.Equal(t, s, next)
			continue
		}
		s = next
		for _, e := range s.Employees {
			if e.ID == emp.ID {
				assert.False(t, e.OverLimit() && s.Transactions[0].Type == ledger.TxDebit)
			}
		}
	}

	for _, emp := range s.Employees {
		assert.True(t, ledger.ReconstructBalance(s.Transactions, emp.ID).Equal(emp.CurrentBalance), emp.ExternalID)
	}
	assert.Empty(t, ledger.VerifyBalances(s))
}

func TestVerifyBalances_ReportsDrift(t *testing.T) {
	engine := newTestEngine(ledger.Options{})
	s := stateWith(employee("e-1", "101", "500", "0"), employee("e-2", "102", "500", "0"))
	s, err := engine.Debit(s, "e-1", money("30"), "", "")
	require.NoError(t, err)

	// Corrupt the cached balance of e-2 only.
	s.Employees = append([]ledger.Employee{}, s.Employees...)
	s.Employees[1].CurrentBalance = money("7")

	drifts := ledger.VerifyBalances(s)
	require.Len(t, drifts, 1)
	assert.Equal(t, "e-2", drifts[0].EmployeeID)
	assert.Equal(t, "102", drifts[0].ExternalID)
	assert.True(t, drifts[0].Difference().Equal(money("7")))
}

func TestTransactionDelta(t *testing.T) {
	assert.True(t, ledger.Transaction{Type: ledger.TxDebit, Amount: money("3")}.Delta().Equal(money("3")))
	assert.True(t, ledger.Transaction{Type: ledger.TxCredit, Amount: money("3")}.Delta().Equal(money("-3")))
	assert.True(t, ledger.Transaction{Type: ledger.TxAdjustment, Amount: money("3")}.Delta().IsZero())
}
