package ledger_test

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/canteen-ledger/ledger"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var testNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

// newTestEngine returns an engine with a frozen clock and sequential IDs.
func newTestEngine(opts ledger.Options) *ledger.Engine {
	n := 0
	opts.Clock = func() time.Time { return testNow }
	opts.IDs = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return ledger.NewEngine(opts)
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func employee(id, externalID, limit, balance string) ledger.Employee {
	return ledger.Employee{
		ID:             id,
		ExternalID:     externalID,
		Name:           "Employee " + externalID,
		Department:     "Engineering",
		CreditLimit:    money(limit),
		CurrentBalance: money(balance),
	}
}

func stateWith(emps ...ledger.Employee) ledger.State {
	s := ledger.NewState(nil)
	s.Employees = append(s.Employees, emps...)
	return s
}
