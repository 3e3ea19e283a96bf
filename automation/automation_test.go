package automation_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/canteen-ledger/automation"
	"github.com/warp/canteen-ledger/coordinator"
	"github.com/warp/canteen-ledger/ledger"
	"github.com/warp/canteen-ledger/ledger/store"
)

func newTestAdapter(t *testing.T) (*automation.Adapter, *coordinator.Coordinator) {
	t.Helper()
	c, err := coordinator.Open(context.Background(), store.NewMemory(), ledger.NewEngine(ledger.Options{}), nil, nil)
	require.NoError(t, err)
	a := automation.New(c, nil)
	report, _ := a.ImportCSV(context.Background(), "ID,Name,Department,Limit\n101,John,Eng,500")
	require.Equal(t, 1, report.Created)
	return a, c
}

func TestDebit_ByExternalID(t *testing.T) {
	a, c := newTestAdapter(t)

	res := a.Debit(context.Background(), "101", decimal.NewFromInt(20), "")
	require.True(t, res.Applied)

	emp, ok := a.GetEmployee("101")
	require.True(t, ok)
	assert.True(t, emp.CurrentBalance.Equal(decimal.NewFromInt(20)))

	s := c.Snapshot()
	assert.Equal(t, "API Debit", s.Transactions[0].Note)
	assert.Equal(t, "API Debit: 101 -20.00", s.Logs[0].Message)
}

func TestCredit_ByExternalID(t *testing.T) {
	a, c := newTestAdapter(t)

	res := a.Credit(context.Background(), "101", decimal.NewFromInt(5), "cash")
	require.True(t, res.Applied)

	s := c.Snapshot()
	assert.Equal(t, "cash", s.Transactions[0].Note)
	emp, _ := s.EmployeeByExternalID("101")
	assert.True(t, emp.CurrentBalance.Equal(decimal.NewFromInt(-5)))
}

func TestDebit_FailuresAreSwallowed(t *testing.T) {
	a, c := newTestAdapter(t)
	before := c.Snapshot()

	res := a.Debit(context.Background(), "999", decimal.NewFromInt(1), "")
	assert.False(t, res.Applied)
	assert.Contains(t, res.Reason, "external id 999")
	assert.Equal(t, before, c.Snapshot(), "no audit entry, no state change")

	res = a.Debit(context.Background(), "101", decimal.NewFromInt(501), "")
	assert.False(t, res.Applied)
	assert.Contains(t, res.Reason, "credit limit exceeded")
	assert.Equal(t, before, c.Snapshot())
}

func TestCredit_OversizedAmountSwallowed(t *testing.T) {
	a, c := newTestAdapter(t)
	before := c.Snapshot()

	res := a.Credit(context.Background(), "101", decimal.New(1, 3000000), "")
	assert.False(t, res.Applied)
	assert.Contains(t, res.Reason, "invalid amount")
	assert.Equal(t, before, c.Snapshot())
}

func TestGetEmployee_Unknown(t *testing.T) {
	a, _ := newTestAdapter(t)
	_, ok := a.GetEmployee("nope")
	assert.False(t, ok)
}

func TestImportCSV_SkipsExisting(t *testing.T) {
	a, c := newTestAdapter(t)

	report, s := a.ImportCSV(context.Background(), "h\n101,John,Eng,900\n102,Jane,HR,300")
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Existing)
	assert.Len(t, s.Employees, 2)
	assert.Equal(t, s, c.Snapshot())
}

func TestHelp(t *testing.T) {
	a, _ := newTestAdapter(t)
	assert.Contains(t, a.Help(), "debit(externalId, amount, note)")
}
