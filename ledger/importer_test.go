package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/canteen-ledger/ledger"
)

func TestImportTable_SingleRowIntoEmptyState(t *testing.T) {
	engine := newTestEngine(ledger.Options{})
	s := ledger.NewState(nil)

	s, report := engine.ImportTable(s, "ID,Name,Department,Limit\n101,John,Eng,500")

	require.Len(t, s.Employees, 1)
	emp := s.Employees[0]
	assert.Equal(t, "101", emp.ExternalID)
	assert.Equal(t, "John", emp.Name)
	assert.Equal(t, "Eng", emp.Department)
	assert.True(t, emp.CreditLimit.Equal(money("500")))
	assert.True(t, emp.CurrentBalance.IsZero())
	assert.NotEmpty(t, emp.ID)
	assert.Equal(t, 1, report.Created)

	assert.Empty(t, s.Transactions, "import records no transactions")
	assert.Empty(t, s.Logs, "import writes no log entries")
	assert.Empty(t, s.Tickets)
}

func TestImportTable_HeaderIsAlwaysSkipped(t *testing.T) {
	engine := newTestEngine(ledger.Options{})

	s, report := engine.ImportTable(ledger.NewState(nil), "101,Looks,Like,500\n102,Real,Row,300")

	require.Len(t, s.Employees, 1)
	assert.Equal(t, "102", s.Employees[0].ExternalID)
	assert.Equal(t, 1, report.Rows())
}

func TestImportTable_MalformedRowsSkipped(t *testing.T) {
	engine := newTestEngine(ledger.Options{})
	text := "ID,Name,Department,Limit\n" +
		"101,John,Eng\n" +
		"\n" +
		"102,Jane,HR,300\r\n" +
		"103,Bob,Ops,lots"

	s, report := engine.ImportTable(ledger.NewState(nil), text)

	require.Len(t, s.Employees, 2)
	assert.Equal(t, 2, report.Malformed)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 1, report.InvalidLimits)

	assert.True(t, s.Employees[0].CreditLimit.Equal(money("300")), "trailing CR trimmed")
	assert.True(t, s.Employees[1].CreditLimit.IsZero(), "unparsable limit becomes 0")
}

func TestImportTable_NegativeLimitBecomesZero(t *testing.T) {
	engine := newTestEngine(ledger.Options{})
	s, report := engine.ImportTable(ledger.NewState(nil), "h\n101,A,B,-50")

	require.Len(t, s.Employees, 1)
	assert.True(t, s.Employees[0].CreditLimit.IsZero())
	assert.Equal(t, 1, report.InvalidLimits)
}

func TestImportTable_OutOfRangeLimitBecomesZero(t *testing.T) {
	engine := newTestEngine(ledger.Options{})
	s, report := engine.ImportTable(ledger.NewState(nil), "h\n101,A,B,1e3000000\n102,C,D,500 EUR\n103,E,F,450.50")

	require.Len(t, s.Employees, 3)
	assert.True(t, s.Employees[0].CreditLimit.IsZero())
	assert.True(t, s.Employees[1].CreditLimit.IsZero(), "trailing text is not a number")
	assert.True(t, s.Employees[2].CreditLimit.Equal(money("450.5")))
	assert.Equal(t, 2, report.InvalidLimits)
}

func TestImportTable_ExtraColumnsIgnored(t *testing.T) {
	engine := newTestEngine(ledger.Options{})
	s, _ := engine.ImportTable(ledger.NewState(nil), "h\n101, John , Eng , 500 ,extra")

	require.Len(t, s.Employees, 1)
	assert.Equal(t, "John", s.Employees[0].Name)
	assert.Equal(t, "Eng", s.Employees[0].Department)
}

func TestImportTable_ExistingEmployeesUntouched(t *testing.T) {
	// GIVEN: employee 101 already exists with limit 500 and balance 120
	// WHEN: importing 101 again with a different limit, plus a new 102
	// THEN: 101 is unchanged and only 102 is added

	engine := newTestEngine(ledger.Options{})
	s := stateWith(employee("e-1", "101", "500", "120"))

	next, report := engine.ImportTable(s, "h\n101,Renamed,Sales,900\n102,Jane,HR,300")

	require.Len(t, next.Employees, 2)
	assert.Equal(t, s.Employees[0], next.Employees[0])
	assert.Equal(t, "102", next.Employees[1].ExternalID)
	assert.Equal(t, 1, report.Existing)
	assert.Equal(t, 1, report.Created)
}

func TestImportTable_ReimportIsIdempotentForExistingRows(t *testing.T) {
	engine := newTestEngine(ledger.Options{})
	s, _ := engine.ImportTable(ledger.NewState(nil), ledger.SampleRoster)
	require.Len(t, s.Employees, 5)

	again, report := engine.ImportTable(s, ledger.SampleRoster)
	assert.Len(t, again.Employees, 5)
	assert.Equal(t, 5, report.Existing)
	assert.Equal(t, 0, report.Created)
}

func TestImportTable_BatchDuplicates_ObservedBehaviour(t *testing.T) {
	// Two new rows sharing one external ID in a single import both become
	// employees: matching only looks at employees that existed beforehand.
	engine := newTestEngine(ledger.Options{})

	s, report := engine.ImportTable(ledger.NewState(nil), "h\n200,A,X,10\n200,B,Y,20")

	require.Len(t, s.Employees, 2)
	assert.Equal(t, "200", s.Employees[0].ExternalID)
	assert.Equal(t, "200", s.Employees[1].ExternalID)
	assert.NotEqual(t, s.Employees[0].ID, s.Employees[1].ID)
	assert.Equal(t, 2, report.Created)
}

func TestImportTable_BatchDuplicates_DedupeEnabled(t *testing.T) {
	engine := newTestEngine(ledger.Options{DedupeWithinBatch: true})

	s, report := engine.ImportTable(ledger.NewState(nil), "h\n200,A,X,10\n200,B,Y,20")

	require.Len(t, s.Employees, 1)
	assert.Equal(t, "A", s.Employees[0].Name, "first row wins")
	assert.Equal(t, 1, report.BatchDuplicates)
}

func TestImportTable_EmptyInput(t *testing.T) {
	engine := newTestEngine(ledger.Options{})
	s := ledger.NewState(nil)

	for _, text := range []string{"", "   ", "ID,Name,Department,Limit"} {
		next, report := engine.ImportTable(s, text)
		assert.Equal(t, s, next)
		assert.Equal(t, 0, report.Rows())
	}
}

func TestImportTable_InputNotMutated(t *testing.T) {
	engine := newTestEngine(ledger.Options{})
	s := stateWith(employee("e-1", "101", "500", "0"))
	before := s.Clone()

	_, _ = engine.ImportTable(s, "h\n102,Jane,HR,300")
	assert.Equal(t, before, s)
}
