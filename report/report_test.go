package report_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/canteen-ledger/ledger"
	"github.com/warp/canteen-ledger/report"
)

var at = time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)

func TestWriteAuditLog(t *testing.T) {
	logs := []ledger.LogEntry{
		{ID: "l-2", Timestamp: at, Level: ledger.LevelError, User: "admin", Message: `Transaction Failed: "boom", again`},
		{ID: "l-1", Timestamp: at, Level: ledger.LevelInfo, User: "SYSTEM", Message: "User Login: admin"},
	}

	var buf bytes.Buffer
	require.NoError(t, report.WriteAuditLog(&buf, logs))

	want := "ID,Timestamp,Level,User,Message\n" +
		`l-2,2025-03-10T09:30:00Z,ERROR,admin,"Transaction Failed: ""boom"", again"` + "\n" +
		`l-1,2025-03-10T09:30:00Z,INFO,SYSTEM,"User Login: admin"`
	assert.Equal(t, want, buf.String())
}

func TestWriteAuditLog_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.WriteAuditLog(&buf, nil))
	assert.Equal(t, report.AuditHeader, buf.String())
}

func TestWriteGeneralReport(t *testing.T) {
	emps := []ledger.Employee{
		{ExternalID: "101", Name: "John Doe", Department: "Eng", CreditLimit: decimal.NewFromInt(500), CurrentBalance: decimal.NewFromInt(20)},
		{ExternalID: "102", Name: "Jane", Department: "HR", CreditLimit: decimal.NewFromInt(10), CurrentBalance: decimal.RequireFromString("10.5")},
	}

	var buf bytes.Buffer
	require.NoError(t, report.WriteGeneralReport(&buf, emps))

	want := "ID,Name,Department,Credit Limit,Current Balance,Status\n" +
		`101,"John Doe",Eng,500,20,OK` + "\n" +
		`102,"Jane",HR,10,10.5,OVER LIMIT`
	assert.Equal(t, want, buf.String())
}

func TestWriteStatement(t *testing.T) {
	txs := []ledger.Transaction{
		{Timestamp: at, Type: ledger.TxCredit, Amount: decimal.NewFromInt(5), PerformedBy: "admin", Note: "cash"},
		{Timestamp: at, Type: ledger.TxDebit, Amount: decimal.RequireFromString("7.25"), PerformedBy: "Unknown"},
	}

	var buf bytes.Buffer
	require.NoError(t, report.WriteStatement(&buf, txs))

	want := "Date,Transaction Type,Amount,Performed By,Note\n" +
		`2025-03-10T09:30:00Z,CREDIT,5,admin,"cash"` + "\n" +
		`2025-03-10T09:30:00Z,DEBIT,7.25,Unknown,""`
	assert.Equal(t, want, buf.String())
}
