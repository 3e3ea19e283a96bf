/*
Package report renders ledger snapshots as comma-separated exports.

FORMATS:
  Audit log:  ID,Timestamp,Level,User,Message
              only the message is quoted
  General:    ID,Name,Department,Credit Limit,Current Balance,Status
              ID is the external ID, name is quoted, Status is OVER LIMIT or OK
  Statement:  Date,Transaction Type,Amount,Performed By,Note
              one employee's history, newest first, note quoted

Quoted fields double any embedded quote. Unquoted fields are written as-is.
Timestamps are RFC 3339 UTC; amounts are plain decimals.
*/
package report

import (
	"bufio"
	"io"
	"strings"
	"time"

	"github.com/warp/canteen-ledger/ledger"
)

const (
	AuditHeader     = "ID,Timestamp,Level,User,Message"
	GeneralHeader   = "ID,Name,Department,Credit Limit,Current Balance,Status"
	StatementHeader = "Date,Transaction Type,Amount,Performed By,Note"
)

// WriteAuditLog writes the audit trail in stored order (newest first).
func WriteAuditLog(w io.Writer, logs []ledger.LogEntry) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(AuditHeader)
	for _, l := range logs {
		bw.WriteString("\n")
		writeFields(bw, l.ID, stamp(l.Timestamp), string(l.Level), l.User, quote(l.Message))
	}
	return bw.Flush()
}

// WriteGeneralReport writes one row per employee.
func WriteGeneralReport(w io.Writer, employees []ledger.Employee) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(GeneralHeader)
	for _, e := range employees {
		status := "OK"
		if e.OverLimit() {
			status = "OVER LIMIT"
		}
		bw.WriteString("\n")
		writeFields(bw, e.ExternalID, quote(e.Name), e.Department,
			e.CreditLimit.String(), e.CurrentBalance.String(), status)
	}
	return bw.Flush()
}

// WriteStatement writes the history of one employee.
func WriteStatement(w io.Writer, txs []ledger.Transaction) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(StatementHeader)
	for _, tx := range txs {
		bw.WriteString("\n")
		writeFields(bw, stamp(tx.Timestamp), string(tx.Type), tx.Amount.String(), tx.PerformedBy, quote(tx.Note))
	}
	return bw.Flush()
}

func writeFields(bw *bufio.Writer, fields ...string) {
	bw.WriteString(strings.Join(fields, ","))
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
