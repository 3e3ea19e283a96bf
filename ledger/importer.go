/*
importer.go - Roster import (insert-if-absent)

PURPOSE:
  Merges a comma-separated employee feed into the employee set. Existing
  employees are never updated: a row whose external ID is already known is
  skipped. New employees start with a zero balance.

FORMAT:
  externalId,name,department,creditLimit
  - first line is a header and is always skipped
  - rows are split on "," with no quoting; embedded commas misparse
  - rows with fewer than 4 columns are skipped
  - an unparsable or negative credit limit becomes 0

BATCH DUPLICATES:
  Rows are matched against the employees that existed BEFORE the import.
  Two new rows with the same external ID both become employees unless
  Options.DedupeWithinBatch is set.

The import never fails. The ImportReport says what happened to each row.
*/
package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ImportColumns is the minimum number of columns a roster row needs.
const ImportColumns = 4

// ImportReport counts how the rows of one import were handled.
type ImportReport struct {
	Created         int
	Existing        int // external ID already present before the import
	Malformed       int // fewer than ImportColumns columns
	BatchDuplicates int // repeated within the batch (DedupeWithinBatch only)
	InvalidLimits   int // created with a zero limit because the value did not parse
}

// Rows returns the number of data rows seen (header excluded).
func (r ImportReport) Rows() int {
	return r.Created + r.Existing + r.Malformed + r.BatchDuplicates
}

// ImportTable merges the roster text into s and returns the new State.
func (e *Engine) ImportTable(s State, text string) (State, ImportReport) {
	var report ImportReport

	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) < 2 {
		return s, report
	}

	known := make(map[string]bool, len(s.Employees))
	for _, emp := range s.Employees {
		known[emp.ExternalID] = true
	}
	seen := make(map[string]bool)

	var created []Employee
	for _, line := range lines[1:] {
		cols := strings.Split(line, ",")
		if len(cols) < ImportColumns {
			report.Malformed++
			continue
		}

		externalID := strings.TrimSpace(cols[0])
		if known[externalID] {
			report.Existing++
			continue
		}
		if e.opts.DedupeWithinBatch && seen[externalID] {
			report.BatchDuplicates++
			continue
		}
		seen[externalID] = true

		limit, ok := parseLimit(cols[3])
		if !ok {
			report.InvalidLimits++
		}

		created = append(created, Employee{
			ID:             e.newID(),
			ExternalID:     externalID,
			Name:           strings.TrimSpace(cols[1]),
			Department:     strings.TrimSpace(cols[2]),
			CreditLimit:    limit,
			CurrentBalance: decimal.Zero,
		})
		report.Created++
	}

	if len(created) == 0 {
		return s, report
	}

	next := s
	next.Employees = make([]Employee, 0, len(s.Employees)+len(created))
	next.Employees = append(next.Employees, s.Employees...)
	next.Employees = append(next.Employees, created...)
	return next, report
}

func parseLimit(raw string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || d.IsNegative() || !inRange(d) {
		return decimal.Zero, false
	}
	return d, true
}

// SampleRoster is a small demo feed in the import format.
const SampleRoster = `ID,Name,Department,Limit
101,John Doe,Engineering,500
102,Jane Smith,HR,300
103,Bob Johnson,Logistics,450
104,Alice Williams,Sales,600
105,Charlie Brown,Engineering,500`
