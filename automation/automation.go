/*
Package automation exposes the ledger to unattended integrations.

PURPOSE:
  Till systems and scripts address employees by badge number (external ID),
  not by internal ID. The Adapter resolves the badge and delegates to the
  ledger engine through the coordinator.

LENIENT CONTRACT:
  Debit and Credit never return an error. A missing employee or a rejected
  transaction is written to the process log and the ledger is left exactly as
  it was; integrations see failures only in their own log stream. This is
  deliberately different from the interactive path (coordinator.Transact),
  which records an ERROR audit entry and propagates the error.

OPERATIONS:
  Debit(externalID, amount, note)    charge, note defaults to "API Debit"
  Credit(externalID, amount, note)   payment, note defaults to "API Credit"
  GetEmployee(externalID)            lookup by badge
  ImportCSV(text)                    roster import
  Help()                             usage text
*/
package automation

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/canteen-ledger/coordinator"
	"github.com/warp/canteen-ledger/ledger"
	"go.uber.org/zap"
)

// Ledger is the part of the coordinator the adapter needs.
type Ledger interface {
	Engine() *ledger.Engine
	Snapshot() ledger.State
	Update(ctx context.Context, op coordinator.Op) (ledger.State, error)
}

// Result reports the outcome of a lenient call.
type Result struct {
	Applied bool
	Reason  string // empty when Applied
	State   ledger.State
}

// Adapter is the automation entry point.
type Adapter struct {
	ledger Ledger
	log    *zap.Logger
}

// New creates an adapter over l.
func New(l Ledger, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{ledger: l, log: log.Named("automation")}
}

// Debit charges the employee with the given badge.
func (a *Adapter) Debit(ctx context.Context, externalID string, amount decimal.Decimal, note string) Result {
	if note == "" {
		note = "API Debit"
	}
	return a.apply(ctx, externalID, amount, ledger.TxDebit, note,
		fmt.Sprintf("API Debit: %s -%s", externalID, amount.StringFixed(2)))
}

// Credit records a payment from the employee with the given badge.
func (a *Adapter) Credit(ctx context.Context, externalID string, amount decimal.Decimal, note string) Result {
	if note == "" {
		note = "API Credit"
	}
	return a.apply(ctx, externalID, amount, ledger.TxCredit, note,
		fmt.Sprintf("API Credit: %s +%s", externalID, amount.StringFixed(2)))
}

func (a *Adapter) apply(
	ctx context.Context,
	externalID string,
	amount decimal.Decimal,
	txType ledger.TransactionType,
	note, auditMsg string,
) Result {
	engine := a.ledger.Engine()
	s, err := a.ledger.Update(ctx, func(s ledger.State) (ledger.State, error) {
		emp, ok := s.EmployeeByExternalID(externalID)
		if !ok {
			return s, &ledger.EmployeeNotFoundError{ExternalID: externalID}
		}
		next, err := engine.Apply(s, emp.ID, amount, txType, note, "")
		if err != nil {
			return s, err
		}
		return engine.AppendLog(next, auditMsg, ledger.LevelInfo, ""), nil
	})
	if err != nil {
		a.log.Error("automation transaction dropped",
			zap.String("external_id", externalID),
			zap.String("type", string(txType)),
			zap.String("amount", ledger.AmountString(amount)),
			zap.Error(err),
		)
		return Result{Reason: err.Error(), State: s}
	}
	a.log.Info("automation transaction applied",
		zap.String("external_id", externalID),
		zap.String("type", string(txType)),
		zap.String("amount", ledger.AmountString(amount)),
	)
	return Result{Applied: true, State: s}
}

// GetEmployee looks up an employee by badge in the current snapshot.
func (a *Adapter) GetEmployee(externalID string) (ledger.Employee, bool) {
	return a.ledger.Snapshot().EmployeeByExternalID(externalID)
}

// ImportCSV merges a roster. Like Debit/Credit it does not fail; a store
// error is logged and the ledger stays unchanged.
func (a *Adapter) ImportCSV(ctx context.Context, text string) (ledger.ImportReport, ledger.State) {
	engine := a.ledger.Engine()
	var report ledger.ImportReport
	s, err := a.ledger.Update(ctx, func(s ledger.State) (ledger.State, error) {
		var next ledger.State
		next, report = engine.ImportTable(s, text)
		return next, nil
	})
	if err != nil {
		a.log.Error("automation import dropped", zap.Error(err))
		return ledger.ImportReport{}, s
	}
	a.log.Info("automation import applied", zap.Int("created", report.Created), zap.Int("existing", report.Existing))
	return report, s
}

// Help describes the automation operations.
func (a *Adapter) Help() string {
	return `Canteen Automation API:
  - debit(externalId, amount, note)
  - credit(externalId, amount, note)
  - importCSV(csvString)   header row, then externalId,name,department,creditLimit
  - getEmployee(externalId)`
}
