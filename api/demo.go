/*
demo.go - Demo data loaders for testing and demonstrations

PURPOSE:
  Populates an empty ledger with a realistic roster so the back office and
  the till integrations have something to work against.

AVAILABLE SCENARIOS:
  roster:    the five-employee sample roster (101-105)
  activity:  roster plus a day of canteen charges and one payment,
             leaving Charlie Brown exactly at his limit

HOW SCENARIOS WORK:
  Loaders go through the coordinator like any other caller, so every step
  is audited and persisted. Nothing is reset: the import skips employees
  that already exist, and charges that would break a limit are rejected
  and logged like any other failed transaction.

USAGE VIA API:
  GET  /api/demo
  POST /api/demo/seed
  {"scenario": "activity"}

SEE ALSO:
  - ledger/importer.go: SampleRoster
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/warp/canteen-ledger/ledger"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes a demo loader.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SeedRequest selects a scenario. An empty body loads "roster".
type SeedRequest struct {
	Scenario string `json:"scenario" validate:"omitempty,oneof=roster activity"`
}

// SeedResultDTO summarizes a scenario load.
type SeedResultDTO struct {
	Scenario     string          `json:"scenario"`
	Import       ImportReportDTO `json:"import"`
	Transactions int             `json:"transactions"`
	Rejected     int             `json:"rejected"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "roster",
		Name:        "Sample Roster",
		Description: "Five employees across four departments, no activity",
	},
	{
		ID:          "activity",
		Name:        "Canteen Day",
		Description: "Sample roster with lunches, coffees, one payment and one employee at the limit",
	},
}

type demoTx struct {
	externalID string
	txType     ledger.TransactionType
	amount     string
	note       string
}

var demoActivity = []demoTx{
	{"101", ledger.TxDebit, "12.50", "Lunch"},
	{"101", ledger.TxDebit, "3.20", "Coffee"},
	{"102", ledger.TxDebit, "9.90", "Lunch"},
	{"103", ledger.TxDebit, "45.00", "Team breakfast"},
	{"103", ledger.TxCredit, "20.00", "Cash payment"},
	{"104", ledger.TxDebit, "7.35", "Salad bar"},
	{"105", ledger.TxDebit, "500.00", "Catering order"},
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns the available demo loaders.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// SeedDemo loads a demo scenario.
func (h *Handler) SeedDemo(w http.ResponseWriter, r *http.Request) {
	var req SeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if fields := validateStruct(req); len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}
	if req.Scenario == "" {
		req.Scenario = "roster"
	}

	result, err := h.loadScenario(r.Context(), req.Scenario)
	if err != nil {
		h.writeDomainError(w, "Failed to load scenario", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) loadScenario(ctx context.Context, id string) (SeedResultDTO, error) {
	result := SeedResultDTO{Scenario: id}

	s, report, err := h.Coord.Import(ctx, ledger.SampleRoster)
	if err != nil {
		return result, err
	}
	result.Import = toImportReportDTO(report, len(s.Employees))

	switch id {
	case "roster":
		return result, nil
	case "activity":
		for _, tx := range demoActivity {
			emp, ok := h.Coord.Snapshot().EmployeeByExternalID(tx.externalID)
			if !ok {
				return result, &ledger.EmployeeNotFoundError{ExternalID: tx.externalID}
			}
			_, err := h.Coord.Transact(ctx, emp.ID, decimal.RequireFromString(tx.amount), tx.txType, tx.note)
			switch {
			case err == nil:
				result.Transactions++
			case ledger.IsConflict(err) || ledger.IsClientError(err):
				result.Rejected++
			default:
				return result, err
			}
		}
		return result, nil
	default:
		return result, fmt.Errorf("unknown scenario %q", id)
	}
}
