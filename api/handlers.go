/*
handlers.go - HTTP API handlers for the canteen ledger

PURPOSE:
  Exposes the ledger via REST API. Handles HTTP request/response, JSON
  serialization and CSV exports, and delegates every change to the
  coordinator, the single writer of the ledger snapshot.

ENDPOINTS:
  Session:
    POST   /api/session/login               Verify password, sign in
    POST   /api/session/logout              Sign out
    GET    /api/session                     Current identity

  Employees:
    GET    /api/employees                   List all employees
    GET    /api/employees/{id}              Employee by internal or external ID
    GET    /api/employees/{id}/transactions History, newest first
    POST   /api/employees/{id}/transactions Post DEBIT/CREDIT/ADJUSTMENT
    GET    /api/employees/{id}/statement    History as CSV

  Back office:
    POST   /api/import                      Roster import (CSV body)
    GET    /api/transactions                All transactions
    GET    /api/logs, POST /api/logs        Audit trail
    GET    /api/logs/export                 Audit trail as CSV
    GET    /api/tickets, POST /api/tickets  Tickets
    POST   /api/tickets/{id}/resolve        Resolve ticket
    GET    /api/users, POST /api/users      System users
    GET    /api/reports/general             Balance report as CSV
    GET    /api/integrity                   On-demand balance check
    GET    /api/integrity/runs              Scheduled check history

  Automation (lenient, see automation package):
    POST   /api/automation/debit
    POST   /api/automation/credit
    POST   /api/automation/import
    GET    /api/automation/help
    GET    /api/automation/employees/{externalId}

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid amount, unsupported transaction type
  - 401: Wrong username or password
  - 404: Employee or ticket not found
  - 409: Credit limit exceeded, duplicate user, concurrent modification
  - 500: Internal errors

SECURITY NOTE:
  There is no authorization layer. The session identity only tags who
  performed an action; it does not restrict what can be done.

SEE ALSO:
  - dto.go: Request/response data structures
  - demo.go: Demo data loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warp/canteen-ledger/automation"
	"github.com/warp/canteen-ledger/coordinator"
	"github.com/warp/canteen-ledger/credentials"
	"github.com/warp/canteen-ledger/ledger"
	"github.com/warp/canteen-ledger/report"
	"go.uber.org/zap"
)

// maxImportBytes bounds a roster upload.
const maxImportBytes = 5 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Coord      *coordinator.Coordinator
	Automation *automation.Adapter
	Runs       RunStore
	Scheduler  *IntegrityScheduler

	log *zap.Logger
}

// NewHandler creates a new handler. runs may be nil when integrity runs are
// not persisted.
func NewHandler(coord *coordinator.Coordinator, runs RunStore, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Coord:      coord,
		Automation: automation.New(coord, log),
		Runs:       runs,
		log:        log.Named("api"),
	}
}

// =============================================================================
// SESSION HANDLERS
// =============================================================================

// Login verifies a back-office password and signs the user in.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := credentials.Authenticate(h.Coord.Snapshot(), req.Username, req.Password)
	if err != nil {
		h.log.Warn("login rejected", zap.String("username", req.Username))
		h.writeDomainError(w, "Login failed", err)
		return
	}

	s, err := h.Coord.SignIn(r.Context(), user)
	if err != nil {
		h.writeDomainError(w, "Login failed", err)
		return
	}
	writeJSON(w, http.StatusOK, SessionDTO{User: toUserDTO(s.CurrentUser)})
}

// Logout clears the session identity.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Coord.SignOut(r.Context()); err != nil {
		h.writeDomainError(w, "Logout failed", err)
		return
	}
	writeJSON(w, http.StatusOK, SessionDTO{})
}

// GetSession returns the signed-in identity, or null.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SessionDTO{User: toUserDTO(h.Coord.Snapshot().CurrentUser)})
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees in roster order.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toEmployeeDTOs(h.Coord.Snapshot().Employees))
}

// GetEmployee returns one employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, ok := lookupEmployee(h.Coord.Snapshot(), chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// GetTransactions returns an employee's history, newest first.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	s := h.Coord.Snapshot()
	emp, ok := lookupEmployee(s, chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(s.TransactionsFor(emp.ID)))
}

// PostTransaction applies a DEBIT, CREDIT or ADJUSTMENT. A rejected
// transaction is still recorded in the audit trail by the coordinator.
func (h *Handler) PostTransaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	emp, ok := lookupEmployee(h.Coord.Snapshot(), chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}

	s, err := h.Coord.Transact(r.Context(), emp.ID, decimal.RequireFromString(req.Amount),
		ledger.TransactionType(req.Type), req.Note)
	if err != nil {
		h.writeDomainError(w, "Transaction rejected", err)
		return
	}

	updated, _ := s.Employee(emp.ID)
	writeJSON(w, http.StatusCreated, TransactionResultDTO{
		Transaction: toTransactionDTO(s.Transactions[0]),
		Employee:    toEmployeeDTO(updated),
	})
}

// ExportStatement returns an employee's history as CSV.
func (h *Handler) ExportStatement(w http.ResponseWriter, r *http.Request) {
	s := h.Coord.Snapshot()
	emp, ok := lookupEmployee(s, chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}
	h.writeCSV(w, fmt.Sprintf("statement_%s.csv", emp.ExternalID), func(wr io.Writer) error {
		return report.WriteStatement(wr, s.TransactionsFor(emp.ID))
	})
}

// lookupEmployee resolves an internal ID first, then an external ID.
func lookupEmployee(s ledger.State, id string) (ledger.Employee, bool) {
	if emp, ok := s.Employee(id); ok {
		return emp, true
	}
	return s.EmployeeByExternalID(id)
}

// =============================================================================
// BACK OFFICE HANDLERS
// =============================================================================

// ImportEmployees merges a roster sent as the raw CSV body.
func (h *Handler) ImportEmployees(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read import body", err)
		return
	}

	s, rep, err := h.Coord.Import(r.Context(), string(body))
	if err != nil {
		h.writeDomainError(w, "Import failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toImportReportDTO(rep, len(s.Employees)))
}

// ListTransactions returns the global history, newest first. ?limit=N
// truncates it.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs := h.Coord.Snapshot().Transactions
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n >= 0 && n < len(txs) {
		txs = txs[:n]
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// ListLogs returns the audit trail, newest first.
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toLogEntryDTOs(h.Coord.Snapshot().Logs))
}

// CreateLog appends an audit entry.
func (h *Handler) CreateLog(w http.ResponseWriter, r *http.Request) {
	var req LogRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	level := ledger.LogLevel(req.Level)
	if level == "" {
		level = ledger.LevelInfo
	}

	s, err := h.Coord.AppendLog(r.Context(), req.Message, level)
	if err != nil {
		h.writeDomainError(w, "Failed to write log", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLogEntryDTOs(s.Logs[:1])[0])
}

// ExportLogs returns the audit trail as CSV.
func (h *Handler) ExportLogs(w http.ResponseWriter, r *http.Request) {
	logs := h.Coord.Snapshot().Logs
	name := fmt.Sprintf("system_logs_%s.csv", time.Now().UTC().Format("2006-01-02"))
	h.writeCSV(w, name, func(wr io.Writer) error {
		return report.WriteAuditLog(wr, logs)
	})
}

// ListTickets returns tickets, newest first. ?status=OPEN filters.
func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	s := h.Coord.Snapshot()
	status := ledger.TicketStatus(r.URL.Query().Get("status"))

	out := make([]TicketDTO, 0, len(s.Tickets))
	for _, t := range s.Tickets {
		if status == "" || t.Status == status {
			out = append(out, toTicketDTO(t))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateTicket files a new OPEN ticket.
func (h *Handler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	var req TicketRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	t, err := h.Coord.FileTicket(r.Context(), ledger.TicketType(req.Type), req.Title, req.Description, req.RelatedEmployeeID)
	if err != nil {
		h.writeDomainError(w, "Failed to file ticket", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTicketDTO(t))
}

// ResolveTicket moves a ticket to RESOLVED. Resolving twice is a no-op.
func (h *Handler) ResolveTicket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.Coord.Snapshot().Ticket(id); !ok {
		writeError(w, http.StatusNotFound, "Ticket not found", nil)
		return
	}

	if _, err := h.Coord.ResolveTicket(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to resolve ticket", err)
		return
	}
	t, _ := h.Coord.Snapshot().Ticket(id)
	writeJSON(w, http.StatusOK, toTicketDTO(t))
}

// ListUsers returns system users without their password hashes.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users := h.Coord.Snapshot().SystemUsers
	out := make([]UserDTO, 0, len(users))
	for _, u := range users {
		out = append(out, UserDTO{Username: u.Username, Role: string(u.Role)})
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateUser registers a back-office account.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	u, err := credentials.NewSystemUser(req.Username, req.Password, ledger.Role(req.Role))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid password", err)
		return
	}
	if _, err := h.Coord.AddSystemUser(r.Context(), u); err != nil {
		h.writeDomainError(w, "Failed to create user", err)
		return
	}
	writeJSON(w, http.StatusCreated, UserDTO{Username: u.Username, Role: string(u.Role)})
}

// ExportGeneralReport returns every employee's balance as CSV.
func (h *Handler) ExportGeneralReport(w http.ResponseWriter, r *http.Request) {
	emps := h.Coord.Snapshot().Employees
	name := fmt.Sprintf("general_report_%s.csv", time.Now().UTC().Format("2006-01-02"))
	h.writeCSV(w, name, func(wr io.Writer) error {
		return report.WriteGeneralReport(wr, emps)
	})
}

// CheckIntegrity rebuilds balances from the history without recording
// anything.
func (h *Handler) CheckIntegrity(w http.ResponseWriter, r *http.Request) {
	s := h.Coord.Snapshot()
	writeJSON(w, http.StatusOK, toIntegrityDTO(time.Now().UTC(), len(s.Employees), ledger.VerifyBalances(s)))
}

// ListIntegrityRuns returns the most recent scheduled checks.
func (h *Handler) ListIntegrityRuns(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"runs": []any{}}
	if h.Runs != nil {
		runs, err := h.Runs.ListIntegrityRuns(r.Context(), 50)
		if err != nil {
			h.writeDomainError(w, "Failed to list integrity runs", err)
			return
		}
		resp["runs"] = runs
	}
	if h.Scheduler != nil && h.Scheduler.Enabled {
		resp["nextRunAt"] = h.Scheduler.GetNextRunTime()
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// AUTOMATION HANDLERS
// =============================================================================

// AutomationDebit charges by badge number. Always 200; see Applied.
func (h *Handler) AutomationDebit(w http.ResponseWriter, r *http.Request) {
	var req AutomationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	res := h.Automation.Debit(r.Context(), req.ExternalID, decimal.RequireFromString(req.Amount), req.Note)
	writeJSON(w, http.StatusOK, AutomationResultDTO{Applied: res.Applied, Reason: res.Reason})
}

// AutomationCredit records a payment by badge number. Always 200; see Applied.
func (h *Handler) AutomationCredit(w http.ResponseWriter, r *http.Request) {
	var req AutomationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	res := h.Automation.Credit(r.Context(), req.ExternalID, decimal.RequireFromString(req.Amount), req.Note)
	writeJSON(w, http.StatusOK, AutomationResultDTO{Applied: res.Applied, Reason: res.Reason})
}

// AutomationImport merges a roster without writing an audit entry.
func (h *Handler) AutomationImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read import body", err)
		return
	}
	rep, s := h.Automation.ImportCSV(r.Context(), string(body))
	writeJSON(w, http.StatusOK, toImportReportDTO(rep, len(s.Employees)))
}

// AutomationHelp describes the automation operations.
func (h *Handler) AutomationHelp(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, h.Automation.Help())
}

// AutomationGetEmployee looks up an employee by badge number.
func (h *Handler) AutomationGetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.Automation.GetEmployee(chi.URLParam(r, "externalId"))
	if !ok {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeValidationError(w http.ResponseWriter, fields []*FieldError) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Fields: fields})
}

// writeDomainError maps ledger and credential errors onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, credentials.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, message, err)
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case ledger.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.log.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

// decodeAndValidate reads a JSON body into dst and validates it, writing a
// 400 on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if fields := validateStruct(dst); len(fields) > 0 {
		writeValidationError(w, fields)
		return false
	}
	return true
}

// writeCSV streams a CSV download. The status is already sent when render
// runs, so a failure can only be logged.
func (h *Handler) writeCSV(w http.ResponseWriter, filename string, render func(io.Writer) error) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	if err := render(w); err != nil {
		h.log.Error("Failed to write CSV", zap.String("file", filename), zap.Error(err))
	}
}
