/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the ledger model from the external API contract: password hashes never
  leave the server and amounts travel as decimal strings.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator tags. Handlers call
  validateStruct after decoding and answer 400 with the failed fields.
  Business rules (positive amount, credit limit) stay in the ledger.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/warp/canteen-ledger/ledger"
)

// =============================================================================
// VALIDATION
// =============================================================================

// FieldError names one failed validation rule.
type FieldError struct {
	FailedField string `json:"field"`
	Tag         string `json:"tag"`
	Value       string `json:"value,omitempty"`
}

var validate = validator.New()

func init() {
	validate.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && ledger.ValidAmount(d)
	})
}

func validateStruct(data any) []*FieldError {
	var errs []*FieldError
	err := validate.Struct(data)
	if err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return []*FieldError{{FailedField: "body", Tag: "invalid"}}
		}
		for _, err := range verrs {
			errs = append(errs, &FieldError{
				FailedField: err.StructNamespace(),
				Tag:         err.Tag(),
				Value:       err.Param(),
			})
		}
	}
	return errs
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TransactionRequest posts a charge, payment or adjustment. Amount is a
// decimal string so no precision is lost in transit.
type TransactionRequest struct {
	Type   string `json:"type" validate:"required,oneof=DEBIT CREDIT ADJUSTMENT"`
	Amount string `json:"amount" validate:"required,max=32,amount"`
	Note   string `json:"note" validate:"max=500"`
}

type LogRequest struct {
	Message string `json:"message" validate:"required"`
	Level   string `json:"level" validate:"omitempty,oneof=INFO WARNING ERROR"`
}

type TicketRequest struct {
	Type              string `json:"type" validate:"required,oneof=USER_FLAG SYSTEM_BUG"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	RelatedEmployeeID string `json:"relatedEmployeeId"`
}

type CreateUserRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,min=4"`
	Role     string `json:"role" validate:"required,oneof=ADMIN TECH"`
}

// AutomationRequest addresses an employee by badge number.
type AutomationRequest struct {
	ExternalID string `json:"externalId" validate:"required"`
	Amount     string `json:"amount" validate:"required,max=32,amount"`
	Note       string `json:"note"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

type UserDTO struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type SessionDTO struct {
	User *UserDTO `json:"user"`
}

type EmployeeDTO struct {
	ID             string          `json:"id"`
	ExternalID     string          `json:"externalId"`
	Name           string          `json:"name"`
	Department     string          `json:"department"`
	CreditLimit    decimal.Decimal `json:"creditLimit"`
	CurrentBalance decimal.Decimal `json:"currentBalance"`
	Available      decimal.Decimal `json:"available"`
	OverLimit      bool            `json:"overLimit"`
}

type TransactionDTO struct {
	ID          string          `json:"id"`
	EmployeeID  string          `json:"employeeId"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Timestamp   time.Time       `json:"timestamp"`
	PerformedBy string          `json:"performedBy"`
	Note        string          `json:"note,omitempty"`
}

// TransactionResultDTO is returned after a successful posting.
type TransactionResultDTO struct {
	Transaction TransactionDTO `json:"transaction"`
	Employee    EmployeeDTO    `json:"employee"`
}

type LogEntryDTO struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	User      string    `json:"user"`
}

type TicketDTO struct {
	ID                string    `json:"id"`
	Type              string    `json:"type"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"createdAt"`
	CreatedBy         string    `json:"createdBy"`
	RelatedEmployeeID string    `json:"relatedEmployeeId,omitempty"`
}

type ImportReportDTO struct {
	Created         int `json:"created"`
	Existing        int `json:"existing"`
	Malformed       int `json:"malformed"`
	BatchDuplicates int `json:"batchDuplicates"`
	InvalidLimits   int `json:"invalidLimits"`
	Employees       int `json:"employees"`
}

type AutomationResultDTO struct {
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`
}

type DriftDTO struct {
	EmployeeID    string          `json:"employeeId"`
	ExternalID    string          `json:"externalId"`
	Recorded      decimal.Decimal `json:"recorded"`
	Reconstructed decimal.Decimal `json:"reconstructed"`
	Difference    decimal.Decimal `json:"difference"`
}

type IntegrityDTO struct {
	CheckedAt        time.Time  `json:"checkedAt"`
	EmployeesChecked int        `json:"employeesChecked"`
	Consistent       bool       `json:"consistent"`
	Drifts           []DriftDTO `json:"drifts"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string        `json:"error"`
	Details string        `json:"details,omitempty"`
	Fields  []*FieldError `json:"fields,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toUserDTO(u *ledger.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{Username: u.Username, Role: string(u.Role)}
}

func toEmployeeDTO(e ledger.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:             e.ID,
		ExternalID:     e.ExternalID,
		Name:           e.Name,
		Department:     e.Department,
		CreditLimit:    e.CreditLimit,
		CurrentBalance: e.CurrentBalance,
		Available:      e.Available(),
		OverLimit:      e.OverLimit(),
	}
}

func toEmployeeDTOs(emps []ledger.Employee) []EmployeeDTO {
	out := make([]EmployeeDTO, 0, len(emps))
	for _, e := range emps {
		out = append(out, toEmployeeDTO(e))
	}
	return out
}

func toTransactionDTO(tx ledger.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:          tx.ID,
		EmployeeID:  tx.EmployeeID,
		Amount:      tx.Amount,
		Type:        string(tx.Type),
		Timestamp:   tx.Timestamp,
		PerformedBy: tx.PerformedBy,
		Note:        tx.Note,
	}
}

func toTransactionDTOs(txs []ledger.Transaction) []TransactionDTO {
	out := make([]TransactionDTO, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionDTO(tx))
	}
	return out
}

func toLogEntryDTOs(logs []ledger.LogEntry) []LogEntryDTO {
	out := make([]LogEntryDTO, 0, len(logs))
	for _, l := range logs {
		out = append(out, LogEntryDTO{
			ID:        l.ID,
			Timestamp: l.Timestamp,
			Level:     string(l.Level),
			Message:   l.Message,
			User:      l.User,
		})
	}
	return out
}

func toTicketDTO(t ledger.Ticket) TicketDTO {
	return TicketDTO{
		ID:                t.ID,
		Type:              string(t.Type),
		Title:             t.Title,
		Description:       t.Description,
		Status:            string(t.Status),
		CreatedAt:         t.CreatedAt,
		CreatedBy:         t.CreatedBy,
		RelatedEmployeeID: t.RelatedEmployeeID,
	}
}

func toImportReportDTO(r ledger.ImportReport, employees int) ImportReportDTO {
	return ImportReportDTO{
		Created:         r.Created,
		Existing:        r.Existing,
		Malformed:       r.Malformed,
		BatchDuplicates: r.BatchDuplicates,
		InvalidLimits:   r.InvalidLimits,
		Employees:       employees,
	}
}

func toIntegrityDTO(checkedAt time.Time, employees int, drifts []ledger.BalanceDrift) IntegrityDTO {
	out := IntegrityDTO{
		CheckedAt:        checkedAt,
		EmployeesChecked: employees,
		Consistent:       len(drifts) == 0,
		Drifts:           make([]DriftDTO, 0, len(drifts)),
	}
	for _, d := range drifts {
		out.Drifts = append(out.Drifts, DriftDTO{
			EmployeeID:    d.EmployeeID,
			ExternalID:    d.ExternalID,
			Recorded:      d.Recorded,
			Reconstructed: d.Reconstructed,
			Difference:    d.Difference(),
		})
	}
	return out
}
