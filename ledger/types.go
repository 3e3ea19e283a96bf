/*
Package ledger provides the canteen credit ledger engine.

PURPOSE:
  Maintains employee balances against a credit limit, records an immutable
  transaction history, imports employee rosters, and keeps the back-office
  audit trail and ticket queue. Every operation is a value transformation:
  it takes a State and returns a new State (or an error). Nothing in this
  package mutates a State it was handed.

KEY CONCEPTS IN THIS FILE (types.go):
  - Employee: a canteen account with a credit limit and running balance
  - Transaction: an immutable record of one balance change
  - Ticket: an operator-filed issue (OPEN -> RESOLVED)
  - LogEntry: one line of the bounded audit trail
  - SystemUser: back-office credential + role

MONEY:
  All amounts are decimal.Decimal so the credit-limit check is an exact
  comparison. A DEBIT increases what the employee owes, a CREDIT decreases it.

SEE ALSO:
  - state.go: the aggregate snapshot
  - processor.go: debit/credit processing
  - importer.go: roster import
  - audit.go, tickets.go, users.go: back-office workflow
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ACTOR SENTINELS
// =============================================================================

const (
	// ActorUnknown tags transactions recorded without a session user.
	ActorUnknown = "Unknown"
	// ActorSystem tags log entries written without a session user.
	ActorSystem = "SYSTEM"
	// ActorTicketSystem tags tickets filed without a session user.
	ActorTicketSystem = "System"
)

// =============================================================================
// EMPLOYEE
// =============================================================================

// Employee is a canteen account. ID is generated and never changes;
// ExternalID is the badge number used by roster imports.
type Employee struct {
	ID             string
	ExternalID     string
	Name           string
	Department     string
	CreditLimit    decimal.Decimal
	CurrentBalance decimal.Decimal
}

// OverLimit reports whether the balance is above the credit limit.
func (e Employee) OverLimit() bool {
	return e.CurrentBalance.GreaterThan(e.CreditLimit)
}

// Available returns how much more the employee can be charged.
func (e Employee) Available() decimal.Decimal {
	return e.CreditLimit.Sub(e.CurrentBalance)
}

// =============================================================================
// TRANSACTION
// =============================================================================

type TransactionType string

const (
	TxDebit      TransactionType = "DEBIT"      // charge: employee bought food
	TxCredit     TransactionType = "CREDIT"     // payment: employee paid off debt
	TxAdjustment TransactionType = "ADJUSTMENT" // tech/admin correction
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TxDebit, TxCredit, TxAdjustment:
		return true
	}
	return false
}

// Transaction is an immutable ledger entry. Created once by Engine.Apply.
type Transaction struct {
	ID          string
	EmployeeID  string
	Amount      decimal.Decimal
	Type        TransactionType
	Timestamp   time.Time
	PerformedBy string
	Note        string
}

// =============================================================================
// TICKET
// =============================================================================

type TicketType string

const (
	TicketUserFlag  TicketType = "USER_FLAG"  // business issue about an employee
	TicketSystemBug TicketType = "SYSTEM_BUG" // crash or defect report
)

func (t TicketType) Valid() bool {
	return t == TicketUserFlag || t == TicketSystemBug
}

type TicketStatus string

const (
	TicketOpen     TicketStatus = "OPEN"
	TicketResolved TicketStatus = "RESOLVED"
)

// Ticket is a back-office issue record. OPEN is the only initial status and
// RESOLVED is terminal.
type Ticket struct {
	ID                string
	Type              TicketType
	Title             string
	Description       string
	Status            TicketStatus
	CreatedAt         time.Time
	CreatedBy         string
	RelatedEmployeeID string // empty when not linked
}

// =============================================================================
// AUDIT LOG
// =============================================================================

type LogLevel string

const (
	LevelInfo    LogLevel = "INFO"
	LevelWarning LogLevel = "WARNING"
	LevelError   LogLevel = "ERROR"
)

func (l LogLevel) Valid() bool {
	switch l {
	case LevelInfo, LevelWarning, LevelError:
		return true
	}
	return false
}

// MaxLogEntries bounds the audit trail. Older entries are dropped.
const MaxLogEntries = 1000

type LogEntry struct {
	ID        string
	Timestamp time.Time
	Level     LogLevel
	Message   string
	User      string
}

// =============================================================================
// USERS
// =============================================================================

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleTech  Role = "TECH"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleTech
}

// User is the identity attached to a session.
type User struct {
	Username string
	Role     Role
}

// SystemUser is a back-office account. Only the bcrypt hash of the password
// is ever held in a snapshot.
type SystemUser struct {
	Username     string
	PasswordHash string
	Role         Role
}

// Identity returns the session identity for u.
func (u SystemUser) Identity() User {
	return User{Username: u.Username, Role: u.Role}
}
