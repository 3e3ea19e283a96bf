package ledger

// =============================================================================
// STATE - The aggregate snapshot
// =============================================================================

// State is one immutable value of the whole ledger. It is the unit of
// persistence and the unit of concurrency control: callers replace it
// wholesale after every operation.
//
// Ordering:
//   - Employees: insertion order
//   - Transactions, Logs, Tickets: newest first
//
// Operations share unchanged slices between the old and new State, so a
// State must be treated as read-only. Use Clone before handing one to code
// that might write to it.
type State struct {
	CurrentUser  *User
	Employees    []Employee
	Transactions []Transaction
	Logs         []LogEntry
	SystemUsers  []SystemUser
	Tickets      []Ticket
}

// NewState returns an empty snapshot seeded with the given system users.
func NewState(seed []SystemUser) State {
	return State{
		Employees:    []Employee{},
		Transactions: []Transaction{},
		Logs:         []LogEntry{},
		SystemUsers:  append([]SystemUser{}, seed...),
		Tickets:      []Ticket{},
	}
}

// Normalize upgrades a snapshot loaded from an older store: missing users
// are replaced by the seed and nil collections become empty.
func Normalize(s State, seed []SystemUser) State {
	if len(s.SystemUsers) == 0 {
		s.SystemUsers = append([]SystemUser{}, seed...)
	}
	if s.Employees == nil {
		s.Employees = []Employee{}
	}
	if s.Transactions == nil {
		s.Transactions = []Transaction{}
	}
	if s.Logs == nil {
		s.Logs = []LogEntry{}
	}
	if s.Tickets == nil {
		s.Tickets = []Ticket{}
	}
	return s
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := State{
		Employees:    append([]Employee{}, s.Employees...),
		Transactions: append([]Transaction{}, s.Transactions...),
		Logs:         append([]LogEntry{}, s.Logs...),
		SystemUsers:  append([]SystemUser{}, s.SystemUsers...),
		Tickets:      append([]Ticket{}, s.Tickets...),
	}
	if s.CurrentUser != nil {
		u := *s.CurrentUser
		out.CurrentUser = &u
	}
	return out
}

// =============================================================================
// LOOKUPS
// =============================================================================

// Employee returns the employee with the given internal ID.
func (s State) Employee(id string) (Employee, bool) {
	if i := s.employeeIndex(id); i >= 0 {
		return s.Employees[i], true
	}
	return Employee{}, false
}

// EmployeeByExternalID returns the first employee with the given badge ID.
func (s State) EmployeeByExternalID(externalID string) (Employee, bool) {
	for _, e := range s.Employees {
		if e.ExternalID == externalID {
			return e, true
		}
	}
	return Employee{}, false
}

// TransactionsFor returns the history of one employee, newest first.
func (s State) TransactionsFor(employeeID string) []Transaction {
	out := []Transaction{}
	for _, tx := range s.Transactions {
		if tx.EmployeeID == employeeID {
			out = append(out, tx)
		}
	}
	return out
}

// Ticket returns the ticket with the given ID.
func (s State) Ticket(id string) (Ticket, bool) {
	for _, t := range s.Tickets {
		if t.ID == id {
			return t, true
		}
	}
	return Ticket{}, false
}

// SystemUser returns the back-office account with the given username.
func (s State) SystemUser(username string) (SystemUser, bool) {
	for _, u := range s.SystemUsers {
		if u.Username == username {
			return u, true
		}
	}
	return SystemUser{}, false
}

// OpenTickets returns the tickets still waiting for resolution.
func (s State) OpenTickets() []Ticket {
	out := []Ticket{}
	for _, t := range s.Tickets {
		if t.Status == TicketOpen {
			out = append(out, t)
		}
	}
	return out
}

func (s State) employeeIndex(id string) int {
	for i, e := range s.Employees {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// actor picks the identity recorded on a new entry: the explicit actor,
// then the session user, then the fallback sentinel.
func (s State) actor(explicit, fallback string) string {
	if explicit != "" {
		return explicit
	}
	if s.CurrentUser != nil && s.CurrentUser.Username != "" {
		return s.CurrentUser.Username
	}
	return fallback
}

// prepend returns a new slice with item in front of list. list is not modified.
func prepend[T any](item T, list []T, limit int) []T {
	n := len(list) + 1
	if limit > 0 && n > limit {
		n = limit
	}
	out := make([]T, 0, n)
	out = append(out, item)
	return append(out, list[:n-1]...)
}
