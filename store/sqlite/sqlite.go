/*
Package sqlite provides a SQLite-backed implementation of ledger.SnapshotStore.

PURPOSE:
  Persists the whole ledger snapshot in relational tables so it survives
  restarts and can be inspected with ordinary SQL. Every Save writes one
  complete snapshot inside a single database transaction.

VERSIONING:
  The meta table holds one row with the current snapshot version. Save reads
  it inside the write transaction and refuses to write when it differs from
  the caller's expected version (ledger.ErrConcurrentModification).

APPEND-ONLY ENFORCEMENT:
  Transactions are never updated or deleted. Save inserts rows it has not seen
  (INSERT OR IGNORE on the transaction ID); a row's position is fixed when it
  is first written, counting from the oldest transaction.
  Employees, audit log, users and tickets are rewritten on every save: the
  audit log is capped and balances change in place.

KEY TABLES:
  meta:           snapshot version
  session:        signed-in identity (zero or one row)
  employees:      roster in insertion order
  transactions:   immutable ledger history
  audit_log:      newest-first audit trail
  system_users:   back-office accounts (bcrypt hashes)
  tickets:        support tickets
  integrity_runs: balance integrity check history

WAL MODE:
  Opened with WAL and a single connection. The coordinator is the only
  writer, and ":memory:" databases are per-connection in SQLite.

USAGE:
  store, err := sqlite.New("./data/canteen.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - ledger/store.go: SnapshotStore contract
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/canteen-ledger/ledger"
)

// timestampLayout is RFC 3339 with fixed-width nanoseconds, so stored
// timestamps sort as text. Reads accept any RFC 3339 value.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements ledger.SnapshotStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS meta (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		version INTEGER NOT NULL,
		saved_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS session (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		username TEXT NOT NULL,
		role TEXT NOT NULL
	);

	-- external_id is not unique: a single import batch may repeat one
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		external_id TEXT NOT NULL,
		name TEXT NOT NULL,
		department TEXT NOT NULL,
		credit_limit TEXT NOT NULL,
		current_balance TEXT NOT NULL,
		position INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_external_id
		ON employees(external_id);

	-- Transactions (append-only ledger)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		performed_by TEXT NOT NULL,
		note TEXT,
		position INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_employee
		ON transactions(employee_id, position DESC);
	CREATE INDEX IF NOT EXISTS idx_transactions_position
		ON transactions(position);

	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		level TEXT NOT NULL,
		username TEXT NOT NULL,
		message TEXT NOT NULL,
		position INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS system_users (
		username TEXT PRIMARY KEY,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		position INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tickets (
		id TEXT PRIMARY KEY,
		ticket_type TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		created_by TEXT NOT NULL,
		related_employee_id TEXT,
		position INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tickets_status
		ON tickets(status);

	-- Integrity Runs (for scheduled balance checks)
	CREATE TABLE IF NOT EXISTS integrity_runs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL DEFAULT 'running',
		employees_checked INTEGER DEFAULT 0,
		drift_count INTEGER DEFAULT 0,
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_integrity_runs_started
		ON integrity_runs(started_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SNAPSHOT STORE (ledger.SnapshotStore interface)
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Load returns the stored snapshot, or ledger.ErrSnapshotNotFound when
// nothing was ever saved.
func (s *Store) Load(ctx context.Context) (ledger.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	version, err := currentVersion(ctx, s.db)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	if version == 0 {
		return ledger.Snapshot{}, ledger.ErrSnapshotNotFound
	}

	var st ledger.State
	if st.CurrentUser, err = loadSession(ctx, s.db); err != nil {
		return ledger.Snapshot{}, fmt.Errorf("failed to load session: %w", err)
	}
	if st.Employees, err = loadEmployees(ctx, s.db); err != nil {
		return ledger.Snapshot{}, fmt.Errorf("failed to load employees: %w", err)
	}
	if st.Transactions, err = loadTransactions(ctx, s.db); err != nil {
		return ledger.Snapshot{}, fmt.Errorf("failed to load transactions: %w", err)
	}
	if st.Logs, err = loadLogs(ctx, s.db); err != nil {
		return ledger.Snapshot{}, fmt.Errorf("failed to load audit log: %w", err)
	}
	if st.SystemUsers, err = loadUsers(ctx, s.db); err != nil {
		return ledger.Snapshot{}, fmt.Errorf("failed to load system users: %w", err)
	}
	if st.Tickets, err = loadTickets(ctx, s.db); err != nil {
		return ledger.Snapshot{}, fmt.Errorf("failed to load tickets: %w", err)
	}

	return ledger.Snapshot{State: st, Version: version}, nil
}

// Save writes st as the new snapshot if the stored version is still
// expectedVersion. Nothing is written otherwise.
func (s *Store) Save(ctx context.Context, st ledger.State, expectedVersion uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	version, err := currentVersion(ctx, sqlTx)
	if err != nil {
		return 0, err
	}
	if version != expectedVersion {
		return version, ledger.ErrConcurrentModification
	}

	writers := []func(context.Context, execer, ledger.State) error{
		saveSession,
		saveEmployees,
		appendTransactions,
		saveLogs,
		saveUsers,
		saveTickets,
	}
	for _, write := range writers {
		if err := write(ctx, sqlTx, st); err != nil {
			return 0, err
		}
	}

	next := version + 1
	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO meta (id, version, saved_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			version = excluded.version,
			saved_at = excluded.saved_at
	`, next, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to update snapshot version: %w", err)
	}

	if err := sqlTx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return next, nil
}

func currentVersion(ctx context.Context, db querier) (uint64, error) {
	var version uint64
	err := db.QueryRowContext(ctx, `SELECT version FROM meta WHERE id = 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read snapshot version: %w", err)
	}
	return version, nil
}

// =============================================================================
// WRITERS
// =============================================================================

func saveSession(ctx context.Context, db execer, st ledger.State) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM session`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	if st.CurrentUser == nil {
		return nil
	}
	_, err := db.ExecContext(ctx, `INSERT INTO session (id, username, role) VALUES (1, ?, ?)`,
		st.CurrentUser.Username, st.CurrentUser.Role)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func saveEmployees(ctx context.Context, db execer, st ledger.State) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM employees`); err != nil {
		return fmt.Errorf("failed to clear employees: %w", err)
	}
	for i, e := range st.Employees {
		_, err := db.ExecContext(ctx, `
			INSERT INTO employees (id, external_id, name, department, credit_limit, current_balance, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, e.ID, e.ExternalID, e.Name, e.Department, e.CreditLimit.String(), e.CurrentBalance.String(), i)
		if err != nil {
			return fmt.Errorf("failed to save employee %s: %w", e.ID, err)
		}
	}
	return nil
}

// appendTransactions inserts transactions the table does not hold yet.
// State keeps them newest first, so the oldest gets position 0.
func appendTransactions(ctx context.Context, db execer, st ledger.State) error {
	n := len(st.Transactions)
	for i, tx := range st.Transactions {
		_, err := db.ExecContext(ctx, `
			INSERT OR IGNORE INTO transactions
			(id, employee_id, amount, tx_type, timestamp, performed_by, note, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			tx.ID,
			tx.EmployeeID,
			tx.Amount.String(),
			tx.Type,
			tx.Timestamp.UTC().Format(timestampLayout),
			tx.PerformedBy,
			nullString(tx.Note),
			n-1-i,
		)
		if err != nil {
			return fmt.Errorf("failed to append transaction %s: %w", tx.ID, err)
		}
	}
	return nil
}

func saveLogs(ctx context.Context, db execer, st ledger.State) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM audit_log`); err != nil {
		return fmt.Errorf("failed to clear audit log: %w", err)
	}
	for i, l := range st.Logs {
		_, err := db.ExecContext(ctx, `
			INSERT INTO audit_log (id, timestamp, level, username, message, position)
			VALUES (?, ?, ?, ?, ?, ?)
		`, l.ID, l.Timestamp.UTC().Format(timestampLayout), l.Level, l.User, l.Message, i)
		if err != nil {
			return fmt.Errorf("failed to save audit entry %s: %w", l.ID, err)
		}
	}
	return nil
}

func saveUsers(ctx context.Context, db execer, st ledger.State) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM system_users`); err != nil {
		return fmt.Errorf("failed to clear system users: %w", err)
	}
	for i, u := range st.SystemUsers {
		_, err := db.ExecContext(ctx, `
			INSERT INTO system_users (username, password_hash, role, position)
			VALUES (?, ?, ?, ?)
		`, u.Username, u.PasswordHash, u.Role, i)
		if err != nil {
			if isUniqueConstraintError(err) {
				return fmt.Errorf("%w: %s", ledger.ErrDuplicateUser, u.Username)
			}
			return fmt.Errorf("failed to save system user %s: %w", u.Username, err)
		}
	}
	return nil
}

func saveTickets(ctx context.Context, db execer, st ledger.State) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM tickets`); err != nil {
		return fmt.Errorf("failed to clear tickets: %w", err)
	}
	for i, t := range st.Tickets {
		_, err := db.ExecContext(ctx, `
			INSERT INTO tickets
			(id, ticket_type, title, description, status, created_at, created_by, related_employee_id, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			t.ID, t.Type, t.Title, t.Description, t.Status,
			t.CreatedAt.UTC().Format(timestampLayout), t.CreatedBy,
			nullString(t.RelatedEmployeeID), i,
		)
		if err != nil {
			return fmt.Errorf("failed to save ticket %s: %w", t.ID, err)
		}
	}
	return nil
}

// =============================================================================
// READERS
// =============================================================================

func loadSession(ctx context.Context, db querier) (*ledger.User, error) {
	var u ledger.User
	err := db.QueryRowContext(ctx, `SELECT username, role FROM session WHERE id = 1`).Scan(&u.Username, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func loadEmployees(ctx context.Context, db querier) ([]ledger.Employee, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, external_id, name, department, credit_limit, current_balance
		FROM employees ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ledger.Employee{}
	for rows.Next() {
		var e ledger.Employee
		var limit, balance string
		if err := rows.Scan(&e.ID, &e.ExternalID, &e.Name, &e.Department, &limit, &balance); err != nil {
			return nil, err
		}
		if e.CreditLimit, err = decimal.NewFromString(limit); err != nil {
			return nil, fmt.Errorf("employee %s credit limit: %w", e.ID, err)
		}
		if e.CurrentBalance, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("employee %s balance: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func loadTransactions(ctx context.Context, db querier) ([]ledger.Transaction, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, employee_id, amount, tx_type, timestamp, performed_by, note
		FROM transactions ORDER BY position DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ledger.Transaction{}
	for rows.Next() {
		var tx ledger.Transaction
		var amount, ts string
		var note sql.NullString
		if err := rows.Scan(&tx.ID, &tx.EmployeeID, &amount, &tx.Type, &ts, &tx.PerformedBy, &note); err != nil {
			return nil, err
		}
		if tx.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("transaction %s amount: %w", tx.ID, err)
		}
		tx.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		tx.Note = note.String
		out = append(out, tx)
	}
	return out, rows.Err()
}

func loadLogs(ctx context.Context, db querier) ([]ledger.LogEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, timestamp, level, username, message
		FROM audit_log ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ledger.LogEntry{}
	for rows.Next() {
		var l ledger.LogEntry
		var ts string
		if err := rows.Scan(&l.ID, &ts, &l.Level, &l.User, &l.Message); err != nil {
			return nil, err
		}
		l.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, l)
	}
	return out, rows.Err()
}

func loadUsers(ctx context.Context, db querier) ([]ledger.SystemUser, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT username, password_hash, role FROM system_users ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ledger.SystemUser{}
	for rows.Next() {
		var u ledger.SystemUser
		if err := rows.Scan(&u.Username, &u.PasswordHash, &u.Role); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func loadTickets(ctx context.Context, db querier) ([]ledger.Ticket, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, ticket_type, title, description, status, created_at, created_by, related_employee_id
		FROM tickets ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ledger.Ticket{}
	for rows.Next() {
		var t ledger.Ticket
		var createdAt string
		var related sql.NullString
		if err := rows.Scan(&t.ID, &t.Type, &t.Title, &t.Description, &t.Status, &createdAt, &t.CreatedBy, &related); err != nil {
			return nil, err
		}
		t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		t.RelatedEmployeeID = related.String
		out = append(out, t)
	}
	return out, rows.Err()
}

// =============================================================================
// INTEGRITY RUNS
// =============================================================================

// Integrity run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// IntegrityRun records one balance integrity check.
type IntegrityRun struct {
	ID               string     `json:"id"`
	Status           string     `json:"status"`
	EmployeesChecked int        `json:"employeesChecked"`
	DriftCount       int        `json:"driftCount"`
	Error            string     `json:"error,omitempty"`
	StartedAt        time.Time  `json:"startedAt"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
}

// SaveIntegrityRun inserts or updates a run.
func (s *Store) SaveIntegrityRun(ctx context.Context, r IntegrityRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO integrity_runs (id, status, employees_checked, drift_count, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			employees_checked = excluded.employees_checked,
			drift_count = excluded.drift_count,
			error = excluded.error,
			completed_at = excluded.completed_at
	`

	var completedAt *string
	if r.CompletedAt != nil {
		s := r.CompletedAt.UTC().Format(timestampLayout)
		completedAt = &s
	}

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Status, r.EmployeesChecked, r.DriftCount, nullString(r.Error),
		r.StartedAt.UTC().Format(timestampLayout), completedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save integrity run: %w", err)
	}
	return nil
}

// ListIntegrityRuns returns the most recent runs first. limit <= 0 means all.
func (s *Store) ListIntegrityRuns(ctx context.Context, limit int) ([]IntegrityRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, status, employees_checked, drift_count, error, started_at, completed_at
		FROM integrity_runs
		ORDER BY started_at DESC
	`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []IntegrityRun{}
	for rows.Next() {
		var r IntegrityRun
		var runErr, completedAt sql.NullString
		var startedAt string
		if err := rows.Scan(&r.ID, &r.Status, &r.EmployeesChecked, &r.DriftCount, &runErr, &startedAt, &completedAt); err != nil {
			return nil, err
		}
		r.Error = runErr.String
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		if completedAt.Valid {
			t, _ := time.Parse(time.RFC3339Nano, completedAt.String)
			r.CompletedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
