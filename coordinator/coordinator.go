/*
Package coordinator owns the single live ledger State.

PURPOSE:
  The ledger engine is pure and lock-free; this package is where concurrency
  safety lives. A Coordinator holds the current snapshot and its store
  version and serializes every mutating call behind one mutex:

    lock -> pure operation -> persist -> adopt new snapshot -> unlock

  Two debits can therefore never both validate against the same
  pre-transaction balance. If the operation fails, or the store rejects the
  save, the coordinator keeps the snapshot it had before the call.

CALLER CONVENTIONS:
  Transact: a failed debit/credit still records an ERROR audit entry
            ("Transaction Failed: ...") and the error is returned.
  Import:   writes an INFO audit entry with the row counts.
  AddSystemUser: duplicates come back as ledger.ErrDuplicateUser with no
            state change.

SEE ALSO:
  - ledger/store.go: SnapshotStore contract (versioned whole-snapshot saves)
  - automation: lenient adapter built on Update
*/
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/warp/canteen-ledger/ledger"
	"go.uber.org/zap"
)

// Op is one state transition.
type Op func(ledger.State) (ledger.State, error)

// Coordinator serializes all writes to the ledger.
type Coordinator struct {
	mu      sync.Mutex
	engine  *ledger.Engine
	store   ledger.SnapshotStore
	log     *zap.Logger
	state   ledger.State
	version uint64
}

// Open loads the stored snapshot, or creates one seeded with the given
// system users if the store is empty.
func Open(ctx context.Context, store ledger.SnapshotStore, engine *ledger.Engine, seed []ledger.SystemUser, log *zap.Logger) (*Coordinator, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Coordinator{engine: engine, store: store, log: log}

	snap, err := store.Load(ctx)
	switch {
	case errors.Is(err, ledger.ErrSnapshotNotFound):
		initial := ledger.NewState(seed)
		version, err := store.Save(ctx, initial, 0)
		if err != nil {
			return nil, fmt.Errorf("save initial snapshot: %w", err)
		}
		c.state, c.version = initial, version
		log.Info("created initial ledger snapshot", zap.Int("system_users", len(seed)))
	case err != nil:
		return nil, fmt.Errorf("load snapshot: %w", err)
	default:
		c.state = ledger.Normalize(snap.State, seed)
		c.version = snap.Version
		log.Info("loaded ledger snapshot",
			zap.Uint64("version", snap.Version),
			zap.Int("employees", len(c.state.Employees)),
			zap.Int("transactions", len(c.state.Transactions)),
		)
	}
	return c, nil
}

// Engine returns the engine used for transitions.
func (c *Coordinator) Engine() *ledger.Engine {
	return c.engine
}

// Snapshot returns the current state. The result must be treated as read-only.
func (c *Coordinator) Snapshot() ledger.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Version returns the store version of the current snapshot.
func (c *Coordinator) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// Update runs op against the current snapshot and persists the result.
// On any error the current snapshot is kept and returned.
func (c *Coordinator) Update(ctx context.Context, op Op) (ledger.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := op(c.state)
	if err != nil {
		return c.state, err
	}
	if err := c.commitLocked(ctx, next); err != nil {
		return c.state, err
	}
	return c.state, nil
}

func (c *Coordinator) commitLocked(ctx context.Context, next ledger.State) error {
	version, err := c.store.Save(ctx, next, c.version)
	if err != nil {
		c.log.Error("persist snapshot failed", zap.Uint64("version", c.version), zap.Error(err))
		return fmt.Errorf("persist snapshot: %w", err)
	}
	c.state, c.version = next, version
	return nil
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Transact applies a debit/credit/adjustment. A rejected transaction is
// recorded as an ERROR audit entry and the rejection is returned.
func (c *Coordinator) Transact(
	ctx context.Context,
	employeeID string,
	amount decimal.Decimal,
	txType ledger.TransactionType,
	note string,
) (ledger.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := c.engine.Apply(c.state, employeeID, amount, txType, note, "")
	if err != nil {
		c.log.Warn("transaction rejected",
			zap.String("employee_id", employeeID),
			zap.String("type", string(txType)),
			zap.String("amount", ledger.AmountString(amount)),
			zap.Error(err),
		)
		failed := c.engine.AppendLog(c.state, "Transaction Failed: "+err.Error(), ledger.LevelError, "")
		if saveErr := c.commitLocked(ctx, failed); saveErr != nil {
			return c.state, errors.Join(err, saveErr)
		}
		return c.state, err
	}

	if err := c.commitLocked(ctx, next); err != nil {
		return c.state, err
	}
	c.log.Info("transaction recorded",
		zap.String("employee_id", employeeID),
		zap.String("type", string(txType)),
		zap.String("amount", ledger.AmountString(amount)),
		zap.String("tx_id", next.Transactions[0].ID),
	)
	return c.state, nil
}

// Import merges a roster into the employee set and audits the result.
func (c *Coordinator) Import(ctx context.Context, text string) (ledger.State, ledger.ImportReport, error) {
	var report ledger.ImportReport
	s, err := c.Update(ctx, func(s ledger.State) (ledger.State, error) {
		var next ledger.State
		next, report = c.engine.ImportTable(s, text)
		msg := fmt.Sprintf("Imported Employees via CSV: %d created, %d existing, %d malformed",
			report.Created, report.Existing, report.Malformed)
		return c.engine.AppendLog(next, msg, ledger.LevelInfo, ""), nil
	})
	if err == nil {
		c.log.Info("roster imported",
			zap.Int("created", report.Created),
			zap.Int("existing", report.Existing),
			zap.Int("malformed", report.Malformed),
			zap.Int("batch_duplicates", report.BatchDuplicates),
		)
	}
	return s, report, err
}

// AppendLog writes one audit entry.
func (c *Coordinator) AppendLog(ctx context.Context, message string, level ledger.LogLevel) (ledger.State, error) {
	return c.Update(ctx, func(s ledger.State) (ledger.State, error) {
		return c.engine.AppendLog(s, message, level, ""), nil
	})
}

// FileTicket opens a ticket and returns it.
func (c *Coordinator) FileTicket(
	ctx context.Context,
	ticketType ledger.TicketType,
	title, description, relatedEmployeeID string,
) (ledger.Ticket, error) {
	s, err := c.Update(ctx, func(s ledger.State) (ledger.State, error) {
		return c.engine.FileTicket(s, ticketType, title, description, "", relatedEmployeeID), nil
	})
	if err != nil {
		return ledger.Ticket{}, err
	}
	return s.Tickets[0], nil
}

// ResolveTicket closes a ticket. Unknown or already resolved IDs are no-ops
// and report false.
func (c *Coordinator) ResolveTicket(ctx context.Context, ticketID string) (bool, error) {
	changed := false
	_, err := c.Update(ctx, func(s ledger.State) (ledger.State, error) {
		t, ok := s.Ticket(ticketID)
		changed = ok && t.Status == ledger.TicketOpen
		return c.engine.ResolveTicket(s, ticketID), nil
	})
	return changed, err
}

// AddSystemUser registers a back-office account with an already hashed password.
func (c *Coordinator) AddSystemUser(ctx context.Context, u ledger.SystemUser) (ledger.State, error) {
	s, err := c.Update(ctx, func(s ledger.State) (ledger.State, error) {
		return c.engine.AddSystemUser(s, u, "")
	})
	if err != nil {
		c.log.Warn("system user rejected", zap.String("username", u.Username), zap.Error(err))
		return s, err
	}
	c.log.Warn("system user created", zap.String("username", u.Username), zap.String("role", string(u.Role)))
	return s, nil
}

// SignIn attaches an authenticated identity to the snapshot.
func (c *Coordinator) SignIn(ctx context.Context, u ledger.User) (ledger.State, error) {
	return c.Update(ctx, func(s ledger.State) (ledger.State, error) {
		return c.engine.SignIn(s, u), nil
	})
}

// SignOut clears the session identity.
func (c *Coordinator) SignOut(ctx context.Context) (ledger.State, error) {
	return c.Update(ctx, func(s ledger.State) (ledger.State, error) {
		return c.engine.SignOut(s), nil
	})
}

// ReportDrift records balance inconsistencies: one ERROR audit entry and one
// SYSTEM_BUG ticket per drifting employee, all in a single transition.
// Employees that already have an OPEN SYSTEM_BUG ticket are skipped until
// that ticket is resolved.
func (c *Coordinator) ReportDrift(ctx context.Context, drifts []ledger.BalanceDrift) error {
	if len(drifts) == 0 {
		return nil
	}
	_, err := c.Update(ctx, func(s ledger.State) (ledger.State, error) {
		reported := make(map[string]bool)
		for _, t := range s.OpenTickets() {
			if t.Type == ledger.TicketSystemBug && t.RelatedEmployeeID != "" {
				reported[t.RelatedEmployeeID] = true
			}
		}
		for _, d := range drifts {
			if reported[d.EmployeeID] {
				continue
			}
			msg := fmt.Sprintf("Balance drift for %s: recorded %s, history %s",
				d.ExternalID, d.Recorded.String(), d.Reconstructed.String())
			s = c.engine.AppendLog(s, msg, ledger.LevelError, ledger.ActorSystem)
			s = c.engine.FileTicket(s, ledger.TicketSystemBug, "Balance drift: "+d.ExternalID, msg, ledger.ActorTicketSystem, d.EmployeeID)
		}
		return s, nil
	})
	return err
}
