/*
store.go - Persistence interface for ledger snapshots

PURPOSE:
  Defines the boundary between the pure engine and durable storage. The
  store only ever sees whole snapshots: load the current one at startup,
  save a complete replacement after every change. There are no partial
  record reads or writes.

VERSIONING:
  Every saved snapshot gets a version number. Save takes the version the
  new snapshot was derived from; if the store has moved on since, the save
  is rejected with ErrConcurrentModification and nothing is written. This
  is the optimistic compare-and-swap that protects the credit-limit check
  if two writers ever share one store.

IMPLEMENTATIONS:
  - ledger/store/memory.go: in-memory, for tests and dev
  - store/sqlite/sqlite.go: SQLite

SEE ALSO:
  - coordinator: the single writer that drives Load/Save
*/
package ledger

import "context"

// Snapshot is a stored State with its version. Version 0 means "never saved".
type Snapshot struct {
	State   State
	Version uint64
}

// SnapshotStore persists whole ledger snapshots.
type SnapshotStore interface {
	// Load returns the latest snapshot, or ErrSnapshotNotFound.
	Load(ctx context.Context) (Snapshot, error)

	// Save replaces the stored snapshot if its version is still
	// expectedVersion and returns the new version.
	Save(ctx context.Context, state State, expectedVersion uint64) (uint64, error)
}
